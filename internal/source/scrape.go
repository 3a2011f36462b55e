package source

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"

	"feedkeeper/internal/config"
	"feedkeeper/internal/model"
)

// Scraper collects items from an HTML page with CSS selectors. Every match
// of the item selector is one candidate; the other selectors are evaluated
// inside it.
type Scraper struct {
	getter Getter
	cfg    config.Scraper
	base   *url.URL
	log    *slog.Logger
}

// NewScraper creates an HTML scraper.
func NewScraper(getter Getter, cfg config.Scraper, log *slog.Logger) (*Scraper, error) {
	if cfg.Item == "" || cfg.Title == "" {
		return nil, fmt.Errorf("scraper %s: item and title selectors are required", cfg.Name)
	}
	base, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("scraper %s: invalid url: %w", cfg.Name, err)
	}
	return &Scraper{getter: getter, cfg: cfg, base: base, log: log}, nil
}

// Name implements Source.
func (s *Scraper) Name() string { return s.cfg.Name }

// Collect implements Source.
func (s *Scraper) Collect(ctx context.Context) (*Batch, error) {
	body, err := s.getter.Get(ctx, s.cfg.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch page %s: %w", s.cfg.Name, err)
	}
	// Pages declare their charset in a BOM or meta tag; goquery expects UTF-8.
	r, err := charset.NewReader(bytes.NewReader(body), "")
	if err != nil {
		return nil, fmt.Errorf("decode page %s: %w", s.cfg.Name, err)
	}
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse page %s: %w", s.cfg.Name, err)
	}

	items := s.extract(doc)
	s.log.Info("scraped page", "source", s.cfg.Name, "count", len(items))
	return &Batch{Items: items}, nil
}

func (s *Scraper) extract(doc *goquery.Document) []model.FeedItem {
	var items []model.FeedItem
	doc.Find(s.cfg.Item).Each(func(_ int, sel *goquery.Selection) {
		item := model.FeedItem{
			Title:       strings.TrimSpace(sel.Find(s.cfg.Title).First().Text()),
			Link:        s.link(sel),
			PublishedAt: s.date(sel),
			Source:      s.cfg.Name,
		}
		if s.cfg.Description != "" {
			if html, err := sel.Find(s.cfg.Description).First().Html(); err == nil {
				item.Description = strings.TrimSpace(html)
			}
		}
		items = append(items, item)
	})
	return items
}

// link reads href from the link selector, or from the item itself when no
// selector is configured, and resolves it against the page URL.
func (s *Scraper) link(sel *goquery.Selection) string {
	target := sel
	if s.cfg.Link != "" {
		target = sel.Find(s.cfg.Link).First()
	}
	href, ok := target.Attr("href")
	if !ok || strings.TrimSpace(href) == "" {
		return ""
	}
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return ""
	}
	return s.base.ResolveReference(ref).String()
}

func (s *Scraper) date(sel *goquery.Selection) string {
	if s.cfg.Date == "" {
		return ""
	}
	target := sel.Find(s.cfg.Date).First()
	if s.cfg.DateAttr != "" {
		v, _ := target.Attr(s.cfg.DateAttr)
		return strings.TrimSpace(v)
	}
	return strings.TrimSpace(target.Text())
}
