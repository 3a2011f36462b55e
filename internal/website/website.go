// Package website renders a static HTML page from the feed document.
package website

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
	"os"
	"time"

	"github.com/google/renameio/v2"
	"github.com/microcosm-cc/bluemonday"
	"github.com/mmcdole/gofeed"

	"feedkeeper/internal/feed"
)

//go:embed index.html.tmpl
var defaultTemplate string

const dateLayout = "2 Jan 2006 15:04 MST"

var descriptionPolicy = bluemonday.UGCPolicy()

// Page is the data passed to the template.
type Page struct {
	Title       string
	Link        string
	Description string
	Updated     string
	Items       []Item
}

// Item is one feed entry on the page. Descriptions are HTML filtered by a
// user-content policy, since sources in preserve mode pass markup through.
type Item struct {
	Title       string
	Link        string
	Description template.HTML
	Published   string
	Categories  []string
}

// LoadTemplate parses the template at path, or the built-in one when path is
// empty.
func LoadTemplate(path string) (*template.Template, error) {
	text := defaultTemplate
	name := "index.html"
	if path != "" {
		data, err := os.ReadFile(path) //nolint:gosec // path comes from process configuration
		if err != nil {
			return nil, fmt.Errorf("read website template: %w", err)
		}
		text = string(data)
		name = path
	}
	tmpl, err := template.New(name).Parse(text)
	if err != nil {
		return nil, fmt.Errorf("parse website template: %w", err)
	}
	return tmpl, nil
}

// NewPage extracts the channel metadata and items of a feed document, in
// document order.
func NewPage(doc string) (*Page, error) {
	f, err := feed.Parse(doc)
	if err != nil {
		return nil, err
	}
	return pageFromFeed(f), nil
}

func pageFromFeed(f *gofeed.Feed) *Page {
	p := &Page{
		Title:       f.Title,
		Link:        f.Link,
		Description: f.Description,
		Updated:     displayDate(f.Updated, f.UpdatedParsed),
		Items:       make([]Item, 0, len(f.Items)),
	}
	for _, it := range f.Items {
		if it == nil {
			continue
		}
		p.Items = append(p.Items, Item{
			Title:       it.Title,
			Link:        it.Link,
			Description: template.HTML(descriptionPolicy.Sanitize(it.Description)), //nolint:gosec // filtered by descriptionPolicy
			Published:   displayDate(it.Published, it.PublishedParsed),
			Categories:  it.Categories,
		})
	}
	return p
}

func displayDate(raw string, parsed *time.Time) string {
	if parsed == nil {
		return raw
	}
	return parsed.UTC().Format(dateLayout)
}

// Render executes tmpl over the feed document.
func Render(tmpl *template.Template, doc string) ([]byte, error) {
	page, err := NewPage(doc)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, page); err != nil {
		return nil, fmt.Errorf("render website: %w", err)
	}
	return buf.Bytes(), nil
}

// Write atomically replaces the page at path.
func Write(path string, html []byte) error {
	if err := renameio.WriteFile(path, html, 0o644); err != nil {
		return fmt.Errorf("write website: %w", err)
	}
	return nil
}
