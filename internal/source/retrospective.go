package source

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"feedkeeper/internal/config"
	"feedkeeper/internal/feed"
	"feedkeeper/internal/fetcher"
	"feedkeeper/internal/model"
)

// Retrospective collects new entries of the weekly digest feed.
type Retrospective struct {
	getter Getter
	cfg    config.RetroSettings
	log    *slog.Logger
}

// NewRetrospective creates the digest collector.
func NewRetrospective(getter Getter, cfg config.RetroSettings, log *slog.Logger) *Retrospective {
	return &Retrospective{getter: getter, cfg: cfg, log: log}
}

// Name implements Source.
func (r *Retrospective) Name() string { return config.SourceRetrospective }

// Collect returns the digest entries published after the last seen one.
func (r *Retrospective) Collect(ctx context.Context) (*Batch, error) {
	f, err := r.getter.Fetch(ctx, r.cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("fetch retrospective: %w", err)
	}

	lastSeen := feed.Epoch
	if r.cfg.LastSeen != "" {
		lastSeen = feed.PublishedTime(r.cfg.LastSeen)
	}

	newest := lastSeen
	var items []model.FeedItem
	for _, it := range fetcher.Items(f, r.Name()) {
		published := feed.PublishedTime(it.PublishedAt)
		if !published.After(lastSeen) {
			continue
		}
		if d := strings.TrimSpace(it.Description); d != "" && !strings.HasPrefix(d, "<") {
			it.Description = "<p>" + d + "</p>"
		}
		if it.GUID == "" {
			it.GUID = it.Link
		}
		items = append(items, it)
		if published.After(newest) {
			newest = published
		}
	}

	r.log.Info("collected retrospectives", "count", len(items), "last_seen", r.cfg.LastSeen)

	batch := &Batch{Items: items}
	if newest.After(lastSeen) {
		seen := feed.FormatDate(newest)
		batch.Update = func(s *config.Settings) { s.Retrospective.LastSeen = seen }
	}
	return batch, nil
}
