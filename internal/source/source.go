// Package source implements the collectors that supply candidate items:
// the NVD CVE API, the retrospective digest, upstream feeds, HTML scrapers
// and manually submitted posts.
package source

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/mmcdole/gofeed"

	"feedkeeper/internal/config"
	"feedkeeper/internal/model"
)

// Getter downloads documents. *fetcher.Fetcher implements it.
type Getter interface {
	Get(ctx context.Context, url string, header http.Header) ([]byte, error)
	Fetch(ctx context.Context, url string) (*gofeed.Feed, error)
}

// PostLister lists manually submitted posts.
type PostLister interface {
	ListPosts(ctx context.Context) ([]model.Post, error)
}

// Batch is the outcome of one collection.
type Batch struct {
	Items []model.FeedItem
	// Update records the collector's bookkeeping in the settings. It must
	// only be called once the batch has been persisted. May be nil.
	Update func(s *config.Settings)
}

// Source is a collector of candidate items.
type Source interface {
	Name() string
	Collect(ctx context.Context) (*Batch, error)
}

// Deps are the collaborators shared by collectors.
type Deps struct {
	Getter Getter
	Posts  PostLister
	// APIKey overrides the NVD key from the settings when set.
	APIKey string
	Log    *slog.Logger
	Now    func() time.Time
}

// FromSettings builds every enabled collector in a fixed order: cve,
// retrospective, manual, then feeds and scrapers as listed.
func FromSettings(s *config.Settings, deps Deps) ([]Source, error) {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Log == nil {
		deps.Log = slog.Default()
	}

	var sources []Source
	if s.CVE.Enabled {
		cfg := s.CVE
		if deps.APIKey != "" {
			cfg.APIKey = deps.APIKey
		}
		sources = append(sources, NewCVE(deps.Getter, cfg, deps.Now, deps.Log))
	}
	if s.Retrospective.Enabled {
		sources = append(sources, NewRetrospective(deps.Getter, s.Retrospective, deps.Log))
	}
	if s.Manual.Enabled {
		if deps.Posts == nil {
			return nil, fmt.Errorf("manual source needs a post store")
		}
		sources = append(sources, NewManual(deps.Posts, deps.Log))
	}

	names := map[string]bool{config.SourceCVE: true, config.SourceRetrospective: true, config.SourceManual: true}
	for _, f := range s.Feeds {
		if err := claim(names, f.Name); err != nil {
			return nil, err
		}
		up, err := NewUpstream(deps.Getter, f, deps.Log)
		if err != nil {
			return nil, err
		}
		sources = append(sources, up)
	}
	for _, sc := range s.Scrapers {
		if err := claim(names, sc.Name); err != nil {
			return nil, err
		}
		scr, err := NewScraper(deps.Getter, sc, deps.Log)
		if err != nil {
			return nil, err
		}
		sources = append(sources, scr)
	}
	return sources, nil
}

// Select returns the sources with the given names, in the order asked.
// No names selects every source.
func Select(sources []Source, names ...string) ([]Source, error) {
	if len(names) == 0 {
		return sources, nil
	}
	byName := make(map[string]Source, len(sources))
	for _, s := range sources {
		byName[s.Name()] = s
	}
	out := make([]Source, 0, len(names))
	for _, n := range names {
		s, ok := byName[n]
		if !ok {
			return nil, fmt.Errorf("unknown or disabled source %q", n)
		}
		out = append(out, s)
	}
	return out, nil
}

func claim(names map[string]bool, name string) error {
	if name == "" {
		return fmt.Errorf("feeds and scrapers need a name")
	}
	if names[name] {
		return fmt.Errorf("duplicate source name %q", name)
	}
	names[name] = true
	return nil
}
