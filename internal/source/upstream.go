package source

import (
	"context"
	"fmt"
	"log/slog"

	"feedkeeper/internal/config"
	"feedkeeper/internal/fetcher"
	"feedkeeper/internal/filter"
)

// Upstream collects items from an RSS, Atom or JSON feed that pass the
// feed's keyword and category rules.
type Upstream struct {
	getter  Getter
	cfg     config.UpstreamFeed
	matcher *filter.Matcher
	log     *slog.Logger
}

// NewUpstream creates an upstream feed collector. Invalid patterns are
// reported here rather than on every run.
func NewUpstream(getter Getter, cfg config.UpstreamFeed, log *slog.Logger) (*Upstream, error) {
	scope, err := filter.ParseScope(cfg.Scope)
	if err != nil {
		return nil, fmt.Errorf("feed %s: %w", cfg.Name, err)
	}
	m, err := filter.New(filter.Build(scope, cfg.Include, cfg.Exclude, cfg.IncludeRe, cfg.ExcludeRe, cfg.Categories))
	if err != nil {
		return nil, fmt.Errorf("feed %s: %w", cfg.Name, err)
	}
	return &Upstream{getter: getter, cfg: cfg, matcher: m, log: log}, nil
}

// Name implements Source.
func (u *Upstream) Name() string { return u.cfg.Name }

// Collect implements Source.
func (u *Upstream) Collect(ctx context.Context) (*Batch, error) {
	f, err := u.getter.Fetch(ctx, u.cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("fetch feed %s: %w", u.cfg.Name, err)
	}
	all := fetcher.Items(f, u.cfg.Name)
	items := u.matcher.Apply(all)
	u.log.Info("collected feed",
		"source", u.cfg.Name,
		"total", len(all),
		"matched", len(items),
	)
	return &Batch{Items: items}, nil
}
