package main

import (
	"context"

	"github.com/spf13/cobra"

	"feedkeeper/internal/config"
	"feedkeeper/internal/document"
	"feedkeeper/internal/feed"
)

func touchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "touch",
		Short: "Refresh lastBuildDate when the feed changed since the last touch",
		Args:  cobra.NoArgs,
		RunE: withApp(func(ctx context.Context, a *app, _ []string) error {
			unlock, err := a.lock(ctx)
			if err != nil {
				return err
			}
			defer unlock()
			return a.touch(ctx)
		}),
	}
}

// touch stamps the document with the current build date when its hash
// differs from the one recorded by the previous touch.
func (a *app) touch(ctx context.Context) error {
	s, err := a.settings()
	if err != nil {
		return err
	}
	doc, err := a.doc.Read(ctx)
	if err != nil {
		return err
	}
	if s.LastFeedHash != "" && document.Hash(doc) == s.LastFeedHash {
		a.log.Info("feed unchanged", "feed_path", a.doc.Path())
		return nil
	}

	now := a.now()
	updated, err := feed.SetLastBuildDate(doc, now)
	if err != nil {
		return err
	}
	if err := a.doc.Write(ctx, updated); err != nil {
		return err
	}

	s.LastFeedHash = document.Hash(updated)
	s.LastCheckTimestamp = now.UnixMilli()
	if err := config.SaveSettings(a.cfg.SettingsPath, s); err != nil {
		return err
	}
	a.log.Info("feed touched", "feed_path", a.doc.Path(), "last_build_date", feed.FormatDate(now))
	return nil
}
