package main

import (
	"context"

	"github.com/spf13/cobra"

	"feedkeeper/internal/config"
	"feedkeeper/internal/feed"
	"feedkeeper/internal/model"
	"feedkeeper/internal/pipeline"
)

func formatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "format",
		Short: "Rebuild the feed items and rewrite the document in canonical form",
		Args:  cobra.NoArgs,
		RunE: withApp(func(ctx context.Context, a *app, _ []string) error {
			unlock, err := a.lock(ctx)
			if err != nil {
				return err
			}
			defer unlock()

			s, err := a.settings()
			if err != nil {
				return err
			}
			doc, err := a.doc.Read(ctx)
			if err != nil {
				return err
			}
			p := a.pipeline(s, nil)
			res, err := canonical(p, s, doc)
			if err != nil {
				return err
			}
			if err := p.Persist(ctx, a.doc, res); err != nil {
				return err
			}
			a.log.Info("feed formatted", "feed_path", a.doc.Path(), "items", len(res.Added), "changed", res.Changed)
			return nil
		}),
	}
}

func checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Exit non-zero when the feed is not in canonical form",
		Args:  cobra.NoArgs,
		RunE: withApp(func(ctx context.Context, a *app, _ []string) error {
			s, err := a.settings()
			if err != nil {
				return err
			}
			doc, err := a.doc.Read(ctx)
			if err != nil {
				return err
			}
			res, err := canonical(a.pipeline(s, nil), s, doc)
			if err != nil {
				return err
			}
			if res.Changed {
				return errNotFormatted
			}
			a.log.Info("feed is formatted", "feed_path", a.doc.Path())
			return nil
		}),
	}
}

// canonical returns the canonical form of doc. Documents with items after
// the anchor are rebuilt; the others are only pretty-printed.
func canonical(p *pipeline.Pipeline, s *config.Settings, doc string) (*pipeline.Result, error) {
	if s.Insertion != model.InsertBefore {
		return p.Rebuild(doc)
	}
	out, err := feed.Format(doc)
	if err != nil {
		return nil, err
	}
	return &pipeline.Result{Document: out, Changed: out != doc}, nil
}
