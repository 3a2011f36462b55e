package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"feedkeeper/internal/config"
	"feedkeeper/internal/dedupe"
	"feedkeeper/internal/model"
	"feedkeeper/internal/source"
	"feedkeeper/internal/storage"
)

func collectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "collect [source...]",
		Short: "Collect items from sources and merge them into the feed",
		Long: "Runs each named source, or every enabled source when none is named, " +
			"and merges the new items into the feed document.",
		RunE: withApp(func(ctx context.Context, a *app, args []string) error {
			store, err := a.openStore()
			if err != nil {
				return err
			}
			all, err := a.sources(store)
			if err != nil {
				return err
			}
			selected, err := source.Select(all, args...)
			if err != nil {
				return err
			}
			n, err := a.newNotifier()
			if err != nil {
				return err
			}

			c := &collector{app: a, store: store, notifier: n}
			var errs []error
			for _, src := range selected {
				if err := c.run(ctx, src); err != nil {
					a.log.Error("run source", "source", src.Name(), "error", err)
					errs = append(errs, err)
				}
			}
			return errors.Join(errs...)
		}),
	}
}

// collector runs one source through the pipeline.
type collector struct {
	*app
	store    storage.Storage
	notifier notifier
}

// run collects src, merges the batch into the feed and records the run's
// bookkeeping. Settings and seen keys are only updated after the document
// has been written.
func (c *collector) run(ctx context.Context, src source.Source) error {
	batch, err := src.Collect(ctx)
	if err != nil {
		return fmt.Errorf("collect %s: %w", src.Name(), err)
	}

	added, err := c.merge(ctx, src.Name(), batch)
	if err != nil {
		return err
	}

	if c.notifier != nil && len(added) > 0 {
		if err := c.notifier.Notify(ctx, added); err != nil {
			c.log.Warn("notify", "source", src.Name(), "error", err)
		}
	}
	return nil
}

func (c *collector) merge(ctx context.Context, name string, batch *source.Batch) ([]model.FeedItem, error) {
	unlock, err := c.lock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	s, err := c.settings()
	if err != nil {
		return nil, err
	}
	seen, err := c.store.SeenKeys(ctx)
	if err != nil {
		return nil, fmt.Errorf("load seen keys: %w", err)
	}

	res, err := c.pipeline(s, seen).Run(ctx, c.doc, batch.Items)
	if err != nil {
		return nil, fmt.Errorf("merge %s: %w", name, err)
	}

	keys := make([]string, 0, len(res.Added))
	for _, it := range res.Added {
		keys = append(keys, dedupe.Key(it))
	}
	if err := c.store.MarkSeen(ctx, keys...); err != nil {
		return nil, fmt.Errorf("record seen keys: %w", err)
	}

	if batch.Update != nil {
		batch.Update(s)
		if err := config.SaveSettings(c.cfg.SettingsPath, s); err != nil {
			return nil, err
		}
	}

	c.log.Info("source merged",
		"source", name,
		"candidates", len(batch.Items),
		"added", len(res.Added),
		"rejected", res.Rejected,
		"changed", res.Changed,
	)
	return res.Added, nil
}
