package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"feedkeeper/internal/scheduler"
	"feedkeeper/internal/server"
	"feedkeeper/internal/source"
)

func daemonCmd() *cobra.Command {
	var (
		interval time.Duration
		serve    bool
		site     bool
	)
	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run every enabled source on an interval",
		Long: "Runs the enabled sources one after another on every tick, in a single " +
			"process. Optionally serves the post API and rebuilds the website.",
		Args: cobra.NoArgs,
		RunE: withApp(func(ctx context.Context, a *app, _ []string) error {
			store, err := a.openStore()
			if err != nil {
				return err
			}
			n, err := a.newNotifier()
			if err != nil {
				return err
			}
			c := &collector{app: a, store: store, notifier: n}

			list := func(context.Context) ([]source.Source, error) { return a.sources(store) }
			run := func(ctx context.Context, src source.Source) error {
				if err := c.run(ctx, src); err != nil {
					return err
				}
				if site {
					return a.buildWebsite(ctx)
				}
				return nil
			}
			sched := scheduler.New(list, run, a.log)
			sched.SetTickInterval(interval)

			ctx, cancel := context.WithCancel(ctx)
			defer cancel()

			errc := make(chan error, 1)
			if serve {
				go func() {
					// A server that cannot listen stops the daemon too.
					errc <- server.New(store, a.doc, a.log).ListenAndServe(ctx, a.cfg.ListenAddr)
					cancel()
				}()
			}

			a.log.Info("starting daemon", "interval", interval, "serve", serve)
			sched.Run(ctx)
			a.log.Info("daemon stopped")

			if serve {
				return <-errc
			}
			return nil
		}),
	}
	cmd.Flags().DurationVar(&interval, "interval", time.Hour, "time between runs")
	cmd.Flags().BoolVar(&serve, "serve", false, "also serve the post API")
	cmd.Flags().BoolVar(&site, "website", false, "rebuild the website after every source")
	return cmd
}
