package main

import (
	"context"

	"github.com/spf13/cobra"

	"feedkeeper/internal/server"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the manual post form and API",
		Args:  cobra.NoArgs,
		RunE: withApp(func(ctx context.Context, a *app, _ []string) error {
			store, err := a.openStore()
			if err != nil {
				return err
			}
			return server.New(store, a.doc, a.log).ListenAndServe(ctx, a.cfg.ListenAddr)
		}),
	}
}
