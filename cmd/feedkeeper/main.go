package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:          "feedkeeper",
		Short:        "Maintain an RSS feed document from security and news sources",
		SilenceUsage: true,
	}
	root.PersistentFlags().Duration("lock-timeout", defaultLockTimeout, "how long to wait for another run to release the feed")

	root.AddCommand(
		collectCmd(),
		formatCmd(),
		checkCmd(),
		touchCmd(),
		websiteCmd(),
		serveCmd(),
		daemonCmd(),
		migrateCmd(),
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	err := root.ExecuteContext(ctx)
	cancel()
	if err != nil {
		os.Exit(1)
	}
}
