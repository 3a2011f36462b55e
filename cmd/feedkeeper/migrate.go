package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/pressly/goose/v3"
	"github.com/spf13/cobra"
	_ "modernc.org/sqlite"

	"feedkeeper/migrations"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the post store schema",
	}
	cmd.AddCommand(
		migrateStep("up", "Migrate to the latest version", func(ctx context.Context, p *goose.Provider, w io.Writer) error {
			res, err := p.Up(ctx)
			printResults(w, res...)
			return err
		}),
		migrateStep("up-one", "Migrate one version up", func(ctx context.Context, p *goose.Provider, w io.Writer) error {
			res, err := p.UpByOne(ctx)
			printResults(w, res)
			return err
		}),
		migrateStep("down", "Roll back one version", func(ctx context.Context, p *goose.Provider, w io.Writer) error {
			res, err := p.Down(ctx)
			printResults(w, res)
			return err
		}),
		migrateStep("reset", "Roll back all migrations", func(ctx context.Context, p *goose.Provider, w io.Writer) error {
			res, err := p.DownTo(ctx, 0)
			printResults(w, res...)
			return err
		}),
		migrateStep("status", "Show migration status", func(ctx context.Context, p *goose.Provider, w io.Writer) error {
			statuses, err := p.Status(ctx)
			if err != nil {
				return err
			}
			for _, st := range statuses {
				applied := "-"
				if st.State == goose.StateApplied {
					applied = st.AppliedAt.UTC().Format("2006-01-02 15:04:05")
				}
				fmt.Fprintf(w, "%-8s %-19s %s\n", st.State, applied, filepath.Base(st.Source.Path))
			}
			return nil
		}),
		migrateStep("version", "Show current version", func(ctx context.Context, p *goose.Provider, w io.Writer) error {
			v, err := p.GetDBVersion(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintln(w, v)
			return nil
		}),
	)
	return cmd
}

type migrateFunc func(ctx context.Context, p *goose.Provider, w io.Writer) error

// migrateStep opens the database directly, without the automatic upgrade
// done by the store, so that down and reset can be run.
func migrateStep(use, short string, fn migrateFunc) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: withApp(func(ctx context.Context, a *app, _ []string) error {
			if dir := filepath.Dir(a.cfg.DatabasePath); dir != "." {
				if err := os.MkdirAll(dir, 0o750); err != nil {
					return fmt.Errorf("create data directory %s: %w", dir, err)
				}
			}
			db, err := sql.Open("sqlite", a.cfg.DatabasePath)
			if err != nil {
				return fmt.Errorf("open database %s: %w", a.cfg.DatabasePath, err)
			}
			defer func() { _ = db.Close() }()

			p, err := migrations.NewProvider(db, a.log)
			if err != nil {
				return err
			}
			if err := fn(ctx, p, os.Stdout); err != nil {
				return fmt.Errorf("%s: %w", use, err)
			}
			return nil
		}),
	}
}

func printResults(w io.Writer, results ...*goose.MigrationResult) {
	for _, r := range results {
		if r != nil && r.Source != nil {
			fmt.Fprintln(w, r)
		}
	}
}
