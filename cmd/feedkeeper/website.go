package main

import (
	"context"

	"github.com/spf13/cobra"

	"feedkeeper/internal/website"
)

func websiteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "website",
		Short: "Render the static website from the feed",
		Args:  cobra.NoArgs,
		RunE: withApp(func(ctx context.Context, a *app, _ []string) error {
			return a.buildWebsite(ctx)
		}),
	}
}

func (a *app) buildWebsite(ctx context.Context) error {
	tmpl, err := website.LoadTemplate(a.cfg.WebsiteTemplate)
	if err != nil {
		return err
	}
	doc, err := a.doc.Read(ctx)
	if err != nil {
		return err
	}
	html, err := website.Render(tmpl, doc)
	if err != nil {
		return err
	}
	if err := website.Write(a.cfg.WebsitePath, html); err != nil {
		return err
	}
	a.log.Info("website built", "website_path", a.cfg.WebsitePath)
	return nil
}
