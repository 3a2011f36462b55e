package source

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"feedkeeper/internal/config"
	"feedkeeper/internal/feed"
	"feedkeeper/internal/model"
)

// Manual collects posts submitted through the post server. Descriptions are
// markdown and rendered to HTML.
type Manual struct {
	posts PostLister
	md    goldmark.Markdown
	log   *slog.Logger
}

// NewManual creates the manual post collector.
func NewManual(posts PostLister, log *slog.Logger) *Manual {
	return &Manual{
		posts: posts,
		md:    goldmark.New(goldmark.WithExtensions(extension.GFM)),
		log:   log,
	}
}

// Name implements Source.
func (m *Manual) Name() string { return config.SourceManual }

// Collect implements Source.
func (m *Manual) Collect(ctx context.Context) (*Batch, error) {
	posts, err := m.posts.ListPosts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}

	items := make([]model.FeedItem, 0, len(posts))
	for _, p := range posts {
		desc, err := m.render(p.Description)
		if err != nil {
			m.log.Warn("render post description", "id", p.ID, "error", err)
			desc = p.Description
		}
		items = append(items, model.FeedItem{
			Title:       p.Title,
			Link:        p.Link,
			Description: desc,
			PublishedAt: feed.FormatDate(p.PublishedAt),
			GUID:        p.Link,
			Source:      config.SourceManual,
			Categories:  p.Categories,
		})
	}
	m.log.Info("collected manual posts", "count", len(items))
	return &Batch{Items: items}, nil
}

// render converts a markdown post body to HTML.
func (m *Manual) render(src string) (string, error) {
	var buf bytes.Buffer
	if err := m.md.Convert([]byte(src), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}
