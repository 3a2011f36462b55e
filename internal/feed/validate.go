package feed

import (
	"strings"

	"feedkeeper/internal/model"
)

// Validate returns a *ValidationError when title, link or publish date is
// empty or whitespace-only.
func Validate(item model.FeedItem) error {
	switch {
	case strings.TrimSpace(item.Title) == "":
		return &ValidationError{Field: "title", Item: item}
	case strings.TrimSpace(item.Link) == "":
		return &ValidationError{Field: "link", Item: item}
	case strings.TrimSpace(item.PublishedAt) == "":
		return &ValidationError{Field: "publishedAt", Item: item}
	}
	return nil
}

// Valid reports whether item can be published.
func Valid(item model.FeedItem) bool {
	return Validate(item) == nil
}
