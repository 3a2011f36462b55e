package feed

import (
	"fmt"
	"strings"

	"github.com/mmcdole/gofeed"
	"github.com/mmcdole/gofeed/rss"

	"feedkeeper/internal/dedupe"
	"feedkeeper/internal/model"
)

// Parse reads doc with a standard feed parser. A document that fails here
// would break subscribers, so it is treated as structurally broken.
func Parse(doc string) (*gofeed.Feed, error) {
	f, err := gofeed.NewParser().ParseString(doc)
	if err != nil {
		return nil, &StructuralError{Op: "parse", Err: fmt.Errorf("%w: %v", ErrMalformedDocument, err)}
	}
	return f, nil
}

// ExistingKeys returns the identity keys of every item already in doc.
func ExistingKeys(doc string) (dedupe.Seen, error) {
	f, err := Parse(doc)
	if err != nil {
		return nil, err
	}
	seen := dedupe.NewSeen()
	for _, it := range f.Items {
		seen.Add(dedupe.Normalize(dedupe.Anchor(it.GUID, it.Link, it.Title)))
	}
	return seen, nil
}

// ParseItems decodes a sequence of <item> elements back into feed items.
// Source attribution and category order are kept.
func ParseItems(region string) ([]model.FeedItem, error) {
	wrapped := `<rss version="2.0"><channel>` + region + `</channel></rss>`
	fp := rss.Parser{}
	f, err := fp.Parse(strings.NewReader(wrapped))
	if err != nil {
		return nil, &StructuralError{Op: "parse items", Err: fmt.Errorf("%w: %v", ErrMalformedDocument, err)}
	}

	items := make([]model.FeedItem, 0, len(f.Items))
	for _, it := range f.Items {
		item := model.FeedItem{
			Title:       it.Title,
			Link:        it.Link,
			Description: it.Description,
			PublishedAt: it.PubDate,
		}
		if it.GUID != nil {
			item.GUID = it.GUID.Value
		}
		if it.Source != nil {
			item.Source = it.Source.Title
		}
		for _, c := range it.Categories {
			if c != nil && c.Value != "" {
				item.Categories = append(item.Categories, c.Value)
			}
		}
		items = append(items, item)
	}
	return items, nil
}
