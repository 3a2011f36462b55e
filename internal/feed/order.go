package feed

import (
	"slices"

	"feedkeeper/internal/model"
)

// SortByDateDesc returns a copy of items stably sorted newest first.
// Unparsable dates sort as Epoch.
func SortByDateDesc(items []model.FeedItem) []model.FeedItem {
	type keyed struct {
		item model.FeedItem
		unix int64
	}
	ks := make([]keyed, len(items))
	for i, item := range items {
		ks[i] = keyed{item: item, unix: PublishedTime(item.PublishedAt).UnixNano()}
	}
	slices.SortStableFunc(ks, func(a, b keyed) int {
		switch {
		case a.unix > b.unix:
			return -1
		case a.unix < b.unix:
			return 1
		}
		return 0
	})

	out := make([]model.FeedItem, len(ks))
	for i, k := range ks {
		out[i] = k.item
	}
	return out
}

// Limit returns the first n items. A non-positive n disables truncation.
func Limit(items []model.FeedItem, n int) []model.FeedItem {
	if n <= 0 || n >= len(items) {
		return items
	}
	return items[:n]
}
