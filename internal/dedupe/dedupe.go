// Package dedupe resolves item identity and drops repeated items.
package dedupe

import (
	"strings"

	"feedkeeper/internal/model"
	"feedkeeper/internal/sanitize"
)

// Anchor returns the raw identity anchor of an item: the GUID, else the
// link, else the title. It is also the value rendered as the item's guid.
func Anchor(guid, link, title string) string {
	switch {
	case guid != "":
		return guid
	case link != "":
		return link
	default:
		return title
	}
}

// Normalize turns a raw anchor into a comparison key.
func Normalize(raw string) string {
	return strings.ToLower(strings.TrimSpace(sanitize.NormalizeWhitespace(raw)))
}

// Key returns the normalized identity key of an item.
func Key(item model.FeedItem) string {
	return Normalize(Anchor(item.GUID, item.Link, item.Title))
}

// Seen is a set of identity keys scoped to one run.
type Seen map[string]struct{}

// NewSeen builds a set from already-normalized keys.
func NewSeen(keys ...string) Seen {
	s := make(Seen, len(keys))
	for _, k := range keys {
		s[k] = struct{}{}
	}
	return s
}

// Has reports whether key is in the set.
func (s Seen) Has(key string) bool {
	_, ok := s[key]
	return ok
}

// Add inserts key into the set.
func (s Seen) Add(key string) {
	s[key] = struct{}{}
}

// Filter keeps the first occurrence of every identity key in input order and
// drops later repeats. Items whose key is already in seen are dropped as well.
// seen may be nil; when non-nil it is updated with every kept key.
// The input slice is not modified.
func Filter(items []model.FeedItem, seen Seen) []model.FeedItem {
	if seen == nil {
		seen = make(Seen, len(items))
	}
	out := make([]model.FeedItem, 0, len(items))
	for _, item := range items {
		key := Key(item)
		if seen.Has(key) {
			continue
		}
		seen.Add(key)
		out = append(out, item)
	}
	return out
}
