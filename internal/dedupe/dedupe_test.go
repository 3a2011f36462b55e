package dedupe

import (
	"math/rand"
	"testing"
	"testing/quick"

	"github.com/google/go-cmp/cmp"

	"feedkeeper/internal/model"
)

func TestKey(t *testing.T) {
	tests := []struct {
		name string
		item model.FeedItem
		want string
	}{
		{name: "guid wins", item: model.FeedItem{GUID: "G-1", Link: "http://x/1", Title: "T"}, want: "g-1"},
		{name: "link when no guid", item: model.FeedItem{Link: "HTTP://X/1", Title: "T"}, want: "http://x/1"},
		{name: "title last", item: model.FeedItem{Title: "  Title   A  "}, want: "title a"},
		{name: "nothing", item: model.FeedItem{}, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, Key(tt.item)); diff != "" {
				t.Errorf("Key() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFilter(t *testing.T) {
	tests := []struct {
		name  string
		items []model.FeedItem
		seen  Seen
		want  []model.FeedItem
	}{
		{
			name: "duplicate guid",
			items: []model.FeedItem{
				{GUID: "123", Title: "A"},
				{GUID: "456", Title: "B"},
				{GUID: "123", Title: "C"},
			},
			want: []model.FeedItem{
				{GUID: "123", Title: "A"},
				{GUID: "456", Title: "B"},
			},
		},
		{
			name: "duplicate link without guid",
			items: []model.FeedItem{
				{Link: "http://example.com/a", Title: "A"},
				{Link: "http://example.com/b", Title: "B"},
				{Link: "http://example.com/a", Title: "C"},
			},
			want: []model.FeedItem{
				{Link: "http://example.com/a", Title: "A"},
				{Link: "http://example.com/b", Title: "B"},
			},
		},
		{
			name: "normalized titles collide",
			items: []model.FeedItem{
				{Title: "  Title A  "},
				{Title: "Title B"},
				{Title: "TITLE A"},
			},
			want: []model.FeedItem{
				{Title: "  Title A  "},
				{Title: "Title B"},
			},
		},
		{
			name: "first occurrence wins",
			items: []model.FeedItem{
				{GUID: "g", Title: "Newer"},
				{GUID: "g", Title: "Older"},
			},
			want: []model.FeedItem{
				{GUID: "g", Title: "Newer"},
			},
		},
		{
			name: "persisted keys",
			items: []model.FeedItem{
				{GUID: "old", Title: "Already there"},
				{GUID: "new", Title: "Fresh"},
			},
			seen: NewSeen("old"),
			want: []model.FeedItem{
				{GUID: "new", Title: "Fresh"},
			},
		},
		{
			name:  "empty input",
			items: nil,
			want:  []model.FeedItem{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Filter(tt.items, tt.seen)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Filter() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFilterUpdatesSeen(t *testing.T) {
	seen := NewSeen()
	Filter([]model.FeedItem{{GUID: "A"}, {Link: "http://b"}}, seen)
	if !seen.Has("a") || !seen.Has("http://b") {
		t.Errorf("seen set not updated: %v", seen)
	}
}

var keyPool = []string{"", "a", "A", " a ", "b", "B  ", "c"}

func randomItems(r *rand.Rand) []model.FeedItem {
	n := r.Intn(20)
	items := make([]model.FeedItem, n)
	for i := range items {
		items[i] = model.FeedItem{
			GUID:  keyPool[r.Intn(len(keyPool))],
			Link:  keyPool[r.Intn(len(keyPool))],
			Title: keyPool[r.Intn(len(keyPool))],
		}
	}
	return items
}

func TestFilterProperties(t *testing.T) {
	prop := func(seed int64) bool {
		items := randomItems(rand.New(rand.NewSource(seed)))
		out := Filter(items, nil)
		if len(out) > len(items) {
			return false
		}

		keys := make(map[string]bool)
		for _, item := range out {
			k := Key(item)
			if keys[k] {
				return false
			}
			keys[k] = true
		}

		// out must be a subsequence of items.
		j := 0
		for i := 0; i < len(items) && j < len(out); i++ {
			if cmp.Equal(items[i], out[j]) {
				j++
			}
		}
		return j == len(out)
	}
	if err := quick.Check(prop, nil); err != nil {
		t.Error(err)
	}
}
