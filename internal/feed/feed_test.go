package feed

import (
	"errors"
	"math/rand"
	"testing"
	"testing/quick"
	"time"

	"github.com/google/go-cmp/cmp"

	"feedkeeper/internal/model"
)

func TestValidate(t *testing.T) {
	complete := model.FeedItem{Title: "T", Link: "http://x/1", PublishedAt: "2024-01-01T00:00:00Z"}

	tests := []struct {
		name      string
		mutate    func(*model.FeedItem)
		wantField string
	}{
		{name: "complete", mutate: func(*model.FeedItem) {}},
		{name: "missing title", mutate: func(i *model.FeedItem) { i.Title = "" }, wantField: "title"},
		{name: "blank title", mutate: func(i *model.FeedItem) { i.Title = "   " }, wantField: "title"},
		{name: "missing link", mutate: func(i *model.FeedItem) { i.Link = "" }, wantField: "link"},
		{name: "missing date", mutate: func(i *model.FeedItem) { i.PublishedAt = "" }, wantField: "publishedAt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := complete
			tt.mutate(&item)
			err := Validate(item)
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected *ValidationError, got %v", err)
			}
			if diff := cmp.Diff(tt.wantField, verr.Field); diff != "" {
				t.Errorf("field mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestNormalizeDate(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "2024-01-01T00:00:00Z", want: "Mon, 01 Jan 2024 00:00:00 GMT"},
		{in: "2021-09-08T00:00:00.000+01:00", want: "Tue, 07 Sep 2021 23:00:00 GMT"},
		{in: "Wed, 02 Oct 2002 13:00:00 GMT", want: "Wed, 02 Oct 2002 13:00:00 GMT"},
		{in: "Thu, 19 Feb 2026 08:00:00 +0800", want: "Thu, 19 Feb 2026 00:00:00 GMT"},
		{in: "2024-03-05", want: "Tue, 05 Mar 2024 00:00:00 GMT"},
		{in: "not a date", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := NormalizeDate(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %q", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("NormalizeDate() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSortByDateDesc(t *testing.T) {
	items := []model.FeedItem{
		{Title: "old", PublishedAt: "Mon, 01 Jan 2024 00:00:00 GMT"},
		{Title: "broken", PublishedAt: "someday"},
		{Title: "new", PublishedAt: "2024-06-01T00:00:00Z"},
		{Title: "old twin", PublishedAt: "2024-01-01T00:00:00Z"},
	}
	before := append([]model.FeedItem(nil), items...)

	got := SortByDateDesc(items)

	var titles []string
	for _, it := range got {
		titles = append(titles, it.Title)
	}
	want := []string{"new", "old", "old twin", "broken"}
	if diff := cmp.Diff(want, titles); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(before, items); diff != "" {
		t.Errorf("input was modified (-want +got):\n%s", diff)
	}
}

func TestSortProperty(t *testing.T) {
	base := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	prop := func(seed int64) bool {
		r := rand.New(rand.NewSource(seed))
		items := make([]model.FeedItem, r.Intn(30))
		for i := range items {
			if r.Intn(5) == 0 {
				items[i].PublishedAt = "garbage"
				continue
			}
			items[i].PublishedAt = base.Add(time.Duration(r.Intn(10000)) * time.Hour).Format(time.RFC3339)
		}
		sorted := SortByDateDesc(items)
		for i := 1; i < len(sorted); i++ {
			if PublishedTime(sorted[i-1].PublishedAt).Before(PublishedTime(sorted[i].PublishedAt)) {
				return false
			}
		}
		return len(sorted) == len(items)
	}
	if err := quick.Check(prop, nil); err != nil {
		t.Error(err)
	}
}

func TestLimit(t *testing.T) {
	items := []model.FeedItem{{Title: "a"}, {Title: "b"}, {Title: "c"}}

	tests := []struct {
		n    int
		want int
	}{
		{n: 0, want: 3},
		{n: -1, want: 3},
		{n: 2, want: 2},
		{n: 3, want: 3},
		{n: 10, want: 3},
	}
	for _, tt := range tests {
		if diff := cmp.Diff(tt.want, len(Limit(items, tt.n))); diff != "" {
			t.Errorf("Limit(%d) mismatch (-want +got):\n%s", tt.n, diff)
		}
	}

	prop := func(size uint8, n int8) bool {
		in := make([]model.FeedItem, size)
		out := Limit(in, int(n))
		if n > 0 {
			return len(out) <= min(int(n), len(in))
		}
		return len(out) == len(in)
	}
	if err := quick.Check(prop, nil); err != nil {
		t.Error(err)
	}
}

func TestRender(t *testing.T) {
	tests := []struct {
		name string
		item model.FeedItem
		want string
	}{
		{
			name: "full item",
			item: model.FeedItem{
				Title:       "Tom & Jerry",
				Description: "Hi",
				PublishedAt: "Mon, 01 Jan 2024 00:00:00 GMT",
				Link:        "http://x/1?a=1&b=2",
				GUID:        "g1",
				Source:      "nvd",
				Categories:  []string{"HIGH", "linux"},
			},
			want: "<item><title>Tom &amp; Jerry</title><description><![CDATA[Hi]]></description>" +
				"<pubDate>Mon, 01 Jan 2024 00:00:00 GMT</pubDate><link>http://x/1?a=1&amp;b=2</link>" +
				"<guid>g1</guid><source>nvd</source>" +
				"<category><![CDATA[HIGH]]></category><category><![CDATA[linux]]></category></item>",
		},
		{
			name: "guid falls back to link",
			item: model.FeedItem{Title: "T", PublishedAt: "D", Link: "http://x/2"},
			want: "<item><title>T</title><description><![CDATA[]]></description><pubDate>D</pubDate>" +
				"<link>http://x/2</link><guid>http://x/2</guid></item>",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, Render(tt.item)); diff != "" {
				t.Errorf("Render() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
