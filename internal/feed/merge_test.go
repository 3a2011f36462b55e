package feed

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"feedkeeper/internal/model"
)

const anchor = "<!--ANCHOR-->"

func TestFormat(t *testing.T) {
	in := `<?xml version="1.0" encoding="UTF-8"?><rss version="2.0"><channel><title>T</title>` +
		`<!--ANCHOR--><item><title>A</title><description><![CDATA[<b>x</b>  y]]></description>` +
		`<category/></item></channel></rss>`

	want := `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>T</title>
    <!--ANCHOR-->
    <item>
      <title>A</title>
      <description><![CDATA[<b>x</b>  y]]></description>
      <category/>
    </item>
  </channel>
</rss>
`
	got, err := Format(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Format() mismatch (-want +got):\n%s", diff)
	}

	again, err := Format(got)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff(got, again); diff != "" {
		t.Errorf("Format() is not idempotent (-first +second):\n%s", diff)
	}
}

func TestFormatIdempotentOnMessyInput(t *testing.T) {
	inputs := []string{
		"<rss>\n\n   <channel>   <title>  spaced  </title>\n<empty>\n   </empty></channel></rss>",
		`<a x="1 > 0"><b>text <i>mixed</i> tail</b><!-- c --></a>`,
		"<!DOCTYPE rss [<!ENTITY x \"y\">]><rss><channel/></rss>",
	}
	for _, in := range inputs {
		first, err := Format(in)
		if err != nil {
			t.Fatalf("Format(%q): %v", in, err)
		}
		second, err := Format(first)
		if err != nil {
			t.Fatalf("Format(formatted): %v", err)
		}
		if diff := cmp.Diff(first, second); diff != "" {
			t.Errorf("not idempotent for %q (-first +second):\n%s", in, diff)
		}
	}
}

func TestFormatKeepsMixedContent(t *testing.T) {
	in := "<rss><channel><title>a<!--c-->b</title>" +
		"<description>text <b>bold</b> tail</description>" +
		"<item><title>x</title></item></channel></rss>"

	want := `<rss>
  <channel>
    <title>a<!--c-->b</title>
    <description>text <b>bold</b> tail</description>
    <item>
      <title>x</title>
    </item>
  </channel>
</rss>
`
	got, err := Format(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Format() mismatch (-want +got):\n%s", diff)
	}

	again, err := Format(got)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff(got, again); diff != "" {
		t.Errorf("Format() is not idempotent (-first +second):\n%s", diff)
	}
}

func TestFormatRejectsBrokenMarkup(t *testing.T) {
	inputs := []string{
		"<rss><channel></rss>",
		"<rss><!-- open",
		"<rss><channel>",
		"<rss attr=\"x></rss>",
	}
	for _, in := range inputs {
		if _, err := Format(in); !errors.Is(err, ErrMalformedDocument) {
			t.Errorf("Format(%q): expected ErrMalformedDocument, got %v", in, err)
		}
	}
}

func TestMerge(t *testing.T) {
	doc := "<rss><channel><title>T</title><!--ANCHOR--><item><title>Old</title></item></channel></rss>"
	fragments := []string{"<item><title>New</title></item>"}

	tests := []struct {
		name string
		mode model.InsertMode
		want []string
	}{
		{name: "after anchor", mode: model.InsertAfter, want: []string{"<!--ANCHOR-->", "New", "Old"}},
		{name: "before anchor", mode: model.InsertBefore, want: []string{"New", "<!--ANCHOR-->", "Old"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Merge(doc, fragments, anchor, tt.mode)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			last := -1
			for _, w := range tt.want {
				idx := strings.Index(got, w)
				if idx <= last {
					t.Fatalf("expected %q after position %d in:\n%s", w, last, got)
				}
				last = idx
			}
		})
	}
}

func TestMergeMissingAnchor(t *testing.T) {
	docs := []string{"<rss><channel></channel></rss>", ""}
	anchors := []string{"<!--ANCHOR-->", "", "<!--OTHER-->"}
	for _, doc := range docs {
		for _, a := range anchors {
			_, err := Merge(doc, []string{"<item/>"}, a, model.InsertAfter)
			var serr *StructuralError
			if !errors.As(err, &serr) {
				t.Errorf("Merge(%q, %q): expected *StructuralError, got %v", doc, a, err)
			}
			if !errors.Is(err, ErrAnchorNotFound) {
				t.Errorf("Merge(%q, %q): expected ErrAnchorNotFound, got %v", doc, a, err)
			}
		}
	}
}

func TestMergeRejectsMalformedResult(t *testing.T) {
	doc := "<rss><channel><!--ANCHOR--></channel></rss>"
	_, err := Merge(doc, []string{"<item><title>broken</item>"}, anchor, model.InsertAfter)
	if !errors.Is(err, ErrMalformedDocument) {
		t.Fatalf("expected ErrMalformedDocument, got %v", err)
	}
}

func TestMergeEmptyIsFormattingNoop(t *testing.T) {
	doc := "<rss><channel><title>T</title><!--ANCHOR--></channel></rss>"
	got, err := Merge(doc, nil, anchor, model.InsertAfter)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	formatted, err := Format(doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff(formatted, got); diff != "" {
		t.Errorf("empty merge mismatch (-want +got):\n%s", diff)
	}
}

func TestScenarioSingleItem(t *testing.T) {
	doc := "<rss><channel><title>T</title><!--ANCHOR--></channel></rss>"
	item := model.FeedItem{
		Title:       "Hello",
		Link:        "http://x/1",
		Description: "Hi",
		PublishedAt: "Mon, 01 Jan 2024 00:00:00 GMT",
		GUID:        "g1",
	}

	got, err := Merge(doc, RenderAll([]model.FeedItem{item}), anchor, model.InsertAfter)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	parsed, err := Parse(got)
	if err != nil {
		t.Fatalf("merged document does not parse: %v", err)
	}
	if diff := cmp.Diff(1, len(parsed.Items)); diff != "" {
		t.Fatalf("item count mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff("Hello", parsed.Items[0].Title); diff != "" {
		t.Errorf("title mismatch (-want +got):\n%s", diff)
	}
	if !strings.Contains(got, "<![CDATA[Hi]]>") {
		t.Errorf("expected CDATA description in:\n%s", got)
	}
}

func TestRegion(t *testing.T) {
	doc := "<rss><channel><title>T</title><!--ANCHOR--><item/><item/></channel></rss>"
	head, items, tail, err := Region(doc, anchor)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := []string{head, items, tail}
	want := []string{"<rss><channel><title>T</title>", "<item/><item/>", "</channel></rss>"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Region() mismatch (-want +got):\n%s", diff)
	}

	if _, _, _, err := Region("<rss><channel></channel></rss>", anchor); !errors.Is(err, ErrAnchorNotFound) {
		t.Errorf("expected ErrAnchorNotFound, got %v", err)
	}
}

func TestParseItems(t *testing.T) {
	region := `<item><title>A &amp; B</title><description><![CDATA[desc]]></description>` +
		`<pubDate>Mon, 01 Jan 2024 00:00:00 GMT</pubDate><link>http://x/1</link><guid>g1</guid>` +
		`<source>nvd</source><category><![CDATA[HIGH]]></category><category>linux</category></item>`

	got, err := ParseItems(region)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []model.FeedItem{{
		Title:       "A & B",
		Link:        "http://x/1",
		Description: "desc",
		PublishedAt: "Mon, 01 Jan 2024 00:00:00 GMT",
		GUID:        "g1",
		Source:      "nvd",
		Categories:  []string{"HIGH", "linux"},
	}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ParseItems() mismatch (-want +got):\n%s", diff)
	}
}

func TestExistingKeys(t *testing.T) {
	doc := `<rss version="2.0"><channel><title>T</title>` +
		`<item><title>One</title><guid>G-1</guid></item>` +
		`<item><title>Two</title><link>http://x/2</link></item>` +
		`</channel></rss>`
	seen, err := ExistingKeys(doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, k := range []string{"g-1", "http://x/2"} {
		if !seen.Has(k) {
			t.Errorf("expected key %q in %v", k, seen)
		}
	}
}

func TestSetLastBuildDate(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		doc     string
		want    string
		wantErr bool
	}{
		{
			name: "replace",
			doc:  "<rss><channel><lastBuildDate>old</lastBuildDate></channel></rss>",
			want: "<rss><channel><lastBuildDate>Mon, 01 Jan 2024 12:00:00 GMT</lastBuildDate></channel></rss>",
		},
		{
			name: "insert",
			doc:  `<rss><channel version="x"><title>T</title></channel></rss>`,
			want: `<rss><channel version="x"><lastBuildDate>Mon, 01 Jan 2024 12:00:00 GMT</lastBuildDate><title>T</title></channel></rss>`,
		},
		{
			name:    "no channel",
			doc:     "<feed></feed>",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SetLastBuildDate(tt.doc, now)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("SetLastBuildDate() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
