package feed

import (
	"strings"

	"feedkeeper/internal/dedupe"
	"feedkeeper/internal/model"
	"feedkeeper/internal/sanitize"
)

// Render produces the <item> fragment for a cleaned, validated item.
//
// Text fields are XML-escaped here and nowhere else; the description and
// categories are CDATA-wrapped instead. The publish date is written as is.
func Render(item model.FeedItem) string {
	var b strings.Builder
	b.WriteString("<item>")
	writeElement(&b, "title", sanitize.EscapeXMLCharacters(item.Title))
	writeElement(&b, "description", sanitize.CDATA(item.Description))
	writeElement(&b, "pubDate", sanitize.EscapeXMLCharacters(item.PublishedAt))
	writeElement(&b, "link", sanitize.EscapeXMLCharacters(item.Link))
	writeElement(&b, "guid", sanitize.EscapeXMLCharacters(dedupe.Anchor(item.GUID, item.Link, item.Title)))
	if item.Source != "" {
		writeElement(&b, "source", sanitize.EscapeXMLCharacters(item.Source))
	}
	for _, c := range item.Categories {
		writeElement(&b, "category", sanitize.CDATA(c))
	}
	b.WriteString("</item>")
	return b.String()
}

// RenderAll renders items in order.
func RenderAll(items []model.FeedItem) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, Render(item))
	}
	return out
}

func writeElement(b *strings.Builder, name, content string) {
	b.WriteString("<")
	b.WriteString(name)
	b.WriteString(">")
	b.WriteString(content)
	b.WriteString("</")
	b.WriteString(name)
	b.WriteString(">")
}
