package feed

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"feedkeeper/internal/model"
)

// Merge splices rendered item fragments into doc at the first occurrence of
// anchor and returns the formatted result. mode selects whether the
// fragments follow the anchor or precede it.
//
// The merged text must be well-formed XML; otherwise a *StructuralError is
// returned and nothing should be written.
func Merge(doc string, fragments []string, anchor string, mode model.InsertMode) (string, error) {
	idx := -1
	if anchor != "" {
		idx = strings.Index(doc, anchor)
	}
	if idx < 0 {
		return "", &StructuralError{Op: "merge", Err: fmt.Errorf("%w: %q", ErrAnchorNotFound, anchor)}
	}
	head, tail := doc[:idx], doc[idx+len(anchor):]
	items := strings.Join(fragments, "")

	var merged string
	switch mode {
	case model.InsertBefore:
		merged = head + items + anchor + tail
	default:
		merged = head + anchor + items + tail
	}
	return finish(merged)
}

// Assemble builds a document from a head that ends before the anchor, the
// rendered fragments and a closing tail. Used when the items region is
// regenerated as a whole.
func Assemble(head, anchor string, fragments []string, tail string, mode model.InsertMode) (string, error) {
	var merged string
	switch mode {
	case model.InsertBefore:
		merged = head + strings.Join(fragments, "") + anchor + tail
	default:
		merged = head + anchor + strings.Join(fragments, "") + tail
	}
	return finish(merged)
}

func finish(merged string) (string, error) {
	if err := CheckWellFormed(merged); err != nil {
		return "", &StructuralError{Op: "merge", Err: err}
	}
	out, err := Format(merged)
	if err != nil {
		return "", &StructuralError{Op: "format", Err: err}
	}
	return out, nil
}

// Region splits doc into the text before the anchor, the items region
// following the anchor, and the tail starting at the last </channel>.
func Region(doc, anchor string) (head, items, tail string, err error) {
	idx := -1
	if anchor != "" {
		idx = strings.Index(doc, anchor)
	}
	if idx < 0 {
		return "", "", "", &StructuralError{Op: "split", Err: fmt.Errorf("%w: %q", ErrAnchorNotFound, anchor)}
	}
	after := idx + len(anchor)
	closing := strings.LastIndex(doc, "</channel>")
	if closing < after {
		return "", "", "", &StructuralError{Op: "split", Err: fmt.Errorf("%w: no </channel> after anchor", ErrMalformedDocument)}
	}
	return doc[:idx], doc[after:closing], doc[closing:], nil
}

var (
	lastBuildDatePattern = regexp.MustCompile(`(?s)<lastBuildDate>.*?</lastBuildDate>`)
	channelOpenPattern   = regexp.MustCompile(`<channel(\s[^>]*)?>`)
)

// SetLastBuildDate replaces the channel's lastBuildDate with t, inserting the
// element right after <channel> when the document has none.
func SetLastBuildDate(doc string, t time.Time) (string, error) {
	elem := "<lastBuildDate>" + FormatDate(t) + "</lastBuildDate>"
	if loc := lastBuildDatePattern.FindStringIndex(doc); loc != nil {
		return doc[:loc[0]] + elem + doc[loc[1]:], nil
	}
	loc := channelOpenPattern.FindStringIndex(doc)
	if loc == nil {
		return "", &StructuralError{Op: "touch", Err: fmt.Errorf("%w: no <channel> element", ErrMalformedDocument)}
	}
	return doc[:loc[1]] + elem + doc[loc[1]:], nil
}
