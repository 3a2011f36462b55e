package feed

import (
	"fmt"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// RFC822 is the layout of every pubDate written to the document.
const RFC822 = "Mon, 02 Jan 2006 15:04:05 GMT"

// Epoch is the sort position of items whose date cannot be parsed.
var Epoch = time.Unix(0, 0).UTC()

// ParseDate parses ISO-8601 and RFC-822-like timestamps. Zone-less inputs are read as UTC.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	t, err := dateparse.ParseIn(s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return t, nil
}

// FormatDate renders t as an RFC-822 GMT timestamp.
func FormatDate(t time.Time) string {
	return t.UTC().Format(RFC822)
}

// NormalizeDate rewrites s in RFC-822 GMT form.
func NormalizeDate(s string) (string, error) {
	t, err := ParseDate(s)
	if err != nil {
		return "", err
	}
	return FormatDate(t), nil
}

// PublishedTime returns the parsed publish date, or Epoch when it cannot be parsed.
func PublishedTime(s string) time.Time {
	t, err := ParseDate(s)
	if err != nil {
		return Epoch
	}
	return t
}
