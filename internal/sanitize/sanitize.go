// Package sanitize makes arbitrary text safe to embed in XML text and CDATA nodes.
//
// Every function is total: any input string yields an output string, and
// none of them panic on malformed UTF-8.
package sanitize

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var tagPattern = regexp.MustCompile(`<[^>]*>`)

var xmlReplacer = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&apos;",
)

var htmlTagReplacer = strings.NewReplacer(
	"<", "&lt;",
	">", "&gt;",
)

// StripHTMLTags removes every <...> pattern, repeating until none is left
// so that tags reassembled by a previous pass are removed too.
func StripHTMLTags(text string) string {
	for {
		next := tagPattern.ReplaceAllString(text, "")
		if next == text {
			return next
		}
		text = next
	}
}

// EscapeXMLCharacters maps & < > " ' to their named entities.
// Apply it once, after every other transform.
func EscapeXMLCharacters(text string) string {
	return xmlReplacer.Replace(text)
}

// EscapeHTMLTags converts only < and > to entities so tags remain visible as text.
func EscapeHTMLTags(text string) string {
	return htmlTagReplacer.Replace(text)
}

// NormalizeLineEndings rewrites \r\n as \n until no \r\n pair remains.
func NormalizeLineEndings(text string) string {
	for strings.Contains(text, "\r\n") {
		text = strings.ReplaceAll(text, "\r\n", "\n")
	}
	return text
}

// NormalizeWhitespace collapses every run of whitespace into a single space.
// A single leading or trailing space survives.
func NormalizeWhitespace(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	inSpace := false
	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		if r != utf8.RuneError || size > 1 {
			if unicode.IsSpace(r) {
				if !inSpace {
					b.WriteByte(' ')
				}
				inSpace = true
				i += size
				continue
			}
		}
		inSpace = false
		b.WriteString(text[i : i+size])
		i += size
	}
	return b.String()
}

// RemoveControlCharacters deletes C0 controls other than tab, newline and
// carriage return, and C1 controls (U+007F to U+009F).
func RemoveControlCharacters(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		if r == utf8.RuneError && size == 1 {
			// A stray byte in the C1 range is dropped like its code point would be.
			if c := text[i]; c < 0x80 || c > 0x9F {
				b.WriteByte(c)
			}
			i++
			continue
		}
		if !isControl(r) {
			b.WriteString(text[i : i+size])
		}
		i += size
	}
	return b.String()
}

// ValidXML replaces invalid UTF-8 with U+FFFD and removes code points that
// XML 1.0 does not allow in character data.
func ValidXML(text string) string {
	text = strings.ToValidUTF8(text, string(utf8.RuneError))
	if strings.IndexFunc(text, func(r rune) bool { return !isXMLChar(r) }) < 0 {
		return text
	}
	return strings.Map(func(r rune) rune {
		if isXMLChar(r) {
			return r
		}
		return -1
	}, text)
}

func isXMLChar(r rune) bool {
	switch {
	case r == '\t', r == '\n', r == '\r':
		return true
	case r >= 0x20 && r <= 0xD7FF:
		return true
	case r >= 0xE000 && r <= 0xFFFD:
		return true
	case r >= 0x10000 && r <= 0x10FFFF:
		return true
	}
	return false
}

func isControl(r rune) bool {
	switch {
	case r == '\t', r == '\n', r == '\r':
		return false
	case r < 0x20:
		return true
	case r >= 0x7F && r <= 0x9F:
		return true
	}
	return false
}

func isBracket(r rune) bool {
	switch r {
	case '(', ')', '[', ']', '{', '}', '<', '>':
		return true
	}
	return false
}

// RemoveRepetitiveBrackets collapses runs of two or more identical bracket
// characters into one. Text left with nothing but brackets becomes empty.
func RemoveRepetitiveBrackets(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for i := 0; i < len(text); i++ {
		c := text[i]
		if i > 0 && c == text[i-1] && isBracket(rune(c)) {
			continue
		}
		b.WriteByte(c)
	}
	out := b.String()

	trimmed := strings.TrimSpace(out)
	if trimmed != "" && strings.IndexFunc(trimmed, func(r rune) bool { return !isBracket(r) }) == -1 {
		return ""
	}
	return out
}

// BlacklistStrip removes every literal occurrence of each phrase, one phrase
// at a time, and repeats the whole pass until no phrase remains.
func BlacklistStrip(text string, blacklist []string) string {
	for {
		before := text
		for _, phrase := range blacklist {
			if phrase == "" {
				continue
			}
			for strings.Contains(text, phrase) {
				text = strings.ReplaceAll(text, phrase, "")
			}
		}
		if text == before {
			return text
		}
	}
}
