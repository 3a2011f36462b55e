package sanitize

import (
	"strings"

	"feedkeeper/internal/model"
)

// Options configures the field cleaners.
type Options struct {
	// HTML controls description markup. Titles and links are always stripped.
	HTML      model.HTMLMode
	Blacklist []string
}

// Title cleans a plain-text field. The result is not XML-escaped yet;
// the renderer escapes it exactly once.
func Title(text string, opts Options) string {
	return clean(StripHTMLTags(text), opts.Blacklist, true)
}

// Description cleans a CDATA-bound field according to opts.HTML.
func Description(text string, opts Options) string {
	switch opts.HTML {
	case model.HTMLEscape:
		text = EscapeHTMLTags(text)
	case model.HTMLPreserve:
	default:
		text = StripHTMLTags(text)
	}
	return clean(text, opts.Blacklist, opts.HTML != model.HTMLPreserve)
}

// Link cleans a URI field: tags and all whitespace are removed.
func Link(text string) string {
	text = RemoveControlCharacters(StripHTMLTags(ValidXML(text)))
	return strings.Join(strings.Fields(text), "")
}

// Category cleans a single category label.
func Category(text string, opts Options) string {
	return strings.TrimSpace(clean(StripHTMLTags(text), opts.Blacklist, true))
}

func clean(text string, blacklist []string, brackets bool) string {
	text = NormalizeLineEndings(ValidXML(text))
	text = NormalizeWhitespace(text)
	if len(blacklist) > 0 {
		text = NormalizeWhitespace(BlacklistStrip(text, blacklist))
	}
	if brackets {
		text = RemoveRepetitiveBrackets(text)
	}
	return RemoveControlCharacters(text)
}

// CDATA wraps text in a CDATA section, splitting any "]]>" it contains.
func CDATA(text string) string {
	return "<![CDATA[" + strings.ReplaceAll(text, "]]>", "]]]]><![CDATA[>") + "]]>"
}
