package feed

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

const indentUnit = "  "

type nodeKind int

const (
	textNode nodeKind = iota
	cdataNode
	markupNode // comments, processing instructions, directives
	elementNode
)

type node struct {
	kind        nodeKind
	raw         string // verbatim source; the start tag for elements
	name        string
	end         string
	selfClosing bool
	children    []*node
}

// Format pretty-prints an XML document with two-space indentation.
//
// Elements holding text or CDATA, alone or mixed with markup, stay on one
// line with their content untouched. Whitespace between elements is
// discarded, so formatting an already formatted document is a no-op.
func Format(doc string) (string, error) {
	nodes, err := parseNodes(doc)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	var b strings.Builder
	for _, n := range nodes {
		writeNode(&b, n, 0)
	}
	return b.String(), nil
}

// CheckWellFormed reports whether doc is a well-formed XML document with a single root element.
func CheckWellFormed(doc string) error {
	d := xml.NewDecoder(strings.NewReader(doc))
	d.Strict = true
	depth, roots := 0, 0
	for {
		tok, err := d.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("%w: %v", ErrMalformedDocument, err)
		}
		switch tok.(type) {
		case xml.StartElement:
			if depth == 0 {
				roots++
			}
			depth++
		case xml.EndElement:
			depth--
		}
	}
	if roots != 1 {
		return fmt.Errorf("%w: expected one root element, found %d", ErrMalformedDocument, roots)
	}
	return nil
}

func parseNodes(doc string) ([]*node, error) {
	root := &node{kind: elementNode}
	stack := []*node{root}

	for i := 0; i < len(doc); {
		top := stack[len(stack)-1]
		rest := doc[i:]

		if rest[0] != '<' {
			j := strings.IndexByte(rest, '<')
			if j < 0 {
				j = len(rest)
			}
			top.children = append(top.children, &node{kind: textNode, raw: rest[:j]})
			i += j
			continue
		}

		var n *node
		switch {
		case strings.HasPrefix(rest, "<!--"):
			end := strings.Index(rest[4:], "-->")
			if end < 0 {
				return nil, fmt.Errorf("unterminated comment at offset %d", i)
			}
			n = &node{kind: markupNode, raw: rest[:4+end+3]}
		case strings.HasPrefix(rest, "<![CDATA["):
			end := strings.Index(rest, "]]>")
			if end < 0 {
				return nil, fmt.Errorf("unterminated CDATA section at offset %d", i)
			}
			n = &node{kind: cdataNode, raw: rest[:end+3]}
		case strings.HasPrefix(rest, "<?"):
			end := strings.Index(rest, "?>")
			if end < 0 {
				return nil, fmt.Errorf("unterminated processing instruction at offset %d", i)
			}
			n = &node{kind: markupNode, raw: rest[:end+2]}
		case strings.HasPrefix(rest, "<!"):
			end := directiveEnd(rest)
			if end < 0 {
				return nil, fmt.Errorf("unterminated directive at offset %d", i)
			}
			n = &node{kind: markupNode, raw: rest[:end+1]}
		case strings.HasPrefix(rest, "</"):
			end := strings.IndexByte(rest, '>')
			if end < 0 {
				return nil, fmt.Errorf("unterminated end tag at offset %d", i)
			}
			name := strings.TrimSpace(rest[2:end])
			if len(stack) == 1 || top.name != name {
				return nil, fmt.Errorf("unexpected end tag </%s> at offset %d", name, i)
			}
			top.end = rest[:end+1]
			stack = stack[:len(stack)-1]
			i += end + 1
			continue
		default:
			end := tagEnd(rest)
			if end < 0 {
				return nil, fmt.Errorf("unterminated start tag at offset %d", i)
			}
			raw := rest[:end+1]
			name := tagName(raw)
			if name == "" {
				return nil, fmt.Errorf("invalid start tag at offset %d", i)
			}
			n = &node{kind: elementNode, raw: raw, name: name, selfClosing: strings.HasSuffix(raw, "/>")}
		}

		top.children = append(top.children, n)
		if n.kind == elementNode && !n.selfClosing {
			stack = append(stack, n)
		}
		i += len(n.raw)
	}

	if len(stack) > 1 {
		return nil, fmt.Errorf("unclosed element <%s>", stack[len(stack)-1].name)
	}
	return root.children, nil
}

// tagEnd returns the index of the '>' closing a start tag, skipping quoted attribute values.
func tagEnd(s string) int {
	var quote byte
	for k := 1; k < len(s); k++ {
		c := s[k]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '>':
			return k
		}
	}
	return -1
}

// directiveEnd handles <!DOCTYPE ...> including an internal subset in brackets.
func directiveEnd(s string) int {
	depth := 0
	for k := 2; k < len(s); k++ {
		switch s[k] {
		case '[':
			depth++
		case ']':
			depth--
		case '>':
			if depth <= 0 {
				return k
			}
		}
	}
	return -1
}

func tagName(raw string) string {
	s := strings.TrimPrefix(raw, "<")
	end := strings.IndexFunc(s, func(r rune) bool {
		return r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '/' || r == '>'
	})
	if end < 0 {
		return s
	}
	return s[:end]
}

func writeNode(b *strings.Builder, n *node, depth int) {
	indent := strings.Repeat(indentUnit, depth)
	switch n.kind {
	case textNode:
		if t := strings.TrimSpace(n.raw); t != "" {
			writeLine(b, indent, t)
		}
	case elementNode:
		switch {
		case n.selfClosing:
			writeLine(b, indent, n.raw)
		case isInline(n):
			writeLine(b, indent, n.raw+inlineContent(n)+n.end)
		default:
			writeLine(b, indent, n.raw)
			for _, c := range n.children {
				writeNode(b, c, depth+1)
			}
			writeLine(b, indent, n.end)
		}
	default:
		writeLine(b, indent, n.raw)
	}
}

func writeLine(b *strings.Builder, indent, s string) {
	b.WriteString(indent)
	b.WriteString(s)
	b.WriteByte('\n')
}

// isInline reports whether n is written on one line: elements holding only
// text, and elements mixing text with markup, whose text must not change.
func isInline(n *node) bool {
	leaf := true
	for _, c := range n.children {
		switch c.kind {
		case cdataNode:
			return true
		case textNode:
			if strings.TrimSpace(c.raw) != "" {
				return true
			}
		default:
			leaf = false
		}
	}
	return leaf
}

func inlineContent(n *node) string {
	var b strings.Builder
	blank := true
	for _, c := range n.children {
		writeVerbatim(&b, c)
		if c.kind != textNode || strings.TrimSpace(c.raw) != "" {
			blank = false
		}
	}
	if blank {
		return ""
	}
	return b.String()
}

func writeVerbatim(b *strings.Builder, n *node) {
	b.WriteString(n.raw)
	if n.kind != elementNode || n.selfClosing {
		return
	}
	for _, c := range n.children {
		writeVerbatim(b, c)
	}
	b.WriteString(n.end)
}
