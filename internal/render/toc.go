// Package render formats docmodel structures for CLI/script consumption:
// a Markdown-style table of contents (`blz toc`) and a flat heading map
// (`blz map`).
//
// The rendering is an indent-by-level, bullet-list-with-anchor-link
// layout, walked from the shallowest heading down.
package render

import (
	"fmt"
	"strings"

	"github.com/outfitter-dev/blz/internal/docmodel"
)

// TOC renders toc as a nested Markdown bullet list, indenting two spaces
// per level beyond the shallowest, with each entry linking to its anchor.
func TOC(toc []*docmodel.Heading) string {
	var b strings.Builder
	var walk func(nodes []*docmodel.Heading, depth int)
	walk = func(nodes []*docmodel.Heading, depth int) {
		for _, h := range nodes {
			b.WriteString(strings.Repeat("  ", depth))
			b.WriteString("- [")
			b.WriteString(h.Text)
			b.WriteString("](#")
			b.WriteString(h.Anchor)
			b.WriteString(")\n")
			walk(h.Children, depth+1)
		}
	}
	walk(toc, 0)
	return b.String()
}

// MapEntry is one flattened row of Map's output.
type MapEntry struct {
	Level     int    `json:"level"`
	Text      string `json:"text"`
	Anchor    string `json:"anchor"`
	LineStart int    `json:"lineStart"`
	LineEnd   int    `json:"lineEnd"`
}

// Map flattens toc into a depth-first ordered list, the shape a script
// consumes more easily than the nested tree.
func Map(toc []*docmodel.Heading) []MapEntry {
	var out []MapEntry
	var walk func(nodes []*docmodel.Heading)
	walk = func(nodes []*docmodel.Heading) {
		for _, h := range nodes {
			out = append(out, MapEntry{
				Level:     h.Level,
				Text:      h.Text,
				Anchor:    h.Anchor,
				LineStart: h.LineStart,
				LineEnd:   h.LineEnd,
			})
			walk(h.Children)
		}
	}
	walk(toc)
	return out
}

// PlainText renders toc the way a terminal ToC reads: indented text lines
// without Markdown link syntax, annotated with each heading's line span.
func PlainText(toc []*docmodel.Heading) string {
	var b strings.Builder
	var walk func(nodes []*docmodel.Heading, depth int)
	walk = func(nodes []*docmodel.Heading, depth int) {
		for _, h := range nodes {
			b.WriteString(strings.Repeat("  ", depth))
			fmt.Fprintf(&b, "%s (%d-%d)\n", h.Text, h.LineStart, h.LineEnd)
			walk(h.Children, depth+1)
		}
	}
	walk(toc, 0)
	return b.String()
}
