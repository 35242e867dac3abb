// Package parse turns a Markdown byte buffer into a docmodel.ParsedDocument:
// a heading tree, a flat block list with exact line bounds, and a line map.
//
// The traversal-then-normalize shape -- walk a tree, accumulate into a
// builder, then run a whitespace/structure normalization pass -- drives a
// goldmark Markdown AST walk over headings.
package parse

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	gast "github.com/yuin/goldmark/ast"
	gtext "github.com/yuin/goldmark/text"

	"github.com/outfitter-dev/blz/internal/docmodel"
)

// placeholderPatterns is a conservative, literal-text list used to flag
// llms.txt mirrors that actually served a host's generic "not found" page.
// Misclassification only ever produces a diagnostic, never an error --
// detection here is intentionally conservative.
var placeholderPatterns = []string{
	"404 not found",
	"page not found",
	"this page could not be found",
	"the page you requested was not found",
}

// Parse converts raw Markdown bytes into a ParsedDocument for the given
// alias. It never returns an error: malformed input degrades to
// diagnostics instead.
func Parse(alias string, raw []byte) *docmodel.ParsedDocument {
	normalized, offsets := normalizeLines(raw)
	totalLines := len(offsets) - 2 // offsets[0] and the trailing sentinel are not lines

	doc := &docmodel.ParsedDocument{Alias: alias}

	if len(normalized) == 0 {
		doc.Toc = nil
		doc.Blocks = []*docmodel.Block{{ID: 0, HeadingPath: nil, Level: 0, LineStart: 0, LineEnd: 0, Text: ""}}
		doc.LineMap = &docmodel.LineMap{TotalLines: 0, BlockOf: []int{0}}
		return doc
	}

	if looksLikePlaceholder(normalized) {
		doc.Diagnostics = append(doc.Diagnostics, docmodel.Diag{
			Kind:    docmodel.DiagPlaceholder404,
			Message: "document body matches a known not-found placeholder pattern",
		})
		doc.LineMap = &docmodel.LineMap{TotalLines: totalLines, BlockOf: make([]int, totalLines+1)}
		return doc
	}

	gmd := goldmark.New()
	root := gmd.Parser().Parse(gtext.NewReader(normalized))

	type headingRec struct {
		origLevel int
		lineStart int
		text      string
		node      *gast.Heading
	}
	var recs []headingRec

	err := gast.Walk(root, func(n gast.Node, entering bool) (gast.WalkStatus, error) {
		if !entering {
			return gast.WalkContinue, nil
		}
		if h, ok := n.(*gast.Heading); ok {
			line := lineForNode(h, normalized, offsets)
			recs = append(recs, headingRec{
				origLevel: h.Level,
				lineStart: line,
				text:      strings.TrimSpace(headingText(h, normalized)),
				node:      h,
			})
		}
		return gast.WalkContinue, nil
	})
	if err != nil {
		doc.Diagnostics = append(doc.Diagnostics, docmodel.Diag{Kind: "WalkError", Message: err.Error()})
	}

	lineMap := &docmodel.LineMap{TotalLines: totalLines, BlockOf: make([]int, totalLines+1)}

	if len(recs) == 0 {
		block := &docmodel.Block{ID: 0, HeadingPath: nil, Level: 0, LineStart: 1, LineEnd: totalLines, Text: sliceLines(normalized, offsets, 1, totalLines)}
		doc.Blocks = []*docmodel.Block{block}
		for i := 1; i <= totalLines; i++ {
			lineMap.BlockOf[i] = 0
		}
		doc.LineMap = lineMap
		return doc
	}

	minLevel := recs[0].origLevel
	for _, r := range recs {
		if r.origLevel < minLevel {
			minLevel = r.origLevel
		}
	}
	shift := minLevel - 1

	slg := newSlugger()
	normLevels := make([]int, len(recs))
	anchors := make([]string, len(recs))
	for i, r := range recs {
		normLevels[i] = r.origLevel - shift
		anchors[i] = slg.slugFor(r.text)
	}

	// Section spans for the heading tree: a heading's span runs from its own
	// line to just before the next heading at a level <= its own (or EOF).
	sectionEnd := make([]int, len(recs))
	for i := range recs {
		end := totalLines
		for j := i + 1; j < len(recs); j++ {
			if normLevels[j] <= normLevels[i] {
				end = recs[j].lineStart - 1
				break
			}
		}
		sectionEnd[i] = end
	}

	// Leaf block spans: every heading, regardless of level, starts a new
	// block that runs until the very next heading (of any level) or EOF.
	// A heading immediately followed by a deeper child heading therefore
	// owns a one-line block (just its own heading line) while the child
	// owns the rest of the section -- e.g. `# A` / `## A.1` / `# B`: A.1's
	// block is "2-500", A's is just line 1.
	blockEnd := make([]int, len(recs))
	for i := range recs {
		if i+1 < len(recs) {
			blockEnd[i] = recs[i+1].lineStart - 1
		} else {
			blockEnd[i] = totalLines
		}
	}

	doc.Blocks = make([]*docmodel.Block, 0, len(recs)+1)

	if recs[0].lineStart > 1 {
		preamble := &docmodel.Block{
			ID:        0,
			LineStart: 1,
			LineEnd:   recs[0].lineStart - 1,
			Text:      sliceLines(normalized, offsets, 1, recs[0].lineStart-1),
		}
		doc.Blocks = append(doc.Blocks, preamble)
		for l := 1; l <= preamble.LineEnd; l++ {
			lineMap.BlockOf[l] = preamble.ID
		}
	}

	// Build the nested heading tree and, in the same pass, the per-heading
	// ancestor-text stack used for each block's heading_path.
	type stackEntry struct {
		level   int
		heading *docmodel.Heading
		text    string
	}
	var stack []stackEntry
	var toc []*docmodel.Heading

	for i, r := range recs {
		level := normLevels[i]
		for len(stack) > 0 && stack[len(stack)-1].level >= level {
			stack = stack[:len(stack)-1]
		}

		h := &docmodel.Heading{
			Level:     level,
			Text:      r.text,
			Anchor:    anchors[i],
			LineStart: r.lineStart,
			LineEnd:   sectionEnd[i],
		}
		if len(stack) == 0 {
			toc = append(toc, h)
		} else {
			parent := stack[len(stack)-1].heading
			parent.Children = append(parent.Children, h)
		}

		headingPath := make([]string, 0, len(stack)+1)
		for _, se := range stack {
			headingPath = append(headingPath, se.text)
		}
		headingPath = append(headingPath, r.text)

		blockID := len(doc.Blocks)
		block := &docmodel.Block{
			ID:          blockID,
			HeadingPath: headingPath,
			Level:       level,
			Anchor:      anchors[i],
			LineStart:   r.lineStart,
			LineEnd:     blockEnd[i],
			Text:        sliceLines(normalized, offsets, r.lineStart, blockEnd[i]),
		}
		doc.Blocks = append(doc.Blocks, block)
		for l := block.LineStart; l <= block.LineEnd; l++ {
			lineMap.BlockOf[l] = blockID
		}

		stack = append(stack, stackEntry{level: level, heading: h, text: r.text})
	}

	doc.Toc = toc
	doc.LineMap = lineMap
	return doc
}

func looksLikePlaceholder(normalized []byte) bool {
	trimmed := strings.ToLower(strings.TrimSpace(string(normalized)))
	if len(trimmed) == 0 || len(trimmed) > 2000 {
		return false
	}
	for _, p := range placeholderPatterns {
		if strings.Contains(trimmed, p) {
			return true
		}
	}
	return false
}

// normalizeLines converts CRLF and lone CR to LF for line counting, and
// returns the byte-offset of the start of each line (1-based; offsets[0] is
// an unused sentinel, offsets[n] is the start of line n for n in
// 1..totalLines, and offsets[totalLines+1] is a trailing sentinel equal to
// len(normalized)+1 used to bound the last line's content).
func normalizeLines(raw []byte) ([]byte, []int) {
	normalized := make([]byte, 0, len(raw))
	for i := 0; i < len(raw); i++ {
		switch raw[i] {
		case '\r':
			normalized = append(normalized, '\n')
			if i+1 < len(raw) && raw[i+1] == '\n' {
				i++
			}
		default:
			normalized = append(normalized, raw[i])
		}
	}

	totalLines := 0
	var lineStarts []int
	if len(normalized) > 0 {
		lineStarts = append(lineStarts, 0)
	}
	for i, b := range normalized {
		if b == '\n' {
			totalLines++
			if i+1 < len(normalized) {
				lineStarts = append(lineStarts, i+1)
			} else {
				lineStarts = append(lineStarts, i+1) // phantom trailing start, trimmed below
			}
		}
	}
	if len(normalized) > 0 && normalized[len(normalized)-1] != '\n' {
		totalLines++
	}
	if len(lineStarts) > totalLines {
		lineStarts = lineStarts[:totalLines]
	}

	offsets := make([]int, totalLines+2)
	for i, s := range lineStarts {
		offsets[i+1] = s
	}
	offsets[totalLines+1] = len(normalized) + 1
	return normalized, offsets
}

func lineForNode(n gast.Node, source []byte, offsets []int) int {
	lines := n.Lines()
	if lines.Len() == 0 {
		return 1
	}
	seg := lines.At(0)
	return lineForOffset(seg.Start, offsets)
}

func lineForOffset(offset int, offsets []int) int {
	lo, hi := 1, len(offsets)-2
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if offsets[mid] <= offset {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo
}

func sliceLines(source []byte, offsets []int, start, end int) string {
	if start < 1 || end < start || start >= len(offsets) {
		return ""
	}
	startOff := offsets[start]
	var endOff int
	if end+1 < len(offsets) {
		endOff = offsets[end+1] - 1 // drop trailing newline of the last line
	} else {
		endOff = len(source)
	}
	if startOff > len(source) {
		startOff = len(source)
	}
	if endOff > len(source) {
		endOff = len(source)
	}
	if endOff < startOff {
		endOff = startOff
	}
	return string(bytes.TrimRight(source[startOff:endOff], "\n"))
}

// headingText concatenates the literal text of a heading's inline content,
// skipping markup like emphasis delimiters.
func headingText(n gast.Node, source []byte) string {
	var b strings.Builder
	var walk func(gast.Node)
	walk = func(cur gast.Node) {
		switch t := cur.(type) {
		case *gast.Text:
			b.Write(t.Segment.Value(source))
			if t.SoftLineBreak() || t.HardLineBreak() {
				b.WriteByte(' ')
			}
			return
		case *gast.String:
			b.Write(t.Value)
			return
		}
		for c := cur.FirstChild(); c != nil; c = c.NextSibling() {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}
