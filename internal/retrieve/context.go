package retrieve

import (
	"fmt"
	"strings"

	"github.com/outfitter-dev/blz/internal/docmodel"
)

// ContextMode selects how a resolved range is padded before the snippet is
// extracted.
type ContextMode struct {
	Kind     string // "none", "symmetric", "asymmetric", "all"
	Before   int
	After    int
	MaxLines int // bound for "all", 0 = unbounded
}

// NoneContext is the default mode: no padding.
var NoneContext = ContextMode{Kind: "none"}

// SymmetricContext pads ±k lines, clamped to [1, totalLines].
func SymmetricContext(k int) ContextMode {
	return ContextMode{Kind: "symmetric", Before: k, After: k}
}

// AsymmetricContext pads b lines before and a lines after.
func AsymmetricContext(b, a int) ContextMode {
	return ContextMode{Kind: "asymmetric", Before: b, After: a}
}

// AllContext expands to the smallest enclosing heading block, optionally
// bounded by maxLines.
func AllContext(maxLines int) ContextMode {
	return ContextMode{Kind: "all", MaxLines: maxLines}
}

// String renders the mode the way the JSON response's "contextApplied"
// field expects: "none", "symmetric(K)", "asymmetric(B,A)", or "all".
func (m ContextMode) String() string {
	switch m.Kind {
	case "symmetric":
		return fmt.Sprintf("symmetric(%d)", m.Before)
	case "asymmetric":
		return fmt.Sprintf("asymmetric(%d,%d)", m.Before, m.After)
	case "all":
		return "all"
	default:
		return "none"
	}
}

// Apply expands r according to m, clamping to [1, totalLines] and, for
// "all", to the enclosing block found via doc's line map.
func Apply(r Range, m ContextMode, totalLines int, doc *docmodel.ParsedDocument) Range {
	switch m.Kind {
	case "symmetric", "asymmetric":
		start := r.Start - m.Before
		end := r.End + m.After
		return clampRange(Range{Start: start, End: end}, totalLines)
	case "all":
		return expandToBlock(r, totalLines, doc, m.MaxLines)
	default:
		return r
	}
}

func clampRange(r Range, totalLines int) Range {
	if r.Start < 1 {
		r.Start = 1
	}
	if totalLines > 0 && r.End > totalLines {
		r.End = totalLines
	}
	if r.End < r.Start {
		r.End = r.Start
	}
	return r
}

// expandToBlock grows r to cover every block it overlaps, from the
// smallest line_start among overlapping blocks to the largest line_end,
// optionally truncated to maxLines measured from the expanded span's start.
func expandToBlock(r Range, totalLines int, doc *docmodel.ParsedDocument, maxLines int) Range {
	if doc == nil || doc.LineMap == nil {
		return clampRange(r, totalLines)
	}
	start, end := r.Start, r.End
	seen := map[int]bool{}
	for line := r.Start; line <= r.End; line++ {
		id := doc.LineMap.BlockForLine(line)
		if id < 0 || id >= len(doc.Blocks) || seen[id] {
			continue
		}
		seen[id] = true
		b := doc.Blocks[id]
		if b.LineStart < start {
			start = b.LineStart
		}
		if b.LineEnd > end {
			end = b.LineEnd
		}
	}
	expanded := clampRange(Range{Start: start, End: end}, totalLines)
	if maxLines > 0 && expanded.End-expanded.Start+1 > maxLines {
		expanded.End = expanded.Start + maxLines - 1
		expanded = clampRange(expanded, totalLines)
	}
	return expanded
}

// Snippet joins lines[start..end] (1-based, inclusive) from raw text split
// on LF -- the verbatim text of those lines, joined back together by LF.
func Snippet(lines []string, r Range) string {
	lo := r.Start - 1
	hi := r.End
	if lo < 0 {
		lo = 0
	}
	if hi > len(lines) {
		hi = len(lines)
	}
	if lo >= hi {
		return ""
	}
	return strings.Join(lines[lo:hi], "\n")
}

// SplitLines splits raw bytes on LF, normalizing CRLF and lone CR first so
// line numbers match what a citation addresses regardless of the source's
// original line-ending convention.
func SplitLines(raw []byte) []string {
	text := string(raw)
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}
