package parse

import (
	"strings"
	"testing"
)

func buildSample(lines int) string {
	var b strings.Builder
	b.WriteString("# A\n")
	b.WriteString("## A.1\n")
	for i := 0; i < lines-2; i++ {
		b.WriteString("content line\n")
	}
	return b.String()
}

func TestParse_HeadingPathAndLineSpans(t *testing.T) {
	var b strings.Builder
	b.WriteString("# A\n")   // line 1
	b.WriteString("## A.1\n") // line 2
	for i := 0; i < 498; i++ {
		b.WriteString("body\n") // lines 3..500
	}
	b.WriteString("# B\n") // line 501
	for i := 0; i < 499; i++ {
		b.WriteString("body\n") // lines 502..1000
	}

	doc := Parse("bun", []byte(b.String()))
	if doc.LineMap.TotalLines != 1000 {
		t.Fatalf("expected 1000 lines, got %d", doc.LineMap.TotalLines)
	}
	if len(doc.Blocks) != 3 {
		t.Fatalf("expected 3 blocks (A, A.1, B), got %d", len(doc.Blocks))
	}

	a, a1, bBlock := doc.Blocks[0], doc.Blocks[1], doc.Blocks[2]
	if a.LineStart != 1 || a.LineEnd != 1 {
		t.Fatalf("block A: expected 1-1, got %d-%d", a.LineStart, a.LineEnd)
	}
	if a1.LineStart != 2 || a1.LineEnd != 500 {
		t.Fatalf("block A.1: expected 2-500, got %d-%d", a1.LineStart, a1.LineEnd)
	}
	if len(a1.HeadingPath) != 2 || a1.HeadingPath[0] != "A" || a1.HeadingPath[1] != "A.1" {
		t.Fatalf("unexpected heading path: %v", a1.HeadingPath)
	}
	if bBlock.LineStart != 501 || bBlock.LineEnd != 1000 {
		t.Fatalf("block B: expected 501-1000, got %d-%d", bBlock.LineStart, bBlock.LineEnd)
	}
}

func TestParse_EveryLineOwnedByExactlyOneBlock(t *testing.T) {
	doc := Parse("x", []byte(buildSample(50)))
	total := doc.LineMap.TotalLines
	for line := 1; line <= total; line++ {
		id := doc.LineMap.BlockForLine(line)
		if id < 0 || id >= len(doc.Blocks) {
			t.Fatalf("line %d not owned by any block", line)
		}
		b := doc.Blocks[id]
		if line < b.LineStart || line > b.LineEnd {
			t.Fatalf("line %d mapped to block %d (%d-%d) which does not contain it", line, id, b.LineStart, b.LineEnd)
		}
	}
}

func TestParse_EmptyInput(t *testing.T) {
	doc := Parse("empty", []byte{})
	if doc.LineMap.TotalLines != 0 {
		t.Fatalf("expected 0 total lines, got %d", doc.LineMap.TotalLines)
	}
	if len(doc.Blocks) != 1 {
		t.Fatalf("expected one synthetic root block, got %d", len(doc.Blocks))
	}
}

func TestParse_CRLFNormalization(t *testing.T) {
	crlf := "# Title\r\nline two\r\nline three\r\n"
	lf := "# Title\nline two\nline three\n"

	docCRLF := Parse("a", []byte(crlf))
	docLF := Parse("b", []byte(lf))

	if docCRLF.LineMap.TotalLines != docLF.LineMap.TotalLines {
		t.Fatalf("CRLF and LF inputs should produce identical line counts: %d vs %d",
			docCRLF.LineMap.TotalLines, docLF.LineMap.TotalLines)
	}
	if docCRLF.Blocks[0].Text != docLF.Blocks[0].Text {
		t.Fatalf("CRLF and LF blocks should normalize to identical text:\n%q\nvs\n%q",
			docCRLF.Blocks[0].Text, docLF.Blocks[0].Text)
	}
}

func TestParse_MultipleTopLevelH1sAreSiblings(t *testing.T) {
	doc := Parse("multi", []byte("# One\nbody1\n# Two\nbody2\n"))
	if len(doc.Toc) != 2 {
		t.Fatalf("expected 2 top-level headings, got %d", len(doc.Toc))
	}
	if doc.Toc[0].Level != 1 || doc.Toc[1].Level != 1 {
		t.Fatalf("expected both top-level headings at level 1")
	}
}

func TestParse_LevelNormalization(t *testing.T) {
	doc := Parse("deep", []byte("### Start\nbody\n#### Child\nmore\n"))
	if len(doc.Toc) != 1 || doc.Toc[0].Level != 1 {
		t.Fatalf("expected normalized root level 1, got toc=%+v", doc.Toc)
	}
	if len(doc.Toc[0].Children) != 1 || doc.Toc[0].Children[0].Level != 2 {
		t.Fatalf("expected child at normalized level 2")
	}
}

func TestParse_PlaceholderPage(t *testing.T) {
	doc := Parse("missing", []byte("404 not found"))
	if len(doc.Diagnostics) != 1 || doc.Diagnostics[0].Kind != "Placeholder" {
		t.Fatalf("expected placeholder diagnostic, got %+v", doc.Diagnostics)
	}
}

func TestParse_AnchorUniqueness(t *testing.T) {
	doc := Parse("dup", []byte("# Intro\nbody\n# Intro\nbody\n"))
	if len(doc.Toc) != 2 {
		t.Fatalf("expected 2 headings")
	}
	if doc.Toc[0].Anchor == doc.Toc[1].Anchor {
		t.Fatalf("expected distinct anchors for repeated heading text, got %q twice", doc.Toc[0].Anchor)
	}
	if doc.Toc[1].Anchor != "intro-2" {
		t.Fatalf("expected second anchor 'intro-2', got %q", doc.Toc[1].Anchor)
	}
}
