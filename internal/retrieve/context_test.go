package retrieve

import (
	"testing"

	"github.com/outfitter-dev/blz/internal/docmodel"
)

func TestApply_SymmetricClampsToDocumentBounds(t *testing.T) {
	got := Apply(Range{Start: 2, End: 2}, SymmetricContext(5), 5, nil)
	if got != (Range{Start: 1, End: 5}) {
		t.Fatalf("expected clamp to [1,5], got %+v", got)
	}
}

func TestApply_AsymmetricPadsDifferently(t *testing.T) {
	got := Apply(Range{Start: 10, End: 10}, AsymmetricContext(2, 4), 100, nil)
	if got != (Range{Start: 8, End: 14}) {
		t.Fatalf("expected [8,14], got %+v", got)
	}
}

func TestApply_AllExpandsToEnclosingBlock(t *testing.T) {
	doc := &docmodel.ParsedDocument{
		Blocks: []*docmodel.Block{
			{ID: 0, LineStart: 1, LineEnd: 3},
			{ID: 1, LineStart: 4, LineEnd: 20},
		},
		LineMap: &docmodel.LineMap{TotalLines: 20, BlockOf: []int{0, 0, 0, 0, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1}},
	}
	got := Apply(Range{Start: 5, End: 6}, AllContext(0), 20, doc)
	if got != (Range{Start: 4, End: 20}) {
		t.Fatalf("expected [4,20], got %+v", got)
	}
}

func TestApply_AllRespectsMaxLines(t *testing.T) {
	doc := &docmodel.ParsedDocument{
		Blocks:  []*docmodel.Block{{ID: 0, LineStart: 1, LineEnd: 100}},
		LineMap: &docmodel.LineMap{TotalLines: 100, BlockOf: make([]int, 101)},
	}
	got := Apply(Range{Start: 50, End: 50}, AllContext(10), 100, doc)
	if got.Start != 1 || got.End != 10 {
		t.Fatalf("expected [1,10] bounded span, got %+v", got)
	}
}

func TestContextMode_StringRendersGrammar(t *testing.T) {
	cases := []struct {
		mode ContextMode
		want string
	}{
		{NoneContext, "none"},
		{SymmetricContext(3), "symmetric(3)"},
		{AsymmetricContext(1, 2), "asymmetric(1,2)"},
		{AllContext(0), "all"},
	}
	for _, c := range cases {
		if got := c.mode.String(); got != c.want {
			t.Fatalf("String() = %q, want %q", got, c.want)
		}
	}
}

func TestSplitLines_NormalizesCRLFAndLoneCR(t *testing.T) {
	lines := SplitLines([]byte("a\r\nb\rc\n"))
	want := []string{"a", "b", "c", ""}
	if len(lines) != len(want) {
		t.Fatalf("expected %d lines, got %d: %v", len(want), len(lines), lines)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Fatalf("lines[%d] = %q, want %q", i, lines[i], want[i])
		}
	}
}
