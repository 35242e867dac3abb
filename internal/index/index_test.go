package index

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/blevesearch/bleve/v2"

	"github.com/outfitter-dev/blz/internal/docmodel"
)

func sampleDoc() *docmodel.ParsedDocument {
	return &docmodel.ParsedDocument{
		Alias: "bun",
		Blocks: []*docmodel.Block{
			{ID: 0, HeadingPath: []string{"A"}, Level: 1, Anchor: "a", LineStart: 1, LineEnd: 1, Text: "A"},
			{ID: 1, HeadingPath: []string{"A", "Test runner"}, Level: 2, Anchor: "test-runner", LineStart: 2, LineEnd: 500, Text: "The test runner executes suites quickly and reports failures."},
			{ID: 2, HeadingPath: []string{"B"}, Level: 1, Anchor: "b", LineStart: 501, LineEnd: 1000, Text: "Unrelated section about packaging."},
		},
	}
}

func buildTestIndex(t *testing.T) (string, *docmodel.ParsedDocument) {
	t.Helper()
	doc := sampleDoc()
	dir := filepath.Join(t.TempDir(), "idx")
	if err := Build(dir, "bun", doc, BuildOptions{}); err != nil {
		t.Fatalf("Build: %v", err)
	}
	return dir, doc
}

func textLookup(doc *docmodel.ParsedDocument) BlockTextLookup {
	return func(source string, blockID int) (string, bool) {
		for _, b := range doc.Blocks {
			if b.ID == blockID {
				return b.Text, true
			}
		}
		return "", false
	}
}

func TestSearch_RanksMatchingBlockAboveUnrelated(t *testing.T) {
	dir, doc := buildTestIndex(t)
	idx, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer idx.Close()

	searcher := NewSearcher(map[string]bleve.Index{"bun": idx}, textLookup(doc))
	page, err := searcher.Search(Query{Text: "test runner", Limit: 10})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(page.Hits) == 0 {
		t.Fatalf("expected at least one hit")
	}
	top := page.Hits[0]
	if top.Anchor != "test-runner" {
		t.Fatalf("expected top hit anchor 'test-runner', got %q (hits=%+v)", top.Anchor, page.Hits)
	}
	if top.LineStart != 2 || top.LineEnd != 500 {
		t.Fatalf("expected top hit lines 2-500, got %d-%d", top.LineStart, top.LineEnd)
	}
	wantPath := []string{"A", "Test runner"}
	if len(top.HeadingPath) != len(wantPath) {
		t.Fatalf("expected heading path %v, got %v", wantPath, top.HeadingPath)
	}
	for i, p := range wantPath {
		if top.HeadingPath[i] != p {
			t.Fatalf("expected heading path %v, got %v", wantPath, top.HeadingPath)
		}
	}
}

func TestSearch_HeadingLevelFilter(t *testing.T) {
	dir, doc := buildTestIndex(t)
	idx, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer idx.Close()

	searcher := NewSearcher(map[string]bleve.Index{"bun": idx}, textLookup(doc))
	page, err := searcher.Search(Query{Text: "test OR packaging", HeadingLevel: "<=1", Limit: 10})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	for _, h := range page.Hits {
		if h.Level > 1 {
			t.Fatalf("expected only level<=1 hits, got level %d", h.Level)
		}
	}
}

func TestParseHeadingLevelFilter(t *testing.T) {
	cases := []struct {
		in   string
		test func(f *HeadingLevelFilter) bool
	}{
		{"2", func(f *HeadingLevelFilter) bool { return f.Matches(2) && !f.Matches(3) }},
		{"1,3", func(f *HeadingLevelFilter) bool { return f.Matches(1) && f.Matches(3) && !f.Matches(2) }},
		{"2-4", func(f *HeadingLevelFilter) bool { return f.Matches(2) && f.Matches(4) && !f.Matches(5) }},
		{"<=2", func(f *HeadingLevelFilter) bool { return f.Matches(1) && f.Matches(2) && !f.Matches(3) }},
		{">=3", func(f *HeadingLevelFilter) bool { return f.Matches(3) && f.Matches(6) && !f.Matches(2) }},
	}
	for _, c := range cases {
		f, err := ParseHeadingLevelFilter(c.in)
		if err != nil {
			t.Fatalf("ParseHeadingLevelFilter(%q): %v", c.in, err)
		}
		if !c.test(f) {
			t.Fatalf("filter %q did not match expected levels", c.in)
		}
	}
}

func TestSnippet_ClampsWindow(t *testing.T) {
	if got := ResolveMaxChars(0); got != DefaultMaxChars {
		t.Fatalf("expected default %d, got %d", DefaultMaxChars, got)
	}
	if got := ResolveMaxChars(10); got != minMaxChars {
		t.Fatalf("expected clamp to %d, got %d", minMaxChars, got)
	}
	if got := ResolveMaxChars(5000); got != maxMaxChars {
		t.Fatalf("expected clamp to %d, got %d", maxMaxChars, got)
	}
}

func TestSnippet_PicksWindowAroundMatch(t *testing.T) {
	text := "prefix filler filler filler filler NEEDLE filler filler filler suffix"
	s := Snippet(text, []string{"NEEDLE"}, 50)
	if len(s) > 50 {
		t.Fatalf("snippet exceeds maxChars: %d", len(s))
	}
	if !strings.Contains(s, "NEEDLE") {
		t.Fatalf("expected snippet window to contain the match, got %q", s)
	}
}
