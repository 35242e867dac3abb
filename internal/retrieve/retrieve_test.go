package retrieve

import (
	"testing"

	"github.com/outfitter-dev/blz/internal/blzerr"
	"github.com/outfitter-dev/blz/internal/docmodel"
)

type fakeLoader struct {
	raw   map[string][]byte
	stored map[string]*docmodel.StoredDocument
}

func (f *fakeLoader) LoadRaw(alias string) ([]byte, error) {
	b, ok := f.raw[alias]
	if !ok {
		return nil, blzerr.New(blzerr.SourceNotFound, "not found: "+alias)
	}
	return b, nil
}

func (f *fakeLoader) Load(alias string) (*docmodel.StoredDocument, error) {
	d, ok := f.stored[alias]
	if !ok {
		return nil, blzerr.New(blzerr.SourceNotFound, "not found: "+alias)
	}
	return d, nil
}

func newFakeLoader() *fakeLoader {
	raw := "line1\nline2\nline3\nline4\nline5\n"
	doc := docmodel.ParsedDocument{
		Alias: "bun",
		Blocks: []*docmodel.Block{
			{ID: 0, HeadingPath: []string{"A"}, Level: 1, LineStart: 1, LineEnd: 5},
		},
		LineMap: &docmodel.LineMap{TotalLines: 5, BlockOf: []int{0, 0, 0, 0, 0, 0}},
	}
	return &fakeLoader{
		raw: map[string][]byte{"bun": []byte(raw)},
		stored: map[string]*docmodel.StoredDocument{
			"bun": {Metadata: docmodel.SourceMetadata{Source: "bun", Checksum: "chk1"}, Parsed: doc},
		},
	}
}

func TestRetriever_Resolve_SingleLine(t *testing.T) {
	r := New(newFakeLoader())
	resps, err := r.Resolve("bun:2", NoneContext)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(resps) != 1 {
		t.Fatalf("expected 1 response, got %d", len(resps))
	}
	resp := resps[0]
	if resp.Snippet != "line2" {
		t.Fatalf("expected snippet 'line2', got %q", resp.Snippet)
	}
	if resp.Checksum != "chk1" {
		t.Fatalf("expected checksum chk1, got %s", resp.Checksum)
	}
}

func TestRetriever_Resolve_RangeOutOfBounds(t *testing.T) {
	r := New(newFakeLoader())
	_, err := r.Resolve("bun:1-6", NoneContext)
	if !blzerr.Is(err, blzerr.OutOfRange) {
		t.Fatalf("expected OutOfRange, got %v", err)
	}
}

func TestRetriever_Resolve_LastLineSucceeds(t *testing.T) {
	r := New(newFakeLoader())
	resps, err := r.Resolve("bun:5", NoneContext)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if resps[0].Snippet != "line5" {
		t.Fatalf("expected 'line5', got %q", resps[0].Snippet)
	}
}

func TestRetriever_Resolve_SymmetricContext(t *testing.T) {
	r := New(newFakeLoader())
	resps, err := r.Resolve("bun:3", SymmetricContext(1))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if resps[0].Snippet != "line2\nline3\nline4" {
		t.Fatalf("unexpected snippet: %q", resps[0].Snippet)
	}
	if resps[0].ContextApplied != "symmetric(1)" {
		t.Fatalf("unexpected contextApplied: %s", resps[0].ContextApplied)
	}
}

func TestRetriever_Resolve_MultiRangeProducesMultipleSpans(t *testing.T) {
	r := New(newFakeLoader())
	resps, err := r.Resolve("bun:1,3-4", NoneContext)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(resps[0].Ranges) != 2 {
		t.Fatalf("expected 2 spans, got %d: %+v", len(resps[0].Ranges), resps[0].Ranges)
	}
	if resps[0].Snippet != "" {
		t.Fatalf("expected no single-span convenience field for multi-range response")
	}
}

func TestRetriever_Resolve_UnknownAlias(t *testing.T) {
	r := New(newFakeLoader())
	_, err := r.Resolve("missing:1", NoneContext)
	if !blzerr.Is(err, blzerr.SourceNotFound) {
		t.Fatalf("expected SourceNotFound, got %v", err)
	}
}
