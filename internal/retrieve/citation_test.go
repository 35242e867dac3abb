package retrieve

import (
	"testing"

	"github.com/outfitter-dev/blz/internal/blzerr"
)

func TestParseCitations_SingleLine(t *testing.T) {
	cs, err := ParseCitations("bun:42")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cs) != 1 || cs[0].Alias != "bun" || cs[0].Ranges[0] != (Range{Start: 42, End: 42}) {
		t.Fatalf("unexpected result: %+v", cs)
	}
}

func TestParseCitations_InclusiveRange(t *testing.T) {
	cs, err := ParseCitations("bun:10-20")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cs[0].Ranges[0] != (Range{Start: 10, End: 20}) {
		t.Fatalf("unexpected range: %+v", cs[0].Ranges[0])
	}
}

func TestParseCitations_PlusShorthand(t *testing.T) {
	cs, err := ParseCitations("bun:10+5")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cs[0].Ranges[0] != (Range{Start: 10, End: 15}) {
		t.Fatalf("unexpected range: %+v", cs[0].Ranges[0])
	}
}

func TestParseCitations_MultipleRangesNoSpaces(t *testing.T) {
	cs, err := ParseCitations("bun:1-5,10-12")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cs[0].Ranges) != 2 {
		t.Fatalf("expected 2 ranges, got %d", len(cs[0].Ranges))
	}
}

func TestParseCitations_MultipleAliases(t *testing.T) {
	cs, err := ParseCitations("bun:1-5 deno:20")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cs) != 2 || cs[0].Alias != "bun" || cs[1].Alias != "deno" {
		t.Fatalf("unexpected result: %+v", cs)
	}
}

func TestParseCitations_MalformedRejected(t *testing.T) {
	cases := []string{"bun:", "bun:abc", "bun:10-5", "notanalias!:1", ":1"}
	for _, in := range cases {
		_, err := ParseCitations(in)
		if !blzerr.Is(err, blzerr.InvalidCitation) {
			t.Fatalf("input %q: expected InvalidCitation, got %v", in, err)
		}
	}
}

func TestMergeRanges_MergesOverlappingAndAdjacent(t *testing.T) {
	merged := MergeRanges([]Range{{1, 5}, {6, 10}, {20, 25}, {3, 4}})
	want := []Range{{1, 10}, {20, 25}}
	if len(merged) != len(want) {
		t.Fatalf("expected %d merged ranges, got %d: %+v", len(want), len(merged), merged)
	}
	for i := range want {
		if merged[i] != want[i] {
			t.Fatalf("merged[%d] = %+v, want %+v", i, merged[i], want[i])
		}
	}
}

func TestMergeRanges_DuplicateCollapsesToOne(t *testing.T) {
	merged := MergeRanges([]Range{{5, 10}, {5, 10}})
	if len(merged) != 1 || merged[0] != (Range{5, 10}) {
		t.Fatalf("expected single merged range, got %+v", merged)
	}
}

func TestGroupByAlias_PreservesFirstOccurrenceOrder(t *testing.T) {
	cs, err := ParseCitations("deno:1 bun:2 deno:3")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	order, byAlias := GroupByAlias(cs)
	if len(order) != 2 || order[0] != "deno" || order[1] != "bun" {
		t.Fatalf("unexpected order: %v", order)
	}
	if len(byAlias["deno"]) != 2 {
		t.Fatalf("expected 2 ranges for deno, got %d", len(byAlias["deno"]))
	}
}
