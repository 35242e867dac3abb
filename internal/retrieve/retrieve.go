package retrieve

import (
	"github.com/outfitter-dev/blz/internal/blzerr"
	"github.com/outfitter-dev/blz/internal/docmodel"
)

// SourceLoader is the subset of *store.Store the retriever needs: raw
// bytes (for line addressing) and the parsed document (for "all" context
// expansion and total-line bounds).
type SourceLoader interface {
	LoadRaw(alias string) ([]byte, error)
	Load(alias string) (*docmodel.StoredDocument, error)
}

// SpanResult is one resolved, context-expanded range within a response.
type SpanResult struct {
	LineStart int    `json:"lineStart"`
	LineEnd   int    `json:"lineEnd"`
	Snippet   string `json:"snippet"`
}

// SnippetResponse is the per-alias result of a retrieve operation.
type SnippetResponse struct {
	Alias          string       `json:"alias"`
	Source         string       `json:"source"`
	Checksum       string       `json:"checksum"`
	Ranges         []SpanResult `json:"ranges"`
	ContextApplied string       `json:"contextApplied"`

	// Single-span convenience fields, populated only when len(Ranges) == 1.
	Snippet   string `json:"snippet,omitempty"`
	LineStart int    `json:"lineStart,omitempty"`
	LineEnd   int    `json:"lineEnd,omitempty"`
}

// Retriever resolves citation strings into SnippetResponses against a
// SourceLoader.
type Retriever struct {
	loader SourceLoader
}

// New builds a Retriever backed by loader (typically *store.Store).
func New(loader SourceLoader) *Retriever {
	return &Retriever{loader: loader}
}

// Resolve parses input (one or more whitespace-separated `alias:ranges`
// citations), groups by alias in first-occurrence order, and returns one
// SnippetResponse per alias with mode applied to every merged range.
func (r *Retriever) Resolve(input string, mode ContextMode) ([]SnippetResponse, error) {
	citations, err := ParseCitations(input)
	if err != nil {
		return nil, err
	}
	order, byAlias := GroupByAlias(citations)

	var responses []SnippetResponse
	for _, alias := range order {
		resp, err := r.resolveAlias(alias, byAlias[alias], mode)
		if err != nil {
			return nil, err
		}
		responses = append(responses, resp)
	}
	return responses, nil
}

func (r *Retriever) resolveAlias(alias string, ranges []Range, mode ContextMode) (SnippetResponse, error) {
	stored, err := r.loader.Load(alias)
	if err != nil {
		return SnippetResponse{}, err
	}
	raw, err := r.loader.LoadRaw(alias)
	if err != nil {
		return SnippetResponse{}, err
	}
	lines := SplitLines(raw)
	totalLines := stored.Parsed.LineMap.TotalLines

	merged := MergeRanges(ranges)
	for _, rg := range merged {
		if rg.Start > totalLines || rg.End > totalLines {
			return SnippetResponse{}, blzerr.OutOfRangeErr(rg.Start, rg.End, totalLines)
		}
	}

	resp := SnippetResponse{
		Alias:          alias,
		Source:         alias,
		Checksum:       stored.Metadata.Checksum,
		ContextApplied: mode.String(),
	}
	for _, rg := range merged {
		expanded := Apply(rg, mode, totalLines, &stored.Parsed)
		resp.Ranges = append(resp.Ranges, SpanResult{
			LineStart: expanded.Start,
			LineEnd:   expanded.End,
			Snippet:   Snippet(lines, expanded),
		})
	}

	if len(resp.Ranges) == 1 {
		resp.Snippet = resp.Ranges[0].Snippet
		resp.LineStart = resp.Ranges[0].LineStart
		resp.LineEnd = resp.Ranges[0].LineEnd
	}
	return resp, nil
}
