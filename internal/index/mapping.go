// Package index owns the per-source inverted index: building it from a
// docmodel.ParsedDocument, and querying it with BM25 ranking, heading-level
// filtering, and phrase support.
//
// The index itself is github.com/blevesearch/bleve/v2, the full-text engine
// two repos in the reference corpus
// (other_examples/manifests/ksysoev-omnidex and
// other_examples/manifests/Aman-CERP-amanmcp) wire in directly for indexing
// ingested documents; blz reuses it the same way rather than hand-rolling an
// inverted index.
package index

import (
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/en"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
)

// blockDoc is the document shape indexed for each block. Field names match
// the JSON tags bleve's reflection-based mapping reads.
type blockDoc struct {
	Text        string  `json:"text"`
	HeadingPath string  `json:"heading_path"`
	HeadingJSON string  `json:"heading_path_json"`
	Anchor      string  `json:"anchor"`
	Source      string  `json:"source"`
	Level       float64 `json:"level"`
	LineStart   float64 `json:"line_start"`
	LineEnd     float64 `json:"line_end"`
}

// textFieldName and headingFieldName are the indexed, analyzed fields the
// query language targets; the rest are stored/keyword fields used to
// reconstruct a Hit without a second lookup.
const (
	textFieldName        = "text"
	headingFieldName     = "heading_path"
	headingJSONFieldName = "heading_path_json"
	anchorFieldName      = "anchor"
	sourceFieldName  = "source"
	levelFieldName   = "level"
	lineStartField   = "line_start"
	lineEndField     = "line_end"

	// bm25ScoringModel selects BM25 over bleve's legacy TF-IDF similarity.
	bm25ScoringModel = "bm25"
)

// BuildOptions configures the analyzer used for the text field. Stemming is
// off by default -- citations must stay stable across refresh, and a
// stemmer changes which tokens match.
type BuildOptions struct {
	Stemming bool
}

func newMapping(opts BuildOptions) *mapping.IndexMappingImpl {
	textAnalyzer := standard.Name
	if opts.Stemming {
		textAnalyzer = en.AnalyzerName
	}

	text := bleve.NewTextFieldMapping()
	text.Analyzer = textAnalyzer
	text.Store = false
	text.IncludeTermVectors = true // required for phrase queries

	heading := bleve.NewTextFieldMapping()
	heading.Analyzer = textAnalyzer
	heading.Store = true
	heading.IncludeTermVectors = true

	// heading_path_json carries the same heading path as a JSON array so a
	// Hit can reconstruct HeadingPath exactly. heading_path itself stays a
	// space-joined analyzed field for search/boost purposes only -- it
	// cannot be split back into components since heading text may itself
	// contain spaces.
	headingJSON := bleve.NewTextFieldMapping()
	headingJSON.Analyzer = keyword.Name
	headingJSON.Store = true
	headingJSON.Index = false

	kw := bleve.NewTextFieldMapping()
	kw.Analyzer = keyword.Name
	kw.Store = true

	numeric := bleve.NewNumericFieldMapping()
	numeric.Store = true

	block := bleve.NewDocumentMapping()
	block.AddFieldMappingsAt(textFieldName, text)
	block.AddFieldMappingsAt(headingFieldName, heading)
	block.AddFieldMappingsAt(headingJSONFieldName, headingJSON)
	block.AddFieldMappingsAt(anchorFieldName, kw)
	block.AddFieldMappingsAt(sourceFieldName, kw)
	block.AddFieldMappingsAt(levelFieldName, numeric)
	block.AddFieldMappingsAt(lineStartField, numeric)
	block.AddFieldMappingsAt(lineEndField, numeric)

	im := bleve.NewIndexMapping()
	im.DefaultMapping = block
	im.DefaultAnalyzer = textAnalyzer
	im.ScoringModel = bm25ScoringModel
	return im
}
