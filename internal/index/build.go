package index

import (
	"encoding/json"
	"fmt"

	"github.com/blevesearch/bleve/v2"

	"github.com/outfitter-dev/blz/internal/docmodel"
)

// Build creates a fresh bleve index at dir from a parsed document, indexing
// one document per block. The caller (internal/store) is responsible for
// building into a temporary directory and only publishing it via atomic
// rename once Build returns successfully -- this package never decides
// where "final" is.
func Build(dir string, source string, doc *docmodel.ParsedDocument, opts BuildOptions) error {
	idx, err := bleve.New(dir, newMapping(opts))
	if err != nil {
		return fmt.Errorf("create index at %s: %w", dir, err)
	}
	defer idx.Close()

	batch := idx.NewBatch()
	for _, blk := range doc.Blocks {
		headingJSON, err := json.Marshal(blk.HeadingPath)
		if err != nil {
			return fmt.Errorf("encode heading path for block %d: %w", blk.ID, err)
		}
		bd := blockDoc{
			Text:        blk.Text,
			HeadingPath: joinHeadingPath(blk.HeadingPath),
			HeadingJSON: string(headingJSON),
			Anchor:      blk.Anchor,
			Source:      source,
			Level:       float64(blk.Level),
			LineStart:   float64(blk.LineStart),
			LineEnd:     float64(blk.LineEnd),
		}
		if err := batch.Index(docID(source, blk.ID), bd); err != nil {
			return fmt.Errorf("stage block %d: %w", blk.ID, err)
		}
	}
	if err := idx.Batch(batch); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	return nil
}

// Open opens an existing index directory read-only-ish (bleve itself does
// not expose a strict read-only mode, but the store never writes through a
// handle obtained here -- every write goes through Build into a fresh temp
// directory followed by a rename).
func Open(dir string) (bleve.Index, error) {
	idx, err := bleve.Open(dir)
	if err != nil {
		return nil, fmt.Errorf("open index at %s: %w", dir, err)
	}
	return idx, nil
}

func docID(source string, blockID int) string {
	return fmt.Sprintf("%s#%d", source, blockID)
}

// joinHeadingPath produces the space-joined text indexed for search/boost
// purposes against heading_path; it is lossy for headings containing spaces
// and must never be parsed back into components (use heading_path_json for
// that).
func joinHeadingPath(path []string) string {
	out := ""
	for i, p := range path {
		if i > 0 {
			out += " "
		}
		out += p
	}
	return out
}
