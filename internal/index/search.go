package index

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/blevesearch/bleve/v2"
)

// BlockTextLookup resolves the original block text for a (source, blockID)
// pair. The index itself only indexes the text field (tokenized,
// positional) without storing it, so snippet extraction reads it back
// from the store's cached parsed document.
type BlockTextLookup func(source string, blockID int) (string, bool)

// Searcher executes queries against a set of open per-source indexes.
type Searcher struct {
	indexes map[string]bleve.Index // alias -> index
	lookup  BlockTextLookup
}

// NewSearcher builds a Searcher over the given alias->index map.
func NewSearcher(indexes map[string]bleve.Index, lookup BlockTextLookup) *Searcher {
	return &Searcher{indexes: indexes, lookup: lookup}
}

// Search executes q against every named source (or all open indexes when
// q.Sources is empty), aggregating results across sources by concatenation
// and then resorting by score.
func (s *Searcher) Search(q Query) (*SearchPage, error) {
	start := time.Now()

	bq, err := buildQuery(q)
	if err != nil {
		return nil, err
	}

	sources := q.Sources
	if len(sources) == 0 {
		for alias := range s.indexes {
			sources = append(sources, alias)
		}
		sort.Strings(sources)
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 10
	}
	fetchSize := limit + q.Offset
	if fetchSize < 1 {
		fetchSize = 1
	}

	matchedTokens := plainTerms(q.Text)

	var all []Hit
	totalLinesSearched := 0
	for _, alias := range sources {
		idx, ok := s.indexes[alias]
		if !ok {
			continue
		}
		req := bleve.NewSearchRequestOptions(bq, fetchSize, 0, false)
		req.Fields = []string{headingJSONFieldName, anchorFieldName, sourceFieldName, levelFieldName, lineStartField, lineEndField}
		res, err := idx.Search(req)
		if err != nil {
			return nil, fmt.Errorf("search source %q: %w", alias, err)
		}
		if c, err := idx.DocCount(); err == nil {
			totalLinesSearched += int(c)
		}
		for _, dm := range res.Hits {
			hit, ok := hitFromMatch(alias, dm, matchedTokens, q.MaxChars, s.lookup)
			if !ok {
				continue
			}
			all = append(all, hit)
		}
	}

	sort.SliceStable(all, func(i, j int) bool {
		if all[i].Score != all[j].Score {
			return all[i].Score > all[j].Score
		}
		if all[i].Alias != all[j].Alias {
			return all[i].Alias < all[j].Alias
		}
		return all[i].LineStart < all[j].LineStart
	})

	total := len(all)
	lo := q.Offset
	if lo > total {
		lo = total
	}
	hi := lo + limit
	if hi > total {
		hi = total
	}
	page := all[lo:hi]

	totalPages := 0
	if limit > 0 {
		totalPages = int(math.Ceil(float64(total) / float64(limit)))
	}

	return &SearchPage{
		Hits:               page,
		Total:              total,
		Page:               q.Offset/maxInt(limit, 1) + 1,
		Limit:              limit,
		TotalPages:         totalPages,
		TotalLinesSearched: totalLinesSearched,
		SearchTimeMs:       float64(time.Since(start).Microseconds()) / 1000.0,
	}, nil
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func hitFromMatch(alias string, dm *bleve.DocumentMatch, matchedTokens []string, maxChars int, lookup BlockTextLookup) (Hit, bool) {
	blockID, err := blockIDFromDocID(dm.ID)
	if err != nil {
		return Hit{}, false
	}

	h := Hit{
		Alias: alias,
		Score: dm.Score,
	}
	if v, ok := dm.Fields[anchorFieldName].(string); ok {
		h.Anchor = v
	}
	if v, ok := dm.Fields[headingJSONFieldName].(string); ok && v != "" {
		var path []string
		if err := json.Unmarshal([]byte(v), &path); err == nil {
			h.HeadingPath = path
		}
	}
	if v, ok := numericField(dm.Fields, levelFieldName); ok {
		h.Level = int(v)
	}
	if v, ok := numericField(dm.Fields, lineStartField); ok {
		h.LineStart = int(v)
	}
	if v, ok := numericField(dm.Fields, lineEndField); ok {
		h.LineEnd = int(v)
	}

	if lookup != nil {
		if text, ok := lookup(alias, blockID); ok {
			h.Snippet = Snippet(text, matchedTokens, maxChars)
		}
	}
	return h, true
}

func numericField(fields map[string]interface{}, name string) (float64, bool) {
	v, ok := fields[name]
	if !ok {
		return 0, false
	}
	switch t := v.(type) {
	case float64:
		return t, true
	case string:
		f, err := strconv.ParseFloat(t, 64)
		return f, err == nil
	}
	return 0, false
}

func blockIDFromDocID(id string) (int, error) {
	idx := strings.LastIndex(id, "#")
	if idx < 0 {
		return 0, fmt.Errorf("malformed doc id %q", id)
	}
	return strconv.Atoi(id[idx+1:])
}

// plainTerms strips operators/quoting from a query string, returning the
// bare words used to drive deterministic snippet selection.
func plainTerms(q string) []string {
	var out []string
	for _, t := range tokenize(q) {
		out = append(out, strings.Fields(t.text)...)
	}
	return out
}
