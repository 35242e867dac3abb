package index

import (
	"strconv"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/outfitter-dev/blz/internal/blzerr"
)

// term is one lexical unit of the query language: a bare word, a required
// (+/AND) word, an excluded (-/NOT) word, or a double-quoted phrase.
type term struct {
	text     string
	phrase   bool
	required bool
	excluded bool
}

// tokenize splits a query string into terms. Space-separated bare words are
// OR'd by default; a leading '+' or the bare keyword AND makes the next
// term required; a leading '-' or the bare keyword NOT excludes it;
// double-quoted text becomes a phrase term.
func tokenize(q string) []term {
	var terms []term
	runes := []rune(q)
	i, n := 0, len(runes)
	pendingRequired, pendingExcluded := false, false

	flush := func(text string, phrase bool) {
		text = strings.TrimSpace(text)
		if text == "" {
			return
		}
		terms = append(terms, term{text: text, phrase: phrase, required: pendingRequired, excluded: pendingExcluded})
		pendingRequired, pendingExcluded = false, false
	}

	for i < n {
		switch {
		case runes[i] == ' ' || runes[i] == '\t':
			i++
		case runes[i] == '"':
			j := i + 1
			for j < n && runes[j] != '"' {
				j++
			}
			flush(string(runes[i+1:min(j, n)]), true)
			i = j + 1
		case runes[i] == '+':
			pendingRequired = true
			i++
		case runes[i] == '-':
			pendingExcluded = true
			i++
		default:
			j := i
			for j < n && runes[j] != ' ' && runes[j] != '\t' {
				j++
			}
			word := string(runes[i:j])
			switch word {
			case "AND":
				pendingRequired = true
			case "NOT":
				pendingExcluded = true
			default:
				flush(word, false)
			}
			i = j
		}
	}
	return terms
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// HeadingLevelFilter represents a parsed heading_level filter: a single
// level, a comma-separated list, an inclusive range "N-M", or a comparator
// "<=N"/">=N".
type HeadingLevelFilter struct {
	min, max int // inclusive bounds, 1..6; 0 means unbounded on that side
	discrete []int
}

// ParseHeadingLevelFilter parses --heading-level values: "N", "N,M",
// "N-M", "<=N", or ">=N".
func ParseHeadingLevelFilter(s string) (*HeadingLevelFilter, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	switch {
	case strings.HasPrefix(s, "<="):
		n, err := strconv.Atoi(strings.TrimSpace(s[2:]))
		if err != nil {
			return nil, blzerr.New(blzerr.InvalidCitation, "invalid heading_level filter: "+s)
		}
		return &HeadingLevelFilter{min: 1, max: n}, nil
	case strings.HasPrefix(s, ">="):
		n, err := strconv.Atoi(strings.TrimSpace(s[2:]))
		if err != nil {
			return nil, blzerr.New(blzerr.InvalidCitation, "invalid heading_level filter: "+s)
		}
		return &HeadingLevelFilter{min: n, max: 6}, nil
	case strings.Contains(s, "-"):
		parts := strings.SplitN(s, "-", 2)
		lo, err1 := strconv.Atoi(strings.TrimSpace(parts[0]))
		hi, err2 := strconv.Atoi(strings.TrimSpace(parts[1]))
		if err1 != nil || err2 != nil {
			return nil, blzerr.New(blzerr.InvalidCitation, "invalid heading_level range: "+s)
		}
		return &HeadingLevelFilter{min: lo, max: hi}, nil
	case strings.Contains(s, ","):
		var levels []int
		for _, p := range strings.Split(s, ",") {
			n, err := strconv.Atoi(strings.TrimSpace(p))
			if err != nil {
				return nil, blzerr.New(blzerr.InvalidCitation, "invalid heading_level list: "+s)
			}
			levels = append(levels, n)
		}
		return &HeadingLevelFilter{discrete: levels}, nil
	default:
		n, err := strconv.Atoi(s)
		if err != nil {
			return nil, blzerr.New(blzerr.InvalidCitation, "invalid heading_level filter: "+s)
		}
		return &HeadingLevelFilter{discrete: []int{n}}, nil
	}
}

// Matches reports whether level satisfies the filter; used for in-process
// double checking of results returned from the index.
func (f *HeadingLevelFilter) Matches(level int) bool {
	if f == nil {
		return true
	}
	if len(f.discrete) > 0 {
		for _, l := range f.discrete {
			if l == level {
				return true
			}
		}
		return false
	}
	if f.min > 0 && level < f.min {
		return false
	}
	if f.max > 0 && level > f.max {
		return false
	}
	return true
}

func (f *HeadingLevelFilter) bleveQuery() query.Query {
	if f == nil {
		return nil
	}
	if len(f.discrete) > 0 {
		dq := bleve.NewDisjunctionQuery()
		for _, l := range f.discrete {
			v := float64(l)
			nq := bleve.NewNumericRangeInclusiveQuery(&v, &v, boolPtr(true), boolPtr(true))
			nq.SetField(levelFieldName)
			dq.AddQuery(nq)
		}
		return dq
	}
	var lo, hi *float64
	if f.min > 0 {
		v := float64(f.min)
		lo = &v
	}
	if f.max > 0 {
		v := float64(f.max)
		hi = &v
	}
	nq := bleve.NewNumericRangeInclusiveQuery(lo, hi, boolPtr(lo != nil), boolPtr(hi != nil))
	nq.SetField(levelFieldName)
	return nq
}

func boolPtr(b bool) *bool { return &b }

// buildQuery translates the query-language surface into a single bleve
// query tree: field match/phrase queries combined per +/AND, -/NOT, and
// default-OR semantics, ANDed with an optional heading_level filter.
func buildQuery(q Query) (query.Query, error) {
	terms := tokenize(q.Text)
	field := textFieldName
	if q.HeadingsOnly {
		field = headingFieldName
	}

	bq := bleve.NewBooleanQuery()
	var haveMust, haveShould bool
	for _, t := range terms {
		fq := fieldQuery(t, field, q.HeadingsOnly)
		switch {
		case t.excluded:
			bq.AddMustNot(fq)
		case t.required:
			bq.AddMust(fq)
			haveMust = true
		default:
			bq.AddShould(fq)
			haveShould = true
		}
	}
	if !haveMust && !haveShould {
		return nil, blzerr.New(blzerr.InvalidCitation, "empty search query")
	}
	if haveShould {
		bq.SetMinShould(1)
	}

	var filter *HeadingLevelFilter
	var err error
	if q.HeadingLevel != "" {
		filter, err = ParseHeadingLevelFilter(q.HeadingLevel)
		if err != nil {
			return nil, err
		}
	}
	if filter != nil {
		outer := bleve.NewConjunctionQuery(bq, filter.bleveQuery())
		return outer, nil
	}
	return bq, nil
}

// fieldQuery builds the query for a single term. When searching the full
// text (not headings_only), the heading_path field is also matched with a
// small constant boost so sections whose heading itself contains the term
// rank above ones where only the body does.
func fieldQuery(t term, field string, headingsOnly bool) query.Query {
	build := func(f string, boost float64) query.Query {
		if t.phrase {
			pq := bleve.NewMatchPhraseQuery(t.text)
			pq.SetField(f)
			pq.SetBoost(boost)
			return pq
		}
		mq := bleve.NewMatchQuery(t.text)
		mq.SetField(f)
		mq.SetBoost(boost)
		return mq
	}

	if headingsOnly {
		return build(headingFieldName, 1.0)
	}
	dq := bleve.NewDisjunctionQuery(build(textFieldName, 1.0), build(headingFieldName, 2.0))
	dq.SetMin(0)
	return dq
}
