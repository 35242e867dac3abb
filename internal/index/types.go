package index

// Query is the externally visible search request.
type Query struct {
	Text         string
	Sources      []string // empty means "all open indexes"
	Limit        int
	Offset       int
	HeadingsOnly bool
	HeadingLevel string // "", "N", "N,M", "N-M", "<=N", ">=N"
	MaxChars     int    // snippet window size, default 200, clamped 50..1000
}

// Hit is one ranked result.
type Hit struct {
	Alias       string
	Anchor      string
	HeadingPath []string
	Level       int
	LineStart   int
	LineEnd     int
	Score       float64
	Snippet     string
	SourceURL   string
	Checksum    string
}

// SearchPage is the result of a Search call: hits plus pagination info.
type SearchPage struct {
	Hits                []Hit
	Total               int
	Page                int
	Limit               int
	TotalPages          int
	TotalLinesSearched  int
	SearchTimeMs        float64
}
