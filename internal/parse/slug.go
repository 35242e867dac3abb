package parse

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// slugger assigns anchors to headings, appending a numeric suffix the
// second and subsequent time a slug repeats within a document (GitHub's
// "-2", "-3", ... convention).
type slugger struct {
	seen map[string]int
}

func newSlugger() *slugger {
	return &slugger{seen: make(map[string]int)}
}

func (s *slugger) slugFor(text string) string {
	base := slugify(text)
	if base == "" {
		base = "section"
	}
	n := s.seen[base]
	s.seen[base] = n + 1
	if n == 0 {
		return base
	}
	return base + "-" + itoa(n+1)
}

// slugify lower-cases, NFC-folds, and replaces runs of non-alphanumeric
// characters with a single hyphen, trimming leading/trailing hyphens.
func slugify(text string) string {
	folded := norm.NFC.String(text)
	var b strings.Builder
	lastHyphen := true // suppress a leading hyphen
	for _, r := range folded {
		r = unicode.ToLower(r)
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	out := strings.TrimRight(b.String(), "-")
	return out
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var digits []byte
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	if neg {
		return "-" + string(digits)
	}
	return string(digits)
}
