package index

import "strings"

// DefaultMaxChars is 200, clamped to the range [50, 1000]. clamp() pins a
// caller-requested size into that safe band so an absurd MaxChars value
// never produces a degenerate snippet window.
const (
	DefaultMaxChars = 200
	minMaxChars     = 50
	maxMaxChars     = 1000
)

func clamp(v, lo, hi int) int {
	if v <= 0 {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ResolveMaxChars applies the default/clamp policy to a caller-supplied
// window size.
func ResolveMaxChars(requested int) int {
	if requested == 0 {
		return DefaultMaxChars
	}
	return clamp(requested, minMaxChars, maxMaxChars)
}

// Snippet deterministically extracts a window from blockText: the first
// maxChars-wide span that contains the most occurrences of the matched
// tokens, with leading and trailing newlines stripped. If no token
// matches, it returns the first maxChars of the block.
func Snippet(blockText string, matchedTokens []string, maxChars int) string {
	maxChars = ResolveMaxChars(maxChars)
	if len(blockText) <= maxChars {
		return blockText
	}
	if len(matchedTokens) == 0 {
		return trimToLineBoundary(blockText[:maxChars], blockText)
	}

	lower := strings.ToLower(blockText)
	var positions []int
	for _, tok := range matchedTokens {
		tl := strings.ToLower(tok)
		if tl == "" {
			continue
		}
		idx := 0
		for {
			p := strings.Index(lower[idx:], tl)
			if p < 0 {
				break
			}
			positions = append(positions, idx+p)
			idx += p + len(tl)
		}
	}
	if len(positions) == 0 {
		return trimToLineBoundary(blockText[:maxChars], blockText)
	}

	bestStart, bestCount := 0, -1
	for _, start := range positions {
		end := start + maxChars
		if end > len(blockText) {
			end = len(blockText)
			start = end - maxChars
			if start < 0 {
				start = 0
			}
		}
		count := 0
		for _, p := range positions {
			if p >= start && p < end {
				count++
			}
		}
		if count > bestCount || (count == bestCount && start < bestStart) {
			bestCount = count
			bestStart = start
		}
	}
	end := bestStart + maxChars
	if end > len(blockText) {
		end = len(blockText)
	}
	return trimToLineBoundary(blockText[bestStart:end], blockText)
}

// trimToLineBoundary strips leading and trailing newline characters from
// window. It does not cut a partial first or last line, so the window can
// begin or end mid-line; full is not used.
func trimToLineBoundary(window string, full string) string {
	_ = full
	return strings.Trim(window, "\n")
}
