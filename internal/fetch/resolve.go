package fetch

import (
	"context"
	"net/http"
	"strings"

	"github.com/outfitter-dev/blz/internal/blzerr"
)

// Candidate is one of the two well-known document names a registered
// source may publish. llms-full.txt, when present, is always preferred
// over llms.txt.
type Candidate struct {
	Name string // "llms-full.txt" or "llms.txt"
	URL  string
}

// Resolved is the outcome of ResolveBest: the chosen variant URL plus the
// alternative that was passed over, if any, for diagnostics.
type Resolved struct {
	URL      string
	Variant  string // "llms-full.txt", "llms.txt", or "Other" when neither well-known name resolved
	Fallback string // the other candidate URL, if it was probed and exists
}

// ResolveBest determines the best document URL to fetch for a registered
// source base. A baseURL ending in /llms.txt has its sibling llms-full.txt
// probed with a HEAD request and is replaced by it when that probe
// succeeds; any other URL naming an llms.txt/llms-full.txt file is used
// as-is. For a directory-like origin both well-known filenames are probed
// with HEAD requests.
func (c *Client) ResolveBest(ctx context.Context, baseURL string) (*Resolved, error) {
	if strings.HasSuffix(baseURL, "/llms.txt") {
		full := strings.TrimSuffix(baseURL, "llms.txt") + "llms-full.txt"
		if ok, err := c.probe(ctx, full); err == nil && ok {
			return &Resolved{URL: full, Variant: "llms-full.txt"}, nil
		}
		return &Resolved{URL: baseURL, Variant: "llms.txt"}, nil
	}
	if strings.HasSuffix(baseURL, "llms-full.txt") || strings.HasSuffix(baseURL, "llms.txt") {
		return &Resolved{URL: baseURL, Variant: variantName(baseURL)}, nil
	}

	root := strings.TrimSuffix(baseURL, "/")
	full := root + "/llms-full.txt"
	plain := root + "/llms.txt"

	fullOK, fullErr := c.probe(ctx, full)
	if fullErr != nil {
		return nil, fullErr
	}
	if fullOK {
		res := &Resolved{URL: full, Variant: "llms-full.txt"}
		if plainOK, err := c.probe(ctx, plain); err == nil && plainOK {
			res.Fallback = plain
		}
		return res, nil
	}

	plainOK, plainErr := c.probe(ctx, plain)
	if plainErr != nil {
		return nil, plainErr
	}
	if plainOK {
		return &Resolved{URL: plain, Variant: "llms.txt"}, nil
	}

	// Neither well-known filename resolved: fall back to the URL as given
	// rather than erroring, so a source whose llms.txt lives at a
	// non-standard path can still be registered.
	return &Resolved{URL: baseURL, Variant: "Other"}, nil
}

func variantName(u string) string {
	if strings.HasSuffix(u, "llms-full.txt") {
		return "llms-full.txt"
	}
	return "llms.txt"
}

// probe issues a HEAD request and reports whether the resource looks
// real: a 2xx/3xx response, or a 405 from an origin that rejects HEAD.
// Every other status (404, 410, any other 4xx, 5xx) reports false. A
// placeholder page served with a 200 status is instead caught later by
// IsPlaceholder404 against the fetched body.
func (c *Client) probe(ctx context.Context, u string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, u, nil)
	if err != nil {
		return false, blzerr.Wrap(blzerr.InvalidURL, "build HEAD request", err)
	}
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
	resp, err := c.httpClient().Do(req)
	if err != nil {
		return false, blzerr.Wrap(blzerr.NetworkError, "HEAD request failed", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return false, nil
	case resp.StatusCode == http.StatusMethodNotAllowed:
		// Some origins reject HEAD outright; treat as "might exist" and let
		// the subsequent GET in Fetch settle it.
		return true, nil
	case resp.StatusCode >= 200 && resp.StatusCode < 400:
		return true, nil
	default:
		return false, nil
	}
}

// IsPlaceholder404 reports whether body looks like a "soft 404" page
// served with a 200 status instead of a real llms.txt document.
// Detection is a conservative literal-pattern match: exact, case-
// insensitive substring match against a short denylist, not a
// statistical heuristic.
func IsPlaceholder404(body []byte) bool {
	lower := strings.ToLower(string(body))
	if len(strings.TrimSpace(lower)) == 0 {
		return true
	}
	patterns := []string{
		"page not found",
		"404 not found",
		"<title>404",
		"this page could not be found",
		"oops! that page can't be found",
	}
	for _, p := range patterns {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}
