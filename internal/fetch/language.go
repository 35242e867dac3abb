package fetch

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/outfitter-dev/blz/internal/blzerr"
)

// localeSegment matches a path segment that looks like a locale/region
// prefix, e.g. /fr/, /zh-CN/, /ja_JP/.
var localeSegment = regexp.MustCompile(`(?i)^[a-z]{2}([_-][a-z]{2,4})?$`)

// nonEnglishLocales is the small denylist of locale codes the fetcher
// rejects by default: no target-language negotiation, non-English
// llms.txt variants are skipped unless the caller opts in via
// Client.AllowNonEnglish.
var nonEnglishLocales = map[string]bool{
	"fr": true, "de": true, "es": true, "it": true, "pt": true, "ja": true,
	"zh": true, "ko": true, "ru": true, "ar": true, "hi": true, "nl": true,
	"pl": true, "tr": true, "vi": true, "th": true, "id": true, "sv": true,
}

// checkLocale inspects the path and query of rawURL for a locale segment
// and rejects recognizable non-English locales. It is intentionally
// conservative: ambiguous or absent locale markers are treated as English.
func checkLocale(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return blzerr.Wrap(blzerr.InvalidURL, "parse url for locale check", err)
	}
	for _, seg := range strings.Split(strings.Trim(u.Path, "/"), "/") {
		if seg == "" {
			continue
		}
		if !localeSegment.MatchString(seg) {
			continue
		}
		code := strings.ToLower(strings.SplitN(strings.ReplaceAll(seg, "_", "-"), "-", 2)[0])
		if nonEnglishLocales[code] {
			return blzerr.New(blzerr.UnsupportedLocale, "unsupported locale path segment: "+seg)
		}
	}
	if lang := u.Query().Get("lang"); lang != "" {
		code := strings.ToLower(strings.SplitN(lang, "-", 2)[0])
		if nonEnglishLocales[code] {
			return blzerr.New(blzerr.UnsupportedLocale, "unsupported locale query param: "+lang)
		}
	}
	return nil
}
