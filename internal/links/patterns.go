package links

import (
	"regexp"
	"strings"
)

var feedTypes = map[string]struct{}{
	"application/rss+xml":  {},
	"application/atom+xml": {},
}

var feedPatterns = compileAll(
	`feedburner`,
	`feed\.rss`,
	`index\.xml`,
	`rss\.xml`,
	`blog\.xml`,
	`feed\.xml`,
	`/feed/?$`,
	`/rss/?$`,
	`atom\.xml`,
	`posts\.xml`,
)

// Hrefs containing these markers are never feeds.
var feedExclusions = []string{"/category/", "/tag/", "/tags/"}

var blogPatterns = compileAll(
	`/blog\.`,
	`/blog/?$`,
	`/posts?/?$`,
	`blog\.html$`,
	`/articles?/?$`,
	`posts\.html$`,
	`/news/?$`,
	`\.substack\.com/?`,
	`medium\.com/?`,
	`dev\.to/?`,
	`newsletter/?$`,
)

var blogText = regexp.MustCompile(`(?i)^blog$`)

var blogSegmentMarkers = []string{"blog", "post", "article"}

var aboutPattern = regexp.MustCompile(`/#?about/?|/company/?`)

func compileAll(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		out = append(out, regexp.MustCompile(p))
	}
	return out
}

func matchesAny(patterns []*regexp.Regexp, s string) bool {
	for _, re := range patterns {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
