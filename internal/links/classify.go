package links

import (
	"net/url"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/JakeFAU/sitecorpus/internal/crawler"
)

type anchor struct {
	href string
	text string
}

// claims tracks every raw and normalized value already assigned to a category.
type claims map[string]struct{}

func (c claims) add(values ...string) {
	for _, v := range values {
		c[v] = struct{}{}
	}
}

func (c claims) has(v string) bool {
	_, ok := c[v]
	return ok
}

// Classify sorts the links of doc into six disjoint categories. Categories
// are extracted in priority order (rss, email, blog, internal, subdomain,
// external) and a link claimed by one category is never seen by the next.
// The aliases are always internal unless an earlier category claimed them.
func Classify(doc *goquery.Document, baseDomain string, aliases []string) crawler.LinkSet {
	var out crawler.LinkSet
	if doc == nil {
		return out
	}
	anchors := anchorsOf(doc)
	claimed := claims{}

	// Excluded feed-looking hrefs are still claimed and land in no category.
	rawFeeds, feeds := feedCandidates(doc, anchors)
	out.RSS = NormalizeAll(feeds, baseDomain)
	claimed.add(rawFeeds...)
	claimed.add(out.RSS...)

	out.Email = emailLinks(anchors, claimed)

	out.Blog = blogLinks(anchors, baseDomain, claimed)

	baseHost := Hostname(baseDomain)
	baseRegistrable := RegistrableDomain(baseDomain)
	var internal, subdomain, external []string
	for _, a := range anchors {
		if claimed.has(a.href) {
			continue
		}
		n, ok := Normalize(a.href, baseDomain)
		if !ok || claimed.has(n) {
			continue
		}
		switch {
		case isInternal(n, aliases):
			internal = append(internal, n)
		case isSubdomain(n, baseHost, baseRegistrable):
			subdomain = append(subdomain, n)
		default:
			external = append(external, n)
		}
	}
	for _, alias := range aliases {
		if alias != "" && !claimed.has(alias) {
			internal = append(internal, alias)
		}
	}
	out.Internal = crawler.SortedUnique(internal)
	out.Subdomain = crawler.SortedUnique(subdomain)
	out.External = crawler.SortedUnique(external)
	return out
}

func anchorsOf(doc *goquery.Document) []anchor {
	var out []anchor
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		out = append(out, anchor{
			href: strings.TrimSpace(href),
			text: strings.TrimSpace(s.Text()),
		})
	})
	return out
}

// feedCandidates returns every feed-looking href and the subset that survives
// the category and tag exclusions.
func feedCandidates(doc *goquery.Document, anchors []anchor) (raw, kept []string) {
	doc.Find("link[type], a[type]").Each(func(_ int, s *goquery.Selection) {
		typ, _ := s.Attr("type")
		if _, ok := feedTypes[strings.ToLower(strings.TrimSpace(typ))]; !ok {
			return
		}
		if href, ok := s.Attr("href"); ok {
			raw = append(raw, strings.TrimSpace(href))
		}
	})
	for _, a := range anchors {
		if matchesAny(feedPatterns, a.href) {
			raw = append(raw, a.href)
		}
	}
	for _, href := range raw {
		if href != "" && !containsAny(href, feedExclusions) {
			kept = append(kept, href)
		}
	}
	return raw, kept
}

func emailLinks(anchors []anchor, claimed claims) []string {
	var raw, emails []string
	for _, a := range anchors {
		if claimed.has(a.href) || !strings.Contains(a.href, "mailto:") {
			continue
		}
		raw = append(raw, a.href)
		addr := strings.TrimSpace(strings.ReplaceAll(a.href, "mailto:", ""))
		if addr != "" && !claimed.has(addr) {
			emails = append(emails, addr)
		}
	}
	out := crawler.SortedUnique(emails)
	claimed.add(raw...)
	claimed.add(out...)
	return out
}

func blogLinks(anchors []anchor, baseDomain string, claimed claims) []string {
	var raw, normalized []string
	for _, a := range anchors {
		if claimed.has(a.href) {
			continue
		}
		if !matchesAny(blogPatterns, a.href) && !blogText.MatchString(a.text) {
			continue
		}
		raw = append(raw, a.href)
		if n, ok := Normalize(a.href, baseDomain); ok && !claimed.has(n) {
			normalized = append(normalized, n)
		}
	}
	var blogs []string
	for _, root := range RemovePrefixed(normalized) {
		if t := TruncateAtSegment(root); !claimed.has(t) {
			blogs = append(blogs, t)
		}
	}
	out := crawler.SortedUnique(blogs)
	claimed.add(raw...)
	claimed.add(normalized...)
	claimed.add(out...)
	return out
}

func isInternal(link string, aliases []string) bool {
	for _, alias := range aliases {
		if alias == "" {
			continue
		}
		if strings.HasPrefix(link, alias) || link == TrimTrailingSlash(alias) {
			return true
		}
	}
	return false
}

func isSubdomain(link, baseHost, baseRegistrable string) bool {
	if baseRegistrable == "" {
		return false
	}
	host := Hostname(link)
	return host != "" && host != baseHost && RegistrableDomain(link) == baseRegistrable
}

// RemovePrefixed drops every URL that extends another URL of the set, keeping
// the shortest roots. The result is sorted and deduplicated.
func RemovePrefixed(urls []string) []string {
	unique := crawler.SortedUnique(urls)
	out := make([]string, 0, len(unique))
	for _, u := range unique {
		extends := false
		for _, other := range unique {
			if other != u && strings.HasPrefix(u, other) {
				extends = true
				break
			}
		}
		if !extends {
			out = append(out, u)
		}
	}
	return out
}

// TruncateAtSegment cuts the path after the first segment containing blog,
// post or article (case-sensitive) and drops the query and fragment. URLs
// without such a segment are returned unchanged.
func TruncateAtSegment(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	segments := strings.Split(u.Path, "/")
	for i, seg := range segments {
		if !containsAny(seg, blogSegmentMarkers) {
			continue
		}
		u.Path = strings.Join(segments[:i+1], "/")
		u.RawPath = ""
		u.RawQuery = ""
		u.ForceQuery = false
		u.Fragment = ""
		u.RawFragment = ""
		return u.String()
	}
	return rawURL
}

// AboutLinks returns the internal links that look like an about or company
// page, shortest first.
func AboutLinks(internal []string) []string {
	var out []string
	for _, link := range crawler.SortedUnique(internal) {
		if aboutPattern.MatchString(link) {
			out = append(out, link)
		}
	}
	SortByLength(out)
	return out
}

// SortByLength orders values shortest first, breaking ties lexically.
func SortByLength(values []string) {
	sort.SliceStable(values, func(i, j int) bool {
		if len(values[i]) != len(values[j]) {
			return len(values[i]) < len(values[j])
		}
		return values[i] < values[j]
	})
}
