// Package links normalizes hrefs and classifies the links of a page.
package links

import (
	"net"
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"

	"github.com/JakeFAU/sitecorpus/internal/crawler"
)

// Normalize canonicalizes href against baseDomain. The second return value is
// false when the href carries no usable link ("" or "/").
func Normalize(href, baseDomain string) (string, bool) {
	href = strings.TrimSpace(href)
	base := strings.TrimSuffix(baseDomain, "/")
	switch {
	case href == "" || href == "/":
		return "", false
	case strings.HasPrefix(href, "www."):
		return "https://" + href, true
	case strings.HasPrefix(href, "//"):
		return "https:" + href, true
	case strings.HasPrefix(href, "/"):
		return base + href, true
	case !strings.HasPrefix(href, "http"):
		return base + "/" + href, true
	default:
		return href, true
	}
}

// NormalizeAll normalizes every href and returns the sorted, deduplicated result.
func NormalizeAll(hrefs []string, baseDomain string) []string {
	out := make([]string, 0, len(hrefs))
	for _, href := range hrefs {
		if n, ok := Normalize(href, baseDomain); ok {
			out = append(out, n)
		}
	}
	return crawler.SortedUnique(out)
}

// Hostname returns the lowercase host of rawURL without port.
func Hostname(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

// RegistrableDomain returns the eTLD+1 of rawURL ("blog.example.co.uk" ->
// "example.co.uk"). IPs and hosts the suffix list cannot answer for are
// returned unchanged.
func RegistrableDomain(rawURL string) string {
	host := Hostname(rawURL)
	if host == "" {
		return ""
	}
	if net.ParseIP(host) != nil {
		return host
	}
	domain, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host
	}
	return domain
}
