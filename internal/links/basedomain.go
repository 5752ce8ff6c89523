package links

import (
	"net/url"
	"strings"
)

// platform is a hosting site where the first path segment identifies the owner.
type platform struct {
	host     string
	excluded []string
}

var platforms = []platform{
	{host: "medium.com", excluded: []string{"medium.com/about"}},
	{host: "sites.google.com"},
	{host: "dev.to", excluded: []string{
		"dev.to/t/",
		"dev.to/tags/",
		"dev.to/about/",
		"dev.to/terms",
		"dev.to/privacy",
		"dev.to/faq",
		"dev.to/pod",
		"dev.to/forem",
	}},
}

// BaseDomain returns scheme://host/ for rawURL. On medium.com, sites.google.com
// and dev.to the first path segment is appended, since it names the author
// rather than the platform. It returns "" when rawURL has no host.
func BaseDomain(rawURL string) string {
	rawURL = strings.TrimSpace(rawURL)
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return ""
	}
	scheme := u.Scheme
	if scheme == "" {
		scheme = "https"
	}
	base := scheme + "://" + u.Host + "/"
	for _, p := range platforms {
		if !strings.Contains(u.Host, p.host) || p.isExcluded(rawURL) {
			continue
		}
		if seg := firstSegment(u.Path); seg != "" {
			base += seg
		}
		break
	}
	return base
}

func (p platform) isExcluded(rawURL string) bool {
	for _, marker := range p.excluded {
		if strings.Contains(rawURL, marker) {
			return true
		}
	}
	return false
}

func firstSegment(path string) string {
	parts := strings.Split(path, "/")
	if len(parts) < 2 {
		return ""
	}
	return parts[1]
}

// TrimTrailingSlash removes a single trailing slash.
func TrimTrailingSlash(s string) string {
	return strings.TrimSuffix(s, "/")
}
