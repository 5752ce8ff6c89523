package crawler

import "sort"

// Category names one of the six disjoint link classes.
type Category string

// Link categories in classification priority order.
const (
	CategoryRSS       Category = "rss"
	CategoryEmail     Category = "email"
	CategoryBlog      Category = "blog"
	CategoryInternal  Category = "internal"
	CategorySubdomain Category = "subdomain"
	CategoryExternal  Category = "external"
)

// Categories lists every category in classification priority order.
var Categories = []Category{
	CategoryRSS,
	CategoryEmail,
	CategoryBlog,
	CategoryInternal,
	CategorySubdomain,
	CategoryExternal,
}

// LinkSet holds the classified links of one page. Every field is sorted and
// free of duplicates, and no URL appears in more than one field.
type LinkSet struct {
	Internal  []string `json:"internal"`
	Subdomain []string `json:"subdomain"`
	RSS       []string `json:"rss"`
	Blog      []string `json:"blog"`
	Email     []string `json:"email"`
	External  []string `json:"external"`
}

// Get returns the links of one category.
func (l LinkSet) Get(c Category) []string {
	switch c {
	case CategoryInternal:
		return l.Internal
	case CategorySubdomain:
		return l.Subdomain
	case CategoryRSS:
		return l.RSS
	case CategoryBlog:
		return l.Blog
	case CategoryEmail:
		return l.Email
	case CategoryExternal:
		return l.External
	default:
		return nil
	}
}

// Len returns the total number of classified links.
func (l LinkSet) Len() int {
	n := 0
	for _, c := range Categories {
		n += len(l.Get(c))
	}
	return n
}

// WithFeeds returns a copy whose RSS set is replaced by feeds. The feeds are
// removed from every other category.
func (l LinkSet) WithFeeds(feeds []string) LinkSet {
	drop := make(map[string]struct{}, len(feeds))
	for _, f := range feeds {
		drop[f] = struct{}{}
	}
	filter := func(in []string) []string {
		out := make([]string, 0, len(in))
		for _, v := range in {
			if _, ok := drop[v]; !ok {
				out = append(out, v)
			}
		}
		return out
	}
	return LinkSet{
		Internal:  filter(l.Internal),
		Subdomain: filter(l.Subdomain),
		RSS:       SortedUnique(feeds),
		Blog:      filter(l.Blog),
		Email:     filter(l.Email),
		External:  filter(l.External),
	}
}

// SortedUnique returns a sorted copy of values without duplicates or empty strings.
func SortedUnique(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
