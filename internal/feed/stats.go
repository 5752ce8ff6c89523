package feed

import (
	"errors"
	"math"
	"sort"
	"time"

	"github.com/JakeFAU/sitecorpus/internal/crawler"
	"github.com/JakeFAU/sitecorpus/internal/links"
)

// Feeds failing these checks carry nothing worth describing.
var (
	ErrNoEntries = errors.New("no entries found in feed")
	ErrNoTitles  = errors.New("no titles found in feed")
	ErrNoLinks   = errors.New("no links found in feed")
	ErrNoDates   = errors.New("no published dates found in feed")
)

// baseURLSample is how many leading entries vote on the feed's base URL.
const baseURLSample = 10

// Stats describes how one feed publishes. Intervals are in days and are nil
// when fewer than two entries carry a date.
type Stats struct {
	Feed           string     `json:"rss"`
	Entries        int        `json:"entries"`
	BaseURL        string     `json:"baseurl,omitempty"`
	MedianInterval *float64   `json:"post_md_int,omitempty"`
	MeanInterval   *float64   `json:"post_mn_int,omitempty"`
	Latest         *time.Time `json:"post_latest,omitempty"`
	Status         string     `json:"status"`
}

// Check rejects a feed whose entries all lack a title, a link or a date.
func Check(entries []crawler.FeedEntry) error {
	if len(entries) == 0 {
		return ErrNoEntries
	}
	var title, link, date bool
	for _, e := range entries {
		title = title || e.Title != ""
		link = link || e.Link != ""
		date = date || e.PublishedAt != nil
	}
	switch {
	case !title:
		return ErrNoTitles
	case !link:
		return ErrNoLinks
	case !date:
		return ErrNoDates
	}
	return nil
}

// Describe computes the posting statistics of one feed's entries, in feed
// order. A feed failing Check only gets its status set.
func Describe(feedURL string, entries []crawler.FeedEntry) Stats {
	stats := Stats{Feed: feedURL, Entries: len(entries), Status: "ok"}
	if err := Check(entries); err != nil {
		stats.Status = err.Error()
		return stats
	}

	dates := make([]time.Time, 0, len(entries))
	for _, e := range entries {
		if e.PublishedAt != nil {
			dates = append(dates, *e.PublishedAt)
		}
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].After(dates[j]) })
	latest := dates[0]
	stats.Latest = &latest

	if len(dates) > 1 {
		gaps := make([]float64, 0, len(dates)-1)
		var sum float64
		for i := 1; i < len(dates); i++ {
			days := dates[i-1].Sub(dates[i]).Hours() / 24
			gaps = append(gaps, days)
			sum += days
		}
		sort.Float64s(gaps)
		median := gaps[len(gaps)/2]
		if len(gaps)%2 == 0 {
			median = (gaps[len(gaps)/2-1] + gaps[len(gaps)/2]) / 2
		}
		median = round3(median)
		mean := round3(sum / float64(len(gaps)))
		stats.MedianInterval = &median
		stats.MeanInterval = &mean
	}

	stats.BaseURL = dominantBaseURL(entries)
	return stats
}

// DescribeAll groups entries by feed and describes each group, ordered by
// feed URL.
func DescribeAll(entries []crawler.FeedEntry) []Stats {
	byFeed := map[string][]crawler.FeedEntry{}
	for _, e := range entries {
		byFeed[e.Feed] = append(byFeed[e.Feed], e)
	}
	feeds := make([]string, 0, len(byFeed))
	for f := range byFeed {
		feeds = append(feeds, f)
	}
	sort.Strings(feeds)
	out := make([]Stats, 0, len(feeds))
	for _, f := range feeds {
		out = append(out, Describe(f, byFeed[f]))
	}
	return out
}

// dominantBaseURL returns the most common base domain among the first links.
// Ties go to the base domain seen first.
func dominantBaseURL(entries []crawler.FeedEntry) string {
	counts := map[string]int{}
	var order []string
	for _, e := range entries[:min(len(entries), baseURLSample)] {
		if e.Link == "" {
			continue
		}
		bd := links.BaseDomain(e.Link)
		if bd == "" {
			continue
		}
		if counts[bd] == 0 {
			order = append(order, bd)
		}
		counts[bd]++
	}
	best := ""
	for _, bd := range order {
		if counts[bd] > counts[best] {
			best = bd
		}
	}
	return best
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
