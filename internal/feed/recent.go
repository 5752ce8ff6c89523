package feed

import (
	"sort"
	"time"

	"github.com/JakeFAU/sitecorpus/internal/crawler"
)

// DefaultMaxPerDay drops aggregator feeds that post this often or more.
const DefaultMaxPerDay = 6.0

// Recent keeps entries published within the last days days and not in the
// future, drops every feed averaging maxPerDay posts per day or more over the
// window, and returns the rest newest first. Entries without a link or a date
// are discarded and links are deduplicated.
func Recent(entries []crawler.FeedEntry, days int, maxPerDay float64, now time.Time) []crawler.FeedEntry {
	if days <= 0 {
		return nil
	}
	if maxPerDay <= 0 {
		maxPerDay = DefaultMaxPerDay
	}
	today := truncateDay(now)
	cutoff := today.AddDate(0, 0, -days)

	seen := make(map[string]struct{}, len(entries))
	perFeed := make(map[string]int)
	window := make([]crawler.FeedEntry, 0, len(entries))
	for _, e := range entries {
		if e.Link == "" || e.PublishedAt == nil {
			continue
		}
		if _, dup := seen[e.Link]; dup {
			continue
		}
		seen[e.Link] = struct{}{}
		day := truncateDay(*e.PublishedAt)
		if !day.After(cutoff) || day.After(today) {
			continue
		}
		perFeed[e.Feed]++
		window = append(window, e)
	}

	out := window[:0]
	for _, e := range window {
		if float64(perFeed[e.Feed])/float64(days) < maxPerDay {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].PublishedAt.After(*out[j].PublishedAt)
	})
	return out
}

// Links returns the content URLs of entries in order.
func Links(entries []crawler.FeedEntry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Link)
	}
	return out
}

// Without drops entries whose link is in known.
func Without(entries []crawler.FeedEntry, known []string) []crawler.FeedEntry {
	if len(known) == 0 {
		return entries
	}
	drop := make(map[string]struct{}, len(known))
	for _, k := range known {
		drop[k] = struct{}{}
	}
	out := make([]crawler.FeedEntry, 0, len(entries))
	for _, e := range entries {
		if _, ok := drop[e.Link]; !ok {
			out = append(out, e)
		}
	}
	return out
}

// EntryRows converts entries into rows for the content table.
func EntryRows(entries []crawler.FeedEntry, fetchedAt time.Time) []crawler.Row {
	rows := make([]crawler.Row, 0, len(entries))
	for _, e := range entries {
		var published any
		if e.PublishedAt != nil {
			published = *e.PublishedAt
		}
		rows = append(rows, crawler.Row{
			"rss":          e.Feed,
			"content_url":  e.Link,
			"title":        e.Title,
			"dt_published": published,
			"author":       e.Author,
			"description":  e.Summary,
			"dt_fetched":   fetchedAt,
		})
	}
	return rows
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
