package feed

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"go.uber.org/zap"

	"github.com/JakeFAU/sitecorpus/internal/crawler"
	"github.com/JakeFAU/sitecorpus/internal/links"
)

const httpPrefix = "http"

var (
	dashedDate   = regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)
	slashedDate  = regexp.MustCompile(`\d{4}/\d{2}/\d{2}`)
	doubleSlash  = regexp.MustCompile(`([^:])//+`)
	extraLayouts = []string{
		time.RFC1123Z,
		time.RFC1123,
		time.RFC3339,
		"2006-01-02 15:04:05",
		"2006-01-02",
		"2006/01/02",
	}
)

// Reader downloads feeds and turns their items into FeedEntry values.
type Reader struct {
	fetcher crawler.Fetcher
	timeout time.Duration
	logger  *zap.Logger
}

// NewReader builds a Reader.
func NewReader(fetcher crawler.Fetcher, timeout time.Duration, logger *zap.Logger) *Reader {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reader{fetcher: fetcher, timeout: timeout, logger: logger}
}

// Read fetches feedURL and returns its entries.
func (r *Reader) Read(ctx context.Context, feedURL string) ([]crawler.FeedEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	resp, err := r.fetcher.Fetch(ctx, crawler.FetchRequest{URL: feedURL, Timeout: r.timeout})
	if err != nil {
		return nil, fmt.Errorf("fetch feed %s: %w", feedURL, err)
	}
	parsed, err := gofeed.NewParser().ParseString(string(resp.Body))
	if err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", feedURL, err)
	}
	entries := parseEntries(feedURL, parsed)
	r.logger.Debug("feed read",
		zap.String("feed", feedURL),
		zap.Int("items", len(parsed.Items)),
		zap.Int("entries", len(entries)),
	)
	return entries, nil
}

// ReadAll reads every feed, logging and skipping the ones that fail.
func (r *Reader) ReadAll(ctx context.Context, feedURLs []string) []crawler.FeedEntry {
	var all []crawler.FeedEntry
	for _, feedURL := range feedURLs {
		if ctx.Err() != nil {
			break
		}
		entries, err := r.Read(ctx, feedURL)
		if err != nil {
			r.logger.Warn("feed read failed", zap.String("feed", feedURL), zap.Error(err))
			continue
		}
		all = append(all, entries...)
	}
	return all
}

func parseEntries(feedURL string, parsed *gofeed.Feed) []crawler.FeedEntry {
	base := links.BaseDomain(feedURL)
	entries := make([]crawler.FeedEntry, 0, len(parsed.Items))
	dated := false
	for _, item := range parsed.Items {
		entry := crawler.FeedEntry{
			Feed:    feedURL,
			Title:   item.Title,
			Link:    fixLink(itemLink(item), base),
			Author:  itemAuthor(item),
			Summary: item.Description,
		}
		switch {
		case item.PublishedParsed != nil:
			entry.Published = item.Published
			entry.PublishedAt = utc(item.PublishedParsed)
		case item.UpdatedParsed != nil:
			entry.Published = item.Updated
			entry.PublishedAt = utc(item.UpdatedParsed)
		case item.Published != "":
			entry.Published = item.Published
			entry.PublishedAt = parseDate(item.Published)
		default:
			entry.Published = item.Updated
			entry.PublishedAt = parseDate(item.Updated)
		}
		if entry.Published != "" {
			dated = true
		}
		entries = append(entries, entry)
	}
	if !dated {
		datesFromLinks(entries)
	}
	return entries
}

// datesFromLinks fills publication dates from dates embedded in the links.
// Dashed dates are preferred when any link carries one.
func datesFromLinks(entries []crawler.FeedEntry) {
	for _, pattern := range []*regexp.Regexp{dashedDate, slashedDate} {
		found := false
		for i := range entries {
			if raw := pattern.FindString(entries[i].Link); raw != "" {
				entries[i].Published = raw
				entries[i].PublishedAt = parseDate(raw)
				found = true
			}
		}
		if found {
			return
		}
	}
}

func itemLink(item *gofeed.Item) string {
	if item.Link != "" {
		return item.Link
	}
	if strings.HasPrefix(item.GUID, httpPrefix) {
		return item.GUID
	}
	return ""
}

func itemAuthor(item *gofeed.Item) string {
	if item.Author != nil && item.Author.Name != "" {
		return item.Author.Name
	}
	names := make([]string, 0, len(item.Authors))
	for _, a := range item.Authors {
		if a != nil && a.Name != "" {
			names = append(names, a.Name)
		}
	}
	return strings.Join(names, ", ")
}

// fixLink makes relative links absolute and collapses duplicate slashes
// outside the scheme separator.
func fixLink(link, base string) string {
	link = strings.TrimSpace(link)
	if link == "" {
		return ""
	}
	if !strings.HasPrefix(link, httpPrefix) {
		link = base + link
	}
	return doubleSlash.ReplaceAllString(link, "$1/")
}

func parseDate(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	for _, layout := range extraLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return utc(&t)
		}
	}
	return nil
}

func utc(t *time.Time) *time.Time {
	u := t.UTC()
	return &u
}
