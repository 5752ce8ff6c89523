package corpus

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/sitecorpus/internal/crawler"
)

// FilterNew drops every page whose resolved URL is already stored in table
// and returns how many pages were removed.
func (c *Corpus) FilterNew(ctx context.Context, store crawler.URLStore, table string) (int, error) {
	byResolved := map[string][]string{}
	for u, r := range c.Records() {
		if r.Succeeded() {
			byResolved[r.ResolvedURL] = append(byResolved[r.ResolvedURL], u)
		}
	}
	if len(byResolved) == 0 {
		return 0, nil
	}
	resolved := make([]string, 0, len(byResolved))
	for r := range byResolved {
		resolved = append(resolved, r)
	}
	sort.Strings(resolved)

	existing, err := store.URLsAlreadyStored(ctx, table, resolved)
	if err != nil {
		return 0, fmt.Errorf("check stored urls: %w", err)
	}
	removed := 0
	for _, r := range existing {
		for _, u := range byResolved[r] {
			c.Delete(u)
			removed++
		}
	}
	c.logger.Info("filtered stored pages", zap.String("table", table), zap.Int("removed", removed))
	return removed, nil
}

// Backlinks returns, per URL, one row for every external link of a
// successful page. Pages without external links map to nil.
func (c *Corpus) Backlinks(now time.Time, crawlID string) map[string][]crawler.Row {
	out := map[string][]crawler.Row{}
	for u, r := range c.Records() {
		if !r.Succeeded() {
			continue
		}
		if len(r.Links.External) == 0 {
			out[u] = nil
			continue
		}
		rows := make([]crawler.Row, 0, len(r.Links.External))
		for _, to := range r.Links.External {
			rows = append(rows, crawler.Row{
				"from_url":      r.URL,
				"from_resolved": r.ResolvedURL,
				"to_url":        to,
				"dt_added":      now,
				"crawl_id":      crawlID,
			})
		}
		out[u] = rows
	}
	return out
}

// Flatten concatenates per-URL rows in URL order.
func Flatten(perURL map[string][]crawler.Row) []crawler.Row {
	urls := make([]string, 0, len(perURL))
	for u := range perURL {
		urls = append(urls, u)
	}
	sort.Strings(urls)
	var out []crawler.Row
	for _, u := range urls {
		out = append(out, perURL[u]...)
	}
	return out
}

// PageRows returns one content row per successful page, ordered by URL. The
// url column holds the resolved URL so FilterNew can match against it.
func (c *Corpus) PageRows(now time.Time, crawlID string) []crawler.Row {
	records := c.Succeeded()
	rows := make([]crawler.Row, 0, len(records))
	for _, r := range records {
		rows = append(rows, crawler.Row{
			"url":           r.ResolvedURL,
			"requested_url": r.URL,
			"base_domain":   r.BaseDomain,
			"text":          r.Text,
			"word_count":    len(strings.Fields(r.Text)),
			"status_code":   r.StatusCode,
			"content_hash":  r.ContentHash,
			"used_headless": r.UsedHeadless,
			"rss":           r.Links.RSS,
			"about_links":   r.AboutLinks,
			"dt_fetched":    r.FetchedAt,
			"dt_added":      now,
			"crawl_id":      crawlID,
		})
	}
	return rows
}
