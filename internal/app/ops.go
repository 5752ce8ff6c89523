package app

import (
	"context"
	"fmt"
	"path"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/sitecorpus/internal/corpus"
	"github.com/JakeFAU/sitecorpus/internal/crawler"
	"github.com/JakeFAU/sitecorpus/internal/feed"
	"github.com/JakeFAU/sitecorpus/internal/site"
)

// CrawlRequest describes one batch crawl and what to do with the result.
type CrawlRequest struct {
	URLs        []string
	CrawlID     string
	Concurrency int
	Site        site.Config
	// FilterNew drops pages whose resolved URL is already in the pages table.
	FilterNew bool
	// Store appends page and backlink rows to the row store.
	Store bool
	// Snapshot saves the corpus to the blob store.
	Snapshot bool
}

// CrawlReport summarizes a finished crawl.
type CrawlReport struct {
	CrawlID           string `json:"crawl_id"`
	Requested         int    `json:"requested"`
	Succeeded         int    `json:"succeeded"`
	Filtered          int    `json:"filtered"`
	PagesInserted     int64  `json:"pages_inserted"`
	BacklinksInserted int64  `json:"backlinks_inserted"`
	SnapshotURI       string `json:"snapshot_uri,omitempty"`
}

// Crawl runs the corpus crawler and then the requested persistence steps.
// The corpus is returned even when persistence fails.
func (a *App) Crawl(ctx context.Context, req CrawlRequest) (*corpus.Corpus, CrawlReport, error) {
	c := a.NewCrawler(req.Site, req.Concurrency)
	var result *corpus.Corpus
	if req.CrawlID != "" {
		result = c.CrawlWithID(ctx, req.CrawlID, req.URLs)
	} else {
		result = c.Crawl(ctx, req.URLs)
	}

	report := CrawlReport{
		CrawlID:   result.CrawlID(),
		Requested: result.Count(),
		Succeeded: len(result.Succeeded()),
	}
	if err := ctx.Err(); err != nil {
		return result, report, err
	}

	tables := a.cfg.Store
	if req.FilterNew {
		removed, err := result.FilterNew(ctx, a.rows, tables.PagesTable)
		if err != nil {
			return result, report, err
		}
		report.Filtered = removed
	}

	if req.Store {
		now := a.clock.Now()
		n, err := a.insert(ctx, tables.PagesTable, result.PageRows(now, report.CrawlID))
		if err != nil {
			return result, report, err
		}
		report.PagesInserted = n
		n, err = a.insert(ctx, tables.BacklinksTable, corpus.Flatten(result.Backlinks(now, report.CrawlID)))
		if err != nil {
			return result, report, err
		}
		report.BacklinksInserted = n
	}

	if req.Snapshot {
		uri, err := result.Save(ctx, a.blobs, a.SnapshotPath(report.CrawlID))
		if err != nil {
			return result, report, err
		}
		report.SnapshotURI = uri
	}

	a.logger.Info("crawl complete",
		zap.String("crawl_id", report.CrawlID),
		zap.Int("requested", report.Requested),
		zap.Int("succeeded", report.Succeeded),
		zap.Int("filtered", report.Filtered),
		zap.Int64("pages_inserted", report.PagesInserted),
	)
	return result, report, nil
}

// SnapshotPath is where the corpus of crawlID is saved in the blob store.
func (a *App) SnapshotPath(crawlID string) string {
	if crawlID == "" {
		crawlID = "adhoc-" + a.clock.Now().Format("20060102T150405Z")
	}
	return path.Join(a.cfg.Blob.Prefix, crawlID, "corpus.json")
}

// LoadSnapshot reads a corpus saved by an earlier crawl.
func (a *App) LoadSnapshot(ctx context.Context, crawlID string) (*corpus.Corpus, error) {
	return corpus.Load(ctx, a.blobs, a.SnapshotPath(crawlID), a.logger.Named("corpus"))
}

func (a *App) insert(ctx context.Context, table string, rows []crawler.Row) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	n, err := a.rows.InsertRows(ctx, table, rows)
	if err != nil {
		return 0, fmt.Errorf("insert into %s: %w", table, err)
	}
	return n, nil
}

// FeedsRequest describes one feed refresh.
type FeedsRequest struct {
	URLs []string
	// Days and MaxPerDay default to the feed configuration when zero.
	Days      int
	MaxPerDay float64
	// Now pins the recency window; zero means the app clock.
	Now   time.Time
	Store bool
}

// FeedsReport summarizes a feed refresh.
type FeedsReport struct {
	Feeds    int   `json:"feeds"`
	Entries  int   `json:"entries"`
	Recent   int   `json:"recent"`
	Fresh    int   `json:"fresh"`
	Inserted int64 `json:"inserted"`

	// Stats describes every feed that was read, before the recency window.
	Stats []feed.Stats `json:"feed_stats"`
}

// RefreshFeeds reads every feed, keeps the recent entries, drops the ones
// already stored as pages and optionally inserts the rest into the entries
// table. It returns the fresh entries, newest first.
func (a *App) RefreshFeeds(ctx context.Context, req FeedsRequest) ([]crawler.FeedEntry, FeedsReport, error) {
	days := req.Days
	if days <= 0 {
		days = a.cfg.Feed.RecentDays
	}
	maxPerDay := req.MaxPerDay
	if maxPerDay <= 0 {
		maxPerDay = a.cfg.Feed.MaxPerDay
	}
	now := req.Now
	if now.IsZero() {
		now = a.clock.Now()
	}

	report := FeedsReport{Feeds: len(req.URLs)}
	entries := a.feeds.ReadAll(ctx, req.URLs)
	report.Entries = len(entries)
	report.Stats = feed.DescribeAll(entries)
	recent := feed.Recent(entries, days, maxPerDay, now)
	report.Recent = len(recent)
	if err := ctx.Err(); err != nil {
		return nil, report, err
	}

	known, err := a.rows.URLsAlreadyStored(ctx, a.cfg.Store.PagesTable, feed.Links(recent))
	if err != nil {
		return nil, report, fmt.Errorf("check stored entries: %w", err)
	}
	fresh := feed.Without(recent, known)
	report.Fresh = len(fresh)

	if req.Store {
		n, err := a.insert(ctx, a.cfg.Store.EntriesTable, feed.EntryRows(fresh, now))
		if err != nil {
			return fresh, report, err
		}
		report.Inserted = n
	}

	a.logger.Info("feeds refreshed",
		zap.Int("feeds", report.Feeds),
		zap.Int("entries", report.Entries),
		zap.Int("recent", report.Recent),
		zap.Int("fresh", report.Fresh),
	)
	return fresh, report, nil
}

// ProbeFeeds guesses feed locations under each base URL.
func (a *App) ProbeFeeds(ctx context.Context, bases []string) []string {
	return a.prober.Probe(ctx, bases)
}
