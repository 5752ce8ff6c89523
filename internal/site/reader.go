// Package site runs the per-URL pipeline: fetch, extract text, classify links,
// then optionally follow blog pages for feeds and merge the about page.
package site

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/sitecorpus/internal/crawler"
	"github.com/JakeFAU/sitecorpus/internal/extract"
	"github.com/JakeFAU/sitecorpus/internal/links"
)

// Config toggles the optional pipeline stages.
type Config struct {
	Mode           crawler.Mode
	JoinChar       string
	BlogSearch     bool
	AboutSearch    bool
	MaxBlogFollow  int
	ProbeBlogLimit int
}

// DefaultConfig returns the pipeline defaults: plain HTTP with blog search on.
func DefaultConfig() Config {
	return Config{
		Mode:           crawler.ModeHTTP,
		JoinChar:       extract.DefaultJoin,
		BlogSearch:     true,
		MaxBlogFollow:  5,
		ProbeBlogLimit: 5,
	}
}

// Reader implements crawler.PageReader.
type Reader struct {
	fetcher crawler.PageFetcher
	prober  crawler.FeedProber
	hasher  crawler.Hasher
	clock   crawler.Clock
	cfg     Config
	logger  *zap.Logger
}

// NewReader wires a Reader. prober, hasher and clock may be nil.
func NewReader(
	fetcher crawler.PageFetcher,
	prober crawler.FeedProber,
	hasher crawler.Hasher,
	clock crawler.Clock,
	cfg Config,
	logger *zap.Logger,
) *Reader {
	if cfg.Mode == "" {
		cfg.Mode = crawler.ModeHTTP
	}
	if cfg.JoinChar == "" {
		cfg.JoinChar = extract.DefaultJoin
	}
	if cfg.MaxBlogFollow <= 0 {
		cfg.MaxBlogFollow = 5
	}
	if cfg.ProbeBlogLimit <= 0 {
		cfg.ProbeBlogLimit = 5
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reader{
		fetcher: fetcher,
		prober:  prober,
		hasher:  hasher,
		clock:   clock,
		cfg:     cfg,
		logger:  logger,
	}
}

// WithOptions returns a copy of r running with cfg.
func (r *Reader) WithOptions(cfg Config) *Reader {
	return NewReader(r.fetcher, r.prober, r.hasher, r.clock, cfg, r.logger)
}

// Config returns the active configuration.
func (r *Reader) Config() Config {
	return r.cfg
}

// Read runs the pipeline for url. Fetch failures are reported in the record;
// the error is only set when ctx ends before the pipeline finishes.
func (r *Reader) Read(ctx context.Context, url string) (*crawler.PageRecord, error) {
	record := r.readPlain(ctx, url)
	if record.Succeeded() {
		if r.cfg.BlogSearch {
			r.searchFeeds(ctx, record)
		}
		if r.cfg.AboutSearch {
			r.mergeAbout(ctx, record)
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return record, nil
}

func (r *Reader) readPlain(ctx context.Context, url string) *crawler.PageRecord {
	result := r.fetcher.Fetch(ctx, url, r.cfg.Mode)
	record := &crawler.PageRecord{
		URL:            url,
		ResolvedURL:    result.ResolvedURL,
		StatusCode:     result.StatusCode,
		FetchSucceeded: result.Succeeded(),
		UsedHeadless:   result.UsedHeadless,
		FetchedAt:      r.now(),
	}
	if record.ResolvedURL == "" {
		record.ResolvedURL = url
	}
	record.BaseDomain = links.BaseDomain(record.ResolvedURL)
	record.BaseDomainAliases = crawler.SortedUnique([]string{
		links.BaseDomain(url),
		record.BaseDomain,
	})
	if !result.Succeeded() {
		record.FetchError = result.Err.Error()
		return record
	}
	if result.ParseErr != nil {
		r.logger.Debug("page did not parse", zap.String("url", url), zap.Error(result.ParseErr))
	}

	if r.hasher != nil {
		sum, err := r.hasher.Hash(result.Body)
		if err != nil {
			r.logger.Warn("hash page body", zap.String("url", url), zap.Error(err))
		}
		record.ContentHash = sum
	}
	record.Text = extract.Text(result.Document, r.cfg.JoinChar)
	record.Links = links.Classify(result.Document, record.BaseDomain, record.BaseDomainAliases)
	record.AboutLinks = links.AboutLinks(record.Links.Internal)
	return record
}

// searchFeeds fills an empty feed set from the site's blog pages, and failing
// that from conventional feed locations.
func (r *Reader) searchFeeds(ctx context.Context, record *crawler.PageRecord) {
	if len(record.Links.RSS) > 0 {
		return
	}
	blogs := append([]string(nil), record.Links.Blog...)
	links.SortByLength(blogs)

	var feeds []string
	for _, blog := range head(blogs, r.cfg.MaxBlogFollow) {
		if ctx.Err() != nil {
			return
		}
		page := r.readPlain(ctx, blog)
		feeds = append(feeds, page.Links.RSS...)
	}

	if len(feeds) == 0 && r.prober != nil {
		bases := append([]string{record.BaseDomain}, head(blogs, r.cfg.ProbeBlogLimit)...)
		feeds = r.prober.Probe(ctx, bases)
	}
	if len(feeds) > 0 {
		r.logger.Debug("feeds found by search",
			zap.String("url", record.URL),
			zap.Strings("feeds", feeds),
		)
		record.Links = record.Links.WithFeeds(feeds)
	}
}

func (r *Reader) mergeAbout(ctx context.Context, record *crawler.PageRecord) {
	if len(record.AboutLinks) == 0 {
		return
	}
	about := r.readPlain(ctx, record.AboutLinks[0])
	if !about.Succeeded() || about.Text == "" {
		return
	}
	record.Text = strings.TrimSpace(about.Text + r.cfg.JoinChar + record.Text)
}

func (r *Reader) now() time.Time {
	if r.clock == nil {
		return time.Now().UTC()
	}
	return r.clock.Now()
}

func head(values []string, n int) []string {
	if len(values) <= n {
		return values
	}
	return values[:n]
}
