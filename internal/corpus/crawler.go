package corpus

import (
	"context"
	"math/rand/v2"

	"go.uber.org/zap"

	"github.com/JakeFAU/sitecorpus/internal/crawler"
	"github.com/JakeFAU/sitecorpus/internal/dispatcher"
	"github.com/JakeFAU/sitecorpus/internal/metrics"
)

// Processor turns one URL into a PageRecord.
type Processor interface {
	Process(ctx context.Context, crawlID, url string) (*crawler.PageRecord, error)
}

// Shuffler reorders the work queue in place.
type Shuffler func(urls []string)

// RandomShuffle spreads consecutive URLs of one site across the pool.
func RandomShuffle(urls []string) {
	rand.Shuffle(len(urls), func(i, j int) { urls[i], urls[j] = urls[j], urls[i] })
}

// Crawler reads batches of URLs into a Corpus.
type Crawler struct {
	processor   Processor
	ids         crawler.IDGenerator
	concurrency int
	shuffle     Shuffler
	logger      *zap.Logger
}

// Option customizes a Crawler.
type Option func(*Crawler)

// WithShuffler replaces the random shuffle.
func WithShuffler(s Shuffler) Option {
	return func(c *Crawler) { c.shuffle = s }
}

// WithConcurrency sets the worker pool size.
func WithConcurrency(n int) Option {
	return func(c *Crawler) { c.concurrency = n }
}

// NewCrawler builds a Crawler. ids may be nil, in which case crawls have no id.
func NewCrawler(processor Processor, ids crawler.IDGenerator, logger *zap.Logger, opts ...Option) *Crawler {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Crawler{
		processor:   processor,
		ids:         ids,
		concurrency: 10,
		shuffle:     RandomShuffle,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Crawl reads every distinct URL and returns once all tasks have finished.
// Failed tasks leave a nil entry, so Count always equals the number of
// distinct inputs.
func (c *Crawler) Crawl(ctx context.Context, urls []string) *Corpus {
	crawlID := ""
	if c.ids != nil {
		id, err := c.ids.NewID()
		if err != nil {
			c.logger.Warn("generate crawl id", zap.Error(err))
		}
		crawlID = id
	}
	return c.CrawlWithID(ctx, crawlID, urls)
}

// CrawlWithID is Crawl with a caller supplied crawl id.
func (c *Crawler) CrawlWithID(ctx context.Context, crawlID string, urls []string) *Corpus {
	queue := distinct(urls)
	out := New(crawlID, queue, c.logger)
	if c.shuffle != nil {
		c.shuffle(queue)
	}

	logger := c.logger.With(zap.String("crawl_id", crawlID))
	logger.Info("crawl started", zap.Int("urls", len(queue)), zap.Int("concurrency", c.concurrency))

	failures := dispatcher.New(c.concurrency, logger).Run(ctx, queue, func(ctx context.Context, url string) error {
		record, err := c.processor.Process(ctx, crawlID, url)
		if err != nil {
			return err
		}
		out.Set(url, record)
		return nil
	})
	for _, f := range failures {
		metrics.ObserveTaskFailure()
		logger.Warn("crawl task failed",
			zap.String("url", f.Key),
			zap.Bool("panicked", f.Panicked),
			zap.Error(f.Err),
		)
	}
	logger.Info("crawl finished",
		zap.Int("urls", out.Count()),
		zap.Int("succeeded", len(out.Succeeded())),
		zap.Int("failed_tasks", len(failures)),
	)
	return out
}

func distinct(urls []string) []string {
	seen := make(map[string]struct{}, len(urls))
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}
