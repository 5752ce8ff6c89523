// Package feed finds, validates and reads RSS and Atom feeds.
package feed

import (
	"context"
	"sync"
	"time"

	"github.com/mmcdole/gofeed"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/JakeFAU/sitecorpus/internal/crawler"
	"github.com/JakeFAU/sitecorpus/internal/links"
	"github.com/JakeFAU/sitecorpus/internal/metrics"
)

// DefaultSuffixes are the conventional feed locations tried under each base URL.
var DefaultSuffixes = []string{"index.xml", "feed/", "feed.xml", "rss/"}

// Config tunes the prober.
type Config struct {
	Suffixes    []string
	Concurrency int
	Timeout     time.Duration
}

// Prober guesses feed URLs and keeps the ones that parse into a non-empty feed.
type Prober struct {
	fetcher crawler.Fetcher
	cfg     Config
	logger  *zap.Logger
}

// NewProber builds a Prober that downloads candidates with fetcher.
func NewProber(fetcher crawler.Fetcher, cfg Config, logger *zap.Logger) *Prober {
	if len(cfg.Suffixes) == 0 {
		cfg.Suffixes = DefaultSuffixes
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 8
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Prober{fetcher: fetcher, cfg: cfg, logger: logger}
}

// Candidates lists every URL Probe would try for bases, in order.
func (p *Prober) Candidates(bases []string) []string {
	out := make([]string, 0, len(bases)*len(p.cfg.Suffixes))
	for _, base := range bases {
		base = links.TrimTrailingSlash(base)
		if base == "" {
			continue
		}
		for _, suffix := range p.cfg.Suffixes {
			out = append(out, base+"/"+suffix)
		}
	}
	return crawler.SortedUnique(out)
}

// Probe returns the sorted set of candidate URLs that hold a valid feed with
// at least one item. Unreachable or malformed candidates are skipped.
func (p *Prober) Probe(ctx context.Context, bases []string) []string {
	candidates := p.Candidates(bases)

	var (
		mu       sync.Mutex
		accepted []string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Concurrency)
	for _, candidate := range candidates {
		g.Go(func() error {
			ok := p.isFeed(gctx, candidate)
			metrics.ObserveFeedProbe(ok)
			if ok {
				mu.Lock()
				accepted = append(accepted, candidate)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	p.logger.Debug("feed probe finished",
		zap.Int("candidates", len(candidates)),
		zap.Int("accepted", len(accepted)),
	)
	return crawler.SortedUnique(accepted)
}

func (p *Prober) isFeed(ctx context.Context, candidate string) bool {
	if ctx.Err() != nil {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	resp, err := p.fetcher.Fetch(ctx, crawler.FetchRequest{URL: candidate, Timeout: p.cfg.Timeout})
	if err != nil {
		p.logger.Debug("feed candidate unreachable", zap.String("url", candidate), zap.Error(err))
		return false
	}
	parsed, err := gofeed.NewParser().ParseString(string(resp.Body))
	if err != nil {
		return false
	}
	return len(parsed.Items) > 0
}
