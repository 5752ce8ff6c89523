// Package app builds the long-lived services shared by the CLI and the API.
// It acts as the dependency injection container: every adapter is chosen
// here from the loaded configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/JakeFAU/sitecorpus/internal/clock/system"
	"github.com/JakeFAU/sitecorpus/internal/config"
	"github.com/JakeFAU/sitecorpus/internal/corpus"
	"github.com/JakeFAU/sitecorpus/internal/crawler"
	"github.com/JakeFAU/sitecorpus/internal/feed"
	"github.com/JakeFAU/sitecorpus/internal/fetcher"
	collyfetcher "github.com/JakeFAU/sitecorpus/internal/fetcher/colly"
	"github.com/JakeFAU/sitecorpus/internal/fetcher/headless"
	"github.com/JakeFAU/sitecorpus/internal/hash/sha256"
	"github.com/JakeFAU/sitecorpus/internal/headless/detector"
	"github.com/JakeFAU/sitecorpus/internal/id/uuid"
	"github.com/JakeFAU/sitecorpus/internal/publisher/pubsub"
	"github.com/JakeFAU/sitecorpus/internal/site"
	"github.com/JakeFAU/sitecorpus/internal/storage/gcs"
	"github.com/JakeFAU/sitecorpus/internal/storage/local"
	"github.com/JakeFAU/sitecorpus/internal/storage/memory"
	"github.com/JakeFAU/sitecorpus/internal/storage/postgres"
	"github.com/JakeFAU/sitecorpus/internal/storage/sqlite"
	"github.com/JakeFAU/sitecorpus/internal/telemetry"
	"github.com/JakeFAU/sitecorpus/internal/worker"
)

// RowStore is the tabular persistence port: lookups plus appends.
type RowStore interface {
	crawler.URLStore
	crawler.RowWriter
}

// App holds the shared services for one process.
type App struct {
	cfg       config.Config
	logger    *zap.Logger
	http      crawler.Fetcher
	pages     crawler.PageFetcher
	prober    *feed.Prober
	feeds     *feed.Reader
	sites     *site.Reader
	rows      RowStore
	blobs     crawler.BlobStore
	publisher crawler.Publisher
	ids       crawler.IDGenerator
	clock     crawler.Clock
	closers   []func() error
}

// Option overrides one of the services New would otherwise build.
type Option func(*App)

// WithHTTPFetcher replaces the Colly fetcher.
func WithHTTPFetcher(f crawler.Fetcher) Option {
	return func(a *App) { a.http = f }
}

// WithRowStore replaces the configured row store.
func WithRowStore(s RowStore) Option {
	return func(a *App) { a.rows = s }
}

// WithBlobStore replaces the configured blob store.
func WithBlobStore(b crawler.BlobStore) Option {
	return func(a *App) { a.blobs = b }
}

// WithPublisher replaces the configured publisher.
func WithPublisher(p crawler.Publisher) Option {
	return func(a *App) { a.publisher = p }
}

// WithClock replaces the system clock.
func WithClock(c crawler.Clock) Option {
	return func(a *App) { a.clock = c }
}

// New initializes every service. It fails fast when a configured backend
// cannot be reached; anything already opened is closed again.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger, opts ...Option) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{cfg: cfg, logger: logger}
	for _, opt := range opts {
		opt(a)
	}
	if a.clock == nil {
		a.clock = system.New()
	}
	a.ids = uuid.New()

	if cfg.Telemetry.Enabled {
		tp, err := telemetry.InitTracerProvider(ctx, telemetry.Config{
			ServiceName: cfg.Telemetry.ServiceName,
			SampleRatio: cfg.Telemetry.SampleRatio,
		})
		if err != nil {
			return nil, fmt.Errorf("init tracer provider: %w", err)
		}
		a.closers = append(a.closers, func() error {
			return tp.Shutdown(context.Background())
		})
	}
	if err := a.initFetchers(); err != nil {
		a.Close()
		return nil, err
	}
	if err := a.initBackends(ctx); err != nil {
		a.Close()
		return nil, err
	}

	logger.Info("application services initialized",
		zap.String("store", cfg.Store.Driver),
		zap.String("blob", cfg.Blob.Driver),
		zap.Bool("headless", cfg.Headless.Enabled),
		zap.Bool("pubsub", a.publisher != nil),
		zap.Bool("tracing", cfg.Telemetry.Enabled),
	)
	return a, nil
}

func (a *App) initFetchers() error {
	cfg := a.cfg
	if a.http == nil {
		a.http = collyfetcher.New(collyfetcher.Config{
			UserAgent: cfg.Crawler.UserAgent,
			Timeout:   cfg.FetchTimeout(),
		})
	}

	var browser crawler.Fetcher = headless.NewNoop()
	var promote crawler.HeadlessDetector
	if cfg.Headless.Enabled {
		chrome, err := headless.NewChromedp(headless.Config{
			MaxParallel:       cfg.Headless.MaxParallel,
			UserAgent:         cfg.Crawler.UserAgent,
			NavigationTimeout: seconds(cfg.Headless.NavTimeoutSeconds),
			SettleDelay:       millis(cfg.Headless.SettleMs),
			ScrollPause:       millis(cfg.Headless.ScrollPauseMs),
			ScrollBudget:      seconds(cfg.Headless.ScrollBudgetSeconds),
			ExecPath:          cfg.Headless.ExecPath,
		}, a.logger.Named("headless"))
		if err != nil {
			return fmt.Errorf("init headless fetcher: %w", err)
		}
		browser = chrome
		promote = detector.NewHeuristic(cfg.Headless.PromotionThreshold, cfg.Headless.MinTextWords)
	}

	a.pages = fetcher.New(a.http, browser, promote, fetcher.Config{
		Timeout:         cfg.FetchTimeout(),
		HeadlessTimeout: seconds(cfg.Headless.NavTimeoutSeconds),
	}, a.logger.Named("fetcher"))

	a.prober = feed.NewProber(a.http, feed.Config{
		Suffixes:    cfg.Feed.Suffixes,
		Concurrency: cfg.Feed.Concurrency,
		Timeout:     seconds(cfg.Feed.TimeoutSeconds),
	}, a.logger.Named("feed"))
	a.feeds = feed.NewReader(a.http, seconds(cfg.Feed.TimeoutSeconds), a.logger.Named("feed"))

	hasher := sha256.New(sha256.WithCollapsedWhitespace())
	a.sites = site.NewReader(a.pages, a.prober, hasher, a.clock, a.defaultSiteConfig(), a.logger.Named("site"))
	return nil
}

func (a *App) initBackends(ctx context.Context) error {
	if a.rows == nil {
		rows, err := a.openRowStore(ctx)
		if err != nil {
			return err
		}
		a.rows = rows
	}
	if a.blobs == nil {
		blobs, err := a.openBlobStore(ctx)
		if err != nil {
			return err
		}
		a.blobs = blobs
	}
	if a.publisher == nil && a.cfg.PubSub.Enabled {
		pub, err := pubsub.New(ctx, pubsub.Config{ProjectID: a.cfg.PubSub.ProjectID})
		if err != nil {
			return fmt.Errorf("init pubsub: %w", err)
		}
		a.closers = append(a.closers, pub.Close)
		a.publisher = pub
	}
	return nil
}

func (a *App) openRowStore(ctx context.Context) (RowStore, error) {
	cfg := a.cfg.Store
	switch cfg.Driver {
	case config.DriverPostgres:
		a.logger.Info("connecting to postgres")
		store, err := postgres.New(ctx, postgres.Config{
			DSN:       cfg.DSN,
			URLColumn: cfg.URLColumn,
			MaxConns:  cfg.MaxConns,
		})
		if err != nil {
			return nil, fmt.Errorf("init postgres store: %w", err)
		}
		a.closers = append(a.closers, func() error {
			store.Close()
			return nil
		})
		return store, nil
	case config.DriverSQLite:
		store, err := sqlite.Open(cfg.SQLitePath, cfg.URLColumn)
		if err != nil {
			return nil, fmt.Errorf("init sqlite store: %w", err)
		}
		a.closers = append(a.closers, store.Close)
		return store, nil
	case config.DriverMemory, "":
		return memory.NewRowStore(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

func (a *App) openBlobStore(ctx context.Context) (crawler.BlobStore, error) {
	cfg := a.cfg.Blob
	switch cfg.Driver {
	case config.DriverGCS:
		client, err := storage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("create storage client: %w", err)
		}
		a.closers = append(a.closers, client.Close)
		store, err := gcs.New(client, gcs.Config{Bucket: cfg.Bucket})
		if err != nil {
			return nil, fmt.Errorf("init gcs blob store: %w", err)
		}
		return store, nil
	case config.DriverLocal:
		store, err := local.New(local.Config{BaseDir: cfg.BaseDir})
		if err != nil {
			return nil, fmt.Errorf("init local blob store: %w", err)
		}
		return store, nil
	case config.DriverMemory, "":
		return memory.NewBlobStore(), nil
	default:
		return nil, fmt.Errorf("unknown blob driver %q", cfg.Driver)
	}
}

func (a *App) defaultSiteConfig() site.Config {
	return site.Config{
		Mode:           a.cfg.FetchMode(),
		JoinChar:       a.cfg.Crawler.JoinChar,
		BlogSearch:     a.cfg.Crawler.BlogSearch,
		AboutSearch:    a.cfg.Crawler.AboutSearch,
		MaxBlogFollow:  a.cfg.Crawler.MaxBlogFollow,
		ProbeBlogLimit: a.cfg.Crawler.ProbeBlogLimit,
	}
}

// Config returns the loaded configuration.
func (a *App) Config() config.Config { return a.cfg }

// Logger returns the root logger.
func (a *App) Logger() *zap.Logger { return a.logger }

// Rows returns the configured row store.
func (a *App) Rows() RowStore { return a.rows }

// Blobs returns the configured blob store.
func (a *App) Blobs() crawler.BlobStore { return a.blobs }

// Prober returns the feed prober.
func (a *App) Prober() *feed.Prober { return a.prober }

// Feeds returns the feed reader.
func (a *App) Feeds() *feed.Reader { return a.feeds }

// SiteConfig returns the pipeline settings from configuration. Callers copy
// and adjust it per request.
func (a *App) SiteConfig() site.Config { return a.sites.Config() }

// NewCrawler builds a corpus crawler running the site pipeline with siteCfg.
// concurrency <= 0 uses crawler.concurrency.
func (a *App) NewCrawler(siteCfg site.Config, concurrency int) *corpus.Crawler {
	if concurrency <= 0 {
		concurrency = a.cfg.Crawler.Concurrency
	}
	w := worker.New(a.sites.WithOptions(siteCfg), a.blobs, a.publisher, a.clock, worker.Config{
		BlobPrefix: a.cfg.Blob.Prefix,
		Topic:      a.cfg.PubSub.Topic,
	}, a.logger.Named("worker"))
	return corpus.NewCrawler(w, a.ids, a.logger.Named("corpus"), corpus.WithConcurrency(concurrency))
}

// Close releases every backend. Errors are logged, not returned.
func (a *App) Close() {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	if err := errors.Join(errs...); err != nil {
		a.logger.Warn("error closing application services", zap.Error(err))
	}
	_ = a.logger.Sync()
}

func seconds(n int) time.Duration { return time.Duration(n) * time.Second }

func millis(n int) time.Duration { return time.Duration(n) * time.Millisecond }
