// Package fetcher turns URLs into parsed FetchResults, choosing between the
// plain HTTP fetcher and the headless browser.
package fetcher

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/JakeFAU/sitecorpus/internal/crawler"
	"github.com/JakeFAU/sitecorpus/internal/metrics"
	"github.com/JakeFAU/sitecorpus/internal/telemetry"
)

// Config bounds every fetch.
type Config struct {
	Timeout         time.Duration
	HeadlessTimeout time.Duration
}

// PageFetcher implements crawler.PageFetcher.
type PageFetcher struct {
	http     crawler.Fetcher
	headless crawler.Fetcher
	detector crawler.HeadlessDetector
	cfg      Config
	logger   *zap.Logger
	tracer   trace.Tracer
}

// Option customizes a PageFetcher.
type Option func(*PageFetcher)

// WithTracerProvider traces fetches with tp instead of the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(p *PageFetcher) { p.tracer = tp.Tracer(telemetry.InstrumentationName) }
}

// New builds a PageFetcher. headless and detector may be nil; headless
// requests then fail and auto mode never promotes.
func New(
	httpFetcher crawler.Fetcher,
	headlessFetcher crawler.Fetcher,
	detector crawler.HeadlessDetector,
	cfg Config,
	logger *zap.Logger,
	opts ...Option,
) *PageFetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.HeadlessTimeout <= 0 {
		cfg.HeadlessTimeout = 45 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &PageFetcher{
		http:     httpFetcher,
		headless: headlessFetcher,
		detector: detector,
		cfg:      cfg,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.tracer == nil {
		p.tracer = telemetry.Tracer()
	}
	return p
}

// Fetch retrieves url in the given mode. It never returns an error: fetch
// failures are carried in FetchResult.Err and parse failures in ParseErr.
func (p *PageFetcher) Fetch(ctx context.Context, url string, mode crawler.Mode) crawler.FetchResult {
	ctx, span := p.tracer.Start(ctx, "fetcher.Fetch", trace.WithAttributes(
		attribute.String("url.full", url),
		attribute.String("fetch.mode", string(mode)),
	))
	defer span.End()

	start := time.Now()
	resp, err := p.fetch(ctx, url, mode)
	result := buildResult(url, resp, err)
	result.Duration = time.Since(start)

	metrics.ObserveFetch(string(mode), result.Duration)
	span.SetAttributes(
		attribute.Int("http.response.status_code", result.StatusCode),
		attribute.Bool("fetch.used_headless", result.UsedHeadless),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")
		p.logger.Debug("fetch failed",
			zap.String("url", url),
			zap.String("mode", string(mode)),
			zap.Error(err),
		)
	}
	return result
}

func (p *PageFetcher) fetch(ctx context.Context, url string, mode crawler.Mode) (crawler.FetchResponse, error) {
	switch mode {
	case crawler.ModeHeadless:
		return p.do(ctx, p.headless, url, p.cfg.HeadlessTimeout)
	case crawler.ModeAuto:
		resp, err := p.do(ctx, p.http, url, p.cfg.Timeout)
		if err != nil || p.detector == nil || !p.detector.ShouldPromote(resp) {
			return resp, err
		}
		rendered, err := p.do(ctx, p.headless, url, p.cfg.HeadlessTimeout)
		if err != nil {
			p.logger.Warn("headless promotion failed, keeping http result",
				zap.String("url", url),
				zap.Error(err),
			)
			return resp, nil
		}
		return rendered, nil
	default:
		return p.do(ctx, p.http, url, p.cfg.Timeout)
	}
}

func (p *PageFetcher) do(
	ctx context.Context,
	f crawler.Fetcher,
	url string,
	timeout time.Duration,
) (crawler.FetchResponse, error) {
	if f == nil {
		return crawler.FetchResponse{}, crawler.ErrHeadlessDisabled
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	resp, err := f.Fetch(ctx, crawler.FetchRequest{URL: url, Timeout: timeout})
	if err != nil {
		return crawler.FetchResponse{}, fmt.Errorf("fetch %s: %w", url, err)
	}
	return resp, nil
}

func buildResult(url string, resp crawler.FetchResponse, err error) crawler.FetchResult {
	if err != nil {
		return crawler.FetchResult{
			RequestedURL: url,
			ResolvedURL:  url,
			StatusCode:   crawler.StatusCodeOf(err),
			Err:          err,
		}
	}
	resolved := resp.URL
	if resolved == "" {
		resolved = url
	}
	result := crawler.FetchResult{
		RequestedURL: url,
		ResolvedURL:  resolved,
		StatusCode:   resp.StatusCode,
		Body:         resp.Body,
		UsedHeadless: resp.UsedHeadless,
	}
	doc, parseErr := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
	if parseErr != nil {
		result.ParseErr = fmt.Errorf("parse html: %w", parseErr)
		return result
	}
	result.Document = doc
	return result
}
