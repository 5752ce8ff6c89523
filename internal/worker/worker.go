// Package worker runs the site pipeline for a single URL and reports the result.
package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/sitecorpus/internal/crawler"
	"github.com/JakeFAU/sitecorpus/internal/metrics"
)

// Config controls Worker behavior.
type Config struct {
	ContentType string
	BlobPrefix  string
	Topic       string
}

// Worker reads pages and fans the records out to metrics, blobs and Pub/Sub.
type Worker struct {
	reader    crawler.PageReader
	blobStore crawler.BlobStore
	publisher crawler.Publisher
	clock     crawler.Clock
	cfg       Config
	logger    *zap.Logger
}

// New constructs a Worker. blobStore and publisher are optional.
func New(
	reader crawler.PageReader,
	blobStore crawler.BlobStore,
	publisher crawler.Publisher,
	clock crawler.Clock,
	cfg Config,
	logger *zap.Logger,
) *Worker {
	if cfg.ContentType == "" {
		cfg.ContentType = "application/json"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{
		reader:    reader,
		blobStore: blobStore,
		publisher: publisher,
		clock:     clock,
		cfg:       cfg,
		logger:    logger,
	}
}

// Process reads url as part of crawlID. The record is returned even when the
// fetch failed; the error is only set when the pipeline itself failed.
func (w *Worker) Process(ctx context.Context, crawlID, url string) (*crawler.PageRecord, error) {
	metrics.IncActiveWorkers()
	defer metrics.DecActiveWorkers()

	record, err := w.reader.Read(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", url, err)
	}
	if record == nil {
		return nil, fmt.Errorf("read %s: no record", url)
	}

	if !record.Succeeded() {
		metrics.ObservePage(url, "failed")
		w.logger.Info("page fetch failed",
			zap.String("crawl_id", crawlID),
			zap.String("url", url),
			zap.Int("status", record.StatusCode),
			zap.String("error", record.FetchError),
		)
		return record, nil
	}

	metrics.ObservePage(url, "ok")
	for _, c := range crawler.Categories {
		metrics.ObserveLinks(string(c), len(record.Links.Get(c)))
	}

	uri, err := w.persist(ctx, crawlID, record)
	if err != nil {
		w.logger.Warn("persist page failed", zap.String("crawl_id", crawlID), zap.String("url", url), zap.Error(err))
	}
	if err := w.publishResult(ctx, crawlID, record); err != nil {
		w.logger.Warn("publish page failed", zap.String("crawl_id", crawlID), zap.String("url", url), zap.Error(err))
	}
	w.logger.Debug("page processed",
		zap.String("crawl_id", crawlID),
		zap.String("url", url),
		zap.String("blob_uri", uri),
		zap.Int("links", record.Links.Len()),
		zap.Bool("headless", record.UsedHeadless),
	)
	return record, nil
}

func (w *Worker) buildBlobPath(crawlID, hash string) string {
	prefix := strings.Trim(w.cfg.BlobPrefix, "/")
	if prefix == "" {
		return fmt.Sprintf("%s/%s.json", crawlID, hash)
	}
	return fmt.Sprintf("%s/%s/%s.json", prefix, crawlID, hash)
}

func (w *Worker) persist(ctx context.Context, crawlID string, record *crawler.PageRecord) (string, error) {
	if w.blobStore == nil || record.ContentHash == "" {
		return "", nil
	}
	data, err := json.Marshal(record)
	if err != nil {
		return "", fmt.Errorf("marshal record: %w", err)
	}
	uri, err := w.blobStore.PutObject(ctx, w.buildBlobPath(crawlID, record.ContentHash), w.cfg.ContentType, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("put object: %w", err)
	}
	return uri, nil
}

func (w *Worker) publishResult(ctx context.Context, crawlID string, record *crawler.PageRecord) error {
	if w.cfg.Topic == "" || w.publisher == nil {
		return nil
	}
	event := crawler.PageEvent{
		CrawlID:     crawlID,
		URL:         record.URL,
		ResolvedURL: record.ResolvedURL,
		BaseDomain:  record.BaseDomain,
		StatusCode:  record.StatusCode,
		ContentHash: record.ContentHash,
		WordCount:   len(strings.Fields(record.Text)),
		FeedCount:   len(record.Links.RSS),
		FetchedAt:   w.now(),
	}
	if _, err := w.publisher.Publish(ctx, w.cfg.Topic, event); err != nil {
		return fmt.Errorf("publish payload: %w", err)
	}
	return nil
}

func (w *Worker) now() time.Time {
	if w.clock == nil {
		return time.Now().UTC()
	}
	return w.clock.Now()
}
