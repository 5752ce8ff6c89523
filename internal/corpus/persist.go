package corpus

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/sitecorpus/internal/crawler"
)

const snapshotContentType = "application/json"

type snapshot struct {
	CrawlID string                         `json:"crawl_id"`
	Pages   map[string]*crawler.PageRecord `json:"pages"`
}

// Save writes the corpus as JSON to path and returns the object URI.
func (c *Corpus) Save(ctx context.Context, blobs crawler.BlobStore, path string) (string, error) {
	data, err := json.Marshal(snapshot{CrawlID: c.crawlID, Pages: c.Records()})
	if err != nil {
		return "", fmt.Errorf("marshal corpus: %w", err)
	}
	uri, err := blobs.PutObject(ctx, path, snapshotContentType, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("save corpus: %w", err)
	}
	c.logger.Info("corpus saved", zap.String("uri", uri), zap.Int("pages", c.Count()))
	return uri, nil
}

// Load reads a corpus previously written by Save.
func Load(ctx context.Context, blobs crawler.BlobStore, path string, logger *zap.Logger) (*Corpus, error) {
	data, err := blobs.GetObject(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("load corpus: %w", err)
	}
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode corpus: %w", err)
	}
	c := New(snap.CrawlID, nil, logger)
	for u, r := range snap.Pages {
		c.Set(u, r)
	}
	return c, nil
}
