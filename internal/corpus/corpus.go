// Package corpus crawls a batch of URLs into an in-memory corpus and projects
// it into maps and tables.
package corpus

import (
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/JakeFAU/sitecorpus/internal/crawler"
)

// Corpus maps every input URL to its PageRecord. A nil record means the task
// for that URL failed outright.
type Corpus struct {
	mu      sync.RWMutex
	crawlID string
	pages   map[string]*crawler.PageRecord
	logger  *zap.Logger
}

// New creates a corpus holding a nil entry for each url.
func New(crawlID string, urls []string, logger *zap.Logger) *Corpus {
	if logger == nil {
		logger = zap.NewNop()
	}
	pages := make(map[string]*crawler.PageRecord, len(urls))
	for _, u := range urls {
		pages[u] = nil
	}
	return &Corpus{crawlID: crawlID, pages: pages, logger: logger}
}

// CrawlID identifies the crawl that produced the corpus.
func (c *Corpus) CrawlID() string {
	return c.crawlID
}

// Set stores the record for url.
func (c *Corpus) Set(url string, record *crawler.PageRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pages[url] = record
}

// Get returns the record for url. The bool reports whether url is in the corpus.
func (c *Corpus) Get(url string) (*crawler.PageRecord, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	record, ok := c.pages[url]
	return record, ok
}

// Delete removes url from the corpus.
func (c *Corpus) Delete(url string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.pages, url)
}

// Count returns the number of entries, failed ones included.
func (c *Corpus) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.pages)
}

// URLs returns the corpus keys in sorted order.
func (c *Corpus) URLs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.pages))
	for u := range c.pages {
		out = append(out, u)
	}
	sort.Strings(out)
	return out
}

// Records returns a shallow copy of the corpus map.
func (c *Corpus) Records() map[string]*crawler.PageRecord {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]*crawler.PageRecord, len(c.pages))
	for u, r := range c.pages {
		out[u] = r
	}
	return out
}

// Succeeded returns the records whose fetch succeeded, ordered by URL.
func (c *Corpus) Succeeded() []*crawler.PageRecord {
	records := c.Records()
	out := make([]*crawler.PageRecord, 0, len(records))
	for _, u := range c.URLs() {
		if r := records[u]; r.Succeeded() {
			out = append(out, r)
		}
	}
	return out
}
