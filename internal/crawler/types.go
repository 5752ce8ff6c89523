package crawler

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// Mode selects how a page is fetched.
type Mode string

// Supported fetch modes.
const (
	ModeHTTP     Mode = "http"
	ModeHeadless Mode = "headless"
	ModeAuto     Mode = "auto"
)

// ParseMode converts a configuration string into a Mode. Empty means http.
func ParseMode(raw string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(raw))) {
	case "", ModeHTTP:
		return ModeHTTP, nil
	case ModeHeadless:
		return ModeHeadless, nil
	case ModeAuto:
		return ModeAuto, nil
	default:
		return "", fmt.Errorf("unknown fetch mode %q", raw)
	}
}

// FetchRequest captures everything a low-level Fetcher needs.
type FetchRequest struct {
	URL     string
	Timeout time.Duration
}

// FetchResponse is the raw result returned by a Fetcher implementation.
type FetchResponse struct {
	URL          string
	StatusCode   int
	Headers      http.Header
	Body         []byte
	Duration     time.Duration
	UsedHeadless bool
}

// FetchResult is the outcome of one page fetch. It is never mutated after
// construction; a failed fetch carries Err instead of a Document.
type FetchResult struct {
	RequestedURL string
	ResolvedURL  string
	StatusCode   int
	Document     *goquery.Document
	Body         []byte
	Err          error
	ParseErr     error
	UsedHeadless bool
	Duration     time.Duration
}

// Succeeded reports whether the fetch produced a response.
func (r FetchResult) Succeeded() bool {
	return r.Err == nil
}

// PageRecord is the per-URL result of the site pipeline.
type PageRecord struct {
	URL               string    `json:"url"`
	ResolvedURL       string    `json:"resolved_url"`
	BaseDomain        string    `json:"base_domain"`
	BaseDomainAliases []string  `json:"base_domain_aliases"`
	Text              string    `json:"text"`
	Links             LinkSet   `json:"links"`
	FetchSucceeded    bool      `json:"fetch_succeeded"`
	StatusCode        int       `json:"status_code,omitempty"`
	FetchError        string    `json:"fetch_error,omitempty"`
	UsedHeadless      bool      `json:"used_headless"`
	ContentHash       string    `json:"content_hash,omitempty"`
	AboutLinks        []string  `json:"about_links,omitempty"`
	FetchedAt         time.Time `json:"fetched_at"`
}

// Succeeded reports whether the record holds a successful fetch.
func (p *PageRecord) Succeeded() bool {
	return p != nil && p.FetchSucceeded
}

// Row is one tabular record handed to the persistence port.
type Row map[string]any

// FeedEntry is a single post read from an RSS or Atom feed.
type FeedEntry struct {
	Feed        string     `json:"rss"`
	Title       string     `json:"title"`
	Link        string     `json:"content_url"`
	Author      string     `json:"author"`
	Published   string     `json:"published"`
	PublishedAt *time.Time `json:"dt_published,omitempty"`
	Summary     string     `json:"description"`
}

// PageEvent is published once per successfully crawled page.
type PageEvent struct {
	CrawlID     string    `json:"crawl_id"`
	URL         string    `json:"url"`
	ResolvedURL string    `json:"resolved_url"`
	BaseDomain  string    `json:"base_domain"`
	StatusCode  int       `json:"status_code"`
	ContentHash string    `json:"content_hash"`
	WordCount   int       `json:"word_count"`
	FeedCount   int       `json:"feed_count"`
	FetchedAt   time.Time `json:"fetched_at"`
}
