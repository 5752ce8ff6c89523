package site

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/sitecorpus/internal/crawler"
	"github.com/JakeFAU/sitecorpus/internal/hash/sha256"
)

type stubPages struct {
	mu    sync.Mutex
	pages map[string]string
	calls []string
}

func (s *stubPages) Fetch(_ context.Context, url string, _ crawler.Mode) crawler.FetchResult {
	s.mu.Lock()
	s.calls = append(s.calls, url)
	s.mu.Unlock()

	html, ok := s.pages[url]
	if !ok {
		return crawler.FetchResult{
			RequestedURL: url,
			ResolvedURL:  url,
			StatusCode:   404,
			Err:          &crawler.StatusError{URL: url, Code: 404},
		}
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		panic(err)
	}
	return crawler.FetchResult{
		RequestedURL: url,
		ResolvedURL:  url,
		StatusCode:   200,
		Document:     doc,
		Body:         []byte(html),
	}
}

type stubProber struct {
	feeds []string
	bases [][]string
}

func (p *stubProber) Probe(_ context.Context, bases []string) []string {
	p.bases = append(p.bases, bases)
	return p.feeds
}

type fixedClock time.Time

func (c fixedClock) Now() time.Time { return time.Time(c) }

var fetchedAt = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

func newTestReader(pages map[string]string, prober *stubProber, cfg Config) (*Reader, *stubPages) {
	fetcher := &stubPages{pages: pages}
	return NewReader(fetcher, prober, sha256.New(), fixedClock(fetchedAt), cfg, zap.NewNop()), fetcher
}

func TestReadDeclaredFeedSkipsProber(t *testing.T) {
	t.Parallel()

	prober := &stubProber{feeds: []string{"https://ex.com/index.xml"}}
	r, _ := newTestReader(map[string]string{
		"https://ex.com": `<html><head><link type="application/rss+xml" href="/feed.xml"></head>
<body><p>Hello from the example site</p></body></html>`,
	}, prober, DefaultConfig())

	record, err := r.Read(context.Background(), "https://ex.com")
	require.NoError(t, err)
	require.True(t, record.Succeeded())
	assert.Equal(t, []string{"https://ex.com/feed.xml"}, record.Links.RSS)
	assert.Empty(t, prober.bases)
	assert.Equal(t, "https://ex.com/", record.BaseDomain)
	assert.Equal(t, []string{"https://ex.com/"}, record.BaseDomainAliases)
	assert.Equal(t, "Hello from the example site.", record.Text)
	assert.Len(t, record.ContentHash, 64)
	assert.Equal(t, fetchedAt, record.FetchedAt)
}

func TestReadFollowsBlogForFeeds(t *testing.T) {
	t.Parallel()

	prober := &stubProber{}
	r, fetcher := newTestReader(map[string]string{
		"https://ex.com/":     `<a href="/blog">Blog</a>`,
		"https://ex.com/blog": `<a href="/feed.xml">Subscribe</a>`,
	}, prober, DefaultConfig())

	record, err := r.Read(context.Background(), "https://ex.com/")
	require.NoError(t, err)
	assert.Equal(t, []string{"https://ex.com/feed.xml"}, record.Links.RSS)
	assert.Equal(t, []string{"https://ex.com/blog"}, record.Links.Blog)
	assert.Empty(t, prober.bases)
	assert.Equal(t, []string{"https://ex.com/", "https://ex.com/blog"}, fetcher.calls)
}

func TestReadProbesWhenBlogHasNoFeed(t *testing.T) {
	t.Parallel()

	prober := &stubProber{feeds: []string{"https://ex.com/blog/index.xml"}}
	r, _ := newTestReader(map[string]string{
		"https://ex.com/":     `<a href="/blog">Blog</a>`,
		"https://ex.com/blog": `<p>No feeds on this page</p>`,
	}, prober, DefaultConfig())

	record, err := r.Read(context.Background(), "https://ex.com/")
	require.NoError(t, err)
	require.Len(t, prober.bases, 1)
	assert.Equal(t, []string{"https://ex.com/", "https://ex.com/blog"}, prober.bases[0])
	assert.Equal(t, []string{"https://ex.com/blog/index.xml"}, record.Links.RSS)
}

func TestReadBlogSearchDisabled(t *testing.T) {
	t.Parallel()

	prober := &stubProber{feeds: []string{"https://ex.com/index.xml"}}
	cfg := DefaultConfig()
	cfg.BlogSearch = false
	r, fetcher := newTestReader(map[string]string{
		"https://ex.com/": `<a href="/blog">Blog</a>`,
	}, prober, cfg)

	record, err := r.Read(context.Background(), "https://ex.com/")
	require.NoError(t, err)
	assert.Empty(t, record.Links.RSS)
	assert.Empty(t, prober.bases)
	assert.Len(t, fetcher.calls, 1)
}

func TestReadMergesAboutPage(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.BlogSearch = false
	cfg.AboutSearch = true
	r, _ := newTestReader(map[string]string{
		"https://ex.com/":      `<p>Welcome to the home page</p><a href="/about">About</a><a href="/company/about-us">Us</a>`,
		"https://ex.com/about": `<p>We are a small team</p>`,
	}, nil, cfg)

	record, err := r.Read(context.Background(), "https://ex.com/")
	require.NoError(t, err)
	assert.Equal(t, "We are a small team. Welcome to the home page.", record.Text)
	assert.Equal(t, "https://ex.com/about", record.AboutLinks[0])
}

func TestReadFetchFailure(t *testing.T) {
	t.Parallel()

	prober := &stubProber{}
	r, _ := newTestReader(map[string]string{}, prober, DefaultConfig())

	record, err := r.Read(context.Background(), "https://gone.example.com/page")
	require.NoError(t, err)
	assert.False(t, record.Succeeded())
	assert.Equal(t, 404, record.StatusCode)
	assert.Contains(t, record.FetchError, "404")
	assert.Equal(t, "https://gone.example.com/", record.BaseDomain)
	assert.Empty(t, prober.bases)
}

func TestReadCancelled(t *testing.T) {
	t.Parallel()

	r, _ := newTestReader(map[string]string{"https://ex.com/": `<p>hi there</p>`}, nil, DefaultConfig())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Read(ctx, "https://ex.com/")
	require.True(t, errors.Is(err, context.Canceled))
}

func TestNewReaderDefaults(t *testing.T) {
	t.Parallel()

	r := NewReader(&stubPages{}, nil, nil, nil, Config{}, nil)
	assert.Equal(t, crawler.ModeHTTP, r.Config().Mode)
	assert.Equal(t, 5, r.Config().MaxBlogFollow)

	headless := r.WithOptions(Config{Mode: crawler.ModeHeadless})
	assert.Equal(t, crawler.ModeHeadless, headless.Config().Mode)
	assert.Equal(t, crawler.ModeHTTP, r.Config().Mode)
}
