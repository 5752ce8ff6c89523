package worker

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/sitecorpus/internal/crawler"
)

func TestWorker_Process_SuccessFlow(t *testing.T) {
	t.Parallel()

	reader := &fakeReader{records: map[string]*crawler.PageRecord{
		"https://example.com": {
			URL:            "https://example.com",
			ResolvedURL:    "https://example.com/",
			BaseDomain:     "https://example.com/",
			Text:           "Hello from example.",
			FetchSucceeded: true,
			StatusCode:     200,
			ContentHash:    "abc123",
			Links:          crawler.LinkSet{RSS: []string{"https://example.com/feed.xml"}},
		},
	}}
	blobs := newFakeBlobStore()
	publisher := newFakePublisher()
	clock := &fakeClock{now: time.Unix(100, 0).UTC()}

	w := New(reader, blobs, publisher, clock, Config{BlobPrefix: "pages", Topic: "page.crawled"}, zap.NewNop())
	record, err := w.Process(context.Background(), "crawl-1", "https://example.com")
	require.NoError(t, err)
	require.True(t, record.Succeeded())

	require.Equal(t, "pages/crawl-1/abc123.json", blobs.lastPath)
	var stored crawler.PageRecord
	require.NoError(t, json.Unmarshal(blobs.objects[blobs.lastPath], &stored))
	require.Equal(t, "https://example.com/", stored.ResolvedURL)

	require.Len(t, publisher.events, 1)
	event := publisher.events[0]
	require.Equal(t, "page.crawled", publisher.topics[0])
	require.Equal(t, "crawl-1", event.CrawlID)
	require.Equal(t, 3, event.WordCount)
	require.Equal(t, 1, event.FeedCount)
	require.Equal(t, clock.now, event.FetchedAt)
}

func TestWorker_Process_FailedFetchIsNotPublished(t *testing.T) {
	t.Parallel()

	reader := &fakeReader{records: map[string]*crawler.PageRecord{
		"https://down.example.com": {URL: "https://down.example.com", StatusCode: 503, FetchError: "status 503"},
	}}
	blobs := newFakeBlobStore()
	publisher := newFakePublisher()

	w := New(reader, blobs, publisher, nil, Config{Topic: "page.crawled"}, nil)
	record, err := w.Process(context.Background(), "crawl-1", "https://down.example.com")
	require.NoError(t, err)
	require.False(t, record.Succeeded())
	require.Empty(t, blobs.objects)
	require.Empty(t, publisher.events)
}

func TestWorker_Process_PublishFailureKeepsRecord(t *testing.T) {
	t.Parallel()

	reader := &fakeReader{records: map[string]*crawler.PageRecord{
		"https://example.com": {URL: "https://example.com", FetchSucceeded: true, ContentHash: "h"},
	}}
	publisher := newFakePublisher()
	publisher.err = errors.New("topic gone")

	w := New(reader, nil, publisher, nil, Config{Topic: "page.crawled"}, zap.NewNop())
	record, err := w.Process(context.Background(), "crawl-1", "https://example.com")
	require.NoError(t, err)
	require.NotNil(t, record)
}

func TestWorker_Process_ReaderError(t *testing.T) {
	t.Parallel()

	reader := &fakeReader{err: context.Canceled}
	w := New(reader, nil, nil, nil, Config{}, nil)
	_, err := w.Process(context.Background(), "crawl-1", "https://example.com")
	require.ErrorIs(t, err, context.Canceled)
}

func TestWorkerBuildBlobPath(t *testing.T) {
	t.Parallel()

	w := New(nil, nil, nil, nil, Config{BlobPrefix: "/pages/"}, zap.NewNop())
	if got := w.buildBlobPath("crawl", "hash"); got != "pages/crawl/hash.json" {
		t.Fatalf("unexpected blob path: %s", got)
	}
	w.cfg.BlobPrefix = ""
	if got := w.buildBlobPath("crawl", "hash"); got != "crawl/hash.json" {
		t.Fatalf("unexpected fallback blob path: %s", got)
	}
	if w.cfg.ContentType != "application/json" {
		t.Fatalf("unexpected default content type: %s", w.cfg.ContentType)
	}
}

type fakeReader struct {
	records map[string]*crawler.PageRecord
	err     error
}

func (r *fakeReader) Read(_ context.Context, url string) (*crawler.PageRecord, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.records[url], nil
}

type fakeBlobStore struct {
	mu       sync.Mutex
	objects  map[string][]byte
	lastPath string
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{objects: make(map[string][]byte)}
}

func (b *fakeBlobStore) PutObject(_ context.Context, path string, _ string, data io.Reader) (string, error) {
	body, err := io.ReadAll(data)
	if err != nil {
		return "", err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[path] = body
	b.lastPath = path
	return "memory://" + path, nil
}

func (b *fakeBlobStore) GetObject(_ context.Context, path string) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.objects[path], nil
}

type fakePublisher struct {
	mu     sync.Mutex
	topics []string
	events []crawler.PageEvent
	err    error
}

func newFakePublisher() *fakePublisher {
	return &fakePublisher{}
}

func (p *fakePublisher) Publish(_ context.Context, topic string, payload any) (string, error) {
	if p.err != nil {
		return "", p.err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if e, ok := payload.(crawler.PageEvent); ok {
		p.topics = append(p.topics, topic)
		p.events = append(p.events, e)
	}
	return "msgid", nil
}

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.now
}
