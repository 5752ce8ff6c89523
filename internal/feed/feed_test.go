package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/sitecorpus/internal/crawler"
	collyfetcher "github.com/JakeFAU/sitecorpus/internal/fetcher/colly"
)

const rssBody = `<?xml version="1.0"?>
<rss version="2.0"><channel><title>Example</title>
<item><title>First</title><link>https://ex.com/posts/first</link><pubDate>Mon, 02 Jan 2006 15:04:05 GMT</pubDate><author>ann@ex.com (Ann)</author><description>one</description></item>
<item><title>Second</title><link>/posts//second</link><pubDate>Tue, 03 Jan 2006 15:04:05 GMT</pubDate></item>
</channel></rss>`

const emptyRSS = `<?xml version="1.0"?><rss version="2.0"><channel><title>Nothing</title></channel></rss>`

func feedServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/index.xml", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(rssBody))
	})
	mux.HandleFunc("/blog/feed.xml", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(emptyRSS))
	})
	mux.HandleFunc("/rss/", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("<html><body>not a feed</body></html>"))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestProberCandidates(t *testing.T) {
	t.Parallel()

	p := NewProber(nil, Config{}, nil)
	got := p.Candidates([]string{"https://ex.com/", "https://ex.com", ""})
	require.Equal(t, []string{
		"https://ex.com/feed.xml",
		"https://ex.com/feed/",
		"https://ex.com/index.xml",
		"https://ex.com/rss/",
	}, got)
}

func TestProberAcceptsOnlyNonEmptyFeeds(t *testing.T) {
	t.Parallel()

	srv := feedServer(t)
	p := NewProber(collyfetcher.New(collyfetcher.Config{Timeout: 5 * time.Second}), Config{Concurrency: 2}, zap.NewNop())

	got := p.Probe(context.Background(), []string{srv.URL + "/", srv.URL + "/blog"})
	require.Equal(t, []string{srv.URL + "/index.xml"}, got)
}

func TestProberCancelledContext(t *testing.T) {
	t.Parallel()

	srv := feedServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := NewProber(collyfetcher.New(collyfetcher.Config{}), Config{}, nil)
	require.Empty(t, p.Probe(ctx, []string{srv.URL}))
}

func TestReaderRead(t *testing.T) {
	t.Parallel()

	srv := feedServer(t)
	r := NewReader(collyfetcher.New(collyfetcher.Config{}), 5*time.Second, nil)

	entries, err := r.Read(context.Background(), srv.URL+"/index.xml")
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, srv.URL+"/index.xml", entries[0].Feed)
	assert.Equal(t, "First", entries[0].Title)
	assert.Equal(t, "https://ex.com/posts/first", entries[0].Link)
	assert.Equal(t, "one", entries[0].Summary)
	require.NotNil(t, entries[0].PublishedAt)
	assert.Equal(t, 2006, entries[0].PublishedAt.Year())

	assert.Equal(t, srv.URL+"/posts/second", entries[1].Link)

	_, err = r.Read(context.Background(), srv.URL+"/rss/")
	require.Error(t, err)
}

func TestParseEntriesFallsBackToLinkDates(t *testing.T) {
	t.Parallel()

	parsed := &gofeed.Feed{Items: []*gofeed.Item{
		{Title: "a", Link: "https://ex.com/2024/03/05/a"},
		{Title: "b", GUID: "https://ex.com/2024/03/06/b"},
		{Title: "c", GUID: "urn:uuid:1234"},
	}}
	entries := parseEntries("https://ex.com/feed.xml", parsed)
	require.Len(t, entries, 3)

	assert.Equal(t, "2024/03/05", entries[0].Published)
	require.NotNil(t, entries[0].PublishedAt)
	assert.Equal(t, time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), *entries[0].PublishedAt)
	assert.Equal(t, "https://ex.com/2024/03/06/b", entries[1].Link)
	assert.Empty(t, entries[2].Link)
	assert.Nil(t, entries[2].PublishedAt)
}

func TestParseEntriesPrefersDashedDates(t *testing.T) {
	t.Parallel()

	parsed := &gofeed.Feed{Items: []*gofeed.Item{
		{Link: "https://ex.com/2024/03/05/a"},
		{Link: "https://ex.com/posts/2024-04-01-b"},
	}}
	entries := parseEntries("https://ex.com/feed.xml", parsed)
	assert.Empty(t, entries[0].Published)
	assert.Equal(t, "2024-04-01", entries[1].Published)
}

func TestFixLink(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "https://ex.com/a/b", fixLink("/a//b", "https://ex.com/"))
	assert.Equal(t, "https://other.com/x", fixLink("https://other.com//x", "https://ex.com/"))
	assert.Empty(t, fixLink("  ", "https://ex.com/"))
}

func entryAt(feedURL, link string, at time.Time) crawler.FeedEntry {
	return crawler.FeedEntry{Feed: feedURL, Link: link, PublishedAt: &at}
}

func TestRecent(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	entries := []crawler.FeedEntry{
		entryAt("blog", "https://b/1", now.AddDate(0, 0, -1)),
		entryAt("blog", "https://b/2", now.AddDate(0, 0, -2)),
		entryAt("blog", "https://b/edge", now.AddDate(0, 0, -3)),
		entryAt("blog", "https://b/1", now.AddDate(0, 0, -1)),
		entryAt("blog", "https://b/old", now.AddDate(0, 0, -30)),
		entryAt("blog", "https://b/future", now.AddDate(0, 0, 2)),
		{Feed: "blog", Link: "https://b/undated"},
	}
	for i := 0; i < 20; i++ {
		entries = append(entries, entryAt("firehose", "https://f/"+string(rune('a'+i)), now))
	}

	got := Recent(entries, 3, 6, now)
	require.Equal(t, []string{"https://b/1", "https://b/2"}, Links(got))
	assert.Nil(t, Recent(entries, 0, 6, now))
}

func TestWithoutAndEntryRows(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
	entries := []crawler.FeedEntry{
		entryAt("f", "https://b/1", now),
		{Feed: "f", Link: "https://b/2", Title: "two"},
	}
	kept := Without(entries, []string{"https://b/1"})
	require.Len(t, kept, 1)

	rows := EntryRows(kept, now)
	require.Len(t, rows, 1)
	assert.Equal(t, "https://b/2", rows[0]["content_url"])
	assert.Equal(t, "two", rows[0]["title"])
	assert.Nil(t, rows[0]["dt_published"])
	assert.Equal(t, now, rows[0]["dt_fetched"])
}
