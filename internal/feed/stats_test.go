package feed

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/sitecorpus/internal/crawler"
)

func post(feedURL, title, link string, at *time.Time) crawler.FeedEntry {
	return crawler.FeedEntry{Feed: feedURL, Title: title, Link: link, PublishedAt: at}
}

func day(d int) *time.Time {
	at := time.Date(2024, 1, d, 12, 0, 0, 0, time.UTC)
	return &at
}

func TestCheck(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		entries []crawler.FeedEntry
		want    error
	}{
		{"empty", nil, ErrNoEntries},
		{"no titles", []crawler.FeedEntry{post("f", "", "https://a.com/x", day(1))}, ErrNoTitles},
		{"no links", []crawler.FeedEntry{post("f", "T", "", day(1))}, ErrNoLinks},
		{"no dates", []crawler.FeedEntry{post("f", "T", "https://a.com/x", nil)}, ErrNoDates},
		{"spread across entries", []crawler.FeedEntry{
			post("f", "T", "", nil),
			post("f", "", "https://a.com/x", nil),
			post("f", "", "", day(1)),
		}, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			require.ErrorIs(t, Check(tc.entries), tc.want)
		})
	}
}

func TestDescribe(t *testing.T) {
	t.Parallel()

	entries := []crawler.FeedEntry{
		post("f", "a", "https://medium.com/@ann/a", day(9)),
		post("f", "b", "https://blog.ex.com/b", day(20)),
		post("f", "c", "https://medium.com/@ann/c", day(1)),
		post("f", "undated", "https://blog.ex.com/u", nil),
		post("f", "d", "https://blog.ex.com/d", day(10)),
		post("f", "e", "https://medium.com/@ann/e", day(5)),
	}
	got := Describe("https://ex.com/feed", entries)

	assert.Equal(t, "https://ex.com/feed", got.Feed)
	assert.Equal(t, 6, got.Entries)
	assert.Equal(t, "ok", got.Status)
	// Gaps between the sorted dates are 10, 1, 4 and 4 days.
	require.NotNil(t, got.MedianInterval)
	require.NotNil(t, got.MeanInterval)
	assert.InDelta(t, 4.0, *got.MedianInterval, 1e-9)
	assert.InDelta(t, 4.75, *got.MeanInterval, 1e-9)
	require.NotNil(t, got.Latest)
	assert.True(t, got.Latest.Equal(*day(20)))
	// Both base URLs appear three times; the first one seen wins.
	assert.Equal(t, "https://medium.com/@ann", got.BaseURL)
}

func TestDescribeSingleDate(t *testing.T) {
	t.Parallel()

	got := Describe("f", []crawler.FeedEntry{
		post("f", "only", "https://a.com/only", day(3)),
		post("f", "undated", "https://a.com/undated", nil),
	})
	assert.Equal(t, "ok", got.Status)
	assert.Nil(t, got.MedianInterval)
	assert.Nil(t, got.MeanInterval)
	require.NotNil(t, got.Latest)
	assert.True(t, got.Latest.Equal(*day(3)))
	assert.Equal(t, "https://a.com/", got.BaseURL)
}

func TestDescribeRoundsIntervals(t *testing.T) {
	t.Parallel()

	first := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	second := first.Add(8 * time.Hour)
	got := Describe("f", []crawler.FeedEntry{
		post("f", "a", "https://a.com/a", &first),
		post("f", "b", "https://a.com/b", &second),
	})
	require.NotNil(t, got.MedianInterval)
	assert.Equal(t, 0.333, *got.MedianInterval)
	assert.Equal(t, 0.333, *got.MeanInterval)
}

func TestDescribeFailedCheck(t *testing.T) {
	t.Parallel()

	got := Describe("f", []crawler.FeedEntry{post("f", "T", "https://a.com/x", nil)})
	assert.Equal(t, Stats{Feed: "f", Entries: 1, Status: ErrNoDates.Error()}, got)
}

func TestDescribeAllGroupsByFeed(t *testing.T) {
	t.Parallel()

	got := DescribeAll([]crawler.FeedEntry{
		post("https://z.com/feed", "a", "https://z.com/a", day(2)),
		post("https://a.com/feed", "b", "https://a.com/b", day(3)),
		post("https://z.com/feed", "c", "https://z.com/c", day(4)),
	})
	require.Len(t, got, 2)
	assert.Equal(t, "https://a.com/feed", got[0].Feed)
	assert.Equal(t, 1, got[0].Entries)
	assert.Nil(t, got[0].MedianInterval)
	assert.Equal(t, "https://z.com/feed", got[1].Feed)
	assert.Equal(t, 2, got[1].Entries)
	require.NotNil(t, got[1].MedianInterval)
	assert.InDelta(t, 2.0, *got[1].MedianInterval, 1e-9)

	assert.Empty(t, DescribeAll(nil))
}
