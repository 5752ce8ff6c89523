package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/sitecorpus/internal/crawler"
)

func openMemory(t *testing.T) *Store {
	t.Helper()
	store, err := Open(":memory:", "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestInsertAndLookup(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := openMemory(t)

	got, err := store.URLsAlreadyStored(ctx, "pages", []string{"https://a.com/"})
	require.NoError(t, err)
	require.Empty(t, got)

	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	n, err := store.InsertRows(ctx, "pages", []crawler.Row{
		{"url": "https://a.com/", "word_count": 12, "rss": []string{"https://a.com/feed.xml"}, "dt_added": now},
		{"url": "https://b.com/", "word_count": 3, "used_headless": true},
	})
	require.NoError(t, err)
	require.Equal(t, int64(2), n)

	got, err = store.URLsAlreadyStored(ctx, "pages", []string{"https://c.com/", "https://b.com/", "https://a.com/"})
	require.NoError(t, err)
	require.Equal(t, []string{"https://a.com/", "https://b.com/"}, got)

	var rss, added string
	require.NoError(t, store.db.QueryRowContext(ctx,
		`SELECT rss, dt_added FROM pages WHERE url = ?`, "https://a.com/").Scan(&rss, &added))
	require.Equal(t, `["https://a.com/feed.xml"]`, rss)
	require.Equal(t, "2024-06-01T00:00:00Z", added)
}

func TestInsertAddsNewColumns(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := openMemory(t)

	_, err := store.InsertRows(ctx, "entries", []crawler.Row{{"url": "https://a.com/1"}})
	require.NoError(t, err)
	_, err = store.InsertRows(ctx, "entries", []crawler.Row{{"url": "https://a.com/2", "title": "Two"}})
	require.NoError(t, err)

	var count int
	require.NoError(t, store.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM entries`).Scan(&count))
	require.Equal(t, 2, count)
}

func TestValidation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := openMemory(t)

	_, err := store.InsertRows(ctx, "bad-table", []crawler.Row{{"url": "x"}})
	require.Error(t, err)
	_, err = store.InsertRows(ctx, "pages", []crawler.Row{{"drop table": "x"}})
	require.Error(t, err)
	_, err = store.URLsAlreadyStored(ctx, "pages;", []string{"x"})
	require.Error(t, err)

	_, err = Open("", "")
	require.Error(t, err)
	_, err = Open(":memory:", "not valid")
	require.Error(t, err)
}
