package memory

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/sitecorpus/internal/crawler"
)

func TestBlobStorePutObjectCopiesData(t *testing.T) {
	t.Parallel()

	store := NewBlobStore()
	payload := []byte("content")
	uri, err := store.PutObject(context.Background(), "crawl/corpus.json", "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	require.Equal(t, "memory://crawl/corpus.json", uri)

	payload[0] = 'C'
	got, err := store.GetObject(context.Background(), "crawl/corpus.json")
	require.NoError(t, err)
	require.Equal(t, "content", string(got))

	got[0] = 'X'
	again, _ := store.GetObject(context.Background(), "crawl/corpus.json")
	require.Equal(t, "content", string(again))
	require.Equal(t, []string{"crawl/corpus.json"}, store.Paths())
}

func TestBlobStoreGetMissing(t *testing.T) {
	t.Parallel()

	_, err := NewBlobStore().GetObject(context.Background(), "nope")
	require.True(t, errors.Is(err, ErrObjectNotFound))
}

func TestRowStore(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewRowStore()
	n, err := store.InsertRows(ctx, "pages", []crawler.Row{
		{"url": "https://a.com/", "text": "a"},
		{"url": "https://b.com/", "text": "b"},
		{"text": "no url"},
	})
	require.NoError(t, err)
	require.Equal(t, int64(3), n)

	got, err := store.URLsAlreadyStored(ctx, "pages", []string{"https://b.com/", "https://c.com/", "https://a.com/"})
	require.NoError(t, err)
	require.Equal(t, []string{"https://a.com/", "https://b.com/"}, got)

	got, err = store.URLsAlreadyStored(ctx, "other", []string{"https://a.com/"})
	require.NoError(t, err)
	require.Empty(t, got)
	require.Len(t, store.Rows("pages"), 3)
}
