package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/sitecorpus/internal/crawler"
)

func TestRowStoreInsertAndLookup(t *testing.T) {
	t.Parallel()

	store := NewRowStore()
	rows := []crawler.Row{
		{"url": "https://b.example/", "text": "b"},
		{"url": "https://a.example/", "text": "a"},
		{"text": "no url"},
	}
	n, err := store.InsertRows(context.Background(), "pages", rows)
	require.NoError(t, err)
	require.EqualValues(t, 3, n)

	rows[0]["url"] = "https://mutated.example/"

	got, err := store.URLsAlreadyStored(context.Background(), "pages",
		[]string{"https://b.example/", "https://c.example/", "https://a.example/", "https://mutated.example/"})
	require.NoError(t, err)
	require.Equal(t, []string{"https://a.example/", "https://b.example/"}, got)

	other, err := store.URLsAlreadyStored(context.Background(), "backlinks", []string{"https://a.example/"})
	require.NoError(t, err)
	require.Empty(t, other)
	require.Len(t, store.Rows("pages"), 3)
}
