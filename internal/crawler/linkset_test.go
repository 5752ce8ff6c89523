package crawler

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLinkSetWithFeedsKeepsCategoriesDisjoint(t *testing.T) {
	t.Parallel()

	links := LinkSet{
		Internal: []string{"https://site.com/about", "https://site.com/index.xml"},
		Blog:     []string{"https://site.com/blog"},
		External: []string{"https://other.com/"},
	}

	out := links.WithFeeds([]string{"https://site.com/index.xml", "https://site.com/index.xml"})

	require.Equal(t, []string{"https://site.com/index.xml"}, out.RSS)
	require.Equal(t, []string{"https://site.com/about"}, out.Internal)
	require.Equal(t, []string{"https://site.com/blog"}, out.Blog)
	require.Equal(t, 4, out.Len())
	require.Len(t, links.Internal, 2, "original must not be mutated")
}

func TestLinkSetGet(t *testing.T) {
	t.Parallel()

	links := LinkSet{Email: []string{"a@b.com"}}
	require.Equal(t, []string{"a@b.com"}, links.Get(CategoryEmail))
	require.Nil(t, links.Get(Category("unknown")))
}

func TestSortedUnique(t *testing.T) {
	t.Parallel()

	require.Equal(t, []string{"a", "b"}, SortedUnique([]string{"b", "", "a", "b"}))
}

func TestParseMode(t *testing.T) {
	t.Parallel()

	mode, err := ParseMode("")
	require.NoError(t, err)
	require.Equal(t, ModeHTTP, mode)

	mode, err = ParseMode(" Headless ")
	require.NoError(t, err)
	require.Equal(t, ModeHeadless, mode)

	_, err = ParseMode("selenium")
	require.Error(t, err)
}

func TestStatusCodeOf(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("wrapped: %w", &StatusError{URL: "https://x.com", Code: 404})
	require.Equal(t, 404, StatusCodeOf(err))
	require.Equal(t, 0, StatusCodeOf(errors.New("boom")))
	require.Contains(t, err.Error(), "status 404 Not Found")
}
