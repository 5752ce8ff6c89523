package uuid

import (
	"testing"

	goUUID "github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestGeneratorNewID(t *testing.T) {
	t.Parallel()

	gen := New()
	id1, err := gen.NewID()
	require.NoError(t, err)
	id2, err := gen.NewID()
	require.NoError(t, err)
	require.NotEqual(t, id1, id2)

	parsed, err := goUUID.Parse(id1)
	require.NoError(t, err)
	require.Equal(t, goUUID.Version(7), parsed.Version())
}

func TestCanonical(t *testing.T) {
	t.Parallel()

	got, err := Canonical("0190A3B2-7C4D-7E5F-8A6B-1C2D3E4F5A6B")
	require.NoError(t, err)
	require.Equal(t, "0190a3b2-7c4d-7e5f-8a6b-1c2d3e4f5a6b", got)

	_, err = Canonical("crawl-1")
	require.ErrorContains(t, err, "parse crawl id")
}
