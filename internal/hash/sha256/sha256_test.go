package sha256

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHasherHashDeterministic(t *testing.T) {
	t.Parallel()

	h := New()
	got, err := h.Hash([]byte("hello world"))
	require.NoError(t, err)
	require.Equal(t, "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9", got)

	again, err := h.Hash([]byte("hello world"))
	require.NoError(t, err)
	require.Equal(t, got, again)

	spaced, err := h.Hash([]byte("hello \n world"))
	require.NoError(t, err)
	require.NotEqual(t, got, spaced)
}

func TestHasherCollapsedWhitespace(t *testing.T) {
	t.Parallel()

	h := New(WithCollapsedWhitespace())
	plain, err := h.Hash([]byte("hello world"))
	require.NoError(t, err)
	spaced, err := h.Hash([]byte("  hello\n\t world \n"))
	require.NoError(t, err)
	require.Equal(t, plain, spaced)
	require.Equal(t, "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9", plain)
}
