package links

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		href string
		base string
		want string
		ok   bool
	}{
		{"protocol relative", "//cdn.example.com/a", "https://example.com/", "https://cdn.example.com/a", true},
		{"root relative", "/about", "https://site.com/", "https://site.com/about", true},
		{"root relative without slash base", "/about", "https://site.com", "https://site.com/about", true},
		{"bare www", "www.partner.org", "https://site.com/", "https://www.partner.org", true},
		{"relative path", "page.html", "https://site.com/", "https://site.com/page.html", true},
		{"absolute", "https://b.com/x", "https://site.com/", "https://b.com/x", true},
		{"surrounding whitespace", "  /contact \n", "https://site.com/", "https://site.com/contact", true},
		{"slash only", "/", "https://site.com/", "", false},
		{"empty", "", "https://site.com/", "", false},
		{"blank", "   ", "https://site.com/", "", false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, ok := Normalize(tc.href, tc.base)
			require.Equal(t, tc.ok, ok)
			require.Equal(t, tc.want, got)
			if ok {
				again, okAgain := Normalize(got, tc.base)
				require.True(t, okAgain)
				assert.Equal(t, got, again, "normalize must be idempotent")
			}
		})
	}
}

func TestNormalizeAllDedupes(t *testing.T) {
	t.Parallel()

	got := NormalizeAll([]string{"/a", "https://site.com/a", "/", "b"}, "https://site.com/")
	require.Equal(t, []string{"https://site.com/a", "https://site.com/b"}, got)
}

func TestBaseDomain(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		in   string
		want string
	}{
		{"https://site.com/a/b?c=1", "https://site.com/"},
		{"http://localhost:8080/x", "http://localhost:8080/"},
		{"https://medium.com/@alice/post-1", "https://medium.com/@alice"},
		{"https://medium.com/about", "https://medium.com/"},
		{"https://medium.com", "https://medium.com/"},
		{"https://dev.to/bob/some-post", "https://dev.to/bob"},
		{"https://dev.to/t/go", "https://dev.to/"},
		{"https://sites.google.com/view/team", "https://sites.google.com/view"},
		{"not a url", ""},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.want, BaseDomain(tc.in), tc.in)
	}
}

func TestRegistrableDomain(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "example.co.uk", RegistrableDomain("https://blog.example.co.uk/x"))
	assert.Equal(t, "site.com", RegistrableDomain("https://docs.site.com/start"))
	assert.Equal(t, "127.0.0.1", RegistrableDomain("http://127.0.0.1:9000/"))
	assert.Equal(t, "localhost", RegistrableDomain("http://localhost/"))
	assert.Equal(t, "", RegistrableDomain("relative/path"))
}
