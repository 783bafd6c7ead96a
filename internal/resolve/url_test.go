package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"https://Acme.CA/", "https://acme.ca"},
		{"acme.ca", "https://acme.ca"},
		{"http://acme.ca/about/?utm_source=yp&utm_medium=listing", "http://acme.ca/about"},
		{"https://acme.ca/?gclid=1&fbclid=2&id=7#top", "https://acme.ca?id=7"},
		{"https://acme.ca/p?b=2&a=1&ref=dir", "https://acme.ca/p?a=1&b=2"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Canonicalize(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCanonicalize_Idempotent(t *testing.T) {
	once, err := Canonicalize("HTTPS://www.Acme.ca/shop/?utm_campaign=x&q=pipes")
	require.NoError(t, err)
	twice, err := Canonicalize(once)
	require.NoError(t, err)
	assert.Equal(t, once, twice)
}

func TestCanonicalize_Invalid(t *testing.T) {
	for _, in := range []string{"", "mailto:a@b.ca", "ftp://acme.ca", "https://", "notahost"} {
		_, err := Canonicalize(in)
		assert.ErrorIs(t, err, ErrInvalidURL, in)
	}
}

func TestUnwrapRedirect(t *testing.T) {
	assert.Equal(t, "https://acme.ca/", UnwrapRedirect("//duckduckgo.com/l/?uddg=https%3A%2F%2Facme.ca%2F&rut=abc"))
	assert.Equal(t, "http://bobs.ca", UnwrapRedirect("/gourl/123?redirect=http%3A%2F%2Fbobs.ca"))
	assert.Equal(t, "https://acme.ca", UnwrapRedirect("https://acme.ca"))
}

func TestBlocklist(t *testing.T) {
	b := Blocklist(DefaultBlocklist)
	assert.True(t, b.Blocked("www.yellowpages.ca"))
	assert.True(t, b.Blocked("m.facebook.com"))
	assert.True(t, b.BlockedURL("https://www.yelp.ca/biz/x"))
	assert.False(t, b.Blocked("notyelp.ca"))
	assert.False(t, b.BlockedURL("https://bobsplumbing.ca"))
	assert.False(t, b.Blocked(""))
}
