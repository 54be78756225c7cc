package urlnorm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"scheme ignored", "http://example.org/paper", "example.org/paper"},
		{"https same", "https://example.org/paper", "example.org/paper"},
		{"www stripped", "https://www.example.org/paper", "example.org/paper"},
		{"trailing slash", "https://example.org/paper/", "example.org/paper"},
		{"fragment dropped", "https://example.org/paper#section-2", "example.org/paper"},
		{"host lowercased", "https://EXAMPLE.org/Paper", "example.org/Paper"},
		{"default port dropped", "https://example.org:443/paper", "example.org/paper"},
		{"tracking params dropped", "https://example.org/paper?utm_source=x&utm_medium=y", "example.org/paper"},
		{"real params kept sorted", "https://example.org/p?b=2&a=1", "example.org/p?a=1&b=2"},
		{"no scheme", "example.org/paper", "example.org/paper"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := Normalize(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalize_EquivalentForms(t *testing.T) {
	t.Parallel()

	a, err := Normalize("http://www.nature.com/articles/s41586-021-03819-2?utm_source=feed")
	require.NoError(t, err)
	b, err := Normalize("https://nature.com/articles/s41586-021-03819-2/")
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestNormalize_Invalid(t *testing.T) {
	t.Parallel()

	_, err := Normalize("")
	assert.Error(t, err)

	_, err = Normalize("   ")
	assert.Error(t, err)
}

func TestDomain(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw  string
		want string
	}{
		{"https://www.arxiv.org/abs/1706.03762", "arxiv.org"},
		{"http://doi.org/10.1000/xyz", "doi.org"},
		{"https://Example.ORG:8443/x", "example.org"},
	}

	for _, tt := range tests {
		got, err := Domain(tt.raw)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}
