package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	pkgerrors "watchlist-backend/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCatalog = `
movies:
  - id: 12345
    title: Inception
    genres: [Action, Science Fiction]
    release_date: "2010-07-16"
    vote_average: 8.4
  - id: 680
    title: Pulp Fiction
    genres: [Crime, Thriller]
    vote_average: 8.5
`

func TestParseStaticCatalog(t *testing.T) {
	c, err := ParseStaticCatalog([]byte(sampleCatalog))
	require.NoError(t, err)

	assert.Equal(t, 2, c.Len())

	movie, err := c.GetMovie(context.Background(), 12345)
	require.NoError(t, err)
	assert.Equal(t, "Inception", movie.Title())
	assert.Equal(t, []string{"Action", "Science Fiction"}, movie.Genres())
	year, ok := movie.ReleaseYear()
	assert.True(t, ok)
	assert.Equal(t, 2010, year)

	pulp, err := c.GetMovie(context.Background(), 680)
	require.NoError(t, err)
	_, ok = pulp.ReleaseYear()
	assert.False(t, ok)
}

func TestGetMovie_NotFound(t *testing.T) {
	c := NewStaticCatalog()

	_, err := c.GetMovie(context.Background(), 1)

	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestParseStaticCatalog_RejectsBadEntries(t *testing.T) {
	tests := map[string]string{
		"bad date":   "movies:\n  - id: 1\n    title: X\n    release_date: yesterday\n",
		"bad id":     "movies:\n  - id: 0\n    title: X\n",
		"bad rating": "movies:\n  - id: 1\n    title: X\n    vote_average: 11\n",
		"not yaml":   "movies: [",
	}

	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseStaticCatalog([]byte(data))
			assert.Error(t, err)
		})
	}
}

func TestLoadStaticCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleCatalog), 0o600))

	c, err := LoadStaticCatalog(path)

	require.NoError(t, err)
	assert.Equal(t, 2, c.Len())
}
