package di

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"watchlist-backend/infrastructure/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitializeContainer_MemoryStore(t *testing.T) {
	// Arrange
	catalogPath := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(catalogPath, []byte(`
movies:
  - id: 603
    title: The Matrix
    genres: [Action, Sci-Fi]
    release_date: "1999-03-31"
    vote_average: 8.2
`), 0o600))

	cfg := config.Default()
	cfg.CatalogPath = catalogPath
	cfg.LogLevel = "error"

	// Act
	container, err := InitializeContainer(context.Background(), cfg)

	// Assert
	require.NoError(t, err)
	defer container.Shutdown(context.Background())
	assert.Nil(t, container.Tracer)
	assert.NotNil(t, container.Sessions)

	rec := httptest.NewRecorder()
	container.Router.Setup().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestInitializeContainer_MissingCatalog(t *testing.T) {
	cfg := config.Default()
	cfg.CatalogPath = filepath.Join(t.TempDir(), "missing.yaml")

	_, err := InitializeContainer(context.Background(), cfg)

	assert.Error(t, err)
}
