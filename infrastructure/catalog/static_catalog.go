package catalog

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"watchlist-backend/domain/core/entities"
	"watchlist-backend/domain/core/valueobjects"
	pkgerrors "watchlist-backend/pkg/errors"

	"gopkg.in/yaml.v3"
)

// movieRecord is the YAML shape of one catalog entry
type movieRecord struct {
	ID          int64    `yaml:"id"`
	Title       string   `yaml:"title"`
	Genres      []string `yaml:"genres"`
	ReleaseDate string   `yaml:"release_date"`
	VoteAverage float64  `yaml:"vote_average"`
}

type catalogFile struct {
	Movies []movieRecord `yaml:"movies"`
}

// StaticCatalog serves movie references from a fixed data set. It stands in
// for the TMDB client in local runs and tests.
type StaticCatalog struct {
	mu     sync.RWMutex
	movies map[valueobjects.MovieID]*entities.Movie
}

// NewStaticCatalog creates a catalog holding the given movies
func NewStaticCatalog(movies ...*entities.Movie) *StaticCatalog {
	c := &StaticCatalog{movies: make(map[valueobjects.MovieID]*entities.Movie, len(movies))}
	for _, m := range movies {
		c.movies[m.ID()] = m
	}
	return c
}

// LoadStaticCatalog reads a YAML catalog file
func LoadStaticCatalog(path string) (*StaticCatalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}
	return ParseStaticCatalog(data)
}

// ParseStaticCatalog builds a catalog from YAML
func ParseStaticCatalog(data []byte) (*StaticCatalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	c := NewStaticCatalog()
	for i, rec := range file.Movies {
		movie, err := rec.toMovie()
		if err != nil {
			return nil, fmt.Errorf("catalog entry %d: %w", i, err)
		}
		c.movies[movie.ID()] = movie
	}
	return c, nil
}

func (r movieRecord) toMovie() (*entities.Movie, error) {
	var release *time.Time
	if r.ReleaseDate != "" {
		d, err := time.Parse("2006-01-02", r.ReleaseDate)
		if err != nil {
			return nil, fmt.Errorf("invalid release date %q: %w", r.ReleaseDate, err)
		}
		release = &d
	}
	return entities.NewMovie(valueobjects.MovieID(r.ID), r.Title, r.Genres, release, r.VoteAverage)
}

// Put adds or replaces a movie
func (c *StaticCatalog) Put(movie *entities.Movie) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.movies[movie.ID()] = movie
}

// Len returns the number of movies in the catalog
func (c *StaticCatalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.movies)
}

// GetMovie implements ports.MovieCatalog
func (c *StaticCatalog) GetMovie(ctx context.Context, id valueobjects.MovieID) (*entities.Movie, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	movie, ok := c.movies[id]
	if !ok {
		return nil, pkgerrors.NewNotFound(fmt.Sprintf("movie %s not found in catalog", id))
	}
	return movie, nil
}
