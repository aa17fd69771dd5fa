package queries

import (
	"context"

	"watchlist-backend/application/ports"
	"watchlist-backend/domain/core/aggregates"
	"watchlist-backend/domain/core/valueobjects"
)

// ListWatchlistQuery filters a user's watchlist
type ListWatchlistQuery struct {
	UserID        int64
	Status        string // empty for every status
	FavoritesOnly bool
}

// WatchlistReader serves read-only watchlist views
type WatchlistReader struct {
	sessions ports.SessionFactory
}

// NewWatchlistReader creates a new reader
func NewWatchlistReader(sessions ports.SessionFactory) *WatchlistReader {
	return &WatchlistReader{sessions: sessions}
}

// ListWatchlist returns the user's items in the order they were added
func (r *WatchlistReader) ListWatchlist(ctx context.Context, q ListWatchlistQuery) ([]*aggregates.WatchlistItem, error) {
	userID, err := valueobjects.NewUserID(q.UserID)
	if err != nil {
		return nil, err
	}
	var status valueobjects.WatchStatus
	if q.Status != "" {
		if status, err = valueobjects.ParseWatchStatus(q.Status); err != nil {
			return nil, err
		}
	}

	items, err := r.sessions.NewSession().Watchlist().ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	filtered := items[:0]
	for _, item := range items {
		if status != "" && item.Status() != status {
			continue
		}
		if q.FavoritesOnly && !item.IsFavorite() {
			continue
		}
		filtered = append(filtered, item)
	}
	return filtered, nil
}
