package commands

import (
	"context"
	"fmt"

	"watchlist-backend/application/ports"
	"watchlist-backend/application/uow"
	"watchlist-backend/domain/core/aggregates"
	"watchlist-backend/domain/core/valueobjects"
	pkgerrors "watchlist-backend/pkg/errors"

	"go.uber.org/zap"
)

// AddToWatchlistCommand puts a catalog movie on a user's watchlist
type AddToWatchlistCommand struct {
	UserID  int64
	MovieID int64
	Status  string // optional initial status, planned when empty
}

// UpdateStatusCommand moves an item to another status
type UpdateStatusCommand struct {
	UserID  int64
	MovieID int64
	Status  string
}

// MarkWatchedCommand marks an item as watched
type MarkWatchedCommand struct {
	UserID  int64
	MovieID int64
}

// RateItemCommand scores an item
type RateItemCommand struct {
	UserID  int64
	MovieID int64
	Rating  int
}

// SetFavoriteCommand sets or clears the favorite flag
type SetFavoriteCommand struct {
	UserID     int64
	MovieID    int64
	IsFavorite bool
}

// UpdateNotesCommand replaces an item's note
type UpdateNotesCommand struct {
	UserID  int64
	MovieID int64
	Notes   string
}

// RemoveFromWatchlistCommand deletes an item
type RemoveFromWatchlistCommand struct {
	UserID  int64
	MovieID int64
}

// ItemResult is the item after a successful command and the commit outcome
type ItemResult struct {
	Item    *aggregates.WatchlistItem
	Outcome uow.CommitOutcome
}

// WatchlistHandler runs the watchlist use cases. Each call is one unit of work.
type WatchlistHandler struct {
	uows    *uow.Factory
	catalog ports.MovieCatalog
	logger  *zap.Logger
}

// NewWatchlistHandler creates a new handler instance
func NewWatchlistHandler(uows *uow.Factory, catalog ports.MovieCatalog, logger *zap.Logger) *WatchlistHandler {
	return &WatchlistHandler{
		uows:    uows,
		catalog: catalog,
		logger:  logger,
	}
}

// AddToWatchlist creates a new item. A movie already on the list is a conflict.
func (h *WatchlistHandler) AddToWatchlist(ctx context.Context, cmd AddToWatchlistCommand) (*ItemResult, error) {
	key, err := itemKey(cmd.UserID, cmd.MovieID)
	if err != nil {
		return nil, err
	}
	status := valueobjects.StatusPlanned
	if cmd.Status != "" {
		if status, err = valueobjects.ParseWatchStatus(cmd.Status); err != nil {
			return nil, err
		}
	}

	work := h.uows.Begin()

	if _, err := work.Users().Get(ctx, key.UserID); err != nil {
		return nil, err
	}
	if _, err := work.Watchlist().Get(ctx, key); err == nil {
		return nil, pkgerrors.NewConflict(fmt.Sprintf("movie %s is already on the watchlist", key.MovieID))
	} else if !pkgerrors.IsNotFound(err) {
		return nil, err
	}

	movie, err := h.catalog.GetMovie(ctx, key.MovieID)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to resolve movie")
	}

	item, err := aggregates.NewWatchlistItem(key.UserID, movie)
	if err != nil {
		return nil, err
	}
	switch status {
	case valueobjects.StatusPlanned:
	case valueobjects.StatusWatched:
		item.MarkAsWatched()
	default:
		if err := item.UpdateStatus(status); err != nil {
			return nil, err
		}
	}
	work.Watchlist().Add(item)

	return h.commit(ctx, work, item, "add_to_watchlist")
}

// UpdateStatus moves an item to another status
func (h *WatchlistHandler) UpdateStatus(ctx context.Context, cmd UpdateStatusCommand) (*ItemResult, error) {
	status, err := valueobjects.ParseWatchStatus(cmd.Status)
	if err != nil {
		return nil, err
	}
	return h.mutate(ctx, cmd.UserID, cmd.MovieID, "update_status", func(item *aggregates.WatchlistItem) error {
		if status == valueobjects.StatusWatched {
			item.MarkAsWatched()
			return nil
		}
		return item.UpdateStatus(status)
	})
}

// MarkWatched marks an item as watched. Repeating it changes nothing.
func (h *WatchlistHandler) MarkWatched(ctx context.Context, cmd MarkWatchedCommand) (*ItemResult, error) {
	return h.mutate(ctx, cmd.UserID, cmd.MovieID, "mark_watched", func(item *aggregates.WatchlistItem) error {
		item.MarkAsWatched()
		return nil
	})
}

// RateItem scores an item
func (h *WatchlistHandler) RateItem(ctx context.Context, cmd RateItemCommand) (*ItemResult, error) {
	rating, err := valueobjects.NewRating(cmd.Rating)
	if err != nil {
		return nil, err
	}
	return h.mutate(ctx, cmd.UserID, cmd.MovieID, "rate_item", func(item *aggregates.WatchlistItem) error {
		return item.SetRating(&rating)
	})
}

// SetFavorite sets or clears the favorite flag
func (h *WatchlistHandler) SetFavorite(ctx context.Context, cmd SetFavoriteCommand) (*ItemResult, error) {
	return h.mutate(ctx, cmd.UserID, cmd.MovieID, "set_favorite", func(item *aggregates.WatchlistItem) error {
		item.SetFavorite(cmd.IsFavorite)
		return nil
	})
}

// UpdateNotes replaces an item's note
func (h *WatchlistHandler) UpdateNotes(ctx context.Context, cmd UpdateNotesCommand) (*ItemResult, error) {
	if len(cmd.Notes) > 2000 {
		return nil, pkgerrors.NewValidation("notes must be at most 2000 characters")
	}
	return h.mutate(ctx, cmd.UserID, cmd.MovieID, "update_notes", func(item *aggregates.WatchlistItem) error {
		item.UpdateNotes(cmd.Notes)
		return nil
	})
}

// RemoveFromWatchlist raises ItemRemoved and deletes the item in the same commit
func (h *WatchlistHandler) RemoveFromWatchlist(ctx context.Context, cmd RemoveFromWatchlistCommand) (*ItemResult, error) {
	key, err := itemKey(cmd.UserID, cmd.MovieID)
	if err != nil {
		return nil, err
	}

	work := h.uows.Begin()
	item, err := work.Watchlist().Get(ctx, key)
	if err != nil {
		return nil, err
	}

	item.MarkForRemoval()
	work.Watchlist().Remove(item)

	return h.commit(ctx, work, item, "remove_from_watchlist")
}

func (h *WatchlistHandler) mutate(ctx context.Context, userID, movieID int64, op string, fn func(*aggregates.WatchlistItem) error) (*ItemResult, error) {
	key, err := itemKey(userID, movieID)
	if err != nil {
		return nil, err
	}

	work := h.uows.Begin()
	item, err := work.Watchlist().Get(ctx, key)
	if err != nil {
		return nil, err
	}

	if err := fn(item); err != nil {
		return nil, err
	}
	work.Watchlist().Update(item)

	return h.commit(ctx, work, item, op)
}

func (h *WatchlistHandler) commit(ctx context.Context, work *uow.UnitOfWork, item *aggregates.WatchlistItem, op string) (*ItemResult, error) {
	outcome, err := work.Commit(ctx)
	if err != nil {
		return nil, err
	}

	h.logger.Info("Watchlist command completed",
		zap.String("operation", op),
		zap.Int64("userID", item.UserID().Int64()),
		zap.Int64("movieID", item.MovieID().Int64()),
		zap.Int("events", outcome.EventCount),
		zap.Int("handlerErrors", len(outcome.HandlerErrors)),
	)

	return &ItemResult{Item: item, Outcome: outcome}, nil
}

func itemKey(userID, movieID int64) (valueobjects.WatchlistItemKey, error) {
	uid, err := valueobjects.NewUserID(userID)
	if err != nil {
		return valueobjects.WatchlistItemKey{}, err
	}
	mid, err := valueobjects.NewMovieID(movieID)
	if err != nil {
		return valueobjects.WatchlistItemKey{}, err
	}
	return valueobjects.WatchlistItemKey{UserID: uid, MovieID: mid}, nil
}
