package aggregates

import (
	"time"

	"watchlist-backend/domain/core/entities"
	"watchlist-backend/domain/core/valueobjects"
	"watchlist-backend/domain/events"
	pkgerrors "watchlist-backend/pkg/errors"
)

// WatchlistItem is the aggregate root for one movie on one user's watchlist.
// All state changes go through its methods so every change has a matching event.
type WatchlistItem struct {
	key        valueobjects.WatchlistItemKey
	movie      *entities.Movie
	status     valueobjects.WatchStatus
	isFavorite bool
	rating     *valueobjects.Rating
	notes      *string
	addedAt    time.Time
	watchedAt  *time.Time
	buffer     EventBuffer
}

// WatchlistItemState is the persisted form of a WatchlistItem
type WatchlistItemState struct {
	UserID     valueobjects.UserID
	Movie      *entities.Movie
	Status     valueobjects.WatchStatus
	IsFavorite bool
	Rating     *valueobjects.Rating
	Notes      *string
	AddedAt    time.Time
	WatchedAt  *time.Time
}

// NewWatchlistItem puts a movie on a user's watchlist in the planned state
func NewWatchlistItem(ownerID valueobjects.UserID, movie *entities.Movie) (*WatchlistItem, error) {
	if ownerID <= 0 {
		return nil, pkgerrors.NewValidation("owner ID must be positive")
	}
	if movie == nil {
		return nil, pkgerrors.NewNullReference("movie")
	}

	item := &WatchlistItem{
		key:    valueobjects.WatchlistItemKey{UserID: ownerID, MovieID: movie.ID()},
		movie:  movie,
		status: valueobjects.StatusPlanned,
	}
	item.addedAt = item.buffer.stamp()
	item.buffer.append(events.NewItemAdded(item.key, item.status, item.addedAt))

	return item, nil
}

// ReconstituteWatchlistItem rebuilds an item from storage without raising events
func ReconstituteWatchlistItem(state WatchlistItemState) (*WatchlistItem, error) {
	if state.UserID <= 0 {
		return nil, pkgerrors.NewValidation("owner ID must be positive")
	}
	if state.Movie == nil {
		return nil, pkgerrors.NewNullReference("movie")
	}
	if !state.Status.IsValid() {
		return nil, pkgerrors.NewValidation("invalid watch status: " + string(state.Status))
	}

	return &WatchlistItem{
		key:        valueobjects.WatchlistItemKey{UserID: state.UserID, MovieID: state.Movie.ID()},
		movie:      state.Movie,
		status:     state.Status,
		isFavorite: state.IsFavorite,
		rating:     state.Rating,
		notes:      state.Notes,
		addedAt:    state.AddedAt,
		watchedAt:  state.WatchedAt,
		buffer:     EventBuffer{last: state.AddedAt},
	}, nil
}

// UpdateStatus moves the item to a new status. The first move into watched
// stamps the watched time. Every call invalidates the owner's statistics.
func (w *WatchlistItem) UpdateStatus(status valueobjects.WatchStatus) error {
	if !status.IsValid() {
		return pkgerrors.NewValidation("invalid watch status: " + string(status))
	}

	w.setStatus(status)
	return nil
}

// setStatus applies an already validated status
func (w *WatchlistItem) setStatus(status valueobjects.WatchStatus) {
	at := w.buffer.stamp()
	w.status = status
	if status == valueobjects.StatusWatched && w.watchedAt == nil {
		watchedAt := at
		w.watchedAt = &watchedAt
	}
	w.buffer.append(events.NewStatisticsInvalidated(w.key, at))
}

// MarkAsWatched raises StatisticsInvalidated then ItemWatched.
// It does nothing when the item is already watched.
func (w *WatchlistItem) MarkAsWatched() {
	if w.status == valueobjects.StatusWatched {
		return
	}

	w.setStatus(valueobjects.StatusWatched)
	w.buffer.append(events.NewItemWatched(w.key, *w.watchedAt, w.buffer.stamp()))
}

// SetRating scores the item and raises ItemRated then StatisticsInvalidated
func (w *WatchlistItem) SetRating(rating *valueobjects.Rating) error {
	if rating == nil {
		return pkgerrors.NewValidation("rating is required")
	}

	previous := w.rating
	r := *rating
	w.rating = &r

	at := w.buffer.stamp()
	w.buffer.append(events.NewItemRated(w.key, r, previous, at))
	w.buffer.append(events.NewStatisticsInvalidated(w.key, at))
	return nil
}

// SetFavorite flips the favorite flag. Setting the current value is a no-op.
func (w *WatchlistItem) SetFavorite(isFavorite bool) {
	if w.isFavorite == isFavorite {
		return
	}

	w.isFavorite = isFavorite
	at := w.buffer.stamp()
	w.buffer.append(events.NewItemFavorited(w.key, isFavorite, at))
	w.buffer.append(events.NewStatisticsInvalidated(w.key, at))
}

// UpdateNotes replaces the free-text note. Notes feed nothing derived, so no event.
func (w *WatchlistItem) UpdateNotes(text string) {
	if text == "" {
		w.notes = nil
		return
	}
	w.notes = &text
}

// MarkForRemoval raises ItemRemoved. The caller deletes the item afterwards.
func (w *WatchlistItem) MarkForRemoval() {
	w.buffer.append(events.NewItemRemoved(w.key, w.status, w.buffer.stamp()))
}

// Getters

func (w *WatchlistItem) Key() valueobjects.WatchlistItemKey { return w.key }
func (w *WatchlistItem) UserID() valueobjects.UserID        { return w.key.UserID }
func (w *WatchlistItem) MovieID() valueobjects.MovieID      { return w.key.MovieID }
func (w *WatchlistItem) Movie() *entities.Movie             { return w.movie }
func (w *WatchlistItem) Status() valueobjects.WatchStatus   { return w.status }
func (w *WatchlistItem) IsFavorite() bool                   { return w.isFavorite }
func (w *WatchlistItem) Rating() *valueobjects.Rating       { return w.rating }
func (w *WatchlistItem) Notes() *string                     { return w.notes }
func (w *WatchlistItem) AddedAt() time.Time                 { return w.addedAt }
func (w *WatchlistItem) WatchedAt() *time.Time              { return w.watchedAt }

// State returns the persisted form of the item
func (w *WatchlistItem) State() WatchlistItemState {
	return WatchlistItemState{
		UserID:     w.key.UserID,
		Movie:      w.movie,
		Status:     w.status,
		IsFavorite: w.isFavorite,
		Rating:     w.rating,
		Notes:      w.notes,
		AddedAt:    w.addedAt,
		WatchedAt:  w.watchedAt,
	}
}

// AggregateID returns the "user/movie" identity
func (w *WatchlistItem) AggregateID() string {
	return w.key.String()
}

// GetUncommittedEvents returns a copy of the pending events
func (w *WatchlistItem) GetUncommittedEvents() []events.DomainEvent {
	return w.buffer.Peek()
}

// MarkEventsAsCommitted clears the oldest count pending events
func (w *WatchlistItem) MarkEventsAsCommitted(count int) {
	w.buffer.DrainFirst(count)
}
