package events

import (
	"time"

	"watchlist-backend/domain/core/valueobjects"
)

// ItemAdded is raised when a movie is put on a user's watchlist
type ItemAdded struct {
	BaseEvent
	MovieID       valueobjects.MovieID     `json:"movie_id"`
	InitialStatus valueobjects.WatchStatus `json:"initial_status"`
}

// NewItemAdded creates an ItemAdded event
func NewItemAdded(key valueobjects.WatchlistItemKey, status valueobjects.WatchStatus, at time.Time) ItemAdded {
	return ItemAdded{
		BaseEvent:     newBaseEvent(TypeItemAdded, key.String(), key.UserID, at),
		MovieID:       key.MovieID,
		InitialStatus: status,
	}
}

// ItemWatched is raised the first time an item reaches the watched status
type ItemWatched struct {
	BaseEvent
	MovieID   valueobjects.MovieID `json:"movie_id"`
	WatchedAt time.Time            `json:"watched_at"`
}

// NewItemWatched creates an ItemWatched event
func NewItemWatched(key valueobjects.WatchlistItemKey, watchedAt time.Time, at time.Time) ItemWatched {
	return ItemWatched{
		BaseEvent: newBaseEvent(TypeItemWatched, key.String(), key.UserID, at),
		MovieID:   key.MovieID,
		WatchedAt: watchedAt,
	}
}

// ItemRated is raised when a user scores an item
type ItemRated struct {
	BaseEvent
	MovieID        valueobjects.MovieID `json:"movie_id"`
	Rating         valueobjects.Rating  `json:"rating"`
	PreviousRating *valueobjects.Rating `json:"previous_rating,omitempty"`
}

// NewItemRated creates an ItemRated event
func NewItemRated(key valueobjects.WatchlistItemKey, rating valueobjects.Rating, previous *valueobjects.Rating, at time.Time) ItemRated {
	return ItemRated{
		BaseEvent:      newBaseEvent(TypeItemRated, key.String(), key.UserID, at),
		MovieID:        key.MovieID,
		Rating:         rating,
		PreviousRating: previous,
	}
}

// ItemFavorited is raised when the favorite flag flips either way
type ItemFavorited struct {
	BaseEvent
	MovieID    valueobjects.MovieID `json:"movie_id"`
	IsFavorite bool                 `json:"is_favorite"`
}

// NewItemFavorited creates an ItemFavorited event
func NewItemFavorited(key valueobjects.WatchlistItemKey, isFavorite bool, at time.Time) ItemFavorited {
	return ItemFavorited{
		BaseEvent:  newBaseEvent(TypeItemFavorited, key.String(), key.UserID, at),
		MovieID:    key.MovieID,
		IsFavorite: isFavorite,
	}
}

// ItemRemoved is raised right before an item is deleted
type ItemRemoved struct {
	BaseEvent
	MovieID     valueobjects.MovieID     `json:"movie_id"`
	FinalStatus valueobjects.WatchStatus `json:"final_status"`
}

// NewItemRemoved creates an ItemRemoved event
func NewItemRemoved(key valueobjects.WatchlistItemKey, finalStatus valueobjects.WatchStatus, at time.Time) ItemRemoved {
	return ItemRemoved{
		BaseEvent:   newBaseEvent(TypeItemRemoved, key.String(), key.UserID, at),
		MovieID:     key.MovieID,
		FinalStatus: finalStatus,
	}
}

// StatisticsInvalidated tells listeners that a user's derived statistics are stale
type StatisticsInvalidated struct {
	BaseEvent
}

// NewStatisticsInvalidated creates a StatisticsInvalidated event
func NewStatisticsInvalidated(key valueobjects.WatchlistItemKey, at time.Time) StatisticsInvalidated {
	return StatisticsInvalidated{
		BaseEvent: newBaseEvent(TypeStatisticsInvalidated, key.String(), key.UserID, at),
	}
}
