package handlers

import (
	"time"

	"watchlist-backend/application/uow"
	"watchlist-backend/domain/core/aggregates"
)

// AddItemRequest is the body of POST /watchlist
type AddItemRequest struct {
	MovieID int64  `json:"movie_id" validate:"required,gt=0"`
	Status  string `json:"status,omitempty" validate:"omitempty,oneof=planned watching watched dropped"`
}

// UpdateStatusRequest is the body of PUT /watchlist/{movieID}/status
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=planned watching watched dropped"`
}

// RateItemRequest is the body of PUT /watchlist/{movieID}/rating
type RateItemRequest struct {
	Rating int `json:"rating" validate:"required,min=1,max=10"`
}

// SetFavoriteRequest is the body of PUT /watchlist/{movieID}/favorite
type SetFavoriteRequest struct {
	IsFavorite *bool `json:"is_favorite" validate:"required"`
}

// UpdateNotesRequest is the body of PUT /watchlist/{movieID}/notes
type UpdateNotesRequest struct {
	Notes string `json:"notes" validate:"max=2000"`
}

// CredentialsRequest is the body of register and login
type CredentialsRequest struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

// ChangePasswordRequest is the body of PUT /auth/password
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=128"`
}

// ItemResponse is one watchlist entry
type ItemResponse struct {
	MovieID     int64      `json:"movie_id"`
	Title       string     `json:"title"`
	Genres      []string   `json:"genres"`
	ReleaseDate *time.Time `json:"release_date,omitempty"`
	VoteAverage float64    `json:"vote_average"`
	Status      string     `json:"status"`
	IsFavorite  bool       `json:"is_favorite"`
	Rating      *int       `json:"rating,omitempty"`
	Notes       *string    `json:"notes,omitempty"`
	AddedAt     time.Time  `json:"added_at"`
	WatchedAt   *time.Time `json:"watched_at,omitempty"`

	// Warnings lists follow-up handlers that failed after the change was saved
	Warnings []string `json:"warnings,omitempty"`
}

func newItemResponse(item *aggregates.WatchlistItem, outcome *uow.CommitOutcome) ItemResponse {
	movie := item.Movie()
	resp := ItemResponse{
		MovieID:     item.MovieID().Int64(),
		Title:       movie.Title(),
		Genres:      movie.Genres(),
		ReleaseDate: movie.ReleaseDate(),
		VoteAverage: movie.VoteAverage(),
		Status:      item.Status().String(),
		IsFavorite:  item.IsFavorite(),
		Notes:       item.Notes(),
		AddedAt:     item.AddedAt(),
		WatchedAt:   item.WatchedAt(),
	}
	if r := item.Rating(); r != nil {
		v := r.Value()
		resp.Rating = &v
	}
	if outcome != nil {
		for _, he := range outcome.HandlerErrors {
			resp.Warnings = append(resp.Warnings, he.Handler+": "+he.EventType)
		}
	}
	return resp
}

// WatchlistResponse is the body of GET /watchlist
type WatchlistResponse struct {
	Items []ItemResponse `json:"items"`
	Total int            `json:"total"`
}

// UserResponse describes an account
type UserResponse struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}

// LoginResponse is the body of POST /auth/login
type LoginResponse struct {
	UserID         int64     `json:"user_id"`
	Username       string    `json:"username"`
	RefreshTokenID string    `json:"refresh_token_id"`
	ExpiresAt      time.Time `json:"expires_at"`
}
