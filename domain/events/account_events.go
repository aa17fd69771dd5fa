package events

import (
	"time"

	"watchlist-backend/domain/core/valueobjects"
)

// UserRegistered is raised when an account is created
type UserRegistered struct {
	BaseEvent
	Username string `json:"username"`
}

// NewUserRegistered creates a UserRegistered event
func NewUserRegistered(userID valueobjects.UserID, username string, at time.Time) UserRegistered {
	return UserRegistered{
		BaseEvent: newBaseEvent(TypeUserRegistered, userID.String(), userID, at),
		Username:  username,
	}
}

// UserLoggedIn is raised on every successful login
type UserLoggedIn struct {
	BaseEvent
}

// NewUserLoggedIn creates a UserLoggedIn event
func NewUserLoggedIn(userID valueobjects.UserID, at time.Time) UserLoggedIn {
	return UserLoggedIn{
		BaseEvent: newBaseEvent(TypeUserLoggedIn, userID.String(), userID, at),
	}
}

// PasswordChanged is raised when the credential hash is replaced
type PasswordChanged struct {
	BaseEvent
}

// NewPasswordChanged creates a PasswordChanged event
func NewPasswordChanged(userID valueobjects.UserID, at time.Time) PasswordChanged {
	return PasswordChanged{
		BaseEvent: newBaseEvent(TypePasswordChanged, userID.String(), userID, at),
	}
}

// RefreshTokenIssued is raised when a refresh token is handed out
type RefreshTokenIssued struct {
	BaseEvent
	TokenID   string    `json:"token_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// NewRefreshTokenIssued creates a RefreshTokenIssued event
func NewRefreshTokenIssued(userID valueobjects.UserID, tokenID string, expiresAt time.Time, at time.Time) RefreshTokenIssued {
	return RefreshTokenIssued{
		BaseEvent: newBaseEvent(TypeRefreshTokenIssued, userID.String(), userID, at),
		TokenID:   tokenID,
		ExpiresAt: expiresAt,
	}
}
