package commands

import (
	"context"
	"time"

	"watchlist-backend/application/ports"
	"watchlist-backend/application/uow"
	"watchlist-backend/domain/core/aggregates"
	"watchlist-backend/domain/core/valueobjects"
	pkgerrors "watchlist-backend/pkg/errors"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const minPasswordLength = 8

// RegisterUserCommand creates an account
type RegisterUserCommand struct {
	Username string
	Password string
}

// LoginUserCommand checks credentials and issues a refresh token
type LoginUserCommand struct {
	Username string
	Password string
}

// ChangePasswordCommand replaces a user's password
type ChangePasswordCommand struct {
	UserID          int64
	CurrentPassword string
	NewPassword     string
}

// LoginResult identifies the session a successful login created
type LoginResult struct {
	UserID         valueobjects.UserID
	Username       string
	RefreshTokenID string
	ExpiresAt      time.Time
}

// AccountHandler runs the account lifecycle use cases.
// Token signing happens outside this service; only the token id is recorded here.
type AccountHandler struct {
	uows            *uow.Factory
	hasher          ports.PasswordHasher
	refreshTokenTTL time.Duration
	logger          *zap.Logger
}

// NewAccountHandler creates a new handler instance
func NewAccountHandler(uows *uow.Factory, hasher ports.PasswordHasher, refreshTokenTTL time.Duration, logger *zap.Logger) *AccountHandler {
	return &AccountHandler{
		uows:            uows,
		hasher:          hasher,
		refreshTokenTTL: refreshTokenTTL,
		logger:          logger,
	}
}

// RegisterUser creates an account with a unique username
func (h *AccountHandler) RegisterUser(ctx context.Context, cmd RegisterUserCommand) (*aggregates.User, error) {
	if len(cmd.Password) < minPasswordLength {
		return nil, pkgerrors.NewValidation("password must be at least 8 characters")
	}

	work := h.uows.Begin()

	if _, err := work.Users().GetByUsername(ctx, cmd.Username); err == nil {
		return nil, pkgerrors.NewConflict("username is already taken")
	} else if !pkgerrors.IsNotFound(err) {
		return nil, err
	}

	hash, err := h.hasher.Hash(cmd.Password)
	if err != nil {
		return nil, pkgerrors.NewInternal("failed to hash password", err)
	}
	id, err := work.Users().NextID(ctx)
	if err != nil {
		return nil, err
	}

	user, err := aggregates.RegisterUser(id, cmd.Username, hash)
	if err != nil {
		return nil, err
	}
	work.Users().Add(user)

	if _, err := work.Commit(ctx); err != nil {
		return nil, err
	}

	h.logger.Info("User registered", zap.Int64("userID", id.Int64()))
	return user, nil
}

// LoginUser verifies credentials, records the login and issues a refresh token id
func (h *AccountHandler) LoginUser(ctx context.Context, cmd LoginUserCommand) (*LoginResult, error) {
	work := h.uows.Begin()

	user, err := work.Users().GetByUsername(ctx, cmd.Username)
	if err != nil {
		if pkgerrors.IsNotFound(err) {
			return nil, pkgerrors.NewUnauthorized("invalid username or password")
		}
		return nil, err
	}
	if err := h.verify(user, cmd.Password); err != nil {
		return nil, err
	}

	user.RecordLogin()
	tokenID := uuid.NewString()
	expiresAt := time.Now().UTC().Add(h.refreshTokenTTL)
	if err := user.IssueRefreshToken(tokenID, expiresAt); err != nil {
		return nil, err
	}
	work.Users().Update(user)

	if _, err := work.Commit(ctx); err != nil {
		return nil, err
	}

	return &LoginResult{
		UserID:         user.ID(),
		Username:       user.Username(),
		RefreshTokenID: tokenID,
		ExpiresAt:      expiresAt,
	}, nil
}

// ChangePassword replaces the password after checking the current one
func (h *AccountHandler) ChangePassword(ctx context.Context, cmd ChangePasswordCommand) error {
	userID, err := valueobjects.NewUserID(cmd.UserID)
	if err != nil {
		return err
	}
	if len(cmd.NewPassword) < minPasswordLength {
		return pkgerrors.NewValidation("password must be at least 8 characters")
	}

	work := h.uows.Begin()
	user, err := work.Users().Get(ctx, userID)
	if err != nil {
		return err
	}
	if err := h.verify(user, cmd.CurrentPassword); err != nil {
		return err
	}

	hash, err := h.hasher.Hash(cmd.NewPassword)
	if err != nil {
		return pkgerrors.NewInternal("failed to hash password", err)
	}
	if err := user.ChangePassword(hash); err != nil {
		return err
	}
	work.Users().Update(user)

	_, err = work.Commit(ctx)
	return err
}

func (h *AccountHandler) verify(user *aggregates.User, password string) error {
	if err := h.hasher.Compare(user.PasswordHash(), password); err != nil {
		h.logger.Debug("Password check failed", zap.Int64("userID", user.ID().Int64()), zap.Error(err))
		return pkgerrors.NewUnauthorized("invalid username or password")
	}
	return nil
}
