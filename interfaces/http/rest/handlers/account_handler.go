package handlers

import (
	"net/http"

	"watchlist-backend/application/commands"
	"watchlist-backend/interfaces/http/rest/middleware"

	"go.uber.org/zap"
)

// AccountHandler handles registration, login and password changes
type AccountHandler struct {
	commands *commands.AccountHandler
	logger   *zap.Logger
}

// NewAccountHandler creates a new account handler
func NewAccountHandler(cmds *commands.AccountHandler, logger *zap.Logger) *AccountHandler {
	return &AccountHandler{commands: cmds, logger: logger}
}

// Register handles POST /auth/register
func (h *AccountHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		respondAppError(w, h.logger, err)
		return
	}

	user, err := h.commands.RegisterUser(r.Context(), commands.RegisterUserCommand{
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		respondAppError(w, h.logger, err)
		return
	}

	respondJSON(w, h.logger, http.StatusCreated, UserResponse{
		ID:        user.ID().Int64(),
		Username:  user.Username(),
		CreatedAt: user.CreatedAt(),
	})
}

// Login handles POST /auth/login
func (h *AccountHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		respondAppError(w, h.logger, err)
		return
	}

	result, err := h.commands.LoginUser(r.Context(), commands.LoginUserCommand{
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		respondAppError(w, h.logger, err)
		return
	}

	respondJSON(w, h.logger, http.StatusOK, LoginResponse{
		UserID:         result.UserID.Int64(),
		Username:       result.Username,
		RefreshTokenID: result.RefreshTokenID,
		ExpiresAt:      result.ExpiresAt,
	})
}

// ChangePassword handles PUT /auth/password
func (h *AccountHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, h.logger, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req ChangePasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		respondAppError(w, h.logger, err)
		return
	}

	err := h.commands.ChangePassword(r.Context(), commands.ChangePasswordCommand{
		UserID:          userID.Int64(),
		CurrentPassword: req.CurrentPassword,
		NewPassword:     req.NewPassword,
	})
	if err != nil {
		respondAppError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
