package handlers

import (
	"net/http"
	"strconv"

	"watchlist-backend/application/commands"
	"watchlist-backend/application/queries"
	"watchlist-backend/interfaces/http/rest/middleware"
	pkgerrors "watchlist-backend/pkg/errors"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// WatchlistHandler handles watchlist HTTP requests
type WatchlistHandler struct {
	commands *commands.WatchlistHandler
	reader   *queries.WatchlistReader
	logger   *zap.Logger
}

// NewWatchlistHandler creates a new watchlist handler
func NewWatchlistHandler(cmds *commands.WatchlistHandler, reader *queries.WatchlistReader, logger *zap.Logger) *WatchlistHandler {
	return &WatchlistHandler{
		commands: cmds,
		reader:   reader,
		logger:   logger,
	}
}

// ListItems handles GET /watchlist
func (h *WatchlistHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, h.logger, http.StatusUnauthorized, "Unauthorized")
		return
	}

	favoritesOnly := false
	if raw := r.URL.Query().Get("favorites"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			respondError(w, h.logger, http.StatusBadRequest, "favorites must be true or false")
			return
		}
		favoritesOnly = v
	}

	items, err := h.reader.ListWatchlist(r.Context(), queries.ListWatchlistQuery{
		UserID:        userID.Int64(),
		Status:        r.URL.Query().Get("status"),
		FavoritesOnly: favoritesOnly,
	})
	if err != nil {
		respondAppError(w, h.logger, err)
		return
	}

	resp := WatchlistResponse{Items: make([]ItemResponse, 0, len(items)), Total: len(items)}
	for _, item := range items {
		resp.Items = append(resp.Items, newItemResponse(item, nil))
	}
	respondJSON(w, h.logger, http.StatusOK, resp)
}

// AddItem handles POST /watchlist
func (h *WatchlistHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, h.logger, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req AddItemRequest
	if err := decodeJSON(r, &req); err != nil {
		respondAppError(w, h.logger, err)
		return
	}

	result, err := h.commands.AddToWatchlist(r.Context(), commands.AddToWatchlistCommand{
		UserID:  userID.Int64(),
		MovieID: req.MovieID,
		Status:  req.Status,
	})
	h.respondResult(w, http.StatusCreated, result, err)
}

// UpdateStatus handles PUT /watchlist/{movieID}/status
func (h *WatchlistHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	userID, movieID, ok := h.itemParams(w, r)
	if !ok {
		return
	}
	var req UpdateStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		respondAppError(w, h.logger, err)
		return
	}

	result, err := h.commands.UpdateStatus(r.Context(), commands.UpdateStatusCommand{
		UserID: userID, MovieID: movieID, Status: req.Status,
	})
	h.respondResult(w, http.StatusOK, result, err)
}

// MarkWatched handles POST /watchlist/{movieID}/watched
func (h *WatchlistHandler) MarkWatched(w http.ResponseWriter, r *http.Request) {
	userID, movieID, ok := h.itemParams(w, r)
	if !ok {
		return
	}

	result, err := h.commands.MarkWatched(r.Context(), commands.MarkWatchedCommand{UserID: userID, MovieID: movieID})
	h.respondResult(w, http.StatusOK, result, err)
}

// RateItem handles PUT /watchlist/{movieID}/rating
func (h *WatchlistHandler) RateItem(w http.ResponseWriter, r *http.Request) {
	userID, movieID, ok := h.itemParams(w, r)
	if !ok {
		return
	}
	var req RateItemRequest
	if err := decodeJSON(r, &req); err != nil {
		respondAppError(w, h.logger, err)
		return
	}

	result, err := h.commands.RateItem(r.Context(), commands.RateItemCommand{
		UserID: userID, MovieID: movieID, Rating: req.Rating,
	})
	h.respondResult(w, http.StatusOK, result, err)
}

// SetFavorite handles PUT /watchlist/{movieID}/favorite
func (h *WatchlistHandler) SetFavorite(w http.ResponseWriter, r *http.Request) {
	userID, movieID, ok := h.itemParams(w, r)
	if !ok {
		return
	}
	var req SetFavoriteRequest
	if err := decodeJSON(r, &req); err != nil {
		respondAppError(w, h.logger, err)
		return
	}

	result, err := h.commands.SetFavorite(r.Context(), commands.SetFavoriteCommand{
		UserID: userID, MovieID: movieID, IsFavorite: *req.IsFavorite,
	})
	h.respondResult(w, http.StatusOK, result, err)
}

// UpdateNotes handles PUT /watchlist/{movieID}/notes
func (h *WatchlistHandler) UpdateNotes(w http.ResponseWriter, r *http.Request) {
	userID, movieID, ok := h.itemParams(w, r)
	if !ok {
		return
	}
	var req UpdateNotesRequest
	if err := decodeJSON(r, &req); err != nil {
		respondAppError(w, h.logger, err)
		return
	}

	result, err := h.commands.UpdateNotes(r.Context(), commands.UpdateNotesCommand{
		UserID: userID, MovieID: movieID, Notes: req.Notes,
	})
	h.respondResult(w, http.StatusOK, result, err)
}

// RemoveItem handles DELETE /watchlist/{movieID}
func (h *WatchlistHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	userID, movieID, ok := h.itemParams(w, r)
	if !ok {
		return
	}

	result, err := h.commands.RemoveFromWatchlist(r.Context(), commands.RemoveFromWatchlistCommand{
		UserID: userID, MovieID: movieID,
	})
	if err != nil {
		respondAppError(w, h.logger, err)
		return
	}
	if result.Outcome.HasHandlerErrors() {
		respondJSON(w, h.logger, http.StatusOK, newItemResponse(result.Item, &result.Outcome))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *WatchlistHandler) itemParams(w http.ResponseWriter, r *http.Request) (int64, int64, bool) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, h.logger, http.StatusUnauthorized, "Unauthorized")
		return 0, 0, false
	}

	movieID, err := strconv.ParseInt(chi.URLParam(r, "movieID"), 10, 64)
	if err != nil || movieID <= 0 {
		respondError(w, h.logger, http.StatusBadRequest, "Invalid movie ID")
		return 0, 0, false
	}
	return userID.Int64(), movieID, true
}

func (h *WatchlistHandler) respondResult(w http.ResponseWriter, status int, result *commands.ItemResult, err error) {
	if err != nil {
		if !pkgerrors.IsValidation(err) && !pkgerrors.IsNotFound(err) && !pkgerrors.IsConflict(err) {
			h.logger.Warn("Watchlist command failed", zap.Error(err))
		}
		respondAppError(w, h.logger, err)
		return
	}
	respondJSON(w, h.logger, status, newItemResponse(result.Item, &result.Outcome))
}
