package handlers

import (
	"net/http"

	"watchlist-backend/application/queries"
	"watchlist-backend/interfaces/http/rest/middleware"

	"go.uber.org/zap"
)

// StatisticsHandler serves the cached per-user statistics
type StatisticsHandler struct {
	service *queries.StatisticsService
	logger  *zap.Logger
}

// NewStatisticsHandler creates a new statistics handler
func NewStatisticsHandler(service *queries.StatisticsService, logger *zap.Logger) *StatisticsHandler {
	return &StatisticsHandler{service: service, logger: logger}
}

// GetStatistics handles GET /statistics
func (h *StatisticsHandler) GetStatistics(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, h.logger, http.StatusUnauthorized, "Unauthorized")
		return
	}

	snapshot, err := h.service.GetOrRecompute(r.Context(), userID)
	if err != nil {
		respondAppError(w, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, snapshot)
}
