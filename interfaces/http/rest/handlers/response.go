package handlers

import (
	"net/http"

	pkgerrors "watchlist-backend/pkg/errors"

	"github.com/goccy/go-json"
	"go.uber.org/zap"
)

// ErrorResponse is the body of every non-2xx response
type ErrorResponse struct {
	Error   bool   `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
	Type    string `json:"type,omitempty"`
}

func respondJSON(w http.ResponseWriter, logger *zap.Logger, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("Failed to encode response", zap.Error(err))
	}
}

func respondError(w http.ResponseWriter, logger *zap.Logger, status int, message string) {
	respondJSON(w, logger, status, ErrorResponse{Error: true, Message: message, Code: status})
}

// respondAppError maps an application error onto its status. Internal details
// of 5xx errors stay in the log.
func respondAppError(w http.ResponseWriter, logger *zap.Logger, err error) {
	status := pkgerrors.HTTPStatus(err)
	body := ErrorResponse{Error: true, Code: status, Message: err.Error()}
	if appErr := pkgerrors.GetAppError(err); appErr != nil {
		body.Type = string(appErr.Type)
		body.Message = appErr.Message
	}

	if status >= http.StatusInternalServerError {
		logger.Error("Request failed", zap.Error(err))
		body.Message = http.StatusText(status)
	}
	respondJSON(w, logger, status, body)
}

func decodeJSON(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return pkgerrors.NewValidation("invalid request body: " + err.Error())
	}
	return validate(dst)
}
