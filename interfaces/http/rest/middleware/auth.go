package middleware

import (
	"context"
	"net/http"

	"watchlist-backend/domain/core/valueobjects"

	"github.com/awslabs/aws-lambda-go-api-proxy/core"
	"go.uber.org/zap"
)

type contextKey string

const userIDKey contextKey = "userID"

// UserIDHeader carries the caller's id when no API Gateway authorizer is in front
const UserIDHeader = "X-User-ID"

// Authenticate resolves the caller's user id. Behind API Gateway the Lambda
// authorizer's "sub" claim wins; otherwise the X-User-ID header is trusted.
func Authenticate(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := r.Header.Get(UserIDHeader)
			if proxyCtx, ok := core.GetAPIGatewayV2ContextFromContext(r.Context()); ok &&
				proxyCtx.Authorizer != nil && proxyCtx.Authorizer.Lambda != nil {
				if sub, ok := proxyCtx.Authorizer.Lambda["sub"].(string); ok {
					raw = sub
				}
			}

			if raw == "" {
				respondError(w, http.StatusUnauthorized, "Authentication required")
				return
			}

			userID, err := valueobjects.ParseUserID(raw)
			if err != nil {
				logger.Debug("Rejected caller identity", zap.String("raw", raw), zap.Error(err))
				respondError(w, http.StatusUnauthorized, "Invalid authentication")
				return
			}

			ctx := context.WithValue(r.Context(), userIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserIDFromContext returns the authenticated user id
func UserIDFromContext(ctx context.Context) (valueobjects.UserID, bool) {
	id, ok := ctx.Value(userIDKey).(valueobjects.UserID)
	return id, ok
}

// WithUserID stores a user id the way Authenticate does
func WithUserID(ctx context.Context, id valueobjects.UserID) context.Context {
	return context.WithValue(ctx, userIDKey, id)
}
