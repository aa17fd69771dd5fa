package listeners

import (
	"context"

	appevents "watchlist-backend/application/events"
	"watchlist-backend/domain/events"

	"go.uber.org/zap"
)

// SecurityAuditLogger keeps an audit trail of account lifecycle events
type SecurityAuditLogger struct {
	logger *zap.Logger
}

// NewSecurityAuditLogger creates a new security audit logger
func NewSecurityAuditLogger(logger *zap.Logger) *SecurityAuditLogger {
	return &SecurityAuditLogger{logger: logger.Named("audit")}
}

// Subscribe registers the audit handlers
func (a *SecurityAuditLogger) Subscribe(d *appevents.Dispatcher) error {
	const name = "security_audit_logger"
	if err := appevents.Register(d, name, func(ctx context.Context, e events.UserRegistered) error {
		a.record(e, zap.String("username", e.Username))
		return nil
	}); err != nil {
		return err
	}
	if err := appevents.Register(d, name, func(ctx context.Context, e events.UserLoggedIn) error {
		a.record(e)
		return nil
	}); err != nil {
		return err
	}
	if err := appevents.Register(d, name, func(ctx context.Context, e events.PasswordChanged) error {
		a.record(e)
		return nil
	}); err != nil {
		return err
	}
	return appevents.Register(d, name, func(ctx context.Context, e events.RefreshTokenIssued) error {
		a.record(e, zap.String("tokenID", e.TokenID), zap.Time("expiresAt", e.ExpiresAt))
		return nil
	})
}

func (a *SecurityAuditLogger) record(event events.DomainEvent, fields ...zap.Field) {
	fields = append([]zap.Field{
		zap.String("eventID", event.EventID()),
		zap.String("eventType", event.EventType()),
		zap.Int64("userID", event.UserID().Int64()),
		zap.Time("occurredAt", event.OccurredAt()),
	}, fields...)
	a.logger.Info("Security event", fields...)
}
