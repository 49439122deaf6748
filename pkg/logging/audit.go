package logging

import (
	"context"
	"log/slog"
)

// AuditEvent describes a security-relevant action for the audit trail.
// Credential values must never be placed in any field.
type AuditEvent struct {
	// Action is what happened, e.g. "token_stored" or "state_mismatch".
	Action string
	// Outcome is "success" or "failure".
	Outcome string
	// SessionID identifies the authorization attempt, if any.
	SessionID string
	// Method is the token acquisition method, if relevant.
	Method string
	// Detail carries a short non-sensitive diagnostic.
	Detail string
}

// Audit logs an audit event at INFO level with an [AUDIT] prefix.
func Audit(event AuditEvent) {
	mu.RLock()
	logger := defaultLogger
	mu.RUnlock()
	if logger == nil {
		logger = slog.Default()
	}

	attrs := []slog.Attr{
		slog.String("subsystem", "Audit"),
		slog.String("action", event.Action),
		slog.String("outcome", event.Outcome),
	}
	if event.SessionID != "" {
		attrs = append(attrs, slog.String("session_id", TruncateSessionID(event.SessionID)))
	}
	if event.Method != "" {
		attrs = append(attrs, slog.String("method", event.Method))
	}
	if event.Detail != "" {
		attrs = append(attrs, slog.String("detail", event.Detail))
	}

	logger.LogAttrs(context.Background(), slog.LevelInfo, "[AUDIT] "+event.Action, attrs...)
}

// TruncateSessionID shortens a session identifier for log output.
func TruncateSessionID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8] + "..."
}
