// Package logging provides subsystem-scoped structured logging for meta-ads-mcp.
//
// The package is a thin layer over log/slog. Every entry carries a subsystem
// attribute so output from the auth manager, the callback listener and the
// MCP server can be told apart.
//
// # Initialization
//
//	// Interactive commands
//	logging.InitForCLI(logging.LevelInfo, os.Stderr)
//
//	// MCP server: stdout is the stdio transport, so logs go to stderr
//	logging.InitForMCP(logging.LevelInfo)
//
// # Logging
//
//	logging.Info("AuthManager", "Started authorization session %s", id)
//	logging.Error("CallbackListener", err, "Failed to bind port %d", port)
//
// Calls made before initialization are dropped, except warnings and errors,
// which are written to stderr.
//
// # Audit Logging
//
// Security-relevant events (token stored, token cleared, state mismatch) are
// recorded through Audit:
//
//	logging.Audit(logging.AuditEvent{
//	    Action:    "token_stored",
//	    Outcome:   "success",
//	    SessionID: session.ID,
//	    Method:    "oauth",
//	})
//
// Audit events are logged at INFO level with an [AUDIT] prefix. Token values
// are never passed to this package.
package logging
