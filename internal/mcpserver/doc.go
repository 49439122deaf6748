// Package mcpserver exposes the login orchestrator over the Model Context
// Protocol using github.com/mark3labs/mcp-go.
//
// One tool is registered:
//
//	get_login_link(access_token?: string)
//
// It returns the orchestrator's Result rendered as JSON text. Failures are
// part of the result body; the tool itself never reports a protocol error.
//
// Two transports are available: stdio (the default, for MCP hosts that
// spawn the server) and streamable-http.
package mcpserver
