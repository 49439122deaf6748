package mcpserver

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/giantswarm/meta-ads-mcp/internal/login"
	"github.com/giantswarm/meta-ads-mcp/pkg/logging"
)

// ServerName is the implementation name announced to MCP clients.
const ServerName = "meta-ads-mcp"

// ToolGetLoginLink is the name of the login tool.
const ToolGetLoginLink = "get_login_link"

// Transport selects how the MCP server talks to its client.
type Transport string

const (
	TransportStdio          Transport = "stdio"
	TransportStreamableHTTP Transport = "streamable-http"
)

// ParseTransport validates a transport name.
func ParseTransport(s string) (Transport, error) {
	switch Transport(s) {
	case TransportStdio, TransportStreamableHTTP:
		return Transport(s), nil
	default:
		return "", fmt.Errorf("unsupported transport %q (expected %s or %s)", s, TransportStdio, TransportStreamableHTTP)
	}
}

// LoginProvider produces login results for the get_login_link tool.
type LoginProvider interface {
	Login(ctx context.Context, manualToken string) login.Result
}

// Server exposes the login orchestrator as MCP tools.
type Server struct {
	login     LoginProvider
	mcpServer *server.MCPServer
}

// New creates a Server and registers its tools.
func New(provider LoginProvider, version string) *Server {
	mcpServer := server.NewMCPServer(
		ServerName,
		version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)

	s := &Server{
		login:     provider,
		mcpServer: mcpServer,
	}
	s.registerTools()
	return s
}

// MCPServer returns the underlying mcp-go server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

func (s *Server) registerTools() {
	getLoginLink := mcp.NewTool(ToolGetLoginLink,
		mcp.WithDescription("Get a clickable login link for Meta Ads authentication. "+
			"Returns the cached token status when already authenticated."),
		mcp.WithString("access_token",
			mcp.Description("Meta API access token (optional; the cached token is used when omitted)"),
		),
	)
	s.mcpServer.AddTool(getLoginLink, s.handleGetLoginLink)
}

// handleGetLoginLink runs the login decision order and returns the result as JSON.
func (s *Server) handleGetLoginLink(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	manualToken := request.GetString("access_token", "")

	result := s.login.Login(ctx, manualToken)
	logging.Debug("MCPServer", "get_login_link returned status=%s method=%s", result.Status, result.AuthenticationMethod)

	return mcp.NewToolResultText(result.JSON()), nil
}

// ServeStdio serves MCP over the given streams until ctx is cancelled or
// the input is closed.
func (s *Server) ServeStdio(ctx context.Context, in io.Reader, out io.Writer) error {
	logging.Info("MCPServer", "Starting MCP server with stdio transport")
	stdio := server.NewStdioServer(s.mcpServer)
	if err := stdio.Listen(ctx, in, out); err != nil && ctx.Err() == nil {
		return fmt.Errorf("stdio server: %w", err)
	}
	return nil
}

// ServeStreamableHTTP serves MCP over streamable HTTP on addr until ctx is
// cancelled.
func (s *Server) ServeStreamableHTTP(ctx context.Context, addr string) error {
	logging.Info("MCPServer", "Starting MCP server with streamable-http transport on %s", addr)
	httpServer := server.NewStreamableHTTPServer(s.mcpServer)

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.Start(addr)
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("streamable HTTP server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logging.Error("MCPServer", err, "Error shutting down streamable HTTP server")
	}
	return nil
}

// Serve dispatches to the selected transport.
func (s *Server) Serve(ctx context.Context, transport Transport, addr string, in io.Reader, out io.Writer) error {
	switch transport {
	case TransportStreamableHTTP:
		return s.ServeStreamableHTTP(ctx, addr)
	default:
		return s.ServeStdio(ctx, in, out)
	}
}
