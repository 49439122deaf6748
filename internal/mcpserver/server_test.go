package mcpserver

import (
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/giantswarm/meta-ads-mcp/internal/login"
)

type recordingProvider struct {
	tokens []string
	result login.Result
}

func (p *recordingProvider) Login(ctx context.Context, manualToken string) login.Result {
	p.tokens = append(p.tokens, manualToken)
	return p.result
}

func callGetLoginLink(t *testing.T, s *Server, args map[string]any) map[string]any {
	t.Helper()
	var req mcp.CallToolRequest
	req.Params.Name = ToolGetLoginLink
	req.Params.Arguments = args

	res, err := s.handleGetLoginLink(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.False(t, res.IsError)
	require.Len(t, res.Content, 1)

	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content")

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(text.Text), &decoded))
	return decoded
}

func TestGetLoginLink_PassesManualToken(t *testing.T) {
	provider := &recordingProvider{result: login.Result{
		Message:              "Authentication Token Provided",
		Status:               login.StatusSuccess,
		TokenPreview:         "EAAGmanual...",
		AuthenticationMethod: login.MethodManualToken,
	}}
	s := New(provider, "test")

	decoded := callGetLoginLink(t, s, map[string]any{"access_token": "EAAGmanual12345"})

	assert.Equal(t, []string{"EAAGmanual12345"}, provider.tokens)
	assert.Equal(t, "manual_token", decoded["authentication_method"])
	assert.Equal(t, "success", decoded["status"])
}

func TestGetLoginLink_NoArguments(t *testing.T) {
	provider := &recordingProvider{result: login.Result{
		Message:              "Click to Authenticate",
		Status:               login.StatusPending,
		LoginURL:             "https://www.facebook.com/v22.0/dialog/oauth?state=x",
		AuthenticationMethod: login.MethodOAuth,
	}}
	s := New(provider, "test")

	decoded := callGetLoginLink(t, s, nil)

	assert.Equal(t, []string{""}, provider.tokens)
	assert.Equal(t, "oauth", decoded["authentication_method"])
	assert.NotEmpty(t, decoded["login_url"])
}

func TestGetLoginLink_ErrorIsInBody(t *testing.T) {
	provider := &recordingProvider{result: login.Result{
		Message:              "Authentication Error",
		Status:               login.StatusError,
		Error:                "Could not generate authentication URL",
		AuthenticationMethod: login.MethodOAuthFailed,
		Troubleshooting:      []string{"Check that META_APP_ID is set correctly"},
	}}
	s := New(provider, "test")

	decoded := callGetLoginLink(t, s, map[string]any{})

	assert.Equal(t, "error", decoded["status"])
	assert.Equal(t, "oauth_failed", decoded["authentication_method"])
	assert.NotEmpty(t, decoded["troubleshooting"])
}

func TestToolsList(t *testing.T) {
	s := New(&recordingProvider{}, "test")

	resp := s.MCPServer().HandleMessage(context.Background(),
		json.RawMessage(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`))
	data, err := json.Marshal(resp)
	require.NoError(t, err)

	assert.Contains(t, string(data), ToolGetLoginLink)
	assert.Contains(t, string(data), "access_token")
}

func TestParseTransport(t *testing.T) {
	tr, err := ParseTransport("stdio")
	require.NoError(t, err)
	assert.Equal(t, TransportStdio, tr)

	tr, err = ParseTransport("streamable-http")
	require.NoError(t, err)
	assert.Equal(t, TransportStreamableHTTP, tr)

	_, err = ParseTransport("sse")
	assert.Error(t, err)
}

func TestServeStdio_StopsOnCancel(t *testing.T) {
	s := New(&recordingProvider{}, "test")
	in, writer := io.Pipe()
	defer writer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- s.ServeStdio(ctx, in, io.Discard)
	}()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("stdio server did not stop after cancel")
	}
}
