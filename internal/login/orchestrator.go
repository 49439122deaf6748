package login

import (
	"context"
	"fmt"
	"time"

	"github.com/giantswarm/meta-ads-mcp/internal/auth"
	"github.com/giantswarm/meta-ads-mcp/pkg/logging"
)

const (
	readyToUse = "You can now use all Meta Ads MCP tools and commands."
	getHelp    = "Check logs for more details"
)

// Authenticator is the part of the auth manager the orchestrator needs.
type Authenticator interface {
	GetAccessToken() *auth.Token
	AuthURL(ctx context.Context) (*auth.AuthRequest, error)
}

// Options configures an Orchestrator.
type Options struct {
	// Enabled is false when the login capability is switched off.
	Enabled bool

	// LongLivedTokens is true when exchanged tokens are upgraded, which
	// changes the lifetime users are told to expect.
	LongLivedTokens bool
}

// Orchestrator is the single entry point for obtaining a usable token or a
// link to obtain one. It holds no state of its own.
type Orchestrator struct {
	auth Authenticator
	opts Options
}

// New creates an Orchestrator.
func New(authenticator Authenticator, opts Options) *Orchestrator {
	return &Orchestrator{auth: authenticator, opts: opts}
}

// Login resolves credentials in a fixed order: disabled capability, then a
// manually supplied token, then the cache, then a new authorization URL.
// It never returns an error or panics; failures are described in the Result.
func (o *Orchestrator) Login(ctx context.Context, manualToken string) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			logging.Error("Login", fmt.Errorf("%v", r), "Unexpected failure generating login link")
			result = unexpectedFailure(fmt.Errorf("%v", r))
		}
	}()

	if !o.opts.Enabled {
		return Result{
			Message:      "Login link disabled",
			Status:       StatusDisabled,
			Instructions: "The login link capability is disabled on this server. Provide a token with the access_token argument or META_ACCESS_TOKEN.",
		}
	}

	if manualToken != "" {
		logging.Debug("Login", "Using manually supplied token")
		return Result{
			Message:              "Authentication Token Provided",
			Status:               StatusSuccess,
			TokenPreview:         auth.Preview(manualToken),
			AuthenticationMethod: MethodManualToken,
			ReadyToUse:           readyToUse,
		}
	}

	if token := o.auth.GetAccessToken(); token != nil {
		logging.Debug("Login", "Using cached token (%s)", token.Method)
		result := Result{
			Message:              "Already Authenticated",
			Status:               StatusSuccess,
			TokenPreview:         token.Preview(),
			AuthenticationMethod: MethodCachedToken,
			ReadyToUse:           readyToUse,
		}
		if !token.ExpiresAt.IsZero() {
			result.TokenExpiresAt = token.ExpiresAt.UTC().Format(time.RFC3339)
		}
		return result
	}

	logging.Info("Login", "Generating login link for Meta authentication")
	req, err := o.auth.AuthURL(ctx)
	if err != nil {
		if auth.KindOf(err) == auth.KindConfigurationMissing {
			logging.Warn("Login", "Cannot generate login link: %v", err)
			return Result{
				Message:              "Authentication Error",
				Status:               StatusError,
				Error:                "Could not generate authentication URL: " + err.Error(),
				ErrorKind:            auth.KindConfigurationMissing.String(),
				AuthenticationMethod: MethodOAuthFailed,
				Troubleshooting:      append(auth.KindConfigurationMissing.Remediation(), "Try again in a few moments"),
			}
		}
		logging.Error("Login", err, "Error generating login link")
		return unexpectedFailure(err)
	}

	return o.pending(req)
}

func (o *Orchestrator) pending(req *auth.AuthRequest) Result {
	result := Result{
		Message:              "Click to Authenticate",
		Status:               StatusPending,
		AuthenticationMethod: MethodOAuth,
		LoginURL:             req.URL,
		MarkdownLink:         fmt.Sprintf("[Authenticate with Meta Ads](%s)", req.URL),
		Instructions:         "Click the link above to complete authentication with Meta Ads.",
		TokenDuration:        "Your token will be valid for approximately 1-2 hours.",
	}
	if o.opts.LongLivedTokens {
		result.TokenDuration = "Your token will be valid for approximately 60 days."
	}
	if req.Session != nil {
		result.SessionID = req.Session.ID
	}

	if req.Automatic {
		result.WhatHappensNext = "After clicking, you'll be redirected to Meta's authentication page. Once completed, your token will be automatically saved."
		return result
	}

	result.WhatHappensNext = "Automatic token capture is not available, so the token will not be saved automatically. " +
		"After authorizing, provide the token with the access_token argument or set META_ACCESS_TOKEN."
	if req.FallbackReason != nil {
		kind := auth.KindOf(req.FallbackReason)
		result.ErrorKind = kind.String()
		result.Error = req.FallbackReason.Error()
		result.Troubleshooting = kind.Remediation()
	}
	return result
}

func unexpectedFailure(err error) Result {
	kind := auth.KindOf(err)
	troubleshooting := []string{
		"Check that META_APP_ID environment variable is set",
		"Verify your network connectivity",
		"Restart the MCP server",
		"Try again in a moment",
	}
	if kind != auth.KindUnknown {
		troubleshooting = append(kind.Remediation(), troubleshooting...)
	}
	return Result{
		Message:              "Authentication Error",
		Status:               StatusError,
		Error:                "Failed to generate authentication link: " + err.Error(),
		ErrorKind:            kind.String(),
		AuthenticationMethod: MethodOAuthError,
		Troubleshooting:      troubleshooting,
		GetHelp:              getHelp,
	}
}
