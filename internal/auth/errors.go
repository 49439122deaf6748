package auth

import (
	"errors"
)

// ErrorKind classifies authentication failures.
type ErrorKind int

const (
	// KindUnknown is any failure outside the taxonomy below.
	KindUnknown ErrorKind = iota

	// KindConfigurationMissing means a required identifier is not configured.
	KindConfigurationMissing

	// KindStateMismatch means a redirect did not belong to the active session.
	KindStateMismatch

	// KindTokenExchangeFailed means the provider rejected or failed the exchange.
	KindTokenExchangeFailed

	// KindListenerBindFailed means no callback port could be bound.
	KindListenerBindFailed

	// KindTimeout means no redirect arrived within the wait window.
	KindTimeout
)

// String returns the name used in results and logs.
func (k ErrorKind) String() string {
	switch k {
	case KindConfigurationMissing:
		return "ConfigurationMissing"
	case KindStateMismatch:
		return "StateMismatch"
	case KindTokenExchangeFailed:
		return "TokenExchangeFailed"
	case KindListenerBindFailed:
		return "ListenerBindFailed"
	case KindTimeout:
		return "Timeout"
	default:
		return "Unknown"
	}
}

// Remediation returns actionable hints for a failure of this kind.
func (k ErrorKind) Remediation() []string {
	switch k {
	case KindConfigurationMissing:
		return []string{
			"Check that META_APP_ID is set correctly",
			"Ensure your Meta app is properly configured",
		}
	case KindStateMismatch:
		return []string{
			"Start a new login; the redirect did not match the pending request",
			"Only use the most recent login link",
		}
	case KindTokenExchangeFailed:
		return []string{
			"Check that META_APP_SECRET matches your Meta app",
			"Verify your network connectivity",
			"Retry the login flow",
		}
	case KindListenerBindFailed:
		return []string{
			"Free a port starting at META_ADS_CALLBACK_PORT or choose another base port",
			"Provide a token directly with the access_token argument or META_ACCESS_TOKEN",
		}
	case KindTimeout:
		return []string{
			"Request a new login link and complete the browser step sooner",
			"Increase META_ADS_CALLBACK_TIMEOUT if you need more time",
		}
	default:
		return []string{
			"Retry the login flow",
			"Check logs for more details",
		}
	}
}

// AuthError is a classified authentication failure.
type AuthError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

// Sentinels for errors.Is comparisons. They match any AuthError of the same kind.
var (
	ErrConfigurationMissing = &AuthError{Kind: KindConfigurationMissing, Message: "configuration missing"}
	ErrStateMismatch        = &AuthError{Kind: KindStateMismatch, Message: "state mismatch"}
	ErrTokenExchangeFailed  = &AuthError{Kind: KindTokenExchangeFailed, Message: "token exchange failed"}
	ErrListenerBindFailed   = &AuthError{Kind: KindListenerBindFailed, Message: "callback listener bind failed"}
	ErrTimeout              = &AuthError{Kind: KindTimeout, Message: "authorization timed out"}
)

func newAuthError(kind ErrorKind, message string, err error) *AuthError {
	return &AuthError{Kind: kind, Message: message, Err: err}
}

// Error implements the error interface.
func (e *AuthError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

// Unwrap returns the underlying cause.
func (e *AuthError) Unwrap() error {
	return e.Err
}

// Is matches any AuthError with the same kind.
func (e *AuthError) Is(target error) bool {
	t, ok := target.(*AuthError)
	return ok && t.Kind == e.Kind
}

// KindOf returns the kind of the first AuthError in err's chain.
func KindOf(err error) ErrorKind {
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return authErr.Kind
	}
	return KindUnknown
}
