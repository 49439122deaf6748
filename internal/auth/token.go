package auth

import (
	"time"

	"github.com/giantswarm/meta-ads-mcp/internal/auth/tokenstore"
)

// ExpiryMargin is subtracted from a token's expiry when checking validity.
// This accounts for clock skew and in-flight API calls.
const ExpiryMargin = 30 * time.Second

// previewLength is how many leading characters a token preview shows.
const previewLength = 10

// Method records how a token was acquired.
type Method string

const (
	// MethodManual is a token supplied directly by the user or environment.
	MethodManual Method = "manual"

	// MethodCached is a token served from persistent storage.
	MethodCached Method = "cached"

	// MethodOAuth is a token obtained through the authorization-code flow.
	MethodOAuth Method = "oauth"
)

// Token is an access token together with its lifetime and origin.
type Token struct {
	// AccessToken is the opaque credential. Never log it.
	AccessToken string

	// TokenType is typically "bearer".
	TokenType string

	// IssuedAt is when the token was obtained.
	IssuedAt time.Time

	// ExpiresAt is when the token stops being valid. Zero means the
	// expiry is unknown and the token is trusted until cleared.
	ExpiresAt time.Time

	// Method is how the token was acquired.
	Method Method
}

// Valid reports whether the token can be used at the given instant.
func (t *Token) Valid(now time.Time) bool {
	if t == nil || t.AccessToken == "" {
		return false
	}
	if t.ExpiresAt.IsZero() {
		return true
	}
	return now.Add(ExpiryMargin).Before(t.ExpiresAt)
}

// Preview returns a truncated rendering of the token safe to show users.
func (t *Token) Preview() string {
	if t == nil {
		return ""
	}
	return Preview(t.AccessToken)
}

// clone returns a copy so callers can never mutate cache state.
func (t *Token) clone() *Token {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

// Preview renders the first ten characters of a credential followed by an
// ellipsis. Credentials of ten characters or fewer show only their first
// half so the full secret is never echoed back.
func Preview(token string) string {
	if token == "" {
		return ""
	}
	n := previewLength
	if len(token) <= previewLength {
		n = len(token) / 2
	}
	return token[:n] + "..."
}

func toRecord(t *Token) *tokenstore.Record {
	return &tokenstore.Record{
		AccessToken: t.AccessToken,
		TokenType:   t.TokenType,
		Method:      string(t.Method),
		IssuedAt:    t.IssuedAt,
		ExpiresAt:   t.ExpiresAt,
	}
}

// fromRecord restores a persisted token. Whatever its original method, a
// restored token is reported as cached.
func fromRecord(r *tokenstore.Record) *Token {
	return &Token{
		AccessToken: r.AccessToken,
		TokenType:   r.TokenType,
		IssuedAt:    r.IssuedAt,
		ExpiresAt:   r.ExpiresAt,
		Method:      MethodCached,
	}
}
