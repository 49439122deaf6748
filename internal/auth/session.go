package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// stateBytes is the entropy of the state nonce.
const stateBytes = 32

// SessionState is the lifecycle state of one authorization attempt.
type SessionState int

const (
	SessionPending SessionState = iota
	SessionSucceeded
	SessionFailed
	SessionTimedOut
)

// String returns the string representation of the session state.
func (s SessionState) String() string {
	switch s {
	case SessionPending:
		return "pending"
	case SessionSucceeded:
		return "succeeded"
	case SessionFailed:
		return "failed"
	case SessionTimedOut:
		return "timed-out"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transitions are possible.
func (s SessionState) Terminal() bool {
	return s != SessionPending
}

// AuthSession is one in-flight authorization attempt. Its identity fields
// are set at creation and never change; only the outcome moves, once.
type AuthSession struct {
	// ID correlates log lines for this attempt.
	ID string

	// State is the anti-CSRF nonce sent in the authorization URL.
	State string

	// Port is the bound callback port, or the base port when not listening.
	Port int

	// RedirectURI is the redirect_uri sent to the provider.
	RedirectURI string

	// AuthURL is the authorization URL handed to the user.
	AuthURL string

	// Listening is true when the callback listener captures the redirect.
	Listening bool

	// StartedAt is when the session was created.
	StartedAt time.Time

	mu        sync.Mutex
	outcome   SessionState
	err       error
	claimed   bool
	done      chan struct{}
	expiresAt time.Time
}

func newSession(now time.Time, timeout time.Duration) (*AuthSession, error) {
	state, err := GenerateState()
	if err != nil {
		return nil, err
	}
	return &AuthSession{
		ID:        uuid.New().String(),
		State:     state,
		StartedAt: now,
		outcome:   SessionPending,
		done:      make(chan struct{}),
		expiresAt: now.Add(timeout),
	}, nil
}

// Outcome returns the current state and, for failures, the cause.
func (s *AuthSession) Outcome() (SessionState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.outcome, s.err
}

// ExpiresAt is when a pending session times out.
func (s *AuthSession) ExpiresAt() time.Time {
	return s.expiresAt
}

// Done is closed when the session reaches a terminal state.
func (s *AuthSession) Done() <-chan struct{} {
	return s.done
}

// Wait blocks until the session is terminal or ctx ends.
func (s *AuthSession) Wait(ctx context.Context) (SessionState, error) {
	select {
	case <-s.done:
		return s.Outcome()
	case <-ctx.Done():
		return SessionPending, ctx.Err()
	}
}

// claim marks the session as consumed by an exchange. It returns false if
// the session is no longer pending or was already claimed.
func (s *AuthSession) claim() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.outcome != SessionPending || s.claimed {
		return false
	}
	s.claimed = true
	return true
}

// isClaimed reports whether an exchange has taken the session.
func (s *AuthSession) isClaimed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.claimed
}

// finish moves a pending session to a terminal state. Later calls are ignored.
func (s *AuthSession) finish(state SessionState, err error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.outcome != SessionPending {
		return false
	}
	s.outcome = state
	s.err = err
	close(s.done)
	return true
}

// GenerateState generates a random state parameter for OAuth.
// The state is used to prevent CSRF attacks and link the authorization
// response back to the original request.
func GenerateState() (string, error) {
	b := make([]byte, stateBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
