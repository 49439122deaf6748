package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateState(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		state, err := GenerateState()
		require.NoError(t, err)
		assert.Len(t, state, 43, "32 bytes base64url without padding")
		assert.False(t, seen[state], "state must not repeat")
		seen[state] = true
	}
}

func TestAuthSession_FinishOnce(t *testing.T) {
	s, err := newSession(time.Now(), time.Minute)
	require.NoError(t, err)

	state, _ := s.Outcome()
	assert.Equal(t, SessionPending, state)
	assert.False(t, state.Terminal())

	cause := errors.New("first")
	assert.True(t, s.finish(SessionFailed, cause))
	assert.False(t, s.finish(SessionSucceeded, nil), "terminal states never change")

	state, err = s.Outcome()
	assert.Equal(t, SessionFailed, state)
	assert.Equal(t, cause, err)

	select {
	case <-s.Done():
	default:
		t.Fatal("done channel should be closed")
	}
}

func TestAuthSession_Claim(t *testing.T) {
	s, err := newSession(time.Now(), time.Minute)
	require.NoError(t, err)

	assert.True(t, s.claim())
	assert.False(t, s.claim(), "only one exchange per session")

	other, err := newSession(time.Now(), time.Minute)
	require.NoError(t, err)
	other.finish(SessionTimedOut, nil)
	assert.False(t, other.claim(), "terminal sessions cannot be claimed")
}

func TestAuthSession_Wait(t *testing.T) {
	s, err := newSession(time.Now(), time.Minute)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	state, err := s.Wait(ctx)
	assert.Equal(t, SessionPending, state)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	go s.finish(SessionSucceeded, nil)
	state, err = s.Wait(context.Background())
	assert.Equal(t, SessionSucceeded, state)
	assert.NoError(t, err)
}

func TestSessionState_String(t *testing.T) {
	assert.Equal(t, "pending", SessionPending.String())
	assert.Equal(t, "succeeded", SessionSucceeded.String())
	assert.Equal(t, "failed", SessionFailed.String())
	assert.Equal(t, "timed-out", SessionTimedOut.String())
	assert.Equal(t, "unknown", SessionState(42).String())
}
