package auth

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stateOf(t *testing.T, authURL string) string {
	t.Helper()
	u, err := url.Parse(authURL)
	require.NoError(t, err)
	return u.Query().Get("state")
}

func waitSession(t *testing.T, s *AuthSession) (SessionState, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	state, err := s.Wait(ctx)
	require.NotErrorIs(t, err, context.DeadlineExceeded, "session never finished")
	return state, err
}

func redirect(t *testing.T, redirectURI, query string) int {
	t.Helper()
	resp, err := http.Get(redirectURI + "?" + query)
	require.NoError(t, err)
	_ = resp.Body.Close()
	return resp.StatusCode
}

func TestManager_AuthURLRequiresAppID(t *testing.T) {
	cfg := testConfig(t)
	cfg.AppID = ""
	m := NewManager(cfg, WithExchanger(&fakeExchanger{}))
	defer m.Close()

	req, err := m.AuthURL(context.Background())
	assert.Nil(t, req)
	assert.True(t, errors.Is(err, ErrConfigurationMissing))
	assert.False(t, m.Listener().Active())
}

func TestManager_SeedsManualTokenFromConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.AccessToken = "EAAGmanualtoken"
	m := NewManager(cfg, WithExchanger(&fakeExchanger{}))
	defer m.Close()

	tok := m.GetAccessToken()
	require.NotNil(t, tok)
	assert.Equal(t, "EAAGmanualtoken", tok.AccessToken)
	assert.Equal(t, MethodManual, tok.Method)

	m.Logout()
	assert.Nil(t, m.GetAccessToken())
}

func TestManager_SuccessfulRedirect(t *testing.T) {
	exchanger := &fakeExchanger{}
	m := NewManager(testConfig(t), WithExchanger(exchanger))
	defer m.Close()

	req, err := m.AuthURL(context.Background())
	require.NoError(t, err)
	require.True(t, req.Automatic)
	assert.Nil(t, req.FallbackReason)
	assert.True(t, m.Listener().Active())

	session := req.Session
	assert.Equal(t, session.State, stateOf(t, req.URL))
	assert.Equal(t, m.Listener().RedirectURI(session.Port), session.RedirectURI)

	status := redirect(t, session.RedirectURI, "code=good&state="+url.QueryEscape(session.State))
	assert.Equal(t, http.StatusOK, status)

	state, err := waitSession(t, session)
	assert.Equal(t, SessionSucceeded, state)
	assert.NoError(t, err)

	tok := m.GetAccessToken()
	require.NotNil(t, tok)
	assert.Equal(t, "EAAG-good", tok.AccessToken)
	assert.Equal(t, MethodOAuth, tok.Method)

	assert.False(t, m.Listener().Active(), "listener is released after success")
	assert.Same(t, session, m.CurrentSession())
	assert.Equal(t, 1, exchanger.calls())
}

func TestManager_ReusesPendingSession(t *testing.T) {
	m := NewManager(testConfig(t), WithExchanger(&fakeExchanger{}))
	defer m.Close()

	first, err := m.AuthURL(context.Background())
	require.NoError(t, err)
	second, err := m.AuthURL(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first.URL, second.URL)
	assert.Same(t, first.Session, second.Session)
	assert.Equal(t, first.Session.Port, m.Listener().Port())
}

func TestManager_ConcurrentAuthURLShareOneListener(t *testing.T) {
	m := NewManager(testConfig(t), WithExchanger(&fakeExchanger{}))
	defer m.Close()

	const callers = 16
	var (
		wg    sync.WaitGroup
		start = make(chan struct{})
		reqs  = make([]*AuthRequest, callers)
		errs  = make([]error, callers)
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			reqs[i], errs[i] = m.AuthURL(context.Background())
		}(i)
	}
	close(start)
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.True(t, reqs[i].Automatic)
		assert.Same(t, reqs[0].Session, reqs[i].Session, "caller %d got a different session", i)
		assert.Equal(t, reqs[0].URL, reqs[i].URL)
	}
	assert.True(t, m.Listener().Active())
	assert.Equal(t, reqs[0].Session.Port, m.Listener().Port())
}

func TestManager_StateMismatchFailsSession(t *testing.T) {
	exchanger := &fakeExchanger{}
	m := NewManager(testConfig(t), WithExchanger(exchanger))
	defer m.Close()

	req, err := m.AuthURL(context.Background())
	require.NoError(t, err)
	session := req.Session

	redirect(t, session.RedirectURI, "code=good&state=forged")

	state, err := waitSession(t, session)
	assert.Equal(t, SessionFailed, state)
	assert.True(t, errors.Is(err, ErrStateMismatch))
	assert.Nil(t, m.GetAccessToken(), "no token stored on mismatch")
	assert.Equal(t, 0, exchanger.calls(), "no exchange attempted")
	assert.Eventually(t, func() bool { return !m.Listener().Active() }, time.Second, 10*time.Millisecond)

	next, err := m.AuthURL(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, session.State, next.Session.State, "new login uses a new nonce")
	assert.NotEqual(t, session.ID, next.Session.ID)
}

func TestManager_ExchangeCodeWithoutSession(t *testing.T) {
	m := NewManager(testConfig(t), WithExchanger(&fakeExchanger{}))
	defer m.Close()

	tok, err := m.ExchangeCode(context.Background(), "code", "state")
	assert.Nil(t, tok)
	assert.True(t, errors.Is(err, ErrStateMismatch))
}

func TestManager_ExchangeFailure(t *testing.T) {
	exchanger := &fakeExchanger{err: errors.New("invalid_grant")}
	m := NewManager(testConfig(t), WithExchanger(exchanger))
	defer m.Close()

	req, err := m.AuthURL(context.Background())
	require.NoError(t, err)

	redirect(t, req.Session.RedirectURI, "code=expired&state="+url.QueryEscape(req.Session.State))

	state, err := waitSession(t, req.Session)
	assert.Equal(t, SessionFailed, state)
	assert.True(t, errors.Is(err, ErrTokenExchangeFailed))
	assert.Contains(t, err.Error(), "invalid_grant")
	assert.Nil(t, m.GetAccessToken())
	assert.Eventually(t, func() bool { return !m.Listener().Active() }, time.Second, 10*time.Millisecond)
}

func TestManager_ProviderErrorRedirect(t *testing.T) {
	exchanger := &fakeExchanger{}
	m := NewManager(testConfig(t), WithExchanger(exchanger))
	defer m.Close()

	req, err := m.AuthURL(context.Background())
	require.NoError(t, err)

	status := redirect(t, req.Session.RedirectURI,
		"error=access_denied&error_description=User+denied&state="+url.QueryEscape(req.Session.State))
	assert.Equal(t, http.StatusBadRequest, status)

	state, err := waitSession(t, req.Session)
	assert.Equal(t, SessionFailed, state)
	assert.Contains(t, err.Error(), "access_denied")
	assert.Equal(t, 0, exchanger.calls())
}

func TestManager_TimeoutReleasesPort(t *testing.T) {
	cfg := testConfig(t)
	cfg.Callback.Timeout = 150 * time.Millisecond
	m := NewManager(cfg, WithExchanger(&fakeExchanger{}))
	defer m.Close()

	req, err := m.AuthURL(context.Background())
	require.NoError(t, err)
	port := req.Session.Port

	state, err := waitSession(t, req.Session)
	assert.Equal(t, SessionTimedOut, state)
	assert.True(t, errors.Is(err, ErrTimeout))
	assert.False(t, m.Listener().Active())

	ln, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
	require.NoError(t, err, "callback port should be free after timeout")
	_ = ln.Close()

	// A late redirect for the expired session is rejected.
	_, err = m.ExchangeCode(context.Background(), "late", req.Session.State)
	assert.True(t, errors.Is(err, ErrStateMismatch))
}

func TestManager_SlowExchangeOutlivesWaitWindow(t *testing.T) {
	cfg := testConfig(t)
	cfg.Callback.Timeout = 200 * time.Millisecond
	exchanger := &fakeExchanger{delay: 500 * time.Millisecond}
	m := NewManager(cfg, WithExchanger(exchanger))
	defer m.Close()

	req, err := m.AuthURL(context.Background())
	require.NoError(t, err)
	session := req.Session

	status := redirect(t, session.RedirectURI, "code=slow&state="+url.QueryEscape(session.State))
	assert.Equal(t, http.StatusOK, status)

	state, err := waitSession(t, session)
	assert.Equal(t, SessionSucceeded, state, "a received redirect never ends as timed-out")
	assert.NoError(t, err)

	tok := m.GetAccessToken()
	require.NotNil(t, tok)
	assert.Equal(t, "EAAG-slow", tok.AccessToken)
	assert.False(t, m.Listener().Active())
}

func TestManager_CallbackDisabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.DisableCallbackServer = true
	m := NewManager(cfg, WithExchanger(&fakeExchanger{}))
	defer m.Close()

	req, err := m.AuthURL(context.Background())
	require.NoError(t, err)
	assert.False(t, req.Automatic)
	assert.Nil(t, req.FallbackReason)
	assert.False(t, req.Session.Listening)
	assert.False(t, m.Listener().Active())
	assert.Equal(t, cfg.Callback.BasePort, req.Session.Port)

	// Non-listening sessions are replaced rather than reused.
	next, err := m.AuthURL(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, req.Session.State, next.Session.State)
	state, _ := req.Session.Outcome()
	assert.Equal(t, SessionFailed, state)
}

func TestManager_BindFailureFallsBack(t *testing.T) {
	cfg := testConfig(t)
	cfg.Callback.BindAttempts = 2
	cfg.Callback.BasePort = occupyPorts(t, 2)
	m := NewManager(cfg, WithExchanger(&fakeExchanger{}))
	defer m.Close()

	req, err := m.AuthURL(context.Background())
	require.NoError(t, err)
	assert.False(t, req.Automatic)
	assert.True(t, errors.Is(req.FallbackReason, ErrListenerBindFailed))
	assert.NotEmpty(t, req.URL)
}

func TestManager_CloseFailsPendingSession(t *testing.T) {
	m := NewManager(testConfig(t), WithExchanger(&fakeExchanger{}))

	req, err := m.AuthURL(context.Background())
	require.NoError(t, err)

	require.NoError(t, m.Close())
	state, _ := req.Session.Outcome()
	assert.Equal(t, SessionFailed, state)
	assert.False(t, m.Listener().Active())

	_, err = m.AuthURL(context.Background())
	assert.Error(t, err)
}
