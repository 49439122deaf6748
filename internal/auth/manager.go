package auth

import (
	"context"
	"crypto/subtle"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/giantswarm/meta-ads-mcp/internal/auth/tokenstore"
	"github.com/giantswarm/meta-ads-mcp/internal/config"
	"github.com/giantswarm/meta-ads-mcp/pkg/logging"
)

// AuthRequest is the outcome of starting (or joining) an authorization session.
type AuthRequest struct {
	// URL is the authorization URL the user must open.
	URL string

	// Session is the session the URL belongs to.
	Session *AuthSession

	// Automatic is true when the callback listener will capture the redirect
	// and populate the token without further user action.
	Automatic bool

	// FallbackReason explains why completion is not automatic. It is an
	// *AuthError of kind KindListenerBindFailed when binding failed and nil
	// when the listener is disabled by configuration.
	FallbackReason error
}

// Manager owns the OAuth protocol mechanics, the token cache and the
// callback listener. At most one listening session is active at a time.
type Manager struct {
	cfg       config.Config
	cache     *TokenCache
	exchanger Exchanger
	listener  *CallbackListener
	now       func() time.Time

	mu      sync.Mutex
	session *AuthSession
	last    *AuthSession
	timer   *time.Timer
	closed  bool
}

// Option configures a Manager.
type Option func(*Manager)

// WithPersister enables persistent token storage.
func WithPersister(p tokenstore.Persister) Option {
	return func(m *Manager) {
		m.cache = NewTokenCache(p)
	}
}

// WithExchanger replaces the Meta code exchanger.
func WithExchanger(e Exchanger) Option {
	return func(m *Manager) {
		m.exchanger = e
	}
}

// WithHTTPClient sets the HTTP client used by the default exchanger.
func WithHTTPClient(c *http.Client) Option {
	return func(m *Manager) {
		m.exchanger = NewMetaExchanger(m.cfg, c)
	}
}

// NewManager creates a Manager. When cfg carries a direct access token it
// seeds the cache as a manual token.
func NewManager(cfg config.Config, opts ...Option) *Manager {
	m := &Manager{
		cfg:   cfg,
		cache: NewTokenCache(nil),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.exchanger == nil {
		m.exchanger = NewMetaExchanger(cfg, nil)
	}
	m.listener = NewCallbackListener(cfg.Callback, m)

	if cfg.AccessToken != "" {
		m.cache.Set(&Token{
			AccessToken: cfg.AccessToken,
			IssuedAt:    m.now(),
			Method:      MethodManual,
		})
		logging.Info("AuthManager", "Using access token from environment (%s)", Preview(cfg.AccessToken))
	}

	return m
}

// GetAccessToken returns the cached token, or nil. It never touches the network.
func (m *Manager) GetAccessToken() *Token {
	return m.cache.Get()
}

// SetAccessToken stores a token obtained out-of-band.
func (m *Manager) SetAccessToken(token *Token) {
	m.cache.Set(token)
}

// Logout clears the cached and persisted token.
func (m *Manager) Logout() {
	m.cache.Clear()
}

// ReloadToken makes the next read consult persistent storage again.
func (m *Manager) ReloadToken() {
	m.cache.Invalidate()
}

// CurrentSession returns the pending session, or the most recent finished
// one, or nil.
func (m *Manager) CurrentSession() *AuthSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session != nil {
		return m.session
	}
	return m.last
}

// Listener exposes the callback listener for inspection.
func (m *Manager) Listener() *CallbackListener {
	return m.listener
}

// AuthURL returns an authorization URL. While a listening session is
// pending its URL is returned again instead of starting a second listener.
// A missing application id yields an error of kind KindConfigurationMissing.
func (m *Manager) AuthURL(ctx context.Context) (*AuthRequest, error) {
	if m.cfg.AppID == "" {
		return nil, newAuthError(KindConfigurationMissing, "META_APP_ID is not configured", nil)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, fmt.Errorf("auth manager is closed")
	}

	if s := m.session; s != nil && s.Listening {
		if state, _ := s.Outcome(); state == SessionPending {
			logging.Debug("AuthManager", "Reusing pending session %s", logging.TruncateSessionID(s.ID))
			return &AuthRequest{URL: s.AuthURL, Session: s, Automatic: true}, nil
		}
	}

	// A non-listening session holds no resources and may be replaced.
	if m.session != nil {
		m.finishLocked(m.session, SessionFailed, fmt.Errorf("superseded by a new login request"))
	}

	session, err := newSession(m.now(), m.cfg.Callback.Timeout)
	if err != nil {
		return nil, err
	}

	req := &AuthRequest{Session: session}
	session.Port = m.cfg.Callback.BasePort

	if m.cfg.CallbackEnabled() {
		port, err := m.listener.Start()
		if err != nil {
			logging.Warn("AuthManager", "Callback listener unavailable, falling back to manual completion: %v", err)
			req.FallbackReason = err
		} else {
			session.Port = port
			session.Listening = true
			req.Automatic = true
		}
	} else {
		logging.Info("AuthManager", "Callback listener disabled; token will not be captured automatically")
	}

	session.RedirectURI = m.listener.RedirectURI(session.Port)
	session.AuthURL = m.exchanger.AuthCodeURL(session.RedirectURI, session.State)
	req.URL = session.AuthURL

	m.session = session
	if session.Listening {
		m.timer = time.AfterFunc(m.cfg.Callback.Timeout, func() { m.expire(session) })
	}

	logging.Info("AuthManager", "Started authorization session %s (listening=%t, port=%d)",
		logging.TruncateSessionID(session.ID), session.Listening, session.Port)
	return req, nil
}

// HandleRedirect implements RedirectHandler for the callback listener.
func (m *Manager) HandleRedirect(ctx context.Context, result *CallbackResult) {
	if result.IsError() {
		m.failFromProvider(result)
		return
	}

	ctx, cancel := context.WithTimeout(ctx, DefaultHTTPTimeout)
	defer cancel()

	if _, err := m.ExchangeCode(ctx, result.Code, result.State); err != nil {
		logging.Error("AuthManager", err, "Authorization redirect could not be completed")
	}
}

// ExchangeCode validates state against the pending session and exchanges
// code for a token. A mismatch fails the pending session, if any.
func (m *Manager) ExchangeCode(ctx context.Context, code, state string) (*Token, error) {
	m.mu.Lock()
	session := m.session
	if session == nil || !stateMatches(session.State, state) {
		err := newAuthError(KindStateMismatch, "state does not match a pending authorization session", nil)
		if session != nil {
			logging.Warn("AuthManager", "OAuth state mismatch for session %s - possible CSRF attack (expected_len=%d, received_len=%d)",
				logging.TruncateSessionID(session.ID), len(session.State), len(state))
			m.finishLocked(session, SessionFailed, err)
		}
		m.mu.Unlock()
		logging.Audit(logging.AuditEvent{Action: "state_mismatch", Outcome: "failure"})
		return nil, err
	}
	if !session.claim() {
		m.mu.Unlock()
		return nil, newAuthError(KindStateMismatch, "authorization session is already being completed", nil)
	}
	// The redirect has arrived; the exchange decides the outcome from here.
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	m.mu.Unlock()

	token, err := m.exchanger.Exchange(ctx, code, session.RedirectURI)
	if err != nil {
		authErr := newAuthError(KindTokenExchangeFailed, "token exchange failed", err)
		m.finish(session, SessionFailed, authErr)
		return nil, authErr
	}

	token.Method = MethodOAuth
	m.cache.Set(token)
	m.finish(session, SessionSucceeded, nil)

	logging.Info("AuthManager", "OAuth authentication successful, token valid until %s", token.ExpiresAt.Format(time.RFC3339))
	return token.clone(), nil
}

// failFromProvider handles a redirect that carries an error instead of a code.
func (m *Manager) failFromProvider(result *CallbackResult) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session := m.session
	if session == nil {
		return
	}
	if !stateMatches(session.State, result.State) {
		m.finishLocked(session, SessionFailed, newAuthError(KindStateMismatch, "state does not match a pending authorization session", nil))
		return
	}

	diagnostic := result.Error
	if result.ErrorDescription != "" {
		diagnostic += " - " + result.ErrorDescription
	}
	logging.Warn("AuthManager", "OAuth authorization failed: %s", diagnostic)
	m.finishLocked(session, SessionFailed, newAuthError(KindTokenExchangeFailed, "authorization failed", fmt.Errorf("%s", diagnostic)))
}

// expire moves a session that never received a redirect to timed-out.
func (m *Manager) expire(session *AuthSession) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session != session || session.isClaimed() {
		return
	}
	logging.Warn("AuthManager", "No redirect received for session %s within %s", logging.TruncateSessionID(session.ID), m.cfg.Callback.Timeout)
	m.finishLocked(session, SessionTimedOut, newAuthError(KindTimeout, "no redirect received within the wait window", nil))
}

func (m *Manager) finish(session *AuthSession, state SessionState, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.finishLocked(session, state, err)
}

// finishLocked releases listener resources and then records a terminal
// state, so waiters never observe a finished session holding a port.
// Requires m.mu held.
func (m *Manager) finishLocked(session *AuthSession, state SessionState, err error) {
	if current, _ := session.Outcome(); current.Terminal() {
		return
	}
	if m.session == session {
		if m.timer != nil {
			m.timer.Stop()
			m.timer = nil
		}
		if session.Listening {
			m.listener.Shutdown()
		}
		m.session = nil
		m.last = session
	}
	if !session.finish(state, err) {
		return
	}

	outcome := "success"
	detail := ""
	if state != SessionSucceeded {
		outcome = "failure"
		if err != nil {
			detail = KindOf(err).String()
		}
	}
	logging.Audit(logging.AuditEvent{
		Action:    "session_" + state.String(),
		Outcome:   outcome,
		SessionID: session.ID,
		Detail:    detail,
	})
}

// Close fails any pending session and releases the listener.
func (m *Manager) Close() error {
	m.mu.Lock()
	m.closed = true
	if m.session != nil {
		m.finishLocked(m.session, SessionFailed, fmt.Errorf("auth manager shut down"))
	}
	m.mu.Unlock()

	m.listener.Shutdown()
	return nil
}

func stateMatches(expected, got string) bool {
	if expected == "" || got == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(got)) == 1
}
