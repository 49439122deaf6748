package auth

import (
	"context"
	_ "embed"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/giantswarm/meta-ads-mcp/internal/config"
	"github.com/giantswarm/meta-ads-mcp/pkg/logging"
)

// shutdownGrace bounds how long Shutdown waits for in-flight responses.
const shutdownGrace = 5 * time.Second

//go:embed templates/callback_success.html
var callbackSuccessHTML string

//go:embed templates/callback_error.html
var callbackErrorHTML string

var (
	successTemplate = template.Must(template.New("success").Parse(callbackSuccessHTML))
	errorTemplate   = template.Must(template.New("error").Parse(callbackErrorHTML))
)

// CallbackResult represents the parameters of an OAuth redirect.
type CallbackResult struct {
	// Code is the authorization code from the OAuth provider.
	Code string

	// State is the state parameter to verify against the original request.
	State string

	// Error is the error code if the authorization failed.
	Error string

	// ErrorDescription is a human-readable error description.
	ErrorDescription string
}

// IsError returns true if the callback result represents an error.
func (r *CallbackResult) IsError() bool {
	return r.Error != ""
}

// RedirectHandler receives captured redirects. It is invoked on its own
// goroutine after the browser has been answered.
type RedirectHandler interface {
	HandleRedirect(ctx context.Context, result *CallbackResult)
}

// CallbackListener is a transient local HTTP endpoint that captures one
// OAuth redirect per start.
type CallbackListener struct {
	host     string
	bindHost string
	basePort int
	attempts int
	path     string
	handler  RedirectHandler

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
	port     int
	wg       sync.WaitGroup
}

// NewCallbackListener creates a listener. It does not bind until Start.
func NewCallbackListener(cfg config.CallbackConfig, handler RedirectHandler) *CallbackListener {
	attempts := cfg.BindAttempts
	if attempts < 1 {
		attempts = 1
	}
	return &CallbackListener{
		host:     strings.Trim(cfg.Host, "[]"),
		bindHost: cfg.BindHost(),
		basePort: cfg.BasePort,
		attempts: attempts,
		path:     cfg.Path,
		handler:  handler,
	}
}

// Start binds the first free port in [basePort, basePort+attempts) and
// begins serving. If the listener is already running its port is returned.
func (l *CallbackListener) Start() (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.server != nil {
		return l.port, nil
	}

	var (
		ln      net.Listener
		lastErr error
	)
	for i := 0; i < l.attempts; i++ {
		addr := net.JoinHostPort(l.bindHost, strconv.Itoa(l.basePort+i))
		ln, lastErr = net.Listen("tcp", addr)
		if lastErr == nil {
			break
		}
		logging.Debug("CallbackListener", "Port %d unavailable: %v", l.basePort+i, lastErr)
	}
	if ln == nil {
		return 0, newAuthError(KindListenerBindFailed,
			fmt.Sprintf("no free port in %d-%d", l.basePort, l.basePort+l.attempts-1), lastErr)
	}

	port := ln.Addr().(*net.TCPAddr).Port

	var once sync.Once
	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Get(l.path, func(w http.ResponseWriter, r *http.Request) {
		handled := false
		once.Do(func() {
			handled = true
			l.processCallback(w, r)
		})
		if !handled {
			http.Error(w, "Callback already processed", http.StatusBadRequest)
		}
	})

	server := &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	l.server = server
	l.listener = ln
	l.port = port

	go func() {
		if err := server.Serve(ln); err != nil && err != http.ErrServerClosed {
			logging.Error("CallbackListener", err, "Callback server on port %d stopped", port)
		}
	}()

	logging.Info("CallbackListener", "Listening for OAuth redirect on port %d", port)
	return port, nil
}

// processCallback answers the browser first and then hands the redirect to
// the handler out-of-band.
func (l *CallbackListener) processCallback(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("X-Frame-Options", "DENY")
	w.Header().Set("Content-Security-Policy", "default-src 'self'; style-src 'unsafe-inline'")
	w.Header().Set("Referrer-Policy", "no-referrer")
	w.Header().Set("Cache-Control", "no-store")

	query := r.URL.Query()
	result := &CallbackResult{
		Code:             query.Get("code"),
		State:            query.Get("state"),
		Error:            query.Get("error"),
		ErrorDescription: query.Get("error_description"),
	}
	if !result.IsError() && result.Code == "" {
		result.Error = "invalid_request"
		result.ErrorDescription = "The redirect did not include an authorization code."
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	var err error
	if result.IsError() {
		w.WriteHeader(http.StatusBadRequest)
		err = errorTemplate.Execute(w, map[string]string{
			"Error":       result.Error,
			"Description": result.ErrorDescription,
		})
	} else {
		err = successTemplate.Execute(w, nil)
	}
	if err != nil {
		logging.Error("CallbackListener", err, "Failed to render callback page")
	}

	if l.handler == nil {
		return
	}
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		l.handler.HandleRedirect(context.Background(), result)
	}()
}

// Shutdown unbinds the listener. Safe to call when not running.
func (l *CallbackListener) Shutdown() {
	l.mu.Lock()
	server := l.server
	ln := l.listener
	port := l.port
	l.server = nil
	l.listener = nil
	l.port = 0
	l.mu.Unlock()

	if server == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	_ = server.Shutdown(ctx)
	_ = ln.Close()

	logging.Info("CallbackListener", "Released callback port %d", port)
}

// Wait blocks until redirect handlers started by this listener have returned.
func (l *CallbackListener) Wait() {
	l.wg.Wait()
}

// Active reports whether the listener is bound.
func (l *CallbackListener) Active() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.server != nil
}

// Port returns the bound port, or 0 when not running.
func (l *CallbackListener) Port() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.port
}

// RedirectURI returns the redirect URI for a port.
func (l *CallbackListener) RedirectURI(port int) string {
	return "http://" + net.JoinHostPort(l.host, strconv.Itoa(port)) + l.path
}
