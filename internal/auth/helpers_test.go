package auth

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/giantswarm/meta-ads-mcp/internal/config"
)

// fakeExchanger records exchanges and returns a canned token or error.
type fakeExchanger struct {
	mu    sync.Mutex
	err   error
	codes []string
	delay time.Duration
}

func (f *fakeExchanger) AuthCodeURL(redirectURI, state string) string {
	v := url.Values{"redirect_uri": {redirectURI}, "state": {state}, "client_id": {"app"}}
	return "https://www.facebook.com/v22.0/dialog/oauth?" + v.Encode()
}

func (f *fakeExchanger) Exchange(ctx context.Context, code, redirectURI string) (*Token, error) {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.codes = append(f.codes, code)
	if f.err != nil {
		return nil, f.err
	}
	return &Token{
		AccessToken: "EAAG-" + code,
		TokenType:   "bearer",
		IssuedAt:    time.Now(),
		ExpiresAt:   time.Now().Add(time.Hour),
	}, nil
}

func (f *fakeExchanger) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.codes)
}

// freePort returns a port that was free a moment ago.
func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to find free port: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	_ = ln.Close()
	return port
}

// occupyPorts binds n consecutive ports and returns the first one.
func occupyPorts(t *testing.T, n int) int {
	t.Helper()
	for try := 0; try < 20; try++ {
		base := freePort(t)
		if base+n > 65535 {
			continue
		}
		var held []net.Listener
		ok := true
		for i := 0; i < n; i++ {
			ln, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", base+i))
			if err != nil {
				ok = false
				break
			}
			held = append(held, ln)
		}
		if ok {
			t.Cleanup(func() {
				for _, ln := range held {
					_ = ln.Close()
				}
			})
			return base
		}
		for _, ln := range held {
			_ = ln.Close()
		}
	}
	t.Fatalf("could not occupy %d consecutive ports", n)
	return 0
}

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.GetDefaultConfig()
	cfg.AppID = "123456"
	cfg.Callback.BasePort = freePort(t)
	cfg.Callback.BindAttempts = 5
	cfg.Callback.Timeout = 5 * time.Second
	cfg.TokenStore.Kind = config.StoreKindMemory
	return cfg
}
