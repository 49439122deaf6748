package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/giantswarm/meta-ads-mcp/internal/auth"
	"github.com/giantswarm/meta-ads-mcp/internal/auth/tokenstore"
	"github.com/giantswarm/meta-ads-mcp/internal/config"
	"github.com/giantswarm/meta-ads-mcp/internal/login"
	"github.com/giantswarm/meta-ads-mcp/pkg/logging"
)

// app bundles the collaborators every command builds from configuration.
type app struct {
	cfg          config.Config
	store        *tokenstore.Store
	watcher      *tokenstore.Watcher
	manager      *auth.Manager
	orchestrator *login.Orchestrator
}

// loadConfig loads configuration and applies the --log-level override.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(configDir)
	if err != nil {
		return config.Config{}, fmt.Errorf("failed to load configuration: %w", err)
	}
	if logLevel != "" {
		if _, err := logging.ParseLevel(logLevel); err != nil {
			return config.Config{}, err
		}
		cfg.LogLevel = logLevel
	}
	return cfg, nil
}

// newApp wires the token store, auth manager and login orchestrator.
// A token store that cannot be opened degrades to memory-only caching.
// With watch set, tokens written by other processes are picked up.
func newApp(cfg config.Config, watch bool) *app {
	a := &app{cfg: cfg}

	var opts []auth.Option
	if cfg.TokenStore.Kind != config.StoreKindMemory {
		store, err := tokenstore.Open(cfg.TokenStore, cfg.StoreKey())
		if err != nil {
			logging.Warn("App", "Token store unavailable, caching in memory only: %v", err)
		} else {
			a.store = store
			opts = append(opts, auth.WithPersister(store))
		}
	}

	a.manager = auth.NewManager(cfg, opts...)
	a.orchestrator = login.New(a.manager, login.Options{
		Enabled:         cfg.LoginLinkEnabled(),
		LongLivedTokens: cfg.AppSecret != "",
	})

	if watch && a.store != nil && cfg.TokenStore.Watch {
		if err := os.MkdirAll(filepath.Dir(cfg.TokenStore.Path), 0700); err != nil {
			logging.Warn("App", "Cannot watch token store: %v", err)
		} else {
			a.watcher = tokenstore.NewWatcher(cfg.TokenStore.Path, a.manager.ReloadToken)
			if err := a.watcher.Start(); err != nil {
				logging.Warn("App", "Cannot watch token store: %v", err)
				a.watcher = nil
			}
		}
	}

	return a
}

// Close releases the listener, the watcher and the store.
func (a *app) Close() {
	if a.watcher != nil {
		a.watcher.Stop()
	}
	_ = a.manager.Close()
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			logging.Warn("App", "Error closing token store: %v", err)
		}
	}
}
