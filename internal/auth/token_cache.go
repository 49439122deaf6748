package auth

import (
	"errors"
	"sync"
	"time"

	"github.com/giantswarm/meta-ads-mcp/internal/auth/tokenstore"
	"github.com/giantswarm/meta-ads-mcp/pkg/logging"
)

// TokenCache holds at most one token for the process.
//
// Expiry is checked on every read. When a persister is configured the cache
// writes through on Set and lazily reads back on the first Get after
// construction or after Invalidate. Every persistence failure is logged and
// swallowed so the cache degrades to memory-only behaviour.
type TokenCache struct {
	mu        sync.RWMutex
	token     *Token
	persister tokenstore.Persister
	loaded    bool
	now       func() time.Time
}

// NewTokenCache creates a cache. persister may be nil for memory-only use.
func NewTokenCache(persister tokenstore.Persister) *TokenCache {
	return &TokenCache{
		persister: persister,
		loaded:    persister == nil,
		now:       time.Now,
	}
}

// Get returns a copy of the cached token, or nil if none is stored or the
// stored token has expired.
func (c *TokenCache) Get() *Token {
	// Fast path with read lock
	c.mu.RLock()
	if c.loaded {
		token := c.token
		valid := token.Valid(c.now())
		c.mu.RUnlock()
		if valid {
			return token.clone()
		}
		if token == nil {
			return nil
		}
	} else {
		c.mu.RUnlock()
	}

	// Slow path with write lock for loading and expiry cleanup
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.loaded {
		c.loadLocked()
	}

	if c.token != nil && !c.token.Valid(c.now()) {
		logging.Info("TokenCache", "Cached %s token expired at %s, discarding", c.token.Method, c.token.ExpiresAt.Format(time.RFC3339))
		c.token = nil
		c.deletePersistedLocked()
	}

	return c.token.clone()
}

// Set stores a token, replacing any previous one. Manual tokens are kept in
// memory only.
func (c *TokenCache) Set(token *Token) {
	if token == nil || token.AccessToken == "" {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.token = token.clone()
	c.loaded = true

	if c.persister == nil || token.Method == MethodManual {
		return
	}
	if err := c.persister.Save(toRecord(token)); err != nil {
		logging.Warn("TokenCache", "Failed to persist token, keeping it in memory only: %v", err)
		return
	}
	logging.Audit(logging.AuditEvent{Action: "token_stored", Outcome: "success", Method: string(token.Method)})
}

// Clear removes the token from memory and persistent storage.
func (c *TokenCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.token = nil
	c.loaded = true
	c.deletePersistedLocked()
	logging.Audit(logging.AuditEvent{Action: "token_cleared", Outcome: "success"})
}

// Invalidate forces the next Get to re-read persistent storage. It is used
// when another process changes the store.
func (c *TokenCache) Invalidate() {
	if c.persister == nil {
		return
	}
	c.mu.Lock()
	c.loaded = false
	c.mu.Unlock()
}

// loadLocked reads the persisted token. Requires c.mu held for writing.
func (c *TokenCache) loadLocked() {
	c.loaded = true

	record, err := c.persister.Load()
	switch {
	case errors.Is(err, tokenstore.ErrNotFound):
		// A manual token was never persisted, so it survives a reload.
		if c.token != nil && c.token.Method != MethodManual {
			c.token = nil
		}
		return
	case err != nil:
		logging.Warn("TokenCache", "Failed to read persisted token, using in-memory state: %v", err)
		return
	}

	// A manual token is explicit configuration and wins over the store.
	if c.token != nil && c.token.Method == MethodManual {
		return
	}
	c.token = fromRecord(record)
	logging.Debug("TokenCache", "Restored token from persistent storage")
}

func (c *TokenCache) deletePersistedLocked() {
	if c.persister == nil {
		return
	}
	if err := c.persister.Delete(); err != nil {
		logging.Warn("TokenCache", "Failed to delete persisted token: %v", err)
	}
}
