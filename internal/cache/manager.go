package cache

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"aigenflow/internal/gateway"
	"aigenflow/internal/logging"
)

// Default cache parameters.
const (
	DefaultTTL    = 24 * time.Hour
	DefaultBudget = 500 * 1024 * 1024 // 500 MiB
)

// DefaultRoot returns ~/.aigenflow/cache.
func DefaultRoot() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".aigenflow", "cache")
	}
	return filepath.Join(home, ".aigenflow", "cache")
}

// Manager coordinates key generation and the store. Failed computations
// are never cached.
type Manager struct {
	store *Store
	ttl   time.Duration
}

// NewManager opens a cache manager over dir. Zero values select the
// defaults (24 h TTL, 500 MiB budget).
func NewManager(dir string, ttl time.Duration, budgetBytes int64) (*Manager, error) {
	if dir == "" {
		dir = DefaultRoot()
	}
	if ttl == 0 {
		ttl = DefaultTTL
	}
	if budgetBytes == 0 {
		budgetBytes = DefaultBudget
	}
	store, err := NewStore(dir, budgetBytes)
	if err != nil {
		return nil, err
	}
	return &Manager{store: store, ttl: ttl}, nil
}

// Store exposes the underlying store for stats and maintenance commands.
func (m *Manager) Store() *Store {
	return m.store
}

// GetResponse returns the cached gateway response for key, or nil on miss.
func (m *Manager) GetResponse(key string) *gateway.Response {
	raw := m.store.Get(key)
	if raw == nil {
		return nil
	}
	var resp gateway.Response
	if err := json.Unmarshal(raw, &resp); err != nil {
		logging.CacheDebug("cached payload unreadable for %s: %v", shortKey(key), err)
		m.store.Delete(key)
		return nil
	}
	return &resp
}

// GetOrCompute returns the cached response on hit. On miss it runs compute,
// stores a successful result under the default TTL, and returns it.
// Failed computations are not negatively cached.
func (m *Manager) GetOrCompute(key string, compute func() (*gateway.Response, error)) (*gateway.Response, error) {
	if cached := m.GetResponse(key); cached != nil {
		return cached, nil
	}
	resp, err := compute()
	if err != nil {
		return nil, err
	}
	if resp != nil && resp.Success {
		if err := m.store.Save(key, resp, m.ttl); err != nil {
			logging.Cache("cache write failed for %s: %v", shortKey(key), err)
		}
	}
	return resp, nil
}

// MetaCacheHit marks responses served from cache.
const MetaCacheHit = "cache_hit"

// CachedSender wraps a Sender with response caching. Hits carry the
// cache_hit metadata flag so downstream accounting can skip them.
type CachedSender struct {
	next gateway.Sender
	mgr  *Manager
}

// NewCachedSender wraps next with the cache manager.
func NewCachedSender(next gateway.Sender, mgr *Manager) *CachedSender {
	return &CachedSender{next: next, mgr: mgr}
}

// Send checks the cache before delegating. Only successful responses are
// stored.
func (c *CachedSender) Send(ctx context.Context, provider string, req gateway.Request) (*gateway.Response, error) {
	key := Key(KeyInput{
		Prompt:   req.Prompt,
		Provider: provider,
		Phase:    req.Phase,
		Model:    req.Model,
	})
	if cached := c.mgr.GetResponse(key); cached != nil {
		logging.Cache("hit %s for %s task=%s", shortKey(key), provider, req.TaskName)
		return cached.WithMeta(MetaCacheHit, true), nil
	}
	resp, err := c.next.Send(ctx, provider, req)
	if err != nil {
		return nil, err
	}
	if resp != nil && resp.Success {
		if err := c.mgr.store.Save(key, resp, c.mgr.ttl); err != nil {
			logging.Cache("cache write failed for %s: %v", shortKey(key), err)
		}
	}
	return resp, nil
}
