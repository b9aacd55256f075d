// Package keycache fetches and caches the provider's published public key
// set. The cached snapshot is replaced atomically, never mutated: concurrent
// readers may observe a stale-but-unexpired set, and racing refreshes are
// safe because the last writer wins.
package keycache

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"riscguard/internal/risc"
	"riscguard/internal/risc/metrics"
	"riscguard/pkg/platform/sentinel"
)

// retryBackoff is the pause before the single inline retry of a failed
// key fetch.
const retryBackoff = 500 * time.Millisecond

type snapshot struct {
	keys      risc.JSONWebKeySet
	expiresAt time.Time
}

// Cache owns the provider key set and its expiry. Construct once and inject
// into the verifier.
type Cache struct {
	url     string
	ttl     time.Duration
	client  *http.Client
	logger  *slog.Logger
	metrics *metrics.Metrics
	current atomic.Pointer[snapshot]
}

// New builds a key cache for the given JWKS endpoint. fetchTimeout bounds
// each fetch attempt.
func New(url string, ttl, fetchTimeout time.Duration, logger *slog.Logger, m *metrics.Metrics) *Cache {
	return &Cache{
		url:     url,
		ttl:     ttl,
		client:  &http.Client{Timeout: fetchTimeout},
		logger:  logger,
		metrics: m,
	}
}

// Keys serves the cached key set while it is fresh, otherwise fetches and
// stores a new snapshot with expiry now + TTL.
func (c *Cache) Keys(ctx context.Context) (risc.JSONWebKeySet, error) {
	if snap := c.current.Load(); snap != nil && time.Now().Before(snap.expiresAt) {
		return snap.keys, nil
	}
	snap, err := c.refresh(ctx)
	if err != nil {
		return risc.JSONWebKeySet{}, err
	}
	return snap.keys, nil
}

// Lookup finds the key with the given id. On a miss it invalidates the
// cache and refetches exactly once before giving up; a key absent after
// that refresh is sentinel.ErrNotFound and triggers no further fetches.
func (c *Cache) Lookup(ctx context.Context, kid string) (risc.JSONWebKey, error) {
	keys, err := c.Keys(ctx)
	if err != nil {
		return risc.JSONWebKey{}, err
	}
	if key, ok := findKey(keys, kid); ok {
		return key, nil
	}

	// Key rotation: force one refresh and retry the lookup.
	c.Invalidate()
	keys, err = c.Keys(ctx)
	if err != nil {
		return risc.JSONWebKey{}, err
	}
	if key, ok := findKey(keys, kid); ok {
		return key, nil
	}
	return risc.JSONWebKey{}, fmt.Errorf("key %q: %w", kid, sentinel.ErrNotFound)
}

// Invalidate clears the cache unconditionally. The next read fetches.
func (c *Cache) Invalidate() {
	c.current.Store(nil)
}

func (c *Cache) refresh(ctx context.Context) (*snapshot, error) {
	keys, err := c.fetch(ctx)
	if err != nil {
		// One inline retry for transient failures; anything past that
		// surfaces to the caller and aborts verification.
		c.logger.WarnContext(ctx, "key fetch failed, retrying once", "url", c.url, "error", err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(retryBackoff):
		}
		keys, err = c.fetch(ctx)
		if err != nil {
			c.metrics.IncrementKeyFetchFailures()
			return nil, fmt.Errorf("fetch provider keys: %w", err)
		}
	}

	snap := &snapshot{keys: keys, expiresAt: time.Now().Add(c.ttl)}
	c.current.Store(snap)
	c.metrics.IncrementKeyCacheRefreshes()
	c.logger.InfoContext(ctx, "cached provider public keys", "count", len(keys.Keys), "ttl", c.ttl)
	return snap, nil
}

func (c *Cache) fetch(ctx context.Context) (risc.JSONWebKeySet, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return risc.JSONWebKeySet{}, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return risc.JSONWebKeySet{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 512))
		return risc.JSONWebKeySet{}, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var keys risc.JSONWebKeySet
	if err := json.NewDecoder(resp.Body).Decode(&keys); err != nil {
		return risc.JSONWebKeySet{}, fmt.Errorf("decode key set: %w", err)
	}
	return keys, nil
}

func findKey(keys risc.JSONWebKeySet, kid string) (risc.JSONWebKey, bool) {
	for _, key := range keys.Keys {
		if key.KeyID == kid {
			return key, true
		}
	}
	return risc.JSONWebKey{}, false
}
