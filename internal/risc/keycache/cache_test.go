package keycache

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"riscguard/internal/risc"
	"riscguard/internal/risc/metrics"
	"riscguard/pkg/platform/sentinel"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testMetrics() *metrics.Metrics {
	return metrics.NewWith(prometheus.NewRegistry())
}

// jwksServer serves a mutable key set and counts fetches.
type jwksServer struct {
	mu      sync.Mutex
	keys    risc.JSONWebKeySet
	fetches int
	status  int
	server  *httptest.Server
}

func newJWKSServer(keys ...risc.JSONWebKey) *jwksServer {
	s := &jwksServer{keys: risc.JSONWebKeySet{Keys: keys}, status: http.StatusOK}
	s.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.fetches++
		if s.status != http.StatusOK {
			w.WriteHeader(s.status)
			return
		}
		_ = json.NewEncoder(w).Encode(s.keys)
	}))
	return s
}

func (s *jwksServer) setKeys(keys ...risc.JSONWebKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys = risc.JSONWebKeySet{Keys: keys}
}

func (s *jwksServer) setStatus(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
}

func (s *jwksServer) fetchCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fetches
}

func newTestCache(url string, ttl time.Duration) *Cache {
	return New(url, ttl, 2*time.Second, testLogger(), testMetrics())
}

func jwk(kid string) risc.JSONWebKey {
	return risc.JSONWebKey{KeyType: "RSA", KeyID: kid, Modulus: "AQAB", Exponent: "AQAB"}
}

func TestKeysServesCacheUntilExpiry(t *testing.T) {
	srv := newJWKSServer(jwk("key-1"))
	defer srv.server.Close()
	cache := newTestCache(srv.server.URL, time.Hour)
	ctx := context.Background()

	first, err := cache.Keys(ctx)
	require.NoError(t, err)
	assert.Len(t, first.Keys, 1)

	// Second read is served from cache: no extra fetch even if the server
	// now holds different keys.
	srv.setKeys(jwk("key-2"))
	second, err := cache.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, "key-1", second.Keys[0].KeyID)
	assert.Equal(t, 1, srv.fetchCount())
}

func TestKeysRefetchesAfterExpiry(t *testing.T) {
	srv := newJWKSServer(jwk("key-1"))
	defer srv.server.Close()
	cache := newTestCache(srv.server.URL, time.Nanosecond)
	ctx := context.Background()

	_, err := cache.Keys(ctx)
	require.NoError(t, err)
	time.Sleep(time.Millisecond)

	srv.setKeys(jwk("key-2"))
	keys, err := cache.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, "key-2", keys.Keys[0].KeyID)
	assert.Equal(t, 2, srv.fetchCount())
}

func TestInvalidateClearsCache(t *testing.T) {
	srv := newJWKSServer(jwk("key-1"))
	defer srv.server.Close()
	cache := newTestCache(srv.server.URL, time.Hour)
	ctx := context.Background()

	_, err := cache.Keys(ctx)
	require.NoError(t, err)
	cache.Invalidate()
	_, err = cache.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, srv.fetchCount())
}

func TestLookup(t *testing.T) {
	t.Run("finds key in current cache without refetch", func(t *testing.T) {
		srv := newJWKSServer(jwk("key-1"))
		defer srv.server.Close()
		cache := newTestCache(srv.server.URL, time.Hour)

		key, err := cache.Lookup(context.Background(), "key-1")
		require.NoError(t, err)
		assert.Equal(t, "key-1", key.KeyID)
		assert.Equal(t, 1, srv.fetchCount())
	})

	t.Run("rotation: refreshes once and finds the new key", func(t *testing.T) {
		srv := newJWKSServer(jwk("old-key"))
		defer srv.server.Close()
		cache := newTestCache(srv.server.URL, time.Hour)
		ctx := context.Background()

		_, err := cache.Keys(ctx)
		require.NoError(t, err)

		srv.setKeys(jwk("rotated-key"))
		key, err := cache.Lookup(ctx, "rotated-key")
		require.NoError(t, err)
		assert.Equal(t, "rotated-key", key.KeyID)
		assert.Equal(t, 2, srv.fetchCount())
	})

	t.Run("miss after one forced refresh is not found, no further fetches", func(t *testing.T) {
		srv := newJWKSServer(jwk("key-1"))
		defer srv.server.Close()
		cache := newTestCache(srv.server.URL, time.Hour)
		ctx := context.Background()

		_, err := cache.Keys(ctx)
		require.NoError(t, err)

		_, err = cache.Lookup(ctx, "ghost-key")
		require.ErrorIs(t, err, sentinel.ErrNotFound)
		assert.Equal(t, 2, srv.fetchCount(), "exactly one forced refresh per miss")
	})
}

func TestFetchFailure(t *testing.T) {
	srv := newJWKSServer(jwk("key-1"))
	defer srv.server.Close()
	srv.setStatus(http.StatusInternalServerError)
	cache := newTestCache(srv.server.URL, time.Hour)

	_, err := cache.Keys(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, sentinel.ErrNotFound)
	// Initial attempt plus the single inline retry.
	assert.Equal(t, 2, srv.fetchCount())
}

func TestFetchRecoversOnRetry(t *testing.T) {
	var calls int
	var mu sync.Mutex
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls++
		failFirst := calls == 1
		mu.Unlock()
		if failFirst {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_ = json.NewEncoder(w).Encode(risc.JSONWebKeySet{Keys: []risc.JSONWebKey{jwk("key-1")}})
	}))
	defer server.Close()

	cache := newTestCache(server.URL, time.Hour)
	keys, err := cache.Keys(context.Background())
	require.NoError(t, err)
	assert.Len(t, keys.Keys, 1)
}
