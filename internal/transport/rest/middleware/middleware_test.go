package middleware

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spothire/internal/logging"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestRequestID(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NotEmpty(t, seen)
	assert.Equal(t, seen, rec.Header().Get(RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", seen)
}

func TestAccessLog_PassesStatusThrough(t *testing.T) {
	h := AccessLog(logging.Nop())(okHandler())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/feed", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRateLimiter_PerClient(t *testing.T) {
	rl := NewRateLimiter(1, 2)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("a"))
	assert.True(t, rl.Allow("a"))
	assert.False(t, rl.Allow("a"), "burst exhausted")
	assert.True(t, rl.Allow("b"), "other clients unaffected")

	now = now.Add(time.Second)
	assert.True(t, rl.Allow("a"), "refilled after a second")
}

func TestRateLimiter_SweepsIdleClients(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	rl.Allow("a")
	now = now.Add(limiterIdleTTL + time.Second)
	rl.Allow("b")

	rl.mu.Lock()
	defer rl.mu.Unlock()
	assert.NotContains(t, rl.clients, "a")
	assert.Contains(t, rl.clients, "b")
}

func TestRateLimiter_Middleware(t *testing.T) {
	h := NewRateLimiter(1, 1).Limit(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/api/qr/scan", nil)
	req.RemoteAddr = "10.0.0.1:5555"

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.JSONEq(t, `{"message":"Too many requests"}`, rec.Body.String())
}

func TestRateLimiter_IgnoresForwardedForByDefault(t *testing.T) {
	h := NewRateLimiter(1, 1).Limit(okHandler())

	allowed := 0
	for i := 0; i < 50; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/qr/scan", nil)
		req.RemoteAddr = "203.0.113.9:40000"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("10.0.0.%d", i))

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code == http.StatusNoContent {
			allowed++
		}
	}
	assert.Equal(t, 1, allowed, "rotating X-Forwarded-For must not reset the bucket")
}

func TestRateLimiter_TrustedProxyUsesLastHop(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	rl.SetTrustProxy(true)
	h := rl.Limit(okHandler())

	send := func(fwd string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/qr/register", nil)
		req.RemoteAddr = "10.1.0.2:8000"
		req.Header.Set("X-Forwarded-For", fwd)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusNoContent, send("1.1.1.1, 198.51.100.7"))
	assert.Equal(t, http.StatusTooManyRequests, send("2.2.2.2, 198.51.100.7"), "spoofed first hop is ignored")
	assert.Equal(t, http.StatusNoContent, send("198.51.100.8"), "distinct clients behind the proxy")

	req := httptest.NewRequest(http.MethodPost, "/api/qr/register", nil)
	req.RemoteAddr = "10.1.0.3:8000"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code, "falls back to the peer without the header")
}

func TestRateLimiter_Disabled(t *testing.T) {
	rl := NewRateLimiter(0, 0)
	for i := 0; i < 100; i++ {
		require.True(t, rl.Allow("a"))
	}
}
