package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func hitWithIP(handler http.Handler, ip string) int {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/goals", nil)
	req.Header.Set("X-Forwarded-For", ip)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec.Code
}

func TestRateLimitAllowsWithinBurst(t *testing.T) {
	handler := RateLimitMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	// Distinct IP so the shared visitor map starts fresh for this test.
	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, hitWithIP(handler, "10.9.0.1"))
	}
}

func TestRateLimitRejectsPastConfiguredBurst(t *testing.T) {
	t.Setenv("RATE_LIMIT_RPS", "1")
	t.Setenv("RATE_LIMIT_BURST", "2")

	handler := RateLimitMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	assert.Equal(t, http.StatusOK, hitWithIP(handler, "10.9.0.2"))
	assert.Equal(t, http.StatusOK, hitWithIP(handler, "10.9.0.2"))
	assert.Equal(t, http.StatusTooManyRequests, hitWithIP(handler, "10.9.0.2"))

	// Another client is unaffected by the first one's exhausted bucket.
	assert.Equal(t, http.StatusOK, hitWithIP(handler, "10.9.0.3"))
}

func TestConfiguredLimitsFallBackOnBadValues(t *testing.T) {
	t.Setenv("RATE_LIMIT_RPS", "not-a-number")
	t.Setenv("RATE_LIMIT_BURST", "0")

	rps, burst := configuredLimits()
	assert.EqualValues(t, defaultRatePerSecond, rps)
	assert.Equal(t, defaultBurst, burst)
}
