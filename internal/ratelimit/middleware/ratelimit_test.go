package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"unionhub/internal/platform/logger"
	"unionhub/internal/ratelimit/metrics"
	"unionhub/internal/ratelimit/models"
	"unionhub/internal/ratelimit/store"
	"unionhub/pkg/requestcontext"
)

type failingStore struct{}

func (failingStore) Allow(context.Context, string, models.Limit) (*models.RateLimitResult, error) {
	return nil, errors.New("redis unavailable")
}

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func request(method, path, ip string) *http.Request {
	req := httptest.NewRequest(method, path, nil)
	return req.WithContext(requestcontext.WithClientMetadata(req.Context(), ip, "test-agent"))
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRateLimitRejectsAfterBudget(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	mw := New(store.NewInMemory(), logger.Discard(),
		WithMetrics(m),
		WithLimit(models.ClassPublic, models.Limit{Requests: 2, Window: time.Minute}),
	)
	h := mw.RateLimit(models.ClassPublic)(okHandler)

	for range 2 {
		rec := serve(h, request(http.MethodGet, "/api/members/abc", "10.0.0.1"))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
	}

	rec := serve(h, request(http.MethodGet, "/api/members/abc", "10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), `"error":"rate_limit_exceeded"`)

	rec = serve(h, request(http.MethodGet, "/api/members/abc", "10.0.0.2"))
	assert.Equal(t, http.StatusOK, rec.Code, "budgets are per client ip")

	assert.Equal(t, float64(3), testutil.ToFloat64(m.Decisions.WithLabelValues("public", "allowed")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Decisions.WithLabelValues("public", "rejected")))
}

func TestRateLimitRoutesOnlyGuardsListedRoutes(t *testing.T) {
	mw := New(store.NewInMemory(), logger.Discard(),
		WithLimit(models.ClassCredential, models.Limit{Requests: 1, Window: time.Minute}),
	)
	h := mw.RateLimitRoutes(models.ClassCredential, "POST /api/admin/login")(okHandler)

	assert.Equal(t, http.StatusOK, serve(h, request(http.MethodPost, "/api/admin/login", "10.0.0.1")).Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(h, request(http.MethodPost, "/api/admin/login", "10.0.0.1")).Code)

	for range 5 {
		assert.Equal(t, http.StatusOK, serve(h, request(http.MethodGet, "/api/admin/login", "10.0.0.1")).Code)
		assert.Equal(t, http.StatusOK, serve(h, request(http.MethodPost, "/api/members/verify", "10.0.0.1")).Code)
	}
}

func TestRateLimitFailsOpen(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	h := New(failingStore{}, logger.Discard(), WithMetrics(m)).RateLimit(models.ClassPublic)(okHandler)

	rec := serve(h, request(http.MethodGet, "/", "10.0.0.1"))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Errors))
}

func TestRateLimitDisabled(t *testing.T) {
	h := New(failingStore{}, logger.Discard(), WithDisabled(true)).RateLimit(models.ClassCredential)(okHandler)
	rec := serve(h, request(http.MethodPost, "/api/admin/login", "10.0.0.1"))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("X-RateLimit-Limit"))
}
