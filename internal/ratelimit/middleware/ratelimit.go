package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"unionhub/internal/ratelimit/metrics"
	"unionhub/internal/ratelimit/models"
	"unionhub/pkg/platform/httputil"
	"unionhub/pkg/requestcontext"
)

// Store records a request against key and reports whether it fits limit.
type Store interface {
	Allow(ctx context.Context, key string, limit models.Limit) (*models.RateLimitResult, error)
}

// DefaultLimits are per client IP.
var DefaultLimits = map[models.EndpointClass]models.Limit{
	models.ClassCredential: {Requests: 10, Window: time.Minute},
	models.ClassPublic:     {Requests: 120, Window: time.Minute},
}

type Middleware struct {
	store    Store
	limits   map[models.EndpointClass]models.Limit
	logger   *slog.Logger
	metrics  *metrics.Metrics
	disabled bool
	now      func() time.Time
}

type Option func(*Middleware)

// WithDisabled turns every check into a pass-through.
func WithDisabled(disabled bool) Option {
	return func(m *Middleware) { m.disabled = disabled }
}

func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Middleware) { m.metrics = mt }
}

// WithLimit overrides the budget of class. Non-positive values keep the default.
func WithLimit(class models.EndpointClass, limit models.Limit) Option {
	return func(m *Middleware) {
		if limit.Requests > 0 && limit.Window > 0 {
			m.limits[class] = limit
		}
	}
}

func New(store Store, logger *slog.Logger, opts ...Option) *Middleware {
	m := &Middleware{
		store:  store,
		limits: make(map[models.EndpointClass]models.Limit, len(DefaultLimits)),
		logger: logger,
		now:    time.Now,
	}
	for class, limit := range DefaultLimits {
		m.limits[class] = limit
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.disabled {
		logger.Info("rate limiting disabled")
	}
	return m
}

// RateLimit applies class's budget to every request, keyed by client IP.
func (m *Middleware) RateLimit(class models.EndpointClass) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if m.disabled || m.check(w, r, class) {
				next.ServeHTTP(w, r)
			}
		})
	}
}

// RateLimitRoutes applies class only to the listed "METHOD /path" routes.
// Paths are matched exactly.
func (m *Middleware) RateLimitRoutes(class models.EndpointClass, routes ...string) func(http.Handler) http.Handler {
	set := make(map[string]struct{}, len(routes))
	for _, route := range routes {
		set[route] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := set[r.Method+" "+r.URL.Path]; !ok || m.disabled {
				next.ServeHTTP(w, r)
				return
			}
			if m.check(w, r, class) {
				next.ServeHTTP(w, r)
			}
		})
	}
}

// check reports whether the request may proceed. A store error lets it through.
func (m *Middleware) check(w http.ResponseWriter, r *http.Request, class models.EndpointClass) bool {
	ctx := r.Context()
	limit, ok := m.limits[class]
	if !ok {
		return true
	}
	ip := requestcontext.ClientIP(ctx)
	if ip == "" {
		ip = "unknown"
	}

	result, err := m.store.Allow(ctx, models.Key(class, ip), limit)
	if err != nil {
		m.logger.ErrorContext(ctx, "failed to check rate limit",
			"class", string(class),
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		if m.metrics != nil {
			m.metrics.IncrementStoreErrors()
		}
		return true
	}
	if m.metrics != nil {
		m.metrics.IncrementDecision(string(class), result.Allowed)
	}

	addRateLimitHeaders(w, result)
	if !result.Allowed {
		m.logger.WarnContext(ctx, "rate limit exceeded",
			"class", string(class),
			"request_id", requestcontext.RequestID(ctx),
		)
		writeRateLimitExceeded(w, result.RetryAfter(m.now()))
		return false
	}
	return true
}

func addRateLimitHeaders(w http.ResponseWriter, result *models.RateLimitResult) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
}

func writeRateLimitExceeded(w http.ResponseWriter, retryAfter int) {
	w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	httputil.WriteJSON(w, http.StatusTooManyRequests, &models.RateLimitExceededResponse{
		Error:      "rate_limit_exceeded",
		Message:    "Too many requests. Please try again later.",
		RetryAfter: retryAfter,
	})
}
