package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"unionhub/internal/platform/metrics"
	"unionhub/internal/platform/middleware"
	"unionhub/pkg/platform/httputil"
)

// PublicRoutes mounts endpoints reachable without an admin session.
type PublicRoutes interface {
	RegisterPublic(r chi.Router)
}

// AdminRoutes mounts endpoints behind the bearer token check.
type AdminRoutes interface {
	RegisterAdmin(r chi.Router)
}

// HealthCheck reports whether a backing dependency is reachable.
type HealthCheck func(ctx context.Context) error

// Config is everything NewRouter needs. Handlers only see requests that passed
// the shared middleware stack.
type Config struct {
	Logger   *slog.Logger
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer
	Tokens   middleware.TokenValidator
	Public   []PublicRoutes
	Admin    []AdminRoutes
	Health   map[string]HealthCheck

	// PublicMiddleware runs ahead of the public handlers only.
	PublicMiddleware []func(http.Handler) http.Handler
}

// NewRouter wires the middleware chain, the operational endpoints and every
// domain handler.
func NewRouter(cfg Config) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.ClientMetadata)
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.Logger(cfg.Logger, cfg.Metrics))

	r.Get("/healthz", healthHandler(cfg.Health))
	if cfg.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(cfg.Gatherer))
	}

	r.Group(func(r chi.Router) {
		r.Use(cfg.PublicMiddleware...)
		r.Use(middleware.ContentTypeJSON)
		for _, h := range cfg.Public {
			h.RegisterPublic(r)
		}
	})
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(cfg.Tokens, cfg.Logger))
		r.Use(middleware.ContentTypeJSON)
		for _, h := range cfg.Admin {
			h.RegisterAdmin(r)
		}
	})
	return r
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func healthHandler(checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		resp := healthResponse{Status: "ok"}
		status := http.StatusOK
		for name, check := range checks {
			if resp.Checks == nil {
				resp.Checks = make(map[string]string, len(checks))
			}
			if err := check(ctx); err != nil {
				resp.Checks[name] = err.Error()
				resp.Status = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[name] = "ok"
		}
		httputil.WriteJSON(w, status, resp)
	}
}
