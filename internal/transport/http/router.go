// Package httptransport assembles the module handlers into one router.
// Handlers own their routes; this package only decides which middleware
// guards which group.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"molecule/internal/platform/metrics"
	"molecule/pkg/platform/httputil"
	adminmw "molecule/pkg/platform/middleware/admin"
	request "molecule/pkg/platform/middleware/request"
)

// RouteRegistrar is implemented by every module handler.
type RouteRegistrar interface {
	Register(r chi.Router)
}

// AdminRouteRegistrar is implemented by handlers with mutating routes.
type AdminRouteRegistrar interface {
	RegisterAdmin(r chi.Router)
}

// HealthCheck reports a dependency's health. Nil checks are skipped.
type HealthCheck func(ctx context.Context) error

type Config struct {
	AdminToken string
	Logger     *slog.Logger
	Metrics    *metrics.Metrics
	// Gatherer serves /metrics; nil omits the endpoint.
	Gatherer prometheus.Gatherer
	Health   map[string]HealthCheck
}

// NewRouter mounts public routes, the admin group behind the shared token,
// health and metrics.
func NewRouter(cfg Config, admin []AdminRouteRegistrar, public []RouteRegistrar) http.Handler {
	r := chi.NewRouter()
	r.Use(request.Middleware)
	r.Use(chimiddleware.Recoverer)
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware)
	}

	r.Get("/healthz", healthHandler(cfg.Health))
	if cfg.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}

	for _, h := range public {
		h.Register(r)
	}
	r.Group(func(ar chi.Router) {
		ar.Use(adminmw.RequireAdminToken(cfg.AdminToken, cfg.Logger))
		for _, h := range admin {
			h.RegisterAdmin(ar)
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
		resp := healthResponse{Status: "ok", Checks: map[string]string{}}
		status := http.StatusOK
		for name, check := range checks {
			if check == nil {
				continue
			}
			if err := check(r.Context()); err != nil {
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
