package app

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/araxson/enorae-sub010/internal/audit"
	"github.com/araxson/enorae-sub010/internal/auth"
	"github.com/araxson/enorae-sub010/internal/observability"
	"github.com/araxson/enorae-sub010/internal/platform/httpx"
	"github.com/araxson/enorae-sub010/internal/rbac"
	"github.com/araxson/enorae-sub010/internal/roles"
	"github.com/araxson/enorae-sub010/internal/tenancy"
	"github.com/araxson/enorae-sub010/jobs"
)

// Pinger reports dependency health for /healthz.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

// Ping calls f.
func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	Auth           auth.Middleware
	AuthHandler    *auth.Handler
	TenancyHandler *tenancy.Handler
	AdminRoles     *roles.Handler
	BusinessRoles  *roles.Handler
	JobHandler     *jobs.Handler
	AuditHandler   *audit.Handler
	Metrics        *observability.Metrics
	Health         map[string]Pinger
}

// NewRouter constructs the chi.Router with Enorae defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Auth:    params.Auth,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Get("/healthz", healthHandler(params.Health, params.Logger))

	if params.AuthHandler != nil {
		r.Route("/auth", params.AuthHandler.MountRoutes)
	}

	r.Route("/admin/api", func(r chi.Router) {
		r.Use(params.Auth.RequireRoute)
		r.Use(params.Auth.RequireAnyRole(rbac.PlatformAdmins...))
		if params.AdminRoles != nil {
			r.Route("/roles", params.AdminRoles.MountRoutes)
		}
		if params.JobHandler != nil {
			r.Route("/jobs", params.JobHandler.MountRoutes)
		}
		if params.AuditHandler != nil {
			r.Route("/audit", params.AuditHandler.MountRoutes)
		}
	})

	r.Route("/business/api", func(r chi.Router) {
		r.Use(params.Auth.RequireRoute)
		if params.TenancyHandler != nil {
			params.TenancyHandler.MountRoutes(r)
		}
		if params.BusinessRoles != nil {
			r.Route("/roles", params.BusinessRoles.MountRoutes)
		}
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}

func healthHandler(checks map[string]Pinger, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := map[string]string{"status": "ok"}
		code := http.StatusOK
		for name, check := range checks {
			if err := check.Ping(r.Context()); err != nil {
				logger.Warn("health check failed", slog.String("dependency", name), slog.Any("error", err))
				status[name] = "down"
				status["status"] = "degraded"
				code = http.StatusServiceUnavailable
				continue
			}
			status[name] = "ok"
		}
		httpx.JSON(w, code, status)
	}
}
