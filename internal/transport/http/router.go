// Package httptransport assembles the chi router for the process registry.
package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	platformmetrics "processguard/internal/platform/metrics"
	"processguard/internal/process/handler"
	adminmw "processguard/pkg/platform/middleware/admin"
	authmw "processguard/pkg/platform/middleware/auth"
	"processguard/pkg/platform/middleware/metadata"
	"processguard/pkg/platform/middleware/request"
	"processguard/pkg/platform/middleware/requesttime"
)

// Dependencies are the collaborators the router mounts.
type Dependencies struct {
	Processes *handler.Handler
	Tokens    authmw.JWTValidator
	Metrics   *platformmetrics.Metrics
	Health    []HealthCheck
	Logger    *slog.Logger
}

// NewRouter wires the public read and validation routes, the admin lifecycle
// routes behind bearer auth, and the operational endpoints.
func NewRouter(deps Dependencies) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(request.RequestID)
	r.Use(metadata.ClientMetadata)
	r.Use(requesttime.Middleware)
	r.Use(request.AccessLog(logger))
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Middleware)
		r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())
	}

	r.Get("/health", healthHandler(deps.Health))

	deps.Processes.Register(r)
	r.Group(func(admin chi.Router) {
		admin.Use(authmw.RequireAuth(deps.Tokens, logger))
		admin.Use(adminmw.RequireRole(adminmw.RoleProcessAdmin, logger))
		deps.Processes.RegisterAdmin(admin)
	})
	return r
}
