// Package httptransport assembles the HTTP surface: middleware chain, public
// endpoints, the admin API behind bearer tokens, and operational endpoints.
// Handlers live next to their services; this package only mounts them.
package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	compliancehandler "remitpool/internal/compliance/handler"
	escrowhandler "remitpool/internal/escrow/handler"
	resolverhandler "remitpool/internal/resolver/handler"
	adminmw "remitpool/pkg/platform/middleware/admin"
	"remitpool/pkg/platform/middleware/metadata"
	requestmw "remitpool/pkg/platform/middleware/request"
	"remitpool/pkg/platform/middleware/requesttime"
)

// Config carries router-level settings.
type Config struct {
	// AdminSigningKey verifies admin bearer tokens.
	AdminSigningKey []byte
}

// Handlers groups the per-module handlers mounted on the router.
type Handlers struct {
	Escrow     *escrowhandler.Handler
	Compliance *compliancehandler.Handler
	Resolver   *resolverhandler.Handler
}

// NewRouter builds the complete router. Every request is stamped with a
// request id, a request-scoped time, and client metadata before reaching a
// handler; admin routes additionally require a valid bearer token.
func NewRouter(cfg Config, h Handlers, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.Recoverer)
	r.Use(requestmw.Middleware)
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata)

	r.Get("/healthz", handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		h.Escrow.Register(r)
		h.Compliance.Register(r)
		h.Resolver.Register(r)
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(adminmw.RequireToken(cfg.AdminSigningKey, logger))
		h.Escrow.RegisterAdmin(r)
		h.Compliance.RegisterAdmin(r)
		h.Resolver.RegisterAdmin(r)
	})

	return r
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
