// Package httptransport assembles the public HTTP surface: the webhook,
// an unauthenticated health check, and the metrics endpoint.
package httptransport

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	rischandler "riscguard/internal/risc/handler"
	"riscguard/pkg/platform/httputil"
)

// HealthCheck reports dependency liveness for the health endpoint. Nil
// checks are skipped.
type HealthCheck func(ctx context.Context) error

// NewRouter wires all public endpoints.
func NewRouter(risc *rischandler.Handler, health HealthCheck) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(RequestMetadata)

	r.Get("/healthz", handleHealth(health))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	risc.Register(r)
	return r
}

func handleHealth(check HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			if err := check(r.Context()); err != nil {
				httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{
					"status": "degraded",
				})
				return
			}
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
