// Package httptransport assembles the HTTP surface: middleware chain, health
// and metrics endpoints, and the versioned API routes.
package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"voucher-ledger/internal/platform/middleware"
	"voucher-ledger/internal/transport/http/shared"
)

// requestTimeout bounds every API request end to end.
const requestTimeout = 30 * time.Second

// Registrar is implemented by each domain handler package.
type Registrar interface {
	Register(r chi.Router)
}

// NewRouter wires the middleware chain and mounts every handler under
// /api/v1.
func NewRouter(logger *slog.Logger, handlers ...Registrar) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Timeout(requestTimeout))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		shared.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(api chi.Router) {
		for _, h := range handlers {
			h.Register(api)
		}
	})
	return r
}
