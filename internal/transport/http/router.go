// Package httptransport assembles the public HTTP surface: domain routes,
// health, and metrics.
package httptransport

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registrar is implemented by domain handlers that attach their routes.
type Registrar interface {
	Register(r chi.Router)
}

// NewRouter wires all public endpoints. Domain handlers carry their own
// middleware chains; health and metrics stay unauthenticated for probes and
// scrapers.
func NewRouter(handlers ...Registrar) http.Handler {
	router := chi.NewRouter()

	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	router.Method(http.MethodGet, "/metrics", promhttp.Handler())

	for _, h := range handlers {
		h.Register(router)
	}
	return router
}
