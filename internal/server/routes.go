// Package server wires HTTP handlers into a chi router for the Coscribe
// application via routing helpers.
package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRoutes configures and returns the application router. It sets up
// handlers for the health check, WebSocket endpoint, Prometheus metrics, and
// the editor test page.
func SetupRoutes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)

	r.Get("/health", HealthHandler)
	r.Get("/ws", WebSocketHandler)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/", TestPageHandler)
	r.Get("/test", TestPageHandler)

	return r
}
