// Package api serves registry lookups over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Vheissu/abn-checker/internal/lookup"
)

// Looker resolves a raw identifier to a record.
type Looker interface {
	Lookup(ctx context.Context, raw string) (*lookup.Result, error)
}

// NewRouter mounts the lookup endpoints. gatherer may be nil, in which case
// /metrics is not served.
func NewRouter(svc Looker, gatherer prometheus.Gatherer) http.Handler {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(accessLog)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", RequestIDHeader},
		ExposedHeaders: []string{RequestIDHeader},
		MaxAge:         300,
	}))

	r.Get("/health", h.Health)
	r.Get("/abn/", h.LookupPath)
	r.Get("/abn/{abn}", h.LookupPath)
	r.Get("/lookup", h.LookupQuery)
	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}
	r.NotFound(h.NotFound)
	return r
}

// NewServer builds an HTTP server for handler.
func NewServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}
