// Package router provides HTTP routing configuration using Chi.
package router

import (
	_ "embed"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/remiblancher/signpdfkit/internal/api/handler"
	"github.com/remiblancher/signpdfkit/internal/api/middleware"
	"github.com/remiblancher/signpdfkit/internal/api/service"
	"github.com/remiblancher/signpdfkit/internal/metrics"
)

//go:embed openapi.yaml
var openapiSpec []byte

// Config holds router configuration.
type Config struct {
	Version    string
	EngineInfo string // shown by /health
	Service    service.Config

	// Metrics records HTTP requests; nil disables the middleware.
	Metrics *metrics.Recorder
	// Gatherer backs /metrics; nil disables the endpoint.
	Gatherer prometheus.Gatherer

	Logger *zap.Logger
}

// New creates a new Chi router with all routes configured.
func New(cfg *Config) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger.Named("http")))
	r.Use(middleware.Recoverer(logger))
	if cfg.Metrics != nil {
		r.Use(middleware.Metrics(cfg.Metrics))
	}
	r.Use(middleware.CORS)

	health := handler.NewHealthHandler(cfg.Version, cfg.EngineInfo, cfg.Service.SignerName,
		map[string]handler.ReadinessCheck{
			"engine": func() bool { return cfg.Service.Engine != nil },
			"signer": func() bool { return cfg.Service.Signer != nil },
		})
	r.Get("/health", health.Health)
	r.Get("/ready", health.Ready)
	r.Get("/api/openapi.yaml", serveOpenAPISpec)

	if cfg.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}

	signHandler := handler.NewSignHandler(service.NewSignService(cfg.Service))
	revocationHandler := handler.NewRevocationHandler(service.NewRevocationService(cfg.Service))

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/sign", signHandler.Sign)
		r.Post("/verify", signHandler.Verify)
		r.Post("/revocation/collect", revocationHandler.Collect)
	})

	return r
}

// serveOpenAPISpec serves the OpenAPI specification file.
func serveOpenAPISpec(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(openapiSpec)
}
