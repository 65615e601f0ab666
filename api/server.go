package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/packtrack/api/handlers"
	"github.com/angelmondragon/packtrack/api/middleware"
	"github.com/angelmondragon/packtrack/pkg/config"
	"github.com/angelmondragon/packtrack/pkg/logger"
)

// Source is what the monitor exposes: the cache and the package read path.
type Source interface {
	handlers.CacheSizer
	handlers.PackageReader
}

// NewHandler returns the monitor router served by `packtrack watch`.
func NewHandler(cfg *config.Config, logg *logger.Logger, gatherer prometheus.Gatherer, source Source) http.Handler {
	r := chi.NewRouter()

	// Middleware chain (outermost first)
	r.Use(middleware.Recoverer(logg))
	r.Use(middleware.RequestID(logg))
	r.Use(middleware.Logging(logg))

	r.Get("/healthz", handlers.Healthz(cfg, logg, source))
	if gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}
	r.Get("/packages", handlers.PackagesState(source))
	r.Get("/packages/{id}", handlers.Package(logg, source))

	return r
}
