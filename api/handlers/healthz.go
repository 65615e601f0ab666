package handlers

import (
	"net/http"

	"github.com/angelmondragon/packtrack/api/responses"
	"github.com/angelmondragon/packtrack/pkg/config"
	"github.com/angelmondragon/packtrack/pkg/logger"
)

// CacheSizer reports the number of live cache entries.
type CacheSizer interface {
	Len() int
}

func Healthz(cfg *config.Config, logg *logger.Logger, cache CacheSizer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := logg.WithFields(r.Context(), map[string]any{
			"env":  cfg.App.Env,
			"path": r.URL.Path,
		})
		logg.Debug(ctx, "health.check")

		w.Header().Set("X-Packtrack-Env", cfg.App.Env)
		responses.WriteSuccess(w, http.StatusOK, map[string]any{
			"status":        "ok",
			"endpoint":      cfg.API.Endpoint(),
			"cache_entries": cache.Len(),
		})
	}
}
