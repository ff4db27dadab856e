package datasets

import (
	"log/slog"

	"github.com/go-chi/chi/v5"

	"github.com/leapstack-labs/chartlink/internal/dataset"
)

// SetupRoutes registers the dataset browser routes. They are static and
// take precedence over the page routes mounted at /{slug}.
func SetupRoutes(router chi.Router, registry *dataset.Registry, logger *slog.Logger, isDev bool) error {
	handlers := NewHandlers(registry, logger, isDev)

	router.Route("/datasets", func(r chi.Router) {
		r.Get("/", handlers.Index)
		r.Get("/{name}", handlers.Detail)
		r.Post("/{name}/view", handlers.ViewSSE)
	})

	return nil
}
