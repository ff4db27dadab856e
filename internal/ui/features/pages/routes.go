package pages

import (
	"log/slog"

	"github.com/go-chi/chi/v5"

	"github.com/leapstack-labs/chartlink/internal/dataset"
	"github.com/leapstack-labs/chartlink/internal/ui/metrics"
	"github.com/leapstack-labs/chartlink/internal/ui/notifier"
	"github.com/leapstack-labs/chartlink/internal/ui/session"
)

// SetupRoutes configures routes for every registered page.
func SetupRoutes(
	router chi.Router,
	registry *dataset.Registry,
	store *session.Store,
	notify *notifier.Notifier,
	m *metrics.Metrics,
	logger *slog.Logger,
	isDev bool,
) error {
	handlers := NewHandlers(registry, store, notify, m, logger, isDev)

	router.Route("/{slug}", func(r chi.Router) {
		r.Get("/", handlers.Page)
		r.Get("/updates", handlers.PageUpdates)
		r.Post("/events", handlers.EventSSE)
		r.Post("/inputs", handlers.InputSSE)
		r.Post("/reload", handlers.ReloadSSE)
	})

	return nil
}
