package home

import (
	"github.com/go-chi/chi/v5"

	"github.com/leapstack-labs/chartlink/internal/dataset"
	"github.com/leapstack-labs/chartlink/internal/ui/notifier"
)

// SetupRoutes configures routes for the home feature.
func SetupRoutes(
	router chi.Router,
	registry *dataset.Registry,
	notify *notifier.Notifier,
	isDev bool,
) error {
	handlers := NewHandlers(registry, notify, isDev)

	router.Get("/", handlers.HomePage)
	router.Get("/updates", handlers.HomePageUpdates)

	return nil
}
