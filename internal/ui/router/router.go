// Package router sets up HTTP routes for the UI server.
package router

import (
	"log/slog"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/starfederation/datastar-go/datastar"

	"github.com/leapstack-labs/chartlink/internal/dataset"
	datasetsFeature "github.com/leapstack-labs/chartlink/internal/ui/features/datasets"
	homeFeature "github.com/leapstack-labs/chartlink/internal/ui/features/home"
	pagesFeature "github.com/leapstack-labs/chartlink/internal/ui/features/pages"
	"github.com/leapstack-labs/chartlink/internal/ui/metrics"
	"github.com/leapstack-labs/chartlink/internal/ui/notifier"
	"github.com/leapstack-labs/chartlink/internal/ui/resources"
	"github.com/leapstack-labs/chartlink/internal/ui/session"
)

// Deps are the shared dependencies of every feature.
type Deps struct {
	Registry *dataset.Registry
	Store    *session.Store
	Notifier *notifier.Notifier
	Metrics  *metrics.Metrics
	Logger   *slog.Logger
	IsDev    bool
}

// SetupRoutes configures all routes for the UI server.
func SetupRoutes(router chi.Router, deps Deps) error {
	// Hot reload endpoint for dev mode
	if deps.IsDev {
		setupReload(router)
	}

	// Static assets
	router.Handle("/static/*", resources.Handler())

	if deps.Metrics != nil {
		router.Handle("/metrics", deps.Metrics.Handler())
	}

	// Feature routes
	if err := homeFeature.SetupRoutes(router, deps.Registry, deps.Notifier, deps.IsDev); err != nil {
		return err
	}

	// Registered before the page routes; static segments win over /{slug}.
	if err := datasetsFeature.SetupRoutes(router, deps.Registry, deps.Logger, deps.IsDev); err != nil {
		return err
	}

	if err := pagesFeature.SetupRoutes(router, deps.Registry, deps.Store, deps.Notifier,
		deps.Metrics, deps.Logger, deps.IsDev); err != nil {
		return err
	}

	return nil
}

func setupReload(router chi.Router) {
	reloadChan := make(chan struct{}, 1)
	var hotReloadOnce sync.Once

	router.Get("/reload", func(w http.ResponseWriter, r *http.Request) {
		sse := datastar.NewSSE(w, r)
		reload := func() { _ = sse.ExecuteScript("window.location.reload()") }
		hotReloadOnce.Do(reload)
		select {
		case <-reloadChan:
			reload()
		case <-r.Context().Done():
		}
	})

	router.Get("/hotreload", func(w http.ResponseWriter, _ *http.Request) {
		select {
		case reloadChan <- struct{}{}:
		default:
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
}
