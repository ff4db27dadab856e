// Package ui serves the chartlink pages and dashboards.
package ui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/chartlink/internal/dataset"
	"github.com/leapstack-labs/chartlink/internal/ui/metrics"
	"github.com/leapstack-labs/chartlink/internal/ui/notifier"
	"github.com/leapstack-labs/chartlink/internal/ui/router"
	"github.com/leapstack-labs/chartlink/internal/ui/session"
)

const (
	defaultWatchDebounce = 100 * time.Millisecond
	defaultSessionMaxAge = 24 * time.Hour
)

// Server is the main UI server.
type Server struct {
	registry     *dataset.Registry
	sessionStore *sessions.CookieStore
	store        *session.Store
	metrics      *metrics.Metrics
	port         int
	watch        bool
	debounce     time.Duration
	dev          bool
	logger       *slog.Logger
	notifier     *notifier.Notifier
}

// Config holds configuration for the UI server.
type Config struct {
	Registry *dataset.Registry
	Port     int
	Watch    bool
	// SessionSecret signs the session cookie. A random key is used when
	// empty, so sessions do not survive a restart.
	SessionSecret string
	// SessionMaxAge bounds the session cookie lifetime; zero means a day.
	SessionMaxAge time.Duration
	// WatchDebounce delays reloads after a file change; zero means 100ms.
	WatchDebounce time.Duration
	Logger        *slog.Logger
	Dev           bool
}

// NewServer creates a new UI server instance.
func NewServer(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	secret := []byte(cfg.SessionSecret)
	if len(secret) == 0 {
		secret = securecookie.GenerateRandomKey(32)
	}
	sessionStore := sessions.NewCookieStore(secret)
	maxAge := cfg.SessionMaxAge
	if maxAge <= 0 {
		maxAge = defaultSessionMaxAge
	}
	debounce := cfg.WatchDebounce
	if debounce <= 0 {
		debounce = defaultWatchDebounce
	}
	sessionStore.MaxAge(int(maxAge.Seconds()))
	sessionStore.Options.Path = "/"
	sessionStore.Options.HttpOnly = true
	sessionStore.Options.SameSite = http.SameSiteLaxMode

	m := metrics.New()
	cfg.Registry.OnLoad = m.ObserveLoad

	return &Server{
		registry:     cfg.Registry,
		sessionStore: sessionStore,
		store: session.NewStore(session.Config{
			Cookies:  sessionStore,
			Registry: cfg.Registry,
			Metrics:  m,
			Logger:   logger,
		}),
		metrics:  m,
		port:     cfg.Port,
		watch:    cfg.Watch,
		debounce: debounce,
		dev:      cfg.Dev,
		logger:   logger,
		notifier: notifier.New(),
	}
}

// Handler builds the router with every route mounted.
func (s *Server) Handler() (http.Handler, error) {
	r := chi.NewMux()
	r.Use(
		middleware.Logger,
		middleware.Recoverer,
		middleware.Compress(5),
	)

	err := router.SetupRoutes(r, router.Deps{
		Registry: s.registry,
		Store:    s.store,
		Notifier: s.notifier,
		Metrics:  s.metrics,
		Logger:   s.logger,
		IsDev:    s.dev,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to setup routes: %w", err)
	}
	return r, nil
}

// Serve starts the UI server and blocks until the context is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.port)
	s.logger.Info("starting UI server", "addr", fmt.Sprintf("http://localhost:%d", s.port))

	eg, egctx := errgroup.WithContext(ctx)

	handler, err := s.Handler()
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start file watcher if enabled
	if s.watch {
		eg.Go(func() error {
			return s.watchFiles(egctx)
		})
	}

	// Start HTTP server
	eg.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown
	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Debug("shutting down UI server...")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}

// IsDev returns true if running in development mode.
func (s *Server) IsDev() bool {
	return s.dev
}

// Notifier returns the server's notifier for SSE updates.
func (s *Server) Notifier() *notifier.Notifier {
	return s.notifier
}

// Sessions returns the per-browser dashboard store.
func (s *Server) Sessions() *session.Store {
	return s.store
}

// Metrics returns the server's metrics.
func (s *Server) Metrics() *metrics.Metrics {
	return s.metrics
}

// watchFiles reloads a CSV dataset whenever its local file is written.
func (s *Server) watchFiles(ctx context.Context) error {
	watched := s.registry.Watched()
	if len(watched) == 0 {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	// Editors replace files on save, so watch the directories.
	byPath := make(map[string]string, len(watched))
	dirs := make(map[string]bool)
	for path, name := range watched {
		abs, err := filepath.Abs(path)
		if err != nil {
			abs = path
		}
		byPath[abs] = name
		dirs[filepath.Dir(abs)] = true
	}
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			// Don't fail - continue without watching
			s.logger.Error("failed to watch dataset directory", "dir", dir, "error", err)
		}
	}

	var mu sync.Mutex
	timers := make(map[string]*time.Timer)
	defer func() {
		mu.Lock()
		for _, t := range timers {
			t.Stop()
		}
		mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			abs, err := filepath.Abs(event.Name)
			if err != nil {
				abs = event.Name
			}
			name, ok := byPath[abs]
			if !ok {
				continue
			}

			// Debounce per dataset
			mu.Lock()
			if t := timers[name]; t != nil {
				t.Stop()
			}
			timers[name] = time.AfterFunc(s.debounce, func() {
				s.logger.Debug("dataset file changed, reloading", "dataset", name, "file", event.Name)
				s.reloadDataset(ctx, name)
			})
			mu.Unlock()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Error("watcher error", "error", err)
		}
	}
}

// reloadDataset reloads name, updates the dashboards built on it and
// notifies the SSE clients.
func (s *Server) reloadDataset(ctx context.Context, name string) {
	ds, err := s.registry.Reload(ctx, name)
	if err != nil {
		s.store.Drop(name)
	} else if err := s.store.Reset(ctx, name, ds); err != nil {
		s.logger.Error("failed to reset dashboards", "dataset", name, "error", err)
	}
	s.notifier.Broadcast(name)
}
