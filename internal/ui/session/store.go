// Package session keeps the dashboards of each browser session. A browser
// is identified by a random id carried in a signed cookie.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"

	"github.com/leapstack-labs/chartlink/internal/coupling"
	"github.com/leapstack-labs/chartlink/internal/dashboard"
	"github.com/leapstack-labs/chartlink/internal/dataset"
	"github.com/leapstack-labs/chartlink/internal/ui/metrics"
	"github.com/leapstack-labs/chartlink/pkg/core"
)

// CookieName is the name of the session cookie.
const CookieName = "chartlink"

const idKey = "sid"

// Config holds the dependencies of a Store.
type Config struct {
	Cookies  sessions.Store
	Registry *dataset.Registry
	Metrics  *metrics.Metrics
	Logger   *slog.Logger
}

// Store maps session ids to the dashboards opened in that session.
type Store struct {
	cookies  sessions.Store
	registry *dataset.Registry
	metrics  *metrics.Metrics
	logger   *slog.Logger

	mu       sync.Mutex
	sessions map[string]map[string]dashboard.Dashboard
}

// NewStore creates an empty store.
func NewStore(cfg Config) *Store {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Store{
		cookies:  cfg.Cookies,
		registry: cfg.Registry,
		metrics:  cfg.Metrics,
		logger:   logger,
		sessions: make(map[string]map[string]dashboard.Dashboard),
	}
}

// ID returns the session id of r, issuing a new one and setting the cookie
// when the request carries none or an invalid one.
func (s *Store) ID(w http.ResponseWriter, r *http.Request) (string, error) {
	// Get returns a fresh session alongside a decode error.
	sess, _ := s.cookies.Get(r, CookieName)
	if id, ok := sess.Values[idKey].(string); ok && id != "" {
		return id, nil
	}

	id := uuid.NewString()
	sess.Values[idKey] = id
	if err := sess.Save(r, w); err != nil {
		return "", fmt.Errorf("failed to save session: %w", err)
	}
	return id, nil
}

// PostURL is the endpoint a page's charts post their events to.
func PostURL(p dashboard.Page) string {
	return "/" + p.Slug + "/events"
}

// Dashboard returns the dashboard for page in the session of r, building it
// on first use. Dataset load failures are returned as is.
func (s *Store) Dashboard(ctx context.Context, w http.ResponseWriter, r *http.Request, p dashboard.Page) (dashboard.Dashboard, error) {
	id, err := s.ID(w, r)
	if err != nil {
		return nil, err
	}
	return s.DashboardFor(ctx, id, p)
}

// DashboardFor is Dashboard for a known session id.
func (s *Store) DashboardFor(ctx context.Context, id string, p dashboard.Page) (dashboard.Dashboard, error) {
	if !p.Interactive() {
		return nil, fmt.Errorf("page %s has no dashboard", p.Slug)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if d, ok := s.sessions[id][p.Slug]; ok {
		return d, nil
	}

	ds, err := s.registry.Get(ctx, p.Dataset)
	if err != nil {
		return nil, err
	}
	d, err := p.New(ctx, ds, dashboard.Options{
		PostURL: PostURL(p),
		Logger:  s.logger.With("page", p.Slug, "session", id),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build %s dashboard: %w", p.Slug, err)
	}

	if s.sessions[id] == nil {
		s.sessions[id] = make(map[string]dashboard.Dashboard)
		if s.metrics != nil {
			s.metrics.Sessions.Inc()
		}
	}
	s.sessions[id][p.Slug] = d
	s.logger.Debug("dashboard created", "page", p.Slug, "session", id)
	return d, nil
}

// Reset pushes a reloaded dataset into every open dashboard built on it.
func (s *Store) Reset(ctx context.Context, name string, ds *core.Dataset) error {
	for _, d := range s.built(name) {
		if err := coupling.FirstError(d.Reset(ctx, ds)); err != nil {
			return err
		}
	}
	return nil
}

// Drop forgets every dashboard built on dataset name, so the next request
// builds it again or reports the load failure.
func (s *Store) Drop(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, pages := range s.sessions {
		for slug := range pages {
			if p, ok := dashboard.Lookup(slug); ok && p.Dataset == name {
				delete(pages, slug)
			}
		}
		if len(pages) == 0 {
			delete(s.sessions, id)
			if s.metrics != nil {
				s.metrics.Sessions.Dec()
			}
		}
	}
}

// Len returns the number of sessions with at least one dashboard.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Store) built(name string) []dashboard.Dashboard {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []dashboard.Dashboard
	for _, pages := range s.sessions {
		for slug, d := range pages {
			if p, ok := dashboard.Lookup(slug); ok && p.Dataset == name {
				out = append(out, d)
			}
		}
	}
	return out
}
