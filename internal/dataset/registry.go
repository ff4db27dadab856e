package dataset

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/leapstack-labs/chartlink/pkg/core"
)

// UnknownDatasetError is returned when a dataset name is not registered.
type UnknownDatasetError struct {
	Name      string
	Available []string
}

func (e *UnknownDatasetError) Error() string {
	return fmt.Sprintf("unknown dataset %q (available: %v)", e.Name, e.Available)
}

type entry struct {
	loader  Loader
	watch   string
	dataset *core.Dataset
	err     error
	loaded  bool
	// gen counts load attempts; only the latest one may store its result.
	gen uint64
}

// Registry loads datasets on first use and keeps the result, including a
// failed load, until the dataset is reloaded. Reloading replaces the
// dataset as a whole; callers holding the previous one keep a consistent
// view. Loads run outside the registry lock, so a slow dataset never
// blocks Statuses or the other datasets; concurrent first uses of one
// dataset share a single load.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*entry
	logger  *slog.Logger
	loads   singleflight.Group

	// OnLoad, when set, is called after every load attempt.
	OnLoad func(name string, took time.Duration, err error)
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Registry{
		entries: make(map[string]*entry),
		logger:  logger,
	}
}

// NewRegistryFromConfig registers a loader for every configured dataset.
func NewRegistryFromConfig(cfgs map[string]Config, logger *slog.Logger) (*Registry, error) {
	r := NewRegistry(logger)
	for name, cfg := range cfgs {
		l, err := New(name, cfg)
		if err != nil {
			return nil, err
		}
		r.Register(name, l, cfg.Watchable())
	}
	return r, nil
}

// Register adds a dataset. watch is the local file backing it, or "".
func (r *Registry) Register(name string, l Loader, watch string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[name] = &entry{loader: l, watch: watch}
}

// Names returns the registered dataset names, sorted.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.namesLocked()
}

func (r *Registry) namesLocked() []string {
	names := make([]string, 0, len(r.entries))
	for n := range r.entries {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Watched maps local files to the dataset names they back.
func (r *Registry) Watched() map[string]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]string)
	for name, e := range r.entries {
		if e.watch != "" {
			out[e.watch] = name
		}
	}
	return out
}

// Status describes one registered dataset without loading it.
type Status struct {
	Name     string
	Watch    string
	Loaded   bool
	Rows     int
	LoadedAt time.Time
	Err      error
}

// Statuses reports every registered dataset, sorted by name.
func (r *Registry) Statuses() []Status {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Status, 0, len(r.entries))
	for _, name := range r.namesLocked() {
		e := r.entries[name]
		st := Status{Name: name, Watch: e.watch, Loaded: e.loaded, Err: e.err}
		if e.dataset != nil {
			st.Rows = e.dataset.Len()
			st.LoadedAt = e.dataset.LoadedAt
		}
		out = append(out, st)
	}
	return out
}

// Get returns the dataset, loading it on first use. A failed load is
// returned again until Reload is called.
func (r *Registry) Get(ctx context.Context, name string) (*core.Dataset, error) {
	e, err := r.entry(name)
	if err != nil {
		return nil, err
	}
	if ds, ok, err := r.cached(e); ok {
		return ds, err
	}

	v, err, _ := r.loads.Do(name, func() (any, error) {
		// A load that finished while this call waited for the group.
		if ds, ok, err := r.cached(e); ok {
			return ds, err
		}
		return r.load(ctx, name, e)
	})
	ds, _ := v.(*core.Dataset)
	return ds, err
}

// Reload loads the dataset again. On failure the previous dataset is
// dropped and the error is kept. When loads overlap, the one started last
// wins.
func (r *Registry) Reload(ctx context.Context, name string) (*core.Dataset, error) {
	e, err := r.entry(name)
	if err != nil {
		return nil, err
	}
	return r.load(ctx, name, e)
}

func (r *Registry) entry(name string) (*entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[name]
	if !ok {
		return nil, &UnknownDatasetError{Name: name, Available: r.namesLocked()}
	}
	return e, nil
}

// cached returns the stored result and whether there is one.
func (r *Registry) cached(e *entry) (*core.Dataset, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return e.dataset, e.loaded, e.err
}

func (r *Registry) load(ctx context.Context, name string, e *entry) (*core.Dataset, error) {
	r.mu.Lock()
	e.gen++
	gen := e.gen
	r.mu.Unlock()

	start := time.Now()
	ds, err := e.loader.Load(ctx)
	took := time.Since(start)

	r.mu.Lock()
	latest := e.gen == gen
	if latest {
		e.loaded = true
		e.dataset, e.err = ds, err
	}
	r.mu.Unlock()

	if err != nil {
		r.logger.Error("dataset load failed", "dataset", name, "error", err)
	} else {
		r.logger.Info("dataset loaded", "dataset", name, "rows", ds.Len(), "took", took, "superseded", !latest)
	}
	if r.OnLoad != nil {
		r.OnLoad(name, took, err)
	}
	return ds, err
}
