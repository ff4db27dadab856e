// Package dashboard defines the pages chartlink serves and the interactive
// dashboards behind some of them. Dashboard implementations register a Page
// from their init() functions.
package dashboard

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/a-h/templ"

	"github.com/leapstack-labs/chartlink/internal/coupling"
	"github.com/leapstack-labs/chartlink/pkg/core"
)

// Selector is a dropdown bound to a session input.
type Selector struct {
	Signal  string
	Label   string
	Options []string
}

// Dashboard is one interactive page bound to a single browser session.
type Dashboard interface {
	// Session returns the reactive session driving the outputs.
	Session() *coupling.Session
	// Selectors lists the dropdowns in page order.
	Selectors() []Selector
	// Outputs lists the output names in page order. Each name is also the
	// element id its panel renders with.
	Outputs() []string
	// Panel renders the current value of an output, or a placeholder.
	Panel(name string) templ.Component
	// Summary describes the current value of an output as plain text.
	Summary(name string) string
	// Reset swaps in a freshly loaded dataset and recomputes every output.
	Reset(ctx context.Context, ds *core.Dataset) []coupling.Result
}

// Options configures a new dashboard.
type Options struct {
	// PostURL receives chart events from the browser.
	PostURL string
	Logger  *slog.Logger
	// OnTransition, when set, observes output state changes.
	OnTransition func(output string, from, to coupling.State)
}

// Factory builds a dashboard over a loaded dataset. The returned dashboard
// has computed its initial outputs.
type Factory func(ctx context.Context, ds *core.Dataset, opts Options) (Dashboard, error)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Page)
)

// Register adds a page to the registry.
// Called by dashboard implementations in their init() functions.
func Register(p Page) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[p.Slug] = p
}

// Lookup returns the page registered under slug.
func Lookup(slug string) (Page, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	p, ok := registry[slug]
	return p, ok
}

// Pages returns every registered page in display order.
func Pages() []Page {
	registryMu.RLock()
	defer registryMu.RUnlock()
	pages := make([]Page, 0, len(registry))
	for _, p := range registry {
		pages = append(pages, p)
	}
	sort.Slice(pages, func(i, j int) bool {
		if pages[i].Order != pages[j].Order {
			return pages[i].Order < pages[j].Order
		}
		return pages[i].Slug < pages[j].Slug
	})
	return pages
}

// UnknownPageError is returned when a page slug is not registered.
type UnknownPageError struct {
	Slug      string
	Available []string
}

func (e *UnknownPageError) Error() string {
	return fmt.Sprintf("unknown page %q (available: %v)", e.Slug, e.Available)
}

// Get returns the page registered under slug or an *UnknownPageError.
func Get(slug string) (Page, error) {
	if p, ok := Lookup(slug); ok {
		return p, nil
	}
	var available []string
	for _, p := range Pages() {
		available = append(available, p.Slug)
	}
	return Page{}, &UnknownPageError{Slug: slug, Available: available}
}

// Empty is the summary of an output with no value.
const Empty = "(empty)"

// ViewSummary lists the groups of a derived view with their counts.
func ViewSummary(view core.DerivedView) string {
	if view.Empty() {
		return Empty
	}
	parts := make([]string, len(view.Groups))
	for i, g := range view.Groups {
		parts[i] = fmt.Sprintf("%s: %d", g.Label(), g.Count)
	}
	return strings.Join(parts, ", ")
}

// Inputs resolves a selector's initial value: the preferred option when
// present, the fallback index otherwise.
func Inputs(options []string, preferred string, fallback int) string {
	for _, o := range options {
		if o == preferred {
			return o
		}
	}
	if len(options) == 0 {
		return ""
	}
	if fallback >= len(options) {
		fallback = len(options) - 1
	}
	return options[fallback]
}
