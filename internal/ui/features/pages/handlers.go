package pages

import (
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/starfederation/datastar-go/datastar"

	"github.com/leapstack-labs/chartlink/internal/coupling"
	"github.com/leapstack-labs/chartlink/internal/dashboard"
	"github.com/leapstack-labs/chartlink/internal/dataset"
	"github.com/leapstack-labs/chartlink/internal/ui/features/common"
	"github.com/leapstack-labs/chartlink/internal/ui/metrics"
	"github.com/leapstack-labs/chartlink/internal/ui/notifier"
	"github.com/leapstack-labs/chartlink/internal/ui/session"
	"github.com/leapstack-labs/chartlink/pkg/core"
)

// Handlers provides HTTP handlers for narrative pages and dashboards.
type Handlers struct {
	registry *dataset.Registry
	store    *session.Store
	notifier *notifier.Notifier
	metrics  *metrics.Metrics
	logger   *slog.Logger
	isDev    bool
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(
	registry *dataset.Registry,
	store *session.Store,
	notify *notifier.Notifier,
	m *metrics.Metrics,
	logger *slog.Logger,
	isDev bool,
) *Handlers {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if m == nil {
		m = metrics.New()
	}
	return &Handlers{
		registry: registry,
		store:    store,
		notifier: notify,
		metrics:  m,
		logger:   logger,
		isDev:    isDev,
	}
}

// lookup resolves the page in the URL, writing a 404 when it is unknown or,
// with interactive set, when it has no dashboard.
func (h *Handlers) lookup(w http.ResponseWriter, r *http.Request, interactive bool) (dashboard.Page, bool) {
	p, ok := dashboard.Lookup(chi.URLParam(r, "slug"))
	if !ok || (interactive && !p.Interactive()) {
		http.NotFound(w, r)
		return dashboard.Page{}, false
	}
	return p, true
}

// Page renders a page. Interactive pages are rendered with the session's
// dashboard fully computed, or with an error panel when its dataset
// cannot be loaded.
func (h *Handlers) Page(w http.ResponseWriter, r *http.Request) {
	p, ok := h.lookup(w, r, false)
	if !ok {
		return
	}

	var d dashboard.Dashboard
	var err error
	if p.Interactive() {
		d, err = h.store.Dashboard(r.Context(), w, r, p)
		if err != nil {
			h.logger.Error("dashboard unavailable", "page", p.Slug, "error", err)
		}
	}

	data := common.PageData{
		Title: p.Title,
		Nav:   common.BuildNav("/" + p.Slug),
		IsDev: h.isDev,
	}
	if err := common.Layout(data, PageContent(p, d, err)).Render(r.Context(), w); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// PageUpdates is the long-lived SSE endpoint of a dashboard page. When the
// page's dataset is reloaded it pushes the whole dashboard again.
func (h *Handlers) PageUpdates(w http.ResponseWriter, r *http.Request) {
	p, ok := h.lookup(w, r, true)
	if !ok {
		return
	}
	id, err := h.store.ID(w, r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	sse := datastar.NewSSE(w, r)

	updates := h.notifier.Subscribe(p.Dataset)
	defer h.notifier.Unsubscribe(updates)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-updates:
			d, err := h.store.DashboardFor(ctx, id, p)
			if err != nil {
				_ = sse.PatchElementTempl(common.ErrorPanel(DashboardID, loadFailedTitle(p), err))
				continue
			}
			if err := sse.PatchElementTempl(DashboardView(p, d)); err != nil {
				_ = sse.ConsoleError(err)
			}
		}
	}
}

// EventSSE dispatches a chart event posted by the browser and patches the
// outputs it changed.
func (h *Handlers) EventSSE(w http.ResponseWriter, r *http.Request) {
	p, ok := h.lookup(w, r, true)
	if !ok {
		return
	}

	// Read signals BEFORE creating SSE (SSE consumes the request body)
	var signals Signals
	if err := datastar.ReadSignals(r, &signals); err != nil {
		sse := datastar.NewSSE(w, r)
		_ = sse.PatchElementTempl(common.Status(common.StatusError, "Failed to read signals: "+err.Error()))
		return
	}

	d, err := h.store.Dashboard(r.Context(), w, r, p)
	sse := datastar.NewSSE(w, r)
	if err != nil {
		_ = sse.PatchElementTempl(common.ErrorPanel(DashboardID, loadFailedTitle(p), err))
		return
	}

	ev, err := signals.ChartEvent()
	if err != nil {
		h.logger.Warn("chart event rejected", "page", p.Slug, "error", err)
		_ = sse.PatchElementTempl(common.Status(common.StatusError, err.Error()))
		return
	}

	var results []coupling.Result
	if ev != nil {
		results = d.Session().Dispatch(r.Context(), coupling.Trigger{Event: ev})
	}
	h.metrics.ObserveEvent(p.Slug, ev, results)

	if err := coupling.FirstError(results); err != nil {
		if core.IsContractViolation(err) {
			h.logger.Warn("chart event rejected", "page", p.Slug, "event", ev.String(), "error", err)
		} else {
			h.logger.Error("chart event failed", "page", p.Slug, "event", ev.String(), "error", err)
		}
	}
	h.patch(sse, d, results, ev.Empty())
}

// InputSSE applies selector changes posted by the browser.
func (h *Handlers) InputSSE(w http.ResponseWriter, r *http.Request) {
	p, ok := h.lookup(w, r, true)
	if !ok {
		return
	}

	var signals Signals
	if err := datastar.ReadSignals(r, &signals); err != nil {
		sse := datastar.NewSSE(w, r)
		_ = sse.PatchElementTempl(common.Status(common.StatusError, "Failed to read signals: "+err.Error()))
		return
	}

	d, err := h.store.Dashboard(r.Context(), w, r, p)
	sse := datastar.NewSSE(w, r)
	if err != nil {
		_ = sse.PatchElementTempl(common.ErrorPanel(DashboardID, loadFailedTitle(p), err))
		return
	}

	var results []coupling.Result
	for _, sel := range d.Selectors() {
		v, ok := signals.String(sel.Signal)
		if !ok {
			continue
		}
		if !slices.Contains(sel.Options, v) {
			_ = sse.PatchElementTempl(common.Status(common.StatusError,
				fmt.Sprintf("Unknown %s %q", strings.ToLower(sel.Label), v)))
			return
		}
		results = append(results, d.Session().SetInput(r.Context(), sel.Signal, v)...)
	}
	if err := coupling.FirstError(results); err != nil {
		h.logger.Error("input update failed", "page", p.Slug, "error", err)
	}
	h.patch(sse, d, results, false)
}

// ReloadSSE reloads the page's dataset, pushes it into every open
// dashboard built on it and notifies the other listeners.
func (h *Handlers) ReloadSSE(w http.ResponseWriter, r *http.Request) {
	p, ok := h.lookup(w, r, true)
	if !ok {
		return
	}
	ctx := r.Context()

	ds, err := h.registry.Reload(ctx, p.Dataset)
	if err != nil {
		h.store.Drop(p.Dataset)
		h.notifier.Broadcast(p.Dataset)
		sse := datastar.NewSSE(w, r)
		_ = sse.PatchElementTempl(common.ErrorPanel(DashboardID, loadFailedTitle(p), err))
		return
	}

	resetErr := h.store.Reset(ctx, p.Dataset, ds)
	d, err := h.store.Dashboard(ctx, w, r, p)
	h.notifier.Broadcast(p.Dataset)

	sse := datastar.NewSSE(w, r)
	if err != nil {
		_ = sse.PatchElementTempl(common.ErrorPanel(DashboardID, loadFailedTitle(p), err))
		return
	}
	_ = sse.PatchElementTempl(DashboardView(p, d))
	if resetErr != nil {
		_ = sse.PatchElementTempl(common.Status(common.StatusError, "Reload failed: "+resetErr.Error()))
		return
	}
	_ = sse.PatchElementTempl(common.Status(common.StatusOK, fmt.Sprintf("Reloaded %d rows.", ds.Len())))
}

// patch sends the outputs named in results and the status line.
func (h *Handlers) patch(sse *datastar.ServerSentEventGenerator, d dashboard.Dashboard, results []coupling.Result, noSelection bool) {
	for _, name := range coupling.Rendered(results) {
		if err := sse.PatchElementTempl(d.Panel(name)); err != nil {
			_ = sse.ConsoleError(err)
		}
	}
	kind, msg := Describe(results, noSelection)
	_ = sse.PatchElementTempl(common.Status(kind, msg))
}

// Describe summarises a dispatch for the status area. A rejected event is
// reported distinctly from an empty selection.
func Describe(results []coupling.Result, noSelection bool) (common.StatusKind, string) {
	if err := coupling.FirstError(results); err != nil {
		if core.IsContractViolation(err) {
			return common.StatusError, "Event rejected: " + err.Error()
		}
		return common.StatusError, "Update failed: " + err.Error()
	}
	if noSelection {
		return common.StatusEmpty, "No selection."
	}
	var updated []string
	for _, r := range results {
		if r.Outcome == coupling.OutcomeRendered {
			updated = append(updated, r.Output)
		}
	}
	if len(updated) == 0 {
		return common.StatusEmpty, "Nothing to update."
	}
	return common.StatusOK, "Updated " + strings.Join(updated, ", ") + "."
}

func loadFailedTitle(p dashboard.Page) string {
	return "Could not load dataset " + p.Dataset
}
