package datasets

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/go-chi/chi/v5"
	"github.com/starfederation/datastar-go/datastar"

	"github.com/leapstack-labs/chartlink/internal/chart"
	"github.com/leapstack-labs/chartlink/internal/coupling"
	"github.com/leapstack-labs/chartlink/internal/dataset"
	"github.com/leapstack-labs/chartlink/internal/ui/features/common"
	"github.com/leapstack-labs/chartlink/pkg/core"
)

// Handlers provides HTTP handlers for the dataset browser.
type Handlers struct {
	registry *dataset.Registry
	logger   *slog.Logger
	isDev    bool
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(registry *dataset.Registry, logger *slog.Logger, isDev bool) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{registry: registry, logger: logger, isDev: isDev}
}

// Index lists every registered dataset without loading any.
func (h *Handlers) Index(w http.ResponseWriter, r *http.Request) {
	data := common.PageData{
		Title: "Datasets",
		Nav:   common.BuildNav("/datasets"),
		IsDev: h.isDev,
	}
	if err := common.Layout(data, IndexContent(h.summaries())).Render(r.Context(), w); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// Detail renders the schema and first rows of one dataset, loading it on
// first use.
func (h *Handlers) Detail(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	ds, err := h.registry.Get(r.Context(), name)

	var unknown *dataset.UnknownDatasetError
	if errors.As(err, &unknown) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	data := common.PageData{
		Title: name,
		Nav:   common.BuildNav("/datasets"),
		IsDev: h.isDev,
	}
	body := common.ErrorPanel("dataset", "Failed to load "+name, err)
	if err == nil {
		body = DetailContent(name, ds, columns(ds), groupable(ds))
	} else {
		h.logger.Warn("dataset failed to load", "dataset", name, "error", err)
	}
	if err := common.Layout(data, body).Render(r.Context(), w); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// ViewSSE groups the dataset by the posted field and patches the resulting
// derived view, with the mean of every other numeric field.
func (h *Handlers) ViewSSE(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	// Read signals BEFORE creating SSE (SSE consumes the request body)
	var signals Signals
	if err := datastar.ReadSignals(r, &signals); err != nil {
		sse := datastar.NewSSE(w, r)
		_ = sse.PatchElementTempl(common.Status(common.StatusError, "Failed to read signals: "+err.Error()))
		return
	}

	ds, err := h.registry.Get(r.Context(), name)
	sse := datastar.NewSSE(w, r)
	if err != nil {
		_ = sse.PatchElementTempl(common.ErrorPanel(ViewID, "Failed to load "+name, err))
		return
	}
	if signals.GroupBy == "" {
		_ = sse.PatchElementTempl(chart.Placeholder(ViewID, "Pick a field to group by."))
		return
	}

	var aggs []coupling.Aggregate
	for _, f := range ds.Schema.NamesOfKind(core.KindNumber) {
		if f != signals.GroupBy {
			aggs = append(aggs, coupling.Aggregate{Op: coupling.OpMean, Field: f})
		}
	}
	view, err := coupling.Build(ds.All(), []string{signals.GroupBy}, aggs...)
	if err != nil {
		_ = sse.PatchElementTempl(common.ErrorPanel(ViewID, "Cannot group "+name, err))
		return
	}

	h.logger.Debug("dataset grouped", "dataset", name, "field", signals.GroupBy, "groups", len(view.Groups))
	if err := sse.PatchElementTempl(chart.Table(ViewID, chart.ViewTable(view))); err != nil {
		_ = sse.ConsoleError(err)
		return
	}
	_ = sse.PatchElementTempl(common.Status(common.StatusOK,
		fmt.Sprintf("%d groups by %s.", len(view.Groups), chart.Label(signals.GroupBy))))
}

func (h *Handlers) summaries() []Summary {
	statuses := h.registry.Statuses()
	out := make([]Summary, 0, len(statuses))
	for _, st := range statuses {
		s := Summary{Name: st.Name, Rows: "-", Fields: "-", LoadedAt: "not loaded", Watched: st.Watch}
		switch {
		case st.Err != nil:
			s.Error = st.Err.Error()
			s.LoadedAt = "failed"
		case st.Loaded:
			s.Rows = humanize.Comma(int64(st.Rows))
			s.LoadedAt = humanize.Time(st.LoadedAt)
		}
		out = append(out, s)
	}
	return out
}

func columns(ds *core.Dataset) []Column {
	if ds == nil {
		return nil
	}
	fields := ds.Schema.Fields()
	out := make([]Column, len(fields))
	for i, f := range fields {
		out[i] = Column{Name: f.Name, Label: chart.Label(f.Name), Kind: string(f.Kind)}
	}
	return out
}

// groupable lists the fields worth grouping by: strings and times, and
// numbers with few distinct values.
func groupable(ds *core.Dataset) []string {
	if ds == nil {
		return nil
	}
	var out []string
	for _, f := range ds.Schema.Fields() {
		if f.Kind != core.KindNumber || distinct(ds, f.Name) <= maxNumericGroups {
			out = append(out, f.Name)
		}
	}
	return out
}

const maxNumericGroups = 12

func distinct(ds *core.Dataset, field string) int {
	seen := make(map[string]struct{})
	for _, rec := range ds.Records {
		seen[rec.String(field)] = struct{}{}
		if len(seen) > maxNumericGroups {
			break
		}
	}
	return len(seen)
}

func rowCount(ds *core.Dataset) string {
	if ds.Len() > PreviewRows {
		return "first " + strconv.Itoa(PreviewRows) + " of " + humanize.Comma(int64(ds.Len())) + " rows"
	}
	return humanize.Comma(int64(ds.Len())) + " rows"
}
