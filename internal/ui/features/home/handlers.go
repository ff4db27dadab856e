package home

import (
	"net/http"

	"github.com/dustin/go-humanize"
	"github.com/starfederation/datastar-go/datastar"

	"github.com/leapstack-labs/chartlink/internal/dashboard"
	"github.com/leapstack-labs/chartlink/internal/dataset"
	"github.com/leapstack-labs/chartlink/internal/ui/features/common"
	"github.com/leapstack-labs/chartlink/internal/ui/notifier"
)

// Handlers provides HTTP handlers for the home feature.
type Handlers struct {
	registry *dataset.Registry
	notifier *notifier.Notifier
	isDev    bool
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(registry *dataset.Registry, notify *notifier.Notifier, isDev bool) *Handlers {
	return &Handlers{
		registry: registry,
		notifier: notify,
		isDev:    isDev,
	}
}

// HomePage renders the page list and dataset status.
func (h *Handlers) HomePage(w http.ResponseWriter, r *http.Request) {
	data := common.PageData{
		Title: "Home",
		Nav:   common.BuildNav("/"),
		IsDev: h.isDev,
	}
	body := HomeContent(dashboard.Pages(), h.datasetRows())
	if err := common.Layout(data, body).Render(r.Context(), w); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// HomePageUpdates is the long-lived SSE endpoint for the home page. It
// pushes the dataset table whenever any dataset is reloaded. The initial
// state is rendered by HomePage.
func (h *Handlers) HomePageUpdates(w http.ResponseWriter, r *http.Request) {
	sse := datastar.NewSSE(w, r)

	updates := h.notifier.Subscribe("")
	defer h.notifier.Unsubscribe(updates)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-updates:
			if err := sse.PatchElementTempl(DatasetTable(h.datasetRows())); err != nil {
				_ = sse.ConsoleError(err)
			}
		}
	}
}

func (h *Handlers) datasetRows() []DatasetRow {
	statuses := h.registry.Statuses()
	rows := make([]DatasetRow, 0, len(statuses))
	for _, st := range statuses {
		row := DatasetRow{Name: st.Name, Watched: st.Watch, Rows: "-", LoadedAt: "not loaded"}
		switch {
		case st.Err != nil:
			row.Error = st.Err.Error()
			row.LoadedAt = "failed"
		case st.Loaded:
			row.Rows = humanize.Comma(int64(st.Rows))
			row.LoadedAt = humanize.Time(st.LoadedAt)
		}
		rows = append(rows, row)
	}
	return rows
}
