package pages

import (
	"context"
	"encoding/json"
	"io"
	"strings"

	"github.com/a-h/templ"

	"github.com/leapstack-labs/chartlink/internal/chart"
	"github.com/leapstack-labs/chartlink/internal/dashboard"
	"github.com/leapstack-labs/chartlink/internal/ui/features/common"
)

// DashboardID is the element id of the dashboard region.
const DashboardID = "dashboard"

// PageContent renders a page body: narrative, dashboard (or the error that
// prevented building it) and the hosted demo.
func PageContent(p dashboard.Page, d dashboard.Dashboard, loadErr error) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := common.NewWriter(w)
		h.Raw(`<main id="content" class="page"`)
		if p.Interactive() {
			signals := map[string]any{SignalChartEvent: nil}
			if d != nil {
				for name, v := range d.Session().Inputs() {
					signals[name] = v
				}
			}
			payload, err := json.Marshal(signals)
			if err != nil {
				return err
			}
			h.Raw(` data-signals="`).Text(string(payload)).Raw(`"`)
			h.Raw(` data-init="@get('/`).Text(p.Slug).Raw(`/updates')"`)
		}
		h.Raw(`><h1>`).Text(p.Title).Raw(`</h1>`)
		h.Raw(`<section class="narrative">`).Render(ctx, templ.Raw(p.Narrative)).Raw(`</section>`)

		if p.Interactive() {
			if loadErr != nil {
				h.Render(ctx, common.ErrorPanel(DashboardID, loadFailedTitle(p), loadErr))
			} else {
				h.Render(ctx, DashboardView(p, d))
			}
			h.Raw(`<button type="button" class="reload" data-on:click="@post('/`).Text(p.Slug).Raw(`/reload')">Reload data</button>`)
		}

		h.Render(ctx, common.DemoFrame(p.DemoURL))
		h.Raw(`</main>`)
		return h.Err()
	})
}

// DashboardView renders the dashboard region: status line, selectors and
// every output panel in page order.
func DashboardView(p dashboard.Page, d dashboard.Dashboard) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := common.NewWriter(w)
		h.Raw(`<div id="` + DashboardID + `" class="dashboard">`)
		h.Render(ctx, common.Status(common.StatusEmpty, "Interact with a chart to update the others."))

		if sels := d.Selectors(); len(sels) > 0 {
			h.Raw(`<form class="selectors" data-on:change="@post('/`).Text(p.Slug).Raw(`/inputs')">`)
			for _, sel := range sels {
				current := d.Session().Input(sel.Signal)
				h.Raw(`<label>`).Text(sel.Label).Raw(` <select data-bind="`).Text(sel.Signal).Raw(`">`)
				for _, o := range sel.Options {
					h.Raw(`<option value="`).Text(o).Raw(`"`)
					if o == current {
						h.Raw(` selected`)
					}
					h.Raw(`>`).Text(optionLabel(o)).Raw(`</option>`)
				}
				h.Raw(`</select></label>`)
			}
			h.Raw(`</form>`)
		}

		h.Raw(`<div class="panels">`)
		for _, name := range d.Outputs() {
			h.Render(ctx, d.Panel(name))
		}
		h.Raw(`</div></div>`)
		return h.Err()
	})
}

// optionLabel title-cases field names and leaves other values alone.
func optionLabel(o string) string {
	if strings.Contains(o, "_") {
		return chart.Label(o)
	}
	return o
}
