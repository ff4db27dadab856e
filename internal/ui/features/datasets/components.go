package datasets

import (
	"context"
	"io"

	"github.com/a-h/templ"

	"github.com/leapstack-labs/chartlink/internal/chart"
	"github.com/leapstack-labs/chartlink/internal/ui/features/common"
	"github.com/leapstack-labs/chartlink/pkg/core"
)

// IndexContent renders the dataset index.
func IndexContent(rows []Summary) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		h := common.NewWriter(w)
		h.Raw(`<main id="content" class="datasets"><h1>Datasets</h1>`)
		h.Raw(`<table id="dataset-index"><thead><tr>`)
		h.Raw(`<th>Dataset</th><th>Rows</th><th>Loaded</th><th>Watching</th></tr></thead><tbody>`)
		for _, r := range rows {
			h.Raw(`<tr><td><a href="/datasets/`).Text(r.Name).Raw(`">`).Text(r.Name).Raw(`</a></td>`)
			h.Raw(`<td>`).Text(r.Rows).Raw(`</td><td>`).Text(r.LoadedAt)
			if r.Error != "" {
				h.Raw(`<div class="error">`).Text(r.Error).Raw(`</div>`)
			}
			h.Raw(`</td><td>`).Text(r.Watched).Raw(`</td></tr>`)
		}
		h.Raw(`</tbody></table></main>`)
		return h.Err()
	})
}

// DetailContent renders one dataset: its schema, a grouping form and the
// first rows.
func DetailContent(name string, ds *core.Dataset, cols []Column, groupBy []string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := common.NewWriter(w)
		h.Raw(`<main id="content" class="dataset" data-signals="{groupBy: ''}">`)
		h.Raw(`<h1>`).Text(name).Raw(`</h1>`)

		h.Raw(`<section class="schema"><h2>Schema</h2><table id="dataset-schema"><thead><tr>`)
		h.Raw(`<th>Field</th><th>Label</th><th>Kind</th></tr></thead><tbody>`)
		for _, c := range cols {
			h.Raw(`<tr><td><code>`).Text(c.Name).Raw(`</code></td><td>`).Text(c.Label)
			h.Raw(`</td><td>`).Text(c.Kind).Raw(`</td></tr>`)
		}
		h.Raw(`</tbody></table></section>`)

		h.Raw(`<section class="grouping"><h2>Group</h2>`)
		h.Raw(`<form data-on:change="@post('/datasets/`).Text(name).Raw(`/view')">`)
		h.Raw(`<label>Group by <select data-bind="groupBy"><option value="">-</option>`)
		for _, f := range groupBy {
			h.Raw(`<option value="`).Text(f).Raw(`">`).Text(chart.Label(f)).Raw(`</option>`)
		}
		h.Raw(`</select></label></form>`)
		h.Render(ctx, common.Status(common.StatusEmpty, ""))
		h.Render(ctx, chart.Placeholder(ViewID, "Pick a field to group by."))
		h.Raw(`</section>`)

		h.Raw(`<section class="preview"><h2>Rows</h2><p>`).Text(rowCount(ds)).Raw(`</p>`)
		h.Render(ctx, chart.Table("dataset-rows", chart.RowTable(ds.Schema, ds.All(), PreviewRows)))
		h.Raw(`</section></main>`)
		return h.Err()
	})
}
