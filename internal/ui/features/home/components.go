package home

import (
	"context"
	"io"

	"github.com/a-h/templ"

	"github.com/leapstack-labs/chartlink/internal/dashboard"
	"github.com/leapstack-labs/chartlink/internal/ui/features/common"
)

// HomeContent renders the landing page body.
func HomeContent(pages []dashboard.Page, datasets []DatasetRow) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := common.NewWriter(w)
		h.Raw(`<main id="content" class="home" data-init="@get('/updates')">`)
		h.Raw(`<h1>chartlink</h1><p>Dashboards where an interaction on one chart drives the data shown in another.</p>`)
		h.Raw(`<ul class="pages">`)
		for _, p := range pages {
			h.Raw(`<li><a href="/`).Text(p.Slug).Raw(`">`).Text(p.Title).Raw(`</a>`)
			if p.Summary != "" {
				h.Raw(`<p>`).Text(p.Summary).Raw(`</p>`)
			}
			h.Raw(`</li>`)
		}
		h.Raw(`</ul><h2>Datasets</h2>`)
		h.Render(ctx, DatasetTable(datasets))
		h.Raw(`</main>`)
		return h.Err()
	})
}

// DatasetTable renders the dataset status table.
func DatasetTable(rows []DatasetRow) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		h := common.NewWriter(w)
		h.Raw(`<table id="datasets" class="datasets"><thead><tr>`)
		h.Raw(`<th>Dataset</th><th>Rows</th><th>Loaded</th><th>Watching</th></tr></thead><tbody>`)
		for _, r := range rows {
			h.Raw(`<tr><td>`).Text(r.Name).Raw(`</td><td>`).Text(r.Rows).Raw(`</td><td>`).Text(r.LoadedAt)
			if r.Error != "" {
				h.Raw(`<div class="error">`).Text(r.Error).Raw(`</div>`)
			}
			h.Raw(`</td><td>`).Text(r.Watched).Raw(`</td></tr>`)
		}
		h.Raw(`</tbody></table>`)
		return h.Err()
	})
}
