package chart

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/a-h/templ"
	"github.com/dustin/go-humanize"

	"github.com/leapstack-labs/chartlink/pkg/core"
)

// Component renders a figure as a chart container. The browser script reads
// data-figure, draws it, and for charts with a source dispatches a
// "chartlink" DOM event that posts the payload to PostURL.
func Component(fig Figure) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		payload, err := json.Marshal(fig)
		if err != nil {
			return fmt.Errorf("chart %s: %w", fig.ID, err)
		}

		var b strings.Builder
		b.WriteString(`<div id="`)
		b.WriteString(templ.EscapeString(fig.ID))
		b.WriteString(`" class="chart" data-figure="`)
		b.WriteString(templ.EscapeString(string(payload)))
		b.WriteString(`"`)
		if fig.Source != "" {
			kinds := make([]string, len(fig.Events))
			for i, k := range fig.Events {
				kinds[i] = string(k)
			}
			b.WriteString(` data-source="`)
			b.WriteString(templ.EscapeString(fig.Source))
			b.WriteString(`" data-events="`)
			b.WriteString(templ.EscapeString(strings.Join(kinds, " ")))
			b.WriteString(`"`)
			if fig.PostURL != "" {
				b.WriteString(` data-on:chartlink="$chartEvent = evt.detail; @post('`)
				b.WriteString(templ.EscapeString(fig.PostURL))
				b.WriteString(`')"`)
			}
		}
		b.WriteString(`></div>`)

		_, err = io.WriteString(w, b.String())
		return err
	})
}

// Placeholder renders an empty chart slot with a message.
func Placeholder(id, message string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, `<div id="%s" class="chart chart-placeholder"><p>%s</p></div>`,
			templ.EscapeString(id), templ.EscapeString(message))
		return err
	})
}

// Failure renders a chart slot showing an error.
func Failure(id string, err error) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, werr := fmt.Fprintf(w, `<div id="%s" class="chart chart-error" role="alert"><p>%s</p></div>`,
			templ.EscapeString(id), templ.EscapeString(err.Error()))
		return werr
	})
}

// TableData is a rendered table.
type TableData struct {
	Columns []string
	Rows    [][]string
}

// ViewTable tabulates a derived view: group fields, count, then aggregates.
func ViewTable(view core.DerivedView) TableData {
	t := TableData{}
	for _, f := range view.GroupFields {
		t.Columns = append(t.Columns, Label(f))
	}
	t.Columns = append(t.Columns, "Count")
	for _, a := range view.Aggregates {
		t.Columns = append(t.Columns, Label(a))
	}

	for _, g := range view.Groups {
		row := make([]string, 0, len(t.Columns))
		for _, v := range g.Key {
			row = append(row, core.FormatValue(v))
		}
		row = append(row, humanize.Comma(int64(g.Count)))
		for _, a := range view.Aggregates {
			row = append(row, FormatNumber(g.Values[a]))
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// RowTable tabulates up to limit rows (all when limit is 0), leading with
// each row's index in the dataset.
func RowTable(schema *core.Schema, rows core.RowSubset, limit int) TableData {
	names := schema.Names()
	t := TableData{Columns: append([]string{"#"}, names...)}
	for i, r := range rows.Rows {
		if limit > 0 && i >= limit {
			break
		}
		row := make([]string, 0, len(t.Columns))
		row = append(row, strconv.Itoa(rows.Indices[i]))
		for _, n := range names {
			row = append(row, r.String(n))
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// FormatNumber formats an aggregate for display.
func FormatNumber(f float64) string {
	if math.IsNaN(f) {
		return "–"
	}
	return humanize.Commaf(math.Round(f*100) / 100)
}

// Table renders t as an HTML table inside a container with id.
func Table(id string, t TableData) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		var b strings.Builder
		fmt.Fprintf(&b, `<div id="%s" class="chart chart-table"><table><thead><tr>`, templ.EscapeString(id))
		for _, c := range t.Columns {
			b.WriteString("<th>" + templ.EscapeString(c) + "</th>")
		}
		b.WriteString("</tr></thead><tbody>")
		for _, r := range t.Rows {
			b.WriteString("<tr>")
			for _, cell := range r {
				b.WriteString("<td>" + templ.EscapeString(cell) + "</td>")
			}
			b.WriteString("</tr>")
		}
		b.WriteString("</tbody></table></div>")

		_, err := io.WriteString(w, b.String())
		return err
	})
}
