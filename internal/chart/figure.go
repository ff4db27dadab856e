// Package chart builds chart figures from datasets and derived views and
// renders them as HTML components. A figure is a plain description (traces
// plus layout) serialized to JSON; the browser draws it and forwards user
// interactions tagged with the figure's source.
package chart

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/leapstack-labs/chartlink/pkg/core"
)

// Figure is one renderable chart.
type Figure struct {
	ID string `json:"-"`
	// Source tags the events this chart emits. Empty means the chart emits
	// nothing.
	Source string `json:"-"`
	// Events lists the interactions forwarded to the server.
	Events []core.EventKind `json:"-"`
	// PostURL receives the forwarded events.
	PostURL string `json:"-"`

	Data   []Trace `json:"data"`
	Layout Layout  `json:"layout"`
}

// Summary describes the figure in one line: its title and the number of
// points in every trace.
func (f Figure) Summary() string {
	parts := make([]string, 0, len(f.Data))
	for i, t := range f.Data {
		name := t.Name
		if name == "" {
			name = fmt.Sprintf("trace %d", i)
		}
		n := len(t.Y)
		if n == 0 {
			n = len(t.X)
		}
		parts = append(parts, fmt.Sprintf("%s %d", name, n))
	}
	summary := strings.Join(parts, ", ")
	if f.Layout.Title != "" {
		summary = f.Layout.Title + ": " + summary
	}
	return summary
}

// Trace is one data series.
type Trace struct {
	Type       string  `json:"type"`
	Name       string  `json:"name,omitempty"`
	Mode       string  `json:"mode,omitempty"`
	X          []any   `json:"x,omitempty"`
	Y          []any   `json:"y,omitempty"`
	CustomData []any   `json:"customdata,omitempty"`
	Marker     *Marker `json:"marker,omitempty"`
	BoxPoints  string  `json:"boxpoints,omitempty"`
	BoxMean    bool    `json:"boxmean,omitempty"`
}

// Marker styles trace points.
type Marker struct {
	Color   any     `json:"color,omitempty"`
	Size    int     `json:"size,omitempty"`
	Opacity float64 `json:"opacity,omitempty"`
}

// Layout holds figure-wide options.
type Layout struct {
	Title      string `json:"title,omitempty"`
	XAxis      Axis   `json:"xaxis"`
	YAxis      Axis   `json:"yaxis"`
	DragMode   string `json:"dragmode,omitempty"`
	HoverMode  string `json:"hovermode,omitempty"`
	ShowLegend bool   `json:"showlegend"`
	Height     int    `json:"height,omitempty"`
}

// Axis describes one axis.
type Axis struct {
	Title string `json:"title,omitempty"`
	Type  string `json:"type,omitempty"`
}

// Series is a named subset of rows drawn as one trace.
type Series struct {
	Name string
	Rows core.RowSubset
}

// Palette colors traces in declaration order.
var Palette = []string{"#d62728", "#1f77b4", "#2ca02c", "#ff7f0e", "#9467bd", "#8c564b"}

func color(i int) string {
	return Palette[i%len(Palette)]
}

var titler = cases.Title(language.English)

// Label turns a field name such as "radius_mean" into "Radius Mean".
func Label(field string) string {
	return titler.String(strings.ReplaceAll(field, "_", " "))
}

func column(rows core.RowSubset, field string) []any {
	out := make([]any, len(rows.Rows))
	for i, r := range rows.Rows {
		v, _ := r.Value(field)
		out[i] = jsonValue(v)
	}
	return out
}

// jsonValue converts values the browser cannot plot natively.
func jsonValue(v any) any {
	switch v.(type) {
	case nil, float64, int64, int, string:
		return v
	}
	return core.FormatValue(v)
}

// Scatter draws one marker trace per series, in series order. Point i of
// trace t is row i of series t, matching how events index points.
func Scatter(id, source string, series []Series, xField, yField string) Figure {
	fig := Figure{
		ID:     id,
		Source: source,
		Events: []core.EventKind{core.EventSelected},
		Layout: Layout{
			XAxis:      Axis{Title: Label(xField)},
			YAxis:      Axis{Title: Label(yField)},
			DragMode:   "lasso",
			ShowLegend: true,
		},
	}
	for i, s := range series {
		fig.Data = append(fig.Data, Trace{
			Type:       "scatter",
			Mode:       "markers",
			Name:       s.Name,
			X:          column(s.Rows, xField),
			Y:          column(s.Rows, yField),
			CustomData: indices(s.Rows),
			Marker:     &Marker{Color: color(i), Size: 8, Opacity: 0.8},
		})
	}
	return fig
}

// Lines draws one line trace per series.
func Lines(id, source string, series []Series, xField, yField string) Figure {
	fig := Scatter(id, source, series, xField, yField)
	fig.Events = []core.EventKind{core.EventSelected, core.EventHovered}
	fig.Layout.DragMode = "select"
	fig.Layout.HoverMode = "closest"
	fig.Layout.XAxis.Type = "date"
	for i := range fig.Data {
		fig.Data[i].Mode = "lines+markers"
		fig.Data[i].Marker.Size = 5
	}
	return fig
}

// Bar draws one bar per group of view, in display order. value selects an
// aggregate; empty means the group count.
func Bar(id, source string, view core.DerivedView, value string) Figure {
	tr := Trace{Type: "bar", Marker: &Marker{}}
	colors := make([]any, 0, len(view.Groups))
	for i, g := range view.Groups {
		tr.X = append(tr.X, g.Label())
		if value == "" {
			tr.Y = append(tr.Y, g.Count)
		} else {
			tr.Y = append(tr.Y, g.Values[value])
		}
		colors = append(colors, color(i))
	}
	tr.Marker.Color = colors

	yTitle := "Count"
	if value != "" {
		yTitle = Label(value)
	}
	fig := Figure{
		ID:     id,
		Source: source,
		Data:   []Trace{tr},
		Layout: Layout{
			XAxis: Axis{Title: Label(strings.Join(view.GroupFields, " / ")), Type: "category"},
			YAxis: Axis{Title: yTitle},
		},
	}
	if source != "" {
		fig.Events = []core.EventKind{core.EventClicked}
	}
	return fig
}

// Box draws the distribution of field over rows as one box.
func Box(id, name string, rows core.RowSubset, field string) Figure {
	vals := rows.Floats(field)
	y := make([]any, len(vals))
	for i, v := range vals {
		y[i] = v
	}
	return Figure{
		ID: id,
		Data: []Trace{{
			Type:      "box",
			Name:      name,
			Y:         y,
			BoxPoints: "all",
			BoxMean:   true,
		}},
		Layout: Layout{
			YAxis: Axis{Title: Label(field)},
		},
	}
}

func indices(rows core.RowSubset) []any {
	out := make([]any, len(rows.Indices))
	for i, idx := range rows.Indices {
		out[i] = idx
	}
	return out
}
