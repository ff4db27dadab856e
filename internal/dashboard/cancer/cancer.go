// Package cancer is the breast-cancer dashboard: a scatter plot of two
// features whose selection drives a diagnosis count chart, whose bars in
// turn drive a box plot of the selected class.
package cancer

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync/atomic"

	"github.com/a-h/templ"

	"github.com/leapstack-labs/chartlink/internal/chart"
	"github.com/leapstack-labs/chartlink/internal/coupling"
	"github.com/leapstack-labs/chartlink/internal/dashboard"
	"github.com/leapstack-labs/chartlink/internal/dataset/bundled"
	"github.com/leapstack-labs/chartlink/pkg/core"
)

// Source tags, input signals and output names.
const (
	SourceScatter = "scatter"
	SourceBars    = "bars"

	InputX = "xFeature"
	InputY = "yFeature"

	OutputScatter = "scatter"
	OutputBars    = "bars"
	OutputBox     = "box"

	// ClassField holds the diagnosis, "M" or "B".
	ClassField = "diagnosis"
)

// Traces are the scatter plot's series, in drawing order.
var Traces = []coupling.Trace{
	{Name: "Malignant", Match: coupling.FieldEquals(ClassField, "M")},
	{Name: "Benign", Match: coupling.FieldEquals(ClassField, "B")},
}

var classNames = map[string]string{"M": "Malignant", "B": "Benign"}

func init() {
	dashboard.Register(dashboard.Page{
		Slug:    "cancer",
		Title:   "Breast cancer diagnosis",
		Summary: "Lasso points on a feature scatter plot to count them by diagnosis, then click a bar to see its distribution.",
		Narrative: `<p>Each point is a tumour described by measurements of its cell nuclei. ` +
			`Pick two features, then <strong>lasso or box-select</strong> points on the scatter plot.</p>` +
			`<p>The bar chart counts the selected tumours by diagnosis. ` +
			`<strong>Click a bar</strong> to see how the y-axis feature is distributed within that class.</p>`,
		DemoURL: "https://chartlink.fly.dev/cancer",
		Dataset: bundled.BreastCancer,
		Order:   10,
		New:     New,
	})
}

// Drill is the second-hop selection: the rows of one clicked bar.
type Drill struct {
	Label string
	Rows  core.RowSubset
}

// Dashboard is the breast-cancer dashboard for one session.
type Dashboard struct {
	ds      atomic.Pointer[core.Dataset]
	interp  *coupling.Interpreter
	session *coupling.Session
	logger  *slog.Logger
	postURL string

	scatter *coupling.Output[chart.Figure]
	bars    *coupling.Output[core.DerivedView]
	box     *coupling.Output[Drill]
}

// New builds the dashboard and computes its initial outputs.
func New(ctx context.Context, ds *core.Dataset, opts dashboard.Options) (dashboard.Dashboard, error) {
	return NewDashboard(ctx, ds, opts)
}

// NewDashboard is New returning the concrete type.
func NewDashboard(ctx context.Context, ds *core.Dataset, opts dashboard.Options) (*Dashboard, error) {
	if ds == nil || ds.Schema == nil {
		return nil, fmt.Errorf("cancer: no dataset")
	}
	if _, _, ok := ds.Schema.Lookup(ClassField); !ok {
		return nil, &core.UnknownFieldError{Field: ClassField, Available: ds.Schema.Names()}
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	d := &Dashboard{
		interp:  coupling.NewInterpreter(SourceScatter, Traces...),
		logger:  logger,
		postURL: opts.PostURL,
	}
	d.ds.Store(ds)

	d.scatter = coupling.NewOutput(coupling.OutputConfig[chart.Figure]{
		Name:         OutputScatter,
		Inputs:       []string{InputX, InputY},
		Compute:      d.computeScatter,
		OnTransition: opts.OnTransition,
	})
	d.bars = coupling.NewOutput(coupling.OutputConfig[core.DerivedView]{
		Name:         OutputBars,
		Source:       SourceScatter,
		Kinds:        []core.EventKind{core.EventSelected},
		Empty:        coupling.KeepPrevious,
		Compute:      d.computeBars,
		OnTransition: opts.OnTransition,
	})
	d.box = coupling.NewOutput(coupling.OutputConfig[Drill]{
		Name:         OutputBox,
		Source:       SourceBars,
		Kinds:        []core.EventKind{core.EventClicked},
		Inputs:       []string{InputY},
		DependsOn:    []string{OutputBars},
		Empty:        coupling.ShowPlaceholder,
		Compute:      d.computeBox,
		OnTransition: opts.OnTransition,
	})
	d.session = coupling.NewSession(d.scatter, d.bars, d.box)

	features := d.Features()
	d.session.InitInput(InputX, dashboard.Inputs(features, "radius_mean", 0))
	d.session.InitInput(InputY, dashboard.Inputs(features, "texture_mean", 1))

	if err := coupling.FirstError(d.session.RefreshAll(ctx)); err != nil {
		return nil, err
	}
	return d, nil
}

// Session returns the reactive session.
func (d *Dashboard) Session() *coupling.Session { return d.session }

// Dataset returns the dataset currently shown.
func (d *Dashboard) Dataset() *core.Dataset { return d.ds.Load() }

// Interpreter returns the scatter plot's event interpreter.
func (d *Dashboard) Interpreter() *coupling.Interpreter { return d.interp }

// Features lists the numeric measurements that can be plotted.
func (d *Dashboard) Features() []string {
	var out []string
	for _, name := range d.ds.Load().Schema.NamesOfKind(core.KindNumber) {
		if name == "id" {
			continue
		}
		out = append(out, name)
	}
	return out
}

// Selectors returns the x and y feature dropdowns.
func (d *Dashboard) Selectors() []dashboard.Selector {
	features := d.Features()
	return []dashboard.Selector{
		{Signal: InputX, Label: "X axis", Options: features},
		{Signal: InputY, Label: "Y axis", Options: features},
	}
}

// Outputs returns the output names in page order.
func (d *Dashboard) Outputs() []string {
	return []string{OutputScatter, OutputBars, OutputBox}
}

// Scatter returns the scatter output.
func (d *Dashboard) Scatter() *coupling.Output[chart.Figure] { return d.scatter }

// Bars returns the class-count output.
func (d *Dashboard) Bars() *coupling.Output[core.DerivedView] { return d.bars }

// Box returns the drilled-down output.
func (d *Dashboard) Box() *coupling.Output[Drill] { return d.box }

// Reset swaps in ds and recomputes every output. Selections made on the
// previous dataset no longer apply and are cleared.
func (d *Dashboard) Reset(ctx context.Context, ds *core.Dataset) []coupling.Result {
	d.session.Do(func() {
		d.ds.Store(ds)
		d.bars.Clear()
		d.box.Clear()
	})
	return d.session.RefreshAll(ctx)
}

func (d *Dashboard) computeScatter(_ context.Context, _ coupling.Trigger) (chart.Figure, error) {
	ds := d.ds.Load()
	x, y := d.session.Input(InputX), d.session.Input(InputY)
	for _, f := range []string{x, y} {
		if _, _, ok := ds.Schema.Lookup(f); !ok {
			return chart.Figure{}, &core.UnknownFieldError{Field: f, Available: d.Features()}
		}
	}

	parts := d.interp.Partition(ds)
	series := make([]chart.Series, len(parts))
	for i, p := range parts {
		series[i] = chart.Series{Name: Traces[i].Name, Rows: p}
	}
	fig := chart.Scatter(OutputScatter, SourceScatter, series, x, y)
	fig.Layout.Title = fmt.Sprintf("%s vs %s", chart.Label(y), chart.Label(x))
	return fig, nil
}

func (d *Dashboard) computeBars(_ context.Context, trig coupling.Trigger) (core.DerivedView, error) {
	if trig.Event.Empty() {
		return core.DerivedView{}, coupling.ErrSkip
	}
	rows, err := d.interp.Interpret(trig.Event, d.ds.Load())
	if err != nil {
		return core.DerivedView{}, err
	}
	d.logger.Debug("selection interpreted", "points", len(trig.Event.Points), "rows", rows.Len())
	return coupling.Build(rows, []string{ClassField})
}

func (d *Dashboard) computeBox(_ context.Context, trig coupling.Trigger) (Drill, error) {
	switch {
	case trig.Upstream != "":
		// A new selection invalidates the clicked bar.
		return Drill{}, coupling.ErrSkip
	case trig.Input != "":
		prev, ok := d.box.Current()
		if !ok {
			return Drill{}, coupling.ErrSkip
		}
		return prev, nil
	case trig.Event.Empty():
		return Drill{}, coupling.ErrSkip
	}

	view, ok := d.bars.Current()
	if !ok {
		view = core.DerivedView{}
	}
	rows, err := coupling.Drilldown(SourceBars, view, trig.Event)
	if err != nil {
		return Drill{}, err
	}

	return Drill{Label: drillLabel(view, trig.Event), Rows: rows}, nil
}

// drillLabel names every clicked class, in click order. Drilldown has
// already checked the point indices.
func drillLabel(view core.DerivedView, ev *core.ChartEvent) string {
	var names []string
	for _, p := range ev.Points {
		label := view.Groups[p.PointIndex].Label()
		if name, ok := classNames[label]; ok {
			label = name
		}
		if !slices.Contains(names, label) {
			names = append(names, label)
		}
	}
	return strings.Join(names, " + ")
}

// Panel renders one output.
func (d *Dashboard) Panel(name string) templ.Component {
	switch name {
	case OutputScatter:
		fig, ok := d.scatter.Current()
		if !ok {
			return chart.Placeholder(OutputScatter, "Pick two features to plot.")
		}
		fig.PostURL = d.postURL
		return chart.Component(fig)

	case OutputBars:
		view, ok := d.bars.Current()
		if !ok || view.Empty() {
			return chart.Placeholder(OutputBars, "Select points on the scatter plot to count them by diagnosis.")
		}
		fig := chart.Bar(OutputBars, SourceBars, view, "")
		fig.Layout.Title = fmt.Sprintf("%d selected tumours", view.Total())
		fig.PostURL = d.postURL
		return chart.Component(fig)

	case OutputBox:
		drill, ok := d.box.Current()
		if !ok {
			return chart.Placeholder(OutputBox, "Click a bar to see its distribution.")
		}
		y := d.session.Input(InputY)
		fig := chart.Box(OutputBox, drill.Label, drill.Rows, y)
		fig.Layout.Title = fmt.Sprintf("%s: %s (%d)", drill.Label, chart.Label(y), drill.Rows.Len())
		return chart.Component(fig)
	}
	return chart.Failure(name, fmt.Errorf("unknown output %q", name))
}

// Summary describes one output as plain text.
func (d *Dashboard) Summary(name string) string {
	switch name {
	case OutputScatter:
		if fig, ok := d.scatter.Current(); ok {
			return fig.Summary()
		}
	case OutputBars:
		if view, ok := d.bars.Current(); ok {
			return dashboard.ViewSummary(view)
		}
	case OutputBox:
		if drill, ok := d.box.Current(); ok {
			return fmt.Sprintf("%s: %d rows of %s", drill.Label, drill.Rows.Len(), d.session.Input(InputY))
		}
	}
	return dashboard.Empty
}
