// Package stocks is the stock prices dashboard: daily closing prices drawn
// one line per ticker. Selecting a range summarises the selected days per
// ticker; hovering a point lists the hovered rows.
package stocks

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
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
	SourcePrices = "prices"

	InputTicker = "ticker"
	// AllTickers draws every ticker.
	AllTickers = "All"

	OutputPrices  = "prices"
	OutputSummary = "summary"
	OutputHover   = "hover"

	TickerField = "ticker"
	DateField   = "date"
	CloseField  = "close"
)

// SummaryAggregates are computed per ticker over a selection.
var SummaryAggregates = []coupling.Aggregate{
	{Op: coupling.OpMean, Field: CloseField},
	{Op: coupling.OpMin, Field: CloseField},
	{Op: coupling.OpMax, Field: CloseField},
}

// HoverAggregates are shown for each hovered row.
var HoverAggregates = []coupling.Aggregate{
	{Name: "open", Op: coupling.OpMax, Field: "open"},
	{Name: "close", Op: coupling.OpMax, Field: CloseField},
	{Name: "volume", Op: coupling.OpSum, Field: "volume"},
}

func init() {
	dashboard.Register(dashboard.Page{
		Slug:    "stocks",
		Title:   "Stock prices",
		Summary: "Select a date range on the price chart to summarise it; hover a point to inspect that day.",
		Narrative: `<p>Daily closing prices, one line per ticker. ` +
			`Drag across the chart to <strong>select</strong> a range of days: ` +
			`the summary table reports count, mean, minimum and maximum close per ticker.</p>` +
			`<p><strong>Hover</strong> a point to list the rows under the cursor.</p>`,
		DemoURL: "https://chartlink.fly.dev/stocks",
		Dataset: bundled.StockPrices,
		Order:   20,
		New:     New,
	})
}

// PriceChart is a drawn price chart together with the traces it was drawn
// with, so events can be mapped back to the rows of that drawing.
type PriceChart struct {
	Figure chart.Figure
	Interp *coupling.Interpreter
}

// Dashboard is the stock prices dashboard for one session.
type Dashboard struct {
	ds      atomic.Pointer[core.Dataset]
	session *coupling.Session
	logger  *slog.Logger
	postURL string

	prices  *coupling.Output[PriceChart]
	summary *coupling.Output[core.DerivedView]
	hover   *coupling.Output[core.DerivedView]
}

// New builds the dashboard and computes its initial outputs.
func New(ctx context.Context, ds *core.Dataset, opts dashboard.Options) (dashboard.Dashboard, error) {
	return NewDashboard(ctx, ds, opts)
}

// NewDashboard is New returning the concrete type.
func NewDashboard(ctx context.Context, ds *core.Dataset, opts dashboard.Options) (*Dashboard, error) {
	if ds == nil || ds.Schema == nil {
		return nil, fmt.Errorf("stocks: no dataset")
	}
	for _, f := range []string{TickerField, DateField, CloseField} {
		if _, _, ok := ds.Schema.Lookup(f); !ok {
			return nil, &core.UnknownFieldError{Field: f, Available: ds.Schema.Names()}
		}
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	d := &Dashboard{logger: logger, postURL: opts.PostURL}
	d.ds.Store(ds)

	d.prices = coupling.NewOutput(coupling.OutputConfig[PriceChart]{
		Name:         OutputPrices,
		Inputs:       []string{InputTicker},
		Compute:      d.computePrices,
		OnTransition: opts.OnTransition,
	})
	d.summary = coupling.NewOutput(coupling.OutputConfig[core.DerivedView]{
		Name:         OutputSummary,
		Source:       SourcePrices,
		Kinds:        []core.EventKind{core.EventSelected},
		Empty:        coupling.KeepPrevious,
		Compute:      d.computeSummary,
		OnTransition: opts.OnTransition,
	})
	d.hover = coupling.NewOutput(coupling.OutputConfig[core.DerivedView]{
		Name:         OutputHover,
		Source:       SourcePrices,
		Kinds:        []core.EventKind{core.EventHovered},
		DependsOn:    []string{OutputPrices},
		Empty:        coupling.ShowPlaceholder,
		Compute:      d.computeHover,
		OnTransition: opts.OnTransition,
	})
	d.session = coupling.NewSession(d.prices, d.summary, d.hover)
	d.session.InitInput(InputTicker, AllTickers)

	if err := coupling.FirstError(d.session.RefreshAll(ctx)); err != nil {
		return nil, err
	}
	return d, nil
}

// Session returns the reactive session.
func (d *Dashboard) Session() *coupling.Session { return d.session }

// Dataset returns the dataset currently shown.
func (d *Dashboard) Dataset() *core.Dataset { return d.ds.Load() }

// Prices returns the price chart output.
func (d *Dashboard) Prices() *coupling.Output[PriceChart] { return d.prices }

// Selection returns the selection summary output.
func (d *Dashboard) Selection() *coupling.Output[core.DerivedView] { return d.summary }

// Hover returns the hovered rows output.
func (d *Dashboard) Hover() *coupling.Output[core.DerivedView] { return d.hover }

// Tickers lists the distinct tickers in the dataset, sorted.
func (d *Dashboard) Tickers() []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range d.ds.Load().Records {
		t := r.String(TickerField)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Selectors returns the ticker dropdown.
func (d *Dashboard) Selectors() []dashboard.Selector {
	return []dashboard.Selector{{
		Signal:  InputTicker,
		Label:   "Ticker",
		Options: append([]string{AllTickers}, d.Tickers()...),
	}}
}

// Outputs returns the output names in page order.
func (d *Dashboard) Outputs() []string {
	return []string{OutputPrices, OutputSummary, OutputHover}
}

// Reset swaps in ds and recomputes every output, clearing selections made
// on the previous dataset.
func (d *Dashboard) Reset(ctx context.Context, ds *core.Dataset) []coupling.Result {
	d.session.Do(func() {
		d.ds.Store(ds)
		d.summary.Clear()
		d.hover.Clear()
	})
	return d.session.RefreshAll(ctx)
}

// traces declares one trace per shown ticker.
func (d *Dashboard) traces() []coupling.Trace {
	shown := d.Tickers()
	if sel := d.session.Input(InputTicker); sel != "" && sel != AllTickers {
		shown = []string{sel}
	}
	traces := make([]coupling.Trace, len(shown))
	for i, t := range shown {
		traces[i] = coupling.Trace{Name: t, Match: coupling.FieldEquals(TickerField, t)}
	}
	return traces
}

func (d *Dashboard) computePrices(_ context.Context, _ coupling.Trigger) (PriceChart, error) {
	ds := d.ds.Load()
	interp := coupling.NewInterpreter(SourcePrices, d.traces()...)

	parts := interp.Partition(ds)
	series := make([]chart.Series, len(parts))
	for i, p := range parts {
		series[i] = chart.Series{Name: interp.Traces()[i].Name, Rows: p}
	}
	fig := chart.Lines(OutputPrices, SourcePrices, series, DateField, CloseField)
	fig.Layout.Title = "Daily close"
	return PriceChart{Figure: fig, Interp: interp}, nil
}

// interpret maps an event against the price chart currently drawn.
func (d *Dashboard) interpret(ev *core.ChartEvent) (core.RowSubset, error) {
	pc, ok := d.prices.Current()
	if !ok {
		return core.RowSubset{}, fmt.Errorf("no price chart drawn")
	}
	return pc.Interp.Interpret(ev, d.ds.Load())
}

func (d *Dashboard) computeSummary(_ context.Context, trig coupling.Trigger) (core.DerivedView, error) {
	if trig.Event.Empty() {
		return core.DerivedView{}, coupling.ErrSkip
	}
	rows, err := d.interpret(trig.Event)
	if err != nil {
		return core.DerivedView{}, err
	}
	return coupling.Build(rows, []string{TickerField}, SummaryAggregates...)
}

func (d *Dashboard) computeHover(_ context.Context, trig coupling.Trigger) (core.DerivedView, error) {
	if trig.Upstream != "" || trig.Event.Empty() {
		return core.DerivedView{}, coupling.ErrSkip
	}
	rows, err := d.interpret(trig.Event)
	if err != nil {
		return core.DerivedView{}, err
	}
	d.logger.Debug("hover interpreted", "points", len(trig.Event.Points))
	return coupling.Build(rows, []string{TickerField, DateField}, HoverAggregates...)
}

// Panel renders one output.
func (d *Dashboard) Panel(name string) templ.Component {
	switch name {
	case OutputPrices:
		pc, ok := d.prices.Current()
		if !ok {
			return chart.Placeholder(OutputPrices, "No prices loaded.")
		}
		fig := pc.Figure
		fig.PostURL = d.postURL
		return chart.Component(fig)

	case OutputSummary:
		view, ok := d.summary.Current()
		if !ok || view.Empty() {
			return chart.Placeholder(OutputSummary, "Select a range of days to summarise it.")
		}
		return chart.Table(OutputSummary, chart.ViewTable(view))

	case OutputHover:
		view, ok := d.hover.Current()
		if !ok || view.Empty() {
			return chart.Placeholder(OutputHover, "Hover a point to inspect it.")
		}
		return chart.Table(OutputHover, chart.ViewTable(view))
	}
	return chart.Failure(name, fmt.Errorf("unknown output %q", name))
}

// Summary describes one output as plain text.
func (d *Dashboard) Summary(name string) string {
	switch name {
	case OutputPrices:
		if pc, ok := d.prices.Current(); ok {
			return pc.Figure.Summary()
		}
	case OutputSummary:
		if view, ok := d.summary.Current(); ok {
			return dashboard.ViewSummary(view)
		}
	case OutputHover:
		if view, ok := d.hover.Current(); ok {
			return dashboard.ViewSummary(view)
		}
	}
	return dashboard.Empty
}
