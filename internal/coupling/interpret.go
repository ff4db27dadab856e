// Package coupling implements the event-coupling data flow between charts:
// interpreting interaction events back into dataset rows, building derived
// views from those rows, and recomputing outputs reactively.
package coupling

import (
	"github.com/leapstack-labs/chartlink/pkg/core"
)

// Trace declares one series of a primary chart and the subgroup of dataset
// records it draws. Traces are matched in declaration order: curve index i
// of an event refers to the i-th declared trace.
type Trace struct {
	Name  string
	Match func(core.Record) bool
}

// FieldEquals returns a matcher selecting records whose field formats to
// value.
func FieldEquals(field, value string) func(core.Record) bool {
	return func(r core.Record) bool {
		v, ok := r.Value(field)
		return ok && core.FormatValue(v) == value
	}
}

// Interpreter maps events from one source chart back to dataset records.
type Interpreter struct {
	source string
	traces []Trace
}

// NewInterpreter creates an interpreter for events tagged source, emitted by
// a chart drawn with the given traces.
func NewInterpreter(source string, traces ...Trace) *Interpreter {
	return &Interpreter{source: source, traces: traces}
}

// Source returns the source tag this interpreter consumes.
func (i *Interpreter) Source() string { return i.source }

// Traces returns the declared traces.
func (i *Interpreter) Traces() []Trace { return i.traces }

// Partition splits the dataset into the per-trace subgroups, in the same
// order the primary chart draws them.
func (i *Interpreter) Partition(ds *core.Dataset) []core.RowSubset {
	parts := make([]core.RowSubset, len(i.traces))
	for t, tr := range i.traces {
		parts[t] = ds.Subset(tr.Match)
	}
	return parts
}

// Interpret returns one record per event point, in event order. A nil event
// or an event without points yields an empty subset. Events from another
// source and indices the chart could not have produced are rejected.
func (i *Interpreter) Interpret(ev *core.ChartEvent, ds *core.Dataset) (core.RowSubset, error) {
	var out core.RowSubset
	if ev.Empty() {
		return out, nil
	}
	if ev.SourceID != i.source {
		return out, &core.SourceMismatchError{Expected: i.source, Got: ev.SourceID}
	}

	parts := i.Partition(ds)
	for _, p := range ev.Points {
		if p.CurveIndex < 0 || p.CurveIndex >= len(parts) {
			return core.RowSubset{}, &core.IndexOutOfRangeError{
				Source: i.source, Curve: p.CurveIndex, Point: p.PointIndex,
				Limit: len(parts), CurveMissing: true,
			}
		}
		group := parts[p.CurveIndex]
		if p.PointIndex < 0 || p.PointIndex >= group.Len() {
			return core.RowSubset{}, &core.IndexOutOfRangeError{
				Source: i.source, Curve: p.CurveIndex, Point: p.PointIndex, Limit: group.Len(),
			}
		}
		out.Append(group.Rows[p.PointIndex], group.Indices[p.PointIndex])
	}
	return out, nil
}

// Drilldown resolves an event emitted by a chart of a derived view, where
// trace 0 draws one point per group in display order, to the member rows of
// the referenced groups. Groups referenced more than once contribute their
// rows once.
func Drilldown(source string, view core.DerivedView, ev *core.ChartEvent) (core.RowSubset, error) {
	var out core.RowSubset
	if ev.Empty() {
		return out, nil
	}
	if ev.SourceID != source {
		return out, &core.SourceMismatchError{Expected: source, Got: ev.SourceID}
	}

	seen := make(map[int]bool, len(ev.Points))
	for _, p := range ev.Points {
		if p.CurveIndex != 0 {
			return core.RowSubset{}, &core.IndexOutOfRangeError{
				Source: source, Curve: p.CurveIndex, Point: p.PointIndex,
				Limit: 1, CurveMissing: true,
			}
		}
		if p.PointIndex < 0 || p.PointIndex >= len(view.Groups) {
			return core.RowSubset{}, &core.IndexOutOfRangeError{
				Source: source, Curve: 0, Point: p.PointIndex, Limit: len(view.Groups),
			}
		}
		if seen[p.PointIndex] {
			continue
		}
		seen[p.PointIndex] = true
		members := view.Groups[p.PointIndex].Members
		for j, r := range members.Rows {
			out.Append(r, members.Indices[j])
		}
	}
	return out, nil
}
