package coupling

import (
	"fmt"
	"math"
	"strings"

	"github.com/leapstack-labs/chartlink/pkg/core"
)

// AggOp is a per-group summary operation.
type AggOp string

// Aggregate operations.
const (
	OpCount AggOp = "count"
	OpSum   AggOp = "sum"
	OpMean  AggOp = "mean"
	OpMin   AggOp = "min"
	OpMax   AggOp = "max"
)

// Aggregate describes an extra value computed per group over a numeric
// field. Name defaults to "<op>_<field>".
type Aggregate struct {
	Name  string
	Op    AggOp
	Field string
}

func (a Aggregate) name() string {
	if a.Name != "" {
		return a.Name
	}
	if a.Field == "" {
		return string(a.Op)
	}
	return string(a.Op) + "_" + a.Field
}

// ParseAggregate parses "op:field" (or a bare "count") as used on the
// command line.
func ParseAggregate(s string) (Aggregate, error) {
	opName, field, _ := strings.Cut(strings.TrimSpace(s), ":")
	op := AggOp(strings.ToLower(opName))
	switch op {
	case OpCount:
		return Aggregate{Op: op, Field: field}, nil
	case OpSum, OpMean, OpMin, OpMax:
		if field == "" {
			return Aggregate{}, fmt.Errorf("aggregate %q needs a field (%s:<field>)", s, op)
		}
		return Aggregate{Op: op, Field: field}, nil
	}
	return Aggregate{}, fmt.Errorf("unknown aggregate %q (use count, sum, mean, min or max)", opName)
}

// keySep separates formatted key values; it cannot appear in display text.
const keySep = "\x1f"

type accumulator struct {
	sum   float64
	min   float64
	max   float64
	count int
}

func (a *accumulator) add(v float64) {
	if a.count == 0 {
		a.min, a.max = v, v
	}
	a.sum += v
	a.min = math.Min(a.min, v)
	a.max = math.Max(a.max, v)
	a.count++
}

func (a *accumulator) result(op AggOp, members int) float64 {
	switch op {
	case OpCount:
		return float64(members)
	case OpSum:
		return a.sum
	case OpMean:
		if a.count == 0 {
			return math.NaN()
		}
		return a.sum / float64(a.count)
	case OpMin:
		if a.count == 0 {
			return math.NaN()
		}
		return a.min
	case OpMax:
		if a.count == 0 {
			return math.NaN()
		}
		return a.max
	}
	return math.NaN()
}

// Build groups rows by the values at groupFields and counts the members of
// each group. Groups appear in the order their first row appears in rows;
// counts and aggregates do not depend on row order. Zero rows yield an
// empty view.
func Build(rows core.RowSubset, groupFields []string, aggs ...Aggregate) (core.DerivedView, error) {
	view := core.DerivedView{
		GroupFields: append([]string(nil), groupFields...),
	}
	for _, a := range aggs {
		switch a.Op {
		case OpCount, OpSum, OpMean, OpMin, OpMax:
		default:
			return core.DerivedView{}, fmt.Errorf("unknown aggregate op %q", a.Op)
		}
		view.Aggregates = append(view.Aggregates, a.name())
	}
	if rows.Empty() {
		return view, nil
	}

	schema := rows.Rows[0].Schema()
	for _, f := range groupFields {
		if _, _, ok := schema.Lookup(f); !ok {
			return core.DerivedView{}, &core.UnknownFieldError{Field: f, Available: schema.Names()}
		}
	}
	for _, a := range aggs {
		if a.Op == OpCount {
			continue
		}
		if _, _, ok := schema.Lookup(a.Field); !ok {
			return core.DerivedView{}, &core.UnknownFieldError{Field: a.Field, Available: schema.Names()}
		}
	}

	positions := make(map[string]int)
	accs := make([][]accumulator, 0)
	for n, r := range rows.Rows {
		key := make([]any, len(groupFields))
		parts := make([]string, len(groupFields))
		for i, f := range groupFields {
			v, _ := r.Value(f)
			key[i] = v
			parts[i] = core.FormatValue(v)
		}
		id := strings.Join(parts, keySep)

		pos, ok := positions[id]
		if !ok {
			pos = len(view.Groups)
			positions[id] = pos
			view.Groups = append(view.Groups, core.Group{Key: key})
			accs = append(accs, make([]accumulator, len(aggs)))
		}
		g := &view.Groups[pos]
		g.Count++
		idx := -1
		if n < len(rows.Indices) {
			idx = rows.Indices[n]
		}
		g.Members.Append(r, idx)
		for i, a := range aggs {
			if a.Op == OpCount {
				continue
			}
			if f, ok := r.Float(a.Field); ok {
				accs[pos][i].add(f)
			}
		}
	}

	if len(aggs) > 0 {
		for pos := range view.Groups {
			g := &view.Groups[pos]
			g.Values = make(map[string]float64, len(aggs))
			for i, a := range aggs {
				g.Values[a.name()] = accs[pos][i].result(a.Op, g.Count)
			}
		}
	}
	return view, nil
}
