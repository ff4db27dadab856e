package core

import "strings"

// DerivedView maps grouping keys to aggregates. It is rebuilt from scratch
// for every event and never persisted.
type DerivedView struct {
	GroupFields []string
	// Aggregates lists the names of the extra per-group values, in order.
	Aggregates []string
	// Groups are kept in display order.
	Groups []Group
}

// Group is one entry of a DerivedView.
type Group struct {
	Key     []any
	Count   int
	Values  map[string]float64
	Members RowSubset
}

// Label joins the group key values for display.
func (g Group) Label() string {
	parts := make([]string, len(g.Key))
	for i, v := range g.Key {
		parts[i] = FormatValue(v)
	}
	return strings.Join(parts, " / ")
}

// Empty reports whether the view has no groups.
func (v DerivedView) Empty() bool { return len(v.Groups) == 0 }

// Total returns the number of rows across all groups.
func (v DerivedView) Total() int {
	n := 0
	for _, g := range v.Groups {
		n += g.Count
	}
	return n
}

// Find returns the group with the given label.
func (v DerivedView) Find(label string) (Group, bool) {
	for _, g := range v.Groups {
		if g.Label() == label {
			return g, true
		}
	}
	return Group{}, false
}

// Counts returns a label -> count map.
func (v DerivedView) Counts() map[string]int {
	out := make(map[string]int, len(v.Groups))
	for _, g := range v.Groups {
		out[g.Label()] = g.Count
	}
	return out
}
