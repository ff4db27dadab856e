package coupling

import (
	"context"
	"sync"

	"github.com/leapstack-labs/chartlink/pkg/core"
)

// Node is a reactive output as seen by a Session.
type Node interface {
	Name() string
	// Source is the chart tag whose events the node consumes, or empty.
	Source() string
	Trigger(ctx context.Context, trig Trigger) (Outcome, error)
	Refresh(ctx context.Context) (Outcome, error)
	Version() uint64
}

// Result is the outcome of one node for one trigger.
type Result struct {
	Output  string
	Outcome Outcome
	Err     error
}

// Session owns the reactive state of one dashboard for one user. Triggers
// are processed one at a time, each to completion; nodes are visited in
// registration order, so a downstream node observes the values its
// upstream nodes computed for the same trigger.
type Session struct {
	mu    sync.Mutex
	nodes []Node

	inputsMu sync.RWMutex
	inputs   map[string]string
}

// NewSession creates a session over nodes, listed upstream first.
func NewSession(nodes ...Node) *Session {
	return &Session{
		nodes:  nodes,
		inputs: make(map[string]string),
	}
}

// Input returns the current value of a selector.
func (s *Session) Input(name string) string {
	s.inputsMu.RLock()
	defer s.inputsMu.RUnlock()
	return s.inputs[name]
}

// Inputs returns a copy of all selector values.
func (s *Session) Inputs() map[string]string {
	s.inputsMu.RLock()
	defer s.inputsMu.RUnlock()
	out := make(map[string]string, len(s.inputs))
	for k, v := range s.inputs {
		out[k] = v
	}
	return out
}

// InitInput sets a selector value without triggering recomputation.
func (s *Session) InitInput(name, value string) {
	s.inputsMu.Lock()
	s.inputs[name] = value
	s.inputsMu.Unlock()
}

// SetInput updates a selector and recomputes the nodes that depend on it.
// Setting a selector to its current value is a no-op.
func (s *Session) SetInput(ctx context.Context, name, value string) []Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.inputsMu.Lock()
	old, had := s.inputs[name]
	s.inputs[name] = value
	s.inputsMu.Unlock()
	if had && old == value {
		return nil
	}
	return s.dispatch(ctx, Trigger{Input: name})
}

// Dispatch delivers trig to every node that accepts it. An event whose
// source no node consumes is a contract violation: it yields a single
// failed result carrying a *core.SourceMismatchError and no node runs.
func (s *Session) Dispatch(ctx context.Context, trig Trigger) []Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dispatch(ctx, trig)
}

// RefreshAll recomputes every node in order.
func (s *Session) RefreshAll(ctx context.Context) []Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	results := make([]Result, 0, len(s.nodes))
	for _, n := range s.nodes {
		outcome, err := n.Refresh(ctx)
		results = append(results, Result{Output: n.Name(), Outcome: outcome, Err: err})
	}
	return results
}

// Do runs fn while holding the session's trigger lock.
func (s *Session) Do(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn()
}

func (s *Session) dispatch(ctx context.Context, trig Trigger) []Result {
	if trig.Event != nil {
		if err := s.checkSource(trig.Event.SourceID); err != nil {
			return []Result{{Outcome: OutcomeFailed, Err: err}}
		}
	}

	var results []Result
	var changed []string
	for _, n := range s.nodes {
		before := n.Version()
		outcome, err := n.Trigger(ctx, trig)
		for i := 0; outcome == OutcomeIgnored && i < len(changed); i++ {
			outcome, err = n.Trigger(ctx, Trigger{Upstream: changed[i]})
		}
		if outcome == OutcomeIgnored {
			continue
		}
		results = append(results, Result{Output: n.Name(), Outcome: outcome, Err: err})
		if n.Version() != before {
			changed = append(changed, n.Name())
		}
	}
	return results
}

func (s *Session) checkSource(source string) error {
	var known []string
	for _, n := range s.nodes {
		src := n.Source()
		if src == source {
			return nil
		}
		if src != "" && !contains(known, src) {
			known = append(known, src)
		}
	}
	return &core.SourceMismatchError{Got: source, Known: known}
}

// Sources returns the chart tags consumed by the session's nodes, in
// registration order.
func (s *Session) Sources() []string {
	var out []string
	for _, n := range s.nodes {
		if src := n.Source(); src != "" && !contains(out, src) {
			out = append(out, src)
		}
	}
	return out
}

// Rendered returns the names of the nodes that produced a new value.
func Rendered(results []Result) []string {
	var names []string
	for _, r := range results {
		if r.Outcome == OutcomeRendered || r.Outcome == OutcomeSkipped {
			names = append(names, r.Output)
		}
	}
	return names
}

// FirstError returns the first failed result's error.
func FirstError(results []Result) error {
	for _, r := range results {
		if r.Err != nil {
			return r.Err
		}
	}
	return nil
}
