package coupling

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/leapstack-labs/chartlink/pkg/core"
)

// State is the recomputation state of an Output.
type State int

// Output states.
const (
	StateIdle State = iota
	StateComputing
	StateRendered
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateComputing:
		return "computing"
	case StateRendered:
		return "rendered"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// ErrSkip is returned by a compute function when its trigger carries
// nothing to compute, e.g. an empty selection.
var ErrSkip = errors.New("nothing to compute")

// EmptyPolicy decides what an output shows after a skipped computation.
type EmptyPolicy int

const (
	// KeepPrevious leaves the last rendered value in place.
	KeepPrevious EmptyPolicy = iota
	// ShowPlaceholder clears the value so the renderer shows a placeholder.
	ShowPlaceholder
)

// Trigger is the input that starts a recomputation: either a chart event
// addressed to the output or a change of an upstream selector.
type Trigger struct {
	Event *core.ChartEvent
	// Input names the selector that changed; empty for event triggers.
	Input string
	// Upstream names an output whose value was just replaced.
	Upstream string
}

// Outcome reports how a triggered computation ended.
type Outcome int

// Outcomes.
const (
	OutcomeRendered Outcome = iota
	OutcomeSkipped
	OutcomeFailed
	OutcomeIgnored
)

func (o Outcome) String() string {
	switch o {
	case OutcomeRendered:
		return "rendered"
	case OutcomeSkipped:
		return "skipped"
	case OutcomeFailed:
		return "failed"
	case OutcomeIgnored:
		return "ignored"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// ComputeFunc produces a new value for an output.
type ComputeFunc[T any] func(ctx context.Context, trig Trigger) (T, error)

// OutputConfig configures an Output.
type OutputConfig[T any] struct {
	Name string
	// Source is the upstream chart tag this output listens to. Outputs
	// with no source only recompute on input changes.
	Source string
	// Kinds restricts the event kinds accepted from Source. Empty accepts
	// every kind.
	Kinds []core.EventKind
	// Inputs are the selector names that trigger recomputation.
	Inputs []string
	// DependsOn names upstream outputs whose new values trigger
	// recomputation.
	DependsOn []string
	Empty     EmptyPolicy
	Compute   ComputeFunc[T]
	// OnTransition, when set, observes every state change.
	OnTransition func(name string, from, to State)
}

// Output is one reactive output chart. Its value is replaced atomically when
// a computation completes and never observed half-built.
type Output[T any] struct {
	cfg     OutputConfig[T]
	state   State
	value   atomic.Pointer[T]
	version atomic.Uint64
}

// NewOutput creates an idle output with no value.
func NewOutput[T any](cfg OutputConfig[T]) *Output[T] {
	return &Output[T]{cfg: cfg}
}

// Name returns the output name.
func (o *Output[T]) Name() string { return o.cfg.Name }

// Source returns the upstream source tag.
func (o *Output[T]) Source() string { return o.cfg.Source }

// State returns the current state.
func (o *Output[T]) State() State { return o.state }

// Version increases every time a new value (or placeholder) is published.
func (o *Output[T]) Version() uint64 { return o.version.Load() }

// Current returns the last fully computed value, or false when the output
// shows a placeholder.
func (o *Output[T]) Current() (T, bool) {
	p := o.value.Load()
	if p == nil {
		var zero T
		return zero, false
	}
	return *p, true
}

// Clear drops the current value so the output shows a placeholder.
func (o *Output[T]) Clear() {
	if o.value.Swap(nil) != nil {
		o.version.Add(1)
	}
}

// Accepts reports whether trig is relevant to this output.
func (o *Output[T]) Accepts(trig Trigger) bool {
	if trig.Event != nil {
		if o.cfg.Source == "" || trig.Event.SourceID != o.cfg.Source {
			return false
		}
		if len(o.cfg.Kinds) == 0 {
			return true
		}
		for _, k := range o.cfg.Kinds {
			if k == trig.Event.Kind {
				return true
			}
		}
		return false
	}
	if trig.Upstream != "" {
		return contains(o.cfg.DependsOn, trig.Upstream)
	}
	if trig.Input == "" {
		return false
	}
	return contains(o.cfg.Inputs, trig.Input)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func (o *Output[T]) transition(to State) {
	from := o.state
	o.state = to
	if o.cfg.OnTransition != nil {
		o.cfg.OnTransition(o.cfg.Name, from, to)
	}
}

// Trigger runs the output's computation for trig. Irrelevant triggers are
// ignored. A skipped computation applies the empty policy; a failed one
// leaves the previous value untouched and returns the error.
func (o *Output[T]) Trigger(ctx context.Context, trig Trigger) (Outcome, error) {
	if !o.Accepts(trig) {
		return OutcomeIgnored, nil
	}
	return o.run(ctx, trig)
}

// Refresh recomputes regardless of the trigger's relevance. It is used for
// the initial render and after the dataset is reloaded.
func (o *Output[T]) Refresh(ctx context.Context) (Outcome, error) {
	return o.run(ctx, Trigger{})
}

func (o *Output[T]) run(ctx context.Context, trig Trigger) (Outcome, error) {
	o.transition(StateComputing)

	v, err := o.cfg.Compute(ctx, trig)
	switch {
	case errors.Is(err, ErrSkip):
		if o.cfg.Empty == ShowPlaceholder && o.value.Load() != nil {
			o.value.Store(nil)
			o.version.Add(1)
		}
		o.transition(StateIdle)
		return OutcomeSkipped, nil
	case err != nil:
		o.transition(StateIdle)
		return OutcomeFailed, fmt.Errorf("%s: %w", o.cfg.Name, err)
	}

	o.value.Store(&v)
	o.version.Add(1)
	o.transition(StateRendered)
	o.transition(StateIdle)
	return OutcomeRendered, nil
}
