package core

import (
	"encoding/json"
	"fmt"
	"strings"
)

// EventKind is the kind of user interaction that produced a ChartEvent.
type EventKind string

// Event kinds.
const (
	EventSelected EventKind = "selected"
	EventClicked  EventKind = "clicked"
	EventHovered  EventKind = "hovered"
)

// ParseEventKind parses an event kind. The chart library's own event names
// ("plotly_selected", "plotly_click", ...) are accepted as aliases.
func ParseEventKind(s string) (EventKind, error) {
	switch strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "plotly_") {
	case "selected", "select":
		return EventSelected, nil
	case "clicked", "click":
		return EventClicked, nil
	case "hovered", "hover":
		return EventHovered, nil
	}
	return "", fmt.Errorf("unknown event kind %q", s)
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *EventKind) UnmarshalText(b []byte) error {
	parsed, err := ParseEventKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Point identifies one interacted-with data point. PointIndex is zero-based
// and relative to CurveIndex: every trace numbers its points from zero.
type Point struct {
	CurveIndex int `json:"curveNumber" yaml:"curve"`
	PointIndex int `json:"pointNumber" yaml:"point"`
	X          any `json:"x,omitempty" yaml:"x,omitempty"`
	Y          any `json:"y,omitempty" yaml:"y,omitempty"`
}

// ChartEvent is the payload a chart emits on user interaction. It is
// consumed synchronously by the next stage and then discarded.
type ChartEvent struct {
	SourceID string    `json:"source" yaml:"source"`
	Kind     EventKind `json:"kind" yaml:"kind"`
	Points   []Point   `json:"points" yaml:"points"`
}

// Empty reports whether the event carries no points. A nil event is empty.
func (e *ChartEvent) Empty() bool {
	return e == nil || len(e.Points) == 0
}

// String implements fmt.Stringer.
func (e *ChartEvent) String() string {
	if e == nil {
		return "<no event>"
	}
	return fmt.Sprintf("%s from %q (%d points)", e.Kind, e.SourceID, len(e.Points))
}

// DecodeChartEvent decodes a JSON event payload. A JSON null or an empty
// payload decodes to a nil event.
func DecodeChartEvent(data []byte) (*ChartEvent, error) {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" || trimmed == "null" {
		return nil, nil
	}
	var ev ChartEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, fmt.Errorf("failed to decode chart event: %w", err)
	}
	return &ev, nil
}
