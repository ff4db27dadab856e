// Package pages serves the narrative pages and the interactive dashboards
// mounted on them.
package pages

import (
	"encoding/json"
	"fmt"

	"github.com/leapstack-labs/chartlink/pkg/core"
)

// Signals are the datastar signals posted by a dashboard page: the last
// chart event under "chartEvent" and one string per selector.
type Signals map[string]json.RawMessage

// SignalChartEvent carries the chart event forwarded by the browser.
const SignalChartEvent = "chartEvent"

// ChartEvent decodes the forwarded chart event. A missing or null event
// yields nil.
func (s Signals) ChartEvent() (*core.ChartEvent, error) {
	raw, ok := s[SignalChartEvent]
	if !ok {
		return nil, nil
	}
	ev, err := core.DecodeChartEvent(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid chart event: %w", err)
	}
	return ev, nil
}

// String returns a string signal, or false when absent or not a string.
func (s Signals) String(name string) (string, bool) {
	raw, ok := s[name]
	if !ok {
		return "", false
	}
	var v string
	if err := json.Unmarshal(raw, &v); err != nil {
		return "", false
	}
	return v, true
}
