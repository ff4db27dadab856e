package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEventKind(t *testing.T) {
	tests := []struct {
		in      string
		want    EventKind
		wantErr bool
	}{
		{in: "selected", want: EventSelected},
		{in: "plotly_selected", want: EventSelected},
		{in: "select", want: EventSelected},
		{in: "clicked", want: EventClicked},
		{in: "plotly_click", want: EventClicked},
		{in: " Hover ", want: EventHovered},
		{in: "plotly_hover", want: EventHovered},
		{in: "plotly_relayout", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseEventKind(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeChartEvent(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    *ChartEvent
		wantErr bool
	}{
		{name: "empty payload", payload: "", want: nil},
		{name: "null", payload: " null ", want: nil},
		{
			name:    "selection",
			payload: `{"source":"scatter","kind":"plotly_selected","points":[{"curveNumber":1,"pointNumber":4,"x":17.99,"y":"M"}]}`,
			want: &ChartEvent{
				SourceID: "scatter",
				Kind:     EventSelected,
				Points:   []Point{{CurveIndex: 1, PointIndex: 4, X: 17.99, Y: "M"}},
			},
		},
		{
			name:    "no points",
			payload: `{"source":"bars","kind":"clicked","points":[]}`,
			want:    &ChartEvent{SourceID: "bars", Kind: EventClicked, Points: []Point{}},
		},
		{name: "bad kind", payload: `{"source":"bars","kind":"zoom"}`, wantErr: true},
		{name: "bad json", payload: `{"source":`, wantErr: true},
		{name: "bad index", payload: `{"source":"bars","kind":"clicked","points":[{"curveNumber":"x"}]}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeChartEvent([]byte(tt.payload))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestChartEvent_Empty(t *testing.T) {
	var nilEvent *ChartEvent
	assert.True(t, nilEvent.Empty())
	assert.True(t, (&ChartEvent{SourceID: "scatter"}).Empty())
	assert.False(t, (&ChartEvent{Points: []Point{{}}}).Empty())

	assert.Equal(t, "<no event>", nilEvent.String())
	assert.Equal(t, `clicked from "bars" (1 points)`,
		(&ChartEvent{SourceID: "bars", Kind: EventClicked, Points: []Point{{}}}).String())
}
