package commands

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/chartlink/internal/cli/testutil"
	"github.com/leapstack-labs/chartlink/internal/dashboard"
	"github.com/leapstack-labs/chartlink/internal/dataset"
	"github.com/leapstack-labs/chartlink/pkg/core"
)

func TestParseStep(t *testing.T) {
	tests := []struct {
		line    string
		want    Step
		wantErr string
	}{
		{
			line: "select scatter 0:1 1:0 3",
			want: Step{Event: &core.ChartEvent{SourceID: "scatter", Kind: core.EventSelected, Points: []core.Point{
				{CurveIndex: 0, PointIndex: 1}, {CurveIndex: 1, PointIndex: 0}, {CurveIndex: 0, PointIndex: 3},
			}}},
		},
		{
			line: "plotly_click bars 1",
			want: Step{Event: &core.ChartEvent{SourceID: "bars", Kind: core.EventClicked, Points: []core.Point{{PointIndex: 1}}}},
		},
		{line: "select scatter", want: Step{Event: &core.ChartEvent{SourceID: "scatter", Kind: core.EventSelected}}},
		{line: "set yFeature area_mean", want: Step{Input: map[string]string{"yFeature": "area_mean"}}},
		{line: "set ticker=MSFT", want: Step{Input: map[string]string{"ticker": "MSFT"}}},
		{line: "drag bars 1", wantErr: "unknown event kind"},
		{line: "click", wantErr: "usage: click <source>"},
		{line: "hover prices 1 2", wantErr: "hovered takes exactly one point"},
		{line: "click bars x:1", wantErr: `invalid point "x:1"`},
		{line: "select scatter -1", wantErr: `invalid point "-1"`},
		{line: "set ticker", wantErr: "usage: set"},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, err := ParseStep(tt.line)
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func cancerConsole(t *testing.T) (*console, *testutil.TestRenderer) {
	t.Helper()
	ctx := context.Background()

	page, err := dashboard.Get("cancer")
	require.NoError(t, err)
	loader := &dataset.BundledLoader{Name: page.Dataset, Table: page.Dataset}
	ds, err := loader.Load(ctx)
	require.NoError(t, err)
	d, err := page.New(ctx, ds, dashboard.Options{})
	require.NoError(t, err)

	tr := testutil.NewTestRendererMarkdown()
	return &console{dashboard: d, renderer: tr.Renderer, reload: loader.Load}, tr
}

func TestConsole_Exec(t *testing.T) {
	c, tr := cancerConsole(t)
	ctx := context.Background()

	for _, line := range []string{
		"select scatter 0:0 0:1 1:0 1:1 1:2",
		"",
		"click bars 1",
		"set yFeature=area_mean",
		".inputs",
		".reset",
	} {
		require.NoError(t, c.exec(ctx, line), line)
	}

	out := tr.Output()
	for _, want := range []string{
		`## Step 1: selected from "scatter" (5 points)`,
		"M: 2, B: 3",
		`## Step 2: clicked from "bars" (1 points)`,
		"Benign: 3 rows of texture_mean",
		"## Step 3: set yFeature=area_mean",
		"Benign: 3 rows of area_mean",
		"| yFeature | area_mean |",
		"## Step 4: reset (27 rows)",
	} {
		assert.Contains(t, out, want)
	}
	testutil.AssertValidMarkdown(t, out)
}

func TestConsole_DotCommands(t *testing.T) {
	c, tr := cancerConsole(t)
	ctx := context.Background()

	require.NoError(t, c.exec(ctx, ".outputs"))
	assert.Contains(t, tr.Output(), "## Current state")
	assert.Contains(t, tr.Output(), "Texture Mean vs Radius Mean: Malignant 13, Benign 14")

	require.NoError(t, c.exec(ctx, ".help"))
	assert.Contains(t, tr.Output(), "deliver a selection")

	assert.ErrorIs(t, c.exec(ctx, ".quit"), errQuit)
	assert.ErrorIs(t, c.exec(ctx, ".EXIT"), errQuit)
	assert.ErrorContains(t, c.exec(ctx, ".tables"), "unknown command .tables")
	assert.ErrorContains(t, c.exec(ctx, "drag bars 1"), "unknown event kind")
	assert.Zero(t, c.steps, "rejected lines are not steps")
}

func TestConsole_Completer(t *testing.T) {
	c, _ := cancerConsole(t)

	got, _ := c.completer().Do([]rune("set yF"), len("set yF"))
	require.NotEmpty(t, got)
	assert.Equal(t, "eature ", string(got[0]))
}
