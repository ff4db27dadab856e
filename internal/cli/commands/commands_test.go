package commands

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/chartlink/internal/chart"
	"github.com/leapstack-labs/chartlink/internal/cli/config"
	"github.com/leapstack-labs/chartlink/internal/cli/testutil"
	"github.com/leapstack-labs/chartlink/internal/coupling"
	"github.com/leapstack-labs/chartlink/internal/dashboard"
	"github.com/leapstack-labs/chartlink/internal/dataset"
	intutil "github.com/leapstack-labs/chartlink/internal/testutil"
	"github.com/leapstack-labs/chartlink/pkg/core"
)

// run executes cmd without a loaded config file, so the bundled datasets
// and the CHARTLINK_ environment apply.
func run(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	config.ResetConfig()
	t.Cleanup(config.ResetConfig)
	out, _, err := testutil.RunCommand(t, cmd, args...)
	return out, err
}

func TestPagesCommand(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		contains []string
		wantErr  bool
	}{
		{
			name:     "list",
			contains: []string{"Path", "/cancer", "Breast cancer diagnosis", "/stocks", "stock_prices", "yes"},
		},
		{
			name:     "narrative as markdown",
			args:     []string{"cancer"},
			contains: []string{"## Breast cancer diagnosis", "**lasso or box-select**", "Demo: https://"},
		},
		{
			name:    "unknown page",
			args:    []string{"nope"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := run(t, NewPagesCommand(), tt.args...)
			if tt.wantErr {
				var unknown *dashboard.UnknownPageError
				require.ErrorAs(t, err, &unknown)
				assert.Contains(t, unknown.Available, "cancer")
				return
			}
			require.NoError(t, err)
			for _, want := range tt.contains {
				assert.Contains(t, out, want)
			}
			testutil.AssertNoANSI(t, out)
			testutil.AssertValidMarkdown(t, out)
		})
	}
}

func TestPagesCommand_JSON(t *testing.T) {
	t.Setenv("CHARTLINK_OUTPUT", "json")

	out, err := run(t, NewPagesCommand(), "stocks")
	require.NoError(t, err)

	var page map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &page))
	assert.Equal(t, "stocks", page["slug"])
	assert.Equal(t, "stock_prices", page["dataset"])
	assert.NotEmpty(t, page["markdown"])
}

func TestViewCommand(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		contains []string
		absent   []string
		wantErr  string
	}{
		{
			name:     "class counts",
			args:     []string{"breast_cancer", "--group", "diagnosis"},
			contains: []string{"Diagnosis", "Count", "| M ", "| 13 ", "| B ", "| 14 "},
		},
		{
			name:     "aggregates",
			args:     []string{"stock_prices", "-g", "ticker", "--agg", "max:close", "--agg", "count"},
			contains: []string{"Ticker", "Max Close", "AAPL", "MSFT", "GOOG", "| 10 "},
		},
		{
			name:     "filtered rows",
			args:     []string{"stock_prices", "--where", "ticker=MSFT", "--limit", "3"},
			contains: []string{"#", "close", "MSFT", "... 7 more rows"},
			absent:   []string{"AAPL"},
		},
		{
			name:    "aggregate without group",
			args:    []string{"stock_prices", "--agg", "mean:close"},
			wantErr: "--agg needs --group",
		},
		{
			name:    "bad filter",
			args:    []string{"stock_prices", "--where", "ticker"},
			wantErr: "invalid filter",
		},
		{
			name:    "unknown filter field",
			args:    []string{"stock_prices", "--where", "sector=tech"},
			wantErr: `unknown field "sector"`,
		},
		{
			name:    "unknown group field",
			args:    []string{"stock_prices", "--group", "sector"},
			wantErr: `unknown field "sector"`,
		},
		{
			name:    "bad aggregate",
			args:    []string{"stock_prices", "--group", "ticker", "--agg", "median:close"},
			wantErr: "unknown aggregate",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := run(t, NewViewCommand(), tt.args...)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			for _, want := range tt.contains {
				assert.Contains(t, out, want)
			}
			for _, unwanted := range tt.absent {
				assert.NotContains(t, out, unwanted)
			}
		})
	}
}

func TestViewCommand_UnknownDataset(t *testing.T) {
	_, err := run(t, NewViewCommand(), "nope")
	var unknown *dataset.UnknownDatasetError
	require.ErrorAs(t, err, &unknown)
}

func TestViewCommand_ConfiguredCSV(t *testing.T) {
	dir := testutil.SetupTestProject(t)
	testutil.LoadConfig(t, dir)

	out, _, err := testutil.RunCommand(t, NewViewCommand(), "prices", "--group", "ticker", "--agg", "mean:close")
	require.NoError(t, err)
	assert.Contains(t, out, "AAA")
	assert.Contains(t, out, "11.25")
	assert.Contains(t, out, "19.75")
}

const cancerScript = `steps:
  - event:
      source: scatter
      kind: selected
      points:
        - {curve: 0, point: 0}
        - {curve: 0, point: 1}
        - {curve: 1, point: 0}
        - {curve: 1, point: 1}
        - {curve: 1, point: 2}
  - name: click benign
    event: {source: bars, kind: plotly_click, points: [{curve: 0, point: 1}]}
  - input: {yFeature: area_mean}
  - event: {source: scatter, kind: selected, points: [{curve: 0, point: 50}]}
`

func TestReadScript(t *testing.T) {
	s, err := ReadScript(strings.NewReader(cancerScript), "session.yaml")
	require.NoError(t, err)
	require.Len(t, s.Steps, 4)

	assert.Equal(t, core.EventClicked, s.Steps[1].Event.Kind, "library event names are accepted")
	assert.Equal(t, core.Point{CurveIndex: 1, PointIndex: 2}, s.Steps[0].Event.Points[4])
	assert.Equal(t, "selected from \"scatter\" (5 points)", s.Steps[0].Describe())
	assert.Equal(t, "click benign", s.Steps[1].Describe())
	assert.Equal(t, "set yFeature=area_mean", s.Steps[2].Describe())

	js := `{"steps": [{"event": {"source": "prices", "kind": "hovered", "points": [{"curveNumber": 2, "pointNumber": 4}]}}]}`
	s, err = ReadScript(strings.NewReader(js), "session.JSON")
	require.NoError(t, err)
	assert.Equal(t, core.Point{CurveIndex: 2, PointIndex: 4}, s.Steps[0].Event.Points[0])

	tests := []struct {
		name    string
		script  string
		wantErr string
	}{
		{name: "empty step", script: "steps:\n  - name: nothing\n", wantErr: "needs an input or an event"},
		{name: "both", script: "steps:\n  - input: {ticker: AAPL}\n    event: {source: prices, kind: hovered}\n", wantErr: "both"},
		{name: "bad kind", script: "steps:\n  - event: {source: prices, kind: dragged}\n", wantErr: "unknown event kind"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadScript(strings.NewReader(tt.script), "bad.yaml")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestReplayCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.yaml")
	testutil.WriteFile(t, path, cancerScript)

	out, err := run(t, NewReplayCommand(), "cancer", path)
	require.NoError(t, err, "failed steps are reported, not returned, without --strict")

	for _, want := range []string{
		"## Initial state",
		"Texture Mean vs Radius Mean: Malignant 13, Benign 14",
		"## Step 1: selected from",
		"M: 2, B: 3",
		"## Step 2: click benign",
		"Benign: 3 rows of texture_mean",
		"## Step 3: set yFeature=area_mean",
		"Area Mean vs Radius Mean",
		"Benign: 3 rows of area_mean",
		"point 50 of curve 0 out of range",
	} {
		assert.Contains(t, out, want)
	}
	testutil.AssertValidMarkdown(t, out)
}

func TestReplayCommand_JSONAndStrict(t *testing.T) {
	t.Setenv("CHARTLINK_OUTPUT", "json")
	path := filepath.Join(t.TempDir(), "session.yaml")
	testutil.WriteFile(t, path, cancerScript)

	out, err := run(t, NewReplayCommand(), "cancer", path, "--strict")
	require.Error(t, err)
	assert.Equal(t, "1 of 4 steps failed", err.Error())

	var stages []Stage
	require.NoError(t, json.Unmarshal([]byte(out), &stages))
	require.Len(t, stages, 5)

	byOutput := func(st Stage) map[string]StageResult {
		m := make(map[string]StageResult)
		for _, r := range st.Results {
			m[r.Output] = r
		}
		return m
	}

	initial := byOutput(stages[0])
	assert.Equal(t, "initial", initial["bars"].Outcome)
	assert.Equal(t, dashboard.Empty, initial["box"].Summary)

	selected := byOutput(stages[1])
	assert.Equal(t, "rendered", selected["bars"].Outcome)
	assert.Equal(t, "skipped", selected["box"].Outcome)
	assert.Equal(t, "unchanged", selected["scatter"].Outcome)

	rejected := byOutput(stages[4])
	assert.Equal(t, "failed", rejected["bars"].Outcome)
	assert.Contains(t, rejected["bars"].Error, "out of range")
	assert.Equal(t, "M: 2, B: 3", rejected["bars"].Summary, "a failed step keeps the previous view")
}

func TestReplayCommand_UnknownSource(t *testing.T) {
	t.Setenv("CHARTLINK_OUTPUT", "json")
	path := filepath.Join(t.TempDir(), "session.yaml")
	testutil.WriteFile(t, path, "steps:\n  - event: {source: scater, kind: selected, points: [{curve: 0, point: 0}]}\n")

	out, err := run(t, NewReplayCommand(), "cancer", path, "--strict")
	require.Error(t, err)
	assert.Equal(t, "1 of 1 steps failed", err.Error())

	var stages []Stage
	require.NoError(t, json.Unmarshal([]byte(out), &stages))
	require.Len(t, stages, 2)

	var failed []StageResult
	for _, r := range stages[1].Results {
		if r.Error != "" {
			failed = append(failed, r)
		}
	}
	require.Len(t, failed, 1)
	assert.Equal(t, "failed", failed[0].Outcome)
	assert.Contains(t, failed[0].Error, `unknown source "scater"`)
	assert.Contains(t, failed[0].Error, "scatter, bars")
}

func TestReplayCommand_Stocks(t *testing.T) {
	script := `{"steps": [
  {"input": {"ticker": "MSFT"}},
  {"event": {"source": "prices", "kind": "plotly_selected", "points": [{"curveNumber": 0, "pointNumber": 0}, {"curveNumber": 0, "pointNumber": 1}]}},
  {"input": {"ticker": "TSLA"}}
]}`
	path := filepath.Join(t.TempDir(), "session.json")
	testutil.WriteFile(t, path, script)

	out, err := run(t, NewReplayCommand(), "stocks", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Daily close: MSFT 10")
	assert.Contains(t, out, "MSFT: 2")
	assert.Contains(t, out, `unknown ticker "TSLA"`)
}

func TestReplayCommand_Errors(t *testing.T) {
	_, err := run(t, NewReplayCommand(), "cancer", filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	path := filepath.Join(t.TempDir(), "s.yaml")
	testutil.WriteFile(t, path, cancerScript)
	_, err = run(t, NewReplayCommand(), "nope", path)
	var unknown *dashboard.UnknownPageError
	assert.ErrorAs(t, err, &unknown)
}

func TestExploreCommand_NeedsTerminal(t *testing.T) {
	_, err := run(t, NewExploreCommand(), "breast_cancer", "--group", "diagnosis")
	assert.ErrorIs(t, err, ErrNotTerminal)
}

func explorerFixture(t *testing.T) *explorer {
	t.Helper()
	schema := core.MustSchema(
		core.Field{Name: "id", Kind: core.KindString},
		core.Field{Name: "class", Kind: core.KindString},
		core.Field{Name: "size", Kind: core.KindNumber},
	)
	ds := intutil.NewDataset(t, "tumours", schema,
		[]any{"a", "M", 3.0},
		[]any{"b", "B", 1.0},
		[]any{"c", "M", 5.0},
		[]any{"d", "B", 2.0},
		[]any{"e", "B", 4.0},
	)
	view, err := coupling.Build(ds.All(), []string{"class"}, coupling.Aggregate{Op: coupling.OpMean, Field: "size"})
	require.NoError(t, err)
	return newExplorer("tumours", schema, view)
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestExplorer_DrillAndBack(t *testing.T) {
	m := explorerFixture(t)

	view := m.View()
	assert.Contains(t, view, "tumours by class (2 groups, 5 rows)")
	assert.Contains(t, view, "Mean Size")
	assert.Contains(t, view, "enter: open group")

	m.Update(key("down"))
	m.Update(key("enter"))
	require.Equal(t, "B", m.drilled)
	assert.Equal(t, []int{1, 3, 4}, m.rows.Indices)
	assert.Equal(t, []string{"b", "d", "e"}, intutil.IDs(m.rows))

	view = m.View()
	assert.Contains(t, view, "tumours: B (3 rows)")
	assert.Contains(t, view, "esc: back")

	// enter on the rows table does not drill further
	m.Update(key("enter"))
	assert.Equal(t, "B", m.drilled)

	m.Update(key("esc"))
	assert.Empty(t, m.drilled)
	assert.Equal(t, 1, m.table.Cursor(), "the picked group stays under the cursor")
	assert.Len(t, m.table.Rows(), 2)
}

func TestExplorer_Quit(t *testing.T) {
	for _, k := range []string{"q", "ctrl+c"} {
		t.Run(k, func(t *testing.T) {
			m := explorerFixture(t)
			_, cmd := m.Update(key(k))
			require.NotNil(t, cmd)
			assert.IsType(t, tea.QuitMsg{}, cmd())
		})
	}
}

func TestExplorer_EmptyView(t *testing.T) {
	schema := core.MustSchema(core.Field{Name: "class", Kind: core.KindString})
	m := newExplorer("empty", schema, core.DerivedView{GroupFields: []string{"class"}})

	m.Update(key("enter"))
	assert.Empty(t, m.drilled)
	assert.NoError(t, m.err)
	assert.Contains(t, m.View(), "(0 groups, 0 rows)")
}

func TestColumns(t *testing.T) {
	cols := columns(chart.TableData{
		Columns: []string{"A", "Long header"},
		Rows:    [][]string{{"wider value", "x"}, {strings.Repeat("z", 40), "y"}},
	})
	assert.Equal(t, maxColumnWidth, cols[0].Width)
	assert.Equal(t, len("Long header"), cols[1].Width)
}

func TestSessionSecret(t *testing.T) {
	t.Setenv("CHARTLINK_SESSION_SECRET", "from-env")
	assert.Equal(t, "from-config", sessionSecret(&config.UIConfig{SessionSecret: "from-config"}))
	assert.Equal(t, "from-env", sessionSecret(&config.UIConfig{}))
}
