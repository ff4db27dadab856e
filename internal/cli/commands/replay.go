package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/leapstack-labs/chartlink/internal/cli/output"
	"github.com/leapstack-labs/chartlink/internal/coupling"
	"github.com/leapstack-labs/chartlink/internal/dashboard"
	"github.com/leapstack-labs/chartlink/pkg/core"
)

// Script is a recorded sequence of interactions with one dashboard.
type Script struct {
	Steps []Step `json:"steps" yaml:"steps"`
}

// Step is one interaction: selector changes or a chart event.
type Step struct {
	Name  string            `json:"name,omitempty" yaml:"name,omitempty"`
	Input map[string]string `json:"input,omitempty" yaml:"input,omitempty"`
	Event *core.ChartEvent  `json:"event,omitempty" yaml:"event,omitempty"`
}

// Describe returns a short description of the step.
func (s Step) Describe() string {
	if s.Name != "" {
		return s.Name
	}
	if s.Event != nil {
		return s.Event.String()
	}
	keys := make([]string, 0, len(s.Input))
	for k := range s.Input {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + s.Input[k]
	}
	return "set " + strings.Join(parts, ", ")
}

// ReadScript decodes a script. Files ending in .json are decoded as JSON
// (chart library field names); anything else as YAML.
func ReadScript(r io.Reader, name string) (*Script, error) {
	var s Script
	if strings.EqualFold(filepath.Ext(name), ".json") {
		if err := json.NewDecoder(r).Decode(&s); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", name, err)
		}
	} else {
		if err := yaml.NewDecoder(r).Decode(&s); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed to decode %s: %w", name, err)
		}
	}
	for i, st := range s.Steps {
		if st.Event == nil && len(st.Input) == 0 {
			return nil, fmt.Errorf("step %d: needs an input or an event", i+1)
		}
		if st.Event != nil && len(st.Input) > 0 {
			return nil, fmt.Errorf("step %d: has both an input and an event", i+1)
		}
	}
	return &s, nil
}

// StageResult is one output's state after a step.
type StageResult struct {
	Output  string `json:"output"`
	Outcome string `json:"outcome"`
	Summary string `json:"summary"`
	Error   string `json:"error,omitempty"`
}

// Stage is the result of one step.
type Stage struct {
	Step    int           `json:"step"`
	Trigger string        `json:"trigger"`
	Results []StageResult `json:"results"`
}

// ReplayOptions holds options for the replay command.
type ReplayOptions struct {
	Strict bool
}

// NewReplayCommand creates the replay command.
func NewReplayCommand() *cobra.Command {
	opts := &ReplayOptions{}

	cmd := &cobra.Command{
		Use:   "replay <page> <file>",
		Short: "Apply recorded interactions to a dashboard",
		Long: `Mount a dashboard, apply each step of a script and print what every
output shows afterwards.

A script lists steps; each step either sets selectors or delivers one
chart event. Use "-" to read the script from stdin (as YAML).

  steps:
    - input: {xFeature: area_mean}
    - event:
        source: scatter
        kind: selected
        points: [{curve: 0, point: 1}, {curve: 1, point: 0}]
    - event: {source: bars, kind: clicked, points: [{curve: 0, point: 0}]}

JSON scripts use the chart library's field names (curveNumber,
pointNumber).`,
		Example: `  chartlink replay cancer session.yaml
  chartlink replay stocks session.json --strict -o json`,
		Args: cobra.ExactArgs(2),
		ValidArgsFunction: func(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
			if len(args) == 0 {
				return pageSlugs(true), cobra.ShellCompDirectiveNoFileComp
			}
			return []string{"yaml", "yml", "json"}, cobra.ShellCompDirectiveFilterFileExt
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(cmd, args[0], args[1], opts)
		},
	}

	cmd.Flags().BoolVar(&opts.Strict, "strict", false, "Fail if any step is rejected")

	return cmd
}

func runReplay(cmd *cobra.Command, slug, file string, opts *ReplayOptions) error {
	cctx := NewCommandContext(cmd)

	script, err := openScript(cmd, file)
	if err != nil {
		return err
	}

	_, d, err := cctx.Dashboard(cmd.Context(), slug)
	if err != nil {
		return err
	}

	stages, failed := Replay(cmd.Context(), d, script)
	if err := printStages(cctx.Renderer, stages); err != nil {
		return err
	}

	if opts.Strict && failed > 0 {
		return fmt.Errorf("%d of %d steps failed", failed, len(script.Steps))
	}
	return nil
}

func openScript(cmd *cobra.Command, file string) (*Script, error) {
	if file == "-" {
		return ReadScript(cmd.InOrStdin(), "stdin")
	}
	f, err := os.Open(file) //nolint:gosec // path comes from the command line
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return ReadScript(f, file)
}

// Replay applies every step of script to d. The first stage is the
// dashboard's initial state. It returns the stages and the number of steps
// that failed.
func Replay(ctx context.Context, d dashboard.Dashboard, script *Script) ([]Stage, int) {
	stages := []Stage{{Trigger: "initial", Results: describe(d, nil, "initial")}}
	failed := 0

	for i, st := range script.Steps {
		stage, ok := runStep(ctx, d, i+1, st)
		if !ok {
			failed++
		}
		stages = append(stages, stage)
	}
	return stages, failed
}

// runStep applies one step and reports whether it succeeded.
func runStep(ctx context.Context, d dashboard.Dashboard, n int, st Step) (Stage, bool) {
	var results []coupling.Result
	var stepErr error
	if st.Event != nil {
		results = d.Session().Dispatch(ctx, coupling.Trigger{Event: st.Event})
	} else {
		results, stepErr = applyInputs(ctx, d, st.Input)
	}
	if stepErr == nil {
		stepErr = coupling.FirstError(results)
	}

	stage := Stage{Step: n, Trigger: st.Describe(), Results: describe(d, results, "unchanged")}
	if stepErr != nil && !reported(stage.Results) {
		stage.Results = append(stage.Results, StageResult{Outcome: coupling.OutcomeFailed.String(), Error: stepErr.Error()})
	}
	return stage, stepErr == nil
}

// reported reports whether some output result already carries an error.
func reported(results []StageResult) bool {
	for _, r := range results {
		if r.Error != "" {
			return true
		}
	}
	return false
}

func applyInputs(ctx context.Context, d dashboard.Dashboard, inputs map[string]string) ([]coupling.Result, error) {
	selectors := make(map[string]dashboard.Selector)
	for _, sel := range d.Selectors() {
		selectors[sel.Signal] = sel
	}

	names := make([]string, 0, len(inputs))
	for k := range inputs {
		names = append(names, k)
	}
	sort.Strings(names)

	var results []coupling.Result
	for _, name := range names {
		sel, ok := selectors[name]
		if !ok {
			return results, fmt.Errorf("unknown input %q", name)
		}
		v := inputs[name]
		if !slices.Contains(sel.Options, v) {
			return results, fmt.Errorf("unknown %s %q", strings.ToLower(sel.Label), v)
		}
		results = append(results, d.Session().SetInput(ctx, name, v)...)
	}
	return results, nil
}

// describe lists every output with its current summary. Outputs touched by
// results carry their outcome; the others are marked with fallback.
func describe(d dashboard.Dashboard, results []coupling.Result, fallback string) []StageResult {
	byOutput := make(map[string]coupling.Result, len(results))
	for _, r := range results {
		byOutput[r.Output] = r
	}

	out := make([]StageResult, 0, len(d.Outputs()))
	for _, name := range d.Outputs() {
		sr := StageResult{Output: name, Outcome: fallback, Summary: d.Summary(name)}
		if r, ok := byOutput[name]; ok {
			sr.Outcome = r.Outcome.String()
			if r.Err != nil {
				sr.Error = r.Err.Error()
			}
		}
		out = append(out, sr)
	}
	return out
}

func printStages(r *output.Renderer, stages []Stage) error {
	if r.Mode() == output.ModeJSON {
		return r.JSON(stages)
	}
	for _, st := range stages {
		title := fmt.Sprintf("Step %d: %s", st.Step, st.Trigger)
		switch {
		case st.Step > 0:
		case st.Trigger == "initial":
			title = "Initial state"
		default:
			title = "Current state"
		}
		r.Header(title)
		rows := make([][]string, 0, len(st.Results))
		for _, res := range st.Results {
			rows = append(rows, []string{res.Output, res.Outcome, res.Summary, res.Error})
		}
		if err := r.Table([]string{"Output", "Outcome", "Summary", "Error"}, rows); err != nil {
			return err
		}
		r.Println()
	}
	return nil
}
