package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/chartlink/internal/cli/output"
	"github.com/leapstack-labs/chartlink/internal/dashboard"
	"github.com/leapstack-labs/chartlink/pkg/core"
)

const consolePrompt = "chartlink> "

// errQuit ends the console loop.
var errQuit = errors.New("quit")

// NewConsoleCommand creates the console command.
func NewConsoleCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "console <page>",
		Short: "Drive a dashboard interactively from the terminal",
		Long: `Mount a dashboard and deliver chart events or selector changes typed
at a prompt. After every line the state of each output is printed.

  select <source> <point>...   selection; a point is curve:point or point
  click <source> <point>       click
  hover <source> <point>       hover
  set <input> <value>          change a selector
  .outputs  .inputs  .reset  .help  .quit`,
		Example: `  chartlink console cancer`,
		Args:    cobra.ExactArgs(1),
		ValidArgsFunction: func(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
			if len(args) == 0 {
				return pageSlugs(true), cobra.ShellCompDirectiveNoFileComp
			}
			return nil, cobra.ShellCompDirectiveNoFileComp
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConsole(cmd, args[0])
		},
	}
}

func runConsole(cmd *cobra.Command, slug string) error {
	ctx := cmd.Context()
	cctx := NewCommandContext(cmd)

	page, d, err := cctx.Dashboard(ctx, slug)
	if err != nil {
		return err
	}
	c := &console{
		dashboard: d,
		renderer:  cctx.Renderer,
		reload: func(ctx context.Context) (*core.Dataset, error) {
			return cctx.Dataset(ctx, page.Dataset)
		},
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          consolePrompt,
		HistoryFile:     historyFile(),
		AutoComplete:    c.completer(),
		InterruptPrompt: "^C",
		EOFPrompt:       ".quit",
		Stdin:           io.NopCloser(cmd.InOrStdin()),
		Stdout:          cmd.OutOrStdout(),
		Stderr:          cmd.ErrOrStderr(),
	})
	if err != nil {
		return fmt.Errorf("failed to initialize console: %w", err)
	}
	defer func() { _ = rl.Close() }()

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s console. Type .help for commands, .quit to exit\n\n", page.Title)
	if err := printStages(c.renderer, []Stage{c.snapshot("initial")}); err != nil {
		return err
	}

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		err = c.exec(ctx, line)
		if errors.Is(err, errQuit) {
			return nil
		}
		if err != nil {
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
		}
	}
}

// historyFile keeps console history in the user cache directory. No
// history is kept when that directory is unavailable.
func historyFile() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return ""
	}
	dir = filepath.Join(dir, "chartlink")
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return ""
	}
	return filepath.Join(dir, "console_history")
}

// console applies typed lines to one dashboard.
type console struct {
	dashboard dashboard.Dashboard
	renderer  *output.Renderer
	reload    func(context.Context) (*core.Dataset, error)
	steps     int
}

// exec runs one line. It returns errQuit for .quit.
func (c *console) exec(ctx context.Context, line string) error {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}

	if strings.HasPrefix(line, ".") {
		return c.dotCommand(ctx, line)
	}

	st, err := ParseStep(line)
	if err != nil {
		return err
	}
	c.steps++
	stage, _ := runStep(ctx, c.dashboard, c.steps, st)
	return printStages(c.renderer, []Stage{stage})
}

func (c *console) dotCommand(ctx context.Context, line string) error {
	switch strings.ToLower(strings.Fields(line)[0]) {
	case ".quit", ".exit":
		return errQuit
	case ".help":
		c.renderer.Println(consoleHelp)
		return nil
	case ".outputs":
		return printStages(c.renderer, []Stage{c.snapshot("current")})
	case ".inputs":
		inputs := c.dashboard.Session().Inputs()
		names := make([]string, 0, len(inputs))
		for name := range inputs {
			names = append(names, name)
		}
		sort.Strings(names)
		rows := make([][]string, len(names))
		for i, name := range names {
			rows[i] = []string{name, inputs[name]}
		}
		return c.renderer.Table([]string{"Input", "Value"}, rows)
	case ".reset":
		ds, err := c.reload(ctx)
		if err != nil {
			return err
		}
		c.steps++
		results := c.dashboard.Reset(ctx, ds)
		return printStages(c.renderer, []Stage{{
			Step:    c.steps,
			Trigger: fmt.Sprintf("reset (%d rows)", ds.Len()),
			Results: describe(c.dashboard, results, "unchanged"),
		}})
	}
	return fmt.Errorf("unknown command %s (type .help for commands)", line)
}

func (c *console) snapshot(trigger string) Stage {
	return Stage{Trigger: trigger, Results: describe(c.dashboard, nil, trigger)}
}

// completer offers event kinds with the dashboard's outputs as sources,
// and selectors with their options.
func (c *console) completer() *readline.PrefixCompleter {
	sources := func(string) []string { return c.dashboard.Session().Sources() }

	inputs := make([]readline.PrefixCompleterInterface, 0, len(c.dashboard.Selectors()))
	for _, sel := range c.dashboard.Selectors() {
		opts := make([]readline.PrefixCompleterInterface, len(sel.Options))
		for i, o := range sel.Options {
			opts[i] = readline.PcItem(o)
		}
		inputs = append(inputs, readline.PcItem(sel.Signal, opts...))
	}

	return readline.NewPrefixCompleter(
		readline.PcItem("select", readline.PcItemDynamic(sources)),
		readline.PcItem("click", readline.PcItemDynamic(sources)),
		readline.PcItem("hover", readline.PcItemDynamic(sources)),
		readline.PcItem("set", inputs...),
		readline.PcItem(".outputs"),
		readline.PcItem(".inputs"),
		readline.PcItem(".reset"),
		readline.PcItem(".help"),
		readline.PcItem(".quit"),
	)
}

const consoleHelp = `Commands:
  select <source> <point>...   deliver a selection; a point is curve:point or point
  click <source> <point>       deliver a click
  hover <source> <point>       deliver a hover
  set <input> <value>          change a selector (also set input=value)
  .outputs                     show every output
  .inputs                      show selector values
  .reset                       reload the dataset
  .help                        show this help
  .quit                        exit`

// ParseStep parses one console line into a step.
func ParseStep(line string) (Step, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Step{}, errors.New("empty step")
	}

	if strings.EqualFold(fields[0], "set") {
		args := fields[1:]
		if len(args) == 1 {
			if k, v, ok := strings.Cut(args[0], "="); ok {
				args = []string{k, v}
			}
		}
		if len(args) != 2 || args[0] == "" {
			return Step{}, errors.New("usage: set <input> <value>")
		}
		return Step{Input: map[string]string{args[0]: args[1]}}, nil
	}

	kind, err := core.ParseEventKind(fields[0])
	if err != nil {
		return Step{}, err
	}
	if len(fields) < 2 {
		return Step{}, fmt.Errorf("usage: %s <source> <point>...", fields[0])
	}
	ev := &core.ChartEvent{SourceID: fields[1], Kind: kind}
	for _, f := range fields[2:] {
		p, err := parsePoint(f)
		if err != nil {
			return Step{}, err
		}
		ev.Points = append(ev.Points, p)
	}
	if kind != core.EventSelected && len(ev.Points) != 1 {
		return Step{}, fmt.Errorf("%s takes exactly one point", kind)
	}
	return Step{Event: ev}, nil
}

func parsePoint(s string) (core.Point, error) {
	curve, point := "0", s
	if c, p, ok := strings.Cut(s, ":"); ok {
		curve, point = c, p
	}
	ci, err := strconv.Atoi(curve)
	if err != nil || ci < 0 {
		return core.Point{}, fmt.Errorf("invalid point %q (want curve:point or point)", s)
	}
	pi, err := strconv.Atoi(point)
	if err != nil || pi < 0 {
		return core.Point{}, fmt.Errorf("invalid point %q (want curve:point or point)", s)
	}
	return core.Point{CurveIndex: ci, PointIndex: pi}, nil
}
