package commands

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/chartlink/internal/chart"
	"github.com/leapstack-labs/chartlink/internal/coupling"
	"github.com/leapstack-labs/chartlink/pkg/core"
)

// groupsSource tags events raised by picking a row of the groups table.
const groupsSource = "groups"

const (
	maxColumnWidth = 24
	tableHeight    = 15
)

// ErrNotTerminal is returned when explore is run without a terminal.
var ErrNotTerminal = errors.New("explore needs an interactive terminal; use view instead")

// ExploreOptions holds options for the explore command.
type ExploreOptions struct {
	Group []string
	Agg   []string
	Where []string
}

// NewExploreCommand creates the explore command.
func NewExploreCommand() *cobra.Command {
	opts := &ExploreOptions{}

	cmd := &cobra.Command{
		Use:   "explore <dataset>",
		Short: "Browse a derived view and drill into its groups",
		Long: `Open an interactive table of a dataset's groups. Press enter on a
group to list its rows, esc to go back, q to quit.`,
		Example: `  chartlink explore breast_cancer --group diagnosis --agg mean:radius_mean
  chartlink explore stock_prices --group ticker --agg max:close`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExplore(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringSliceVarP(&opts.Group, "group", "g", nil, "Fields to group by (required)")
	cmd.Flags().StringArrayVarP(&opts.Agg, "agg", "a", nil, "Aggregate as op:field (repeatable)")
	cmd.Flags().StringArrayVarP(&opts.Where, "where", "w", nil, "Keep rows where field=value (repeatable)")
	_ = cmd.MarkFlagRequired("group")

	return cmd
}

func runExplore(cmd *cobra.Command, name string, opts *ExploreOptions) error {
	cctx := NewCommandContext(cmd)
	if !cctx.Renderer.IsTTY() {
		return ErrNotTerminal
	}

	aggs, err := parseAggregates(opts.Agg)
	if err != nil {
		return err
	}
	ds, rows, err := selectRows(cmd.Context(), cctx, name, opts.Where)
	if err != nil {
		return err
	}
	view, err := coupling.Build(rows, opts.Group, aggs...)
	if err != nil {
		return err
	}

	m := newExplorer(name, ds.Schema, view)
	p := tea.NewProgram(m,
		tea.WithInput(cmd.InOrStdin()),
		tea.WithOutput(cmd.OutOrStdout()),
		tea.WithAltScreen(),
		tea.WithContext(cmd.Context()),
	)
	_, err = p.Run()
	if errors.Is(err, tea.ErrProgramKilled) {
		return nil
	}
	return err
}

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	helpStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	frameStyle = lipgloss.NewStyle().BorderStyle(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("8"))
)

// explorer is the bubbletea model behind explore. It shows the groups of a
// derived view and, after a pick, the member rows of one group.
type explorer struct {
	name   string
	schema *core.Schema
	view   core.DerivedView
	table  table.Model

	// drilled is the label of the open group; empty on the groups table.
	drilled   string
	rows      core.RowSubset
	groupsPos int
	err       error
}

func newExplorer(name string, schema *core.Schema, view core.DerivedView) *explorer {
	t := table.New(table.WithFocused(true), table.WithHeight(tableHeight))
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("8")).
		BorderBottom(true).
		Bold(true)
	styles.Selected = styles.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57"))
	t.SetStyles(styles)

	m := &explorer{name: name, schema: schema, view: view, table: t}
	m.showGroups()
	return m
}

func (m *explorer) Init() tea.Cmd { return nil }

func (m *explorer) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "enter":
			if m.drilled == "" {
				m.drill()
				return m, nil
			}
		case "esc", "backspace":
			if m.drilled != "" {
				m.showGroups()
				return m, nil
			}
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m *explorer) View() string {
	var b strings.Builder
	title := fmt.Sprintf("%s by %s (%d groups, %d rows)",
		m.name, strings.Join(m.view.GroupFields, ", "), len(m.view.Groups), m.view.Total())
	help := "enter: open group  q: quit"
	if m.drilled != "" {
		title = fmt.Sprintf("%s: %s (%d rows)", m.name, m.drilled, m.rows.Len())
		help = "esc: back  q: quit"
	}
	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n")
	b.WriteString(frameStyle.Render(m.table.View()))
	b.WriteString("\n")
	if m.err != nil {
		b.WriteString(errStyle.Render(m.err.Error()))
		b.WriteString("\n")
	}
	b.WriteString(helpStyle.Render(help))
	b.WriteString("\n")
	return b.String()
}

// drill opens the group under the cursor. The pick goes through the same
// interpreter as a click on a bar of the derived view.
func (m *explorer) drill() {
	if m.view.Empty() {
		return
	}
	pos := m.table.Cursor()
	ev := &core.ChartEvent{
		SourceID: groupsSource,
		Kind:     core.EventClicked,
		Points:   []core.Point{{CurveIndex: 0, PointIndex: pos}},
	}
	rows, err := coupling.Drilldown(groupsSource, m.view, ev)
	if err != nil {
		m.err = err
		return
	}

	m.err = nil
	m.groupsPos = pos
	m.drilled = m.view.Groups[pos].Label()
	m.rows = rows
	m.setTable(chart.RowTable(m.schema, rows, 0))
	m.table.GotoTop()
}

func (m *explorer) showGroups() {
	m.drilled = ""
	m.rows = core.RowSubset{}
	m.setTable(chart.ViewTable(m.view))
	m.table.SetCursor(m.groupsPos)
}

// setTable replaces the table contents. Rows are cleared first so they
// never outnumber the columns while the columns change.
func (m *explorer) setTable(t chart.TableData) {
	m.table.SetRows(nil)
	m.table.SetColumns(columns(t))
	rows := make([]table.Row, len(t.Rows))
	for i, r := range t.Rows {
		rows[i] = table.Row(r)
	}
	m.table.SetRows(rows)
}

func columns(t chart.TableData) []table.Column {
	cols := make([]table.Column, len(t.Columns))
	for i, title := range t.Columns {
		w := utf8.RuneCountInString(title)
		for _, r := range t.Rows {
			if i < len(r) {
				w = max(w, utf8.RuneCountInString(r[i]))
			}
		}
		cols[i] = table.Column{Title: title, Width: min(w, maxColumnWidth)}
	}
	return cols
}
