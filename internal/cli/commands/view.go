package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/chartlink/internal/chart"
	"github.com/leapstack-labs/chartlink/internal/coupling"
	"github.com/leapstack-labs/chartlink/pkg/core"
)

// ViewOptions holds options for the view command.
type ViewOptions struct {
	Group []string
	Agg   []string
	Where []string
	Limit int
}

// NewViewCommand creates the view command.
func NewViewCommand() *cobra.Command {
	opts := &ViewOptions{}

	cmd := &cobra.Command{
		Use:   "view <dataset>",
		Short: "Group a dataset and print the derived view",
		Long: `Load a dataset, optionally filter its rows, and group them.

Without --group the matching rows are printed as they are. With --group
each distinct combination of the group fields becomes one row, with its
member count and any requested aggregates.

Aggregates are written op:field, where op is sum, mean, min or max.
A bare "count" is always included.`,
		Example: `  # Class counts of the breast-cancer sample
  chartlink view breast_cancer --group diagnosis

  # Per-ticker closing price statistics
  chartlink view stock_prices --group ticker --agg mean:close --agg max:close

  # First rows of one ticker
  chartlink view stock_prices --where ticker=AAPL --limit 5`,
		Args: cobra.ExactArgs(1),
		ValidArgsFunction: func(cmd *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
			if len(args) > 0 {
				return nil, cobra.ShellCompDirectiveNoFileComp
			}
			reg, err := NewCommandContext(cmd).Registry()
			if err != nil {
				return nil, cobra.ShellCompDirectiveError
			}
			return reg.Names(), cobra.ShellCompDirectiveNoFileComp
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runView(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringSliceVarP(&opts.Group, "group", "g", nil, "Fields to group by")
	cmd.Flags().StringArrayVarP(&opts.Agg, "agg", "a", nil, "Aggregate as op:field (repeatable)")
	cmd.Flags().StringArrayVarP(&opts.Where, "where", "w", nil, "Keep rows where field=value (repeatable)")
	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 20, "Maximum rows to print without --group (0 for all)")

	return cmd
}

func runView(cmd *cobra.Command, name string, opts *ViewOptions) error {
	cctx := NewCommandContext(cmd)

	aggs, err := parseAggregates(opts.Agg)
	if err != nil {
		return err
	}
	if len(opts.Group) == 0 && len(aggs) > 0 {
		return fmt.Errorf("--agg needs --group")
	}

	ds, rows, err := selectRows(cmd.Context(), cctx, name, opts.Where)
	if err != nil {
		return err
	}

	if len(opts.Group) == 0 {
		return printRows(cctx, ds.Schema, rows, opts.Limit)
	}

	view, err := coupling.Build(rows, opts.Group, aggs...)
	if err != nil {
		return err
	}
	t := chart.ViewTable(view)
	return cctx.Renderer.Table(t.Columns, t.Rows)
}

// parseAggregates parses --agg values. Count is always computed, so a
// requested count is dropped.
func parseAggregates(specs []string) ([]coupling.Aggregate, error) {
	aggs := make([]coupling.Aggregate, 0, len(specs))
	for _, s := range specs {
		a, err := coupling.ParseAggregate(s)
		if err != nil {
			return nil, err
		}
		if a.Op == coupling.OpCount {
			continue
		}
		aggs = append(aggs, a)
	}
	return aggs, nil
}

// selectRows loads a dataset and keeps the rows matching every filter.
func selectRows(ctx context.Context, cctx *CommandContext, name string, where []string) (*core.Dataset, core.RowSubset, error) {
	filters, err := parseFilters(where)
	if err != nil {
		return nil, core.RowSubset{}, err
	}

	ds, err := cctx.Dataset(ctx, name)
	if err != nil {
		return nil, core.RowSubset{}, err
	}

	for _, f := range filters {
		if _, _, ok := ds.Schema.Lookup(f.field); !ok {
			return nil, core.RowSubset{}, &core.UnknownFieldError{Field: f.field, Available: ds.Schema.Names()}
		}
	}
	rows := ds.Subset(func(r core.Record) bool {
		for _, f := range filters {
			if !coupling.FieldEquals(f.field, f.value)(r) {
				return false
			}
		}
		return true
	})

	cctx.Logger.Debug("rows selected", "dataset", name, "rows", rows.Len(), "of", ds.Len())
	return ds, rows, nil
}

type filter struct {
	field string
	value string
}

func parseFilters(where []string) ([]filter, error) {
	out := make([]filter, 0, len(where))
	for _, w := range where {
		field, value, ok := strings.Cut(w, "=")
		field = strings.TrimSpace(field)
		if !ok || field == "" {
			return nil, fmt.Errorf("invalid filter %q (want field=value)", w)
		}
		out = append(out, filter{field: field, value: strings.TrimSpace(value)})
	}
	return out, nil
}

func printRows(cctx *CommandContext, schema *core.Schema, rows core.RowSubset, limit int) error {
	t := chart.RowTable(schema, rows, limit)
	if err := cctx.Renderer.Table(t.Columns, t.Rows); err != nil {
		return err
	}
	if limit > 0 && rows.Len() > limit {
		cctx.Renderer.Println(fmt.Sprintf("... %d more rows", rows.Len()-limit))
	}
	return nil
}
