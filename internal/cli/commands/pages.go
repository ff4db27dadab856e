package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/chartlink/internal/cli/output"
	"github.com/leapstack-labs/chartlink/internal/dashboard"
)

// NewPagesCommand creates the pages command.
func NewPagesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "pages [slug]",
		Short: "List the pages or print one page's narrative",
		Long: `Without arguments, list every page the server publishes.

With a page slug, print that page's narrative as markdown.`,
		Example: `  chartlink pages
  chartlink pages cancer -o markdown`,
		Args: cobra.MaximumNArgs(1),
		ValidArgsFunction: func(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
			if len(args) > 0 {
				return nil, cobra.ShellCompDirectiveNoFileComp
			}
			return pageSlugs(false), cobra.ShellCompDirectiveNoFileComp
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cctx := NewCommandContext(cmd)
			if len(args) == 0 {
				return listPages(cctx)
			}
			return showPage(cctx, args[0])
		},
	}
}

func listPages(cctx *CommandContext) error {
	pages := dashboard.Pages()
	rows := make([][]string, 0, len(pages))
	for _, p := range pages {
		interactive := "no"
		if p.Interactive() {
			interactive = "yes"
		}
		rows = append(rows, []string{"/" + p.Slug, p.Title, p.Dataset, interactive, p.DemoURL})
	}
	return cctx.Renderer.Table([]string{"Path", "Title", "Dataset", "Interactive", "Demo"}, rows)
}

func showPage(cctx *CommandContext, slug string) error {
	page, err := dashboard.Get(slug)
	if err != nil {
		return err
	}
	md, err := page.Markdown()
	if err != nil {
		return fmt.Errorf("failed to convert narrative of %q: %w", slug, err)
	}

	r := cctx.Renderer
	if r.Mode() == output.ModeJSON {
		return r.JSON(map[string]string{
			"slug":     page.Slug,
			"title":    page.Title,
			"summary":  page.Summary,
			"dataset":  page.Dataset,
			"demo_url": page.DemoURL,
			"markdown": md,
		})
	}

	r.Header(page.Title)
	if page.Summary != "" {
		r.Println(page.Summary)
		r.Println()
	}
	if md != "" {
		r.Markdown(md)
	}
	if page.DemoURL != "" {
		r.Println()
		r.Println("Demo: " + page.DemoURL)
	}
	return nil
}

// pageSlugs lists registered page slugs, optionally only interactive ones.
func pageSlugs(interactiveOnly bool) []string {
	var slugs []string
	for _, p := range dashboard.Pages() {
		if interactiveOnly && !p.Interactive() {
			continue
		}
		slugs = append(slugs, p.Slug)
	}
	return slugs
}
