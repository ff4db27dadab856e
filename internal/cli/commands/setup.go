package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/chartlink/internal/cli/config"
	"github.com/leapstack-labs/chartlink/internal/cli/output"
	"github.com/leapstack-labs/chartlink/internal/dashboard"
	"github.com/leapstack-labs/chartlink/internal/dataset"
	"github.com/leapstack-labs/chartlink/pkg/core"

	_ "github.com/leapstack-labs/chartlink/internal/dashboard/cancer" // registers the cancer page
	_ "github.com/leapstack-labs/chartlink/internal/dashboard/stocks" // registers the stocks page
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Renderer *output.Renderer
}

// NewCommandContext creates a CommandContext with a renderer for cmd's output.
func NewCommandContext(cmd *cobra.Command) *CommandContext {
	cfg := getConfig()
	logger := config.GetLogger(cmd.Context())
	r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.Output))

	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Renderer: r,
	}
}

// Registry builds the dataset registry from the configured datasets.
func (c *CommandContext) Registry() (*dataset.Registry, error) {
	return dataset.NewRegistryFromConfig(c.Cfg.Datasets, c.Logger)
}

// Dataset loads one dataset by name.
func (c *CommandContext) Dataset(ctx context.Context, name string) (*core.Dataset, error) {
	reg, err := c.Registry()
	if err != nil {
		return nil, err
	}
	return reg.Get(ctx, name)
}

// Dashboard loads the dataset of an interactive page and mounts its dashboard.
func (c *CommandContext) Dashboard(ctx context.Context, slug string) (dashboard.Page, dashboard.Dashboard, error) {
	page, err := dashboard.Get(slug)
	if err != nil {
		return dashboard.Page{}, nil, err
	}
	if !page.Interactive() {
		return page, nil, fmt.Errorf("page %q has no dashboard", slug)
	}
	ds, err := c.Dataset(ctx, page.Dataset)
	if err != nil {
		return page, nil, fmt.Errorf("failed to load dataset %q: %w", page.Dataset, err)
	}
	d, err := page.New(ctx, ds, dashboard.Options{Logger: c.Logger})
	if err != nil {
		return page, nil, fmt.Errorf("failed to build dashboard %q: %w", slug, err)
	}
	return page, d, nil
}

// getConfig returns the current configuration.
// It uses config.GetCurrentConfig() if available, otherwise falls back to
// defaults and environment variables.
func getConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}

	return &config.Config{
		Verbose:   os.Getenv(config.EnvPrefix+"VERBOSE") == "true",
		Output:    getEnvOrDefault(config.EnvPrefix+"OUTPUT", config.DefaultOutput),
		LogFormat: config.DefaultLogFormat,
		UI:        config.DefaultUIConfig(),
		Datasets:  config.WithBundledDatasets(nil),
	}
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
