package commands

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/chartlink/internal/cli/config"
	"github.com/leapstack-labs/chartlink/internal/ui"
)

// ServeOptions holds options for the serve command.
type ServeOptions struct {
	Port      int
	NoBrowser bool
	Watch     bool
	Dev       bool
}

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	opts := &ServeOptions{}

	cmd := &cobra.Command{
		Use:     "serve",
		Aliases: []string{"ui"},
		Short:   "Serve the chartlink pages and dashboards",
		Long: `Start a local web server with the example dashboards.

Selecting, clicking or hovering on a chart updates the charts that
depend on it. Each browser session keeps its own selections.

Datasets loaded from local CSV files are watched and reloaded when the
file changes.`,
		Example: `  # Start on the default port
  chartlink serve

  # Start on a custom port without opening a browser
  chartlink serve --port 3000 --no-browser`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, opts)
		},
	}

	cmd.Flags().IntVar(&opts.Port, "port", 0, "Port to serve on (default: 8765)")
	cmd.Flags().BoolVar(&opts.NoBrowser, "no-browser", false, "Don't auto-open browser")
	cmd.Flags().BoolVar(&opts.Watch, "watch", true, "Reload CSV datasets when their files change")
	cmd.Flags().BoolVar(&opts.Dev, "dev", false, "Enable the live-reload endpoints")

	return cmd
}

func runServe(cmd *cobra.Command, opts *ServeOptions) error {
	cctx := NewCommandContext(cmd)
	uiCfg := cctx.Cfg.GetUIConfig()

	// CLI flags override config file
	port := uiCfg.Port
	if opts.Port != 0 {
		port = opts.Port
	}

	autoOpen := uiCfg.AutoOpen
	if opts.NoBrowser {
		autoOpen = false
	}

	watch := uiCfg.Watch
	if cmd.Flags().Changed("watch") {
		watch = opts.Watch
	}

	dev := uiCfg.Dev || opts.Dev

	registry, err := cctx.Registry()
	if err != nil {
		return fmt.Errorf("failed to configure datasets: %w", err)
	}

	server := ui.NewServer(ui.Config{
		Registry:      registry,
		Port:          port,
		Watch:         watch,
		SessionSecret: sessionSecret(uiCfg),
		SessionMaxAge: uiCfg.SessionMaxAge,
		WatchDebounce: uiCfg.WatchDebounce,
		Logger:        cctx.Logger,
		Dev:           dev,
	})

	url := fmt.Sprintf("http://localhost:%d", port)
	if autoOpen {
		go openBrowser(url)
	}

	cctx.Renderer.Success("Serving chartlink on " + url)
	cctx.Renderer.Println("Press Ctrl+C to stop")

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	return server.Serve(ctx)
}

// sessionSecret returns the configured cookie secret. An empty secret makes
// the server generate a random one per run.
func sessionSecret(uiCfg *config.UIConfig) string {
	if uiCfg.SessionSecret != "" {
		return uiCfg.SessionSecret
	}
	return os.Getenv(config.EnvPrefix + "SESSION_SECRET")
}

// openBrowser opens the default browser to the specified URL.
func openBrowser(url string) {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url) //nolint:noctx
	case "linux":
		cmd = exec.Command("xdg-open", url) //nolint:noctx
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url) //nolint:noctx
	default:
		return
	}

	_ = cmd.Start()
}
