package config

import (
	"fmt"
	"slices"
	"strings"

	"github.com/leapstack-labs/chartlink/internal/dataset"
)

// OutputModes are the accepted values of the output option.
var OutputModes = []string{"auto", "text", "markdown", "json"}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Output != "" && !slices.Contains(OutputModes, strings.ToLower(c.Output)) {
		return fmt.Errorf("invalid output format %q (use %s)", c.Output, strings.Join(OutputModes, ", "))
	}
	switch strings.ToLower(c.LogFormat) {
	case "", "text", "json":
	default:
		return fmt.Errorf("invalid log format %q (use text or json)", c.LogFormat)
	}
	if ui := c.UI; ui != nil && (ui.Port < 0 || ui.Port > 65535) {
		return fmt.Errorf("invalid ui port %d", ui.Port)
	}
	if ui := c.UI; ui != nil && (ui.SessionMaxAge < 0 || ui.WatchDebounce < 0) {
		return fmt.Errorf("ui durations must not be negative")
	}
	for name, ds := range c.Datasets {
		if _, err := dataset.New(name, ds); err != nil {
			return fmt.Errorf("invalid dataset configuration: %w", err)
		}
	}
	return nil
}
