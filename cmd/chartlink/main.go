// Package main provides the chartlink CLI.
package main

import (
	"os"

	"github.com/leapstack-labs/chartlink/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
