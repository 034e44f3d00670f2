// Package main is the autodash command.
package main

import (
	"os"

	"github.com/leapstack-labs/autodash/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
