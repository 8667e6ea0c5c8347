// Package main provides the dbpilot command.
package main

import (
	"os"

	"github.com/leapstack-labs/dbpilot/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
