package duckdb

import (
	"log/slog"

	"github.com/leapstack-labs/dbpilot/pkg/adapter"
)

// Importing this package registers the DuckDB adapter as "duckdb".
func init() {
	adapter.Register("duckdb", func(logger *slog.Logger) adapter.Adapter { return New(logger) })
}
