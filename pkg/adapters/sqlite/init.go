package sqlite

import (
	"log/slog"

	"github.com/leapstack-labs/dbpilot/pkg/adapter"
)

// Importing this package registers the SQLite adapter as "sqlite" and "sqlite3".
func init() {
	adapter.Register("sqlite", func(logger *slog.Logger) adapter.Adapter { return New(logger) }, "sqlite3")
}
