package postgres

import (
	"log/slog"

	"github.com/leapstack-labs/dbpilot/pkg/adapter"
)

// Importing this package registers the PostgreSQL adapter as "postgres", with the
// aliases "postgresql" and "pg".
func init() {
	adapter.Register("postgres", func(logger *slog.Logger) adapter.Adapter { return New(logger) }, "postgresql", "pg")
}
