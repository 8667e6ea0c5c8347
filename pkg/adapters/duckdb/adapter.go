// Package duckdb provides a DuckDB database adapter for dbpilot.
package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/dbpilot/pkg/adapter"
	"github.com/leapstack-labs/dbpilot/pkg/core"

	_ "github.com/marcboeker/go-duckdb" // duckdb driver
)

// Dialect describes DuckDB SQL conventions.
var Dialect = &adapter.Dialect{
	Name:          "duckdb",
	DisplayName:   "DuckDB",
	DefaultSchema: "main",
	Placeholder:   core.PlaceholderQuestion,
	TypeNames: map[core.StorageType]string{
		core.TypeFloat: "DOUBLE",
		core.TypeJSONB: "JSON",
	},
}

// Adapter implements the adapter.Adapter interface for DuckDB.
type Adapter struct {
	adapter.BaseSQLAdapter
}

// New creates a new DuckDB adapter instance.
// If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Adapter{
		BaseSQLAdapter: adapter.BaseSQLAdapter{Logger: logger},
	}
}

// Dialect returns the DuckDB dialect.
func (a *Adapter) Dialect() *adapter.Dialect {
	return Dialect
}

// Connect establishes a connection to DuckDB.
// Use ":memory:" (or an empty path) for an in-memory database.
func (a *Adapter) Connect(ctx context.Context, cfg core.AdapterConfig) error {
	path := cfg.Path
	if path == "" {
		path = ":memory:"
	}

	a.Logger.Debug("connecting to duckdb", slog.String("path", path))

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return fmt.Errorf("failed to open duckdb connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping duckdb: %w", err)
	}

	// in-memory databases live per connection
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	a.DB = db
	a.Cfg = cfg

	params, err := parseParams(cfg.Options)
	if err != nil {
		_ = a.Close()
		return err
	}
	if err := a.applyParams(ctx, params); err != nil {
		_ = a.Close()
		return err
	}
	return nil
}

// ListTables returns the base tables of the configured schema.
func (a *Adapter) ListTables(ctx context.Context) ([]string, error) {
	return a.ListTablesCommon(ctx, Dialect)
}

// Describe retrieves column metadata for a table.
func (a *Adapter) Describe(ctx context.Context, table string) (*core.TableMetadata, error) {
	return a.DescribeCommon(ctx, table, Dialect)
}

// CopyRows loads rows with a prepared INSERT inside one transaction.
func (a *Adapter) CopyRows(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	return a.CopyRowsCommon(ctx, Dialect, table, columns, rows)
}

// Ensure Adapter implements adapter.Adapter interface
var _ adapter.Adapter = (*Adapter)(nil)
