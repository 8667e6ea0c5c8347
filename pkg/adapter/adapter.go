// Package adapter provides the relational database adapter contract used by
// dbpilot's operation handlers.
//
// Concrete adapter implementations are in pkg/adapters/ subdirectories and
// register themselves by name in init().
package adapter

import (
	"context"

	"github.com/leapstack-labs/dbpilot/pkg/core"
)

// Adapter defines the interface that all relational adapters must implement.
type Adapter interface {
	// Connect establishes a connection to the database using the provided config.
	Connect(ctx context.Context, cfg core.AdapterConfig) error

	// Close closes the database connection and releases resources.
	Close() error

	// Exec executes a statement that doesn't return rows and reports the
	// number of affected rows.
	Exec(ctx context.Context, sql string, args ...any) (int64, error)

	// ExecTx executes the statements in order inside one transaction.
	ExecTx(ctx context.Context, stmts []string) error

	// Query executes a statement that returns rows.
	Query(ctx context.Context, sql string, args ...any) (*core.Table, error)

	// ListTables returns the tables of the default schema, sorted.
	ListTables(ctx context.Context) ([]string, error)

	// Describe retrieves column metadata for a table.
	Describe(ctx context.Context, table string) (*core.TableMetadata, error)

	// CopyRows bulk-loads rows into an existing table and reports how many
	// were written.
	CopyRows(ctx context.Context, table string, columns []string, rows [][]any) (int64, error)

	// Dialect returns the SQL dialect of this adapter.
	Dialect() *Dialect
}
