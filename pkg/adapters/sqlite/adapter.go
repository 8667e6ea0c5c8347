// Package sqlite provides an embedded SQLite database adapter for dbpilot.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/leapstack-labs/dbpilot/pkg/adapter"
	"github.com/leapstack-labs/dbpilot/pkg/core"

	_ "modernc.org/sqlite" // sqlite driver
)

// Dialect describes SQLite SQL conventions.
var Dialect = &adapter.Dialect{
	Name:          "sqlite",
	DisplayName:   "SQLite",
	DefaultSchema: "main",
	Placeholder:   core.PlaceholderQuestion,
	TypeNames: map[core.StorageType]string{
		core.TypeJSONB: "JSON",
	},
}

// Adapter implements the adapter.Adapter interface for SQLite.
type Adapter struct {
	adapter.BaseSQLAdapter
}

// New creates a new SQLite adapter instance.
// If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Adapter{
		BaseSQLAdapter: adapter.BaseSQLAdapter{Logger: logger},
	}
}

// Dialect returns the SQLite dialect.
func (a *Adapter) Dialect() *adapter.Dialect {
	return Dialect
}

// Connect opens the database file at cfg.Path, or an in-memory database
// when the path is empty or ":memory:".
func (a *Adapter) Connect(ctx context.Context, cfg core.AdapterConfig) error {
	path := cfg.Path
	if path == "" {
		path = ":memory:"
	}

	a.Logger.Debug("connecting to sqlite", slog.String("path", path))

	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)")
	if err != nil {
		return fmt.Errorf("failed to open sqlite connection: %w", err)
	}

	// every new connection to :memory: is a fresh database
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping sqlite: %w", err)
	}

	a.DB = db
	a.Cfg = cfg
	return nil
}

// ListTables returns user tables from sqlite_master.
func (a *Adapter) ListTables(ctx context.Context) ([]string, error) {
	if a.DB == nil {
		return nil, core.ErrNotConnected
	}

	rows, err := a.DB.QueryContext(ctx, `
		SELECT name
		FROM sqlite_master
		WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
		ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	defer func() { _ = rows.Close() }()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan table name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tables: %w", err)
	}
	return names, nil
}

// Describe retrieves column metadata using PRAGMA table_info.
func (a *Adapter) Describe(ctx context.Context, table string) (*core.TableMetadata, error) {
	if a.DB == nil {
		return nil, core.ErrNotConnected
	}

	schema, name := adapter.ParseQualifiedName(table, Dialect)

	//nolint:gosec // identifiers are quoted by the dialect
	query := fmt.Sprintf("PRAGMA %s.table_info(%s)", Dialect.QuoteIdent(schema), Dialect.QuoteIdent(name))
	rows, err := a.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query column metadata: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var columns []core.Column
	for rows.Next() {
		var (
			cid     int
			col     core.Column
			notNull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &col.Name, &col.Type, &notNull, &dflt, &pk); err != nil {
			return nil, fmt.Errorf("failed to scan column metadata: %w", err)
		}
		col.Type = strings.ToUpper(col.Type)
		col.Nullable = notNull == 0
		col.Position = cid + 1
		columns = append(columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating column metadata: %w", err)
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("table %s %w", table, core.ErrTableNotFound)
	}

	var rowCount int64
	//nolint:gosec // identifiers are quoted by the dialect
	if err := a.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+Dialect.QuoteTable(table)).Scan(&rowCount); err != nil {
		rowCount = 0
	}

	return &core.TableMetadata{
		Schema:   schema,
		Name:     name,
		Columns:  columns,
		RowCount: rowCount,
	}, nil
}

// CopyRows loads rows with a prepared INSERT inside one transaction.
func (a *Adapter) CopyRows(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	return a.CopyRowsCommon(ctx, Dialect, table, columns, rows)
}

// Ensure Adapter implements adapter.Adapter interface
var _ adapter.Adapter = (*Adapter)(nil)
