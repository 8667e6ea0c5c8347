package adapter

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/leapstack-labs/dbpilot/pkg/core"
)

// BaseSQLAdapter provides common database/sql functionality for adapters.
// Embed this struct in concrete adapter implementations to get standard
// Close, Exec, ExecTx and Query implementations.
type BaseSQLAdapter struct {
	DB     *sql.DB
	Cfg    core.AdapterConfig
	Logger *slog.Logger
}

// Close closes the database connection.
func (b *BaseSQLAdapter) Close() error {
	if b.DB != nil {
		if b.Logger != nil {
			b.Logger.Debug("closing database connection")
		}
		err := b.DB.Close()
		b.DB = nil
		return err
	}
	return nil
}

// Exec executes a statement that doesn't return rows.
func (b *BaseSQLAdapter) Exec(ctx context.Context, sqlStr string, args ...any) (int64, error) {
	if b.DB == nil {
		return 0, core.ErrNotConnected
	}
	res, err := b.DB.ExecContext(ctx, sqlStr, bindArgs(args)...)
	if err != nil {
		return 0, fmt.Errorf("failed to execute SQL: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		// DDL on some drivers does not report a count
		return 0, nil
	}
	return n, nil
}

// ExecTx executes the statements in order inside one transaction.
func (b *BaseSQLAdapter) ExecTx(ctx context.Context, stmts []string) error {
	if b.DB == nil {
		return core.ErrNotConnected
	}
	tx, err := b.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to execute SQL: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Query executes a statement that returns rows and collects them.
func (b *BaseSQLAdapter) Query(ctx context.Context, sqlStr string, args ...any) (*core.Table, error) {
	if b.DB == nil {
		return nil, core.ErrNotConnected
	}
	rows, err := b.DB.QueryContext(ctx, sqlStr, bindArgs(args)...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return ScanTable(rows)
}

// IsConnected returns true if the database connection is established.
func (b *BaseSQLAdapter) IsConnected() bool {
	return b.DB != nil
}

// ScanTable reads every row of rows into a core.Table. Byte slices are
// returned as strings.
func ScanTable(rows *sql.Rows) (*core.Table, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}

	table := &core.Table{Columns: cols, Rows: [][]any{}}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		for i, v := range values {
			if bs, ok := v.([]byte); ok {
				values[i] = string(bs)
			}
		}
		table.Rows = append(table.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return table, nil
}

// ListTablesCommon lists base tables of the dialect's default schema using
// information_schema.tables.
func (b *BaseSQLAdapter) ListTablesCommon(ctx context.Context, d *Dialect) ([]string, error) {
	if b.DB == nil {
		return nil, core.ErrNotConnected
	}

	schema := d.DefaultSchema
	if b.Cfg.Schema != "" {
		schema = b.Cfg.Schema
	}

	//nolint:gosec // Placeholders are safe - they come from dialect.FormatPlaceholder
	query := fmt.Sprintf(`
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = %s AND table_type = 'BASE TABLE'
		ORDER BY table_name
	`, d.FormatPlaceholder(1))

	rows, err := b.DB.QueryContext(ctx, query, schema)
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

// DescribeCommon provides a shared implementation of Describe.
// Uses information_schema.columns with dialect-appropriate placeholders.
func (b *BaseSQLAdapter) DescribeCommon(ctx context.Context, table string, d *Dialect) (*core.TableMetadata, error) {
	if b.DB == nil {
		return nil, core.ErrNotConnected
	}

	schema, tableName := ParseQualifiedName(table, d)
	if !strings.Contains(table, ".") && b.Cfg.Schema != "" {
		schema = b.Cfg.Schema
	}

	//nolint:gosec // Placeholders are safe - they come from dialect.FormatPlaceholder
	query := fmt.Sprintf(`
		SELECT
			column_name,
			data_type,
			is_nullable,
			ordinal_position
		FROM information_schema.columns
		WHERE table_schema = %s AND table_name = %s
		ORDER BY ordinal_position
	`, d.FormatPlaceholder(1), d.FormatPlaceholder(2))

	rows, err := b.DB.QueryContext(ctx, query, schema, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to query column metadata: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var columns []core.Column
	for rows.Next() {
		var col core.Column
		var nullable string
		if err := rows.Scan(&col.Name, &col.Type, &nullable, &col.Position); err != nil {
			return nil, fmt.Errorf("failed to scan column metadata: %w", err)
		}
		col.Nullable = nullable == "YES"
		columns = append(columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating column metadata: %w", err)
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("table %s %w", table, core.ErrTableNotFound)
	}

	return &core.TableMetadata{
		Schema:   schema,
		Name:     tableName,
		Columns:  columns,
		RowCount: b.countRows(ctx, d.QuoteTable(schema+"."+tableName)),
	}, nil
}

// countRows is best effort; failures report zero.
func (b *BaseSQLAdapter) countRows(ctx context.Context, quoted string) int64 {
	var n int64
	//nolint:gosec // identifiers are quoted by the dialect
	if err := b.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+quoted).Scan(&n); err != nil {
		return 0
	}
	return n
}

// CopyRowsCommon loads rows with one prepared INSERT executed per row inside
// a single transaction. Adapters with a native bulk path override CopyRows.
func (b *BaseSQLAdapter) CopyRowsCommon(ctx context.Context, d *Dialect, table string, columns []string, rows [][]any) (int64, error) {
	if b.DB == nil {
		return 0, core.ErrNotConnected
	}
	if len(rows) == 0 {
		return 0, nil
	}

	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = d.QuoteIdent(c)
	}
	//nolint:gosec // identifiers are quoted by the dialect
	insert := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		d.QuoteTable(table), strings.Join(quoted, ", "), d.Placeholders(1, len(columns)))

	tx, err := b.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	var n int64
	for _, row := range rows {
		if _, err := stmt.ExecContext(ctx, bindArgs(row)...); err != nil {
			_ = tx.Rollback()
			return 0, fmt.Errorf("failed to insert row %d: %w", n+1, err)
		}
		n++
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit rows: %w", err)
	}
	return n, nil
}

// bindArgs encodes structured values as JSON text so every driver can bind
// them.
func bindArgs(args []any) []any {
	out := make([]any, len(args))
	for i, a := range args {
		switch v := a.(type) {
		case core.Document, map[string]any, []any:
			data, err := json.Marshal(v)
			if err != nil {
				out[i] = a
				continue
			}
			out[i] = string(data)
		default:
			out[i] = a
		}
	}
	return out
}
