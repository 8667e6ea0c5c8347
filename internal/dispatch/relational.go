package dispatch

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/leapstack-labs/dbpilot/pkg/adapter"
	"github.com/leapstack-labs/dbpilot/pkg/core"
	"github.com/leapstack-labs/dbpilot/pkg/schema"
)

func (d *Dispatcher) runRelational(ctx context.Context, in core.Intent) (core.Result, error) {
	if in.Operation != core.OpListTables && in.Operation != core.OpRunQuery {
		if err := requireTarget(in); err != nil {
			return core.Result{}, err
		}
	}

	a, err := d.conns.Relational(ctx)
	if err != nil {
		return core.Result{}, err
	}

	switch in.Operation {
	case core.OpListTables:
		return listTables(ctx, a, in)
	case core.OpViewTable:
		return viewTable(ctx, a, in)
	case core.OpCountRecords:
		return countRecords(ctx, a, in)
	case core.OpAddRecord:
		return addRecord(ctx, a, in)
	case core.OpDeleteRecord:
		return deleteRecord(ctx, a, in)
	case core.OpCreateTable:
		return d.createTable(ctx, a, in)
	case core.OpCreateTableFromCSV:
		return d.createTableFromCSV(ctx, a, in)
	case core.OpAddColumn:
		return addColumn(ctx, a, in)
	case core.OpAddMultipleColumns:
		return addMultipleColumns(ctx, a, in)
	case core.OpDeleteColumn:
		return deleteColumn(ctx, a, in)
	case core.OpRenameTable:
		return renameTable(ctx, a, in)
	case core.OpRenameColumn:
		return renameColumn(ctx, a, in)
	case core.OpUpdateRow:
		return updateRow(ctx, a, in)
	case core.OpRunQuery:
		return runQuery(ctx, a, in)
	default:
		return core.Result{}, &core.UnknownOperationError{Operation: string(in.Operation)}
	}
}

func listTables(ctx context.Context, a adapter.Adapter, in core.Intent) (core.Result, error) {
	names, err := a.ListTables(ctx)
	if err != nil {
		return core.Result{}, execErr(in, err)
	}
	return core.NamesResult(names), nil
}

func viewTable(ctx context.Context, a adapter.Adapter, in core.Intent) (core.Result, error) {
	var p viewTableParams
	if err := decodeParams(in, &p); err != nil {
		return core.Result{}, err
	}
	//nolint:gosec // identifiers are quoted by the dialect
	query := fmt.Sprintf("SELECT * FROM %s LIMIT %d", a.Dialect().QuoteTable(in.Target), limitOrDefault(p.Limit))
	table, err := a.Query(ctx, query)
	if err != nil {
		return core.Result{}, execErr(in, err)
	}
	return core.TableResult(table), nil
}

func countRecords(ctx context.Context, a adapter.Adapter, in core.Intent) (core.Result, error) {
	var p conditionParams
	if err := decodeParams(in, &p); err != nil {
		return core.Result{}, err
	}
	query := "SELECT COUNT(*) FROM " + a.Dialect().QuoteTable(in.Target)
	if cond := strings.TrimSpace(p.Condition); cond != "" {
		query += " WHERE " + cond
	}
	table, err := a.Query(ctx, query)
	if err != nil {
		return core.Result{}, execErr(in, err)
	}
	if table.Len() == 0 || len(table.Rows[0]) == 0 {
		return core.Result{}, execErr(in, fmt.Errorf("count query returned no rows"))
	}
	n, err := toInt64(table.Rows[0][0])
	if err != nil {
		return core.Result{}, execErr(in, err)
	}
	return core.CountResult(n), nil
}

func addRecord(ctx context.Context, a adapter.Adapter, in core.Intent) (core.Result, error) {
	var p dataParams
	if err := decodeParams(in, &p); err != nil {
		return core.Result{}, err
	}
	data, err := documentParam(in, "data", p.Data)
	if err != nil {
		return core.Result{}, err
	}
	if data.Len() == 0 {
		return core.Result{}, missing(in, "data")
	}

	d := a.Dialect()
	quoted := make([]string, len(data))
	args := make([]any, len(data))
	for i, f := range data {
		quoted[i] = d.QuoteIdent(f.Key)
		args[i] = f.Value
	}
	//nolint:gosec // identifiers are quoted by the dialect
	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		d.QuoteTable(in.Target), strings.Join(quoted, ", "), d.Placeholders(1, len(data)))

	if _, err := a.Exec(ctx, stmt, args...); err != nil {
		return core.Result{}, execErr(in, err)
	}
	return core.MessageResult("Record added successfully"), nil
}

func deleteRecord(ctx context.Context, a adapter.Adapter, in core.Intent) (core.Result, error) {
	var p conditionParams
	if err := decodeParams(in, &p); err != nil {
		return core.Result{}, err
	}
	cond := strings.TrimSpace(p.Condition)
	if cond == "" {
		return core.Result{}, missing(in, "condition")
	}
	n, err := a.Exec(ctx, "DELETE FROM "+a.Dialect().QuoteTable(in.Target)+" WHERE "+cond)
	if err != nil {
		return core.Result{}, execErr(in, err)
	}
	return core.MessageResult("%d records deleted", n), nil
}

func (d *Dispatcher) createTable(ctx context.Context, a adapter.Adapter, in core.Intent) (core.Result, error) {
	var p createTableParams
	if err := decodeParams(in, &p); err != nil {
		return core.Result{}, err
	}

	sample, err := documentsParam(in, "sample", p.Sample)
	if err != nil {
		return core.Result{}, err
	}
	if p.Columns == nil && len(sample) > 0 {
		syn := schema.Synthesize(schema.FrameFromRecords(sample))
		n, err := d.loadTable(ctx, a, in.Target, syn)
		if err != nil {
			return core.Result{}, err
		}
		return core.ImportResult(n, "Created table '%s' with %d records", in.Target, n), nil
	}

	cols, err := columnsSpec(in, "columns", p.Columns)
	if err != nil {
		return core.Result{}, err
	}
	if _, err := a.Exec(ctx, createTableSQL(a.Dialect(), in.Target, cols, false)); err != nil {
		return core.Result{}, execErr(in, err)
	}
	return core.MessageResult("Table '%s' created successfully", in.Target), nil
}

func addColumn(ctx context.Context, a adapter.Adapter, in core.Intent) (core.Result, error) {
	var p addColumnParams
	if err := decodeParams(in, &p); err != nil {
		return core.Result{}, err
	}
	name := strings.TrimSpace(p.ColumnName)
	if name == "" {
		return core.Result{}, missing(in, "column_name")
	}
	col := core.ColumnDef{Name: name, Type: schema.ResolveColumn(name, p.ColumnType, p.Sample)}

	if _, err := a.Exec(ctx, addColumnSQL(a.Dialect(), in.Target, col)); err != nil {
		return core.Result{}, execErr(in, err)
	}
	return core.MessageResult("Column '%s' added to table '%s'", name, in.Target), nil
}

func addMultipleColumns(ctx context.Context, a adapter.Adapter, in core.Intent) (core.Result, error) {
	var p addColumnsParams
	if err := decodeParams(in, &p); err != nil {
		return core.Result{}, err
	}
	cols, err := columnsSpec(in, "columns_data", p.ColumnsData)
	if err != nil {
		return core.Result{}, err
	}

	d := a.Dialect()
	if d.MultiAddColumn {
		clauses := make([]string, len(cols))
		for i, c := range cols {
			clauses[i] = "ADD COLUMN " + columnSQL(d, c)
		}
		stmt := "ALTER TABLE " + d.QuoteTable(in.Target) + " " + strings.Join(clauses, ", ")
		if _, err := a.Exec(ctx, stmt); err != nil {
			return core.Result{}, execErr(in, err)
		}
	} else {
		stmts := make([]string, len(cols))
		for i, c := range cols {
			stmts[i] = addColumnSQL(d, in.Target, c)
		}
		if err := a.ExecTx(ctx, stmts); err != nil {
			return core.Result{}, execErr(in, err)
		}
	}
	return core.MessageResult("Added columns %s to table '%s'", strings.Join(cols.Names(), ", "), in.Target), nil
}

func deleteColumn(ctx context.Context, a adapter.Adapter, in core.Intent) (core.Result, error) {
	var p columnParams
	if err := decodeParams(in, &p); err != nil {
		return core.Result{}, err
	}
	name := strings.TrimSpace(p.ColumnName)
	if name == "" {
		return core.Result{}, missing(in, "column_name")
	}
	d := a.Dialect()
	stmt := "ALTER TABLE " + d.QuoteTable(in.Target) + " DROP COLUMN " + d.QuoteIdent(name)
	if _, err := a.Exec(ctx, stmt); err != nil {
		return core.Result{}, execErr(in, err)
	}
	return core.MessageResult("Column '%s' deleted from table '%s'", name, in.Target), nil
}

func renameTable(ctx context.Context, a adapter.Adapter, in core.Intent) (core.Result, error) {
	var p renameParams
	if err := decodeParams(in, &p); err != nil {
		return core.Result{}, err
	}
	newName := strings.TrimSpace(p.NewName)
	if newName == "" {
		return core.Result{}, missing(in, "new_name")
	}
	d := a.Dialect()
	stmt := "ALTER TABLE " + d.QuoteTable(in.Target) + " RENAME TO " + d.QuoteIdent(newName)
	if _, err := a.Exec(ctx, stmt); err != nil {
		return core.Result{}, execErr(in, err)
	}
	return core.MessageResult("Table renamed from '%s' to '%s'", in.Target, newName), nil
}

func renameColumn(ctx context.Context, a adapter.Adapter, in core.Intent) (core.Result, error) {
	var p renameColumnParams
	if err := decodeParams(in, &p); err != nil {
		return core.Result{}, err
	}
	oldName, newName := strings.TrimSpace(p.OldName), strings.TrimSpace(p.NewName)
	if oldName == "" {
		return core.Result{}, missing(in, "old_name")
	}
	if newName == "" {
		return core.Result{}, missing(in, "new_name")
	}
	d := a.Dialect()
	stmt := "ALTER TABLE " + d.QuoteTable(in.Target) + " RENAME COLUMN " + d.QuoteIdent(oldName) + " TO " + d.QuoteIdent(newName)
	if _, err := a.Exec(ctx, stmt); err != nil {
		return core.Result{}, execErr(in, err)
	}
	return core.MessageResult("Column in table '%s' renamed from '%s' to '%s'", in.Target, oldName, newName), nil
}

func updateRow(ctx context.Context, a adapter.Adapter, in core.Intent) (core.Result, error) {
	var p updateRowParams
	if err := decodeParams(in, &p); err != nil {
		return core.Result{}, err
	}
	setValues, err := documentParam(in, "set_values", p.SetValues)
	if err != nil {
		return core.Result{}, err
	}
	if setValues.Len() == 0 {
		return core.Result{}, missing(in, "set_values")
	}
	cond := strings.TrimSpace(p.Condition)
	if cond == "" {
		return core.Result{}, missing(in, "condition")
	}

	d := a.Dialect()
	sets := make([]string, len(setValues))
	args := make([]any, len(setValues))
	for i, f := range setValues {
		sets[i] = d.QuoteIdent(f.Key) + " = " + d.FormatPlaceholder(i+1)
		args[i] = f.Value
	}
	stmt := "UPDATE " + d.QuoteTable(in.Target) + " SET " + strings.Join(sets, ", ") + " WHERE " + cond

	n, err := a.Exec(ctx, stmt, args...)
	if err != nil {
		return core.Result{}, execErr(in, err)
	}
	return core.MessageResult("%d rows updated in table '%s'", n, in.Target), nil
}

func runQuery(ctx context.Context, a adapter.Adapter, in core.Intent) (core.Result, error) {
	var p queryParams
	if err := decodeParams(in, &p); err != nil {
		return core.Result{}, err
	}
	query := strings.TrimSpace(p.Query)
	if query == "" {
		return core.Result{}, missing(in, "query")
	}

	if ReturnsRows(query) {
		table, err := a.Query(ctx, query, p.Params...)
		if err != nil {
			return core.Result{}, execErr(in, err)
		}
		return core.TableResult(table), nil
	}

	n, err := a.Exec(ctx, query, p.Params...)
	if err != nil {
		return core.Result{}, execErr(in, err)
	}
	return core.MessageResult("Query executed successfully. Affected rows: %d", n), nil
}

var rowKeywords = map[string]bool{
	"SELECT":   true,
	"WITH":     true,
	"SHOW":     true,
	"EXPLAIN":  true,
	"VALUES":   true,
	"PRAGMA":   true,
	"DESCRIBE": true,
}

// ReturnsRows reports whether query starts with a row-returning keyword.
// Leading whitespace, parentheses and SQL comments are skipped.
func ReturnsRows(query string) bool {
	s := query
	for {
		s = strings.TrimLeft(s, " \t\r\n(")
		switch {
		case strings.HasPrefix(s, "--"):
			i := strings.IndexByte(s, '\n')
			if i < 0 {
				return false
			}
			s = s[i+1:]
		case strings.HasPrefix(s, "/*"):
			i := strings.Index(s, "*/")
			if i < 0 {
				return false
			}
			s = s[i+2:]
		default:
			end := strings.IndexFunc(s, func(r rune) bool {
				return !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z')
			})
			if end < 0 {
				end = len(s)
			}
			return rowKeywords[strings.ToUpper(s[:end])]
		}
	}
}

func createTableSQL(d *adapter.Dialect, table string, cols core.ColumnSchema, ifNotExists bool) string {
	defs := make([]string, len(cols))
	for i, c := range cols {
		defs[i] = columnSQL(d, c)
	}
	verb := "CREATE TABLE "
	if ifNotExists {
		verb += "IF NOT EXISTS "
	}
	return verb + d.QuoteTable(table) + " (" + strings.Join(defs, ", ") + ")"
}

func addColumnSQL(d *adapter.Dialect, table string, c core.ColumnDef) string {
	return "ALTER TABLE " + d.QuoteTable(table) + " ADD COLUMN " + columnSQL(d, c)
}

func columnSQL(d *adapter.Dialect, c core.ColumnDef) string {
	return d.QuoteIdent(c.Name) + " " + d.ColumnType(c.Type)
}

func toInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case int32:
		return int64(n), nil
	case int:
		return int64(n), nil
	case uint64:
		return int64(n), nil //nolint:gosec // row counts fit in int64
	case float64:
		return int64(n), nil
	case string:
		return strconv.ParseInt(strings.TrimSpace(n), 10, 64)
	default:
		return 0, fmt.Errorf("unexpected count value %v (%T)", v, v)
	}
}
