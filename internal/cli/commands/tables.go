package commands

import (
	"github.com/leapstack-labs/dbpilot/internal/history"
	"github.com/leapstack-labs/dbpilot/pkg/core"
)

// operationsTable lists the operation set with its metadata.
func operationsTable() *core.Table {
	ops := core.Operations()
	t := &core.Table{Columns: []string{"operation", "backend", "category", "summary"}, Rows: make([][]any, len(ops))}
	for i, info := range ops {
		t.Rows[i] = []any{string(info.Operation), info.Backend.String(), info.Category.String(), info.Summary}
	}
	return t
}

// columnsTable lists the columns of a described table.
func columnsTable(meta *core.TableMetadata) *core.Table {
	t := &core.Table{Columns: []string{"column", "type", "nullable"}, Rows: make([][]any, len(meta.Columns))}
	for i, c := range meta.Columns {
		t.Rows[i] = []any{c.Name, c.Type, c.Nullable}
	}
	return t
}

// historyTable lists history entries, newest first.
func historyTable(entries []history.Entry) *core.Table {
	t := &core.Table{Columns: []string{"time", "operation", "target", "ok", "summary", "duration"}, Rows: make([][]any, len(entries))}
	for i, e := range entries {
		t.Rows[i] = []any{
			e.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			string(e.Operation),
			e.Target,
			e.OK,
			e.Summary,
			e.Duration.String(),
		}
	}
	return t
}
