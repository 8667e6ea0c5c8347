package render

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/leapstack-labs/dbpilot/pkg/core"
	"gopkg.in/yaml.v3"
)

// NoItems is printed for an empty list of names.
const NoItems = "No items found."

// maxCellWidth caps text-mode columns so wide JSON values wrap.
const maxCellWidth = 60

// Result writes one dispatch result. Failures go to the error writer in the
// human modes and inline in the machine modes, so scripts always receive one
// document per result.
func (r *Renderer) Result(res core.Result) error {
	switch r.mode {
	case ModeJSON:
		return r.writeJSON(res)
	case ModeYAML:
		return r.writeYAML(resultDoc(res))
	case ModeCSV:
		if !res.OK {
			return r.writeCSV([]string{"error"}, [][]any{{res.Message}})
		}
		cols, rows := resultRows(res)
		return r.writeCSV(cols, rows)
	}

	if !res.OK {
		r.Errorf("%s", res.Message)
		return nil
	}

	switch res.Kind {
	case core.KindCount:
		r.Printf("Count: %d\n", res.Count)
	case core.KindNames:
		r.names(res.Names)
	case core.KindTable:
		return r.Table(res.Table)
	default:
		if r.mode == ModeText {
			r.Println(r.styles.Success.Render(res.Message))
		} else {
			r.Println(res.Message)
		}
	}
	return nil
}

func (r *Renderer) names(names []string) {
	if len(names) == 0 {
		r.Println(NoItems)
		return
	}
	for _, n := range names {
		if r.mode == ModeText {
			r.Printf("  %s %s\n", r.styles.Muted.Render("•"), n)
		} else {
			r.Printf("- %s\n", n)
		}
	}
}

// Table writes rows in the renderer's mode, followed by a row count in the
// human modes.
func (r *Renderer) Table(t *core.Table) error {
	if t == nil {
		t = &core.Table{}
	}
	switch r.mode {
	case ModeJSON:
		return r.writeJSON(tableRecords(t))
	case ModeYAML:
		return r.writeYAML(tableRecords(t))
	case ModeCSV:
		return r.writeCSV(t.Columns, t.Rows)
	case ModeMarkdown:
		r.markdownTable(t)
	default:
		r.textTable(t)
	}
	return nil
}

func (r *Renderer) textTable(t *core.Table) {
	if t.Len() == 0 {
		r.Println("(0 rows)")
		return
	}

	tw := table.NewWriter()
	tw.SetOutputMirror(r.out)
	tw.SetStyle(table.StyleLight)

	header := make(table.Row, len(t.Columns))
	configs := make([]table.ColumnConfig, len(t.Columns))
	for i, col := range t.Columns {
		header[i] = col
		configs[i] = table.ColumnConfig{Number: i + 1, WidthMax: maxCellWidth}
	}
	tw.AppendHeader(header)
	tw.SetColumnConfigs(configs)

	for _, row := range t.Rows {
		out := make(table.Row, len(t.Columns))
		for i := range t.Columns {
			if i < len(row) {
				out[i] = FormatValue(row[i])
			}
		}
		tw.AppendRow(out)
	}
	tw.Render()
	r.Printf("(%d rows)\n", t.Len())
}

func (r *Renderer) markdownTable(t *core.Table) {
	if t.Len() == 0 {
		r.Println("(0 rows)")
		return
	}

	r.Printf("| %s |\n", strings.Join(escapeCells(t.Columns), " | "))
	seps := make([]string, len(t.Columns))
	for i := range seps {
		seps[i] = "---"
	}
	r.Printf("| %s |\n", strings.Join(seps, " | "))

	for _, row := range t.Rows {
		values := make([]string, len(t.Columns))
		for i := range t.Columns {
			if i < len(row) {
				values[i] = FormatValue(row[i])
			}
		}
		r.Printf("| %s |\n", strings.Join(escapeCells(values), " | "))
	}
	r.Printf("\n(%d rows)\n", t.Len())
}

func escapeCells(cells []string) []string {
	out := make([]string, len(cells))
	for i, c := range cells {
		c = strings.ReplaceAll(c, "|", `\|`)
		out[i] = strings.ReplaceAll(c, "\n", " ")
	}
	return out
}

func (r *Renderer) writeJSON(v any) error {
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (r *Renderer) writeYAML(v any) error {
	enc := yaml.NewEncoder(r.out)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode yaml: %w", err)
	}
	return enc.Close()
}

func (r *Renderer) writeCSV(cols []string, rows [][]any) error {
	w := csv.NewWriter(r.out)
	if err := w.Write(cols); err != nil {
		return err
	}
	for _, row := range rows {
		rec := make([]string, len(cols))
		for i := range cols {
			if i < len(row) {
				rec[i] = csvValue(row[i])
			}
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// Value writes an arbitrary value as JSON or YAML. The human modes fall
// back to indented JSON.
func (r *Renderer) Value(v any) error {
	if r.mode == ModeYAML {
		return r.writeYAML(v)
	}
	return r.writeJSON(v)
}

// resultRows flattens any payload to columns and rows for CSV.
func resultRows(res core.Result) ([]string, [][]any) {
	switch res.Kind {
	case core.KindCount:
		return []string{"count"}, [][]any{{res.Count}}
	case core.KindNames:
		rows := make([][]any, len(res.Names))
		for i, n := range res.Names {
			rows[i] = []any{n}
		}
		return []string{"name"}, rows
	case core.KindTable:
		if res.Table == nil {
			return nil, nil
		}
		return res.Table.Columns, res.Table.Rows
	default:
		return []string{"message"}, [][]any{{res.Message}}
	}
}

// resultDoc mirrors the JSON wire form with ordered table rows as records.
func resultDoc(res core.Result) map[string]any {
	doc := map[string]any{"ok": res.OK, "kind": string(res.Kind)}
	if res.Kind == "" || !res.OK {
		doc["kind"] = string(core.KindMessage)
	}
	if res.Message != "" {
		doc["message"] = res.Message
	}
	if !res.OK {
		return doc
	}
	switch res.Kind {
	case core.KindCount:
		doc["count"] = res.Count
	case core.KindNames:
		names := res.Names
		if names == nil {
			names = []string{}
		}
		doc["names"] = names
	case core.KindTable:
		doc["rows"] = tableRecords(res.Table)
	}
	if res.Kind != core.KindCount && res.Count != 0 {
		doc["count"] = res.Count
	}
	return doc
}

// tableRecords converts rows to records keyed in column order.
func tableRecords(t *core.Table) []core.Document {
	records := make([]core.Document, 0, t.Len())
	if t == nil {
		return records
	}
	for _, row := range t.Rows {
		rec := make(core.Document, len(t.Columns))
		for i, col := range t.Columns {
			rec[i] = core.Field{Key: col}
			if i < len(row) {
				rec[i].Value = plainValue(row[i])
			}
		}
		records = append(records, rec)
	}
	return records
}

// FormatValue renders one cell for human output.
func FormatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case string:
		return val
	case []byte:
		return string(val)
	case time.Time:
		return formatTime(val)
	case core.Document, map[string]any, []any:
		data, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(data)
	default:
		return fmt.Sprint(val)
	}
}

func csvValue(v any) string {
	if v == nil {
		return ""
	}
	return FormatValue(v)
}

// plainValue makes a cell safe for the JSON and YAML encoders.
func plainValue(v any) any {
	switch val := v.(type) {
	case []byte:
		return string(val)
	case time.Time:
		return formatTime(val)
	default:
		return v
	}
}

func formatTime(t time.Time) string {
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
		return t.Format(time.DateOnly)
	}
	return t.Format(time.RFC3339)
}
