package render

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/leapstack-labs/dbpilot/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func newTestRenderer(mode Mode) (*Renderer, *bytes.Buffer, *bytes.Buffer) {
	var out, errOut bytes.Buffer
	return NewRenderer(&out, &errOut, mode), &out, &errOut
}

var people = &core.Table{
	Columns: []string{"id", "name", "tags"},
	Rows: [][]any{
		{int64(1), "Ada", []any{"math"}},
		{int64(2), nil, map[string]any{"k": "v"}},
	},
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in   string
		want Mode
	}{
		{"", ModeAuto},
		{"auto", ModeAuto},
		{"TEXT", ModeText},
		{"table", ModeText},
		{"md", ModeMarkdown},
		{"markdown", ModeMarkdown},
		{"json", ModeJSON},
		{"csv", ModeCSV},
		{"yml", ModeYAML},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMode(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseMode("html")
	assert.Error(t, err)
}

func TestNewRenderer_AutoResolvesToMarkdownOffTerminal(t *testing.T) {
	r, _, _ := newTestRenderer(ModeAuto)
	assert.Equal(t, ModeMarkdown, r.Mode())
}

func TestResult_Text(t *testing.T) {
	tests := []struct {
		name string
		res  core.Result
		want []string
	}{
		{"message", core.MessageResult("Table 'users' created successfully"), []string{"Table 'users' created successfully"}},
		{"count", core.CountResult(42), []string{"Count: 42"}},
		{"names", core.NamesResult([]string{"orders", "users"}), []string{"orders", "users"}},
		{"no names", core.NamesResult(nil), []string{"No items found."}},
		{"table", core.TableResult(people), []string{"Ada", "NULL", `{"k":"v"}`, `["math"]`, "(2 rows)"}},
		{"empty table", core.TableResult(&core.Table{Columns: []string{"id"}}), []string{"(0 rows)"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, out, _ := newTestRenderer(ModeText)
			require.NoError(t, r.Result(tt.res))
			for _, w := range tt.want {
				assert.Contains(t, out.String(), w)
			}
		})
	}
}

func TestResult_FailureGoesToErrorWriter(t *testing.T) {
	r, out, errOut := newTestRenderer(ModeMarkdown)

	require.NoError(t, r.Result(core.Failure(&core.ParamError{Param: "target", Reason: "is required"})))
	assert.Empty(t, out.String())
	assert.Equal(t, "Error: invalid parameter \"target\": is required\n", errOut.String())
}

func TestResult_Markdown(t *testing.T) {
	r, out, _ := newTestRenderer(ModeMarkdown)

	require.NoError(t, r.Result(core.TableResult(&core.Table{
		Columns: []string{"id", "note"},
		Rows:    [][]any{{int64(1), "a|b"}},
	})))
	assert.Equal(t, "| id | note |\n| --- | --- |\n| 1 | a\\|b |\n\n(1 rows)\n", out.String())

	out.Reset()
	require.NoError(t, r.Result(core.NamesResult([]string{"users"})))
	assert.Equal(t, "- users\n", out.String())
}

func TestResult_JSON(t *testing.T) {
	r, out, _ := newTestRenderer(ModeJSON)

	require.NoError(t, r.Result(core.CountResult(3)))
	var got map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, true, got["ok"])
	assert.Equal(t, "count", got["kind"])
	assert.Equal(t, float64(3), got["count"])

	out.Reset()
	require.NoError(t, r.Result(core.Failure(assert.AnError)))
	got = nil
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, false, got["ok"])
	assert.Equal(t, assert.AnError.Error(), got["message"])
}

func TestResult_CSV(t *testing.T) {
	tests := []struct {
		name string
		res  core.Result
		want string
	}{
		{"table", core.TableResult(&core.Table{Columns: []string{"id", "name"}, Rows: [][]any{{int64(1), "Lovelace, Ada"}, {int64(2), nil}}}),
			"id,name\n1,\"Lovelace, Ada\"\n2,\n"},
		{"count", core.CountResult(7), "count\n7\n"},
		{"names", core.NamesResult([]string{"a", "b"}), "name\na\nb\n"},
		{"message", core.MessageResult("done"), "message\ndone\n"},
		{"failure", core.Failure(assert.AnError), "error\n" + assert.AnError.Error() + "\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, out, _ := newTestRenderer(ModeCSV)
			require.NoError(t, r.Result(tt.res))
			assert.Equal(t, tt.want, out.String())
		})
	}
}

func TestResult_YAML(t *testing.T) {
	r, out, _ := newTestRenderer(ModeYAML)

	require.NoError(t, r.Result(core.TableResult(people)))

	var got map[string]any
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, true, got["ok"])
	assert.Equal(t, "table", got["kind"])
	rows, ok := got["rows"].([]any)
	require.True(t, ok)
	require.Len(t, rows, 2)
	assert.Equal(t, "Ada", rows[0].(map[string]any)["name"])
}

func TestTable_RecordsKeepColumnOrder(t *testing.T) {
	table := &core.Table{Columns: []string{"name", "id"}, Rows: [][]any{{"Ada", int64(1)}}}

	r, out, _ := newTestRenderer(ModeJSON)
	require.NoError(t, r.Table(table))
	assert.Equal(t, "[\n  {\n    \"name\": \"Ada\",\n    \"id\": 1\n  }\n]\n", out.String())

	r, out, _ = newTestRenderer(ModeYAML)
	require.NoError(t, r.Table(table))
	assert.Equal(t, "- name: Ada\n  id: 1\n", out.String())
}

func TestResult_ImportCount(t *testing.T) {
	r, out, _ := newTestRenderer(ModeYAML)

	require.NoError(t, r.Result(core.ImportResult(2, "Created table '%s' with %d records", "p", 2)))

	var got map[string]any
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, "Created table 'p' with 2 records", got["message"])
	assert.Equal(t, 2, got["count"])
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"nil", nil, "NULL"},
		{"string", "x", "x"},
		{"bytes", []byte("raw"), "raw"},
		{"int", int64(5), "5"},
		{"float", 9.99, "9.99"},
		{"bool", true, "true"},
		{"date", time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), "2024-01-02"},
		{"timestamp", time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), "2024-01-02T03:04:05Z"},
		{"map", map[string]any{"a": 1}, `{"a":1}`},
		{"document", core.Document{{Key: "b", Value: 1}, {Key: "a", Value: 2}}, `{"b":1,"a":2}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatValue(tt.in))
		})
	}
}

func TestValue(t *testing.T) {
	r, out, _ := newTestRenderer(ModeText)
	require.NoError(t, r.Value(map[string]string{"a": "b"}))
	assert.JSONEq(t, `{"a":"b"}`, out.String())
}
