package schema

import (
	"strings"
	"testing"
	"time"

	"github.com/leapstack-labs/dbpilot/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strs(values ...string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		if v == "" {
			continue
		}
		out[i] = v
	}
	return out
}

func TestColumnType(t *testing.T) {
	tests := []struct {
		name   string
		values []any
		want   core.StorageType
	}{
		{"all null", strs("", "", ""), core.TypeText},
		{"null words", strs("NA", "null"), core.TypeText},
		{"zero and one", strs("0", "1", "1", "0"), core.TypeBoolean},
		{"zero one two", strs("0", "1", "2"), core.TypeInteger},
		{"only ones", strs("1", "1"), core.TypeInteger},
		{"native zero and one", []any{int64(0), int64(1)}, core.TypeBoolean},
		{"integers", strs("10", "-3", "", "42"), core.TypeInteger},
		{"iso dates", strs("2024-01-15", "2023-06-01"), core.TypeDate},
		{"iso timestamps", strs("2024-01-15T10:00:00", "2023-06-01T08:30:00"), core.TypeTimestamp},
		{"mixed date layouts", strs("2024-01-15", "01/15/2024"), core.TypeText},
		{"invalid calendar date", strs("2024-13-45"), core.TypeText},
		{"boolean words", strs("true", "no", "Y"), core.TypeBoolean},
		{"boolean words and digits", strs("true", "0"), core.TypeBoolean},
		{"floats", strs("9.99", "10", "1e3"), core.TypeFloat},
		{"json", strs(`{"a":1}`, `[1,2]`), core.TypeJSONB},
		{"one bad value disqualifies", strs("1", "2", "three"), core.TypeText},
		{"text", strs("Widget", "Gadget"), core.TypeText},
		{"native times", []any{time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}, core.TypeDate},
		{"native time of day", []any{time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC)}, core.TypeTimestamp},
		{"native times with one at midnight", []any{
			time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC),
			time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		}, core.TypeTimestamp},
		{"midnight timestamp text", strs("2024-01-15 00:00:00", "2024-01-16 00:00:00"), core.TypeTimestamp},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ColumnType(tt.values))
		})
	}
}

func TestColumnType_SampleLimit(t *testing.T) {
	values := make([]any, 0, SampleSize+1)
	for range SampleSize {
		values = append(values, "7")
	}
	// beyond the inspected window
	values = append(values, "not a number")
	assert.Equal(t, core.TypeInteger, ColumnType(values))
}

func TestReadCSV(t *testing.T) {
	input := "\ufeffid, name ,price,is_active\n1,Widget,9.99,true\n2,,1.50,false\n"
	frame, err := ReadCSV(strings.NewReader(input), CSVOptions{})
	require.NoError(t, err)

	assert.Equal(t, []string{"id", "name", "price", "is_active"}, frame.Columns)
	require.Len(t, frame.Rows, 2)
	assert.Equal(t, []any{"2", nil, "1.50", "false"}, frame.Rows[1])
	assert.Equal(t, []any{"1", "2"}, frame.Column(0))
}

func TestReadCSV_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		msg   string
	}{
		{"empty", "", "empty"},
		{"blank header", "a,,c\n1,2,3\n", "empty column name"},
		{"duplicate header", "a,a\n1,2\n", "repeats column"},
		{"ragged record", "a,b\n1,2,3\n", "record"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadCSV(strings.NewReader(tt.input), CSVOptions{})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestReadCSV_Delimiter(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		delimiter rune
	}{
		{"semicolon", "id;name;price\n1;\"Smith, Ann\";9,99\n", ';'},
		{"tab", "id\tname\tprice\n1\tSmith, Ann\t9,99\n", '\t'},
		{"pipe", "id|name|price\n1|Smith, Ann|9,99\n", '|'},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame, err := ReadCSV(strings.NewReader(tt.input), CSVOptions{Delimiter: tt.delimiter})
			require.NoError(t, err)
			assert.Equal(t, []string{"id", "name", "price"}, frame.Columns)
			require.Len(t, frame.Rows, 1)
			assert.Equal(t, []any{"1", "Smith, Ann", "9,99"}, frame.Rows[0])
		})
	}
}

func TestReadCSV_DefaultDelimiterIgnoresSemicolons(t *testing.T) {
	frame, err := ReadCSV(strings.NewReader("a;b\n1;2\n"), CSVOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"a;b"}, frame.Columns)
	assert.Equal(t, []any{"1;2"}, frame.Rows[0])
}

func TestSynthesize_EndToEnd(t *testing.T) {
	frame, err := ReadCSV(strings.NewReader("id,name,price,is_active\n1,Widget,9.99,true\n"), CSVOptions{})
	require.NoError(t, err)

	syn := Synthesize(frame)
	assert.Equal(t, core.ColumnSchema{
		{Name: "id", Type: core.TypeInteger},
		{Name: "name", Type: core.TypeText},
		{Name: "price", Type: core.TypeFloat},
		{Name: "is_active", Type: core.TypeBoolean},
	}, syn.Schema)
	require.Len(t, syn.Rows, 1)
	assert.Equal(t, []any{int64(1), "Widget", 9.99, true}, syn.Rows[0])
}

func TestSynthesize_CoercionFallback(t *testing.T) {
	frame := &Frame{
		Columns: []string{"hired", "meta", "flag"},
		Rows: [][]any{
			{"2022-04-01", `{"k":[1,2]}`, "0"},
			{"2023-01-31", `{"k":3}`, "1"},
			{nil, nil, nil},
		},
	}
	syn := Synthesize(frame)
	assert.Equal(t, core.TypeDate, syn.Schema[0].Type)
	assert.Equal(t, core.TypeJSONB, syn.Schema[1].Type)
	assert.Equal(t, core.TypeBoolean, syn.Schema[2].Type)

	assert.Equal(t, time.Date(2022, 4, 1, 0, 0, 0, 0, time.UTC), syn.Rows[0][0])
	assert.Equal(t, core.Document{{Key: "k", Value: []any{int64(1), int64(2)}}}, syn.Rows[0][1])
	assert.Equal(t, false, syn.Rows[0][2])
	assert.Equal(t, []any{nil, nil, nil}, syn.Rows[2])

	records := syn.Records()
	require.Len(t, records, 3)
	assert.Equal(t, []string{"hired", "meta", "flag"}, records[1].Keys())
	flag, ok := records[1].Get("flag")
	require.True(t, ok)
	assert.Equal(t, true, flag)
	assert.Equal(t, core.Document{{Key: "hired"}, {Key: "meta"}, {Key: "flag"}}, records[2])
}

func TestCoerce(t *testing.T) {
	tests := []struct {
		name  string
		value any
		typ   core.StorageType
		want  any
	}{
		{"int", "42", core.TypeInteger, int64(42)},
		{"int keeps bad cell", "4x", core.TypeInteger, "4x"},
		{"float", "1.5", core.TypeFloat, 1.5},
		{"float from int", int64(2), core.TypeFloat, 2.0},
		{"bool word", "Yes", core.TypeBoolean, true},
		{"bool keeps bad cell", "maybe", core.TypeBoolean, "maybe"},
		{"timestamp", "2024-01-15 10:00:00", core.TypeTimestamp, time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)},
		{"date keeps bad cell", "soon", core.TypeDate, "soon"},
		{"json keeps bad cell", "{oops", core.TypeJSONB, "{oops"},
		{"text from int", int64(5), core.TypeText, "5"},
		{"text from map", map[string]any{"a": "b"}, core.TypeText, `{"a":"b"}`},
		{"text from document", core.Document{{Key: "z", Value: 1}, {Key: "a", Value: 2}}, core.TypeText, `{"z":1,"a":2}`},
		{"json keeps key order", `{"z":1,"a":2}`, core.TypeJSONB, core.Document{{Key: "z", Value: int64(1)}, {Key: "a", Value: int64(2)}}},
		{"null word", "NULL", core.TypeText, nil},
		{"parameterized", "12", "NUMERIC(10,2)", 12.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Coerce(tt.value, tt.typ))
		})
	}
}

func TestResolveColumns(t *testing.T) {
	got := ResolveColumns(core.Document{
		{Key: "hired", Value: "2022-04-01"},
		{Key: "bonus", Value: int64(500)},
		{Key: "notes", Value: "text"},
		{Key: "code", Value: "varchar(20)"},
		{Key: "blob", Value: "not-a-type"},
		{Key: "email", Value: ""},
	})

	assert.Equal(t, core.ColumnSchema{
		{Name: "hired", Type: core.TypeDate},
		{Name: "bonus", Type: core.TypeInteger},
		{Name: "notes", Type: core.TypeText},
		{Name: "code", Type: "VARCHAR(20)"},
		{Name: "blob", Type: core.TypeText},
		{Name: "email", Type: core.TypeText},
	}, got)
}

func TestResolveColumn(t *testing.T) {
	tests := []struct {
		name   string
		column string
		typ    any
		sample any
		want   core.StorageType
	}{
		{"explicit type", "notes", "integer", "abc", core.TypeInteger},
		{"sample when type missing", "notes", nil, "2024-05-01", core.TypeDate},
		{"invalid type is a sample", "notes", "12.5", nil, core.TypeFloat},
		{"empty type uses name", "hire_date", "", nil, core.TypeDate},
		{"nothing uses name", "is_active", nil, nil, core.TypeBoolean},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveColumn(tt.column, tt.typ, tt.sample))
		})
	}
}

func TestFrameFromRecords(t *testing.T) {
	frame := FrameFromRecords([]core.Document{
		{{Key: "name", Value: "a"}, {Key: "age", Value: int64(3)}},
		{{Key: "email", Value: "b@example.com"}, {Key: "name", Value: "b"}},
	})
	assert.Equal(t, []string{"name", "age", "email"}, frame.Columns)
	assert.Equal(t, []any{"b", nil, "b@example.com"}, frame.Rows[1])
}
