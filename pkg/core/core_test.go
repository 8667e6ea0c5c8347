package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestOperations_ClosedSet(t *testing.T) {
	ops := Operations()
	require.Len(t, ops, 24)

	perBackend := map[Backend]int{}
	seen := map[Operation]bool{}
	for _, info := range ops {
		assert.False(t, seen[info.Operation], "duplicate operation %s", info.Operation)
		seen[info.Operation] = true
		perBackend[info.Backend]++
		assert.True(t, info.Operation.Known())
		assert.NotEmpty(t, info.Summary)
	}
	assert.Equal(t, 14, perBackend[BackendRelational])
	assert.Equal(t, 10, perBackend[BackendDocument])

	assert.False(t, Operation("drop_database").Known())
}

func TestOperation_Info(t *testing.T) {
	tests := []struct {
		op       Operation
		backend  Backend
		category Category
	}{
		{OpViewTable, BackendRelational, CategoryQuery},
		{OpCreateTableFromCSV, BackendRelational, CategoryImport},
		{OpAddMultipleColumns, BackendRelational, CategoryDDL},
		{OpUpdateRow, BackendRelational, CategoryDML},
		{OpRunAggregation, BackendDocument, CategoryQuery},
		{OpRenameCollection, BackendDocument, CategoryDDL},
	}

	for _, tt := range tests {
		t.Run(string(tt.op), func(t *testing.T) {
			info, ok := tt.op.Info()
			require.True(t, ok)
			assert.Equal(t, tt.backend, info.Backend)
			assert.Equal(t, tt.category, info.Category)
		})
	}
}

func TestParseBackend(t *testing.T) {
	b, err := ParseBackend("Mongo")
	require.NoError(t, err)
	assert.Equal(t, BackendDocument, b)

	b, err = ParseBackend("relational")
	require.NoError(t, err)
	assert.Equal(t, BackendRelational, b)

	_, err = ParseBackend("redis")
	assert.Error(t, err)
}

func TestParseStorageType(t *testing.T) {
	tests := []struct {
		input string
		want  StorageType
		ok    bool
	}{
		{"integer", TypeInteger, true},
		{" Text ", TypeText, true},
		{"double   precision", TypeDoublePrecision, true},
		{"varchar(255)", "VARCHAR(255)", true},
		{"numeric(10, 2)", "NUMERIC(10, 2)", true},
		{"jsonb", TypeJSONB, true},
		{"", "", false},
		{"string", "", false},
		{"varchar(255", "", false},
		{"42", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ParseStorageType(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
	assert.Equal(t, TypeVarchar, StorageType("VARCHAR(10)").Base())
}

func TestColumnSchema_Validate(t *testing.T) {
	assert.NoError(t, ColumnSchema{{Name: "id", Type: TypeInteger}, {Name: "ID", Type: TypeText}}.Validate())

	var pe *ParamError
	require.ErrorAs(t, ColumnSchema{}.Validate(), &pe)
	require.ErrorAs(t, ColumnSchema{{Name: "a"}, {Name: "a"}}.Validate(), &pe)
	assert.Contains(t, pe.Reason, "duplicate")
}

func TestParseIntent(t *testing.T) {
	t.Run("plain json", func(t *testing.T) {
		intent, err := ParseIntent([]byte(`{"operation":"view_table","target":"employees","parameters":{"limit":5}}`))
		require.NoError(t, err)
		assert.Equal(t, OpViewTable, intent.Operation)
		assert.Equal(t, "employees", intent.Target)
		assert.Equal(t, int64(5), intent.Parameters["limit"])
	})

	t.Run("code fence and nested numbers", func(t *testing.T) {
		input := "```json\n{\"operation\":\"add_document\",\"target\":\"users\",\"parameters\":{\"data\":{\"age\":30,\"score\":9.5,\"tags\":[1,2]}}}\n```"
		intent, err := ParseIntent([]byte(input))
		require.NoError(t, err)
		data, ok := intent.Parameters["data"].(Document)
		require.True(t, ok)
		assert.Equal(t, Document{
			{Key: "age", Value: int64(30)},
			{Key: "score", Value: 9.5},
			{Key: "tags", Value: []any{int64(1), int64(2)}},
		}, data)
	})

	t.Run("nested key order is kept", func(t *testing.T) {
		intent, err := ParseIntent([]byte(`{"operation":"run_aggregation","target":"users",
			"parameters":{"pipeline":[{"$sort":{"score":-1,"age":1}}]}}`))
		require.NoError(t, err)
		pipeline, ok := intent.Parameters["pipeline"].([]any)
		require.True(t, ok)
		require.Len(t, pipeline, 1)
		assert.Equal(t, Document{
			{Key: "$sort", Value: Document{{Key: "score", Value: int64(-1)}, {Key: "age", Value: int64(1)}}},
		}, pipeline[0])
	})

	t.Run("parameters must be an object", func(t *testing.T) {
		_, err := ParseIntent([]byte(`{"operation":"view_table","parameters":[1]}`))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "must be an object")
	})

	t.Run("null parameters", func(t *testing.T) {
		intent, err := ParseIntent([]byte(`{"operation":"list_tables","parameters":null}`))
		require.NoError(t, err)
		assert.Empty(t, intent.Parameters)
	})

	t.Run("unknown operation is preserved", func(t *testing.T) {
		intent, err := ParseIntent([]byte(`{"operation":"unknown","explanation":"cannot map request"}`))
		require.NoError(t, err)
		assert.False(t, intent.Operation.Known())
		assert.Equal(t, "cannot map request", intent.Explanation)
		assert.NotNil(t, intent.Parameters)
	})

	t.Run("missing operation", func(t *testing.T) {
		_, err := ParseIntent([]byte(`{"target":"x"}`))
		assert.Error(t, err)
	})

	t.Run("malformed", func(t *testing.T) {
		_, err := ParseIntent([]byte(`{"operation":`))
		assert.Error(t, err)
	})
}

func TestResult_MarshalJSON(t *testing.T) {
	tests := []struct {
		name   string
		result Result
		want   string
	}{
		{"message", MessageResult("Table '%s' created successfully", "t"), `{"ok":true,"kind":"message","message":"Table 't' created successfully"}`},
		{"zero count", CountResult(0), `{"ok":true,"kind":"count","count":0}`},
		{"empty names", NamesResult(nil), `{"ok":true,"kind":"names","names":[]}`},
		{"empty table", TableResult(&Table{Columns: []string{"id"}}), `{"ok":true,"kind":"table","table":{"columns":["id"],"rows":[]}}`},
		{"import", ImportResult(3, "Created table '%s' with %d records", "t", 3), `{"ok":true,"kind":"message","message":"Created table 't' with 3 records","count":3}`},
		{"failure", Failure(errors.New("boom\nsecond line")), `{"ok":false,"kind":"message","message":"boom; second line"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.result)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(data))

			var back Result
			require.NoError(t, json.Unmarshal(data, &back))
			assert.Equal(t, tt.result.OK, back.OK)
			assert.Equal(t, tt.result.Kind, back.Kind)
		})
	}
}

func TestResult_NamesShape(t *testing.T) {
	for _, names := range [][]string{nil, {}, {"a"}} {
		data, err := json.Marshal(Result{OK: true, Kind: KindNames, Names: names})
		require.NoError(t, err)

		var wire map[string]any
		require.NoError(t, json.Unmarshal(data, &wire))
		assert.Contains(t, wire, "names", string(data))
	}

	data, err := json.Marshal(MessageResult("done"))
	require.NoError(t, err)
	assert.NotContains(t, string(data), "names")

	var back Result
	require.NoError(t, json.Unmarshal([]byte(`{"ok":true,"kind":"names","names":[]}`), &back))
	assert.NotNil(t, back.Names)
	assert.Empty(t, back.Names)
}

func TestFailure_KeepsCause(t *testing.T) {
	cause := &ConnectionError{Backend: BackendDocument, Driver: "MongoDB", Err: errors.New("connection refused")}
	res := Failure(fmt.Errorf("wrapped: %w", cause))

	assert.False(t, res.OK)
	var ce *ConnectionError
	require.ErrorAs(t, res.Err, &ce)
	assert.Equal(t, BackendDocument, ce.Backend)

	data, err := json.Marshal(res)
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":false,"kind":"message","message":"wrapped: MongoDB connection error: connection refused"}`, string(data))
}

func TestResult_Summary(t *testing.T) {
	assert.Equal(t, "count: 4", CountResult(4).Summary())
	assert.Equal(t, "2 names", NamesResult([]string{"a", "b"}).Summary())
	assert.Equal(t, "1 rows", TableResult(&Table{Rows: [][]any{{1}}}).Summary())
	assert.Equal(t, "done", MessageResult("done").Summary())
}

func TestErrors(t *testing.T) {
	cause := errors.New(`relation "nope" does not exist`)

	exec := &BackendExecutionError{Operation: OpViewTable, Target: "nope", Err: cause}
	assert.ErrorIs(t, exec, cause)
	assert.Contains(t, exec.Error(), `relation "nope" does not exist`)

	conn := &ConnectionError{Backend: BackendRelational, Driver: "PostgreSQL", Err: cause}
	assert.Equal(t, `PostgreSQL connection error: relation "nope" does not exist`, conn.Error())

	unknown := &UnknownOperationError{Operation: "fly"}
	assert.Equal(t, "Operation 'fly' not implemented or recognized.", unknown.Error())

	imp := &ImportError{Target: "t", Stage: "load", Err: cause}
	assert.ErrorIs(t, imp, cause)
	assert.Contains(t, imp.Error(), "during load")
}

func TestDocument(t *testing.T) {
	var d Document
	d.Set("zeta", 1)
	d.Set("alpha", 2)
	d.Set("zeta", 3)

	assert.Equal(t, []string{"zeta", "alpha"}, d.Keys())
	v, ok := d.Get("zeta")
	assert.True(t, ok)
	assert.Equal(t, 3, v)
	_, ok = d.Get("missing")
	assert.False(t, ok)
	assert.Equal(t, map[string]any{"zeta": 3, "alpha": 2}, d.Map())

	data, err := json.Marshal(d)
	require.NoError(t, err)
	assert.Equal(t, `{"zeta":3,"alpha":2}`, string(data))

	data, err = json.Marshal(Document(nil))
	require.NoError(t, err)
	assert.Equal(t, `{}`, string(data))
}

func TestDocument_MarshalYAML(t *testing.T) {
	d := Document{
		{Key: "zeta", Value: 1},
		{Key: "alpha", Value: Document{{Key: "name", Value: "Ada"}, {Key: "city", Value: nil}}},
	}
	data, err := yaml.Marshal(d)
	require.NoError(t, err)
	assert.Equal(t, "zeta: 1\nalpha:\n    name: Ada\n    city: null\n", string(data))
}

func TestDocument_UnmarshalJSON(t *testing.T) {
	var d Document
	require.NoError(t, json.Unmarshal([]byte(`{"b":{"y":1,"x":[true,null,"s"]},"a":2.5}`), &d))
	assert.Equal(t, Document{
		{Key: "b", Value: Document{{Key: "y", Value: int64(1)}, {Key: "x", Value: []any{true, nil, "s"}}}},
		{Key: "a", Value: 2.5},
	}, d)

	assert.Error(t, json.Unmarshal([]byte(`[1,2]`), &d))
}

func TestDecodeJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  any
	}{
		{"scalar", `"x"`, "x"},
		{"integer", `42`, int64(42)},
		{"float", `4.5`, 4.5},
		{"empty object", `{}`, Document{}},
		{"empty array", `[]`, []any{}},
		{"repeated key", `{"a":1,"b":2,"a":3}`, Document{{Key: "a", Value: int64(3)}, {Key: "b", Value: int64(2)}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeJSON([]byte(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	for _, bad := range []string{``, `{"a":`, `{"a":1} {}`, `[1,]`} {
		_, err := DecodeJSON([]byte(bad))
		assert.Error(t, err, bad)
	}
}

func TestAsDocument(t *testing.T) {
	d, ok := AsDocument(map[string]any{"b": 1, "a": 2})
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, d.Keys())

	orig := Document{{Key: "b", Value: 1}, {Key: "a", Value: 2}}
	d, ok = AsDocument(orig)
	require.True(t, ok)
	assert.Equal(t, orig, d)

	_, ok = AsDocument("text")
	assert.False(t, ok)
}
