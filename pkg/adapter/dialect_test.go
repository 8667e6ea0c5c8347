package adapter

import (
	"testing"

	"github.com/leapstack-labs/dbpilot/pkg/core"
	"github.com/stretchr/testify/assert"
)

func TestDialect_Placeholders(t *testing.T) {
	dollar := &Dialect{Placeholder: core.PlaceholderDollar}
	question := &Dialect{Placeholder: core.PlaceholderQuestion}

	assert.Equal(t, "$3", dollar.FormatPlaceholder(3))
	assert.Equal(t, "$2, $3, $4", dollar.Placeholders(2, 3))
	assert.Equal(t, "?", question.FormatPlaceholder(3))
	assert.Equal(t, "?, ?", question.Placeholders(1, 2))
	assert.Equal(t, "", question.Placeholders(1, 0))
}

func TestDialect_Quote(t *testing.T) {
	d := &Dialect{}

	tests := []struct {
		name  string
		input string
		ident string
		table string
	}{
		{"plain", "users", `"users"`, `"users"`},
		{"qualified", "sales.orders", `"sales.orders"`, `"sales"."orders"`},
		{"embedded quote", `we"ird`, `"we""ird"`, `"we""ird"`},
		{"spaces", "order items", `"order items"`, `"order items"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.ident, d.QuoteIdent(tt.input))
			assert.Equal(t, tt.table, d.QuoteTable(tt.input))
		})
	}
}

func TestDialect_ColumnType(t *testing.T) {
	d := &Dialect{TypeNames: map[core.StorageType]string{
		core.TypeJSONB: "JSON",
		core.TypeFloat: "DOUBLE",
	}}

	assert.Equal(t, "JSON", d.ColumnType(core.TypeJSONB))
	assert.Equal(t, "DOUBLE", d.ColumnType(core.TypeFloat))
	assert.Equal(t, "INTEGER", d.ColumnType(core.TypeInteger))
	assert.Equal(t, "VARCHAR(20)", d.ColumnType("VARCHAR(20)"))
}

func TestParseQualifiedName(t *testing.T) {
	d := &Dialect{DefaultSchema: "main"}

	schema, name := ParseQualifiedName("orders", d)
	assert.Equal(t, "main", schema)
	assert.Equal(t, "orders", name)

	schema, name = ParseQualifiedName("raw.orders", d)
	assert.Equal(t, "raw", schema)
	assert.Equal(t, "orders", name)
}
