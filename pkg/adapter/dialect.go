package adapter

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/dbpilot/pkg/core"
)

// Dialect holds the static SQL conventions of one relational engine.
type Dialect struct {
	// Name is the adapter identifier (e.g., "postgres", "duckdb").
	Name string

	// DisplayName is used in user-facing messages (e.g., "PostgreSQL").
	DisplayName string

	// DefaultSchema is the schema used for unqualified names.
	DefaultSchema string

	// Placeholder defines how query parameters are formatted.
	Placeholder core.PlaceholderStyle

	// MultiAddColumn reports whether one ALTER TABLE may carry several
	// ADD COLUMN clauses.
	MultiAddColumn bool

	// TypeNames overrides the spelling of storage types for this engine.
	TypeNames map[core.StorageType]string
}

// FormatPlaceholder returns the placeholder for the n-th (1-based) parameter.
func (d *Dialect) FormatPlaceholder(n int) string {
	if d.Placeholder == core.PlaceholderDollar {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

// Placeholders returns n comma-separated placeholders starting at start.
func (d *Dialect) Placeholders(start, n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = d.FormatPlaceholder(start + i)
	}
	return strings.Join(parts, ", ")
}

// QuoteIdent quotes a single identifier, doubling embedded quotes.
func (d *Dialect) QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// QuoteTable quotes a possibly schema-qualified table name part by part.
func (d *Dialect) QuoteTable(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = d.QuoteIdent(p)
	}
	return strings.Join(parts, ".")
}

// ColumnType returns the engine spelling of a storage type. Parameter lists
// such as "(255)" are kept.
func (d *Dialect) ColumnType(t core.StorageType) string {
	base := t.Base()
	name, ok := d.TypeNames[base]
	if !ok {
		return string(t)
	}
	return name + strings.TrimPrefix(string(t), string(base))
}

// ParseQualifiedName splits a table reference into schema and name.
// Uses the dialect's default schema if not specified.
func ParseQualifiedName(table string, d *Dialect) (schema, name string) {
	if parts := strings.SplitN(table, ".", 2); len(parts) == 2 {
		return parts[0], parts[1]
	}
	return d.DefaultSchema, table
}
