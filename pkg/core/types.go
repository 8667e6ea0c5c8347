package core

import (
	"sort"
	"strings"
)

// StorageType is a column type name as understood by the relational store.
type StorageType string

// Types produced by inference.
const (
	TypeText      StorageType = "TEXT"
	TypeVarchar   StorageType = "VARCHAR"
	TypeInteger   StorageType = "INTEGER"
	TypeFloat     StorageType = "FLOAT"
	TypeBoolean   StorageType = "BOOLEAN"
	TypeDate      StorageType = "DATE"
	TypeTimestamp StorageType = "TIMESTAMP"
	TypeJSONB     StorageType = "JSONB"
)

// Additional names callers may request explicitly.
const (
	TypeChar            StorageType = "CHAR"
	TypeInt             StorageType = "INT"
	TypeBigint          StorageType = "BIGINT"
	TypeSmallint        StorageType = "SMALLINT"
	TypeReal            StorageType = "REAL"
	TypeDoublePrecision StorageType = "DOUBLE PRECISION"
	TypeNumeric         StorageType = "NUMERIC"
	TypeDecimal         StorageType = "DECIMAL"
	TypeTime            StorageType = "TIME"
	TypeJSON            StorageType = "JSON"
)

var knownTypes = map[StorageType]bool{
	TypeText: true, TypeVarchar: true, TypeChar: true,
	TypeInteger: true, TypeInt: true, TypeBigint: true, TypeSmallint: true,
	TypeFloat: true, TypeReal: true, TypeDoublePrecision: true,
	TypeNumeric: true, TypeDecimal: true,
	TypeBoolean: true,
	TypeDate: true, TypeTimestamp: true, TypeTime: true,
	TypeJSON: true, TypeJSONB: true,
}

// KnownTypes returns the accepted type names, sorted.
func KnownTypes() []StorageType {
	out := make([]StorageType, 0, len(knownTypes))
	for t := range knownTypes {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ParseStorageType normalizes s and reports whether it names an accepted type.
// Parameterized spellings such as "VARCHAR(255)" are accepted when their base
// name is known; the parameters are kept.
func ParseStorageType(s string) (StorageType, bool) {
	norm := strings.ToUpper(strings.Join(strings.Fields(s), " "))
	if norm == "" {
		return "", false
	}
	base := norm
	if i := strings.IndexByte(norm, '('); i >= 0 {
		if !strings.HasSuffix(norm, ")") {
			return "", false
		}
		base = strings.TrimSpace(norm[:i])
	}
	if !knownTypes[StorageType(base)] {
		return "", false
	}
	return StorageType(norm), true
}

// Base returns the type name without any parameter list.
func (t StorageType) Base() StorageType {
	if i := strings.IndexByte(string(t), '('); i >= 0 {
		return StorageType(strings.TrimSpace(string(t)[:i]))
	}
	return t
}

// ColumnDef is one column of a schema.
type ColumnDef struct {
	Name string      `json:"name"`
	Type StorageType `json:"type"`
}

// ColumnSchema is an ordered list of column definitions.
type ColumnSchema []ColumnDef

// Names returns the column names in order.
func (s ColumnSchema) Names() []string {
	out := make([]string, len(s))
	for i, c := range s {
		out[i] = c.Name
	}
	return out
}

// Validate checks that the schema is non-empty with unique, non-empty names.
func (s ColumnSchema) Validate() error {
	if len(s) == 0 {
		return &ParamError{Param: "columns", Reason: "at least one column is required"}
	}
	seen := make(map[string]bool, len(s))
	for _, c := range s {
		if c.Name == "" {
			return &ParamError{Param: "columns", Reason: "column name must not be empty"}
		}
		if seen[c.Name] {
			return &ParamError{Param: "columns", Reason: "duplicate column " + c.Name}
		}
		seen[c.Name] = true
	}
	return nil
}

// Column describes an existing column as reported by the store.
type Column struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Nullable bool   `json:"nullable"`
	Position int    `json:"position"`
}

// TableMetadata holds metadata about an existing table.
type TableMetadata struct {
	Schema   string   `json:"schema"`
	Name     string   `json:"name"`
	Columns  []Column `json:"columns"`
	RowCount int64    `json:"row_count"`
}
