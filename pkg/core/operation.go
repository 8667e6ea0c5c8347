package core

import (
	"fmt"
	"strings"
)

// Operation names one of the closed set of operations an Intent may request.
// Values that are not part of the set are preserved as-is so the dispatcher
// can report them back to the caller.
type Operation string

// Relational operations.
const (
	OpListTables         Operation = "list_tables"
	OpViewTable          Operation = "view_table"
	OpCountRecords       Operation = "count_records"
	OpAddRecord          Operation = "add_record"
	OpDeleteRecord       Operation = "delete_record"
	OpCreateTable        Operation = "create_table"
	OpCreateTableFromCSV Operation = "create_table_from_csv"
	OpAddColumn          Operation = "add_column"
	OpAddMultipleColumns Operation = "add_multiple_columns"
	OpDeleteColumn       Operation = "delete_column"
	OpRenameTable        Operation = "rename_table"
	OpRenameColumn       Operation = "rename_column"
	OpUpdateRow          Operation = "update_row"
	OpRunQuery           Operation = "run_query"
)

// Document operations.
const (
	OpListCollections         Operation = "list_collections"
	OpViewCollection          Operation = "view_collection"
	OpCountDocuments          Operation = "count_documents"
	OpAddDocument             Operation = "add_document"
	OpDeleteDocument          Operation = "delete_document"
	OpCreateCollection        Operation = "create_collection"
	OpCreateCollectionFromCSV Operation = "create_collection_from_csv"
	OpRenameCollection        Operation = "rename_collection"
	OpUpdateDocument          Operation = "update_document"
	OpRunAggregation          Operation = "run_aggregation"
)

// Backend identifies which store an operation runs against.
type Backend int

const (
	// BackendRelational is the SQL store (Postgres, DuckDB, SQLite).
	BackendRelational Backend = iota
	// BackendDocument is the document store (MongoDB).
	BackendDocument
)

// String returns the string representation of the Backend.
func (b Backend) String() string {
	switch b {
	case BackendRelational:
		return "relational"
	case BackendDocument:
		return "document"
	default:
		return "unknown"
	}
}

// Noun returns the word used for a backend's containers in messages.
func (b Backend) Noun() string {
	if b == BackendDocument {
		return "collection"
	}
	return "table"
}

// ParseBackend parses a backend name. Accepts "relational", "sql", "postgres",
// "document", "mongo" and "mongodb".
func ParseBackend(s string) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "relational", "sql", "postgres", "postgresql":
		return BackendRelational, nil
	case "document", "mongo", "mongodb":
		return BackendDocument, nil
	default:
		return 0, fmt.Errorf("unknown backend %q (want relational or document)", s)
	}
}

// Category classifies what an operation does to the store.
type Category int

const (
	// CategoryQuery reads without modifying.
	CategoryQuery Category = iota
	// CategoryDML modifies records or documents.
	CategoryDML
	// CategoryDDL modifies tables, columns or collections.
	CategoryDDL
	// CategoryImport creates a container and bulk-loads it.
	CategoryImport
)

// String returns the string representation of the Category.
func (c Category) String() string {
	switch c {
	case CategoryQuery:
		return "query"
	case CategoryDML:
		return "dml"
	case CategoryDDL:
		return "ddl"
	case CategoryImport:
		return "import"
	default:
		return "unknown"
	}
}

// OperationInfo is the static metadata attached to every operation.
type OperationInfo struct {
	Operation Operation
	Backend   Backend
	Category  Category
	Summary   string
}

var operations = []OperationInfo{
	{OpListTables, BackendRelational, CategoryQuery, "List tables in the default schema"},
	{OpViewTable, BackendRelational, CategoryQuery, "Show the first rows of a table"},
	{OpCountRecords, BackendRelational, CategoryQuery, "Count rows in a table"},
	{OpAddRecord, BackendRelational, CategoryDML, "Insert one row"},
	{OpDeleteRecord, BackendRelational, CategoryDML, "Delete rows matching a condition"},
	{OpCreateTable, BackendRelational, CategoryDDL, "Create a table, inferring missing column types"},
	{OpCreateTableFromCSV, BackendRelational, CategoryImport, "Create a table from CSV data and load it"},
	{OpAddColumn, BackendRelational, CategoryDDL, "Add one column"},
	{OpAddMultipleColumns, BackendRelational, CategoryDDL, "Add several columns in one statement"},
	{OpDeleteColumn, BackendRelational, CategoryDDL, "Drop a column"},
	{OpRenameTable, BackendRelational, CategoryDDL, "Rename a table"},
	{OpRenameColumn, BackendRelational, CategoryDDL, "Rename a column"},
	{OpUpdateRow, BackendRelational, CategoryDML, "Update rows matching a condition"},
	{OpRunQuery, BackendRelational, CategoryQuery, "Run raw SQL"},
	{OpListCollections, BackendDocument, CategoryQuery, "List collections"},
	{OpViewCollection, BackendDocument, CategoryQuery, "Show the first documents of a collection"},
	{OpCountDocuments, BackendDocument, CategoryQuery, "Count documents matching a filter"},
	{OpAddDocument, BackendDocument, CategoryDML, "Insert one document"},
	{OpDeleteDocument, BackendDocument, CategoryDML, "Delete documents matching a filter"},
	{OpCreateCollection, BackendDocument, CategoryDDL, "Create an empty collection"},
	{OpCreateCollectionFromCSV, BackendDocument, CategoryImport, "Create a collection from CSV data and load it"},
	{OpRenameCollection, BackendDocument, CategoryDDL, "Rename a collection"},
	{OpUpdateDocument, BackendDocument, CategoryDML, "Update documents matching a filter"},
	{OpRunAggregation, BackendDocument, CategoryQuery, "Run an aggregation pipeline"},
}

var operationIndex = func() map[Operation]OperationInfo {
	m := make(map[Operation]OperationInfo, len(operations))
	for _, info := range operations {
		m[info.Operation] = info
	}
	return m
}()

// Operations returns the metadata of every known operation, relational first.
func Operations() []OperationInfo {
	out := make([]OperationInfo, len(operations))
	copy(out, operations)
	return out
}

// Info returns the metadata for the operation, or false if it is not known.
func (o Operation) Info() (OperationInfo, bool) {
	info, ok := operationIndex[o]
	return info, ok
}

// Known reports whether o is a member of the closed operation set.
func (o Operation) Known() bool {
	_, ok := operationIndex[o]
	return ok
}

// String returns the operation name.
func (o Operation) String() string {
	return string(o)
}
