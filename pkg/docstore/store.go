// Package docstore defines the document store contract used by dbpilot's
// collection operations.
//
// Documents, filters, updates and pipeline stages are core.Documents, so
// field order reaches the database as the caller wrote it. Single-key
// extended JSON objects such as {"$oid": "..."} or {"$date": "..."} are
// converted to native values by the implementation.
package docstore

import (
	"context"
	"strings"

	"github.com/leapstack-labs/dbpilot/pkg/core"
)

// DefaultDatabase is used when no database name is configured.
const DefaultDatabase = "test"

// Store is implemented by document database backends.
type Store interface {
	// Connect opens the client and selects the configured database.
	Connect(ctx context.Context, cfg core.DocumentConfig) error

	// Close disconnects the client.
	Close(ctx context.Context) error

	// ListCollections returns collection names, sorted.
	ListCollections(ctx context.Context) ([]string, error)

	// CreateCollection creates an empty collection.
	CreateCollection(ctx context.Context, name string) error

	// RenameCollection renames a collection inside the current database.
	RenameCollection(ctx context.Context, from, to string) error

	// InsertOne inserts one document and returns its _id as text.
	InsertOne(ctx context.Context, collection string, doc core.Document) (string, error)

	// InsertMany inserts documents in one batch and reports how many were written.
	InsertMany(ctx context.Context, collection string, docs []core.Document) (int64, error)

	// Find returns up to limit matching documents as a table whose columns are
	// the union of document keys in first-seen order.
	Find(ctx context.Context, collection string, filter core.Document, limit int64) (*core.Table, error)

	// Count returns the number of matching documents.
	Count(ctx context.Context, collection string, filter core.Document) (int64, error)

	// UpdateMany applies update to every matching document and reports the
	// number modified.
	UpdateMany(ctx context.Context, collection string, filter, update core.Document) (int64, error)

	// DeleteMany removes every matching document and reports the number removed.
	DeleteMany(ctx context.Context, collection string, filter core.Document) (int64, error)

	// Aggregate runs a pipeline and returns the output documents as a table.
	Aggregate(ctx context.Context, collection string, pipeline []any) (*core.Table, error)
}

// IsUpdateDocument reports whether update already uses update operators
// ($set, $inc, ...). Bare field maps are wrapped in $set by callers.
func IsUpdateDocument(update core.Document) bool {
	for _, f := range update {
		if strings.HasPrefix(f.Key, "$") {
			return true
		}
	}
	return false
}
