package testutil

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/leapstack-labs/dbpilot/pkg/core"
	"github.com/leapstack-labs/dbpilot/pkg/docstore"
)

// MemoryStore is an in-memory docstore.Store for tests. Documents keep
// their field order. Filters match by top-level equality; updates support
// $set, $unset and $inc; aggregation supports $match and $limit stages.
type MemoryStore struct {
	mu          sync.Mutex
	collections map[string][]core.Document
	nextID      int

	// ConnectErr is returned by Connect when set.
	ConnectErr error
	// ConnectCalls counts Connect invocations.
	ConnectCalls int
	// CloseCalls counts Close invocations.
	CloseCalls int
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: map[string][]core.Document{}}
}

// Documents returns a copy of the documents in collection.
func (s *MemoryStore) Documents(collection string) []core.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	docs := s.collections[collection]
	out := make([]core.Document, len(docs))
	for i, d := range docs {
		out[i] = cloneDoc(d)
	}
	return out
}

func (s *MemoryStore) Connect(_ context.Context, _ core.DocumentConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ConnectCalls++
	return s.ConnectErr
}

func (s *MemoryStore) Close(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CloseCalls++
	return nil
}

func (s *MemoryStore) ListCollections(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.collections))
	for name := range s.collections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (s *MemoryStore) CreateCollection(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.collections[name]; ok {
		return fmt.Errorf("collection already exists: %s", name)
	}
	s.collections[name] = nil
	return nil
}

func (s *MemoryStore) RenameCollection(_ context.Context, from, to string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	docs, ok := s.collections[from]
	if !ok {
		return fmt.Errorf("source namespace does not exist: %s", from)
	}
	if _, exists := s.collections[to]; exists {
		return fmt.Errorf("target namespace exists: %s", to)
	}
	delete(s.collections, from)
	s.collections[to] = docs
	return nil
}

func (s *MemoryStore) InsertOne(_ context.Context, collection string, doc core.Document) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insert(collection, doc), nil
}

func (s *MemoryStore) InsertMany(_ context.Context, collection string, docs []core.Document) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range docs {
		s.insert(collection, d)
	}
	return int64(len(docs)), nil
}

func (s *MemoryStore) insert(collection string, doc core.Document) string {
	d := cloneDoc(doc)
	id, ok := d.Get("_id")
	if !ok {
		s.nextID++
		id = fmt.Sprintf("doc-%d", s.nextID)
		d = append(core.Document{{Key: "_id", Value: id}}, d...)
	}
	s.collections[collection] = append(s.collections[collection], d)
	return fmt.Sprint(id)
}

func (s *MemoryStore) Find(_ context.Context, collection string, filter core.Document, limit int64) (*core.Table, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Document
	for _, d := range s.collections[collection] {
		if limit > 0 && int64(len(out)) >= limit {
			break
		}
		if matches(d, filter) {
			out = append(out, d)
		}
	}
	return docsTable(out), nil
}

func (s *MemoryStore) Count(_ context.Context, collection string, filter core.Document) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, d := range s.collections[collection] {
		if matches(d, filter) {
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) UpdateMany(_ context.Context, collection string, filter, update core.Document) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !docstore.IsUpdateDocument(update) {
		return 0, fmt.Errorf("update document requires atomic operators")
	}
	docs := s.collections[collection]
	var n int64
	for i, d := range docs {
		if !matches(d, filter) {
			continue
		}
		next := cloneDoc(d)
		for _, op := range update {
			fields, ok := core.AsDocument(op.Value)
			if !ok {
				return n, fmt.Errorf("%s requires a document", op.Key)
			}
			for _, f := range fields {
				switch op.Key {
				case "$set":
					next.Set(f.Key, f.Value)
				case "$unset":
					next = without(next, f.Key)
				case "$inc":
					cur, _ := next.Get(f.Key)
					next.Set(f.Key, toFloat(cur)+toFloat(f.Value))
				default:
					return n, fmt.Errorf("unsupported update operator %s", op.Key)
				}
			}
		}
		if !reflect.DeepEqual(d, next) {
			docs[i] = next
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) DeleteMany(_ context.Context, collection string, filter core.Document) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var kept []core.Document
	var n int64
	for _, d := range s.collections[collection] {
		if matches(d, filter) {
			n++
			continue
		}
		kept = append(kept, d)
	}
	if _, ok := s.collections[collection]; ok {
		s.collections[collection] = kept
	}
	return n, nil
}

func (s *MemoryStore) Aggregate(_ context.Context, collection string, pipeline []any) (*core.Table, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	docs := append([]core.Document(nil), s.collections[collection]...)
	for _, raw := range pipeline {
		stage, ok := core.AsDocument(raw)
		if !ok || len(stage) != 1 {
			return nil, fmt.Errorf("a pipeline stage specification object must contain exactly one field")
		}
		op, arg := stage[0].Key, stage[0].Value
		switch op {
		case "$match":
			filter, _ := core.AsDocument(arg)
			var kept []core.Document
			for _, d := range docs {
				if matches(d, filter) {
					kept = append(kept, d)
				}
			}
			docs = kept
		case "$limit":
			if n := int(toFloat(arg)); n < len(docs) {
				docs = docs[:n]
			}
		default:
			return nil, fmt.Errorf("unrecognized pipeline stage name: '%s'", op)
		}
	}
	return docsTable(docs), nil
}

func matches(doc, filter core.Document) bool {
	for _, f := range filter {
		got, _ := doc.Get(f.Key)
		if !reflect.DeepEqual(got, f.Value) {
			return false
		}
	}
	return true
}

func docsTable(docs []core.Document) *core.Table {
	table := &core.Table{Columns: []string{}, Rows: [][]any{}}
	seen := map[string]int{}
	for _, d := range docs {
		for _, f := range d {
			if _, ok := seen[f.Key]; !ok {
				seen[f.Key] = len(table.Columns)
				table.Columns = append(table.Columns, f.Key)
			}
		}
	}
	for _, d := range docs {
		row := make([]any, len(table.Columns))
		for _, f := range d {
			row[seen[f.Key]] = f.Value
		}
		table.Rows = append(table.Rows, row)
	}
	return table
}

func cloneDoc(d core.Document) core.Document {
	return append(core.Document{}, d...)
}

func without(d core.Document, key string) core.Document {
	out := d[:0:0]
	for _, f := range d {
		if f.Key != key {
			out = append(out, f)
		}
	}
	return out
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case float64:
		return n
	default:
		return 0
	}
}

var _ docstore.Store = (*MemoryStore)(nil)
