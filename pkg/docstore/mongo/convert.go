package mongo

import (
	"encoding/json"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/leapstack-labs/dbpilot/pkg/core"
)

// extJSONKeys are the wrapper keys of MongoDB extended JSON values.
var extJSONKeys = map[string]bool{
	"$oid":               true,
	"$date":              true,
	"$numberLong":        true,
	"$numberInt":         true,
	"$numberDouble":      true,
	"$numberDecimal":     true,
	"$binary":            true,
	"$uuid":              true,
	"$regularExpression": true,
	"$timestamp":         true,
	"$minKey":            true,
	"$maxKey":            true,
	"$symbol":            true,
	"$code":              true,
}

// toBSON converts decoded JSON (Documents, slices, scalars) into BSON values.
// Document fields keep their order; plain maps are emitted in sorted key
// order. Extended JSON wrappers are decoded by the driver.
func toBSON(v any) (any, error) {
	switch val := v.(type) {
	case core.Document:
		if isExtJSON(val) {
			return fromExtJSON(val)
		}
		d := make(bson.D, len(val))
		for i, f := range val {
			item, err := toBSON(f.Value)
			if err != nil {
				return nil, err
			}
			d[i] = bson.E{Key: f.Key, Value: item}
		}
		return d, nil
	case map[string]any:
		doc, _ := core.AsDocument(val)
		return toBSON(doc)
	case []any:
		arr := make(bson.A, len(val))
		for i, item := range val {
			conv, err := toBSON(item)
			if err != nil {
				return nil, err
			}
			arr[i] = conv
		}
		return arr, nil
	default:
		return v, nil
	}
}

func isExtJSON(d core.Document) bool {
	return len(d) == 1 && extJSONKeys[d[0].Key]
}

// fromExtJSON hands a single extended JSON value to the driver's parser.
func fromExtJSON(d core.Document) (any, error) {
	data, err := json.Marshal(core.Document{{Key: "v", Value: d}})
	if err != nil {
		return nil, fmt.Errorf("invalid extended JSON value: %w", err)
	}
	var out bson.D
	if err := bson.UnmarshalExtJSON(data, false, &out); err != nil {
		return nil, fmt.Errorf("invalid extended JSON value: %w", err)
	}
	return out[0].Value, nil
}

// toDocument converts a Document into an ordered BSON document. A nil
// Document becomes an empty one.
func toDocument(doc core.Document) (bson.D, error) {
	if doc == nil {
		return bson.D{}, nil
	}
	v, err := toBSON(doc)
	if err != nil {
		return nil, err
	}
	d, ok := v.(bson.D)
	if !ok {
		return nil, fmt.Errorf("expected a document, got %T", v)
	}
	return d, nil
}

// toFilter is toDocument plus one convenience: a top-level _id given as a
// 24 character hex string matches the ObjectID it spells.
func toFilter(doc core.Document) (bson.D, error) {
	d, err := toDocument(doc)
	if err != nil {
		return nil, err
	}
	for i, e := range d {
		if e.Key != "_id" {
			continue
		}
		if s, ok := e.Value.(string); ok {
			if oid, err := primitive.ObjectIDFromHex(s); err == nil {
				d[i].Value = oid
			}
		}
	}
	return d, nil
}

func formatID(id any) string {
	if oid, ok := id.(primitive.ObjectID); ok {
		return oid.Hex()
	}
	return fmt.Sprint(id)
}

// documentsTable lays documents out as rows. Columns are the union of keys
// in first-seen order; absent fields are nil.
func documentsTable(docs []bson.D) *core.Table {
	table := &core.Table{Columns: []string{}, Rows: [][]any{}}
	index := map[string]int{}
	for _, doc := range docs {
		for _, e := range doc {
			if _, ok := index[e.Key]; !ok {
				index[e.Key] = len(table.Columns)
				table.Columns = append(table.Columns, e.Key)
			}
		}
	}
	for _, doc := range docs {
		row := make([]any, len(table.Columns))
		for _, e := range doc {
			row[index[e.Key]] = displayValue(e.Value)
		}
		table.Rows = append(table.Rows, row)
	}
	return table
}

// displayValue turns driver types into plain Go values for rendering.
func displayValue(v any) any {
	switch val := v.(type) {
	case primitive.ObjectID:
		return val.Hex()
	case primitive.DateTime:
		return val.Time().UTC()
	case primitive.Decimal128:
		return val.String()
	case bson.D:
		doc := make(core.Document, len(val))
		for i, e := range val {
			doc[i] = core.Field{Key: e.Key, Value: displayValue(e.Value)}
		}
		return doc
	case bson.M:
		m := make(map[string]any, len(val))
		for k, item := range val {
			m[k] = displayValue(item)
		}
		return m
	case bson.A:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = displayValue(item)
		}
		return out
	default:
		return v
	}
}
