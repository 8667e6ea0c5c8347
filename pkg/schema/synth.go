package schema

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/leapstack-labs/dbpilot/pkg/core"
	"github.com/leapstack-labs/dbpilot/pkg/infer"
)

// SampleSize is the number of non-null values inspected per column.
const SampleSize = 100

// Synthesis is a derived schema plus the input rows coerced to it.
type Synthesis struct {
	Schema core.ColumnSchema
	Rows   [][]any
}

// Records returns the coerced rows as documents whose fields follow the
// schema's column order.
func (s *Synthesis) Records() []core.Document {
	out := make([]core.Document, len(s.Rows))
	for i, row := range s.Rows {
		rec := make(core.Document, len(s.Schema))
		for j, col := range s.Schema {
			rec[j].Key = col.Name
			if j < len(row) {
				rec[j].Value = row[j]
			}
		}
		out[i] = rec
	}
	return out
}

// Synthesize derives a type for every column of the frame and coerces each
// cell to its column's native representation. Cells that fail coercion keep
// their original value.
func Synthesize(f *Frame) *Synthesis {
	syn := &Synthesis{Schema: make(core.ColumnSchema, len(f.Columns))}
	for i, name := range f.Columns {
		syn.Schema[i] = core.ColumnDef{Name: name, Type: ColumnType(f.Column(i))}
	}

	syn.Rows = make([][]any, len(f.Rows))
	for r, row := range f.Rows {
		coerced := make([]any, len(f.Columns))
		for i := range f.Columns {
			if i < len(row) {
				coerced[i] = Coerce(row[i], syn.Schema[i].Type)
			}
		}
		syn.Rows[r] = coerced
	}
	return syn
}

// ColumnType derives one type from a column of values, inspecting at most
// SampleSize non-null values. A type is chosen only when every sample
// satisfies it:
//
//	all null                      -> TEXT
//	integers, exactly {0, 1}      -> BOOLEAN
//	integers                      -> INTEGER
//	one shared date layout        -> DATE
//	one shared timestamp layout   -> TIMESTAMP
//	boolean words                 -> BOOLEAN
//	numbers                       -> FLOAT
//	JSON objects or arrays        -> JSONB
//	anything else                 -> TEXT
func ColumnType(values []any) core.StorageType {
	samples := nonNull(values, SampleSize)
	if len(samples) == 0 {
		return core.TypeText
	}

	if ints, ok := allIntegers(samples); ok {
		// {0, 1} promotion is a column rule; infer.FromValue keeps a lone 0 or 1 INTEGER.
		if isZeroOne(ints) {
			return core.TypeBoolean
		}
		return core.TypeInteger
	}

	if shape := sharedShape(samples); shape != infer.ShapeNone {
		if shape.IsDate() {
			return core.TypeDate
		}
		return core.TypeTimestamp
	}

	switch {
	case all(samples, isBoolean):
		return core.TypeBoolean
	case all(samples, isNumber):
		return core.TypeFloat
	case all(samples, isStructured):
		return core.TypeJSONB
	default:
		return core.TypeText
	}
}

func nonNull(values []any, limit int) []any {
	out := make([]any, 0, min(len(values), limit))
	for _, v := range values {
		if isNull(v) {
			continue
		}
		out = append(out, v)
		if len(out) == limit {
			break
		}
	}
	return out
}

func isNull(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return infer.IsNull(val)
	default:
		return false
	}
}

func all(samples []any, pred func(any) bool) bool {
	for _, v := range samples {
		if !pred(v) {
			return false
		}
	}
	return true
}

func allIntegers(samples []any) ([]int64, bool) {
	out := make([]int64, 0, len(samples))
	for _, v := range samples {
		n, ok := asInteger(v)
		if !ok {
			return nil, false
		}
		out = append(out, n)
	}
	return out, true
}

func asInteger(v any) (int64, bool) {
	switch val := v.(type) {
	case int:
		return int64(val), true
	case int32:
		return int64(val), true
	case int64:
		return val, true
	case json.Number:
		n, err := val.Int64()
		return n, err == nil
	case string:
		if !infer.IsInteger(val) {
			return 0, false
		}
		n, err := strconv.ParseInt(strings.TrimSpace(val), 10, 64)
		return n, err == nil
	default:
		return 0, false
	}
}

// isZeroOne reports whether both 0 and 1 occur and nothing else does.
func isZeroOne(ints []int64) bool {
	var zero, one bool
	for _, n := range ints {
		switch n {
		case 0:
			zero = true
		case 1:
			one = true
		default:
			return false
		}
	}
	return zero && one
}

// sharedShape returns the one date or timestamp shape every sample has. A
// native time.Time counts as a date only at midnight, and a column of native
// times with any time of day is a timestamp column.
func sharedShape(samples []any) infer.Shape {
	if all(samples, isTime) {
		for _, v := range samples {
			if !infer.IsMidnight(v.(time.Time)) {
				return infer.ShapeISOTimestamp
			}
		}
		return infer.ShapeISODate
	}

	shape := infer.ShapeNone
	for i, v := range samples {
		var s infer.Shape
		switch val := v.(type) {
		case time.Time:
			s = infer.ShapeISOTimestamp
			if infer.IsMidnight(val) {
				s = infer.ShapeISODate
			}
		case string:
			s = infer.ShapeOf(val)
			if s != infer.ShapeNone {
				if _, ok := infer.ParseTime(val); !ok {
					return infer.ShapeNone
				}
			}
		}
		if s == infer.ShapeNone || (i > 0 && s != shape) {
			return infer.ShapeNone
		}
		shape = s
	}
	return shape
}

func isTime(v any) bool {
	_, ok := v.(time.Time)
	return ok
}

func isBoolean(v any) bool {
	switch val := v.(type) {
	case bool:
		return true
	case string:
		_, ok := infer.ParseBool(val)
		return ok
	default:
		return false
	}
}

func isNumber(v any) bool {
	switch val := v.(type) {
	case int, int32, int64, float32, float64, json.Number:
		return true
	case string:
		return infer.IsFloat(val)
	default:
		return false
	}
}

func isStructured(v any) bool {
	switch val := v.(type) {
	case core.Document, map[string]any, []any:
		return true
	case string:
		return infer.IsJSON(val)
	default:
		return false
	}
}

// Coerce converts v to the native representation of t. Null-like values
// become nil. When conversion fails the original value is returned.
func Coerce(v any, t core.StorageType) any {
	if isNull(v) {
		return nil
	}

	switch t.Base() {
	case core.TypeBoolean:
		switch val := v.(type) {
		case bool:
			return val
		case string:
			if b, ok := infer.ParseBool(val); ok {
				return b
			}
		default:
			if n, ok := asInteger(v); ok && (n == 0 || n == 1) {
				return n == 1
			}
		}
	case core.TypeInteger, core.TypeInt, core.TypeBigint, core.TypeSmallint:
		if n, ok := asInteger(v); ok {
			return n
		}
	case core.TypeFloat, core.TypeReal, core.TypeDoublePrecision, core.TypeNumeric, core.TypeDecimal:
		if f, ok := asFloat(v); ok {
			return f
		}
	case core.TypeDate, core.TypeTimestamp:
		switch val := v.(type) {
		case time.Time:
			return val
		case string:
			if ts, ok := infer.ParseTime(val); ok {
				return ts
			}
		}
	case core.TypeJSONB, core.TypeJSON:
		switch val := v.(type) {
		case core.Document, map[string]any, []any:
			return val
		case string:
			if parsed, ok := parseJSON(val); ok {
				return parsed
			}
		}
	default:
		return asText(v)
	}
	return v
}

func asFloat(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int32:
		return float64(val), true
	case int64:
		return float64(val), true
	case json.Number:
		f, err := val.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func parseJSON(s string) (any, bool) {
	out, err := core.DecodeJSON([]byte(s))
	if err != nil {
		return nil, false
	}
	return out, true
}

func asText(v any) any {
	switch val := v.(type) {
	case string:
		return val
	case time.Time:
		return val.Format(time.RFC3339Nano)
	case core.Document, map[string]any, []any:
		data, err := json.Marshal(val)
		if err != nil {
			return v
		}
		return string(data)
	default:
		return fmt.Sprint(val)
	}
}

// ResolveColumns turns a name-to-type-or-sample document into a schema in
// the document's field order. A value that names a known storage type is
// used verbatim, an empty value falls back to the column name, and anything
// else is treated as a sample value and classified.
func ResolveColumns(columns core.Document) core.ColumnSchema {
	out := make(core.ColumnSchema, len(columns))
	for i, f := range columns {
		out[i] = core.ColumnDef{Name: f.Key, Type: ResolveColumn(f.Key, f.Value, nil)}
	}
	return out
}

// ResolveColumn picks the type of one column: typ when it names a storage
// type, then typ or sample inferred as a value, then the column name.
func ResolveColumn(name string, typ, sample any) core.StorageType {
	if s, ok := typ.(string); ok {
		if t, known := core.ParseStorageType(s); known {
			return t
		}
	}
	for _, v := range []any{typ, sample} {
		if v == nil {
			continue
		}
		if s, ok := v.(string); ok && strings.TrimSpace(s) == "" {
			continue
		}
		return infer.FromValue(v)
	}
	return infer.FromName(name)
}

// ResolveType returns v as a storage type if it names one, otherwise the type
// inferred from v as a sample value.
func ResolveType(v any) core.StorageType {
	if s, ok := v.(string); ok {
		if t, known := core.ParseStorageType(s); known {
			return t
		}
	}
	return infer.FromValue(v)
}
