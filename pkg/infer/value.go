package infer

import (
	"encoding/json"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/leapstack-labs/dbpilot/pkg/core"
)

var (
	integerPattern = regexp.MustCompile(`^[-+]?\d+$`)
	floatPattern   = regexp.MustCompile(`^[-+]?\d*\.?\d+([eE][-+]?\d+)?$`)
	urlPattern     = regexp.MustCompile(`^(http|https|ftp)://[^\s/$.?#].[^\s]*$`)
	emailPattern   = regexp.MustCompile(`^[a-zA-Z0-9_.+-]+@[a-zA-Z0-9-]+\.[a-zA-Z0-9-.]+$`)
)

var nullWords = map[string]bool{"null": true, "none": true, "nil": true, "na": true, "n/a": true}

var boolWords = map[string]bool{
	"true": true, "yes": true, "t": true, "y": true, "1": true,
	"false": false, "no": false, "f": false, "n": false, "0": false,
}

// FromValue guesses a column's type from one sample value. Strings go through
// the textual cascade; native Go values map directly. A native 0 or 1 is an
// INTEGER, never a BOOLEAN.
func FromValue(v any) core.StorageType {
	switch val := v.(type) {
	case nil:
		return core.TypeText
	case string:
		return fromString(val)
	case bool:
		return core.TypeBoolean
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return core.TypeInteger
	case float32, float64:
		return core.TypeFloat
	case json.Number:
		if _, err := val.Int64(); err == nil {
			return core.TypeInteger
		}
		return core.TypeFloat
	case time.Time:
		if IsMidnight(val) {
			return core.TypeDate
		}
		return core.TypeTimestamp
	case []byte:
		return core.TypeText
	}

	switch reflect.TypeOf(v).Kind() {
	case reflect.Map, reflect.Slice, reflect.Array, reflect.Struct:
		return core.TypeJSONB
	default:
		return core.TypeText
	}
}

func fromString(s string) core.StorageType {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return core.TypeText
	}
	lower := strings.ToLower(trimmed)
	if nullWords[lower] {
		return core.TypeText
	}
	if _, ok := ParseBool(trimmed); ok {
		return core.TypeBoolean
	}
	if shape := ShapeOf(trimmed); shape != ShapeNone {
		if shape.IsDate() {
			return core.TypeDate
		}
		return core.TypeTimestamp
	}
	if IsInteger(trimmed) {
		return core.TypeInteger
	}
	if IsFloat(trimmed) {
		return core.TypeFloat
	}
	if IsJSON(trimmed) {
		return core.TypeJSONB
	}
	// URLs and e-mail addresses are plain text.
	if urlPattern.MatchString(trimmed) || emailPattern.MatchString(trimmed) {
		return core.TypeText
	}
	return core.TypeText
}

// IsNull reports whether s is empty or a null-like word.
func IsNull(s string) bool {
	trimmed := strings.TrimSpace(s)
	return trimmed == "" || nullWords[strings.ToLower(trimmed)]
}

// ParseBool interprets the boolean words true/false, yes/no, t/f, y/n and 1/0.
func ParseBool(s string) (bool, bool) {
	v, ok := boolWords[strings.ToLower(strings.TrimSpace(s))]
	return v, ok
}

// IsInteger reports whether s is an optionally signed run of digits.
func IsInteger(s string) bool {
	return integerPattern.MatchString(strings.TrimSpace(s))
}

// IsFloat reports whether s is a decimal or exponent number. Integers qualify.
func IsFloat(s string) bool {
	return floatPattern.MatchString(strings.TrimSpace(s))
}

// IsJSON reports whether s is a JSON object or array.
func IsJSON(s string) bool {
	trimmed := strings.TrimSpace(s)
	if !(strings.HasPrefix(trimmed, "{") && strings.HasSuffix(trimmed, "}")) &&
		!(strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]")) {
		return false
	}
	return json.Valid([]byte(trimmed))
}

// IsMidnight reports whether t carries no clock component.
func IsMidnight(t time.Time) bool {
	return t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0
}
