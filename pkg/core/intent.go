package core

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Params is the JSON-compatible parameter bag of an Intent.
type Params map[string]any

// Intent is a structured request naming one operation against one target.
type Intent struct {
	Operation   Operation `json:"operation"`
	Target      string    `json:"target"`
	Parameters  Params    `json:"parameters,omitempty"`
	Explanation string    `json:"explanation,omitempty"`
}

// Parser turns free-form text into an Intent. The natural-language producer
// lives outside this module; JSONParser covers callers that already speak
// intent JSON.
type Parser interface {
	Parse(ctx context.Context, text string) (Intent, error)
}

// JSONParser parses intent JSON, optionally wrapped in a Markdown code fence.
type JSONParser struct{}

// Parse implements Parser.
func (JSONParser) Parse(_ context.Context, text string) (Intent, error) {
	return ParseIntent([]byte(text))
}

// ParseIntent decodes an intent from JSON. Surrounding Markdown code fences
// are stripped. Nested objects in parameters decode to Documents that keep
// the caller's key order; integer literals decode to int64 and other numbers
// to float64. Unknown operation names are accepted here and rejected by the
// dispatcher.
func ParseIntent(data []byte) (Intent, error) {
	data = stripCodeFence(data)

	var raw struct {
		Operation   string          `json:"operation"`
		Target      string          `json:"target"`
		Parameters  json.RawMessage `json:"parameters"`
		Explanation string          `json:"explanation"`
	}
	if err := json.NewDecoder(bytes.NewReader(data)).Decode(&raw); err != nil {
		return Intent{}, fmt.Errorf("failed to decode intent: %w", err)
	}
	if raw.Operation == "" {
		return Intent{}, fmt.Errorf("failed to decode intent: operation is required")
	}

	params := Params{}
	if trimmed := bytes.TrimSpace(raw.Parameters); len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null")) {
		v, err := DecodeJSON(trimmed)
		if err != nil {
			return Intent{}, fmt.Errorf("failed to decode intent parameters: %w", err)
		}
		doc, ok := v.(Document)
		if !ok {
			return Intent{}, fmt.Errorf("failed to decode intent: parameters must be an object")
		}
		for _, f := range doc {
			params[f.Key] = f.Value
		}
	}

	return Intent{
		Operation:   Operation(strings.TrimSpace(raw.Operation)),
		Target:      strings.TrimSpace(raw.Target),
		Parameters:  params,
		Explanation: raw.Explanation,
	}, nil
}

// NormalizeJSON replaces json.Number values, at any depth, with int64 when the
// literal is integral and float64 otherwise.
func NormalizeJSON(v any) any {
	switch val := v.(type) {
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return i
		}
		if f, err := val.Float64(); err == nil {
			return f
		}
		return val.String()
	case Document:
		out := make(Document, len(val))
		for i, f := range val {
			out[i] = Field{Key: f.Key, Value: NormalizeJSON(f.Value)}
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = NormalizeJSON(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = NormalizeJSON(item)
		}
		return out
	default:
		return v
	}
}

func stripCodeFence(data []byte) []byte {
	s := strings.TrimSpace(string(data))
	if !strings.HasPrefix(s, "```") {
		return []byte(s)
	}
	s = strings.TrimPrefix(s, "```")
	// drop the info string, e.g. ```json
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return []byte(strings.TrimSpace(s))
}
