package core

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"

	"gopkg.in/yaml.v3"
)

// Field is one key/value pair of a Document.
type Field struct {
	Key   string
	Value any
}

// Document is a JSON object that keeps its keys in the order they were
// written. Intent parameters decode nested objects into Documents so that
// column lists, inserted records, sort stages and filters reach the backend
// in the caller's order.
type Document []Field

// Len returns the number of fields.
func (d Document) Len() int { return len(d) }

// Get returns the value stored under key.
func (d Document) Get(key string) (any, bool) {
	for _, f := range d {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

// Set replaces the value under key, or appends the field when key is new.
func (d *Document) Set(key string, value any) {
	for i := range *d {
		if (*d)[i].Key == key {
			(*d)[i].Value = value
			return
		}
	}
	*d = append(*d, Field{Key: key, Value: value})
}

// Keys returns the field names in order.
func (d Document) Keys() []string {
	keys := make([]string, len(d))
	for i, f := range d {
		keys[i] = f.Key
	}
	return keys
}

// Map returns the fields as a map. Nested values are not converted.
func (d Document) Map() map[string]any {
	m := make(map[string]any, len(d))
	for _, f := range d {
		m[f.Key] = f.Value
	}
	return m
}

// MarshalJSON writes the fields in order.
func (d Document) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range d {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Key)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(f.Value)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", f.Key, err)
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// MarshalYAML emits a mapping in field order.
func (d Document) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, f := range d {
		val := &yaml.Node{}
		if err := val.Encode(f.Value); err != nil {
			return nil, fmt.Errorf("field %q: %w", f.Key, err)
		}
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: f.Key}, val)
	}
	return node, nil
}

// UnmarshalJSON decodes a JSON object, keeping key order at every depth.
func (d *Document) UnmarshalJSON(data []byte) error {
	v, err := DecodeJSON(data)
	if err != nil {
		return err
	}
	doc, ok := v.(Document)
	if !ok {
		return fmt.Errorf("expected a JSON object, got %T", v)
	}
	*d = doc
	return nil
}

// AsDocument returns v as a Document. Maps are converted with their keys
// sorted; any other type reports false.
func AsDocument(v any) (Document, bool) {
	switch val := v.(type) {
	case Document:
		return val, true
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		doc := make(Document, len(keys))
		for i, k := range keys {
			doc[i] = Field{Key: k, Value: val[k]}
		}
		return doc, true
	default:
		return nil, false
	}
}

// DecodeJSON decodes a single JSON value. Objects become Documents in source
// key order, arrays become []any and numbers become int64 when integral and
// float64 otherwise. A repeated key keeps its first position and last value.
func DecodeJSON(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	v, err := decodeValue(dec)
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("unexpected data after JSON value")
	}
	return v, nil
}

func decodeValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if errors.Is(err, io.EOF) {
		return nil, io.ErrUnexpectedEOF
	}
	if err != nil {
		return nil, err
	}

	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			doc := Document{}
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, _ := keyTok.(string)
				v, err := decodeValue(dec)
				if err != nil {
					return nil, err
				}
				doc.Set(key, v)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return doc, nil
		case '[':
			arr := []any{}
			for dec.More() {
				v, err := decodeValue(dec)
				if err != nil {
					return nil, err
				}
				arr = append(arr, v)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return arr, nil
		default:
			return nil, fmt.Errorf("unexpected %q", t)
		}
	case json.Number:
		return NormalizeJSON(t), nil
	default:
		return t, nil
	}
}
