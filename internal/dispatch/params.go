package dispatch

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-viper/mapstructure/v2"

	"github.com/leapstack-labs/dbpilot/pkg/core"
	"github.com/leapstack-labs/dbpilot/pkg/schema"
)

// DefaultLimit caps view_table and view_collection when no limit is given.
const DefaultLimit = 100

type viewTableParams struct {
	Limit int `mapstructure:"limit"`
}

type conditionParams struct {
	Condition string `mapstructure:"condition"`
}

type dataParams struct {
	Data any `mapstructure:"data"`
}

type createTableParams struct {
	Columns any `mapstructure:"columns"`
	Sample  any `mapstructure:"sample"`
}

type addColumnParams struct {
	ColumnName string `mapstructure:"column_name"`
	ColumnType any    `mapstructure:"column_type"`
	Sample     any    `mapstructure:"sample"`
}

type addColumnsParams struct {
	ColumnsData any `mapstructure:"columns_data"`
}

type columnParams struct {
	ColumnName string `mapstructure:"column_name"`
}

type renameParams struct {
	NewName string `mapstructure:"new_name"`
}

type renameColumnParams struct {
	OldName string `mapstructure:"old_name"`
	NewName string `mapstructure:"new_name"`
}

type updateRowParams struct {
	SetValues any    `mapstructure:"set_values"`
	Condition string `mapstructure:"condition"`
}

type queryParams struct {
	Query  string `mapstructure:"query"`
	Params []any  `mapstructure:"params"`
}

type findParams struct {
	Limit  int `mapstructure:"limit"`
	Filter any `mapstructure:"filter"`
}

type filterParams struct {
	Filter any `mapstructure:"filter"`
}

type updateDocumentParams struct {
	Filter any `mapstructure:"filter"`
	Update any `mapstructure:"update"`
}

type pipelineParams struct {
	Pipeline any `mapstructure:"pipeline"`
}

type csvParams struct {
	Path      string `mapstructure:"path"`
	Content   string `mapstructure:"content"`
	Delimiter string `mapstructure:"delimiter"`
}

// decodeParams fills out from the intent's parameter bag. Values are weakly
// typed ("10" decodes into an int) and JSON text decodes into slices.
// Object-valued parameters are declared as any and resolved with
// documentParam so their key order survives.
func decodeParams(in core.Intent, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.DecodeHookFuncType(jsonTextHook),
	})
	if err != nil {
		return fmt.Errorf("failed to create parameter decoder: %w", err)
	}
	if err := dec.Decode(map[string]any(in.Parameters)); err != nil {
		return &core.ParamError{Operation: in.Operation, Param: "parameters", Reason: core.SingleLine(err.Error())}
	}
	return nil
}

// jsonTextHook decodes a JSON array given as a string when the destination
// is a slice.
func jsonTextHook(from, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.String || to.Kind() != reflect.Slice {
		return data, nil
	}
	if strings.TrimSpace(reflect.ValueOf(data).String()) == "" {
		return nil, nil
	}
	if list, ok := parseJSONText(data).([]any); ok {
		return list, nil
	}
	return data, nil
}

// parseJSONText decodes v when it is a string holding a JSON object or
// array. Other values are returned unchanged.
func parseJSONText(v any) any {
	s, ok := v.(string)
	if !ok {
		return v
	}
	s = strings.TrimSpace(s)
	if s == "" || (s[0] != '{' && s[0] != '[') {
		return v
	}
	parsed, err := core.DecodeJSON([]byte(s))
	if err != nil {
		return v
	}
	return parsed
}

// documentParam resolves an object-valued parameter. Documents keep their
// field order, Go maps are taken in sorted key order and JSON text is
// decoded. A missing value yields a nil Document.
func documentParam(in core.Intent, param string, v any) (core.Document, error) {
	if v == nil {
		return nil, nil
	}
	if s, ok := v.(string); ok && strings.TrimSpace(s) == "" {
		return nil, nil
	}
	doc, ok := core.AsDocument(parseJSONText(v))
	if !ok {
		return nil, &core.ParamError{Operation: in.Operation, Param: param,
			Reason: fmt.Sprintf("expected an object, got %T", v)}
	}
	return doc, nil
}

// listParam resolves a list-valued parameter, decoding JSON text.
func listParam(in core.Intent, param string, v any) ([]any, error) {
	if v == nil {
		return nil, nil
	}
	list, ok := parseJSONText(v).([]any)
	if !ok {
		return nil, &core.ParamError{Operation: in.Operation, Param: param,
			Reason: fmt.Sprintf("expected a list, got %T", v)}
	}
	return list, nil
}

// documentsParam resolves a list of objects.
func documentsParam(in core.Intent, param string, v any) ([]core.Document, error) {
	list, err := listParam(in, param, v)
	if err != nil {
		return nil, err
	}
	docs := make([]core.Document, len(list))
	for i, item := range list {
		doc, ok := core.AsDocument(item)
		if !ok {
			return nil, &core.ParamError{Operation: in.Operation, Param: param,
				Reason: fmt.Sprintf("entry %d must be an object", i+1)}
		}
		docs[i] = doc
	}
	return docs, nil
}

func missing(in core.Intent, param string) error {
	return &core.ParamError{Operation: in.Operation, Param: param, Reason: "is required"}
}

// columnsSpec turns a columns parameter into a schema. Accepted shapes:
// an object of name to type-or-sample (columns keep the object's order),
// a list of {name, type} objects (column_name/column_type also accepted,
// sample optional) or a list of bare names.
func columnsSpec(in core.Intent, param string, v any) (core.ColumnSchema, error) {
	var out core.ColumnSchema
	v = parseJSONText(v)
	if doc, ok := core.AsDocument(v); ok {
		v = doc
	}
	switch spec := v.(type) {
	case core.Document:
		out = schema.ResolveColumns(spec)
	case []any:
		for i, item := range spec {
			if s, ok := item.(string); ok {
				out = append(out, core.ColumnDef{Name: s, Type: schema.ResolveColumn(s, nil, nil)})
				continue
			}
			entry, ok := core.AsDocument(item)
			if !ok {
				return nil, &core.ParamError{Operation: in.Operation, Param: param,
					Reason: fmt.Sprintf("entry %d must be a name or an object", i+1)}
			}
			name := firstString(entry, "name", "column_name")
			if name == "" {
				return nil, &core.ParamError{Operation: in.Operation, Param: param,
					Reason: fmt.Sprintf("entry %d has no name", i+1)}
			}
			typ := first(entry, "type", "column_type")
			sample, _ := entry.Get("sample")
			out = append(out, core.ColumnDef{Name: name, Type: schema.ResolveColumn(name, typ, sample)})
		}
	case nil:
		return nil, missing(in, param)
	default:
		return nil, &core.ParamError{Operation: in.Operation, Param: param,
			Reason: fmt.Sprintf("expected an object or a list, got %T", v)}
	}
	if len(out) == 0 {
		return nil, &core.ParamError{Operation: in.Operation, Param: param, Reason: "defines no columns"}
	}
	if err := out.Validate(); err != nil {
		return nil, err
	}
	return out, nil
}

func first(d core.Document, keys ...string) any {
	for _, k := range keys {
		if v, ok := d.Get(k); ok && v != nil {
			return v
		}
	}
	return nil
}

func firstString(d core.Document, keys ...string) string {
	s, _ := first(d, keys...).(string)
	return strings.TrimSpace(s)
}

func limitOrDefault(n int) int {
	if n <= 0 {
		return DefaultLimit
	}
	return n
}
