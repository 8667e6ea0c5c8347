package core

import (
	"encoding/json"
	"fmt"
	"strings"
)

// PayloadKind identifies which payload field of a Result is populated.
type PayloadKind string

// Payload kinds.
const (
	KindMessage PayloadKind = "message"
	KindCount   PayloadKind = "count"
	KindNames   PayloadKind = "names"
	KindTable   PayloadKind = "table"
)

// Table is an ordered set of columns and the rows under them.
type Table struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Result is the outcome of one dispatched intent.
// When OK is false the payload is always a single-line Message and Err holds
// the error it was built from. Err is not part of the wire form.
type Result struct {
	OK      bool
	Kind    PayloadKind
	Message string
	Count   int64
	Names   []string
	Table   *Table
	Err     error
}

// MessageResult returns a successful result carrying a message.
func MessageResult(format string, args ...any) Result {
	return Result{OK: true, Kind: KindMessage, Message: fmt.Sprintf(format, args...)}
}

// CountResult returns a successful result carrying a count.
func CountResult(n int64) Result {
	return Result{OK: true, Kind: KindCount, Count: n}
}

// NamesResult returns a successful result carrying a list of names.
func NamesResult(names []string) Result {
	if names == nil {
		names = []string{}
	}
	return Result{OK: true, Kind: KindNames, Names: names}
}

// TableResult returns a successful result carrying rows.
func TableResult(t *Table) Result {
	if t == nil {
		t = &Table{}
	}
	return Result{OK: true, Kind: KindTable, Table: t}
}

// ImportResult returns a successful bulk-load result: a message plus the
// number of records inserted.
func ImportResult(n int64, format string, args ...any) Result {
	r := MessageResult(format, args...)
	r.Count = n
	return r
}

// Failure converts err to an unsuccessful result. The message is flattened
// to a single line and keeps the backend's own error text.
func Failure(err error) Result {
	if err == nil {
		return Result{OK: false, Kind: KindMessage, Message: "unknown error"}
	}
	return Result{OK: false, Kind: KindMessage, Message: SingleLine(err.Error()), Err: err}
}

// Summary returns a short human description used by logs and history.
func (r Result) Summary() string {
	switch r.Kind {
	case KindCount:
		return fmt.Sprintf("count: %d", r.Count)
	case KindNames:
		return fmt.Sprintf("%d names", len(r.Names))
	case KindTable:
		return fmt.Sprintf("%d rows", r.Table.Len())
	default:
		return r.Message
	}
}

type resultJSON struct {
	OK      bool        `json:"ok"`
	Kind    PayloadKind `json:"kind"`
	Message string      `json:"message,omitempty"`
	Count   *int64      `json:"count,omitempty"`
	Names   *[]string   `json:"names,omitempty"`
	Table   *Table      `json:"table,omitempty"`
}

// MarshalJSON encodes only the populated payload fields.
func (r Result) MarshalJSON() ([]byte, error) {
	out := resultJSON{OK: r.OK, Kind: r.Kind, Message: r.Message}
	if out.Kind == "" {
		out.Kind = KindMessage
	}
	if r.Kind == KindCount || r.Count != 0 {
		n := r.Count
		out.Count = &n
	}
	if r.Kind == KindNames {
		names := r.Names
		if names == nil {
			names = []string{}
		}
		out.Names = &names
	}
	if r.Kind == KindTable {
		out.Table = r.Table
		if out.Table == nil {
			out.Table = &Table{}
		}
		if out.Table.Rows == nil {
			out.Table = &Table{Columns: out.Table.Columns, Rows: [][]any{}}
		}
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes the wire form produced by MarshalJSON.
func (r *Result) UnmarshalJSON(data []byte) error {
	var in resultJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*r = Result{OK: in.OK, Kind: in.Kind, Message: in.Message, Table: in.Table}
	if in.Names != nil {
		r.Names = *in.Names
	}
	if in.Count != nil {
		r.Count = *in.Count
	}
	return nil
}

// SingleLine collapses all whitespace runs containing newlines into "; ".
func SingleLine(s string) string {
	if !strings.ContainsAny(s, "\r\n") {
		return strings.TrimSpace(s)
	}
	lines := strings.FieldsFunc(s, func(r rune) bool { return r == '\n' || r == '\r' })
	parts := lines[:0]
	for _, l := range lines {
		if l = strings.TrimSpace(l); l != "" {
			parts = append(parts, l)
		}
	}
	return strings.Join(parts, "; ")
}
