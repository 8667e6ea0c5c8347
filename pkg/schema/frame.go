// Package schema derives column schemas from tabular sample data and coerces
// the data to match.
package schema

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/leapstack-labs/dbpilot/pkg/core"
)

// Frame is an in-memory table of raw values. CSV input yields string cells,
// with nil marking an empty cell.
type Frame struct {
	Columns []string
	Rows    [][]any
}

// Column returns the values of column i in row order.
func (f *Frame) Column(i int) []any {
	out := make([]any, len(f.Rows))
	for r, row := range f.Rows {
		if i < len(row) {
			out[r] = row[i]
		}
	}
	return out
}

// CSVOptions controls CSV parsing.
type CSVOptions struct {
	// Delimiter defaults to ','.
	Delimiter rune
}

// ReadCSV reads delimited text with a header row. Header names are trimmed
// and NFC-normalized; empty cells become nil. Every record must have as many
// fields as the header.
func ReadCSV(r io.Reader, opts CSVOptions) (*Frame, error) {
	reader := csv.NewReader(r)
	if opts.Delimiter != 0 {
		reader.Comma = opts.Delimiter
	}

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("CSV input is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	columns, err := normalizeHeader(header)
	if err != nil {
		return nil, err
	}

	frame := &Frame{Columns: columns}
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV record: %w", err)
		}
		row := make([]any, len(record))
		for i, cell := range record {
			if cell == "" {
				continue
			}
			row[i] = cell
		}
		frame.Rows = append(frame.Rows, row)
	}
	return frame, nil
}

func normalizeHeader(header []string) ([]string, error) {
	columns := make([]string, len(header))
	seen := make(map[string]bool, len(header))
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		name := strings.TrimSpace(norm.NFC.String(h))
		if name == "" {
			return nil, fmt.Errorf("CSV header has an empty column name at position %d", i+1)
		}
		if seen[name] {
			return nil, fmt.Errorf("CSV header repeats column %q", name)
		}
		seen[name] = true
		columns[i] = name
	}
	return columns, nil
}

// FrameFromRecords builds a frame from documents. Columns are the union of
// field names in first-seen order.
func FrameFromRecords(records []core.Document) *Frame {
	frame := &Frame{}
	index := map[string]int{}
	for _, rec := range records {
		for _, f := range rec {
			if _, ok := index[f.Key]; !ok {
				index[f.Key] = len(frame.Columns)
				frame.Columns = append(frame.Columns, f.Key)
			}
		}
	}
	for _, rec := range records {
		row := make([]any, len(frame.Columns))
		for _, f := range rec {
			row[index[f.Key]] = f.Value
		}
		frame.Rows = append(frame.Rows, row)
	}
	return frame
}
