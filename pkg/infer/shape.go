package infer

import (
	"regexp"
	"strings"
	"time"
)

// Shape identifies the textual layout of a date or timestamp.
type Shape int

// Known shapes. Date shapes are checked before timestamp shapes.
const (
	ShapeNone Shape = iota
	ShapeISODate
	ShapeUSDate
	ShapeEUDate
	ShapeDottedDate
	ShapeDashedDate
	ShapeISOTimestamp
	ShapeUSTimestamp
	ShapeEUTimestamp
)

type shapeDef struct {
	shape   Shape
	pattern *regexp.Regexp
	layouts []string
}

var shapes = []shapeDef{
	{ShapeISODate, regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`), []string{"2006-01-02"}},
	{ShapeUSDate, regexp.MustCompile(`^\d{1,2}/\d{1,2}/\d{4}$`), []string{"1/2/2006"}},
	{ShapeEUDate, regexp.MustCompile(`^\d{1,2}\.\d{1,2}\.\d{4}$`), []string{"2.1.2006"}},
	{ShapeDottedDate, regexp.MustCompile(`^\d{4}\.\d{2}\.\d{2}$`), []string{"2006.01.02"}},
	{ShapeDashedDate, regexp.MustCompile(`^\d{2}-\d{2}-\d{4}$`), []string{"02-01-2006"}},
	{ShapeISOTimestamp, regexp.MustCompile(`^\d{4}-\d{2}-\d{2}[T ]\d{2}:\d{2}:\d{2}`), []string{
		time.RFC3339Nano,
		"2006-01-02T15:04:05.999999999",
		"2006-01-02 15:04:05.999999999Z07:00",
		"2006-01-02 15:04:05.999999999",
	}},
	{ShapeUSTimestamp, regexp.MustCompile(`^\d{2}/\d{2}/\d{4}\s\d{2}:\d{2}`), []string{
		"01/02/2006 15:04:05",
		"01/02/2006 15:04",
	}},
	{ShapeEUTimestamp, regexp.MustCompile(`^\d{2}\.\d{2}\.\d{4}\s\d{2}:\d{2}`), []string{
		"02.01.2006 15:04:05",
		"02.01.2006 15:04",
	}},
}

// ShapeOf returns the date or timestamp shape of s, or ShapeNone.
func ShapeOf(s string) Shape {
	trimmed := strings.TrimSpace(s)
	for _, d := range shapes {
		if d.pattern.MatchString(trimmed) {
			return d.shape
		}
	}
	return ShapeNone
}

// IsDate reports whether the shape carries a calendar date only.
func (s Shape) IsDate() bool {
	return s >= ShapeISODate && s <= ShapeDashedDate
}

// IsTimestamp reports whether the shape carries a clock component.
func (s Shape) IsTimestamp() bool {
	return s >= ShapeISOTimestamp && s <= ShapeEUTimestamp
}

// ParseTime parses s according to its detected shape. It returns false when
// s has no known shape or does not form a valid calendar value.
func ParseTime(s string) (time.Time, bool) {
	trimmed := strings.TrimSpace(s)
	shape := ShapeOf(trimmed)
	if shape == ShapeNone {
		return time.Time{}, false
	}
	for _, d := range shapes {
		if d.shape != shape {
			continue
		}
		for _, layout := range d.layouts {
			if t, err := time.Parse(layout, trimmed); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}
