package commands

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/dbpilot/pkg/core"
)

// ParseLine turns one line of input into an intent. JSON (optionally inside
// a Markdown code fence) is decoded as is; anything else is shorthand:
//
//	operation [target] [key=value ...]
//
// Values that parse as JSON keep their JSON type, so limit=5 is a number and
// data={"a":1} an object. Quotes group words: condition="age > 30".
func ParseLine(line string) (core.Intent, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return core.Intent{}, fmt.Errorf("empty input")
	}
	if strings.HasPrefix(line, "{") || strings.HasPrefix(line, "```") {
		return core.ParseIntent([]byte(line))
	}

	fields, err := splitFields(line)
	if err != nil {
		return core.Intent{}, err
	}

	in := core.Intent{Operation: core.Operation(fields[0]), Parameters: core.Params{}}
	rest := fields[1:]
	if len(rest) > 0 && !strings.Contains(rest[0], "=") {
		in.Target = rest[0]
		rest = rest[1:]
	}
	for _, f := range rest {
		key, value, ok := strings.Cut(f, "=")
		if !ok || key == "" {
			return core.Intent{}, fmt.Errorf("expected key=value, got %q", f)
		}
		in.Parameters[key] = shorthandValue(value)
	}
	return in, nil
}

func shorthandValue(s string) any {
	v, err := core.DecodeJSON([]byte(s))
	if err != nil {
		return s
	}
	return v
}

// splitFields splits on spaces outside quotes and brackets. Quotes at the
// top level are removed; quotes inside {} or [] are kept for JSON.
func splitFields(s string) ([]string, error) {
	var (
		fields []string
		cur    strings.Builder
		quote  rune
		depth  int
		inWord bool
	)
	for _, r := range s {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
				if depth > 0 {
					cur.WriteRune(r)
				}
				continue
			}
			cur.WriteRune(r)
		case r == '"' || r == '\'':
			quote = r
			inWord = true
			if depth > 0 {
				cur.WriteRune(r)
			}
		case r == '{' || r == '[':
			depth++
			inWord = true
			cur.WriteRune(r)
		case (r == '}' || r == ']') && depth > 0:
			depth--
			cur.WriteRune(r)
		case (r == ' ' || r == '\t') && depth == 0:
			if inWord {
				fields = append(fields, cur.String())
				cur.Reset()
				inWord = false
			}
		default:
			inWord = true
			cur.WriteRune(r)
		}
	}
	if quote != 0 {
		return nil, fmt.Errorf("unterminated %c quote", quote)
	}
	if depth != 0 {
		return nil, fmt.Errorf("unbalanced brackets")
	}
	if inWord {
		fields = append(fields, cur.String())
	}
	return fields, nil
}
