// Package infer guesses storage types for columns from their names or from
// sample values. Every entry point is deterministic and total: it always
// returns a core.StorageType and never fails.
package infer

import (
	"strings"
	"unicode"

	"github.com/leapstack-labs/dbpilot/pkg/core"
)

// Rule maps a family of column-name patterns to a storage type.
type Rule struct {
	Name     string
	Type     core.StorageType
	Patterns []string
	match    func(n nameParts, patterns []string) bool
}

// Matches reports whether the rule applies to the column name.
func (r Rule) Matches(name string) bool {
	return r.match(splitName(name), r.Patterns)
}

// rules are evaluated in order; the first match wins.
var rules = []Rule{
	{
		Name:     "identifier",
		Type:     core.TypeInteger,
		Patterns: []string{"id", "code", "num", "number", "count"},
		match:    matchIdentifier,
	},
	{
		Name: "quantity",
		Type: core.TypeInteger,
		Patterns: []string{
			"age", "year", "month", "day", "quantity", "qty", "count", "num",
			"number", "size", "order", "points", "score", "visits", "views", "clicks",
		},
		match: matchTokens,
	},
	{
		Name: "measure",
		Type: core.TypeFloat,
		Patterns: []string{
			"price", "cost", "fee", "amount", "sum", "total", "balance", "rate",
			"percentage", "percent", "discount", "salary", "wage", "height", "weight",
			"latitude", "longitude", "rating", "avg", "average",
		},
		match: matchTokens,
	},
	{
		Name: "flag",
		Type: core.TypeBoolean,
		Patterns: []string{
			"is_", "has_", "can_", "allow", "active", "enabled", "flag", "status",
			"verified", "approved", "accepted", "valid", "complete", "done", "confirmed",
			"remember", "subscribe", "notify", "public", "visible", "published",
		},
		match: matchTokens,
	},
	{
		Name: "text",
		Type: core.TypeText,
		Patterns: []string{
			"name", "title", "description", "comment", "message", "text", "content",
			"info", "details", "summary", "address", "email", "phone", "password",
			"hash", "token", "key", "code", "url", "link", "path", "username",
			"first_name", "last_name", "middle_name", "job_title", "occupation",
			"company", "organization", "department", "notes", "remarks",
		},
		match: matchTokens,
	},
	{
		Name: "date",
		Type: core.TypeDate,
		Patterns: []string{
			"date", "dob", "doj", "birthday", "birth", "joined", "start_date", "end_date",
			"hire_date", "termination_date", "registration_date", "expiration_date", "expiry",
		},
		match: matchTokens,
	},
	{
		Name: "timestamp",
		Type: core.TypeTimestamp,
		Patterns: []string{
			"timestamp", "datetime", "created_at", "updated_at", "modified_at", "deleted_at",
			"login_time", "logout_time", "last_seen", "last_login", "last_modified",
			"time", "created", "updated", "modified", "last_update",
		},
		match: matchTokens,
	},
	{
		Name: "structured",
		Type: core.TypeJSONB,
		Patterns: []string{
			"json", "metadata", "meta", "properties", "attributes", "config", "configuration",
			"settings", "options", "preferences", "data", "params", "parameters",
		},
		match: matchTokens,
	},
}

// Rules returns the name rules in evaluation order.
func Rules() []Rule {
	out := make([]Rule, len(rules))
	copy(out, rules)
	return out
}

// FromName guesses a column's type from its name. Names that match no rule
// are TEXT.
func FromName(name string) core.StorageType {
	if r, ok := MatchName(name); ok {
		return r.Type
	}
	return core.TypeText
}

// MatchName returns the first rule that matches name.
func MatchName(name string) (Rule, bool) {
	n := splitName(name)
	if len(n.tokens) == 0 {
		return Rule{}, false
	}
	for _, r := range rules {
		if r.match(n, r.Patterns) {
			return r, true
		}
	}
	return Rule{}, false
}

type nameParts struct {
	whole  string   // lower-cased, trimmed
	tokens []string // split on separators and camelCase boundaries
}

func splitName(name string) nameParts {
	trimmed := strings.TrimSpace(name)
	var tokens []string
	var cur []rune
	flush := func() {
		if len(cur) > 0 {
			tokens = append(tokens, strings.ToLower(string(cur)))
			cur = cur[:0]
		}
	}

	runes := []rune(trimmed)
	for i, r := range runes {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			flush()
			continue
		}
		if unicode.IsUpper(r) && len(cur) > 0 {
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				flush()
			}
		}
		cur = append(cur, r)
	}
	flush()

	return nameParts{whole: strings.ToLower(trimmed), tokens: tokens}
}

func matchIdentifier(n nameParts, patterns []string) bool {
	if len(n.tokens) == 0 {
		return false
	}
	last := n.tokens[len(n.tokens)-1]
	for _, p := range patterns {
		if n.whole == p || last == p {
			return true
		}
	}
	return false
}

// matchTokens matches a pattern against whole tokens. Multi-word patterns
// ("created_at") match a contiguous run of tokens, prefix patterns ("is_")
// match the leading token of a multi-token name, and patterns of four or
// more letters also match as the start or end of a single token
// ("username", "birthdate").
func matchTokens(n nameParts, patterns []string) bool {
	for _, p := range patterns {
		if strings.HasSuffix(p, "_") {
			if len(n.tokens) > 1 && n.tokens[0] == strings.TrimSuffix(p, "_") {
				return true
			}
			continue
		}
		words := strings.Split(p, "_")
		if len(words) > 1 {
			if containsRun(n.tokens, words) {
				return true
			}
			continue
		}
		for _, tok := range n.tokens {
			if tok == p {
				return true
			}
			if len(p) >= 4 && (strings.HasPrefix(tok, p) || strings.HasSuffix(tok, p)) {
				return true
			}
		}
	}
	return false
}

func containsRun(tokens, words []string) bool {
	for i := 0; i+len(words) <= len(tokens); i++ {
		match := true
		for j, w := range words {
			if tokens[i+j] != w {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}
