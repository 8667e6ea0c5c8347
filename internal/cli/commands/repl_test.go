package commands

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func newTestREPL(t *testing.T, withHistory bool) (*REPL, *testEnv) {
	t.Helper()
	env := newTestEnv(t, withHistory)
	return &REPL{env: env.Env}, env
}

func (e *testEnv) eval(r *REPL, line string) bool {
	e.out.Reset()
	e.err.Reset()
	return r.Eval(context.Background(), line)
}

func TestREPL_Intents(t *testing.T) {
	r, env := newTestREPL(t, false)

	assert.False(t, env.eval(r, `{"operation":"create_table","target":"users","parameters":{"columns":{"id":"INTEGER","name":"TEXT"}}}`))
	assert.Empty(t, env.err.String())
	assert.Contains(t, env.out.String(), "users")

	assert.False(t, env.eval(r, `add_record users data={"id":1,"name":"Ada"}`))
	assert.Equal(t, "Record added successfully\n", env.out.String())

	assert.False(t, env.eval(r, "count_records users"))
	assert.Equal(t, "Count: 1\n", env.out.String())

	assert.False(t, env.eval(r, "view_table users limit=oops"))
	assert.NotEmpty(t, env.err.String())

	assert.False(t, env.eval(r, `count_records users condition="x`))
	assert.Contains(t, env.err.String(), "unterminated")

	assert.False(t, env.eval(r, "   "))
	assert.Empty(t, env.out.String())
}

func TestREPL_DotCommands(t *testing.T) {
	r, env := newTestREPL(t, false)
	env.eval(r, `{"operation":"create_table","target":"users","parameters":{"columns":{"id":"INTEGER","email":"TEXT"}}}`)

	env.eval(r, ".tables")
	assert.Equal(t, "- users\n", env.out.String())

	env.eval(r, ".collections")
	assert.Contains(t, env.out.String(), "No items found.")

	env.eval(r, ".schema users")
	out := env.out.String()
	assert.Contains(t, out, "| column | type | nullable |")
	assert.Contains(t, out, "| email | TEXT |")
	assert.Contains(t, out, "Rows: 0")

	env.eval(r, ".schema")
	assert.Contains(t, env.err.String(), "Usage: .schema <table>")

	env.eval(r, ".schema ghost")
	assert.Contains(t, env.err.String(), "not found")

	env.eval(r, ".ops")
	assert.Contains(t, env.out.String(), "(24 rows)")

	env.eval(r, ".help")
	assert.Contains(t, env.out.String(), ".schema <table>")

	env.eval(r, ".bogus")
	assert.Contains(t, env.err.String(), "Unknown command: .bogus")

	assert.True(t, env.eval(r, ".quit"))
	assert.True(t, env.eval(r, ".EXIT"))
}

func TestREPL_ConnectionCommands(t *testing.T) {
	r, env := newTestREPL(t, false)

	env.eval(r, ".status")
	assert.Equal(t, "relational: disconnected\ndocument:   disconnected\n", env.out.String())

	env.eval(r, ".connect document")
	assert.Equal(t, "Connected to MongoDB\n", env.out.String())

	env.eval(r, ".status")
	assert.Equal(t, "relational: disconnected\ndocument:   connected\n", env.out.String())

	env.eval(r, ".close")
	assert.Equal(t, "No active SQLite connection\nMongoDB connection closed\n", env.out.String())

	env.eval(r, ".connect graph")
	assert.Contains(t, env.err.String(), "unknown backend")
}

func TestREPL_History(t *testing.T) {
	r, env := newTestREPL(t, true)

	env.eval(r, "list_tables")
	env.eval(r, "list_collections")
	env.eval(r, ".history 1")
	out := env.out.String()
	assert.Contains(t, out, "list_collections")
	assert.NotContains(t, out, "list_tables")
	assert.Contains(t, out, "(1 rows)")

	env.eval(r, ".history zero")
	assert.Contains(t, env.err.String(), "Usage: .history [n]")

	r, env = newTestREPL(t, false)
	env.eval(r, ".history")
	assert.Contains(t, env.err.String(), "history is disabled")
}

func TestIncompleteJSON(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{`{"operation":`, true},
		{"{\"operation\":\"list_tables\",\n\"parameters\":{", true},
		{`{"operation":"list_tables"}`, false},
		{"```json", true},
		{"```json\n{}\n```", false},
		{"list_tables", false},
		{`{"a":1}}`, false},
	}

	for _, tt := range tests {
		t.Run(strings.ReplaceAll(tt.input, "\n", " "), func(t *testing.T) {
			assert.Equal(t, tt.want, incompleteJSON(tt.input))
		})
	}
}
