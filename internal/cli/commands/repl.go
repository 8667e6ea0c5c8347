package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/leapstack-labs/dbpilot/internal/history"
	"github.com/leapstack-labs/dbpilot/pkg/core"
	"github.com/spf13/cobra"
)

const (
	replPrompt     = "dbpilot> "
	replContPrompt = "   ...> "
)

// NewREPLCommand creates the repl command.
func NewREPLCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "repl",
		Aliases: []string{"shell"},
		Short:   "Start an interactive session",
		Long: `Start an interactive session. Each line is an intent, either JSON or
shorthand ("view_table users limit=5"). Connections stay open for the whole
session. Type .help for the dot-commands.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runREPL(cmd.Context(), GetEnv(cmd.Context()), cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}

func runREPL(ctx context.Context, env *Env, in io.Reader, out io.Writer) error {
	repl := &REPL{env: env}

	var historyFile string
	if env.Config.History.Enabled && env.Config.History.Path != "" {
		historyFile = filepath.Join(filepath.Dir(env.Config.History.Path), "repl_history")
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          replPrompt,
		HistoryFile:     historyFile,
		AutoComplete:    repl.completer(ctx),
		InterruptPrompt: "^C",
		EOFPrompt:       ".quit",
		Stdin:           io.NopCloser(in),
		Stdout:          out,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize REPL: %w", err)
	}
	defer func() { _ = rl.Close() }()

	_, _ = fmt.Fprintln(out, "dbpilot interactive session")
	_, _ = fmt.Fprintln(out, "Type .help for commands, .quit to exit")
	_, _ = fmt.Fprintln(out)

	var buf strings.Builder
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			buf.Reset()
			rl.SetPrompt(replPrompt)
			continue
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}

		if buf.Len() > 0 {
			buf.WriteString("\n")
		}
		buf.WriteString(line)
		if incompleteJSON(buf.String()) {
			rl.SetPrompt(replContPrompt)
			continue
		}
		rl.SetPrompt(replPrompt)

		input := buf.String()
		buf.Reset()
		if repl.Eval(ctx, input) {
			break
		}
	}
	return nil
}

// incompleteJSON reports whether s opens a JSON intent or code fence that
// has not been closed yet.
func incompleteJSON(s string) bool {
	s = strings.TrimSpace(s)
	switch {
	case strings.HasPrefix(s, "```"):
		return strings.Count(s, "```") < 2
	case strings.HasPrefix(s, "{"):
		return !json.Valid([]byte(s)) && strings.Count(s, "{") > strings.Count(s, "}")
	default:
		return false
	}
}

// REPL evaluates interactive input against one Env.
type REPL struct {
	env *Env
}

// Eval runs one input and reports whether the session should end.
func (r *REPL) Eval(ctx context.Context, input string) bool {
	input = strings.TrimSpace(input)
	if input == "" {
		return false
	}
	if strings.HasPrefix(input, ".") {
		return r.dot(ctx, input)
	}

	in, err := ParseLine(input)
	if err != nil {
		r.env.Renderer.Errorf("%v", err)
		return false
	}
	_ = r.env.Renderer.Result(r.env.Dispatcher().Dispatch(ctx, in))
	return false
}

func (r *REPL) dot(ctx context.Context, line string) bool {
	parts := strings.Fields(line)
	command := strings.ToLower(parts[0])
	args := parts[1:]
	rd := r.env.Renderer

	switch command {
	case ".quit", ".exit":
		return true

	case ".help":
		printREPLHelp(rd.Out())

	case ".ops":
		_ = rd.Table(operationsTable())

	case ".tables":
		_ = rd.Result(r.env.Dispatcher().Dispatch(ctx, core.Intent{Operation: core.OpListTables}))

	case ".collections":
		_ = rd.Result(r.env.Dispatcher().Dispatch(ctx, core.Intent{Operation: core.OpListCollections}))

	case ".schema":
		if len(args) != 1 {
			rd.Errorf("Usage: .schema <table>")
			break
		}
		r.schema(ctx, args[0])

	case ".connect", ".close":
		backends, err := parseBackends(args)
		if err != nil {
			rd.Errorf("%v", err)
			break
		}
		for _, b := range backends {
			var msg string
			if command == ".connect" {
				msg, err = r.env.Manager().Connect(ctx, b)
			} else {
				msg, err = r.env.Manager().Close(ctx, b)
			}
			if err != nil {
				rd.Errorf("%s", core.SingleLine(err.Error()))
				continue
			}
			rd.Println(msg)
		}

	case ".status":
		m := r.env.Manager()
		rd.Printf("relational: %s\n", m.State(core.BackendRelational))
		rd.Printf("document:   %s\n", m.State(core.BackendDocument))

	case ".history":
		r.history(ctx, args)

	default:
		rd.Errorf("Unknown command: %s (type .help for commands)", command)
	}
	return false
}

func (r *REPL) schema(ctx context.Context, table string) {
	rd := r.env.Renderer
	a, err := r.env.Manager().Relational(ctx)
	if err != nil {
		rd.Errorf("%s", core.SingleLine(err.Error()))
		return
	}
	meta, err := a.Describe(ctx, table)
	if err != nil {
		rd.Errorf("%v", err)
		return
	}
	_ = rd.Table(columnsTable(meta))
	rd.Printf("Rows: %d\n", meta.RowCount)
}

func (r *REPL) history(ctx context.Context, args []string) {
	rd := r.env.Renderer
	h := r.env.History()
	if h == nil {
		rd.Errorf("history is disabled")
		return
	}
	limit := 10
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n <= 0 {
			rd.Errorf("Usage: .history [n]")
			return
		}
		limit = n
	}
	entries, err := h.List(ctx, history.ListOptions{Limit: limit})
	if err != nil {
		rd.Errorf("%v", err)
		return
	}
	_ = rd.Table(historyTable(entries))
}

// parseBackends resolves the argument of .connect and .close; no argument
// means both backends.
func parseBackends(args []string) ([]core.Backend, error) {
	if len(args) == 0 || args[0] == "all" {
		return []core.Backend{core.BackendRelational, core.BackendDocument}, nil
	}
	b, err := core.ParseBackend(args[0])
	if err != nil {
		return nil, err
	}
	return []core.Backend{b}, nil
}

func printREPLHelp(w io.Writer) {
	help := `
Commands:
  .help                 Show this help message
  .ops                  List the supported operations
  .tables               List tables
  .collections          List collections
  .schema <table>       Show the columns of a table
  .connect [backend]    Connect (relational, document or all)
  .close [backend]      Close connections
  .status               Show connection state
  .history [n]          Show the last n operations
  .quit / .exit         Exit

Input:
  {"operation":"view_table","target":"users","parameters":{"limit":5}}
  view_table users limit=5
  update_row users set_values={"age":31} condition="id = 1"

Tips:
  - JSON may span several lines
  - Tab completes operation names and dot-commands
`
	_, _ = fmt.Fprintln(w, help)
}

// completer completes dot-commands, operation names and, after .schema,
// table names fetched from the live connection.
func (r *REPL) completer(ctx context.Context) *readline.PrefixCompleter {
	tables := func(string) []string {
		a, err := r.env.Manager().Relational(ctx)
		if err != nil {
			return nil
		}
		names, err := a.ListTables(ctx)
		if err != nil {
			return nil
		}
		return names
	}
	backends := []readline.PrefixCompleterInterface{
		readline.PcItem("relational"),
		readline.PcItem("document"),
		readline.PcItem("all"),
	}

	items := []readline.PrefixCompleterInterface{
		readline.PcItem(".help"),
		readline.PcItem(".ops"),
		readline.PcItem(".tables"),
		readline.PcItem(".collections"),
		readline.PcItem(".schema", readline.PcItemDynamic(tables)),
		readline.PcItem(".connect", backends...),
		readline.PcItem(".close", backends...),
		readline.PcItem(".status"),
		readline.PcItem(".history"),
		readline.PcItem(".quit"),
	}
	for _, info := range core.Operations() {
		items = append(items, readline.PcItem(string(info.Operation)))
	}
	return readline.NewPrefixCompleter(items...)
}
