package commands

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// ExecOptions holds options for the exec command.
type ExecOptions struct {
	File string
}

// NewExecCommand creates the exec command.
func NewExecCommand() *cobra.Command {
	opts := &ExecOptions{}

	cmd := &cobra.Command{
		Use:   "exec [intent]",
		Short: "Execute one intent",
		Long: `Execute a single intent against the configured backends.

The intent is either JSON, as produced by a natural-language front end, or
shorthand of the form "operation [target] [key=value ...]". With no argument
and no --file the intent is read from stdin.`,
		Example: `  dbpilot exec '{"operation":"view_table","target":"users","parameters":{"limit":5}}'
  dbpilot exec view_table users limit=5
  dbpilot exec update_row users 'set_values={"age":31}' 'condition="id = 1"'
  echo '{"operation":"list_collections"}' | dbpilot exec`,
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := execInput(cmd, args, opts)
			if err != nil {
				return err
			}
			in, err := ParseLine(text)
			if err != nil {
				return err
			}

			env := GetEnv(cmd.Context())
			res := env.Dispatcher().Dispatch(cmd.Context(), in)
			return renderResult(env.Renderer, res)
		},
	}

	cmd.Flags().StringVarP(&opts.File, "file", "f", "", "Read the intent from a file")

	return cmd
}

// execInput joins shorthand arguments back into one line; a single JSON
// argument is passed through unchanged.
func execInput(cmd *cobra.Command, args []string, opts *ExecOptions) (string, error) {
	switch {
	case opts.File != "":
		data, err := os.ReadFile(opts.File)
		if err != nil {
			return "", fmt.Errorf("failed to read intent file: %w", err)
		}
		return string(data), nil
	case len(args) == 1:
		return args[0], nil
	case len(args) > 1:
		return joinArgs(args), nil
	default:
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("failed to read intent from stdin: %w", err)
		}
		if strings.TrimSpace(string(data)) == "" {
			return "", fmt.Errorf("no intent given")
		}
		return string(data), nil
	}
}

// joinArgs re-quotes arguments the shell already split so values with
// spaces survive a second split.
func joinArgs(args []string) string {
	parts := make([]string, len(args))
	for i, a := range args {
		key, value, ok := strings.Cut(a, "=")
		switch {
		case ok && strings.ContainsAny(value, " \t") && !strings.ContainsAny(value[:1], `{["'`):
			q := `"`
			if strings.Contains(value, `"`) {
				q = "'"
			}
			parts[i] = key + "=" + q + value + q
		default:
			parts[i] = a
		}
	}
	return strings.Join(parts, " ")
}
