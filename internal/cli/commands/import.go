package commands

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/leapstack-labs/dbpilot/pkg/core"
	"github.com/leapstack-labs/dbpilot/pkg/schema"
	"github.com/spf13/cobra"
)

// ImportOptions holds options for the import command.
type ImportOptions struct {
	Backend   string
	Target    string
	Delimiter string
}

// NewImportCommand creates the import command.
func NewImportCommand() *cobra.Command {
	opts := &ImportOptions{}

	cmd := &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Create a table or collection from a CSV file",
		Long: `Create a table (relational) or collection (document) from a CSV file and
load every row. Column types are inferred from the values. Use "-" to read
from stdin.

The target defaults to the file name without its extension.`,
		Example: `  dbpilot import products.csv
  dbpilot import --backend document --target events events.csv
  cat data.tsv | dbpilot import --target data --delimiter '\t' -`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			backend, err := core.ParseBackend(opts.Backend)
			if err != nil {
				return err
			}
			delim, err := parseDelimiter(opts.Delimiter)
			if err != nil {
				return err
			}

			path := args[0]
			target := opts.Target
			if target == "" {
				if path == "-" {
					return fmt.Errorf("--target is required when reading from stdin")
				}
				target = TargetFromPath(path)
			}

			var r io.Reader = cmd.InOrStdin()
			if path != "-" {
				f, err := os.Open(path) //nolint:gosec // user-named input file
				if errors.Is(err, fs.ErrNotExist) {
					return fmt.Errorf("CSV file not found at path: %s", path)
				}
				if err != nil {
					return fmt.Errorf("failed to open CSV file: %w", err)
				}
				defer func() { _ = f.Close() }()
				r = f
			}

			env := GetEnv(cmd.Context())
			res := env.Dispatcher().Import(cmd.Context(), backend, target, r, schema.CSVOptions{Delimiter: delim})
			return renderResult(env.Renderer, res)
		},
	}

	cmd.Flags().StringVarP(&opts.Backend, "backend", "b", "relational", "Backend to load into (relational|document)")
	cmd.Flags().StringVarP(&opts.Target, "target", "t", "", "Table or collection name")
	cmd.Flags().StringVarP(&opts.Delimiter, "delimiter", "d", ",", "Field delimiter")

	_ = cmd.RegisterFlagCompletionFunc("backend", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"relational", "document"}, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

func parseDelimiter(s string) (rune, error) {
	if s == `\t` || s == "tab" {
		return '\t', nil
	}
	r, size := utf8.DecodeRuneInString(s)
	if s == "" || size != len(s) {
		return 0, fmt.Errorf("delimiter must be a single character, got %q", s)
	}
	return r, nil
}

// TargetFromPath derives a table name from a file path: the base name
// without extension, with characters other than letters, digits and
// underscores replaced by underscores.
func TargetFromPath(path string) string {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	name := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			return r
		}
		return '_'
	}, base)
	if name == "" {
		return "imported"
	}
	return name
}
