package commands

import (
	"fmt"
	"os"

	"github.com/leapstack-labs/dbpilot/internal/render"
	"github.com/leapstack-labs/dbpilot/pkg/core"
	"github.com/leapstack-labs/dbpilot/pkg/infer"
	"github.com/leapstack-labs/dbpilot/pkg/schema"
	"github.com/spf13/cobra"
)

// NewInferCommand creates the infer command and its subcommands. It runs
// the type inference engine without touching any backend.
func NewInferCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "infer",
		Short: "Show inferred storage types",
		Long: `Show the storage types dbpilot would choose for column names, sample
values, or a CSV file. No database connection is made.`,
	}

	cmd.AddCommand(newInferNamesCommand())
	cmd.AddCommand(newInferValuesCommand())
	cmd.AddCommand(newInferCSVCommand())

	return cmd
}

func newInferNamesCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "names <column>...",
		Short:   "Infer types from column names",
		Example: `  dbpilot infer names user_id created_at is_active notes`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t := &core.Table{Columns: []string{"column", "type", "rule"}, Rows: make([][]any, len(args))}
			for i, name := range args {
				rule := "-"
				if r, ok := infer.MatchName(name); ok {
					rule = r.Name
				}
				t.Rows[i] = []any{name, string(infer.FromName(name)), rule}
			}
			return GetEnv(cmd.Context()).Renderer.Table(t)
		},
	}
}

func newInferValuesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "values <value>...",
		Short: "Infer types from sample values",
		Long: `Infer a storage type for each value. Arguments that parse as JSON are
typed as the decoded value, so 42 is a number and "42" is a string.`,
		Example: `  dbpilot infer values 42 3.5 true '"2024-01-31"' '{"a":1}' hello`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t := &core.Table{Columns: []string{"value", "type"}, Rows: make([][]any, len(args))}
			for i, arg := range args {
				t.Rows[i] = []any{arg, string(infer.FromValue(shorthandValue(arg)))}
			}
			return GetEnv(cmd.Context()).Renderer.Table(t)
		},
	}
}

func newInferCSVCommand() *cobra.Command {
	var delimiter string

	cmd := &cobra.Command{
		Use:     "csv <file.csv>",
		Short:   "Infer a table schema from a CSV file",
		Example: `  dbpilot infer csv people.csv -o json`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			delim, err := parseDelimiter(delimiter)
			if err != nil {
				return err
			}
			f, err := os.Open(args[0])
			if err != nil {
				if os.IsNotExist(err) {
					return fmt.Errorf("CSV file not found at path: %s", args[0])
				}
				return fmt.Errorf("failed to open CSV file: %w", err)
			}
			defer func() { _ = f.Close() }()

			frame, err := schema.ReadCSV(f, schema.CSVOptions{Delimiter: delim})
			if err != nil {
				return err
			}
			syn := schema.Synthesize(frame)

			r := GetEnv(cmd.Context()).Renderer
			switch r.Mode() {
			case render.ModeJSON, render.ModeYAML:
				return r.Value(syn.Schema)
			}
			t := &core.Table{Columns: []string{"column", "type"}, Rows: make([][]any, len(syn.Schema))}
			for i, c := range syn.Schema {
				t.Rows[i] = []any{c.Name, string(c.Type)}
			}
			if err := r.Table(t); err != nil {
				return err
			}
			r.Printf("Rows: %d\n", len(syn.Rows))
			return nil
		},
	}

	cmd.Flags().StringVarP(&delimiter, "delimiter", "d", ",", "Field delimiter")

	return cmd
}
