package commands

import (
	"errors"

	"github.com/leapstack-labs/dbpilot/internal/history"
	"github.com/leapstack-labs/dbpilot/internal/render"
	"github.com/leapstack-labs/dbpilot/pkg/core"
	"github.com/spf13/cobra"
)

// HistoryOptions holds options for the history command.
type HistoryOptions struct {
	Limit     int
	Operation string
	Failed    bool
	Clear     bool
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand() *cobra.Command {
	opts := &HistoryOptions{}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show executed operations",
		Long: `Show the operations recorded in the local history database, newest
first. History is kept when history.enabled is set.`,
		Example: `  dbpilot history --limit 20
  dbpilot history --operation add_record --failed
  dbpilot history -o json
  dbpilot history --clear`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env := GetEnv(cmd.Context())
			h := env.History()
			if h == nil {
				return errors.New("history is disabled; set history.enabled or pass --history")
			}

			if opts.Clear {
				n, err := h.Clear(cmd.Context())
				if err != nil {
					return err
				}
				env.Renderer.Printf("Cleared %d history entries\n", n)
				return nil
			}

			if opts.Operation != "" {
				if !core.Operation(opts.Operation).Known() {
					return &core.UnknownOperationError{Operation: opts.Operation}
				}
			}

			entries, err := h.List(cmd.Context(), history.ListOptions{
				Limit:     opts.Limit,
				Operation: core.Operation(opts.Operation),
				Failed:    opts.Failed,
			})
			if err != nil {
				return err
			}

			switch env.Renderer.Mode() {
			case render.ModeJSON, render.ModeYAML:
				return env.Renderer.Value(entries)
			}
			if len(entries) == 0 {
				env.Renderer.Println(render.NoItems)
				return nil
			}
			return env.Renderer.Table(historyTable(entries))
		},
	}

	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", history.DefaultLimit, "Maximum number of entries")
	cmd.Flags().StringVar(&opts.Operation, "operation", "", "Only show this operation")
	cmd.Flags().BoolVar(&opts.Failed, "failed", false, "Only show failed operations")
	cmd.Flags().BoolVar(&opts.Clear, "clear", false, "Delete all history entries")

	_ = cmd.RegisterFlagCompletionFunc("operation", operationCompletion)

	return cmd
}

func operationCompletion(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
	ops := core.Operations()
	names := make([]string, len(ops))
	for i, info := range ops {
		names[i] = string(info.Operation)
	}
	return names, cobra.ShellCompDirectiveNoFileComp
}
