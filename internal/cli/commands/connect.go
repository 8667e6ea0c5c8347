package commands

import (
	"github.com/leapstack-labs/dbpilot/pkg/core"
	"github.com/spf13/cobra"
)

// NewConnectCommand creates the connect command.
func NewConnectCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "connect [relational|document|all]",
		Short: "Check backend connections",
		Long: `Open a connection to the configured backends and report the result.
With no argument both backends are tried.`,
		Example: `  dbpilot connect
  dbpilot connect document --mongo-uri mongodb://db:27017/`,
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"relational", "document", "all"},
		RunE: func(cmd *cobra.Command, args []string) error {
			env := GetEnv(cmd.Context())
			backends, err := parseBackends(args)
			if err != nil {
				return err
			}

			failed := false
			for _, b := range backends {
				msg, err := env.Manager().Connect(cmd.Context(), b)
				if err != nil {
					env.Renderer.Errorf("%s", core.SingleLine(err.Error()))
					failed = true
					continue
				}
				env.Renderer.Println(msg)
			}
			if failed {
				return ErrOperationFailed
			}
			return nil
		},
	}
}
