package commands

import (
	"github.com/leapstack-labs/dbpilot/pkg/core"
	"github.com/spf13/cobra"
)

// NewOpsCommand creates the ops command.
func NewOpsCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "ops",
		Aliases: []string{"operations"},
		Short:   "List supported operations",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return renderResult(GetEnv(cmd.Context()).Renderer, core.TableResult(operationsTable()))
		},
	}
}
