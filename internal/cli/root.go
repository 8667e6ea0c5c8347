// Package cli provides the command-line interface for dbpilot.
package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/leapstack-labs/dbpilot/internal/cli/commands"
	"github.com/leapstack-labs/dbpilot/internal/config"
	"github.com/leapstack-labs/dbpilot/internal/render"
	"github.com/leapstack-labs/dbpilot/pkg/adapter"
	"github.com/spf13/cobra"

	// Register relational adapters.
	_ "github.com/leapstack-labs/dbpilot/pkg/adapters/duckdb"
	_ "github.com/leapstack-labs/dbpilot/pkg/adapters/postgres"
	_ "github.com/leapstack-labs/dbpilot/pkg/adapters/sqlite"
)

// Version information (set at build time).
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	var cfgFile string

	rootCmd := &cobra.Command{
		Use:   "dbpilot",
		Short: "dbpilot - execute database intents",
		Long: `dbpilot executes structured intents against a relational database
(PostgreSQL, DuckDB or SQLite) and MongoDB.

An intent names one of a fixed set of operations, a target table or
collection, and parameters. Column types are inferred from names and sample
values when the intent does not give them.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if skipSetup(cmd) {
				return nil
			}

			cfg, err := config.Load(cfgFile, cmd.Flags())
			if err != nil {
				return err
			}

			logger, err := newLogger(cmd, cfg.LogLevel)
			if err != nil {
				return err
			}
			mode, err := render.ParseMode(cfg.Output)
			if err != nil {
				return err
			}

			if cfg.FileUsed != "" {
				logger.Debug("using config file", slog.String("path", cfg.FileUsed))
			}

			env := &commands.Env{
				Config:   cfg,
				Logger:   logger,
				Renderer: render.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode),
			}
			cmd.SetContext(commands.WithEnv(cmd.Context(), env))
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			if skipSetup(cmd) {
				return nil
			}
			return commands.GetEnv(cmd.Context()).Close(cmd.Context())
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetVersionTemplate(`{{.Name}} {{.Version}}
`)

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default: ./dbpilot.yaml)")
	pf.String("log-level", "", "Log level (debug|info|warn|error)")
	pf.StringP("output", "o", "", "Output format ("+strings.Join(render.Modes(), "|")+")")
	pf.String("db-type", "", "Relational engine ("+strings.Join(adapter.ListAdapters(), "|")+")")
	pf.String("db-path", "", "Database file for duckdb and sqlite (empty for in-memory)")
	pf.String("db-schema", "", "Default schema")
	pf.String("mongo-uri", "", "MongoDB connection URI")
	pf.String("mongo-db", "", "MongoDB database name")
	pf.Bool("history", false, "Record executed operations")
	pf.String("history-path", "", "Path to the history database")

	_ = rootCmd.RegisterFlagCompletionFunc("output", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return render.Modes(), cobra.ShellCompDirectiveNoFileComp
	})
	_ = rootCmd.RegisterFlagCompletionFunc("db-type", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return adapter.ListAdapters(), cobra.ShellCompDirectiveNoFileComp
	})
	_ = rootCmd.RegisterFlagCompletionFunc("log-level", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return config.LogLevels, cobra.ShellCompDirectiveNoFileComp
	})

	rootCmd.AddCommand(commands.NewVersionCommand(commands.BuildInfo{Version: Version, Commit: GitCommit, Date: BuildDate}))
	rootCmd.AddCommand(commands.NewExecCommand())
	rootCmd.AddCommand(commands.NewREPLCommand())
	rootCmd.AddCommand(commands.NewImportCommand())
	rootCmd.AddCommand(commands.NewServeCommand())
	rootCmd.AddCommand(commands.NewHistoryCommand())
	rootCmd.AddCommand(commands.NewInferCommand())
	rootCmd.AddCommand(commands.NewConnectCommand())
	rootCmd.AddCommand(commands.NewOpsCommand())
	rootCmd.AddCommand(NewCompletionCommand())

	return rootCmd
}

// skipSetup reports whether cmd runs without configuration.
func skipSetup(cmd *cobra.Command) bool {
	switch cmd.Name() {
	case "help", "completion", "__complete", "version":
		return true
	}
	return false
}

func newLogger(cmd *cobra.Command, level string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: lvl})), nil
}

// Execute runs the root command.
func Execute() error {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, commands.ErrOperationFailed) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		return err
	}
	return nil
}

// NewCompletionCommand creates the completion command.
func NewCompletionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for dbpilot.

To load completions:

Bash:
  $ source <(dbpilot completion bash)

Zsh:
  $ dbpilot completion zsh > "${fpath[1]}/_dbpilot"

Fish:
  $ dbpilot completion fish | source

PowerShell:
  PS> dbpilot completion powershell | Out-String | Invoke-Expression
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(out)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(out)
			}
			return nil
		},
	}
	return cmd
}
