package commands

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/leapstack-labs/dbpilot/internal/server"
	"github.com/leapstack-labs/dbpilot/internal/session"
	"github.com/spf13/cobra"
)

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the intent API over HTTP",
		Long: `Start an HTTP server that executes intents.

Each caller picks a session with the X-Session-ID header and keeps its own
backend connections. The server stops on SIGINT or SIGTERM.`,
		Example: `  dbpilot serve --addr :9090
  curl -s localhost:9090/v1/intents -d '{"operation":"list_tables"}'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env := GetEnv(cmd.Context())
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv := server.New(server.Config{
				Addr:    env.Config.Server.Addr,
				Pool:    session.NewPool(env.sessionOptions()),
				History: env.History(),
				Logger:  env.Logger,
			})
			env.Renderer.Printf("Listening on %s\n", env.Config.Server.Addr)
			return srv.Serve(ctx)
		},
	}

	cmd.Flags().String("addr", "", "Listen address (default :8080)")

	return cmd
}
