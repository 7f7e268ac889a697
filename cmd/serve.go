package cmd

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/minsukl/toondex-ingest/internal/api"
)

// newServeCmd creates the 'serve' subcommand: the internal ops HTTP
// server with health, metrics, recent reports and a batch trigger.
func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the internal ops HTTP API",
		RunE:  runServeCommand,
	}
}

func runServeCommand(cmd *cobra.Command, _ []string) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	server := api.NewServer(
		appInstance.Reports(),
		appInstance,
		appInstance.Logger(),
		appInstance.Config().Server.Port,
	)
	return server.Start(ctx)
}
