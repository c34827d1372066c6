package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/avvvet/erpbuddy-assistant/internal/app"
	"github.com/avvvet/erpbuddy-assistant/internal/logging"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the NATS, HTTP and metrics endpoints",
	Long: `Run the assistant service. Configuration comes from the environment
(see .env.example); Redis and NATS must be reachable.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	// the service logs at $LOG_LEVEL unless the flag is given
	level := cfg.LogLevel
	if cmd.Flags().Changed("log-level") {
		level, _ = cmd.Flags().GetString("log-level")
	}
	logger, err := logging.New(level)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return app.Serve(ctx, cfg, logger)
}
