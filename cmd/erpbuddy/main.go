// Command erpbuddy runs the assistant locally: an interactive chat against
// a SQLite catalog with a dry-run executor, catalog seeding, intent and
// date inspection, and the full server.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/avvvet/erpbuddy-assistant/internal/config"
	"github.com/avvvet/erpbuddy-assistant/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:           "erpbuddy",
	Short:         "Conversational ERP assistant",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "error", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("catalog", "", "catalog DSN (default $CATALOG_DSN)")
	rootCmd.PersistentFlags().String("company", "demo", "company id for catalog and commands")
}

func main() {
	_ = godotenv.Load()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// loadConfig reads the environment and applies the persistent flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if dsn, _ := cmd.Flags().GetString("catalog"); dsn != "" {
		cfg.CatalogDSN = dsn
	}
	return cfg, nil
}

func newLogger(cmd *cobra.Command) (*zap.Logger, error) {
	level, _ := cmd.Flags().GetString("log-level")
	return logging.New(level)
}
