// Package cli provides the sudolite CLI commands.
package cli

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/sudolite/sudolite/config"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "sudolite",
	Short: "sudolite - just-in-time admin privilege elevation service",
	Long: `sudolite lets authenticated users temporarily elevate to administrator
privileges by re-confirming their password, and automatically demotes
them after a period of inactivity.`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(createUserCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig loads configuration and applies the logging settings.
func loadConfig() (*config.Config, error) {
	if err := config.Load(configPath); err != nil {
		return nil, err
	}

	cfg := config.Get()

	if cfg.Logging.Format == config.TextLogFormat {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	if cfg.Logging.WithCaller {
		log.Logger = log.Logger.With().Caller().Logger()
	}

	return cfg, nil
}
