package cli

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/sudolite/sudolite/config"
	"github.com/sudolite/sudolite/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the sudolite HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		if err := config.ValidateSessionKeys(); err != nil {
			return err
		}

		srv, err := server.New(cfg)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		return srv.Run(ctx)
	},
}
