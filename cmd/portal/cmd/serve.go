package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/portalautarca/portal/internal/config"
	"github.com/portalautarca/portal/internal/logger"
	"github.com/portalautarca/portal/internal/server"

	"github.com/spf13/cobra"
)

func ServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			logger.Init(cfg.IsDevelopment(), cfg.SentryDSN)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return server.Run(ctx, cfg)
		},
	}
}
