package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/portalautarca/portal/internal/config"
	"github.com/portalautarca/portal/internal/logger"
	"github.com/portalautarca/portal/internal/server"
)

func main() {
	cfg := config.Load()

	logger.Init(cfg.IsDevelopment(), cfg.SentryDSN)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := server.Run(ctx, cfg)
	if err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}
