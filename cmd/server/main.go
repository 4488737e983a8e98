package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"bx-rounds/internal/app"
	"bx-rounds/internal/config"
	"bx-rounds/internal/logger"
	"bx-rounds/internal/monitoring"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	if err := logger.Init(cfg.LogLevel); err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	monitoring.Init()

	server, err := app.NewServer(cfg)
	if err != nil {
		logger.Log.Fatal("init server", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := server.Run(ctx); err != nil {
		logger.Log.Error("server stopped", zap.Error(err))
		os.Exit(1)
	}
}
