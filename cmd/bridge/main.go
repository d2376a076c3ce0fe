package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"chat-bridge/internal/di"
	"chat-bridge/internal/infrastructure/env"
)

func main() {
	envService := env.NewEnvService()

	cfg, err := di.LoadConfig(envService)
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	container, err := di.NewContainer(ctx, cfg)
	if err != nil {
		log.Fatalf("Initialization failed: %v", err)
	}

	container.Logger.Info("Bridge started", "site", cfg.Site, "addr", container.Server.Addr(), "queue_policy", string(cfg.QueuePolicy))

	runErr := container.Run(ctx)
	if runErr != nil {
		container.Logger.Error("Bridge stopped", "error", runErr)
	} else {
		container.Logger.Info("Bridge stopped")
	}
	container.Close()

	if runErr != nil {
		os.Exit(1)
	}
}
