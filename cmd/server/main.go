package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/kurobon/gitlane/internal/config"
	"github.com/kurobon/gitlane/internal/server"
)

func main() {
	cfg := config.Global
	if path := os.Getenv("GITLANE_CONFIG"); path != "" {
		if err := cfg.LoadFile(path); err != nil {
			log.Fatal(err)
		}
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	logger := cfg.Logger(os.Stderr)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := server.Serve(ctx, cfg, logger); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
