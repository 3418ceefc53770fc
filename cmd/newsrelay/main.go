package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"newsrelay/internal/app"
	"newsrelay/internal/config"
	"newsrelay/internal/logger"
)

func main() {
	devMode := flag.Bool("dev", false, "print deliveries to the console instead of sending")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	// A .env file is a development convenience, not a requirement.
	_ = godotenv.Load()

	logger.Init(*debug)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	cfg.DevMode = *devMode
	cfg.Debug = *debug

	a, err := app.New(cfg)
	if err != nil {
		logger.Error("startup failed", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.Run(ctx); err != nil {
		logger.Error("service exited", "error", err)
		os.Exit(1)
	}
	logger.Info("service stopped")
}
