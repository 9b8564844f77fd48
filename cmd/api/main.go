package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"audio-insights-go/internal/app"
	"audio-insights-go/internal/config"
	"audio-insights-go/internal/httpapi"
	"audio-insights-go/internal/logger"
	"audio-insights-go/internal/server"
)

func main() {
	_ = godotenv.Load() // loads .env

	cfg := config.Load()
	log := logger.New()
	log.WithField("environment", cfg.Environment).Info("starting service")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Error("failed to initialize")
		os.Exit(1)
	}
	defer a.Close(context.Background())

	handler := httpapi.NewRouter(a.Pipeline, a.Analytics, log)
	if err := server.New(cfg, handler, log).Run(ctx); err != nil {
		log.WithError(err).Error("server stopped with error")
		os.Exit(1)
	}
	log.Info("server stopped")
}
