package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"intakebot/internal/bootstrap"
	"intakebot/internal/config"
	"intakebot/internal/logger"
	"intakebot/internal/telegram"
	"log/slog"
)

const defaultConfigPath = "config.yaml"

func main() {
	if err := run(); err != nil {
		log.Fatalf("intakebot: %v", err)
	}
}

func run() error {
	// .env is optional; real deployments inject environment directly.
	_ = godotenv.Load()

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = defaultConfigPath
	}

	log.Printf("loading config: %s", cfgPath)
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}

	startedAt := time.Now()
	infra, err := bootstrap.Run(cfg)
	if err != nil {
		return err
	}
	defer infra.Close()

	defer func() {
		if err := logger.Shutdown(); err != nil {
			log.Printf("logger shutdown error: %v", err)
		}
	}()

	logger.L.With("component", "app").Info("app ready",
		slog.String("event", "ready"),
		slog.String("backend", cfg.Session.Backend),
		slog.Duration("startup_duration", logger.RoundMS(time.Since(startedAt))),
	)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	err = telegram.RunTelegram(ctx, cfg, infra.Store, infra.Gateway)

	logger.L.With("component", "app").Info("shutting down...",
		slog.String("event", "shutdown"),
	)
	return err
}
