package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cantonfair/scraper/internal/config"
	"cantonfair/scraper/internal/container"
	"cantonfair/scraper/internal/service"

	log "github.com/sirupsen/logrus"
)

func main() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.Info("Starting Canton Fair scraper...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	level, err := log.ParseLevel(cfg.Log.Level)
	if err != nil {
		log.Warnf("⚠️ Unknown log level %q, using info", cfg.Log.Level)
		level = log.InfoLevel
	}
	log.SetLevel(level)
	log.Info("Configuration loaded successfully")

	app, err := container.New(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize container: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	ctx = service.WithStartTime(ctx, start)

	if err := run(ctx, app); err != nil {
		log.Errorf("Application exited with error after %s: %v", time.Since(start).Round(time.Second), err)
		stop()
		os.Exit(1)
	}

	log.Infof("Application finished successfully in %s", time.Since(start).Round(time.Second))
}

type application interface {
	Run(ctx context.Context) error
	Close() error
}

// run executes the application and closes it exactly once.
func run(ctx context.Context, app application) error {
	runErr := app.Run(ctx)
	if err := app.Close(); err != nil {
		log.Warnf("⚠️ Failed to close application: %v", err)
	}
	return runErr
}
