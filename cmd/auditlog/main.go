// Command auditlog consumes auth audit events from RabbitMQ and appends them
// to a log file until interrupted.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/iliyamo/oob-marketplace/internal/config"
	"github.com/iliyamo/oob-marketplace/internal/logging"
	"github.com/iliyamo/oob-marketplace/internal/queue"
)

func main() {
	cfg, err := config.LoadAudit()
	log := logging.New(cfg.IsProduction(), cfg.LogLevel)
	if err != nil {
		log.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	consumer := &queue.AuditConsumer{
		URL:     cfg.Queue.URL,
		Queue:   cfg.Queue.AuditName,
		LogPath: cfg.Queue.LogPath,
		Log:     log,
	}
	log.Info("audit consumer started", "queue", cfg.Queue.AuditName, "file", cfg.Queue.LogPath)
	if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("audit consumer stopped", "err", err)
		os.Exit(1)
	}
	log.Info("audit consumer stopped")
}
