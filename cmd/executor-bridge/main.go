package main

import (
	"context"
	stdlog "log"
	"os"
	"os/signal"
	"syscall"

	"github.com/eventhub/backend/internal/config"
	"github.com/eventhub/backend/internal/db"
	"github.com/eventhub/backend/internal/events"
	"github.com/eventhub/backend/internal/logger"
	"github.com/eventhub/backend/internal/services"
	"go.uber.org/zap"
)

// Executor bridge: subscribes to the redis lifecycle feed and tells the
// payment executor about every event that just became verified.

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		stdlog.Fatalf("init logger: %v", err)
	}
	defer log.Sync()

	if cfg.RedisURL == "" || cfg.ExecutorWebhookURL == "" {
		log.Fatal("REDIS_URL and EXECUTOR_WEBHOOK_URL are required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL, log)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer rdb.Close()

	subscriber := events.NewRedisSubscriber(rdb, log)
	executor := services.NewExecutorClient(cfg.ExecutorWebhookURL, log)

	err = subscriber.Subscribe(ctx, events.StreamLifecycle, func(event events.Event) {
		if !services.Tippable(event) {
			return
		}
		log.Info("forwarding verified event", zap.Any("event_id", event.Payload["eventId"]))
		if err := executor.Forward(ctx, event); err != nil {
			log.Warn("failed to forward event", zap.Error(err))
		}
	})
	if err != nil {
		log.Fatal("failed to subscribe", zap.Error(err))
	}

	log.Info("executor-bridge started")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("shutting down executor-bridge")
	cancel()
}
