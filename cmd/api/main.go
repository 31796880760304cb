package main

import (
	"context"
	"fmt"
	stdlog "log"
	"os"
	"os/signal"
	"syscall"

	"github.com/eventhub/backend/internal/config"
	"github.com/eventhub/backend/internal/db"
	"github.com/eventhub/backend/internal/events"
	apphttp "github.com/eventhub/backend/internal/http"
	"github.com/eventhub/backend/internal/http/handlers"
	"github.com/eventhub/backend/internal/logger"
	"github.com/eventhub/backend/internal/repositories"
	"github.com/eventhub/backend/internal/services"
	"github.com/eventhub/backend/internal/soundcloud"
	"github.com/eventhub/backend/migrations"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		stdlog.Fatalf("init logger: %v", err)
	}
	defer log.Sync()

	cfg.Validate(log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Storage
	stores := repositories.NewMemoryStores(nil)
	if cfg.UsePostgres() {
		pool, err := db.NewPostgresPool(ctx, cfg.PostgresDSN, log)
		if err != nil {
			log.Fatal("failed to connect to postgres", zap.Error(err))
		}
		defer pool.Close()

		if err := db.RunMigrations(ctx, pool, migrations.FS, log); err != nil {
			log.Fatal("failed to run migrations", zap.Error(err))
		}
		stores = repositories.NewPostgresStores(pool)
	}
	log.Info("storage ready", zap.String("driver", cfg.StorageDriver))

	// Redis is optional; without it pub/sub and rate limits stay in process.
	var rdb *redis.Client
	var publisher events.Publisher
	var subscriber events.Subscriber
	if cfg.RedisURL != "" {
		rdb, err = db.NewRedisClient(ctx, cfg.RedisURL, log)
		if err != nil {
			log.Fatal("failed to connect to redis", zap.Error(err))
		}
		defer rdb.Close()
		publisher = events.NewRedisPublisher(rdb, log)
		subscriber = events.NewRedisSubscriber(rdb, log)
	} else {
		bus := events.NewLocalBus(256, log)
		publisher, subscriber = bus, bus
	}

	var resolver services.CreatorResolver
	if cfg.SoundCloudResolveCreators {
		resolver = soundcloud.NewResolver(cfg.SoundCloudBaseURL, cfg.HTTPFetchTimeoutMS, cfg.HTTPFetchMaxRetries, log)
	}

	// Services
	eventService := services.NewEventService(stores, publisher, resolver, log)
	receiverService := services.NewReceiverService(stores, log)
	tippingService := services.NewTippingService(stores, eventService, receiverService, publisher, cfg, log)
	authService := services.NewAuthService(stores, cfg, log)

	// Handlers
	eventHandler := handlers.NewEventHandler(eventService, log)
	soundCloudHandler := handlers.NewSoundCloudHandler(eventService, log)
	authHandler := handlers.NewAuthHandler(authService, log)
	tippingHandler := handlers.NewTippingHandler(tippingService, log)
	receiverHandler := handlers.NewReceiverHandler(receiverService, log)
	wsHub := handlers.NewWSHub(subscriber, log)

	// Start WS hub
	if err := wsHub.Start(ctx); err != nil {
		log.Fatal("failed to subscribe to lifecycle events", zap.Error(err))
	}

	// Fiber app
	app := fiber.New(fiber.Config{
		AppName: "event-hub",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{"error": err.Error()})
		},
	})

	apphttp.SetupRouter(app, cfg, log, rdb,
		eventHandler, soundCloudHandler, authHandler, tippingHandler, receiverHandler, wsHub)

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")
		cancel()
		_ = app.Shutdown()
	}()

	addr := fmt.Sprintf(":%s", cfg.APIPort)
	log.Info("starting API server", zap.String("addr", addr))
	if err := app.Listen(addr); err != nil {
		log.Fatal("server error", zap.Error(err))
	}
}
