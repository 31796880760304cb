package http

import (
	"time"

	"github.com/eventhub/backend/internal/config"
	"github.com/eventhub/backend/internal/http/handlers"
	"github.com/eventhub/backend/internal/middleware"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// SetupRouter mounts every route. rdb and wsHub may be nil; without redis
// the rate limit is kept per process.
func SetupRouter(
	app *fiber.App,
	cfg *config.Config,
	log *zap.Logger,
	rdb *redis.Client,
	eventHandler *handlers.EventHandler,
	soundCloudHandler *handlers.SoundCloudHandler,
	authHandler *handlers.AuthHandler,
	tippingHandler *handlers.TippingHandler,
	receiverHandler *handlers.ReceiverHandler,
	wsHub *handlers.WSHub,
) {
	// Global middleware
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.CORSAllowOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Request-ID",
	}))
	app.Use(middleware.RequestIDMiddleware())
	app.Use(middleware.LoggerMiddleware(log))

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api := app.Group("/api")

	switch {
	case cfg.RateLimitPerMinute <= 0:
	case rdb != nil:
		api.Use(middleware.RateLimitMiddleware(rdb, cfg.RateLimitPerMinute, time.Minute, log))
	default:
		api.Use(middleware.NewLocalRateLimiter(cfg.RateLimitPerMinute).Middleware())
	}

	// Events
	api.Post("/events", eventHandler.SubmitEvent)
	api.Get("/events", eventHandler.ListEvents)
	api.Get("/events/stats", eventHandler.GetStats)
	api.Get("/events/:id", eventHandler.GetEvent)
	api.Get("/events/:id/history", eventHandler.GetHistory)
	api.Post("/events/:id/confirm", eventHandler.ConfirmEvent)

	// Platform integrations
	api.Post("/soundcloud/like", soundCloudHandler.Like)
	api.Post("/soundcloud/follow", soundCloudHandler.Follow)

	// Wallet login
	api.Post("/auth/nonce", authHandler.Nonce)
	api.Post("/auth/wallet", authHandler.WalletLogin)

	requireWallet := middleware.AuthMiddleware(cfg, log)

	// Tipping
	api.Get("/tipping/config", tippingHandler.GetConfig)
	api.Post("/tipping/config", requireWallet, tippingHandler.SaveConfig)
	api.Delete("/tipping/config", requireWallet, tippingHandler.DeleteConfig)
	api.Post("/tipping/quote", tippingHandler.Quote)
	api.Post("/tipping/recordPayment", tippingHandler.RecordPayment)

	// Receivers
	api.Post("/receivers/claim", requireWallet, receiverHandler.Claim)
	api.Get("/receivers/resolve", receiverHandler.Resolve)
	api.Get("/receivers/list", receiverHandler.List)

	// WebSocket
	if wsHub != nil {
		app.Use("/ws", handlers.WSUpgradeMiddleware())
		app.Get("/ws", websocket.New(wsHub.HandleWS))
	}
}
