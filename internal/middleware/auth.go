package middleware

import (
	"strings"

	"github.com/eventhub/backend/internal/auth"
	"github.com/eventhub/backend/internal/config"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const CtxWallet = "wallet"

// AuthMiddleware requires a wallet session token issued by /api/auth/wallet.
func AuthMiddleware(cfg *config.Config, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return unauthorized(c, "missing authorization header")
		}

		tokenStr := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenStr == authHeader {
			return unauthorized(c, "invalid authorization format")
		}

		claims, err := auth.ParseJWT(cfg.JWTSecret, tokenStr)
		if err != nil {
			log.Debug("jwt parse error", zap.Error(err))
			return unauthorized(c, "invalid or expired token")
		}

		c.Locals(CtxWallet, claims.Wallet)
		return c.Next()
	}
}

// GetWallet returns the lower-cased wallet of the session, "" when anonymous.
func GetWallet(c *fiber.Ctx) string {
	w, _ := c.Locals(CtxWallet).(string)
	return w
}

func unauthorized(c *fiber.Ctx, msg string) error {
	reqID, _ := c.Locals(CtxRequestID).(string)
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"error":      msg,
		"kind":       "authentication",
		"request_id": reqID,
	})
}
