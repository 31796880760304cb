package middleware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// RateLimitMiddleware counts requests per path and client IP in redis, so
// every replica shares the budget. Redis errors fail open.
func RateLimitMiddleware(rdb *redis.Client, limit int, window time.Duration, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := fmt.Sprintf("rl:%s:%s", c.Path(), c.IP())

		ctx, cancel := context.WithTimeout(c.UserContext(), 200*time.Millisecond)
		defer cancel()

		count, err := rdb.Incr(ctx, key).Result()
		if err != nil {
			log.Debug("rate limit check skipped", zap.Error(err))
			return c.Next()
		}

		if count == 1 {
			rdb.Expire(ctx, key, window)
		}

		if count > int64(limit) {
			return tooManyRequests(c)
		}

		return c.Next()
	}
}

// LocalRateLimiter is the single-process token bucket used without redis.
type LocalRateLimiter struct {
	mu       sync.Mutex
	perMin   int
	visitors map[string]*visitor
	idleTTL  time.Duration
	now      func() time.Time
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewLocalRateLimiter(perMinute int) *LocalRateLimiter {
	return &LocalRateLimiter{
		perMin:   perMinute,
		visitors: make(map[string]*visitor),
		idleTTL:  5 * time.Minute,
		now:      time.Now,
	}
}

func (l *LocalRateLimiter) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !l.allow(c.Path() + "|" + c.IP()) {
			return tooManyRequests(c)
		}
		return c.Next()
	}
}

func (l *LocalRateLimiter) allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for k, v := range l.visitors {
		if now.Sub(v.lastSeen) > l.idleTTL {
			delete(l.visitors, k)
		}
	}

	v, ok := l.visitors[key]
	if !ok {
		perSecond := float64(l.perMin) / 60.0
		if perSecond <= 0 {
			perSecond = 1
		}
		burst := l.perMin
		if burst <= 0 {
			burst = 1
		}
		v = &visitor{limiter: rate.NewLimiter(rate.Limit(perSecond), burst)}
		l.visitors[key] = v
	}
	v.lastSeen = now
	return v.limiter.AllowN(now, 1)
}

func tooManyRequests(c *fiber.Ctx) error {
	reqID, _ := c.Locals(CtxRequestID).(string)
	return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
		"error":      "rate limit exceeded",
		"kind":       "rate_limited",
		"request_id": reqID,
	})
}
