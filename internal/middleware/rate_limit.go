package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

const (
	rateLimitPrefix = "rl:lookup:"
	rateLimitWindow = time.Minute
)

// RateLimit caps requests per client IP in fixed one-minute windows. Every
// lookup spends upstream API quota, so the limit protects the shared key.
// Redis errors fail open.
func RateLimit(cache *redis.Client, maxPerMin int, logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if cache == nil || maxPerMin <= 0 {
			return c.Next()
		}
		key := rateLimitPrefix + c.IP()
		ctx := c.UserContext()

		var incr *redis.IntCmd
		var ttl *redis.DurationCmd
		_, err := cache.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			incr = pipe.Incr(ctx, key)
			ttl = pipe.TTL(ctx, key)
			return nil
		})
		if err != nil {
			logger.Warn("rate limit lookup failed", slog.String("key", key), slog.Any("error", err))
			return c.Next()
		}
		cnt := incr.Val()

		// A counter without a TTL would block the client forever.
		if ttl.Val() < 0 {
			if err := cache.Expire(ctx, key, rateLimitWindow).Err(); err != nil {
				logger.Warn("rate limit expiry failed", slog.String("key", key), slog.Any("error", err))
				cache.Del(ctx, key)
				return c.Next()
			}
		}
		if cnt > int64(maxPerMin) {
			return fiber.NewError(http.StatusTooManyRequests, "too many requests, try again later")
		}
		return c.Next()
	}
}
