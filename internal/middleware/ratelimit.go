package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
)

// RateLimit returns a fixed-window request limiter backed by Redis:
// at most `limit` requests per client IP and route per `window`.  With a
// nil Redis client (connection failed at startup) the middleware is a
// pass-through, so the API degrades to unlimited rather than refusing
// traffic.  Redis errors during a request likewise fail open.
func RateLimit(rdb *redis.Client, limit int, window time.Duration) echo.MiddlewareFunc {
	if rdb == nil || limit <= 0 {
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error { return next(c) }
		}
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			slot := time.Now().Unix() / int64(window/time.Second)
			key := fmt.Sprintf("rl:%s:%s:%d", c.RealIP(), c.Path(), slot)

			n, err := rdb.Incr(ctx, key).Result()
			if err != nil {
				return next(c)
			}
			if n == 1 {
				// First hit opens the window; expiry reaps the key.
				_ = rdb.Expire(ctx, key, window).Err()
			}
			remaining := int64(limit) - n
			if remaining < 0 {
				remaining = 0
			}
			c.Response().Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
			c.Response().Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
			if n > int64(limit) {
				retry := window - time.Duration(time.Now().Unix()%int64(window/time.Second))*time.Second
				c.Response().Header().Set("Retry-After", strconv.Itoa(int(retry/time.Second)))
				return c.JSON(http.StatusTooManyRequests, echo.Map{"error": "rate limit exceeded"})
			}
			return next(c)
		}
	}
}
