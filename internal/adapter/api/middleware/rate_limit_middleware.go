package middleware

import (
	"log"
	"math"
	"strconv"

	"github.com/labstack/echo/v4"

	"swapmarket/internal/infrastructure/ratelimit"
	"swapmarket/pkg/errors"
	"swapmarket/pkg/response"
)

// RateLimit limits an action per authenticated user, falling back to the
// client IP for anonymous requests.
func RateLimit(limiter *ratelimit.RateLimiter, action string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key, ok := c.Get("uid").(string)
			if !ok || key == "" {
				key = "ip:" + c.RealIP()
			}

			allowed, wait := limiter.Allow(key, action)
			if !allowed {
				log.Printf("RATE LIMIT: %s exceeded %s", key, action)
				c.Response().Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
				return response.Error(c, errors.TooManyRequests("Rate limit exceeded"))
			}

			return next(c)
		}
	}
}
