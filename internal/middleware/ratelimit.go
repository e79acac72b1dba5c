// Package middleware provides HTTP middleware for the Echo server.
// ratelimit.go adapts the sliding-window limiter to per-route admission
// control on abuse-prone endpoints (login, register, reset, resend).
package middleware

import (
	"math"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/taskbin/taskbin/internal/apperror"
	"github.com/taskbin/taskbin/internal/ratelimit"
)

// RateLimit returns middleware that admits at most max requests per window
// per client IP for the named action. The action prefixes the limiter key so
// different endpoints sharing one limiter never collide.
//
// Rejections carry the exact number of seconds until a retry could succeed,
// surfaced both in the JSON body and the Retry-After header.
func RateLimit(limiter *ratelimit.Limiter, action string, max int, window time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := action + ":" + c.RealIP()

			if !limiter.Allow(key, max, window) {
				retryAfter := int(math.Ceil(limiter.RetryAfter(key).Seconds()))
				if retryAfter < 1 {
					retryAfter = 1
				}
				return apperror.NewRateLimited(retryAfter)
			}

			return next(c)
		}
	}
}
