package middleware

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"
)

// RequestTimeout bounds the request context by d. Store calls that outlive
// it fail with context.DeadlineExceeded, rendered by ErrorHandler as 504.
// An earlier deadline already on the context wins; d <= 0 adds none.
func RequestTimeout(d time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if d <= 0 {
				return next(c)
			}
			req := c.Request()
			if dl, ok := req.Context().Deadline(); ok && time.Until(dl) <= d {
				return next(c)
			}
			ctx, cancel := context.WithTimeout(req.Context(), d)
			defer cancel()
			c.SetRequest(req.WithContext(ctx))
			return next(c)
		}
	}
}
