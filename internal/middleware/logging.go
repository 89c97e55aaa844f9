// Package middleware provides HTTP middleware for the student records Echo
// server. Global middleware is registered in internal/app; the auth guard
// lives with the auth plugin.
package middleware

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// RequestIDHeader carries the per-request correlation id.
const RequestIDHeader = "X-Request-ID"

// contextKeyRequestID is the Echo context key for the request id.
const contextKeyRequestID = "request_id"

// RequestLogger returns middleware that logs every HTTP request with
// structured fields: request id, method, path, status, latency, and remote
// IP. An incoming X-Request-ID is reused; otherwise a UUID is generated and
// echoed back on the response.
func RequestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()
			res := c.Response()

			id := req.Header.Get(RequestIDHeader)
			if id == "" {
				id = uuid.NewString()
			}
			c.Set(contextKeyRequestID, id)
			res.Header().Set(RequestIDHeader, id)

			err := next(c)
			if err != nil {
				// Run the error handler now so the logged status is the
				// one the client receives.
				c.Error(err)
			}

			attrs := []slog.Attr{
				slog.String("request_id", id),
				slog.String("method", req.Method),
				slog.String("path", req.URL.Path),
				slog.Int("status", res.Status),
				slog.Duration("latency", time.Since(start)),
				slog.String("remote_ip", c.RealIP()),
			}

			level := slog.LevelInfo
			if res.Status >= 500 {
				level = slog.LevelError
			} else if res.Status >= 400 {
				level = slog.LevelWarn
			}

			slog.LogAttrs(req.Context(), level, "request", attrs...)

			return nil
		}
	}
}

// GetRequestID returns the id assigned by RequestLogger, or "".
func GetRequestID(c echo.Context) string {
	id, _ := c.Get(contextKeyRequestID).(string)
	return id
}
