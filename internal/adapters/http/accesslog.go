package http

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
)

// AccessLogMiddleware writes one structured line per request. Route
// requests also carry the route slug and whether the geometry was degraded
// or the map came back as a placeholder. Scrapes of /metrics are skipped.
func AccessLogMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Path() == "/metrics" {
			return c.Next()
		}

		start := time.Now()
		method, path := c.Method(), c.Path()

		err := c.Next()

		status := c.Response().StatusCode()
		requestID, _ := c.Locals("requestid").(string)
		attrs := []slog.Attr{
			slog.String("method", method),
			slog.String("path", path),
			slog.Int("status", status),
			slog.Duration("latency", time.Since(start)),
			slog.Int("bytes_out", len(c.Response().Body())),
			slog.String("request_id", requestID),
		}
		if ct := c.Response().Header.ContentType(); len(ct) > 0 {
			attrs = append(attrs, slog.String("content_type", string(ct)))
		}
		if route := c.Params("id"); route != "" {
			attrs = append(attrs, slog.String("route", route))
		}
		if reason := c.Response().Header.Peek(headerDegraded); len(reason) > 0 {
			attrs = append(attrs, slog.String("degraded", string(reason)))
		}
		if len(c.Response().Header.Peek(headerPlaceholder)) > 0 {
			attrs = append(attrs, slog.Bool("placeholder", true))
		}

		level := slog.LevelInfo
		switch {
		case err != nil:
			attrs = append(attrs, slog.String("error", err.Error()))
			level = slog.LevelError
		case status >= 500:
			level = slog.LevelError
		case status >= 400:
			level = slog.LevelWarn
		}

		LoggerFromCtx(c.UserContext()).LogAttrs(c.UserContext(), level, method+" "+path, attrs...)
		return err
	}
}
