package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// CachingMiddleware sets Cache-Control headers on GET responses based on endpoint.
// Handlers that set their own header win.
func CachingMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()

		if c.Method() != fiber.MethodGet {
			return err
		}

		if existing := c.Get(fiber.HeaderCacheControl); existing != "" {
			return err
		}
		if len(c.Response().Header.Peek(fiber.HeaderCacheControl)) > 0 {
			return err
		}

		// A degraded geometry reflects a transient failure upstream.
		if len(c.Response().Header.Peek(headerDegraded)) > 0 {
			c.Set(fiber.HeaderCacheControl, "no-store")
			return err
		}

		path := c.Path()
		var ttl string

		switch {
		case path == "/v1/health" || path == "/v1/ready":
			ttl = "public, max-age=10"

		case path == "/metrics" || path == "/ws":
			ttl = "no-cache"

		case path == "/v1/routes":
			ttl = "public, max-age=3600" // fixed route table

		case strings.HasPrefix(path, "/v1/routes/") && strings.HasSuffix(path, "/map.png"):
			ttl = "public, max-age=600"

		case strings.HasPrefix(path, "/v1/routes/"):
			ttl = "public, max-age=300"

		case strings.HasPrefix(path, "/v1/tracks"):
			ttl = "private, max-age=0" // changes on every load

		case strings.HasPrefix(path, "/v1/"):
			ttl = "public, max-age=60"
		}

		if ttl != "" {
			c.Set(fiber.HeaderCacheControl, ttl)
		}

		return err
	}
}
