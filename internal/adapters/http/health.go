package http

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
)

const readyTimeout = 3 * time.Second

var errNotConfigured = errors.New("not configured")

// readinessCheck probes one backend. required checks fail readiness when
// the backend is missing; optional ones only report it.
type readinessCheck struct {
	name     string
	required bool
	probe    func(ctx context.Context) error
}

func readinessChecks(deps *Dependencies) []readinessCheck {
	return []readinessCheck{
		{name: "routes", required: true, probe: func(context.Context) error {
			if deps.Routes == nil {
				return errNotConfigured
			}
			return nil
		}},
		{name: "database", probe: func(ctx context.Context) error {
			if deps.DB == nil {
				return errNotConfigured
			}
			return deps.DB.Ping(ctx)
		}},
		{name: "nats", probe: func(context.Context) error {
			if deps.NATS == nil {
				return errNotConfigured
			}
			if !deps.NATS.IsConnected() {
				return errors.New("disconnected")
			}
			return nil
		}},
		{name: "cache", probe: func(ctx context.Context) error {
			if deps.Cache == nil {
				return errNotConfigured
			}
			return deps.Cache.Ping(ctx)
		}},
	}
}

// HealthHandler returns a basic liveness check.
func HealthHandler(deps *Dependencies) fiber.Handler {
	startedAt := time.Now()

	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "healthy",
			"uptime":  time.Since(startedAt).String(),
			"version": "dev",
			"routes":  knownRoutes(deps),
		})
	}
}

// ReadyHandler probes every backend. An optional backend that is not
// configured is reported as such and does not fail readiness.
func ReadyHandler(deps *Dependencies) fiber.Handler {
	checks := readinessChecks(deps)

	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), readyTimeout)
		defer cancel()

		results := make(map[string]string, len(checks))
		ready := true
		for _, chk := range checks {
			err := chk.probe(ctx)
			switch {
			case err == nil:
				results[chk.name] = "ok"
			case errors.Is(err, errNotConfigured):
				results[chk.name] = err.Error()
				if chk.required {
					ready = false
				}
			default:
				results[chk.name] = "error: " + err.Error()
				ready = false
			}
		}

		if !ready {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"status": "not ready",
				"checks": results,
			})
		}
		return c.JSON(fiber.Map{
			"status": "ready",
			"checks": results,
		})
	}
}

func knownRoutes(deps *Dependencies) []string {
	if deps.Routes == nil {
		return nil
	}
	ids := make([]string, 0, 3)
	for _, r := range deps.Routes.Routes() {
		ids = append(ids, r.ID.Slug())
	}
	return ids
}
