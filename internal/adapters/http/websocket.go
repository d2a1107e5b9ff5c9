package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/nats-io/nats.go"

	natsadapter "github.com/samirrijal/racemap/internal/adapters/nats"
	"github.com/samirrijal/racemap/internal/core/domain"
	"github.com/samirrijal/racemap/internal/core/usecases"
	"github.com/samirrijal/racemap/internal/pkg/metrics"
)

// wsMessage is sent from client to change the shown route.
type wsMessage struct {
	Action string `json:"action"` // "select" | "current"
	Route  string `json:"route"`  // route slug for "select"
	Zoom   int    `json:"zoom"`   // optional zoom override
}

// wsGeometry is pushed to the client once a selection has loaded.
type wsGeometry struct {
	Type string                `json:"type"`
	Data *domain.RouteGeometry `json:"data"`
}

// WebSocketHandler returns a handler driving one map surface per connection.
// Clients send {"action":"select","route":"10k"}; every selection change
// loads the route and only the newest selection's geometry is pushed back.
// When NATS is configured, geometry-built events from all instances are
// relayed as {"type":"built",...}.
func WebSocketHandler(deps *Dependencies) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		defer c.Close()

		logger := slog.Default().With("remote", c.RemoteAddr().String())
		logger.Info("ws client connected")
		metrics.ActiveWebSockets.Inc()
		defer metrics.ActiveWebSockets.Dec()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		var mu sync.Mutex
		writeJSON := func(v any) error {
			data, err := json.Marshal(v)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			return c.WriteMessage(websocket.TextMessage, data)
		}

		if deps.NATS != nil {
			sub, err := deps.NATS.Subscribe(natsadapter.GeometrySubjects, func(msg *nats.Msg) {
				ev, err := natsadapter.DecodeGeometryBuilt(msg.Data)
				if err != nil {
					logger.Warn("ws relay: bad geometry event", "error", err)
					return
				}
				_ = writeJSON(map[string]any{
					"type":              "built",
					"route":             ev.Route.Slug(),
					"points":            ev.Points,
					"total_distance_km": ev.TotalDistanceKm,
					"markers":           ev.Markers,
					"built_at":          ev.BuiltAt,
				})
			})
			if err != nil {
				logger.Error("ws relay subscribe failed", "error", err)
			} else {
				defer func() { _ = sub.Unsubscribe() }()
			}
		}

		// Keep-alive ping
		go func() {
			ticker := time.NewTicker(30 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					mu.Lock()
					err := c.WriteMessage(websocket.PingMessage, nil)
					mu.Unlock()
					if err != nil {
						return
					}
				case <-ctx.Done():
					return
				}
			}
		}()

		selector := usecases.NewSelector(deps.Routes)
		var loads sync.WaitGroup
		defer loads.Wait()
		defer cancel()

		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				break
			}

			var m wsMessage
			if err := json.Unmarshal(msg, &m); err != nil {
				_ = writeJSON(map[string]string{"error": "invalid JSON"})
				continue
			}

			switch m.Action {
			case "select":
				route := domain.ParseRouteID(m.Route)
				zoom := m.Zoom
				loads.Add(1)
				go func() {
					defer loads.Done()
					loadCtx, cancelLoad := context.WithTimeout(ctx, requestTimeout)
					defer cancelLoad()
					geom, ok := selector.Select(loadCtx, route)
					if !ok {
						return
					}
					shown := *geom
					shown.View = shown.View.WithZoom(zoom)
					_ = writeJSON(wsGeometry{Type: "geometry", Data: &shown})
				}()

			case "current":
				route, geom := selector.Current()
				_ = writeJSON(map[string]any{"type": "current", "route": route.Slug(), "loaded": geom != nil})

			default:
				_ = writeJSON(map[string]string{"error": "unknown action: " + m.Action})
			}
		}

		logger.Info("ws client disconnected")
	}
}
