package http_test

import (
	"context"
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/fasthttp/websocket"
	"github.com/gofiber/fiber/v2"

	handler "github.com/samirrijal/racemap/internal/adapters/http"
	"github.com/samirrijal/racemap/internal/core/domain"
)

type wsReply struct {
	Type   string                `json:"type"`
	Route  string                `json:"route"`
	Loaded bool                  `json:"loaded"`
	Error  string                `json:"error"`
	Data   *domain.RouteGeometry `json:"data"`
}

// dialWS serves deps on a local listener and opens one WebSocket to /ws.
func dialWS(t *testing.T, deps *handler.Dependencies) *websocket.Conn {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	handler.SetupRoutes(app, deps)
	go func() { _ = app.Listener(ln) }()

	conn, _, err := websocket.DefaultDialer.Dial("ws://"+ln.Addr().String()+"/ws", nil)
	if err != nil {
		_ = app.Shutdown()
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() {
		_ = conn.Close()
		_ = app.ShutdownWithTimeout(time.Second)
	})
	return conn
}

func sendWS(t *testing.T, conn *websocket.Conn, msg string) {
	t.Helper()
	if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func readWS(t *testing.T, conn *websocket.Conn) wsReply {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var r wsReply
	if err := json.Unmarshal(data, &r); err != nil {
		t.Fatalf("decode %s: %v", data, err)
	}
	return r
}

func TestWebSocket_SelectPushesGeometry(t *testing.T) {
	conn := dialWS(t, makeDeps())

	sendWS(t, conn, `{"action":"select","route":"10k","zoom":12}`)
	r := readWS(t, conn)
	if r.Type != "geometry" || r.Data == nil {
		t.Fatalf("expected geometry, got %+v", r)
	}
	if r.Data.Route != domain.RouteTenK || len(r.Data.Track) != 3 {
		t.Errorf("unexpected geometry %+v", r.Data)
	}
	if r.Data.View.Zoom != 12 {
		t.Errorf("expected zoom override 12, got %d", r.Data.View.Zoom)
	}

	sendWS(t, conn, `{"action":"current"}`)
	r = readWS(t, conn)
	if r.Type != "current" || r.Route != "10k" || !r.Loaded {
		t.Errorf("unexpected current reply %+v", r)
	}
}

func TestWebSocket_LastSelectionWins(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	deps := makeDeps(withSource(&mockSource{
		fetchFn: func(ctx context.Context, path string) (string, error) {
			if path == domain.RouteFiveK.TrackFile() {
				close(started)
				select {
				case <-release:
				case <-ctx.Done():
				}
			}
			return testGPX, nil
		},
	}))
	conn := dialWS(t, deps)

	sendWS(t, conn, `{"action":"select","route":"5k"}`)
	<-started
	sendWS(t, conn, `{"action":"select","route":"3k"}`)

	r := readWS(t, conn)
	if r.Type != "geometry" || r.Data == nil || r.Data.Route != domain.RouteThreeK {
		t.Fatalf("expected 3k geometry first, got %+v", r)
	}

	close(release)
	sendWS(t, conn, `{"action":"current"}`)
	r = readWS(t, conn)
	if r.Type != "current" || r.Route != "3k" || !r.Loaded {
		t.Errorf("expected 3k to stay current, got %+v", r)
	}
}

func TestWebSocket_BadMessages(t *testing.T) {
	conn := dialWS(t, makeDeps())

	sendWS(t, conn, `not json`)
	if r := readWS(t, conn); r.Error != "invalid JSON" {
		t.Errorf("expected invalid JSON error, got %+v", r)
	}

	sendWS(t, conn, `{"action":"teleport"}`)
	if r := readWS(t, conn); r.Error != "unknown action: teleport" {
		t.Errorf("expected unknown action error, got %+v", r)
	}
}
