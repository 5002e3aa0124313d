package ws

import (
	"context"
	"net/http/httptest"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/chainduel/backend/internal/hub"
	"github.com/chainduel/backend/internal/session"
	"github.com/chainduel/backend/internal/sim"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	h := hub.NewHub(ctx, hub.Config{Secret: "sekrit", Session: session.DefaultConfig()}, nil,
		func(p sim.Params) sim.Game { return sim.NewDuel(p) }, zap.NewNop())

	srv := httptest.NewServer(Handler(h, zap.NewNop()))
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

// An idle client never receives anything, so its writer goroutine has no
// outbound message to fail on. It must still exit when the connection does.
func TestIdleDisconnectReleasesWriter(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()

	baseline := runtime.NumGoroutine()

	for i := 0; i < 20; i++ {
		conn, _, err := websocket.Dial(ctx, wsURL(srv), nil)
		if err != nil {
			t.Fatalf("dial: %v", err)
		}
		conn.Close(websocket.StatusNormalClosure, "")
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if runtime.NumGoroutine() <= baseline+3 {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("goroutines did not drain: %d, baseline %d", runtime.NumGoroutine(), baseline)
}

func TestPingAnsweredWithPong(t *testing.T) {
	srv := newTestServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, wsURL(srv), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	if err := conn.Write(ctx, websocket.MessageText, []byte("ping")); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "pong" {
		t.Fatalf("want pong, got %q", data)
	}
}
