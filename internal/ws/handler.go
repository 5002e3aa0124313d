// Package ws bridges websocket connections to the hub. Each connection gets a
// writer goroutine draining the player's outbound channel and a reader loop
// feeding raw frames into the hub inbox; the hub never touches a socket.
package ws

import (
	"context"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/chainduel/backend/internal/hub"
	"github.com/chainduel/backend/internal/player"
)

const (
	outboundBuffer = 64
	writeTimeout   = 3 * time.Second
)

var nextSocketID atomic.Uint64

func Handler(h *hub.Hub, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			// Clients connect from arbitrary origins; auth happens at the
			// message level, not the handshake.
			InsecureSkipVerify: true,
		})
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		id := nextSocketID.Add(1)
		out := make(chan []byte, outboundBuffer)
		closeConn := func() {
			conn.Close(websocket.StatusPolicyViolation, "kicked")
		}
		p := player.New(id, anonymousName(id), out, closeConn, log)

		h.Inbox() <- hub.Connect{Player: p}
		defer func() { h.Inbox() <- hub.Disconnect{Player: p} }()

		// Writer goroutine
		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			// The outbox is never closed (sessions may still Send after a
			// disconnect), so the writer exits on context cancellation.
			for {
				select {
				case payload := <-out:
					ctx, cancel := context.WithTimeout(writeCtx, writeTimeout)
					err := conn.Write(ctx, websocket.MessageText, payload)
					cancel()
					if err != nil {
						return
					}
				case <-writeCtx.Done():
					return
				}
			}
		}()

		// Reader loop
		for {
			_, data, err := conn.Read(r.Context())
			if err != nil {
				if s := websocket.CloseStatus(err); s != websocket.StatusNormalClosure && s != websocket.StatusGoingAway {
					log.Debug("connection read ended", zap.Uint64("socket", p.ID), zap.Error(err))
				}
				return
			}

			// Transport-level heartbeat, answered without waking the hub.
			if string(data) == "ping" {
				_ = conn.Write(r.Context(), websocket.MessageText, []byte("pong"))
				continue
			}

			h.Inbox() <- hub.FromClient{Player: p, Raw: data}
		}
	}
}

func anonymousName(id uint64) string {
	return "Anonymous-" + strconv.FormatUint(id, 10)
}
