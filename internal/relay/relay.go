package relay

import (
	"context"
	"encoding/json"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/chainduel/backend/pkg/protocol"
)

// Relay is the client side of the database side-channel. It reconnects
// forever; a lost connection only costs whatever updates were in flight,
// which the server treats as best-effort anyway.
type Relay struct {
	serverURL string
	secret    string
	store     *Store
	log       *zap.Logger
}

func New(serverURL, secret string, store *Store, log *zap.Logger) *Relay {
	return &Relay{serverURL: serverURL, secret: secret, store: store, log: log}
}

// Run connects and serves until the context is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	for {
		if err := r.serve(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			r.log.Warn("relay connection lost, reconnecting", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(3 * time.Second):
		}
	}
}

func (r *Relay) serve(ctx context.Context) error {
	conn, _, err := websocket.Dial(ctx, r.serverURL, nil)
	if err != nil {
		return err
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	hello, _ := json.Marshal(protocol.DatabaseHello{
		Type:          "database:hello",
		Authorization: r.secret,
	})
	if err := conn.Write(ctx, websocket.MessageText, hello); err != nil {
		return err
	}
	r.log.Info("relay attached", zap.String("server", r.serverURL))

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return err
		}
		r.dispatch(ctx, conn, data)
	}
}

func (r *Relay) dispatch(ctx context.Context, conn *websocket.Conn, raw []byte) {
	typ, err := protocol.TypeOf(raw)
	if err != nil {
		return
	}
	switch typ {
	case "database:self":
		r.onSelf(ctx, conn, raw)
	case "elo update":
		r.onEloUpdate(raw)
	case "replay":
		r.onReplay(raw)
	}
}

// onSelf resolves a user row and answers with the stored ratings, addressed
// to the socket that introduced itself.
func (r *Relay) onSelf(ctx context.Context, conn *websocket.Conn, raw []byte) {
	var self protocol.SelfMessage
	if err := json.Unmarshal(raw, &self); err != nil {
		return
	}
	if self.AuthUUID == "" {
		return
	}
	u, err := r.store.EnsureUser(self.AuthUUID, self.Username)
	if err != nil {
		r.log.Error("user lookup failed", zap.Error(err))
		return
	}
	reply, _ := json.Marshal(protocol.DatabaseUser{
		Type:          "database:user",
		Authorization: r.secret,
		SocketID:      self.SocketID,
		Payload: protocol.UserUpdate{
			Type:        "user",
			Username:    u.Username,
			EloRealtime: u.EloRealtime,
			EloPausing:  u.EloPausing,
		},
	})
	_ = conn.Write(ctx, websocket.MessageText, reply)
}

func (r *Relay) onEloUpdate(raw []byte) {
	var upd protocol.EloUpdate
	if err := json.Unmarshal(raw, &upd); err != nil {
		return
	}
	if err := r.store.ApplyResult(upd.GameType, upd.Winner, upd.AuthUUIDs); err != nil {
		r.log.Error("elo update failed", zap.Error(err))
	}
}

func (r *Relay) onReplay(raw []byte) {
	var ins protocol.ReplayInsert
	if err := json.Unmarshal(raw, &ins); err != nil {
		return
	}
	// Pull the result out of the replay body for the indexed columns.
	var body struct {
		Result protocol.ReplayResult `json:"result"`
	}
	_ = json.Unmarshal(ins.Replay, &body)

	if err := r.store.InsertReplay(ins.Replay, ins.AuthUUIDs, body.Result.Winner, body.Result.Reason); err != nil {
		r.log.Error("replay insert failed", zap.Error(err))
	}
}
