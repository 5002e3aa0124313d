package bot

import (
	"context"
	"encoding/json"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/chainduel/backend/internal/sim"
	"github.com/chainduel/backend/pkg/protocol"
)

// Fresh timestamps are only claimed for quick decisions; a slow think is sent
// unstamped so the server dates it at the current frame instead of
// disqualifying us for lagging.
const thinkBudget = 250 * time.Millisecond

// Client is a bot player. It queues for games forever and plays them with the
// configured strategy.
type Client struct {
	serverURL string
	name      string
	gameType  protocol.GameType
	strategy  Strategy
	log       *zap.Logger

	identity  int
	pieceTime int
	thinkFrom time.Time
}

func NewClient(serverURL, name string, gameType protocol.GameType, strategy Strategy, log *zap.Logger) *Client {
	return &Client{
		serverURL: serverURL,
		name:      name,
		gameType:  gameType,
		strategy:  strategy,
		log:       log,
	}
}

func (c *Client) Run(ctx context.Context) error {
	for {
		if err := c.playOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.log.Warn("game aborted", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second):
		}
	}
}

func (c *Client) playOnce(ctx context.Context) error {
	conn, _, err := websocket.Dial(ctx, c.serverURL, nil)
	if err != nil {
		return err
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	isBot := true
	c.send(ctx, conn, protocol.SelfMessage{Type: "self", Username: c.name, IsBot: &isBot})
	c.send(ctx, conn, protocol.GameRequest{
		Type:        "game request",
		GameType:    c.gameType,
		AutoMatch:   true,
		BotsAllowed: true,
		Name:        c.name,
	})

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return err
		}
		typ, err := protocol.TypeOf(data)
		if err != nil {
			continue
		}
		switch typ {
		case "game params":
			var params protocol.GameParams
			if err := json.Unmarshal(data, &params); err != nil {
				return err
			}
			c.identity = params.Identity
			c.send(ctx, conn, protocol.Ready{Type: "ready"})

		case "piece":
			var piece protocol.PieceMessage
			if err := json.Unmarshal(data, &piece); err != nil {
				continue
			}
			if piece.Player != c.identity {
				continue
			}
			// Our turn: fetch our board view, decide on arrival.
			c.pieceTime = piece.Time
			c.thinkFrom = time.Now()
			c.send(ctx, conn, protocol.SimpleStateRequest{Type: "simple state request"})

		case "simple state":
			var state protocol.SimpleState
			if err := json.Unmarshal(data, &state); err != nil {
				continue
			}
			var g sim.SimpleGame
			if err := json.Unmarshal(state.State, &g); err != nil {
				continue
			}
			c.playMove(ctx, conn, g)

		case "retcon":
			// Our move was retracted; re-request the board and try again.
			c.thinkFrom = time.Now()
			c.send(ctx, conn, protocol.SimpleStateRequest{Type: "simple state request"})

		case "game result":
			var result protocol.GameResult
			_ = json.Unmarshal(data, &result)
			c.log.Info("game over", zap.String("reason", result.Reason))
			return nil
		}
	}
}

func (c *Client) playMove(ctx context.Context, conn *websocket.Conn, g sim.SimpleGame) {
	if g.LockedOut || len(g.NextPiece) == 0 {
		return
	}
	move, score := c.strategy(g)
	if c.log.Core().Enabled(zap.DebugLevel) {
		c.log.Debug("chose move", zap.Int("x1", move.X1), zap.Int("orientation", move.Orientation), zap.Float64("score", score))
	}

	if c.gameType == protocol.GamePausing {
		c.send(ctx, conn, struct {
			Type        string  `json:"type"`
			X1          int     `json:"x1"`
			Y1          int     `json:"y1"`
			Orientation int     `json:"orientation"`
			HardDrop    bool    `json:"hardDrop"`
			MsRemaining float64 `json:"msRemaining"`
		}{"pausing move", move.X1, move.Y1, move.Orientation, move.HardDrop, 0})
		return
	}

	msg := struct {
		Type        string `json:"type"`
		X1          int    `json:"x1"`
		Y1          int    `json:"y1"`
		Orientation int    `json:"orientation"`
		HardDrop    bool   `json:"hardDrop"`
		Time        *int   `json:"time,omitempty"`
	}{
		Type:        "realtime move",
		X1:          move.X1,
		Y1:          move.Y1,
		Orientation: move.Orientation,
		HardDrop:    move.HardDrop,
	}
	if time.Since(c.thinkFrom) <= thinkBudget {
		t := c.pieceTime
		msg.Time = &t
	}
	c.send(ctx, conn, msg)
}

func (c *Client) send(ctx context.Context, conn *websocket.Conn, msg any) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return
	}
	wctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	_ = conn.Write(wctx, websocket.MessageText, payload)
}
