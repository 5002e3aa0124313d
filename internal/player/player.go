// Package player models one connected client: identity, ratings and an
// outbound message sink. A Player is owned by the connection layer; sessions
// hold references but never manage its lifetime.
package player

import (
	"encoding/json"

	"go.uber.org/zap"

	"github.com/chainduel/backend/internal/elo"
	"github.com/chainduel/backend/pkg/protocol"
)

// Player is one websocket connection's server-side state. Identity fields are
// mutated only by the hub goroutine, so no locking is needed.
type Player struct {
	ID   uint64
	Name string

	IsBot    bool
	AuthUUID string
	Info     *protocol.ClientInfo

	EloRealtime float64
	EloPausing  float64

	out   chan []byte
	close func()
	log   *zap.Logger
}

// New wires a player to its outbound channel and a function that severs the
// underlying connection.
func New(id uint64, name string, out chan []byte, closeConn func(), log *zap.Logger) *Player {
	return &Player{
		ID:          id,
		Name:        name,
		EloRealtime: elo.InitialRating,
		EloPausing:  elo.InitialRating,
		out:         out,
		close:       closeConn,
		log:         log,
	}
}

// Send marshals a message onto the player's outbound queue. It never blocks:
// a client too slow to drain its queue loses messages rather than stalling the
// session that produced them.
func (p *Player) Send(msg any) {
	payload, err := json.Marshal(msg)
	if err != nil {
		p.log.Error("marshal outbound", zap.Uint64("socket", p.ID), zap.Error(err))
		return
	}
	select {
	case p.out <- payload:
	default:
		p.log.Warn("outbound queue full, dropping message", zap.Uint64("socket", p.ID))
	}
}

// SendRaw queues pre-marshaled bytes, used when relaying verbatim payloads.
func (p *Player) SendRaw(payload []byte) {
	select {
	case p.out <- payload:
	default:
		p.log.Warn("outbound queue full, dropping message", zap.Uint64("socket", p.ID))
	}
}

// Kick severs the connection. Used when a client proves itself broken or
// hostile; the normal disconnect path then runs cleanup.
func (p *Player) Kick() {
	if p.close != nil {
		p.close()
	}
}

// Rating returns the player's rating for a game type.
func (p *Player) Rating(gameType protocol.GameType) float64 {
	if gameType == protocol.GamePausing {
		return p.EloPausing
	}
	return p.EloRealtime
}
