// Package hub owns every cross-session registry: connected players, the
// challenge board, the player-to-session mapping and the set of authenticated
// persistence relays. All of it is mutated from one goroutine fed by an inbox,
// so the registries need no locks and tests can construct a fresh hub each.
package hub

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/chainduel/backend/internal/board"
	"github.com/chainduel/backend/internal/player"
	"github.com/chainduel/backend/internal/sanitize"
	"github.com/chainduel/backend/internal/session"
	"github.com/chainduel/backend/internal/sim"
	"github.com/chainduel/backend/internal/ticker"
	"github.com/chainduel/backend/pkg/protocol"
)

type HubMsg interface{ isHubMsg() }

type Connect struct{ Player *player.Player }

type Disconnect struct{ Player *player.Player }

type FromClient struct {
	Player *player.Player
	Raw    []byte
}

// Done carries a finished session's outcome back onto the hub goroutine.
type Done struct{ Outcome session.Outcome }

type ShutdownHub struct{}

// GetStats is a test/diagnostic projection; the reply doubles as a barrier.
type GetStats struct{ Reply chan Stats }

type Stats struct {
	Players    int
	Sessions   int
	Challenges int
	Relays     int
}

func (Connect) isHubMsg()     {}
func (Disconnect) isHubMsg()  {}
func (FromClient) isHubMsg()  {}
func (Done) isHubMsg()        {}
func (ShutdownHub) isHubMsg() {}
func (GetStats) isHubMsg()    {}

// Config carries the process-level knobs the hub needs.
type Config struct {
	// Secret authenticates the persistence side-channel. Connections that
	// present it on a database:hello are promoted to relays.
	Secret    string
	EventName string
	SiteURL   string
	Server    *protocol.ClientInfo
	Session   session.Config
}

type Hub struct {
	inbox chan HubMsg
	cfg   Config
	log   *zap.Logger

	players  map[uint64]*player.Player
	sessions map[*player.Player]*session.Session
	board    *board.Board
	relays   map[*player.Player]struct{}

	ticker  *ticker.Ticker
	factory session.GameFactory

	ctx    context.Context
	cancel context.CancelFunc
}

func NewHub(parent context.Context, cfg Config, tick *ticker.Ticker, factory session.GameFactory, log *zap.Logger) *Hub {
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:    make(chan HubMsg, 64),
		cfg:      cfg,
		log:      log,
		players:  make(map[uint64]*player.Player),
		sessions: make(map[*player.Player]*session.Session),
		board:    board.New(),
		relays:   make(map[*player.Player]struct{}),
		ticker:   tick,
		factory:  factory,
		ctx:      ctx,
		cancel:   cancel,
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case Connect:
				h.players[msg.Player.ID] = msg.Player

			case Disconnect:
				h.onDisconnect(msg.Player)

			case FromClient:
				h.onMessage(msg.Player, msg.Raw)

			case Done:
				h.onSessionDone(msg.Outcome)

			case GetStats:
				msg.Reply <- Stats{
					Players:    len(h.players),
					Sessions:   len(h.sessions),
					Challenges: h.board.Len(),
					Relays:     len(h.relays),
				}

			case ShutdownHub:
				for _, s := range h.sessions {
					s.Shutdown()
				}
				clear(h.sessions)
				h.cancel()
				return
			}
		}
	}
}

func (h *Hub) onDisconnect(p *player.Player) {
	h.board.RemoveBy(p)
	if s := h.sessions[p]; s != nil {
		s.Disconnect(p)
	}
	delete(h.relays, p)
	delete(h.players, p.ID)
}

func (h *Hub) onMessage(p *player.Player, raw []byte) {
	typ, err := protocol.TypeOf(raw)
	if err != nil {
		h.log.Warn("undecodable message", zap.Uint64("player", p.ID), zap.Error(err))
		return
	}

	if protocol.DatabaseTypes[typ] {
		h.onDatabaseMessage(p, typ, raw)
		return
	}

	switch typ {
	case "game request":
		h.onGameRequest(p, raw)

	case "accept challenge":
		h.onAcceptChallenge(p, raw)

	case "cancel game request":
		h.board.RemoveBy(p)

	case "challenge list":
		p.Send(protocol.ChallengeList{Type: "challenge list", Challenges: h.board.Listing()})

	case "self":
		h.onSelf(p, raw)

	default:
		// Everything else belongs to the player's session, if any.
		if s := h.sessions[p]; s != nil {
			s.Handle(p, raw)
		}
	}
}

func (h *Hub) onGameRequest(p *player.Player, raw []byte) {
	if h.sessions[p] != nil {
		return
	}
	var req protocol.GameRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return
	}
	if c := h.board.Request(p, req); c != nil {
		h.startSession(c, p)
	}
}

func (h *Hub) onAcceptChallenge(p *player.Player, raw []byte) {
	if h.sessions[p] != nil {
		return
	}
	var acc protocol.AcceptChallenge
	if err := json.Unmarshal(raw, &acc); err != nil {
		return
	}
	c := h.board.Accept(p, acc.UUID, acc.Password)
	if c == nil {
		p.Send(protocol.ChallengeNotFound{
			Type:     "challenge not found",
			UUID:     acc.UUID,
			Password: acc.Password,
		})
		return
	}
	h.startSession(c, p)
}

func (h *Hub) startSession(c *board.Challenge, accepter *player.Player) {
	players := [2]*player.Player{c.Player, accepter}
	params := sim.RandomParams()
	meta := session.Meta{
		Event:  h.cfg.EventName,
		Site:   h.cfg.SiteURL,
		Ranked: c.Ranked,
		Server: h.cfg.Server,
	}
	onDone := func(o session.Outcome) { h.inbox <- Done{Outcome: o} }

	var s *session.Session
	if c.GameType == protocol.GameRealtime {
		s = session.NewRealtime(players, params, h.factory, h.cfg.Session, meta, onDone, h.log)
		if h.ticker != nil {
			h.ticker.Add(s)
		}
	} else {
		s = session.NewPausing(players, params, h.factory, h.cfg.Session, meta, onDone, h.log)
	}
	h.sessions[players[0]] = s
	h.sessions[players[1]] = s

	h.log.Info("session started",
		zap.String("gameType", string(c.GameType)),
		zap.Bool("ranked", c.Ranked),
		zap.Uint64("player0", players[0].ID),
		zap.Uint64("player1", players[1].ID))
}

func (h *Hub) onSessionDone(o session.Outcome) {
	s := h.sessions[o.Players[0]]
	if s == nil {
		s = h.sessions[o.Players[1]]
	}
	for _, p := range o.Players {
		delete(h.sessions, p)
	}
	if s != nil {
		if h.ticker != nil && o.GameType == protocol.GameRealtime {
			h.ticker.Remove(s)
		}
		s.Shutdown()
	}

	// Persistence is keyed by stable identity; anonymous games are not
	// recorded.
	auths := []string{o.Players[0].AuthUUID, o.Players[1].AuthUUID}
	if auths[0] == "" || auths[1] == "" {
		return
	}
	if o.Ranked {
		h.sendToRelays(protocol.EloUpdate{
			Type:      "elo update",
			GameType:  o.GameType,
			Winner:    o.Winner.Ptr(),
			AuthUUIDs: auths,
		})
	}
	replay, err := json.Marshal(o.Replay)
	if err != nil {
		h.log.Error("replay marshal failed", zap.Error(err))
		return
	}
	h.sendToRelays(protocol.ReplayInsert{
		Type:      "replay",
		Replay:    replay,
		AuthUUIDs: auths,
	})
}

// onDatabaseMessage guards the persistence side-channel. A hello carrying the
// process secret promotes the connection to a relay; every other message in
// the family is dropped unless it comes from a promoted relay.
func (h *Hub) onDatabaseMessage(p *player.Player, typ string, raw []byte) {
	if typ == "database:hello" {
		var hello protocol.DatabaseHello
		if err := json.Unmarshal(raw, &hello); err != nil {
			return
		}
		if h.cfg.Secret == "" || hello.Authorization != h.cfg.Secret {
			h.log.Warn("database hello with bad authorization", zap.Uint64("player", p.ID))
			return
		}
		h.relays[p] = struct{}{}
		h.log.Info("persistence relay attached", zap.Uint64("player", p.ID))
		return
	}

	if _, ok := h.relays[p]; !ok {
		return
	}

	switch typ {
	case "database:user":
		var msg protocol.DatabaseUser
		if err := json.Unmarshal(raw, &msg); err != nil {
			return
		}
		target := h.players[msg.SocketID]
		if target == nil {
			return
		}
		target.EloRealtime = msg.Payload.EloRealtime
		target.EloPausing = msg.Payload.EloPausing
		msg.Payload.Type = "user"
		target.Send(msg.Payload)
	}
}

func (h *Hub) onSelf(p *player.Player, raw []byte) {
	var self protocol.SelfMessage
	if err := json.Unmarshal(raw, &self); err != nil {
		return
	}
	if self.Username != "" {
		p.Name = sanitize.ClampString(self.Username, 64)
	}
	if self.AuthUUID != "" {
		p.AuthUUID = sanitize.ClampString(self.AuthUUID, 64)
	}
	if self.IsBot != nil {
		p.IsBot = *self.IsBot
	}
	if self.Info != nil {
		scrubbed := sanitize.ClientInfo(*self.Info)
		p.Info = &scrubbed
	}

	// Forward to the relay so it can upsert the user row and answer with the
	// stored ratings.
	forward := self
	forward.Type = "database:self"
	forward.SocketID = p.ID
	h.sendToRelays(forward)
}

// sendToRelays marshals once and fans the payload out to every attached
// relay. Delivery is best-effort by design.
func (h *Hub) sendToRelays(msg any) {
	if len(h.relays) == 0 {
		return
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		h.log.Error("marshal relay message", zap.Error(err))
		return
	}
	for r := range h.relays {
		r.SendRaw(payload)
	}
}
