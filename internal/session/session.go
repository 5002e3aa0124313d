// Package session runs a single authoritative match between two players. Each
// session is a goroutine owning all of its state; messages from connections,
// the tick loop and timers arrive through one inbox, so handlers never race
// each other. The pausing and realtime rule sets plug in through the variant
// interface.
package session

import (
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/chainduel/backend/internal/player"
	"github.com/chainduel/backend/internal/sim"
	"github.com/chainduel/backend/pkg/protocol"
)

const (
	DefaultMoveTimeout = 10 * time.Minute
	// Ten virtual minutes at the nominal frame rate.
	DefaultMaxGameAge = 10 * 60 * sim.NominalFrameRate
	// Frame tolerances for realtime move timestamps.
	DefaultMaxLag       = 15
	DefaultMaxAdvantage = 3
	// Reroll streak at which a game is called an impasse.
	DefaultMaxRerolls = 20

	checkpointInterval = 5
	maxCheckpoints     = 10

	inboxSize = 64
)

// Config bounds a session's timing rules. Tests shrink these to keep runs
// fast; production uses the defaults.
type Config struct {
	MoveTimeout  time.Duration
	MaxGameAge   int
	MaxLag       int
	MaxAdvantage int
	MaxRerolls   int
	Verbose      bool
}

func DefaultConfig() Config {
	return Config{
		MoveTimeout:  DefaultMoveTimeout,
		MaxGameAge:   DefaultMaxGameAge,
		MaxLag:       DefaultMaxLag,
		MaxAdvantage: DefaultMaxAdvantage,
		MaxRerolls:   DefaultMaxRerolls,
	}
}

// GameFactory builds a fresh simulation from duel parameters.
type GameFactory func(sim.Params) sim.Game

// Meta is the match context the hub knows and the session does not.
type Meta struct {
	Event  string
	Site   string
	Ranked bool
	Server *protocol.ClientInfo
}

// Replay is the full record handed to the persistence relay once a game ends.
// Unlike the in-game params message it includes the bag seeds.
type Replay struct {
	Params   sim.Params              `json:"params"`
	GameType protocol.GameType       `json:"gameType"`
	Moves    []sim.PlayedMove        `json:"moves"`
	Metadata protocol.ReplayMetadata `json:"metadata"`
	Result   protocol.ReplayResult   `json:"result"`
}

// Outcome is the single completion notification. It fires exactly once per
// session, delivered on its own goroutine so a slow consumer cannot stall
// the session loop.
type Outcome struct {
	GameType protocol.GameType
	Ranked   bool
	Winner   Winner
	Reason   Reason
	Players  [2]*player.Player
	Replay   *Replay
}

// Status is a test-visible projection of session state.
type Status struct {
	Started bool
	Done    bool
	Winner  Winner
	Reason  Reason
	Age     int
}

type msg interface{ isSessionMsg() }

type fromPlayer struct {
	p   *player.Player
	raw []byte
}

func (fromPlayer) isSessionMsg() {}

type tickMsg struct{}

func (tickMsg) isSessionMsg() {}

type timerFired struct {
	player int
	gen    uint64
}

func (timerFired) isSessionMsg() {}

type disconnected struct{ p *player.Player }

func (disconnected) isSessionMsg() {}

type shutdown struct{}

func (shutdown) isSessionMsg() {}

type getStatus struct{ reply chan Status }

func (getStatus) isSessionMsg() {}

// moveTimer is a cancellable per-player timeout. The generation counter lets
// the loop drop fires from timers that were already cancelled or re-armed.
type moveTimer struct {
	timer *time.Timer
	gen   uint64
}

type variant interface {
	moveType() string
	onMove(idx int, raw []byte)
	// postGo reveals whatever the rule set shows once both players are ready.
	postGo()
	onTick()
	simpleState(idx int) (json.RawMessage, error)
	playedMoves() []sim.PlayedMove
	age() int
}

type Session struct {
	inbox chan msg

	gameType protocol.GameType
	params   sim.Params
	players  [2]*player.Player
	meta     Meta
	cfg      Config
	log      *zap.Logger

	variant variant

	ready   [2]bool
	started bool // both ready, go sent
	// waitingForMove gates pausing moves and marks whose timeout is armed.
	waitingForMove [2]bool
	timers         [2]moveTimer

	done     bool
	winner   Winner
	reason   Reason
	startMs  int64
	metadata protocol.ReplayMetadata

	onDone func(Outcome)
}

// NewPausing starts a pausing-rules session. The goroutine begins immediately
// by sending both players their parameters and identity.
func NewPausing(players [2]*player.Player, params sim.Params, factory GameFactory, cfg Config, meta Meta, onDone func(Outcome), log *zap.Logger) *Session {
	s := newSession(protocol.GamePausing, players, params, cfg, meta, onDone, log)
	s.variant = &pausingVariant{s: s, game: factory(params)}
	go s.loop()
	return s
}

// NewRealtime starts a realtime-rules session. Ticks must be offered by an
// external tick loop; the session ignores them until both players are ready.
func NewRealtime(players [2]*player.Player, params sim.Params, factory GameFactory, cfg Config, meta Meta, onDone func(Outcome), log *zap.Logger) *Session {
	s := newSession(protocol.GameRealtime, players, params, cfg, meta, onDone, log)
	s.variant = &realtimeVariant{
		s:      s,
		warper: sim.NewTimeWarper(factory(params), checkpointInterval, maxCheckpoints),
	}
	go s.loop()
	return s
}

func newSession(gameType protocol.GameType, players [2]*player.Player, params sim.Params, cfg Config, meta Meta, onDone func(Outcome), log *zap.Logger) *Session {
	return &Session{
		inbox:    make(chan msg, inboxSize),
		gameType: gameType,
		params:   params,
		players:  players,
		meta:     meta,
		cfg:      cfg,
		log:      log,
		onDone:   onDone,
	}
}

// Handle feeds a raw client message into the session. Non-blocking: a session
// that cannot keep up drops input rather than stalling the hub.
func (s *Session) Handle(p *player.Player, raw []byte) {
	select {
	case s.inbox <- fromPlayer{p: p, raw: raw}:
	default:
		s.log.Warn("session inbox full, dropping message", zap.Uint64("player", p.ID))
	}
}

// OfferTick delivers one frame advance. Dropped if the session is busy; the
// tick loop must never block on a slow session.
func (s *Session) OfferTick() {
	select {
	case s.inbox <- tickMsg{}:
	default:
	}
}

// Disconnect reports that a player's connection is gone.
func (s *Session) Disconnect(p *player.Player) {
	s.inbox <- disconnected{p: p}
}

// Shutdown stops the session goroutine. The hub calls this after the
// completion notification has been processed.
func (s *Session) Shutdown() {
	s.inbox <- shutdown{}
}

// Status round-trips through the inbox, so it also acts as a barrier: when it
// returns, every message sent before it has been handled.
func (s *Session) Status() Status {
	reply := make(chan Status, 1)
	s.inbox <- getStatus{reply: reply}
	return <-reply
}

func (s *Session) loop() {
	s.start()
	for m := range s.inbox {
		switch m := m.(type) {
		case fromPlayer:
			s.onMessage(m.p, m.raw)
		case tickMsg:
			if s.started && !s.done {
				s.variant.onTick()
			}
		case timerFired:
			s.onTimerFired(m)
		case disconnected:
			if idx := s.indexOf(m.p); idx >= 0 {
				s.finish(WinnerPlayer(opponent(idx)), ReasonDisconnect)
			}
		case getStatus:
			m.reply <- Status{
				Started: s.started,
				Done:    s.done,
				Winner:  s.winner,
				Reason:  s.reason,
				Age:     s.variant.age(),
			}
		case shutdown:
			s.stopTimers()
			return
		}
	}
}

func (s *Session) start() {
	s.startMs = time.Now().UnixMilli()
	s.metadata = s.buildMetadata()
	partial := protocol.PartialParams{
		GarbageSeeds:   s.params.GarbageSeeds,
		ColorSelection: s.params.ColorSelection,
		InitialBags:    s.params.InitialBags,
		TargetPoints:   s.params.TargetPoints,
		MarginFrames:   s.params.MarginFrames,
	}
	for i, p := range s.players {
		p.Send(protocol.GameParams{
			Type:     "game params",
			Params:   partial,
			Identity: i,
			Metadata: s.metadata,
		})
	}
	s.waitingForMove = [2]bool{true, true}
	s.armTimeout(0)
	s.armTimeout(1)
}

func (s *Session) onMessage(p *player.Player, raw []byte) {
	idx := s.indexOf(p)
	if idx < 0 || s.done {
		return
	}
	typ, err := protocol.TypeOf(raw)
	if err != nil {
		s.log.Warn("unparseable session message", zap.Uint64("player", p.ID), zap.Error(err))
		p.Kick()
		return
	}
	switch typ {
	case "ready":
		s.onReady(idx)
	case "simple state request":
		state, err := s.variant.simpleState(idx)
		if err != nil {
			s.log.Error("simple state projection failed", zap.Error(err))
			return
		}
		p.Send(protocol.SimpleState{Type: "simple state", State: state})
	case "result":
		var claim protocol.ResultClaim
		if err := json.Unmarshal(raw, &claim); err != nil {
			return
		}
		s.finish(WinnerPlayer(opponent(idx)), sanitizeClaim(claim.Reason))
	case s.variant.moveType():
		if !s.started {
			return
		}
		s.variant.onMove(idx, raw)
	}
}

func (s *Session) onReady(idx int) {
	if s.ready[idx] || s.started {
		return
	}
	s.ready[idx] = true
	if !s.ready[opponent(idx)] {
		return
	}
	s.started = true
	s.broadcast(protocol.Go{Type: "go"})
	s.variant.postGo()
}

func (s *Session) onTimerFired(m timerFired) {
	if s.done || m.gen != s.timers[m.player].gen {
		return
	}
	if s.cfg.Verbose {
		s.log.Info("move timeout fired", zap.Int("player", m.player))
	}
	s.finish(WinnerPlayer(opponent(m.player)), ReasonTimeout)
}

// armTimeout replaces any outstanding timeout for the player. The goroutine
// fired by an old timer sees a stale generation and is ignored.
func (s *Session) armTimeout(idx int) {
	s.clearTimeout(idx)
	gen := s.timers[idx].gen
	// Blocking send: the fire must not be lost to a momentarily full inbox,
	// and AfterFunc runs it off the session goroutine. Staleness is the
	// generation guard's job.
	s.timers[idx].timer = time.AfterFunc(s.cfg.MoveTimeout, func() {
		s.inbox <- timerFired{player: idx, gen: gen}
	})
}

func (s *Session) clearTimeout(idx int) {
	if t := s.timers[idx].timer; t != nil {
		t.Stop()
		s.timers[idx].timer = nil
	}
	s.timers[idx].gen++
}

func (s *Session) stopTimers() {
	s.clearTimeout(0)
	s.clearTimeout(1)
}

// evaluate runs the termination checks in priority order. Only the first
// matching condition fires; returns true once the session is done.
func (s *Session) evaluate(res [2]sim.TickResult) bool {
	if s.done {
		return true
	}
	switch {
	case res[0].LockedOut && res[1].LockedOut:
		s.finish(Draw(), ReasonDoubleLockout)
	case res[0].LockedOut:
		s.finish(WinnerPlayer(1), ReasonLockout)
	case res[1].LockedOut:
		s.finish(WinnerPlayer(0), ReasonLockout)
	case res[0].ConsecutiveRerolls >= s.cfg.MaxRerolls && res[1].ConsecutiveRerolls >= s.cfg.MaxRerolls:
		s.finish(Draw(), ReasonImpasse)
	case s.variant.age() > s.cfg.MaxGameAge:
		s.finish(Draw(), ReasonMaxTime)
	}
	return s.done
}

// finish is the single exit path. Every game-over cause funnels through here
// so cleanup and the completion notification can never run twice.
func (s *Session) finish(winner Winner, reason Reason) {
	if s.done {
		return
	}
	s.done = true
	s.winner = winner
	s.reason = reason
	s.stopTimers()

	s.broadcast(protocol.GameResult{
		Type:        "game result",
		Winner:      winner.Ptr(),
		Reason:      string(reason),
		MsSince1970: time.Now().UnixMilli(),
		BagSeeds:    s.params.BagSeeds,
		InitialBags: s.params.InitialBags,
	})

	if s.cfg.Verbose {
		s.log.Info("session finished",
			zap.String("gameType", string(s.gameType)),
			zap.String("reason", string(reason)))
	}

	if s.onDone != nil {
		o := Outcome{
			GameType: s.gameType,
			Ranked:   s.meta.Ranked,
			Winner:   winner,
			Reason:   reason,
			Players:  s.players,
			Replay:   s.buildReplay(),
		}
		// Delivered off the session goroutine. A consumer that is itself
		// waiting on this session (the hub mid-Disconnect, say) must never
		// hold up the loop.
		go s.onDone(o)
	}
}

func (s *Session) buildReplay() *Replay {
	meta := s.metadata
	meta.EndTime = time.Now().UnixMilli()
	return &Replay{
		Params:   s.params,
		GameType: s.gameType,
		Moves:    s.variant.playedMoves(),
		Metadata: meta,
		Result: protocol.ReplayResult{
			Winner: s.winner.Ptr(),
			Reason: string(s.reason),
		},
	}
}

func (s *Session) buildMetadata() protocol.ReplayMetadata {
	names := make([]string, 2)
	elos := make([]float64, 2)
	clients := make([]*protocol.ClientInfo, 2)
	for i, p := range s.players {
		names[i] = p.Name
		elos[i] = p.Rating(s.gameType)
		clients[i] = p.Info
	}
	return protocol.ReplayMetadata{
		Names:       names,
		Elos:        elos,
		PriorWins:   []int{0, 0},
		Event:       s.meta.Event,
		Site:        s.meta.Site,
		Round:       1,
		MsSince1970: s.startMs,
		Type:        s.gameType,
		Server:      s.meta.Server,
		Clients:     clients,
	}
}

func (s *Session) broadcast(msg any) {
	for _, p := range s.players {
		p.Send(msg)
	}
}

func (s *Session) indexOf(p *player.Player) int {
	for i, q := range s.players {
		if q == p {
			return i
		}
	}
	return -1
}

func opponent(idx int) int { return 1 - idx }
