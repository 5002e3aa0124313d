package session

import (
	"encoding/json"

	"go.uber.org/zap"

	"github.com/chainduel/backend/internal/sanitize"
	"github.com/chainduel/backend/internal/sim"
	"github.com/chainduel/backend/pkg/protocol"
)

// pausingVariant implements turn-paired play: the simulation only advances
// once both players have committed a move for the round.
type pausingVariant struct {
	s    *Session
	game sim.Game

	moves []sim.PlayedMove
	// hidden is the first move of a round, withheld from the opponent until
	// they commit their own.
	hidden *protocol.ServerPausingMove
	passed [2]bool
}

func (v *pausingVariant) moveType() string { return "pausing move" }

func (v *pausingVariant) age() int { return v.game.Age() }

func (v *pausingVariant) playedMoves() []sim.PlayedMove {
	return append([]sim.PlayedMove(nil), v.moves...)
}

func (v *pausingVariant) postGo() {
	for i := 0; i < 2; i++ {
		v.s.broadcast(protocol.PieceMessage{
			Type:   "piece",
			Player: i,
			Time:   v.game.Age(),
			Piece:  v.game.NextPiece(i),
		})
	}
}

func (v *pausingVariant) simpleState(idx int) (json.RawMessage, error) {
	return json.Marshal(v.game.ToSimpleGame(idx))
}

func (v *pausingVariant) onMove(idx int, raw []byte) {
	s := v.s
	if !s.waitingForMove[idx] {
		return
	}
	var wire protocol.PausingMoveMsg
	if err := json.Unmarshal(raw, &wire); err != nil {
		s.players[idx].Kick()
		return
	}
	m, err := sanitize.PausingMove(wire)
	if err != nil {
		s.log.Warn("rejecting malformed move", zap.Uint64("player", s.players[idx].ID), zap.Error(err))
		s.players[idx].Kick()
		return
	}

	s.clearTimeout(idx)
	s.waitingForMove[idx] = false

	outgoing := protocol.ServerPausingMove{
		Type:        "pausing move",
		Player:      idx,
		Time:        v.game.Age(),
		Pass:        m.Pass,
		MsRemaining: m.MsRemaining,
	}
	if m.Pass {
		v.passed[idx] = true
		v.game.Pass(idx)
	} else {
		v.passed[idx] = false
		pm := v.game.Play(idx, m.X1, m.Y1, m.Orientation, m.HardDrop)
		v.moves = append(v.moves, pm)
		outgoing.Time = pm.Time
		outgoing.X1, outgoing.Y1 = pm.X1, pm.Y1
		outgoing.X2, outgoing.Y2 = pm.X2, pm.Y2
		outgoing.Orientation = pm.Orientation
		outgoing.HardDrop = pm.HardDrop
	}

	opp := opponent(idx)
	if s.waitingForMove[opp] {
		// First move of the round: the opponent only learns the clock.
		v.hidden = &outgoing
		s.players[idx].Send(outgoing)
		s.players[opp].Send(protocol.TimerMessage{
			Type:        "timer",
			Player:      idx,
			MsRemaining: m.MsRemaining,
		})
		return
	}

	if v.hidden != nil {
		s.players[idx].Send(*v.hidden)
		v.hidden = nil
	}
	s.broadcast(outgoing)

	v.advanceRound()
}

// advanceRound drains simulation frames after both players have committed,
// then deals new pieces to whoever's board has settled.
func (v *pausingVariant) advanceRound() {
	s := v.s
	passedAny := v.passed[0] || v.passed[1]
	for {
		res := v.game.Results()
		bothBusy := res[0].Busy && res[1].Busy
		anyBusy := res[0].Busy || res[1].Busy
		if !bothBusy && !(passedAny && anyBusy) {
			break
		}
		if s.evaluate(v.game.Tick()) {
			return
		}
	}
	// A double pass ticks nothing, so run the termination checks off the
	// standing state too; the impasse guard depends on it.
	if s.evaluate(v.game.Results()) {
		return
	}

	res := v.game.Results()
	for i := 0; i < 2; i++ {
		if s.waitingForMove[i] || res[i].Busy {
			continue
		}
		piece := v.game.NextPiece(i)
		if v.passed[i] {
			piece = []int{}
		}
		s.broadcast(protocol.PieceMessage{
			Type:   "piece",
			Player: i,
			Time:   v.game.Age(),
			Piece:  piece,
		})
		s.waitingForMove[i] = true
		s.armTimeout(i)
	}
}

// onTick is unused: pausing sessions advance only on move arrival.
func (v *pausingVariant) onTick() {}
