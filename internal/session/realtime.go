package session

import (
	"encoding/json"

	"go.uber.org/zap"

	"github.com/chainduel/backend/internal/sanitize"
	"github.com/chainduel/backend/internal/sim"
	"github.com/chainduel/backend/pkg/protocol"
)

// realtimeVariant runs both players against a shared virtual frame clock.
// Moves arrive late relative to the frame they were decided on and are
// reinserted at their claimed frame through the time warper; insertions can
// retract moves that were already acknowledged.
type realtimeVariant struct {
	s      *Session
	warper *sim.TimeWarper
	frame  int
}

func (v *realtimeVariant) moveType() string { return "realtime move" }

func (v *realtimeVariant) age() int { return v.frame }

func (v *realtimeVariant) playedMoves() []sim.PlayedMove { return v.warper.Moves() }

// postGo does nothing: the first frame, and with it the first piece reveal,
// comes from the tick loop.
func (v *realtimeVariant) postGo() {}

func (v *realtimeVariant) simpleState(idx int) (json.RawMessage, error) {
	return json.Marshal(v.warper.Warp(v.frame).ToSimpleGame(idx))
}

func (v *realtimeVariant) onMove(idx int, raw []byte) {
	s := v.s
	var wire protocol.RealtimeMoveMsg
	if err := json.Unmarshal(raw, &wire); err != nil {
		s.players[idx].Kick()
		return
	}
	m, err := sanitize.RealtimeMove(v.frame, wire)
	if err != nil {
		s.log.Warn("rejecting malformed move", zap.Uint64("player", s.players[idx].ID), zap.Error(err))
		s.players[idx].Kick()
		return
	}

	// Timestamps outside the tolerance window are disqualifying, not
	// recoverable: a client that far off is broken or cheating.
	if v.frame-m.Time > s.cfg.MaxLag {
		s.finish(WinnerPlayer(opponent(idx)), ReasonLagging)
		return
	}
	if m.Time-v.frame > s.cfg.MaxAdvantage {
		s.finish(WinnerPlayer(opponent(idx)), ReasonAdvancing)
		return
	}

	s.clearTimeout(idx)

	pm := v.commitAt(idx, m)
	rejected := v.warper.AddMove(pm)

	outgoing := serverRealtimeMove(pm)
	if len(rejected) == 1 && rejected[0] == pm {
		// The move conflicted with itself, typically a client resubmitting
		// into an occupied window. Keep the churn private to the offender.
		s.players[idx].Send(outgoing)
		s.players[idx].Send(retconOf(v.frame, rejected))
		return
	}

	s.broadcast(outgoing)
	if len(rejected) > 0 {
		s.broadcast(retconOf(v.frame, rejected))
	}
}

// commitAt plays the move on the state at its claimed frame to obtain the
// canonical landing coordinates. If the player has no piece there, the move is
// recorded as claimed; insertion will bounce it back as a rejection.
func (v *realtimeVariant) commitAt(idx int, m sanitize.Move) sim.PlayedMove {
	g := v.warper.Warp(m.Time)
	if g.CanPlay(idx) {
		return g.Play(idx, m.X1, m.Y1, m.Orientation, m.HardDrop)
	}
	x2, y2 := sanitize.SecondCell(m.X1, m.Y1, m.Orientation)
	return sim.PlayedMove{
		Player:      idx,
		Time:        m.Time,
		X1:          m.X1,
		Y1:          m.Y1,
		X2:          x2,
		Y2:          y2,
		Orientation: m.Orientation,
		HardDrop:    m.HardDrop,
	}
}

func (v *realtimeVariant) onTick() {
	s := v.s
	v.frame++

	reveals := v.warper.RevealPieces(v.frame)
	for _, r := range reveals {
		s.armTimeout(r.Player)
	}

	if s.evaluate(v.warper.Warp(v.frame).Results()) {
		return
	}

	for _, r := range reveals {
		s.broadcast(protocol.PieceMessage{
			Type:   "piece",
			Player: r.Player,
			Time:   r.Time,
			Piece:  r.Piece,
		})
	}
}

func serverRealtimeMove(pm sim.PlayedMove) protocol.ServerRealtimeMove {
	return protocol.ServerRealtimeMove{
		Type:        "realtime move",
		Player:      pm.Player,
		Time:        pm.Time,
		X1:          pm.X1,
		Y1:          pm.Y1,
		X2:          pm.X2,
		Y2:          pm.Y2,
		Orientation: pm.Orientation,
		HardDrop:    pm.HardDrop,
	}
}

func retconOf(frame int, rejected []sim.PlayedMove) protocol.Retcon {
	moves := make([]protocol.ServerRealtimeMove, 0, len(rejected))
	for _, pm := range rejected {
		moves = append(moves, serverRealtimeMove(pm))
	}
	return protocol.Retcon{Type: "retcon", Time: frame, RejectedMoves: moves}
}
