package sim

import "sort"

// TimeWarper wraps a Game with checkpoint-based rewind. It retains snapshots
// at a fixed frame interval and can reconstruct the state at any frame inside
// the retained window by replaying buffered moves from the nearest prior
// checkpoint. Inserting a move into the past may invalidate moves that were
// admitted under the old timeline; those come back as rejections.
type TimeWarper struct {
	interval       int
	maxCheckpoints int

	checkpoints []checkpoint // ascending by age
	moves       []PlayedMove // ascending by time, insertion order within a frame
	// head is the highest frame ever materialized; rejections are evaluated
	// against the timeline up to here.
	head     int
	revealed [2]int
}

type checkpoint struct {
	age  int
	game Game
}

func NewTimeWarper(origin Game, interval, maxCheckpoints int) *TimeWarper {
	return &TimeWarper{
		interval:       interval,
		maxCheckpoints: maxCheckpoints,
		checkpoints:    []checkpoint{{age: origin.Age(), game: origin.Clone()}},
		head:           origin.Age(),
	}
}

// Warp returns a clone of the game state at frame t. The result is detached:
// mutating it does not affect the warper's timeline.
func (w *TimeWarper) Warp(t int) Game {
	g := w.base(t).game.Clone()
	w.replayTo(g, t, nil)
	if t > w.head {
		w.head = t
	}
	return g
}

// AddMove inserts a committed move into the timeline and returns every move
// (possibly including the inserted one) that the resulting rollback rendered
// unplayable. Rejected moves are removed from the buffer.
func (w *TimeWarper) AddMove(m PlayedMove) []PlayedMove {
	at := sort.Search(len(w.moves), func(i int) bool { return w.moves[i].Time > m.Time })
	w.moves = append(w.moves, PlayedMove{})
	copy(w.moves[at+1:], w.moves[at:])
	w.moves[at] = m

	// Checkpoints past the insertion frame were computed without this move.
	w.dropCheckpointsAfter(m.Time)

	base := w.base(m.Time)
	if base.age > m.Time {
		// The move predates the retained window; it cannot be replayed.
		w.removeMoves([]PlayedMove{m})
		return []PlayedMove{m}
	}

	g := base.game.Clone()
	var rejected []PlayedMove
	w.replayTo(g, w.head, &rejected)
	w.removeMoves(rejected)
	return rejected
}

// RevealPieces advances the reveal cursor to frame t and returns pieces dealt
// since the previous call.
func (w *TimeWarper) RevealPieces(t int) []PieceReveal {
	g := w.Warp(t)
	var out []PieceReveal
	for p := 0; p < 2; p++ {
		if n := g.DealtPieces(p); n > w.revealed[p] {
			w.revealed[p] = n
			out = append(out, PieceReveal{Player: p, Time: t, Piece: g.NextPiece(p)})
		}
	}
	return out
}

// DeleteMoves drops moves from the buffer and invalidates checkpoints that
// incorporated them.
func (w *TimeWarper) DeleteMoves(moves []PlayedMove) {
	earliest := w.head
	for _, m := range moves {
		if m.Time < earliest {
			earliest = m.Time
		}
	}
	w.removeMoves(moves)
	w.dropCheckpointsAfter(earliest)
}

// Moves returns the accepted timeline for replay persistence.
func (w *TimeWarper) Moves() []PlayedMove {
	return append([]PlayedMove(nil), w.moves...)
}

// base picks the latest checkpoint at or before frame t, falling back to the
// oldest retained one.
func (w *TimeWarper) base(t int) checkpoint {
	best := w.checkpoints[0]
	for _, cp := range w.checkpoints {
		if cp.age <= t {
			best = cp
		}
	}
	return best
}

// replayTo advances g to frame t, applying buffered moves at their frames. A
// move on an unplayable board is skipped; when collect is non-nil it is
// recorded there instead of being silently dropped.
func (w *TimeWarper) replayTo(g Game, t int, collect *[]PlayedMove) {
	for {
		for _, m := range w.movesAt(g.Age()) {
			if g.CanPlay(m.Player) {
				g.Play(m.Player, m.X1, m.Y1, m.Orientation, m.HardDrop)
			} else if collect != nil {
				*collect = append(*collect, m)
			}
		}
		if g.Age() >= t {
			return
		}
		g.Tick()
		w.maybeCheckpoint(g)
	}
}

func (w *TimeWarper) movesAt(age int) []PlayedMove {
	lo := sort.Search(len(w.moves), func(i int) bool { return w.moves[i].Time >= age })
	hi := sort.Search(len(w.moves), func(i int) bool { return w.moves[i].Time > age })
	return w.moves[lo:hi]
}

func (w *TimeWarper) maybeCheckpoint(g Game) {
	if g.Age()%w.interval != 0 {
		return
	}
	last := w.checkpoints[len(w.checkpoints)-1]
	if g.Age() <= last.age {
		return
	}
	w.checkpoints = append(w.checkpoints, checkpoint{age: g.Age(), game: g.Clone()})
	for len(w.checkpoints) > w.maxCheckpoints {
		w.checkpoints = w.checkpoints[1:]
	}
}

func (w *TimeWarper) removeMoves(moves []PlayedMove) {
	if len(moves) == 0 {
		return
	}
	kept := w.moves[:0]
	for _, m := range w.moves {
		doomed := false
		for _, r := range moves {
			if m == r {
				doomed = true
				break
			}
		}
		if !doomed {
			kept = append(kept, m)
		}
	}
	w.moves = kept
}

func (w *TimeWarper) dropCheckpointsAfter(age int) {
	keep := w.checkpoints[:1]
	for _, cp := range w.checkpoints[1:] {
		if cp.age <= age {
			keep = append(keep, cp)
		}
	}
	w.checkpoints = keep
}
