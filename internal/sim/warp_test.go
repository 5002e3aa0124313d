package sim

import (
	"reflect"
	"testing"
)

func newWarper() *TimeWarper {
	return NewTimeWarper(NewDuel(testParams()), 5, 10)
}

// commit plays at the given frame and inserts the result, mirroring what the
// realtime session does with an accepted move.
func commit(t *testing.T, w *TimeWarper, player, frame, x, orientation int) (PlayedMove, []PlayedMove) {
	t.Helper()
	g := w.Warp(frame)
	if !g.CanPlay(player) {
		t.Fatalf("player %d has no piece at frame %d", player, frame)
	}
	pm := g.Play(player, x, 1, orientation, true)
	return pm, w.AddMove(pm)
}

func TestWarpIsRepeatable(t *testing.T) {
	w := newWarper()
	pm, rejected := commit(t, w, 0, 3, 1, 0)
	if len(rejected) != 0 {
		t.Fatalf("unexpected rejections: %+v", rejected)
	}
	if pm.Time != 3 {
		t.Fatalf("canonical move should carry its frame, got %d", pm.Time)
	}

	a := w.Warp(12).ToSimpleGame(0)
	b := w.Warp(12).ToSimpleGame(0)
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("same frame reconstructed differently:\n%+v\n%+v", a, b)
	}
}

func TestWarpDoesNotMutateTimeline(t *testing.T) {
	w := newWarper()
	g := w.Warp(4)
	g.Play(0, 2, 1, 0, true) // detached clone, must not leak back
	if !w.Warp(4).CanPlay(0) {
		t.Fatal("playing on a warped clone affected the timeline")
	}
}

func TestInsertingPastMoveRejectsConflictingLaterMove(t *testing.T) {
	w := newWarper()

	// First commitment happens at frame 2.
	later, rejected := commit(t, w, 0, 2, 4, 0)
	if len(rejected) != 0 {
		t.Fatalf("unexpected rejections: %+v", rejected)
	}

	// A move for the same player then arrives dated frame 0. After rollback
	// the frame-2 move finds its piece already spent.
	_, rejected = commit(t, w, 0, 0, 1, 0)
	if len(rejected) != 1 || rejected[0] != later {
		t.Fatalf("want the frame-2 move rejected, got %+v", rejected)
	}

	// The rejected move must also be gone from the persisted timeline.
	for _, m := range w.Moves() {
		if m == later {
			t.Fatal("rejected move still buffered")
		}
	}
}

func TestMovePredatingWindowIsRejectedOutright(t *testing.T) {
	w := NewTimeWarper(NewDuel(testParams()), 5, 2)
	w.Warp(20) // retained checkpoints now start past frame 0

	pm := PlayedMove{Player: 0, Time: 0, X1: 1, Y1: Height - 1, X2: 1, Y2: Height - 2}
	rejected := w.AddMove(pm)
	if len(rejected) != 1 || rejected[0] != pm {
		t.Fatalf("move before the window must bounce, got %+v", rejected)
	}
	if len(w.Moves()) != 0 {
		t.Fatal("bounced move must not linger in the buffer")
	}
}

func TestRevealPiecesAdvancesCursorOnce(t *testing.T) {
	w := newWarper()

	first := w.RevealPieces(0)
	if len(first) != 2 {
		t.Fatalf("both initial pieces should reveal, got %d", len(first))
	}
	for _, r := range first {
		if len(r.Piece) != PieceSize {
			t.Fatalf("reveal carries the piece colors, got %v", r.Piece)
		}
	}

	if again := w.RevealPieces(0); len(again) != 0 {
		t.Fatalf("same frame must not re-reveal, got %+v", again)
	}

	// After a move resolves, the follow-up piece becomes due.
	commit(t, w, 0, 1, 2, 0)
	reveals := w.RevealPieces(10)
	found := false
	for _, r := range reveals {
		if r.Player == 0 {
			found = true
		}
	}
	if !found {
		t.Fatalf("player 0's next piece should reveal by frame 10, got %+v", reveals)
	}
}

func TestDeleteMovesRewindsHistory(t *testing.T) {
	w := newWarper()
	pm, _ := commit(t, w, 0, 1, 2, 0)

	before := w.Warp(8).ToSimpleGame(0)
	w.DeleteMoves([]PlayedMove{pm})
	after := w.Warp(8).ToSimpleGame(0)

	if reflect.DeepEqual(before, after) {
		t.Fatal("deleting the only move should change the reconstruction")
	}
	if !w.Warp(8).CanPlay(0) {
		t.Fatal("with the move deleted the piece is unspent again")
	}
}
