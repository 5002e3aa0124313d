package sim

import (
	"reflect"
	"testing"
)

func testParams() Params {
	return Params{
		BagSeeds:       [2]uint64{11, 22},
		GarbageSeeds:   [2]uint64{33, 44},
		ColorSelection: []int{0, 1, 2, 3},
		TargetPoints:   70,
	}
}

// tickUntilPlayable advances until the player has a fresh piece; fails the
// test if that never happens.
func tickUntilPlayable(t *testing.T, g Game, player int) {
	t.Helper()
	for i := 0; i < 100; i++ {
		if g.CanPlay(player) {
			return
		}
		res := g.Tick()
		if res[player].LockedOut {
			t.Fatal("locked out while waiting for a piece")
		}
	}
	t.Fatal("board never became playable")
}

func TestDuelDeterminism(t *testing.T) {
	run := func() SimpleGame {
		g := NewDuel(testParams())
		for i := 0; i < 6; i++ {
			tickUntilPlayable(t, g, 0)
			tickUntilPlayable(t, g, 1)
			g.Play(0, i%Width, 1, i%4, true)
			g.Play(1, (i*2)%Width, 1, (i+1)%4, false)
		}
		for i := 0; i < 30; i++ {
			g.Tick()
		}
		return g.ToSimpleGame(0)
	}

	first := run()
	second := run()
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("identical inputs diverged:\n%+v\n%+v", first, second)
	}
}

func TestPlayCanonicalizesLanding(t *testing.T) {
	g := NewDuel(testParams())

	// Vertical piece on an empty board lands on the floor regardless of the
	// client's claimed y.
	pm := g.Play(0, 2, 1, 0, true)
	if pm.Y1 != Height-1 || pm.Y2 != Height-2 {
		t.Fatalf("want landing at y=%d/%d, got %d/%d", Height-1, Height-2, pm.Y1, pm.Y2)
	}
	if pm.X1 != 2 || pm.X2 != 2 {
		t.Fatalf("vertical move should keep its column, got x=%d/%d", pm.X1, pm.X2)
	}
}

func TestPlayClampsHorizontalAtEdges(t *testing.T) {
	g := NewDuel(testParams())

	// Orientation 1 at the left wall would put the second cell at x=-1; the
	// whole piece shifts right instead.
	pm := g.Play(0, 0, 1, 1, true)
	if pm.X2 != 0 || pm.X1 != 1 {
		t.Fatalf("want shifted pair x1=1,x2=0, got x1=%d,x2=%d", pm.X1, pm.X2)
	}

	g2 := NewDuel(testParams())
	pm = g2.Play(0, Width-1, 1, 3, true)
	if pm.X1 != Width-2 || pm.X2 != Width-1 {
		t.Fatalf("want shifted pair at the right wall, got x1=%d,x2=%d", pm.X1, pm.X2)
	}
}

func TestBusyThenRedeal(t *testing.T) {
	g := NewDuel(testParams())
	if !g.CanPlay(0) {
		t.Fatal("fresh board should have a dealt piece")
	}
	dealt := g.DealtPieces(0)

	g.Play(0, 2, 1, 0, true)
	if g.CanPlay(0) {
		t.Fatal("board must be unplayable while resolving")
	}

	tickUntilPlayable(t, g, 0)
	if g.DealtPieces(0) != dealt+1 {
		t.Fatalf("want one more dealt piece, got %d -> %d", dealt, g.DealtPieces(0))
	}
	if len(g.NextPiece(0)) != PieceSize {
		t.Fatalf("dealt piece should have %d cells, got %d", PieceSize, len(g.NextPiece(0)))
	}
}

func TestPassRerollsAndCounts(t *testing.T) {
	g := NewDuel(testParams())
	for i := 1; i <= 3; i++ {
		g.Pass(0)
		if got := g.Results()[0].ConsecutiveRerolls; got != i {
			t.Fatalf("want reroll count %d, got %d", i, got)
		}
	}
	// A real move resets the streak.
	g.Play(0, 2, 1, 0, true)
	if got := g.Results()[0].ConsecutiveRerolls; got != 0 {
		t.Fatalf("play should reset rerolls, got %d", got)
	}
}

func TestLockoutOnBlockedSpawn(t *testing.T) {
	d := NewDuel(testParams())
	// Fill the spawn cell and force a redeal.
	d.boards[0].cells[idx(SpawnX, 1)] = 0
	d.boards[0].current = nil
	d.boards[0].busy = 0
	res := d.Tick()
	if !res[0].LockedOut {
		t.Fatal("blocked spawn must lock the board out")
	}
	if d.CanPlay(0) {
		t.Fatal("a locked-out board is unplayable")
	}
	if res[1].LockedOut {
		t.Fatal("opponent board is unaffected")
	}
}

func TestCloneIsDetached(t *testing.T) {
	g := NewDuel(testParams())
	c := g.Clone()

	g.Play(0, 2, 1, 0, true)
	if !c.CanPlay(0) {
		t.Fatal("playing on the original must not consume the clone's piece")
	}
	if reflect.DeepEqual(g.ToSimpleGame(0), c.ToSimpleGame(0)) {
		t.Fatal("original and clone should have diverged")
	}
}
