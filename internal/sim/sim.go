// Package sim holds the simulation-engine contract the session layer is built
// against, a compact deterministic reference engine, and the time-warping
// wrapper used for realtime rollback. The session code only ever talks to the
// Game interface; swapping in a richer engine is a matter of implementing it.
package sim

import "math/rand/v2"

const (
	Width            = 6
	Height           = 16
	NominalFrameRate = 30
	// Column where fresh pieces enter the board.
	SpawnX = 2
	// Pieces are pairs of colored cells.
	PieceSize = 2

	NumColors = 4
)

// Params seeds and shapes a single duel. Immutable once a session starts.
type Params struct {
	BagSeeds       [2]uint64 `json:"bagSeeds"`
	GarbageSeeds   [2]uint64 `json:"garbageSeeds"`
	ColorSelection []int     `json:"colorSelection"`
	InitialBags    [2][]int  `json:"initialBags"`
	TargetPoints   int       `json:"targetPoints"`
	MarginFrames   int       `json:"marginFrames"`
}

// RandomParams rolls fresh duel parameters. The initial bags are the first
// draws of the per-player bag RNGs so clients can verify them after the game.
func RandomParams() Params {
	p := Params{
		BagSeeds:       [2]uint64{rand.Uint64(), rand.Uint64()},
		GarbageSeeds:   [2]uint64{rand.Uint64(), rand.Uint64()},
		ColorSelection: []int{0, 1, 2, 3},
		TargetPoints:   70,
		MarginFrames:   NominalFrameRate * 96,
	}
	for i := 0; i < 2; i++ {
		r := newBagRNG(p.BagSeeds[i])
		bag := make([]int, 0, 2*PieceSize)
		for j := 0; j < 2*PieceSize; j++ {
			bag = append(bag, p.ColorSelection[r.next()%uint64(len(p.ColorSelection))])
		}
		p.InitialBags[i] = bag
	}
	return p
}

// PlayedMove is the canonical record of a committed move. Coordinates are the
// engine-decided landing cells, not whatever the client asked for.
type PlayedMove struct {
	Player      int  `json:"player"`
	Time        int  `json:"time"`
	X1          int  `json:"x1"`
	Y1          int  `json:"y1"`
	X2          int  `json:"x2"`
	Y2          int  `json:"y2"`
	Orientation int  `json:"orientation"`
	HardDrop    bool `json:"hardDrop"`
}

// TickResult is the per-player outcome of advancing the simulation one frame.
type TickResult struct {
	LockedOut          bool
	Busy               bool
	ConsecutiveRerolls int
	Score              int
}

// PieceReveal surfaces a freshly dealt piece at a given virtual time.
type PieceReveal struct {
	Player int
	Time   int
	Piece  []int
}

// SimpleGame is the single-player projection handed to spectators and bots.
// It never contains the opponent's hidden pieces.
type SimpleGame struct {
	Player         int   `json:"player"`
	Age            int   `json:"age"`
	Screen         []int `json:"screen"`
	NextPiece      []int `json:"nextPiece"`
	PendingGarbage int   `json:"pendingGarbage"`
	Score          int   `json:"score"`
	LockedOut      bool  `json:"lockedOut"`
}

// Game is the authoritative two-player simulation consumed by sessions.
// Implementations must be deterministic: identical params and identical move
// sequences yield identical states. Clone must deep-copy so the time-warp
// wrapper can checkpoint freely.
type Game interface {
	Age() int
	// Play commits the current piece of a player. The caller is responsible
	// for checking CanPlay first; Play on an unplayable board is undefined.
	Play(player, x1, y1, orientation int, hardDrop bool) PlayedMove
	// CanPlay reports whether the player has a dealt, uncommitted piece.
	CanPlay(player int) bool
	// Pass rerolls the player's current piece and bumps the reroll counter.
	Pass(player int)
	Tick() [2]TickResult
	// Results reports per-player status without advancing time.
	Results() [2]TickResult
	NextPiece(player int) []int
	// DealtPieces counts pieces dealt to the player so far.
	DealtPieces(player int) int
	ToSimpleGame(player int) SimpleGame
	Clone() Game
}

// bagRNG is a xorshift64 stream; cheap, deterministic, clonable by value.
type bagRNG struct {
	state uint64
}

func newBagRNG(seed uint64) bagRNG {
	if seed == 0 {
		seed = 0x9e3779b97f4a7c15
	}
	return bagRNG{state: seed}
}

func (r *bagRNG) next() uint64 {
	x := r.state
	x ^= x << 13
	x ^= x >> 7
	x ^= x << 17
	r.state = x
	return x
}
