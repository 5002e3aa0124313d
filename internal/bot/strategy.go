// Package bot contains automated players. A Strategy is a pure function over
// a single-player board projection; the client wraps one in the wire protocol.
package bot

import (
	"math/rand/v2"

	"github.com/chainduel/backend/internal/sim"
)

// Move is a strategy's chosen placement.
type Move struct {
	X1          int
	Y1          int
	Orientation int
	HardDrop    bool
}

// Strategy picks a move for the given board view and scores its own choice;
// the score is diagnostic only.
type Strategy func(g sim.SimpleGame) (Move, float64)

// Random places the piece uniformly among legal columns and orientations.
func Random(g sim.SimpleGame) (Move, float64) {
	return Move{
		X1:          rand.IntN(sim.Width),
		Y1:          1,
		Orientation: rand.IntN(4),
		HardDrop:    true,
	}, 0
}

// Greedy evaluates every placement of the next piece and keeps the one that
// scores best on color adjacency and stack height.
func Greedy(g sim.SimpleGame) (Move, float64) {
	best := Move{X1: sim.SpawnX, Y1: 1, HardDrop: true}
	bestScore := -1e18
	for x := 0; x < sim.Width; x++ {
		for o := 0; o < 4; o++ {
			m := Move{X1: x, Y1: 1, Orientation: o, HardDrop: true}
			if !placeable(g, x, o) {
				continue
			}
			if s := evaluate(g, m); s > bestScore {
				bestScore = s
				best = m
			}
		}
	}
	return best, bestScore
}

func placeable(g sim.SimpleGame, x, orientation int) bool {
	switch orientation & 3 {
	case 1:
		return x-1 >= 0
	case 3:
		return x+1 < sim.Width
	default:
		return true
	}
}

// evaluate scores a placement on the resulting column heights and how many
// same-colored neighbors each landed cell touches.
func evaluate(g sim.SimpleGame, m Move) float64 {
	if len(g.NextPiece) < sim.PieceSize {
		return 0
	}
	heights := columnHeights(g)

	x2 := m.X1
	switch m.Orientation & 3 {
	case 1:
		x2 = m.X1 - 1
	case 3:
		x2 = m.X1 + 1
	}

	score := 0.0
	if x2 == m.X1 {
		// Vertical: both cells stack on one column.
		score += adjacency(g, heights, m.X1, g.NextPiece[0])
		heights[m.X1]++
		score += adjacency(g, heights, m.X1, g.NextPiece[1])
		heights[m.X1]++
	} else {
		score += adjacency(g, heights, m.X1, g.NextPiece[0])
		score += adjacency(g, heights, x2, g.NextPiece[1])
		heights[m.X1]++
		heights[x2]++
	}

	for _, h := range heights {
		score -= float64(h) * 0.5
	}
	return score
}

func columnHeights(g sim.SimpleGame) []int {
	heights := make([]int, sim.Width)
	for x := 0; x < sim.Width; x++ {
		for y := 0; y < sim.Height; y++ {
			if g.Screen[y*sim.Width+x] != -1 {
				heights[x] = sim.Height - y
				break
			}
		}
	}
	return heights
}

func adjacency(g sim.SimpleGame, heights []int, x, color int) float64 {
	y := sim.Height - 1 - heights[x]
	if y < 0 {
		return -100 // column overflow
	}
	score := 0.0
	for _, d := range [][2]int{{-1, 0}, {1, 0}, {0, -1}, {0, 1}} {
		nx, ny := x+d[0], y+d[1]
		if nx < 0 || nx >= sim.Width || ny < 0 || ny >= sim.Height {
			continue
		}
		if g.Screen[ny*sim.Width+nx] == color {
			score += 3
		}
	}
	return score
}
