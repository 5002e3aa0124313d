package sim

const (
	cellEmpty   = -1
	cellGarbage = -2

	// Frames a board stays busy per resolution step.
	framesPerStep = 12
	// Frames of settling after a plain drop.
	framesPerDrop = 4
	// Minimum group size that clears.
	clearThreshold = 4
)

// Duel is the reference two-player engine. One board per player, seeded piece
// bags, orthogonal-pair pieces, flood-fill clearing with garbage exchange and
// a lockout check on the spawn column.
type Duel struct {
	params Params
	age    int
	boards [2]boardState
}

type boardState struct {
	cells   [Width * Height]int
	rng     bagRNG
	current []int // colors of the dealt piece; nil while resolving
	dealt   int
	busy    int // frames until the board goes idle
	rerolls int
	garbage int // pending rows of incoming junk cells
	score   int
	locked  bool
}

func NewDuel(params Params) *Duel {
	d := &Duel{params: params}
	for i := range d.boards {
		b := &d.boards[i]
		for j := range b.cells {
			b.cells[j] = cellEmpty
		}
		b.rng = newBagRNG(params.BagSeeds[i])
		d.deal(i)
	}
	return d
}

func (d *Duel) Age() int { return d.age }

func (d *Duel) CanPlay(player int) bool {
	b := &d.boards[player]
	return !b.locked && b.current != nil
}

func (d *Duel) Pass(player int) {
	b := &d.boards[player]
	if b.current == nil {
		return
	}
	b.rerolls++
	for i := range b.current {
		b.current[i] = d.rollColor(b)
	}
}

// Play drops the player's current piece. The x coordinates and orientation are
// honored; the y coordinates are recomputed from the stack heights, which makes
// the returned move canonical.
func (d *Duel) Play(player, x1, y1, orientation int, hardDrop bool) PlayedMove {
	b := &d.boards[player]
	colors := b.current
	b.current = nil
	b.rerolls = 0

	x2 := x1
	switch orientation & 3 {
	case 1:
		x2 = x1 - 1
	case 3:
		x2 = x1 + 1
	}
	if x2 < 0 {
		x2 = 0
		x1 = 1
	}
	if x2 >= Width {
		x2 = Width - 1
		x1 = Width - 2
	}

	var cy1, cy2 int
	switch orientation & 3 {
	case 0: // second cell above the first
		cy1 = d.drop(b, x1, colors[0])
		cy2 = d.drop(b, x2, colors[1])
	case 2: // second cell below: land it first
		cy2 = d.drop(b, x2, colors[1])
		cy1 = d.drop(b, x1, colors[0])
	default: // horizontal, independent columns
		cy1 = d.drop(b, x1, colors[0])
		cy2 = d.drop(b, x2, colors[1])
	}

	steps := d.resolve(player)
	b.busy = framesPerDrop + framesPerStep*steps

	return PlayedMove{
		Player:      player,
		Time:        d.age,
		X1:          x1,
		Y1:          cy1,
		X2:          x2,
		Y2:          cy2,
		Orientation: orientation & 3,
		HardDrop:    hardDrop,
	}
}

func (d *Duel) Tick() [2]TickResult {
	d.age++
	for i := range d.boards {
		b := &d.boards[i]
		if b.busy > 0 {
			b.busy--
			if b.busy > 0 {
				continue
			}
		}
		if b.current == nil && !b.locked {
			d.settleGarbage(i)
			d.deal(i)
		}
	}
	return d.Results()
}

func (d *Duel) Results() [2]TickResult {
	var out [2]TickResult
	for i := range d.boards {
		b := &d.boards[i]
		out[i] = TickResult{
			LockedOut:          b.locked,
			Busy:               b.busy > 0,
			ConsecutiveRerolls: b.rerolls,
			Score:              b.score,
		}
	}
	return out
}

func (d *Duel) NextPiece(player int) []int {
	b := &d.boards[player]
	if b.current == nil {
		return nil
	}
	piece := make([]int, len(b.current))
	copy(piece, b.current)
	return piece
}

func (d *Duel) DealtPieces(player int) int { return d.boards[player].dealt }

func (d *Duel) ToSimpleGame(player int) SimpleGame {
	b := &d.boards[player]
	screen := make([]int, len(b.cells))
	copy(screen, b.cells[:])
	return SimpleGame{
		Player:         player,
		Age:            d.age,
		Screen:         screen,
		NextPiece:      d.NextPiece(player),
		PendingGarbage: b.garbage,
		Score:          b.score,
		LockedOut:      b.locked,
	}
}

func (d *Duel) Clone() Game {
	c := *d
	for i := range c.boards {
		if cur := d.boards[i].current; cur != nil {
			c.boards[i].current = append([]int(nil), cur...)
		}
	}
	return &c
}

// deal rolls the next piece and checks the lockout condition.
func (d *Duel) deal(player int) {
	b := &d.boards[player]
	if b.cells[idx(SpawnX, 1)] != cellEmpty {
		b.locked = true
		return
	}
	piece := make([]int, PieceSize)
	for i := range piece {
		piece[i] = d.rollColor(b)
	}
	b.current = piece
	b.dealt++
}

func (d *Duel) rollColor(b *boardState) int {
	return d.params.ColorSelection[b.rng.next()%uint64(len(d.params.ColorSelection))]
}

// drop lands a single cell in a column and returns its resting y.
func (d *Duel) drop(b *boardState, x, color int) int {
	y := Height - 1
	for y > 0 && b.cells[idx(x, y)] != cellEmpty {
		y--
	}
	b.cells[idx(x, y)] = color
	return y
}

// resolve clears groups until the board is stable, crediting score and queueing
// garbage on the opponent. Returns the number of chain steps.
func (d *Duel) resolve(player int) int {
	b := &d.boards[player]
	steps := 0
	for {
		cleared := d.clearGroups(b)
		if cleared == 0 {
			return steps
		}
		steps++
		b.score += cleared * 10 * steps
		d.boards[1-player].garbage += cleared * steps / 2
		d.collapse(b)
	}
}

func (d *Duel) clearGroups(b *boardState) int {
	var seen [Width * Height]bool
	cleared := 0
	for start := 0; start < len(b.cells); start++ {
		color := b.cells[start]
		if color < 0 || seen[start] {
			continue
		}
		group := floodFill(&b.cells, start, color)
		if len(group) < clearThreshold {
			for _, i := range group {
				seen[i] = true
			}
			continue
		}
		for _, i := range group {
			b.cells[i] = cellEmpty
			cleared++
			// Garbage adjacent to a cleared group pops with it.
			for _, n := range neighbors(i) {
				if b.cells[n] == cellGarbage {
					b.cells[n] = cellEmpty
				}
			}
		}
	}
	return cleared
}

func (d *Duel) collapse(b *boardState) {
	for x := 0; x < Width; x++ {
		write := Height - 1
		for y := Height - 1; y >= 0; y-- {
			if c := b.cells[idx(x, y)]; c != cellEmpty {
				b.cells[idx(x, y)] = cellEmpty
				b.cells[idx(x, write)] = c
				write--
			}
		}
	}
}

// settleGarbage drops pending junk cells round-robin across columns.
func (d *Duel) settleGarbage(player int) {
	b := &d.boards[player]
	g := newBagRNG(d.params.GarbageSeeds[player] + uint64(d.age))
	for b.garbage > 0 {
		x := int(g.next() % Width)
		y := Height - 1
		for y > 0 && b.cells[idx(x, y)] != cellEmpty {
			y--
		}
		if b.cells[idx(x, y)] != cellEmpty {
			break // column full; excess junk evaporates
		}
		b.cells[idx(x, y)] = cellGarbage
		b.garbage--
	}
}

func idx(x, y int) int { return y*Width + x }

func neighbors(i int) []int {
	x, y := i%Width, i/Width
	out := make([]int, 0, 4)
	if x > 0 {
		out = append(out, i-1)
	}
	if x < Width-1 {
		out = append(out, i+1)
	}
	if y > 0 {
		out = append(out, i-Width)
	}
	if y < Height-1 {
		out = append(out, i+Width)
	}
	return out
}

func floodFill(cells *[Width * Height]int, start, color int) []int {
	group := []int{start}
	visited := map[int]bool{start: true}
	for cursor := 0; cursor < len(group); cursor++ {
		for _, n := range neighbors(group[cursor]) {
			if !visited[n] && cells[n] == color {
				visited[n] = true
				group = append(group, n)
			}
		}
	}
	return group
}
