package game

// Tile is one occupied cell. IDs are stable for the lifetime of a tile and
// never reused within a game: a spawn allocates a fresh ID and a merge
// produces a tile with a fresh ID. Identity is what makes milestone counting
// well-defined when a value appears more than once.
type Tile struct {
	ID    int
	Value int
}

// Board is a row-major grid. A zero Tile marks an empty cell.
type Board struct {
	Width  int
	Height int
	Cells  []Tile
}

func newBoard(width, height int) Board {
	return Board{Width: width, Height: height, Cells: make([]Tile, width*height)}
}

func (b Board) at(x, y int) Tile {
	return b.Cells[y*b.Width+x]
}

func (b *Board) set(x, y int, t Tile) {
	b.Cells[y*b.Width+x] = t
}

// clone returns a deep copy used for history snapshots.
func (b Board) clone() Board {
	cells := make([]Tile, len(b.Cells))
	copy(cells, b.Cells)
	return Board{Width: b.Width, Height: b.Height, Cells: cells}
}

// Tiles returns the occupied cells in row-major order.
func (b Board) Tiles() []Tile {
	var tiles []Tile
	for _, c := range b.Cells {
		if c.Value != 0 {
			tiles = append(tiles, c)
		}
	}
	return tiles
}

// HighestValue returns the largest tile value on the board, or 0 when empty.
func (b Board) HighestValue() int {
	highest := 0
	for _, c := range b.Cells {
		if c.Value > highest {
			highest = c.Value
		}
	}
	return highest
}

func (b Board) emptyCells() []int {
	var empty []int
	for i, c := range b.Cells {
		if c.Value == 0 {
			empty = append(empty, i)
		}
	}
	return empty
}

func (b Board) equal(other Board) bool {
	if b.Width != other.Width || b.Height != other.Height {
		return false
	}
	for i := range b.Cells {
		if b.Cells[i] != other.Cells[i] {
			return false
		}
	}
	return true
}

// hasMoves reports whether any move could change the board.
func (b Board) hasMoves() bool {
	if len(b.emptyCells()) > 0 {
		return true
	}
	for y := 0; y < b.Height; y++ {
		for x := 0; x < b.Width; x++ {
			v := b.at(x, y).Value
			if x+1 < b.Width && b.at(x+1, y).Value == v {
				return true
			}
			if y+1 < b.Height && b.at(x, y+1).Value == v {
				return true
			}
		}
	}
	return false
}
