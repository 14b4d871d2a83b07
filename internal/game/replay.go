package game

import "fmt"

// MilestoneValue is the tile value a round is trying to reach.
const MilestoneValue = 2048

// GameState is the result of replaying a recording to its end.
type GameState struct {
	Board Board
	Score int64
	Won   bool
	Over  bool
}

// Reconstruction is the full board-by-board history of a replayed round.
// History[0] is the opening board; History[i] is the board after move i and
// its spawn, so an entry's index is the move count at that moment.
type Reconstruction struct {
	History []Board
	Final   GameState
}

// ValidationResult carries the independently recomputed outcome of a round.
type ValidationResult struct {
	Score int64
	Won   bool
	Over  bool
	Moves int
}

type sim struct {
	board  Board
	rng    *rng
	score  int64
	won    bool
	nextID int
}

func (s *sim) newTile(value int) Tile {
	s.nextID++
	return Tile{ID: s.nextID, Value: value}
}

// spawn places one tile in a PRNG-chosen empty cell: value 2 at 90%, 4 at 10%.
func (s *sim) spawn() {
	empty := s.board.emptyCells()
	if len(empty) == 0 {
		return
	}
	idx := empty[s.rng.intn(len(empty))]
	value := 2
	if s.rng.intn(10) == 0 {
		value = 4
	}
	s.board.Cells[idx] = s.newTile(value)
}

// mergeLine collapses a line of occupied tiles in move order. Adjacent equal
// pairs merge once per move, nearest the move edge first; each merge scores
// the merged value and allocates a fresh tile identity.
func (s *sim) mergeLine(tiles []Tile) []Tile {
	var out []Tile
	for i := 0; i < len(tiles); i++ {
		if i+1 < len(tiles) && tiles[i].Value == tiles[i+1].Value {
			merged := s.newTile(tiles[i].Value * 2)
			s.score += int64(merged.Value)
			if merged.Value >= MilestoneValue {
				s.won = true
			}
			out = append(out, merged)
			i++
			continue
		}
		out = append(out, tiles[i])
	}
	return out
}

// applyMove slides and merges the board in the given direction, reporting
// whether anything changed.
func (s *sim) applyMove(dir Direction) bool {
	before := s.board.clone()

	lineCount, lineLen := s.board.Height, s.board.Width
	if dir == DirUp || dir == DirDown {
		lineCount, lineLen = s.board.Width, s.board.Height
	}

	for li := 0; li < lineCount; li++ {
		var tiles []Tile
		for pos := 0; pos < lineLen; pos++ {
			if t := s.lineCell(dir, li, pos); t.Value != 0 {
				tiles = append(tiles, t)
			}
		}
		merged := s.mergeLine(tiles)
		for pos := 0; pos < lineLen; pos++ {
			var t Tile
			if pos < len(merged) {
				t = merged[pos]
			}
			s.setLineCell(dir, li, pos, t)
		}
	}

	return !s.board.equal(before)
}

// lineCell maps (line, position-along-move) coordinates onto the board, with
// position 0 at the edge tiles slide toward.
func (s *sim) lineCell(dir Direction, line, pos int) Tile {
	x, y := lineCoords(dir, line, pos, s.board.Width, s.board.Height)
	return s.board.at(x, y)
}

func (s *sim) setLineCell(dir Direction, line, pos int, t Tile) {
	x, y := lineCoords(dir, line, pos, s.board.Width, s.board.Height)
	s.board.set(x, y, t)
}

func lineCoords(dir Direction, line, pos, width, height int) (int, int) {
	switch dir {
	case DirLeft:
		return pos, line
	case DirRight:
		return width - 1 - pos, line
	case DirUp:
		return line, pos
	default: // DirDown
		return line, height - 1 - pos
	}
}

// Reconstruct deterministically replays a recording, returning every
// intermediate board and the final state. A move that changes nothing makes
// the whole recording invalid.
func Reconstruct(rec Recording) (Reconstruction, error) {
	if rec.Width < 2 || rec.Height < 2 {
		return Reconstruction{}, fmt.Errorf("board must be at least 2x2, got %dx%d", rec.Width, rec.Height)
	}

	s := &sim{board: newBoard(rec.Width, rec.Height), rng: newRNG(rec.Seed)}
	s.spawn()
	s.spawn()

	history := make([]Board, 0, len(rec.Moves)+1)
	history = append(history, s.board.clone())

	for i, move := range rec.Moves {
		if !s.applyMove(move) {
			return Reconstruction{}, fmt.Errorf("move %d (%c) changes nothing", i, move)
		}
		s.spawn()
		history = append(history, s.board.clone())
	}

	final := GameState{
		Board: s.board.clone(),
		Score: s.score,
		Won:   s.won,
		Over:  !s.board.hasMoves(),
	}
	return Reconstruction{History: history, Final: final}, nil
}

// Validate replays a recording and independently recomputes its outcome.
// Cached scores on stored records must always agree with this result.
func Validate(rec Recording) (ValidationResult, error) {
	reconstruction, err := Reconstruct(rec)
	if err != nil {
		return ValidationResult{}, err
	}
	return ValidationResult{
		Score: reconstruction.Final.Score,
		Won:   reconstruction.Final.Won,
		Over:  reconstruction.Final.Over,
		Moves: len(rec.Moves),
	}, nil
}

// ValidateString parses and validates a recording in one step.
func ValidateString(recording string) (ValidationResult, error) {
	rec, err := ParseRecording(recording)
	if err != nil {
		return ValidationResult{}, err
	}
	return Validate(rec)
}
