package game

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Direction is one of the four board moves.
type Direction byte

const (
	DirUp    Direction = 'U'
	DirDown  Direction = 'D'
	DirLeft  Direction = 'L'
	DirRight Direction = 'R'
)

// ParseDirection converts a move character into a Direction.
func ParseDirection(c byte) (Direction, error) {
	switch Direction(c) {
	case DirUp, DirDown, DirLeft, DirRight:
		return Direction(c), nil
	}
	return 0, fmt.Errorf("invalid move %q", c)
}

// Recording is the canonical serialized form of a round: the PRNG seed plus
// the ordered move sequence. Its string form is the single source of truth
// for reconstructing the game.
//
// Wire format: "v2:<width>x<height>:<seed>:<moves>", moves as U/D/L/R.
type Recording struct {
	Width  int
	Height int
	Seed   uint64
	Moves  []Direction
}

const recordingVersion = "v2"

// ParseRecording parses the canonical recording string.
func ParseRecording(s string) (Recording, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 4 {
		return Recording{}, fmt.Errorf("recording must have 4 segments, got %d", len(parts))
	}
	if parts[0] != recordingVersion {
		return Recording{}, fmt.Errorf("unsupported recording version %q", parts[0])
	}

	dims := strings.SplitN(parts[1], "x", 2)
	if len(dims) != 2 {
		return Recording{}, fmt.Errorf("invalid board size %q", parts[1])
	}
	width, err := strconv.Atoi(dims[0])
	if err != nil || width < 2 {
		return Recording{}, fmt.Errorf("invalid board width %q", dims[0])
	}
	height, err := strconv.Atoi(dims[1])
	if err != nil || height < 2 {
		return Recording{}, fmt.Errorf("invalid board height %q", dims[1])
	}

	seed, err := strconv.ParseUint(parts[2], 10, 64)
	if err != nil {
		return Recording{}, fmt.Errorf("invalid seed %q", parts[2])
	}

	moves := make([]Direction, 0, len(parts[3]))
	for i := 0; i < len(parts[3]); i++ {
		dir, err := ParseDirection(parts[3][i])
		if err != nil {
			return Recording{}, fmt.Errorf("move %d: %w", i, err)
		}
		moves = append(moves, dir)
	}

	return Recording{Width: width, Height: height, Seed: seed, Moves: moves}, nil
}

// String renders the canonical recording form. ParseRecording(r.String())
// round-trips.
func (r Recording) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s:%dx%d:%d:", recordingVersion, r.Width, r.Height, r.Seed)
	for _, m := range r.Moves {
		b.WriteByte(byte(m))
	}
	return b.String()
}

// HashRecording returns the content fingerprint of a recording string, used
// for dedup against previously stored games. It is a fast non-cryptographic
// hash, not an integrity proof.
func HashRecording(recording string) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(recording))
}
