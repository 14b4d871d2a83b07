// Package game implements the deterministic tile-merging simulation.
//
// A completed round is fully described by its seeded recording: the PRNG
// seed plus the ordered move sequence. Replaying the recording reproduces
// every intermediate board and the final score, which is how stored games
// are validated without trusting their cached fields.
//
// The sync engine treats this package as a pure function: it performs no
// I/O and holds no state between calls.
package game
