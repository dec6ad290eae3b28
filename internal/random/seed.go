// Package random provides seed helpers for the seedable PRNGs the engine
// runs on.
//
// NewSeed draws a fresh seed when the caller did not pin one. Derive turns a
// batch seed into independent per-game seeds so a game's outcome depends on
// where it sits in the schedule, not on which other games share its batch.
package random

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
)

// NewSeed generates a random seed using crypto/rand.
func NewSeed() (int64, error) {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("read random seed: %w", err)
	}

	return int64(binary.LittleEndian.Uint64(b[:])), nil
}

// Derive mixes parts into base with the splitmix64 finalizer. The same
// inputs always give the same seed.
func Derive(base int64, parts ...int) int64 {
	x := uint64(base)
	for _, p := range parts {
		x += 0x9e3779b97f4a7c15 + uint64(p)
		x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
		x = (x ^ (x >> 27)) * 0x94d049bb133111eb
		x ^= x >> 31
	}
	return int64(x)
}
