// Package rng provides the single-goroutine random source every operation in
// C3 (spawn), C4 (capture damage has none, but token expiry jitter does not
// need it), and C7 (PvP turn damage) must draw from
// entirely before any suspension point in the same logical operation (spec
// §5's RNG discipline, mirrored from the "Generate random outside of async
// context" comment in the original spawn-cycle source).
//
// math/rand.Rand is not safe for concurrent use, and is not guaranteed safe
// to resume after a goroutine park across certain runtime operations, so a
// *Source must be created, drained completely, and dropped within a single
// synchronous block — never stored on a struct that outlives one operation
// and never shared across goroutines.
package rng

import (
	"crypto/rand"
	"encoding/binary"
	mathrand "math/rand"
)

// Source is a private, non-shared random generator.
type Source struct {
	r *mathrand.Rand
}

// New returns a freshly seeded Source. Seeding from crypto/rand avoids any
// correlation between sources created in tight succession (e.g. a spawn
// cycle rolling hundreds of POIs back to back).
func New() *Source {
	var seedBytes [8]byte
	_, _ = rand.Read(seedBytes[:])
	seed := int64(binary.BigEndian.Uint64(seedBytes[:]))
	return &Source{r: mathrand.New(mathrand.NewSource(seed))}
}

// NewWithSeed returns a deterministically seeded Source, for callers that
// need reproducible rolls.
func NewWithSeed(seed int64) *Source {
	return &Source{r: mathrand.New(mathrand.NewSource(seed))}
}

// Float64 returns a uniform draw in [0, 1).
func (s *Source) Float64() float64 { return s.r.Float64() }

// Intn returns a uniform draw in [0, n).
func (s *Source) Intn(n int) int { return s.r.Intn(n) }

// RangeFloat64 returns a uniform draw in [lo, hi).
func (s *Source) RangeFloat64(lo, hi float64) float64 {
	return lo + s.r.Float64()*(hi-lo)
}

// Bytes fills and returns n random bytes (used for Titan gene generation).
func (s *Source) Bytes(n int) []byte {
	b := make([]byte, n)
	_, _ = s.r.Read(b)
	return b
}
