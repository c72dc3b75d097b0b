package models

import (
	"time"

	"github.com/google/uuid"
)

// Element is one of the six Titan elemental affinities.
type Element uint8

const (
	ElementAbyssal Element = iota
	ElementVolcanic
	ElementStorm
	ElementVoid
	ElementParasitic
	ElementOssified
)

func (e Element) String() string {
	switch e {
	case ElementAbyssal:
		return "Abyssal"
	case ElementVolcanic:
		return "Volcanic"
	case ElementStorm:
		return "Storm"
	case ElementVoid:
		return "Void"
	case ElementParasitic:
		return "Parasitic"
	case ElementOssified:
		return "Ossified"
	default:
		return "Unknown"
	}
}

// ThreatClass is the 1 (Pioneer) - 5 (Apex) rarity tier.
type ThreatClass uint8

const (
	ThreatPioneer    ThreatClass = 1
	ThreatSkirmisher ThreatClass = 2
	ThreatWarbringer ThreatClass = 3
	ThreatDreadnought ThreatClass = 4
	ThreatApex       ThreatClass = 5
)

// Lifetime returns the spawn lifetime for a threat class: 4h/3h/2h/1h/30m
// for classes 1-5.
func (c ThreatClass) Lifetime() time.Duration {
	switch c {
	case 1:
		return 4 * time.Hour
	case 2:
		return 3 * time.Hour
	case 3:
		return 2 * time.Hour
	case 4:
		return 1 * time.Hour
	case 5:
		return 30 * time.Minute
	default:
		return time.Hour
	}
}

// MaxCaptures returns 10/5/3/2/1 for classes 1-5.
func (c ThreatClass) MaxCaptures() int {
	switch c {
	case 1:
		return 10
	case 2:
		return 5
	case 3:
		return 3
	case 4:
		return 2
	case 5:
		return 1
	default:
		return 1
	}
}

// CaptureReward returns BASE_REWARD * R(class), R = [1,3,10,50,200],
// BASE_REWARD = 1e8 base units (spec §4.4 step D.2).
func (c ThreatClass) CaptureReward() int64 {
	const base = int64(100_000_000)
	mult := map[ThreatClass]int64{1: 1, 2: 3, 3: 10, 4: 50, 5: 200}[c]
	if mult == 0 {
		mult = 1
	}
	return base * mult
}

// TitanSpawn is an ephemeral world entity placed by the spawn engine.
// Invariant: CaptureCount <= MaxCaptures; availability is
// now < ExpiresAt && CaptureCount < MaxCaptures.
type TitanSpawn struct {
	ID            uuid.UUID  `json:"id"`
	POIID         uuid.UUID  `json:"poiId"`
	Lat           float64    `json:"lat"`
	Lng           float64    `json:"lng"`
	Geohash       string     `json:"geohash"`
	Element       Element    `json:"element"`
	ThreatClass   ThreatClass `json:"threatClass"`
	SpeciesID     int        `json:"speciesId"`
	Genes         [6]byte    `json:"genes"`
	SpawnedAt     time.Time  `json:"spawnedAt"`
	ExpiresAt     time.Time  `json:"expiresAt"`
	CapturedBy    *uuid.UUID `json:"capturedBy,omitempty"`
	CaptureCount  int        `json:"captureCount"`
	MaxCapturesN  int        `json:"maxCaptures"`
}

// Available reports whether the spawn can still be captured at `now`.
func (s TitanSpawn) Available(now time.Time) bool {
	return now.Before(s.ExpiresAt) && s.CaptureCount < s.MaxCapturesN
}

// PlayerTitan is a permanently owned (on-chain) creature instance.
type PlayerTitan struct {
	ID                   uuid.UUID `json:"id"`
	PlayerID             uuid.UUID `json:"playerId"`
	OnChainMint          string    `json:"onChainMint"`
	SpeciesID            int       `json:"speciesId"`
	Element              Element   `json:"element"`
	ThreatClass          ThreatClass `json:"threatClass"`
	Genes                [6]byte   `json:"genes"`
	Nickname             *string   `json:"nickname,omitempty"`
	IsFavorite           bool      `json:"isFavorite"`
	CapturedAt           time.Time `json:"capturedAt"`
	BattlesParticipated  int       `json:"battlesParticipated"`
	BattlesWon           int       `json:"battlesWon"`
}

// Stats are the derived combat attributes for a PlayerTitan, computed by a
// fixed per-gene-byte x class-multiplier formula (spec §3: "Computed stats
// derive from genes and threat_class by a fixed formula"). The multiplier
// table follows the same deterministic-seed-to-stat idiom as the teacher
// corpus's pkg/game/mechanics.go world-generation formulas: a hash/byte input
// mapped through a small affine transform into a bounded output range.
type Stats struct {
	Power     int `json:"power"`
	Fortitude int `json:"fortitude"`
	Velocity  int `json:"velocity"`
	Resonance int `json:"resonance"`
	HP        int `json:"hp"`
}

// classMultiplier scales raw gene bytes by rarity; an Apex's genes carry far
// more weight per point than a Pioneer's.
func classMultiplier(c ThreatClass) float64 {
	switch c {
	case 1:
		return 1.0
	case 2:
		return 1.4
	case 3:
		return 2.0
	case 4:
		return 3.0
	case 5:
		return 4.5
	default:
		return 1.0
	}
}

// DeriveStats computes a PlayerTitan's combat stats from its genes and
// threat class. Gene byte layout: [power, fortitude, velocity, resonance,
// hp_hi, hp_lo].
func (t PlayerTitan) DeriveStats() Stats {
	mult := classMultiplier(t.ThreatClass)
	return Stats{
		Power:     int(float64(t.Genes[0]) * mult / 4.0),
		Fortitude: int(float64(t.Genes[1]) * mult / 4.0),
		Velocity:  int(float64(t.Genes[2]) * mult / 4.0),
		Resonance: int(float64(t.Genes[3]) * mult / 4.0),
		HP:        100 + int(float64(int(t.Genes[4])+int(t.Genes[5]))*mult),
	}
}

// SpeciesID returns element*1000 + (class-1)*100 + roll, roll in 1..=10
// (spec §4.3 step 4).
func SpeciesID(e Element, c ThreatClass, roll int) int {
	return int(e)*1000 + (int(c)-1)*100 + roll
}
