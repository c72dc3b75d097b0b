package models

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// Player is the stable per-account identity and progression record.
// Soft-deleted by ban (Banned=true); never hard-deleted.
type Player struct {
	ID              uuid.UUID `json:"id"`
	WalletAddress   string    `json:"walletAddress"`
	Username        *string   `json:"username,omitempty"`
	Level           int       `json:"level"`
	Experience      int64     `json:"experience"`
	TitansCaptured  int       `json:"titansCaptured"`
	BattlesWon      int       `json:"battlesWon"`
	BreachEarned    int64     `json:"breachEarned"` // base units, 1 BREACH = 1e9
	LastLat         *float64  `json:"lastLat,omitempty"`
	LastLng         *float64  `json:"lastLng,omitempty"`
	LastLocationAt  *time.Time `json:"lastLocationAt,omitempty"`
	LastCaptureAt   *time.Time `json:"lastCaptureAt,omitempty"`
	Banned          bool      `json:"banned"`
	BanReason       *string   `json:"banReason,omitempty"`
	OffenseCount    int       `json:"offenseCount"`
	CreatedAt       time.Time `json:"createdAt"`
}

// ExperienceForLevel returns the total experience required to reach level.
// xp_for_level(L) = 100 * L^2, the inverse of LevelFromExperience.
func ExperienceForLevel(level int) int64 {
	return int64(100) * int64(level) * int64(level)
}

// LevelFromExperience is the pure function relating experience to level;
// it is never persisted out of sync with Player.Experience (spec §3).
// level_from_xp(xp) = floor(sqrt(xp / 100))
func LevelFromExperience(experience int64) int {
	if experience < 0 {
		return 0
	}
	return int(math.Floor(math.Sqrt(float64(experience) / 100.0)))
}
