package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// Property 3: level/XP round-trip, for level in 1..50.
func TestLevelExperienceRoundTrip(t *testing.T) {
	for level := 1; level <= 50; level++ {
		xp := ExperienceForLevel(level)
		got := LevelFromExperience(xp)
		assert.Equal(t, level, got, "level %d -> xp %d -> level %d", level, xp, got)
	}
}

func TestLevelFromExperienceZero(t *testing.T) {
	assert.Equal(t, 0, LevelFromExperience(0))
}

func TestLevelFromExperienceNegativeIsZero(t *testing.T) {
	assert.Equal(t, 0, LevelFromExperience(-100))
}
