package pvp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEloDeltaEvenMatchSplitsNearHalfK(t *testing.T) {
	dw, dl := eloDelta(1000, 1000)
	assert.Equal(t, 16, dw)
	assert.Equal(t, -16, dl)
}

func TestEloDeltaUnderdogWinsBigger(t *testing.T) {
	dwUnderdog, _ := eloDelta(900, 1100)
	dwFavorite, _ := eloDelta(1100, 900)
	assert.Greater(t, dwUnderdog, dwFavorite)
}

func TestEloDeltaIsZeroSum(t *testing.T) {
	dw, dl := eloDelta(1200, 980)
	assert.Equal(t, dw, -dl)
}

func TestWinnerRewardsScaleWithDelta(t *testing.T) {
	breach, xp := winnerRewards(16)
	assert.Equal(t, int64(180), breach)
	assert.Equal(t, int64(82), xp)
}
