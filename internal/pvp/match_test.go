package pvp

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/titanbreach/engine/pkg/models"
)

func newActiveMatch(store *fakeStore, seasonID, p1, p2 uuid.UUID) *models.PvpMatch {
	t1, t2 := uuid.New(), uuid.New()
	m := &models.PvpMatch{
		ID: uuid.New(), SeasonID: seasonID, Player1ID: p1, Player2ID: p2,
		Player1TitanID: &t1, Player2TitanID: &t2,
		Phase: models.PhaseActive, CurrentTurn: p1,
		Player1HP: 100, Player2HP: 100,
	}
	store.matches[m.ID] = m
	return m
}

func TestSelectTitanAdvancesToActiveOncePicked(t *testing.T) {
	store := newFakeStore()
	seasonID := uuid.New()
	p1, p2 := uuid.New(), uuid.New()
	m := &models.PvpMatch{ID: uuid.New(), SeasonID: seasonID, Player1ID: p1, Player2ID: p2, Phase: models.PhasePreparing}
	store.matches[m.ID] = m
	svc := New(store, &fakeChain{}, zap.NewNop())

	updated, err := svc.SelectTitan(context.Background(), m.ID, p1, uuid.New(), 100)
	require.NoError(t, err)
	assert.Equal(t, models.PhaseTitanSelect, updated.Phase)

	updated, err = svc.SelectTitan(context.Background(), m.ID, p2, uuid.New(), 120)
	require.NoError(t, err)
	assert.Equal(t, models.PhaseActive, updated.Phase)
	assert.Equal(t, p1, updated.CurrentTurn)
	assert.NotNil(t, updated.TurnDeadline)
}

func TestSelectTitanRejectsNonParticipant(t *testing.T) {
	store := newFakeStore()
	m := &models.PvpMatch{ID: uuid.New(), Player1ID: uuid.New(), Player2ID: uuid.New(), Phase: models.PhasePreparing}
	store.matches[m.ID] = m
	svc := New(store, &fakeChain{}, zap.NewNop())

	_, err := svc.SelectTitan(context.Background(), m.ID, uuid.New(), uuid.New(), 100)
	assert.Error(t, err)
}

func TestSubmitActionRejectsWrongTurn(t *testing.T) {
	store := newFakeStore()
	p1, p2 := uuid.New(), uuid.New()
	m := newActiveMatch(store, uuid.New(), p1, p2)
	svc := New(store, &fakeChain{}, zap.NewNop())

	_, err := svc.SubmitAction(context.Background(), m.ID, p2, models.ActionAttack)
	assert.Error(t, err)
}

func TestSubmitActionAppliesDamageAndAdvancesTurn(t *testing.T) {
	store := newFakeStore()
	p1, p2 := uuid.New(), uuid.New()
	m := newActiveMatch(store, uuid.New(), p1, p2)
	svc := New(store, &fakeChain{}, zap.NewNop())

	updated, err := svc.SubmitAction(context.Background(), m.ID, p1, models.ActionAttack)
	require.NoError(t, err)
	assert.Less(t, updated.Player2HP, 100)
	assert.Equal(t, p2, updated.CurrentTurn)
	require.Len(t, store.turns[m.ID], 1)
	assert.NotNil(t, store.turns[m.ID][0].Player1Action)
	assert.Nil(t, store.turns[m.ID][0].Player2Action)
}

func TestSubmitActionKOFinishesMatchAndAppliesElo(t *testing.T) {
	store := newFakeStore()
	seasonID := uuid.New()
	p1, p2 := uuid.New(), uuid.New()
	m := newActiveMatch(store, seasonID, p1, p2)
	m.Player2HP = 5
	svc := New(store, &fakeChain{}, zap.NewNop())

	updated, err := svc.SubmitAction(context.Background(), m.ID, p1, models.ActionSpecial)
	require.NoError(t, err)
	assert.Equal(t, models.PhaseCompleted, updated.Phase)
	require.NotNil(t, updated.WinnerID)
	assert.Equal(t, p1, *updated.WinnerID)
	assert.Equal(t, "ko", updated.Reason)
	require.Len(t, store.endedMatches, 1)
	assert.Greater(t, store.stats[p1].EloRating, 1000)
	assert.Less(t, store.stats[p2].EloRating, 1000)
}

func TestSurrenderAwardsOpponent(t *testing.T) {
	store := newFakeStore()
	p1, p2 := uuid.New(), uuid.New()
	m := newActiveMatch(store, uuid.New(), p1, p2)
	svc := New(store, &fakeChain{}, zap.NewNop())

	updated, err := svc.Surrender(context.Background(), m.ID, p1)
	require.NoError(t, err)
	require.NotNil(t, updated.WinnerID)
	assert.Equal(t, p2, *updated.WinnerID)
	assert.Equal(t, "surrender", updated.Reason)
}

func TestSurrenderRejectsNonParticipant(t *testing.T) {
	store := newFakeStore()
	p1, p2 := uuid.New(), uuid.New()
	m := newActiveMatch(store, uuid.New(), p1, p2)
	svc := New(store, &fakeChain{}, zap.NewNop())

	_, err := svc.Surrender(context.Background(), m.ID, uuid.New())
	assert.Error(t, err)
}
