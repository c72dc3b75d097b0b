package pvp

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/titanbreach/engine/pkg/models"
)

type fakeStore struct {
	season       *models.PvpSeason
	stats        map[uuid.UUID]*models.PlayerPvpStats
	queue        map[uuid.UUID]*models.QueueEntry
	searching    []models.QueueEntry
	formedPairs  [][2]uuid.UUID
	matches      map[uuid.UUID]*models.PvpMatch
	turns        map[uuid.UUID][]models.BattleTurn
	endedMatches []models.PvpMatch
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		stats:   map[uuid.UUID]*models.PlayerPvpStats{},
		queue:   map[uuid.UUID]*models.QueueEntry{},
		matches: map[uuid.UUID]*models.PvpMatch{},
		turns:   map[uuid.UUID][]models.BattleTurn{},
	}
}

func (f *fakeStore) GetPlayer(ctx context.Context, id uuid.UUID) (*models.Player, error) {
	return &models.Player{ID: id, WalletAddress: "wallet-" + id.String()}, nil
}

type fakeChain struct {
	rewardedTo  string
	rewardedAmt int64
}

func (f *fakeChain) DistributeReward(ctx context.Context, playerWallet string, rewardType models.RewardType, amountBaseUnits int64) (string, error) {
	f.rewardedTo = playerWallet
	f.rewardedAmt = amountBaseUnits
	return "reward-sig", nil
}

func (f *fakeStore) ActiveSeason(ctx context.Context) (*models.PvpSeason, error) { return f.season, nil }

func (f *fakeStore) GetOrCreatePlayerPvpStats(ctx context.Context, playerID, seasonID uuid.UUID) (*models.PlayerPvpStats, error) {
	if st, ok := f.stats[playerID]; ok {
		return st, nil
	}
	st := &models.PlayerPvpStats{PlayerID: playerID, SeasonID: seasonID, EloRating: 1000, PeakRating: 1000}
	f.stats[playerID] = st
	return st, nil
}

func (f *fakeStore) UpsertQueueEntry(ctx context.Context, e models.QueueEntry) error {
	copyE := e
	f.queue[e.PlayerID] = &copyE
	return nil
}

func (f *fakeStore) DeleteQueueEntry(ctx context.Context, playerID uuid.UUID) error {
	delete(f.queue, playerID)
	return nil
}

func (f *fakeStore) GetQueueEntry(ctx context.Context, playerID uuid.UUID) (*models.QueueEntry, error) {
	return f.queue[playerID], nil
}

func (f *fakeStore) SearchingEntriesOrderedByWait(ctx context.Context) ([]models.QueueEntry, error) {
	return f.searching, nil
}

func (f *fakeStore) FormMatch(ctx context.Context, p1, p2 uuid.UUID, match models.PvpMatch) error {
	f.formedPairs = append(f.formedPairs, [2]uuid.UUID{p1, p2})
	f.matches[match.ID] = &match
	delete(f.queue, p1)
	delete(f.queue, p2)
	return nil
}

func (f *fakeStore) GetMatch(ctx context.Context, id uuid.UUID) (*models.PvpMatch, error) {
	return f.matches[id], nil
}

func (f *fakeStore) UpdateMatch(ctx context.Context, m models.PvpMatch) error {
	copyM := m
	f.matches[m.ID] = &copyM
	return nil
}

func (f *fakeStore) InsertBattleTurn(ctx context.Context, t models.BattleTurn) error {
	f.turns[t.MatchID] = append(f.turns[t.MatchID], t)
	return nil
}

func (f *fakeStore) MatchTurns(ctx context.Context, matchID uuid.UUID) ([]models.BattleTurn, error) {
	return f.turns[matchID], nil
}

func (f *fakeStore) EndMatch(ctx context.Context, m models.PvpMatch, winner, loser models.PlayerPvpStats, winnerPlayerID uuid.UUID, rewardBreach, rewardXP int64, at time.Time) error {
	f.endedMatches = append(f.endedMatches, m)
	f.matches[m.ID] = &m
	f.stats[winner.PlayerID] = &winner
	f.stats[loser.PlayerID] = &loser
	return nil
}

func (f *fakeStore) PlayerMatchHistory(ctx context.Context, playerID uuid.UUID, limit int) ([]models.PvpMatch, error) {
	return nil, nil
}

func (f *fakeStore) Leaderboard(ctx context.Context, seasonID uuid.UUID, limit int) ([]models.LeaderboardEntry, error) {
	return nil, nil
}

func TestJoinQueueThenStatusReportsInQueue(t *testing.T) {
	store := newFakeStore()
	store.season = &models.PvpSeason{ID: uuid.New(), IsActive: true}
	svc := New(store, &fakeChain{}, zap.NewNop())

	playerID, titanID := uuid.New(), uuid.New()
	_, err := svc.JoinQueue(context.Background(), playerID, titanID)
	require.NoError(t, err)

	status, err := svc.GetQueueStatus(context.Background(), playerID)
	require.NoError(t, err)
	assert.True(t, status.InQueue)
}

func TestLeaveQueueRemovesEntry(t *testing.T) {
	store := newFakeStore()
	store.season = &models.PvpSeason{ID: uuid.New(), IsActive: true}
	svc := New(store, &fakeChain{}, zap.NewNop())

	playerID := uuid.New()
	_, err := svc.JoinQueue(context.Background(), playerID, uuid.New())
	require.NoError(t, err)
	require.NoError(t, svc.LeaveQueue(context.Background(), playerID))

	status, err := svc.GetQueueStatus(context.Background(), playerID)
	require.NoError(t, err)
	assert.False(t, status.InQueue)
}

func TestPairCandidatesMatchesClosestElo(t *testing.T) {
	now := time.Now()
	entries := []models.QueueEntry{
		{PlayerID: uuid.New(), Elo: 1000, SearchStart: now},
		{PlayerID: uuid.New(), Elo: 1050, SearchStart: now},
		{PlayerID: uuid.New(), Elo: 1400, SearchStart: now},
	}
	pairs := pairCandidates(entries, now)
	require.Len(t, pairs, 1)
	assert.Equal(t, entries[0].PlayerID, pairs[0][0].PlayerID)
	assert.Equal(t, entries[1].PlayerID, pairs[0][1].PlayerID)
}

func TestPairCandidatesRespectsBand(t *testing.T) {
	now := time.Now()
	entries := []models.QueueEntry{
		{PlayerID: uuid.New(), Elo: 1000, SearchStart: now},
		{PlayerID: uuid.New(), Elo: 1300, SearchStart: now}, // diff 300 > band(0)=100
	}
	pairs := pairCandidates(entries, now)
	assert.Empty(t, pairs)
}

func TestRunMatchmakingCycleFormsMatchAndClearsQueue(t *testing.T) {
	store := newFakeStore()
	store.season = &models.PvpSeason{ID: uuid.New(), IsActive: true}
	now := time.Now()
	p1, p2 := uuid.New(), uuid.New()
	store.searching = []models.QueueEntry{
		{PlayerID: p1, Elo: 1000, SearchStart: now, Status: models.QueueSearching},
		{PlayerID: p2, Elo: 1020, SearchStart: now, Status: models.QueueSearching},
	}
	svc := New(store, &fakeChain{}, zap.NewNop())

	n, err := svc.RunMatchmakingCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.Len(t, store.formedPairs, 1)
}

func TestRunMatchmakingCycleExpiresStaleEntries(t *testing.T) {
	store := newFakeStore()
	store.season = &models.PvpSeason{ID: uuid.New(), IsActive: true}
	old := time.Now().Add(-10 * time.Minute)
	p1 := uuid.New()
	store.searching = []models.QueueEntry{
		{PlayerID: p1, Elo: 1000, SearchStart: old, Status: models.QueueSearching},
	}
	svc := New(store, &fakeChain{}, zap.NewNop())

	n, err := svc.RunMatchmakingCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, models.QueueExpired, store.queue[p1].Status)
}
