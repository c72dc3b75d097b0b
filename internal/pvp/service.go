// Package pvp is C7, the matchmaker and turn-based battle FSM.
package pvp

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/titanbreach/engine/pkg/models"
)

// Store is the persistence surface C7 needs.
type Store interface {
	ActiveSeason(ctx context.Context) (*models.PvpSeason, error)
	GetOrCreatePlayerPvpStats(ctx context.Context, playerID, seasonID uuid.UUID) (*models.PlayerPvpStats, error)
	GetPlayer(ctx context.Context, id uuid.UUID) (*models.Player, error)

	UpsertQueueEntry(ctx context.Context, e models.QueueEntry) error
	DeleteQueueEntry(ctx context.Context, playerID uuid.UUID) error
	GetQueueEntry(ctx context.Context, playerID uuid.UUID) (*models.QueueEntry, error)
	SearchingEntriesOrderedByWait(ctx context.Context) ([]models.QueueEntry, error)
	FormMatch(ctx context.Context, p1, p2 uuid.UUID, match models.PvpMatch) error

	GetMatch(ctx context.Context, id uuid.UUID) (*models.PvpMatch, error)
	UpdateMatch(ctx context.Context, m models.PvpMatch) error
	InsertBattleTurn(ctx context.Context, t models.BattleTurn) error
	MatchTurns(ctx context.Context, matchID uuid.UUID) ([]models.BattleTurn, error)
	EndMatch(ctx context.Context, m models.PvpMatch, winner, loser models.PlayerPvpStats, winnerPlayerID uuid.UUID, rewardBreach, rewardXP int64, at time.Time) error

	PlayerMatchHistory(ctx context.Context, playerID uuid.UUID, limit int) ([]models.PvpMatch, error)
	Leaderboard(ctx context.Context, seasonID uuid.UUID, limit int) ([]models.LeaderboardEntry, error)
}

// Chain is the subset of C5 the PvP service delegates the winner's BREACH
// reward to.
type Chain interface {
	DistributeReward(ctx context.Context, playerWallet string, rewardType models.RewardType, amountBaseUnits int64) (string, error)
}

const (
	maxHistoryLimit     = 50
	maxLeaderboardLimit = 100
)

// Service is C7.
type Service struct {
	store Store
	chain Chain
	log   *zap.Logger
}

// New constructs the PvP service.
func New(store Store, chain Chain, log *zap.Logger) *Service {
	return &Service{store: store, chain: chain, log: log}
}

// GetLeaderboard is get_leaderboard, capped at 100 entries (spec §6.1).
func (s *Service) GetLeaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	if limit <= 0 || limit > maxLeaderboardLimit {
		limit = maxLeaderboardLimit
	}
	season, err := s.store.ActiveSeason(ctx)
	if err != nil {
		return nil, err
	}
	return s.store.Leaderboard(ctx, season.ID, limit)
}

// GetMatchHistory is get_match_history, capped at 50 entries (spec §6.1).
func (s *Service) GetMatchHistory(ctx context.Context, playerID uuid.UUID, limit int) ([]models.PvpMatch, error) {
	if limit <= 0 || limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	return s.store.PlayerMatchHistory(ctx, playerID, limit)
}

// GetMatchState is get_match_state.
func (s *Service) GetMatchState(ctx context.Context, matchID uuid.UUID) (*models.PvpMatch, error) {
	return s.store.GetMatch(ctx, matchID)
}
