package pvp

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/titanbreach/engine/internal/apperr"
	"github.com/titanbreach/engine/internal/rng"
	"github.com/titanbreach/engine/pkg/models"
)

const (
	readyDeadlineWindow = 30 * time.Second
	turnDeadlineWindow  = 30 * time.Second
)

// SelectTitan is the TitanSelect transition: a player locks in the Titan
// they are fielding, with its derived max HP. The match advances to Active
// once both sides have picked, with player1 set as first mover.
func (s *Service) SelectTitan(ctx context.Context, matchID, playerID, titanID uuid.UUID, titanHP int) (*models.PvpMatch, error) {
	m, err := s.store.GetMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if m.Phase != models.PhasePreparing && m.Phase != models.PhaseTitanSelect {
		return nil, apperr.New(apperr.CodeForbidden, "match is not accepting titan selections")
	}

	switch playerID {
	case m.Player1ID:
		m.Player1TitanID = &titanID
		m.Player1HP = titanHP
	case m.Player2ID:
		m.Player2TitanID = &titanID
		m.Player2HP = titanHP
	default:
		return nil, apperr.New(apperr.CodeForbidden, "player is not in this match")
	}

	if m.Player1TitanID != nil && m.Player2TitanID != nil {
		m.Phase = models.PhaseActive
		m.CurrentTurn = m.Player1ID
		deadline := time.Now().Add(turnDeadlineWindow)
		m.TurnDeadline = &deadline
	} else {
		m.Phase = models.PhaseTitanSelect
	}

	if err := s.store.UpdateMatch(ctx, *m); err != nil {
		return nil, err
	}
	return m, nil
}

// rollDamage draws the single RNG value a submitted action needs, before any
// suspension point, per the package-level discipline (spec §5).
func rollDamage(action models.Action, source *rng.Source) int {
	switch action {
	case models.ActionAttack:
		return int(source.RangeFloat64(15, 25))
	case models.ActionSpecial:
		return int(source.RangeFloat64(25, 40))
	default:
		return 0
	}
}

// SubmitAction is submit_action: the current actor's move is rolled,
// applied, and recorded in a single appended turn row, then the turn
// pointer advances to the opponent (or the match ends on KO).
func (s *Service) SubmitAction(ctx context.Context, matchID, playerID uuid.UUID, action models.Action) (*models.PvpMatch, error) {
	m, err := s.store.GetMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if m.Phase != models.PhaseActive {
		return nil, apperr.New(apperr.CodeForbidden, "match is not active")
	}
	if m.CurrentTurn != playerID {
		return nil, apperr.New(apperr.CodeForbidden, "not your turn")
	}

	source := rng.New()
	damage := rollDamage(action, source)

	var opponentID uuid.UUID
	turn := models.BattleTurn{ID: uuid.New(), MatchID: matchID, DamageDealt: damage, CreatedAt: time.Now()}

	if playerID == m.Player1ID {
		opponentID = m.Player2ID
		turn.Player1Action = &action
		m.Player2HP -= damage
	} else {
		opponentID = m.Player1ID
		turn.Player2Action = &action
		m.Player1HP -= damage
	}
	if m.Player1HP < 0 {
		m.Player1HP = 0
	}
	if m.Player2HP < 0 {
		m.Player2HP = 0
	}

	turns, err := s.store.MatchTurns(ctx, matchID)
	if err != nil {
		return nil, err
	}
	turn.TurnNumber = len(turns) + 1
	if err := s.store.InsertBattleTurn(ctx, turn); err != nil {
		return nil, err
	}

	if m.Player1HP == 0 {
		return s.finishMatch(ctx, m, m.Player2ID, "ko")
	}
	if m.Player2HP == 0 {
		return s.finishMatch(ctx, m, m.Player1ID, "ko")
	}

	m.CurrentTurn = opponentID
	deadline := time.Now().Add(turnDeadlineWindow)
	m.TurnDeadline = &deadline
	if err := s.store.UpdateMatch(ctx, *m); err != nil {
		return nil, err
	}
	return m, nil
}

// Surrender ends a match in the non-surrendering player's favor.
func (s *Service) Surrender(ctx context.Context, matchID, playerID uuid.UUID) (*models.PvpMatch, error) {
	m, err := s.store.GetMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if m.Phase != models.PhaseActive && m.Phase != models.PhaseTitanSelect {
		return nil, apperr.New(apperr.CodeForbidden, "match cannot be surrendered in its current phase")
	}

	var winner uuid.UUID
	switch playerID {
	case m.Player1ID:
		winner = m.Player2ID
	case m.Player2ID:
		winner = m.Player1ID
	default:
		return nil, apperr.New(apperr.CodeForbidden, "player is not in this match")
	}
	return s.finishMatch(ctx, m, winner, "surrender")
}

// finishMatch is end_match (spec §4.7): computes the zero-sum ELO update,
// the winner's reward, recomputes both sides' rank, and persists everything
// in one DB transaction.
func (s *Service) finishMatch(ctx context.Context, m *models.PvpMatch, winnerID uuid.UUID, reason string) (*models.PvpMatch, error) {
	var loserID uuid.UUID
	if winnerID == m.Player1ID {
		loserID = m.Player2ID
	} else {
		loserID = m.Player1ID
	}

	winnerStats, err := s.store.GetOrCreatePlayerPvpStats(ctx, winnerID, m.SeasonID)
	if err != nil {
		return nil, err
	}
	loserStats, err := s.store.GetOrCreatePlayerPvpStats(ctx, loserID, m.SeasonID)
	if err != nil {
		return nil, err
	}

	dw, dl := eloDelta(winnerStats.EloRating, loserStats.EloRating)
	rewardBreach, rewardXP := winnerRewards(dw)
	now := time.Now()

	winnerStats.EloRating += dw
	if winnerStats.EloRating > winnerStats.PeakRating {
		winnerStats.PeakRating = winnerStats.EloRating
	}
	winnerStats.MatchesPlayed++
	winnerStats.MatchesWon++
	winnerStats.WinStreak++
	if winnerStats.WinStreak > winnerStats.MaxWinStreak {
		winnerStats.MaxWinStreak = winnerStats.WinStreak
	}
	winnerStats.RankTier, winnerStats.RankDivision = models.RankFromElo(winnerStats.EloRating)
	winnerStats.LastMatchAt = &now

	loserStats.EloRating += dl
	loserStats.MatchesPlayed++
	loserStats.MatchesLost++
	loserStats.WinStreak = 0
	loserStats.RankTier, loserStats.RankDivision = models.RankFromElo(loserStats.EloRating)
	loserStats.LastMatchAt = &now

	m.Phase = models.PhaseCompleted
	m.WinnerID = &winnerID
	m.Reason = reason
	m.CompletedAt = &now

	if err := s.store.EndMatch(ctx, *m, *winnerStats, *loserStats, winnerID, rewardBreach, rewardXP, now); err != nil {
		return nil, err
	}

	// The BREACH reward is distributed on-chain on top of the off-chain ELO
	// and match-history update EndMatch already committed; a failure here is
	// logged, not surfaced, since the match result itself is not at stake.
	if winner, perr := s.store.GetPlayer(ctx, winnerID); perr == nil && winner != nil {
		if _, cerr := s.chain.DistributeReward(ctx, winner.WalletAddress, models.RewardBattleWin, rewardBreach); cerr != nil {
			s.log.Error("distribute battle reward", zap.Error(cerr), zap.String("player", winnerID.String()))
		}
	}

	return m, nil
}
