package db

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/titanbreach/engine/internal/apperr"
	"github.com/titanbreach/engine/pkg/models"
)

// ActiveSeason returns the currently active ranked season.
func (s *Store) ActiveSeason(ctx context.Context) (*models.PvpSeason, error) {
	const q = `SELECT id, name, starts_at, ends_at, is_active FROM pvp_seasons WHERE is_active = TRUE LIMIT 1`
	row := s.pool.QueryRow(ctx, q)
	var season models.PvpSeason
	err := row.Scan(&season.ID, &season.Name, &season.StartsAt, &season.EndsAt, &season.IsActive)
	if err == pgx.ErrNoRows {
		return nil, apperr.New(apperr.CodeNotFound, "no active season")
	}
	if err != nil {
		return nil, apperr.Database(err)
	}
	return &season, nil
}

// GetOrCreatePlayerPvpStats loads a player's stats for the season, creating a
// fresh Elo=1000 row if one doesn't exist yet.
func (s *Store) GetOrCreatePlayerPvpStats(ctx context.Context, playerID, seasonID uuid.UUID) (*models.PlayerPvpStats, error) {
	const sel = `
		SELECT player_id, season_id, elo_rating, peak_rating, matches_played, matches_won,
		       matches_lost, win_streak, max_win_streak, rank_tier, rank_division, last_match_at
		FROM player_pvp_stats WHERE player_id = $1 AND season_id = $2`
	row := s.pool.QueryRow(ctx, sel, playerID, seasonID)
	st, err := scanPvpStats(row)
	if err == nil {
		return st, nil
	}
	if err != pgx.ErrNoRows {
		return nil, apperr.Database(err)
	}

	const ins = `
		INSERT INTO player_pvp_stats (player_id, season_id)
		VALUES ($1, $2)
		ON CONFLICT (player_id, season_id) DO UPDATE SET player_id = EXCLUDED.player_id
		RETURNING player_id, season_id, elo_rating, peak_rating, matches_played, matches_won,
		          matches_lost, win_streak, max_win_streak, rank_tier, rank_division, last_match_at`
	row = s.pool.QueryRow(ctx, ins, playerID, seasonID)
	st, err = scanPvpStats(row)
	if err != nil {
		return nil, apperr.Database(err)
	}
	return st, nil
}

func scanPvpStats(row pgx.Row) (*models.PlayerPvpStats, error) {
	var st models.PlayerPvpStats
	if err := row.Scan(&st.PlayerID, &st.SeasonID, &st.EloRating, &st.PeakRating,
		&st.MatchesPlayed, &st.MatchesWon, &st.MatchesLost, &st.WinStreak, &st.MaxWinStreak,
		&st.RankTier, &st.RankDivision, &st.LastMatchAt); err != nil {
		return nil, err
	}
	return &st, nil
}

// UpdatePvpStatsAfterMatch writes the post-match Elo/streak/rank state for one
// player within an externally managed transaction (end_match updates both
// sides atomically).
func (s *Store) UpdatePvpStatsAfterMatch(ctx context.Context, tx pgx.Tx, st models.PlayerPvpStats, at time.Time) error {
	const q = `
		UPDATE player_pvp_stats
		SET elo_rating = $3, peak_rating = $4, matches_played = $5, matches_won = $6,
		    matches_lost = $7, win_streak = $8, max_win_streak = $9, rank_tier = $10,
		    rank_division = $11, last_match_at = $12
		WHERE player_id = $1 AND season_id = $2`
	_, err := tx.Exec(ctx, q, st.PlayerID, st.SeasonID, st.EloRating, st.PeakRating,
		st.MatchesPlayed, st.MatchesWon, st.MatchesLost, st.WinStreak, st.MaxWinStreak,
		st.RankTier, st.RankDivision, at)
	return err
}

// UpsertQueueEntry inserts or replaces a player's matchmaking queue row
// (join_queue).
func (s *Store) UpsertQueueEntry(ctx context.Context, e models.QueueEntry) error {
	const q = `
		INSERT INTO matchmaking_queue (player_id, titan_id, elo, search_start, status, matched_with, match_id)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (player_id) DO UPDATE SET
			titan_id = EXCLUDED.titan_id, elo = EXCLUDED.elo, search_start = EXCLUDED.search_start,
			status = EXCLUDED.status, matched_with = EXCLUDED.matched_with, match_id = EXCLUDED.match_id`
	_, err := s.pool.Exec(ctx, q, e.PlayerID, e.TitanID, e.Elo, e.SearchStart, e.Status, e.MatchedWith, e.MatchID)
	if err != nil {
		return apperr.Database(err)
	}
	return nil
}

// DeleteQueueEntry removes a player's queue row (leave_queue, or cleanup
// after a match is formed).
func (s *Store) DeleteQueueEntry(ctx context.Context, playerID uuid.UUID) error {
	const q = `DELETE FROM matchmaking_queue WHERE player_id = $1`
	_, err := s.pool.Exec(ctx, q, playerID)
	if err != nil {
		return apperr.Database(err)
	}
	return nil
}

// GetQueueEntry loads a player's current queue row, if any.
func (s *Store) GetQueueEntry(ctx context.Context, playerID uuid.UUID) (*models.QueueEntry, error) {
	const q = `
		SELECT player_id, titan_id, elo, search_start, status, matched_with, match_id
		FROM matchmaking_queue WHERE player_id = $1`
	row := s.pool.QueryRow(ctx, q, playerID)
	var e models.QueueEntry
	err := row.Scan(&e.PlayerID, &e.TitanID, &e.Elo, &e.SearchStart, &e.Status, &e.MatchedWith, &e.MatchID)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Database(err)
	}
	return &e, nil
}

// SearchingEntriesOrderedByWait returns all currently-searching queue rows,
// oldest search_start first — run_matchmaking_cycle's candidate pool.
// Ordering by wait time means longer-waiting players get first pick as their
// widened search band makes more opponents eligible.
func (s *Store) SearchingEntriesOrderedByWait(ctx context.Context) ([]models.QueueEntry, error) {
	const q = `
		SELECT player_id, titan_id, elo, search_start, status, matched_with, match_id
		FROM matchmaking_queue
		WHERE status = 'searching'
		ORDER BY search_start ASC
		FOR UPDATE SKIP LOCKED`
	rows, err := s.pool.Query(ctx, q)
	if err != nil {
		return nil, apperr.Database(err)
	}
	defer rows.Close()

	var out []models.QueueEntry
	for rows.Next() {
		var e models.QueueEntry
		if err := rows.Scan(&e.PlayerID, &e.TitanID, &e.Elo, &e.SearchStart, &e.Status, &e.MatchedWith, &e.MatchID); err != nil {
			return nil, apperr.Database(err)
		}
		out = append(out, e)
	}
	return out, nil
}

// MarkQueueMatched flags two queue entries as matched and stamps the new
// match ID, within the caller's transaction. The FOR UPDATE SKIP LOCKED scan
// in SearchingEntriesOrderedByWait runs as its own statement outside that
// transaction, so its row locks are already released when this update runs.
func (s *Store) MarkQueueMatched(ctx context.Context, tx pgx.Tx, playerID, matchedWith, matchID uuid.UUID) error {
	const q = `UPDATE matchmaking_queue SET status = 'matched', matched_with = $2, match_id = $3 WHERE player_id = $1`
	_, err := tx.Exec(ctx, q, playerID, matchedWith, matchID)
	return err
}

// FormMatch is the matchmaker's exclusive hand-off: within one transaction,
// mark both queue entries matched and insert the new match row, so a
// concurrent cycle can never observe one write without the other.
func (s *Store) FormMatch(ctx context.Context, p1, p2 uuid.UUID, match models.PvpMatch) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return apperr.Database(err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := s.MarkQueueMatched(ctx, tx, p1, p2, match.ID); err != nil {
		return apperr.Database(err)
	}
	if err := s.MarkQueueMatched(ctx, tx, p2, p1, match.ID); err != nil {
		return apperr.Database(err)
	}
	if err := s.InsertMatch(ctx, tx, match); err != nil {
		return apperr.Database(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return apperr.Database(err)
	}
	return nil
}

// InsertMatch creates a new PvP match row.
func (s *Store) InsertMatch(ctx context.Context, tx pgx.Tx, m models.PvpMatch) error {
	const q = `
		INSERT INTO pvp_matches
			(id, season_id, player1_id, player2_id, phase, current_turn, player1_hp, player2_hp,
			 ready_deadline, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`
	_, err := tx.Exec(ctx, q, m.ID, m.SeasonID, m.Player1ID, m.Player2ID, m.Phase,
		m.CurrentTurn, m.Player1HP, m.Player2HP, m.ReadyDeadline, m.CreatedAt)
	return err
}

// GetMatch loads a match by ID.
func (s *Store) GetMatch(ctx context.Context, id uuid.UUID) (*models.PvpMatch, error) {
	const q = `
		SELECT id, season_id, player1_id, player2_id, player1_titan_id, player2_titan_id,
		       phase, current_turn, player1_hp, player2_hp, ready_deadline, turn_deadline,
		       winner_id, reason, created_at, completed_at
		FROM pvp_matches WHERE id = $1`
	row := s.pool.QueryRow(ctx, q, id)
	m, err := scanMatch(row)
	if err == pgx.ErrNoRows {
		return nil, apperr.New(apperr.CodeNotFound, "match not found")
	}
	if err != nil {
		return nil, apperr.Database(err)
	}
	return m, nil
}

func scanMatch(row pgx.Row) (*models.PvpMatch, error) {
	var m models.PvpMatch
	var reason *string
	if err := row.Scan(&m.ID, &m.SeasonID, &m.Player1ID, &m.Player2ID, &m.Player1TitanID,
		&m.Player2TitanID, &m.Phase, &m.CurrentTurn, &m.Player1HP, &m.Player2HP,
		&m.ReadyDeadline, &m.TurnDeadline, &m.WinnerID, &reason, &m.CreatedAt, &m.CompletedAt); err != nil {
		return nil, err
	}
	if reason != nil {
		m.Reason = *reason
	}
	return &m, nil
}

// UpdateMatch persists the full mutable match state (phase transitions,
// titan selection, HP changes, turn/deadline advances).
func (s *Store) UpdateMatch(ctx context.Context, m models.PvpMatch) error {
	const q = `
		UPDATE pvp_matches SET
			player1_titan_id = $2, player2_titan_id = $3, phase = $4, current_turn = $5,
			player1_hp = $6, player2_hp = $7, ready_deadline = $8, turn_deadline = $9,
			winner_id = $10, reason = $11, completed_at = $12
		WHERE id = $1`
	var reason *string
	if m.Reason != "" {
		reason = &m.Reason
	}
	_, err := s.pool.Exec(ctx, q, m.ID, m.Player1TitanID, m.Player2TitanID, m.Phase,
		m.CurrentTurn, m.Player1HP, m.Player2HP, m.ReadyDeadline, m.TurnDeadline,
		m.WinnerID, reason, m.CompletedAt)
	if err != nil {
		return apperr.Database(err)
	}
	return nil
}

// EndMatch is end_match's single DB transaction: it persists the completed
// match row, both players' updated season stats, and credits the winner's
// BREACH/XP onto their Player row, all atomically (spec §4.7 end_match).
func (s *Store) EndMatch(ctx context.Context, m models.PvpMatch, winner, loser models.PlayerPvpStats, winnerPlayerID uuid.UUID, rewardBreach, rewardXP int64, at time.Time) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return apperr.Database(err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var reason *string
	if m.Reason != "" {
		reason = &m.Reason
	}
	const updMatch = `
		UPDATE pvp_matches SET
			player1_titan_id = $2, player2_titan_id = $3, phase = $4, current_turn = $5,
			player1_hp = $6, player2_hp = $7, ready_deadline = $8, turn_deadline = $9,
			winner_id = $10, reason = $11, completed_at = $12
		WHERE id = $1`
	if _, err := tx.Exec(ctx, updMatch, m.ID, m.Player1TitanID, m.Player2TitanID, m.Phase,
		m.CurrentTurn, m.Player1HP, m.Player2HP, m.ReadyDeadline, m.TurnDeadline,
		m.WinnerID, reason, m.CompletedAt); err != nil {
		return apperr.Database(err)
	}

	if err := s.UpdatePvpStatsAfterMatch(ctx, tx, winner, at); err != nil {
		return apperr.Database(err)
	}
	if err := s.UpdatePvpStatsAfterMatch(ctx, tx, loser, at); err != nil {
		return apperr.Database(err)
	}

	var newXP int64
	const updPlayer = `UPDATE players SET experience = experience + $2, breach_earned = breach_earned + $3, battles_won = battles_won + 1 WHERE id = $1 RETURNING experience`
	if err := tx.QueryRow(ctx, updPlayer, winnerPlayerID, rewardXP, rewardBreach).Scan(&newXP); err != nil {
		return apperr.Database(err)
	}
	const setLevel = `UPDATE players SET level = $2 WHERE id = $1`
	if _, err := tx.Exec(ctx, setLevel, winnerPlayerID, models.LevelFromExperience(newXP)); err != nil {
		return apperr.Database(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return apperr.Database(err)
	}
	return nil
}

// InsertBattleTurn appends a turn row.
func (s *Store) InsertBattleTurn(ctx context.Context, t models.BattleTurn) error {
	const q = `
		INSERT INTO pvp_battle_turns (id, match_id, turn_number, player1_action, player2_action, damage_dealt, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`
	_, err := s.pool.Exec(ctx, q, t.ID, t.MatchID, t.TurnNumber, t.Player1Action, t.Player2Action, t.DamageDealt, t.CreatedAt)
	if err != nil {
		return apperr.Database(err)
	}
	return nil
}

// MatchTurns returns every turn recorded for a match, in order.
func (s *Store) MatchTurns(ctx context.Context, matchID uuid.UUID) ([]models.BattleTurn, error) {
	const q = `
		SELECT id, match_id, turn_number, player1_action, player2_action, damage_dealt, created_at
		FROM pvp_battle_turns WHERE match_id = $1 ORDER BY turn_number ASC`
	rows, err := s.pool.Query(ctx, q, matchID)
	if err != nil {
		return nil, apperr.Database(err)
	}
	defer rows.Close()

	var out []models.BattleTurn
	for rows.Next() {
		var t models.BattleTurn
		if err := rows.Scan(&t.ID, &t.MatchID, &t.TurnNumber, &t.Player1Action, &t.Player2Action, &t.DamageDealt, &t.CreatedAt); err != nil {
			return nil, apperr.Database(err)
		}
		out = append(out, t)
	}
	return out, nil
}

// PlayerMatchHistory returns a player's most recent completed matches,
// capped at limit (spec §6.1 caps this endpoint at 50).
func (s *Store) PlayerMatchHistory(ctx context.Context, playerID uuid.UUID, limit int) ([]models.PvpMatch, error) {
	const q = `
		SELECT id, season_id, player1_id, player2_id, player1_titan_id, player2_titan_id,
		       phase, current_turn, player1_hp, player2_hp, ready_deadline, turn_deadline,
		       winner_id, reason, created_at, completed_at
		FROM pvp_matches
		WHERE (player1_id = $1 OR player2_id = $1) AND phase = 'Completed'
		ORDER BY completed_at DESC
		LIMIT $2`
	rows, err := s.pool.Query(ctx, q, playerID, limit)
	if err != nil {
		return nil, apperr.Database(err)
	}
	defer rows.Close()

	var out []models.PvpMatch
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, apperr.Database(err)
		}
		out = append(out, *m)
	}
	return out, nil
}

// Leaderboard returns the top entries for a season by Elo, capped at limit
// (spec §6.1 caps this endpoint at 100).
func (s *Store) Leaderboard(ctx context.Context, seasonID uuid.UUID, limit int) ([]models.LeaderboardEntry, error) {
	const q = `
		SELECT s.player_id, p.username, s.elo_rating, s.rank_tier, s.rank_division, s.matches_won, s.matches_lost
		FROM player_pvp_stats s
		JOIN players p ON p.id = s.player_id
		WHERE s.season_id = $1
		ORDER BY s.elo_rating DESC
		LIMIT $2`
	rows, err := s.pool.Query(ctx, q, seasonID, limit)
	if err != nil {
		return nil, apperr.Database(err)
	}
	defer rows.Close()

	var out []models.LeaderboardEntry
	for rows.Next() {
		var e models.LeaderboardEntry
		if err := rows.Scan(&e.PlayerID, &e.Username, &e.EloRating, &e.RankTier, &e.RankDiv, &e.Wins, &e.Losses); err != nil {
			return nil, apperr.Database(err)
		}
		out = append(out, e)
	}
	return out, nil
}
