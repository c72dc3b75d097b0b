package db

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/titanbreach/engine/internal/apperr"
	"github.com/titanbreach/engine/pkg/models"
)

// GetPlayer loads a player by ID.
func (s *Store) GetPlayer(ctx context.Context, id uuid.UUID) (*models.Player, error) {
	const q = `
		SELECT id, wallet_address, username, level, experience, titans_captured,
		       battles_won, breach_earned, last_lat, last_lng, last_location_at,
		       last_capture_at, banned, ban_reason, offense_count, created_at
		FROM players WHERE id = $1`
	row := s.pool.QueryRow(ctx, q, id)
	p, err := scanPlayer(row)
	if err == pgx.ErrNoRows {
		return nil, apperr.New(apperr.CodePlayerNotFound, "player not found")
	}
	if err != nil {
		return nil, apperr.Database(err)
	}
	return p, nil
}

// GetOrCreatePlayerByWallet loads the player for a wallet address, creating a
// fresh row (level 1, zero progression) if none exists yet.
func (s *Store) GetOrCreatePlayerByWallet(ctx context.Context, wallet string) (*models.Player, error) {
	const sel = `
		SELECT id, wallet_address, username, level, experience, titans_captured,
		       battles_won, breach_earned, last_lat, last_lng, last_location_at,
		       last_capture_at, banned, ban_reason, offense_count, created_at
		FROM players WHERE wallet_address = $1`
	row := s.pool.QueryRow(ctx, sel, wallet)
	p, err := scanPlayer(row)
	if err == nil {
		return p, nil
	}
	if err != pgx.ErrNoRows {
		return nil, apperr.Database(err)
	}

	const ins = `
		INSERT INTO players (id, wallet_address, level, experience, created_at)
		VALUES ($1, $2, 1, 0, $3)
		ON CONFLICT (wallet_address) DO UPDATE SET wallet_address = EXCLUDED.wallet_address
		RETURNING id, wallet_address, username, level, experience, titans_captured,
		          battles_won, breach_earned, last_lat, last_lng, last_location_at,
		          last_capture_at, banned, ban_reason, offense_count, created_at`
	row = s.pool.QueryRow(ctx, ins, uuid.New(), wallet, time.Now())
	p, err = scanPlayer(row)
	if err != nil {
		return nil, apperr.Database(err)
	}
	return p, nil
}

func scanPlayer(row pgx.Row) (*models.Player, error) {
	var p models.Player
	if err := row.Scan(&p.ID, &p.WalletAddress, &p.Username, &p.Level, &p.Experience,
		&p.TitansCaptured, &p.BattlesWon, &p.BreachEarned, &p.LastLat, &p.LastLng,
		&p.LastLocationAt, &p.LastCaptureAt, &p.Banned, &p.BanReason, &p.OffenseCount,
		&p.CreatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

// UpdateLastLocation persists a player's most recent GPS fix.
func (s *Store) UpdateLastLocation(ctx context.Context, playerID uuid.UUID, lat, lng float64, at time.Time) error {
	const q = `UPDATE players SET last_lat = $2, last_lng = $3, last_location_at = $4 WHERE id = $1`
	_, err := s.pool.Exec(ctx, q, playerID, lat, lng, at)
	if err != nil {
		return apperr.Database(err)
	}
	return nil
}

// CountActiveSince returns the number of players with a location update at
// or after since, for the metrics tick's active_players gauge.
func (s *Store) CountActiveSince(ctx context.Context, since time.Time) (int, error) {
	const q = `SELECT count(*) FROM players WHERE last_location_at >= $1`
	var n int
	if err := s.pool.QueryRow(ctx, q, since).Scan(&n); err != nil {
		return 0, apperr.Database(err)
	}
	return n, nil
}

// CountTotal returns the total number of registered players, for the
// metrics tick's total_players gauge.
func (s *Store) CountTotal(ctx context.Context) (int, error) {
	const q = `SELECT count(*) FROM players`
	var n int
	if err := s.pool.QueryRow(ctx, q).Scan(&n); err != nil {
		return 0, apperr.Database(err)
	}
	return n, nil
}

// AddExperienceAndBreach atomically increments experience and BREACH
// balance, then recomputes level from the new experience total in the same
// transaction — level must never drift out of sync with experience (spec §3
// global invariant), and LevelFromExperience is a pure function of it.
func (s *Store) AddExperienceAndBreach(ctx context.Context, playerID uuid.UUID, xp int64, breach int64) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return apperr.Database(err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var newXP int64
	const upd = `UPDATE players SET experience = experience + $2, breach_earned = breach_earned + $3 WHERE id = $1 RETURNING experience`
	if err := tx.QueryRow(ctx, upd, playerID, xp, breach).Scan(&newXP); err != nil {
		return apperr.Database(err)
	}

	const setLevel = `UPDATE players SET level = $2 WHERE id = $1`
	if _, err := tx.Exec(ctx, setLevel, playerID, models.LevelFromExperience(newXP)); err != nil {
		return apperr.Database(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return apperr.Database(err)
	}
	return nil
}

// IncrementTitansCaptured bumps a player's capture counter and stamps
// last_capture_at, used by capture Stage D reconciliation.
func (s *Store) IncrementTitansCaptured(ctx context.Context, tx pgx.Tx, playerID uuid.UUID, rewardBaseUnits int64, at time.Time) error {
	const q = `UPDATE players SET titans_captured = titans_captured + 1, breach_earned = breach_earned + $2, last_capture_at = $3 WHERE id = $1`
	_, err := tx.Exec(ctx, q, playerID, rewardBaseUnits, at)
	return err
}
