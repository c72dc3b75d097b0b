package db

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/titanbreach/engine/internal/apperr"
	"github.com/titanbreach/engine/pkg/models"
)

// InsertLocationRecord appends a verified trail record (C2's write side).
func (s *Store) InsertLocationRecord(ctx context.Context, playerID uuid.UUID, r models.LocationTrailRecord, flagKinds []string) error {
	const q = `
		INSERT INTO player_locations
			(id, player_id, lat, lng, accuracy_m, speed_mps, heading_deg, altitude_m,
			 recorded_at, is_suspicious, flag_set)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`
	_, err := s.pool.Exec(ctx, q, uuid.New(), playerID, r.Lat, r.Lng, r.AccuracyM,
		r.SpeedMps, r.HeadingDeg, r.AltitudeM, r.Timestamp, r.IsSuspicious, flagKinds)
	if err != nil {
		return apperr.Database(err)
	}
	return nil
}

// LastLocationRecord returns the player's most recently recorded fix, used by
// the verifier to compute the distance/time deltas that drive the speed and
// teleport checks (spec §4.2). Returns (nil, nil) when the player has none
// yet, the baseline case for a player's first report.
func (s *Store) LastLocationRecord(ctx context.Context, playerID uuid.UUID) (*models.LocationTrailRecord, error) {
	const q = `
		SELECT lat, lng, accuracy_m, speed_mps, heading_deg, altitude_m, recorded_at, is_suspicious
		FROM player_locations
		WHERE player_id = $1
		ORDER BY recorded_at DESC
		LIMIT 1`
	row := s.pool.QueryRow(ctx, q, playerID)
	var r models.LocationTrailRecord
	err := row.Scan(&r.Lat, &r.Lng, &r.AccuracyM, &r.SpeedMps, &r.HeadingDeg, &r.AltitudeM,
		&r.Timestamp, &r.IsSuspicious)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Database(err)
	}
	return &r, nil
}

// DeleteOldLocationRecords purges trail records older than cutoff, C8's
// expiry sweep's 30-day retention trim.
func (s *Store) DeleteOldLocationRecords(ctx context.Context, cutoff time.Time) (int64, error) {
	const q = `DELETE FROM player_locations WHERE recorded_at < $1`
	tag, err := s.pool.Exec(ctx, q, cutoff)
	if err != nil {
		return 0, apperr.Database(err)
	}
	return tag.RowsAffected(), nil
}

// RecentOffenseCount counts suspicious/rejected fixes within the window.
// Nothing in this module calls it, and no code path escalates offenses to
// a ban from this count.
func (s *Store) RecentOffenseCount(ctx context.Context, playerID uuid.UUID, since time.Time) (int, error) {
	const q = `SELECT COUNT(*) FROM player_locations WHERE player_id = $1 AND is_suspicious = TRUE AND recorded_at >= $2`
	var n int
	if err := s.pool.QueryRow(ctx, q, playerID, since).Scan(&n); err != nil {
		return 0, apperr.Database(err)
	}
	return n, nil
}
