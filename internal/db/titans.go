package db

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/titanbreach/engine/internal/apperr"
	"github.com/titanbreach/engine/pkg/models"
)

// InsertTitanSpawn persists a newly generated spawn (C3's write side).
func (s *Store) InsertTitanSpawn(ctx context.Context, t models.TitanSpawn) error {
	const q = `
		INSERT INTO titan_spawns
			(id, poi_id, lat, lng, geohash, element, threat_class, species_id,
			 genes, spawned_at, expires_at, capture_count, max_captures)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`
	_, err := s.pool.Exec(ctx, q, t.ID, t.POIID, t.Lat, t.Lng, t.Geohash, t.Element,
		t.ThreatClass, t.SpeciesID, t.Genes[:], t.SpawnedAt, t.ExpiresAt, t.CaptureCount, t.MaxCapturesN)
	if err != nil {
		return apperr.Database(err)
	}
	return nil
}

// ActiveSpawnForPOI reports whether poiID already has an active, still
// capturable Titan (spec §4.3 step 2), without loading the row.
func (s *Store) ActiveSpawnForPOI(ctx context.Context, poiID uuid.UUID, now time.Time) (bool, error) {
	const q = `
		SELECT EXISTS(
			SELECT 1 FROM titan_spawns
			WHERE poi_id = $1 AND expires_at > $2 AND capture_count < max_captures
		)`
	var exists bool
	if err := s.pool.QueryRow(ctx, q, poiID, now).Scan(&exists); err != nil {
		return false, apperr.Database(err)
	}
	return exists, nil
}

// GetTitanSpawn loads a spawn by ID.
func (s *Store) GetTitanSpawn(ctx context.Context, id uuid.UUID) (*models.TitanSpawn, error) {
	const q = `
		SELECT id, poi_id, lat, lng, geohash, element, threat_class, species_id,
		       genes, spawned_at, expires_at, captured_by, capture_count, max_captures
		FROM titan_spawns WHERE id = $1`
	row := s.pool.QueryRow(ctx, q, id)
	t, err := scanTitanSpawn(row)
	if err == pgx.ErrNoRows {
		return nil, apperr.New(apperr.CodeTitanNotFound, "titan not found")
	}
	if err != nil {
		return nil, apperr.Database(err)
	}
	return t, nil
}

func scanTitanSpawn(row pgx.Row) (*models.TitanSpawn, error) {
	var t models.TitanSpawn
	var genes []byte
	if err := row.Scan(&t.ID, &t.POIID, &t.Lat, &t.Lng, &t.Geohash, &t.Element,
		&t.ThreatClass, &t.SpeciesID, &genes, &t.SpawnedAt, &t.ExpiresAt,
		&t.CapturedBy, &t.CaptureCount, &t.MaxCapturesN); err != nil {
		return nil, err
	}
	copy(t.Genes[:], genes)
	return &t, nil
}

// ConfirmCapture atomically increments capture_count and, on the first
// capture, sets captured_by/captured_at (later captures leave them as they
// are). The WHERE clause
// enforces the capture-count invariant under concurrency: only a row that
// still has capacity is updated, so N concurrent confirmations against a
// spawn with max_captures=M yield exactly M successful updates (property 5).
func (s *Store) ConfirmCapture(ctx context.Context, tx pgx.Tx, titanID, playerID uuid.UUID, at time.Time) (remaining int, ok bool, err error) {
	const q = `
		UPDATE titan_spawns
		SET capture_count = capture_count + 1,
		    captured_by = COALESCE(captured_by, $2),
		    captured_at = COALESCE(captured_at, $3)
		WHERE id = $1 AND capture_count < max_captures
		RETURNING max_captures - capture_count`
	var remainingAfter int
	scanErr := tx.QueryRow(ctx, q, titanID, playerID, at).Scan(&remainingAfter)
	if scanErr == pgx.ErrNoRows {
		return 0, false, nil
	}
	if scanErr != nil {
		return 0, false, apperr.Database(scanErr)
	}
	return remainingAfter, true, nil
}

// ReconcileCapture is capture Stage D's single DB transaction: it applies
// the capture-count increment and the player's reward/counter bump
// atomically, so a crash between the two can never leave one applied
// without the other.
func (s *Store) ReconcileCapture(ctx context.Context, titanID, playerID uuid.UUID, rewardBaseUnits int64, at time.Time) (remaining int, ok bool, err error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, false, apperr.Database(err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	remaining, ok, err = s.ConfirmCapture(ctx, tx, titanID, playerID, at)
	if err != nil {
		return 0, false, err
	}
	if !ok {
		return 0, false, nil
	}

	if err := s.IncrementTitansCaptured(ctx, tx, playerID, rewardBaseUnits, at); err != nil {
		return 0, false, apperr.Database(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, false, apperr.Database(err)
	}
	return remaining, true, nil
}

// CountActiveSpawns returns the number of unexpired titan spawns still
// below their capture cap, for the metrics tick's active_titans gauge.
func (s *Store) CountActiveSpawns(ctx context.Context, now time.Time) (int, error) {
	const q = `SELECT count(*) FROM titan_spawns WHERE expires_at > $1 AND capture_count < max_captures`
	var n int
	if err := s.pool.QueryRow(ctx, q, now).Scan(&n); err != nil {
		return 0, apperr.Database(err)
	}
	return n, nil
}

// DeleteExpiredSpawns removes spawns whose expires_at is older than cutoff
// (C8's expiry sweep, 1h past expiry).
func (s *Store) DeleteExpiredSpawns(ctx context.Context, cutoff time.Time) (int64, error) {
	const q = `DELETE FROM titan_spawns WHERE expires_at < $1`
	tag, err := s.pool.Exec(ctx, q, cutoff)
	if err != nil {
		return 0, apperr.Database(err)
	}
	return tag.RowsAffected(), nil
}

// SpawnsNearExpiry returns spawns expiring within `within` of now, used to
// broadcast TitanExpired before the hard delete cutoff.
func (s *Store) SpawnsNearExpiry(ctx context.Context, now time.Time, within time.Duration) ([]models.TitanSpawn, error) {
	const q = `
		SELECT id, poi_id, lat, lng, geohash, element, threat_class, species_id,
		       genes, spawned_at, expires_at, captured_by, capture_count, max_captures
		FROM titan_spawns WHERE expires_at BETWEEN $1 AND $2`
	rows, err := s.pool.Query(ctx, q, now, now.Add(within))
	if err != nil {
		return nil, apperr.Database(err)
	}
	defer rows.Close()

	var out []models.TitanSpawn
	for rows.Next() {
		t, err := scanTitanSpawn(rows)
		if err != nil {
			return nil, apperr.Database(err)
		}
		out = append(out, *t)
	}
	return out, nil
}

// TitansNear returns active spawns within radiusM of (lat,lng), radius
// pre-capped by the caller at 50,000m (spec §6.1).
func (s *Store) TitansNear(ctx context.Context, lat, lng, radiusM float64, now time.Time) ([]models.TitanSpawn, error) {
	// A bounding-box prefilter keeps this index-friendly; callers that need
	// exact-radius semantics re-filter with geo.Haversine in memory.
	const degPerMeter = 1.0 / 111320.0
	latDelta := radiusM * degPerMeter
	lngDelta := radiusM * degPerMeter / cosApprox(lat)

	const q = `
		SELECT id, poi_id, lat, lng, geohash, element, threat_class, species_id,
		       genes, spawned_at, expires_at, captured_by, capture_count, max_captures
		FROM titan_spawns
		WHERE lat BETWEEN $1 AND $2 AND lng BETWEEN $3 AND $4
		  AND expires_at > $5 AND capture_count < max_captures`
	rows, err := s.pool.Query(ctx, q, lat-latDelta, lat+latDelta, lng-lngDelta, lng+lngDelta, now)
	if err != nil {
		return nil, apperr.Database(err)
	}
	defer rows.Close()

	var out []models.TitanSpawn
	for rows.Next() {
		t, err := scanTitanSpawn(rows)
		if err != nil {
			return nil, apperr.Database(err)
		}
		out = append(out, *t)
	}
	return out, nil
}

func cosApprox(latDeg float64) float64 {
	rad := latDeg * 3.141592653589793 / 180.0
	c := 1 - rad*rad/2 // fine at POI/region scales; exactness isn't required for a bbox prefilter
	if c < 0.01 {
		c = 0.01
	}
	return c
}

// InsertPlayerTitan persists a newly owned Titan after chain confirmation.
func (s *Store) InsertPlayerTitan(ctx context.Context, tx pgx.Tx, pt models.PlayerTitan) error {
	const q = `
		INSERT INTO player_titans
			(id, player_id, on_chain_mint, species_id, element, threat_class, genes, captured_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`
	_, err := tx.Exec(ctx, q, pt.ID, pt.PlayerID, pt.OnChainMint, pt.SpeciesID,
		pt.Element, pt.ThreatClass, pt.Genes[:], pt.CapturedAt)
	return err
}
