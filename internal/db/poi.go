package db

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/titanbreach/engine/internal/apperr"
	"github.com/titanbreach/engine/pkg/models"
)

// ActivePOIsNear returns active POIs whose bounding box intersects the given
// radius around (lat,lng). Nothing in this module calls it: C3's spawn cycle
// and internal/poi's read-through cache both load AllActivePOIs.
func (s *Store) ActivePOIsNear(ctx context.Context, lat, lng, radiusM float64) ([]models.POI, error) {
	const degPerMeter = 1.0 / 111320.0
	latDelta := radiusM * degPerMeter
	lngDelta := radiusM * degPerMeter / cosApprox(lat)

	const q = `
		SELECT id, name, category, lat, lng, radius_m, spawn_weight, terrain, is_active
		FROM pois
		WHERE is_active = TRUE
		  AND lat BETWEEN $1 AND $2 AND lng BETWEEN $3 AND $4`
	rows, err := s.pool.Query(ctx, q, lat-latDelta, lat+latDelta, lng-lngDelta, lng+lngDelta)
	if err != nil {
		return nil, apperr.Database(err)
	}
	defer rows.Close()

	var out []models.POI
	for rows.Next() {
		p, err := scanPOI(rows)
		if err != nil {
			return nil, apperr.Database(err)
		}
		out = append(out, *p)
	}
	return out, nil
}

// AllActivePOIs loads every active POI, used to seed internal/poi's cache and
// by C8's spawn cycle when it sweeps the whole map rather than a region.
func (s *Store) AllActivePOIs(ctx context.Context) ([]models.POI, error) {
	const q = `SELECT id, name, category, lat, lng, radius_m, spawn_weight, terrain, is_active FROM pois WHERE is_active = TRUE`
	rows, err := s.pool.Query(ctx, q)
	if err != nil {
		return nil, apperr.Database(err)
	}
	defer rows.Close()

	var out []models.POI
	for rows.Next() {
		p, err := scanPOI(rows)
		if err != nil {
			return nil, apperr.Database(err)
		}
		out = append(out, *p)
	}
	return out, nil
}

// GetPOI loads a single POI by ID.
func (s *Store) GetPOI(ctx context.Context, id uuid.UUID) (*models.POI, error) {
	const q = `SELECT id, name, category, lat, lng, radius_m, spawn_weight, terrain, is_active FROM pois WHERE id = $1`
	row := s.pool.QueryRow(ctx, q, id)
	p, err := scanPOI(row)
	if err == pgx.ErrNoRows {
		return nil, apperr.New(apperr.CodeNotFound, "poi not found")
	}
	if err != nil {
		return nil, apperr.Database(err)
	}
	return p, nil
}

func scanPOI(row pgx.Row) (*models.POI, error) {
	var p models.POI
	if err := row.Scan(&p.ID, &p.Name, &p.Category, &p.Lat, &p.Lng, &p.RadiusM,
		&p.SpawnWeight, &p.Terrain, &p.IsActive); err != nil {
		return nil, err
	}
	return &p, nil
}
