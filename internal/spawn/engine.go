// Package spawn is C3, the cycle that populates eligible POIs with
// ephemeral Titans.
package spawn

import (
	"context"
	"encoding/json"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/titanbreach/engine/internal/broadcast"
	"github.com/titanbreach/engine/internal/geo"
	"github.com/titanbreach/engine/internal/rng"
	"github.com/titanbreach/engine/pkg/models"
)

// Store is the persistence surface the spawn engine needs.
type Store interface {
	AllActivePOIs(ctx context.Context) ([]models.POI, error)
	ActiveSpawnForPOI(ctx context.Context, poiID uuid.UUID, now time.Time) (bool, error)
	InsertTitanSpawn(ctx context.Context, t models.TitanSpawn) error
}

// Engine is C3.
type Engine struct {
	store Store
	hub   *broadcast.Hub
	log   *zap.Logger
}

// New constructs the spawn engine.
func New(store Store, hub *broadcast.Hub, log *zap.Logger) *Engine {
	return &Engine{store: store, hub: hub, log: log}
}

// timeOfDayFactor is T(hour) from spec §4.3 step 3.
func timeOfDayFactor(hour int) float64 {
	switch {
	case hour >= 6 && hour <= 9:
		return 1.2
	case hour >= 12 && hour <= 14:
		return 1.3
	case hour >= 17 && hour <= 20:
		return 1.5
	case hour >= 22 || hour <= 5:
		return 0.3
	default:
		return 1.0
	}
}

// weekdayFactor is D(weekday).
func weekdayFactor(weekday time.Weekday) float64 {
	if weekday == time.Saturday || weekday == time.Sunday {
		return 1.3
	}
	return 1.0
}

// spawnProbability computes P from spec §4.3 step 3.
func spawnProbability(spawnWeight float64, now time.Time) float64 {
	return 0.30 * (spawnWeight / 3.0) * timeOfDayFactor(now.Hour()) * weekdayFactor(now.Weekday())
}

// threatClassWeights returns the renormalized weighted-roll table for a
// POI's spawn_weight (spec §4.3 step 4).
func threatClassWeights(spawnWeight float64) [5]float64 {
	w := [5]float64{60, 25, 10, 4, 1}
	switch {
	case spawnWeight >= 4:
		w[2] *= 2
		w[3] *= 3
		w[4] *= 5
	case spawnWeight >= 3:
		w[2] *= 1.5
		w[3] *= 2
		w[4] *= 1
	}
	return w
}

// rollThreatClass draws a threat class 1-5 from the weighted table using u
// (a single pre-drawn uniform in [0,1)).
func rollThreatClass(spawnWeight float64, u float64) models.ThreatClass {
	w := threatClassWeights(spawnWeight)
	total := w[0] + w[1] + w[2] + w[3] + w[4]
	target := u * total
	cum := 0.0
	for i, wi := range w {
		cum += wi
		if target < cum {
			return models.ThreatClass(i + 1)
		}
	}
	return models.ThreatApex
}

// elementThresholds gives (a1, a2) cutoffs and the three elements a terrain
// rolls between (spec §6.2); roll is uniform in [0,100).
func elementThresholds(terrain models.Terrain) (a1, a2 float64, e1, e2, e3 models.Element) {
	switch terrain {
	case models.TerrainWater:
		return 70, 90, models.ElementAbyssal, models.ElementStorm, models.ElementParasitic
	case models.TerrainMountain:
		return 60, 85, models.ElementVolcanic, models.ElementStorm, models.ElementOssified
	case models.TerrainUrban:
		return 40, 75, models.ElementStorm, models.ElementVoid, models.ElementParasitic
	case models.TerrainForest:
		return 65, 85, models.ElementParasitic, models.ElementOssified, models.ElementAbyssal
	case models.TerrainDesert:
		return 50, 85, models.ElementVolcanic, models.ElementOssified, models.ElementVoid
	case models.TerrainCoastal:
		return 45, 80, models.ElementAbyssal, models.ElementStorm, models.ElementVolcanic
	case models.TerrainArctic:
		return 60, 85, models.ElementOssified, models.ElementVoid, models.ElementStorm
	default:
		return 50, 80, models.ElementAbyssal, models.ElementStorm, models.ElementVoid
	}
}

func rollElement(terrain models.Terrain, u float64) models.Element {
	roll := u * 100
	a1, a2, e1, e2, e3 := elementThresholds(terrain)
	switch {
	case roll < a1:
		return e1
	case roll < a2:
		return e2
	default:
		return e3
	}
}

// RunCycle is C3's per-cycle algorithm, run by C8's scheduler every hour (or
// on demand). All per-POI randomness is drawn synchronously from a single
// rng.Source before the spawn's DB insert, per the spec's RNG discipline.
func (e *Engine) RunCycle(ctx context.Context, now time.Time) (int, error) {
	pois, err := e.store.AllActivePOIs(ctx)
	if err != nil {
		return 0, err
	}

	spawned := 0
	for _, poi := range pois {
		occupied, err := e.store.ActiveSpawnForPOI(ctx, poi.ID, now)
		if err != nil {
			e.log.Error("spawn cycle: check active spawn failed", zap.Error(err), zap.String("poi", poi.ID.String()))
			continue
		}
		if occupied {
			continue
		}

		p := spawnProbability(poi.SpawnWeight, now)

		source := rng.New()
		u := source.Float64()
		if u >= p {
			continue
		}

		classRoll := source.Float64()
		threatClass := rollThreatClass(poi.SpawnWeight, classRoll)

		elementRoll := source.Float64()
		element := rollElement(poi.Terrain, elementRoll)

		bearing := source.RangeFloat64(0, 360)
		radiusRoll := source.Float64()
		distance := poi.RadiusM * math.Sqrt(radiusRoll)
		point := geo.FlatOffset(geo.Point{Lat: poi.Lat, Lng: poi.Lng}, bearing, distance)

		var genes [6]byte
		copy(genes[:], source.Bytes(6))

		speciesRoll := 1 + source.Intn(10)
		speciesID := models.SpeciesID(element, threatClass, speciesRoll)

		spawn := models.TitanSpawn{
			ID:           uuid.New(),
			POIID:        poi.ID,
			Lat:          point.Lat,
			Lng:          point.Lng,
			Geohash:      geo.Encode(point, 7),
			Element:      element,
			ThreatClass:  threatClass,
			SpeciesID:    speciesID,
			Genes:        genes,
			SpawnedAt:    now,
			ExpiresAt:    now.Add(threatClass.Lifetime()),
			CaptureCount: 0,
			MaxCapturesN: threatClass.MaxCaptures(),
		}

		if err := e.store.InsertTitanSpawn(ctx, spawn); err != nil {
			e.log.Error("spawn cycle: insert failed", zap.Error(err), zap.String("poi", poi.ID.String()))
			continue
		}
		spawned++

		event := broadcast.Envelope{
			Type: broadcast.EventTitanSpawned,
			Data: broadcast.TitanSpawnedEvent{
				TitanID: spawn.ID, POIID: poi.ID, Lat: point.Lat, Lng: point.Lng,
				Element: int(element), ThreatClass: int(threatClass),
				ExpiresAt: spawn.ExpiresAt.Format(time.RFC3339),
			},
		}
		if payload, err := encodeEnvelope(event); err == nil {
			e.hub.BroadcastToNeighbors(spawn.Geohash, payload)
		}
	}

	e.log.Info("spawn cycle complete", zap.Int("pois_scanned", len(pois)), zap.Int("spawned", spawned))
	return spawned, nil
}

func encodeEnvelope(e broadcast.Envelope) ([]byte, error) {
	return json.Marshal(e)
}
