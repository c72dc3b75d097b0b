package spawn

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/titanbreach/engine/internal/broadcast"
	"github.com/titanbreach/engine/pkg/models"
)

type fakeStore struct {
	mu       sync.Mutex
	pois     []models.POI
	occupied map[uuid.UUID]bool
	inserted []models.TitanSpawn
}

func (f *fakeStore) AllActivePOIs(ctx context.Context) ([]models.POI, error) {
	return f.pois, nil
}

func (f *fakeStore) ActiveSpawnForPOI(ctx context.Context, poiID uuid.UUID, now time.Time) (bool, error) {
	return f.occupied[poiID], nil
}

func (f *fakeStore) InsertTitanSpawn(ctx context.Context, t models.TitanSpawn) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inserted = append(f.inserted, t)
	return nil
}

func TestRunCycleSkipsOccupiedPOI(t *testing.T) {
	poiID := uuid.New()
	store := &fakeStore{
		pois:     []models.POI{{ID: poiID, Lat: 35, Lng: 139, RadiusM: 100, SpawnWeight: 5, Terrain: models.TerrainUrban, IsActive: true}},
		occupied: map[uuid.UUID]bool{poiID: true},
	}
	hub := broadcast.NewHub(zap.NewNop())
	e := New(store, hub, zap.NewNop())

	n, err := e.RunCycle(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Empty(t, store.inserted)
}

func TestRunCycleHighWeightNoonEventuallySpawns(t *testing.T) {
	// spawn_weight=5 at noon (T=1.3, D varies) yields P well above 0.3 most
	// days; run enough cycles that at least one draw succeeds.
	poiID := uuid.New()
	hub := broadcast.NewHub(zap.NewNop())
	noon := time.Date(2026, 7, 30, 12, 0, 0, 0, time.UTC) // a Thursday

	for i := 0; i < 50; i++ {
		store := &fakeStore{
			pois:     []models.POI{{ID: poiID, Lat: 35, Lng: 139, RadiusM: 50, SpawnWeight: 5, Terrain: models.TerrainForest, IsActive: true}},
			occupied: map[uuid.UUID]bool{},
		}
		e := New(store, hub, zap.NewNop())
		n, err := e.RunCycle(context.Background(), noon)
		require.NoError(t, err)
		if n == 1 {
			got := store.inserted[0]
			assert.Equal(t, poiID, got.POIID)
			assert.True(t, got.ExpiresAt.After(noon))
			assert.Equal(t, got.MaxCapturesN, got.ThreatClass.MaxCaptures())
			return
		}
	}
	t.Fatal("expected at least one spawn across 50 independent draws at a favorable probability")
}

func TestSpawnProbabilityFactors(t *testing.T) {
	morning := time.Date(2026, 7, 27, 7, 0, 0, 0, time.UTC) // a Monday
	night := time.Date(2026, 7, 27, 23, 0, 0, 0, time.UTC)

	pMorning := spawnProbability(3, morning)
	pNight := spawnProbability(3, night)
	assert.Greater(t, pMorning, pNight)
}

func TestRollThreatClassStaysInRange(t *testing.T) {
	for _, u := range []float64{0, 0.1, 0.5, 0.9, 0.999} {
		c := rollThreatClass(5, u)
		assert.GreaterOrEqual(t, int(c), 1)
		assert.LessOrEqual(t, int(c), 5)
	}
}

func TestRollElementWithinTerrainTable(t *testing.T) {
	e := rollElement(models.TerrainWater, 0.95)
	assert.Equal(t, models.ElementParasitic, e)
}
