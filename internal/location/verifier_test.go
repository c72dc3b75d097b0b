package location

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/titanbreach/engine/pkg/models"
)

type fakeStore struct {
	last     *models.LocationTrailRecord
	inserted []models.LocationTrailRecord
	updated  bool
}

func (f *fakeStore) LastLocationRecord(ctx context.Context, playerID uuid.UUID) (*models.LocationTrailRecord, error) {
	return f.last, nil
}

func (f *fakeStore) InsertLocationRecord(ctx context.Context, playerID uuid.UUID, r models.LocationTrailRecord, flagKinds []string) error {
	f.inserted = append(f.inserted, r)
	return nil
}

func (f *fakeStore) UpdateLastLocation(ctx context.Context, playerID uuid.UUID, lat, lng float64, at time.Time) error {
	f.updated = true
	return nil
}

func defaultThresholds() Thresholds {
	return Thresholds{AccuracyMeters: 100, MaxSpeedMps: 42}
}

func TestVerifyFirstReportIsValid(t *testing.T) {
	store := &fakeStore{}
	v := New(store, defaultThresholds())

	result, err := v.Verify(context.Background(), uuid.New(), models.LocationReport{
		Lat: 35.0, Lng: 139.0, AccuracyM: 5, Timestamp: time.Now(),
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusValid, result.Status)
	assert.Empty(t, result.Flags)
	assert.True(t, store.updated)
	assert.Len(t, store.inserted, 1)
}

func TestVerifyLowAccuracyIsSuspicious(t *testing.T) {
	store := &fakeStore{}
	v := New(store, defaultThresholds())

	result, err := v.Verify(context.Background(), uuid.New(), models.LocationReport{
		Lat: 35.0, Lng: 139.0, AccuracyM: 500, Timestamp: time.Now(),
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusSuspicious, result.Status)
	assert.Len(t, result.Flags, 1)
	assert.Equal(t, models.FlagLowAccuracy, result.Flags[0].Kind)
}

func TestVerifySpeedViolation(t *testing.T) {
	now := time.Now()
	store := &fakeStore{last: &models.LocationTrailRecord{
		Lat: 35.0, Lng: 139.0, Timestamp: now.Add(-10 * time.Second),
	}}
	v := New(store, defaultThresholds())

	// ~100km away 10 seconds later is far beyond the 42 m/s cap but under
	// the teleport distance/time combination (dt=10s < 300s but dist must
	// exceed 50000m to flag teleport too — here it's ~100km, which trips
	// both checks; PossibleTeleport is critical so the verdict is Rejected).
	result, err := v.Verify(context.Background(), uuid.New(), models.LocationReport{
		Lat: 35.9, Lng: 139.0, AccuracyM: 5, Timestamp: now,
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, result.Status)

	var kinds []models.FlagKind
	for _, f := range result.Flags {
		kinds = append(kinds, f.Kind)
	}
	assert.Contains(t, kinds, models.FlagSpeedViolation)
	assert.Contains(t, kinds, models.FlagPossibleTeleport)
}

func TestVerifySlowWalkIsValid(t *testing.T) {
	now := time.Now()
	store := &fakeStore{last: &models.LocationTrailRecord{
		Lat: 35.0, Lng: 139.0, Timestamp: now.Add(-60 * time.Second),
	}}
	v := New(store, defaultThresholds())

	// ~50m in 60s is a typical walking pace, well under 42 m/s and far
	// short of the teleport distance threshold.
	result, err := v.Verify(context.Background(), uuid.New(), models.LocationReport{
		Lat: 35.00045, Lng: 139.0, AccuracyM: 5, Timestamp: now,
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusValid, result.Status)
}
