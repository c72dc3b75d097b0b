package poi

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/titanbreach/engine/pkg/models"
)

type fakeStore struct {
	pois  []models.POI
	calls int
}

func (f *fakeStore) AllActivePOIs(ctx context.Context) ([]models.POI, error) {
	f.calls++
	return f.pois, nil
}

func TestAllCachesAfterFirstLoad(t *testing.T) {
	store := &fakeStore{pois: []models.POI{{ID: uuid.New(), Name: "park"}}}
	c := New(store)

	first, err := c.All(context.Background())
	require.NoError(t, err)
	second, err := c.All(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, store.calls)
}

func TestInvalidateForcesReload(t *testing.T) {
	store := &fakeStore{pois: []models.POI{{ID: uuid.New()}}}
	c := New(store)

	_, err := c.All(context.Background())
	require.NoError(t, err)
	c.Invalidate()
	_, err = c.All(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, store.calls)
}
