package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSessionStore struct {
	sessions map[string]Session
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{sessions: map[string]Session{}}
}

func (f *fakeSessionStore) Create(ctx context.Context, playerID uuid.UUID, wallet string, ttl time.Duration) (string, Session, error) {
	now := time.Now()
	sess := Session{PlayerID: playerID, WalletAddress: wallet, IssuedAt: now, ExpiresAt: now.Add(ttl)}
	token := uuid.NewString()
	f.sessions[token] = sess
	return token, sess, nil
}

func (f *fakeSessionStore) Lookup(ctx context.Context, token string) (*Session, error) {
	sess, ok := f.sessions[token]
	if !ok {
		return nil, nil
	}
	return &sess, nil
}

func (f *fakeSessionStore) Revoke(ctx context.Context, token string) error {
	delete(f.sessions, token)
	return nil
}

func TestVerifyAcceptsFreshSession(t *testing.T) {
	store := newFakeSessionStore()
	playerID := uuid.New()
	token, _, err := store.Create(context.Background(), playerID, "wallet1", time.Hour)
	require.NoError(t, err)

	sess, err := Verify(context.Background(), store, token, time.Now())
	require.NoError(t, err)
	assert.Equal(t, playerID, sess.PlayerID)
}

func TestVerifyRejectsUnknownToken(t *testing.T) {
	store := newFakeSessionStore()
	_, err := Verify(context.Background(), store, "missing", time.Now())
	assert.Error(t, err)
}

func TestVerifyRejectsExpiredSession(t *testing.T) {
	store := newFakeSessionStore()
	token, _, err := store.Create(context.Background(), uuid.New(), "wallet1", time.Hour)
	require.NoError(t, err)

	_, err = Verify(context.Background(), store, token, time.Now().Add(2*time.Hour))
	assert.Error(t, err)
}

func TestRevokeInvalidatesSession(t *testing.T) {
	store := newFakeSessionStore()
	token, _, err := store.Create(context.Background(), uuid.New(), "wallet1", time.Hour)
	require.NoError(t, err)
	require.NoError(t, store.Revoke(context.Background(), token))

	_, err = Verify(context.Background(), store, token, time.Now())
	assert.Error(t, err)
}
