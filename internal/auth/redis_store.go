package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/titanbreach/engine/internal/apperr"
)

// Cache is the subset of internal/cache.Client a RedisSessionStore needs.
type Cache interface {
	SetJSON(ctx context.Context, key string, data []byte, ttl time.Duration) error
	GetJSON(ctx context.Context, key string) ([]byte, bool, error)
	Del(ctx context.Context, key string) error
}

const keyPrefix = "session:"

// RedisSessionStore persists sessions as TTL'd JSON blobs keyed by an
// opaque random token, mirroring how internal/cache already guards
// capture-token idempotency with a TTL'd Redis key.
type RedisSessionStore struct {
	cache Cache
}

// NewRedisSessionStore constructs a RedisSessionStore.
func NewRedisSessionStore(cache Cache) *RedisSessionStore {
	return &RedisSessionStore{cache: cache}
}

func newToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// Create mints a new opaque token and stores the session under it with the
// given TTL.
func (s *RedisSessionStore) Create(ctx context.Context, playerID uuid.UUID, wallet string, ttl time.Duration) (string, Session, error) {
	token, err := newToken()
	if err != nil {
		return "", Session{}, apperr.Internal(err)
	}
	now := time.Now()
	sess := Session{PlayerID: playerID, WalletAddress: wallet, IssuedAt: now, ExpiresAt: now.Add(ttl)}

	data, err := json.Marshal(sess)
	if err != nil {
		return "", Session{}, apperr.Internal(err)
	}
	if err := s.cache.SetJSON(ctx, keyPrefix+token, data, ttl); err != nil {
		return "", Session{}, apperr.Cache(err)
	}
	return token, sess, nil
}

// Lookup returns the session for token, or nil if absent/expired in cache.
func (s *RedisSessionStore) Lookup(ctx context.Context, token string) (*Session, error) {
	data, ok, err := s.cache.GetJSON(ctx, keyPrefix+token)
	if err != nil {
		return nil, apperr.Cache(err)
	}
	if !ok {
		return nil, nil
	}
	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, apperr.Internal(err)
	}
	return &sess, nil
}

// Revoke deletes the session for token.
func (s *RedisSessionStore) Revoke(ctx context.Context, token string) error {
	if err := s.cache.Del(ctx, keyPrefix+token); err != nil {
		return apperr.Cache(err)
	}
	return nil
}
