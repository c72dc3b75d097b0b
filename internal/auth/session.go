// Package auth implements the opaque-token session verifier internal/api
// depends on. Wallet-signature challenge issuance is out of scope; this
// package only tracks and verifies sessions once one has been minted.
package auth

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/titanbreach/engine/internal/apperr"
)

// Session is a single authenticated player's opaque-token grant.
type Session struct {
	PlayerID      uuid.UUID
	WalletAddress string
	IssuedAt      time.Time
	ExpiresAt     time.Time
}

// SessionStore issues, looks up, and revokes sessions by opaque token.
type SessionStore interface {
	Create(ctx context.Context, playerID uuid.UUID, wallet string, ttl time.Duration) (token string, sess Session, err error)
	Lookup(ctx context.Context, token string) (*Session, error)
	Revoke(ctx context.Context, token string) error
}

// Verify looks up token and rejects it if absent or past its ExpiresAt.
func Verify(ctx context.Context, store SessionStore, token string, now time.Time) (*Session, error) {
	sess, err := store.Lookup(ctx, token)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, apperr.New(apperr.CodeUnauthorized, "session not found")
	}
	if now.After(sess.ExpiresAt) {
		return nil, apperr.New(apperr.CodeUnauthorized, "session expired")
	}
	return sess, nil
}
