package models

import (
	"time"

	"github.com/google/uuid"
)

// CaptureToken is the short-lived Stage-A authorization artifact. It is
// never persisted — its opaque signature is a deterministic function of its
// fields and a server secret (spec §4.4 step A.4). The Stage-C submit path
// does not re-derive it; it only claims the token once in the cache.
type CaptureToken struct {
	Wallet    string    `json:"wallet"`
	TitanID   uuid.UUID `json:"titanId"`
	SpeciesID int       `json:"speciesId"`
	ExpiresAt time.Time `json:"expiresAt"`
	Signature string    `json:"signature"` // base64
}

// CaptureAuthorization is the Stage-A response.
type CaptureAuthorization struct {
	Authorized    bool       `json:"authorized"`
	Token         string     `json:"token,omitempty"`
	ExpiresAt     *time.Time `json:"expiresAt,omitempty"`
	TitanSnapshot *TitanSpawn `json:"titanSnapshot,omitempty"`
	Distance      float64    `json:"distance"`
	MaxDistance   float64    `json:"maxDistance"`
	Error         string     `json:"error,omitempty"`
}

// UnsignedTransaction is the Stage-B response: a transaction with the
// player fee-payer slot empty and a reserved co-signer slot, plus the
// detached message bytes the client signs (spec §4.4 step B, §6.3).
type UnsignedTransaction struct {
	SerializedTxBase64   string            `json:"serializedTxBase64"`
	MessageBytesBase64   string            `json:"messageBytesBase64"`
	RecentBlockhash      string            `json:"recentBlockhash"`
	DerivedAddresses     map[string]string `json:"derivedAddresses"`
	OnChainTitanID       uint64            `json:"onChainTitanId"`
}

// SignedSubmission is the Stage-C request payload.
type SignedSubmission struct {
	SerializedTxBase64 string `json:"serializedTransaction"`
	PlayerSignature    string `json:"playerSignature"` // base64
	PlayerWallet       string `json:"playerWallet"`
	TitanID            uuid.UUID `json:"titanId"`
	TitanPDA           string `json:"titanPda"`
}

// CaptureResult is the Stage-D outcome returned to the caller.
type CaptureResult struct {
	Success           bool      `json:"success"`
	TxSignature       string    `json:"txSignature,omitempty"`
	RemainingCaptures int       `json:"remainingCaptures"`
	RewardBaseUnits   int64     `json:"rewardBaseUnits"`
	Error             string    `json:"error,omitempty"`
}
