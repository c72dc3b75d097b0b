package capture

import (
	"context"
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
	player *models.Player
	spawn  *models.TitanSpawn

	confirmOK        bool
	confirmRemaining int
	incremented      bool
}

func (f *fakeStore) GetPlayer(ctx context.Context, id uuid.UUID) (*models.Player, error) {
	return f.player, nil
}

func (f *fakeStore) GetTitanSpawn(ctx context.Context, id uuid.UUID) (*models.TitanSpawn, error) {
	return f.spawn, nil
}

func (f *fakeStore) ReconcileCapture(ctx context.Context, titanID, playerID uuid.UUID, rewardBaseUnits int64, at time.Time) (int, bool, error) {
	if f.confirmOK {
		f.incremented = true
	}
	return f.confirmRemaining, f.confirmOK, nil
}

type fakeCache struct {
	claimed map[string]bool
}

func (f *fakeCache) ClaimCaptureToken(ctx context.Context, signature string, ttl time.Duration) (bool, error) {
	if f.claimed == nil {
		f.claimed = map[string]bool{}
	}
	if f.claimed[signature] {
		return false, nil
	}
	f.claimed[signature] = true
	return true, nil
}

type fakeChain struct {
	submitSig      string
	distributedTo  string
	distributedAmt int64
	distributeErr  error
}

func (f *fakeChain) BuildRecordCaptureTx(ctx context.Context, playerWallet string, titanID, captureID uint64, lat, lng float64, threatClass, elementType uint8, signedAtUnix int64) (*models.UnsignedTransaction, error) {
	return &models.UnsignedTransaction{SerializedTxBase64: "tx", OnChainTitanID: titanID}, nil
}

func (f *fakeChain) SubmitSignedTx(ctx context.Context, serializedTxBase64, playerSignatureBase64, playerWallet string) (string, error) {
	return f.submitSig, nil
}

func (f *fakeChain) DistributeReward(ctx context.Context, playerWallet string, rewardType models.RewardType, amountBaseUnits int64) (string, error) {
	f.distributedTo = playerWallet
	f.distributedAmt = amountBaseUnits
	if f.distributeErr != nil {
		return "", f.distributeErr
	}
	return "reward-sig", nil
}

func testConfig() Config {
	return Config{RadiusMeters: 50, CooldownSeconds: 300, TokenSecret: "s3cret", TokenExpiry: 5 * time.Minute}
}

func TestAuthorizeSucceedsWithinRadius(t *testing.T) {
	playerID, titanID := uuid.New(), uuid.New()
	store := &fakeStore{
		player: &models.Player{ID: playerID, WalletAddress: "wallet1"},
		spawn:  &models.TitanSpawn{ID: titanID, Lat: 35.0, Lng: 139.0, ExpiresAt: time.Now().Add(time.Hour), MaxCapturesN: 1},
	}
	b := New(store, &fakeCache{}, &fakeChain{}, broadcast.NewHub(zap.NewNop()), testConfig(), zap.NewNop())

	auth, err := b.Authorize(context.Background(), playerID, titanID, 35.0, 139.0)
	require.NoError(t, err)
	assert.True(t, auth.Authorized)
	assert.NotEmpty(t, auth.Token)
}

func TestAuthorizeFailsTooFar(t *testing.T) {
	playerID, titanID := uuid.New(), uuid.New()
	store := &fakeStore{
		player: &models.Player{ID: playerID, WalletAddress: "wallet1"},
		spawn:  &models.TitanSpawn{ID: titanID, Lat: 35.0, Lng: 139.0, ExpiresAt: time.Now().Add(time.Hour), MaxCapturesN: 1},
	}
	b := New(store, &fakeCache{}, &fakeChain{}, broadcast.NewHub(zap.NewNop()), testConfig(), zap.NewNop())

	_, err := b.Authorize(context.Background(), playerID, titanID, 36.0, 140.0)
	require.Error(t, err)
}

func TestAuthorizeFailsDuringCooldown(t *testing.T) {
	playerID, titanID := uuid.New(), uuid.New()
	last := time.Now().Add(-10 * time.Second)
	store := &fakeStore{
		player: &models.Player{ID: playerID, WalletAddress: "wallet1", LastCaptureAt: &last},
		spawn:  &models.TitanSpawn{ID: titanID, Lat: 35.0, Lng: 139.0, ExpiresAt: time.Now().Add(time.Hour), MaxCapturesN: 1},
	}
	b := New(store, &fakeCache{}, &fakeChain{}, broadcast.NewHub(zap.NewNop()), testConfig(), zap.NewNop())

	_, err := b.Authorize(context.Background(), playerID, titanID, 35.0, 139.0)
	require.Error(t, err)
}

func TestSubmitRejectsReplayedToken(t *testing.T) {
	store := &fakeStore{}
	cache := &fakeCache{}
	chain := &fakeChain{submitSig: "sig123"}
	b := New(store, cache, chain, broadcast.NewHub(zap.NewNop()), testConfig(), zap.NewNop())

	submission := models.SignedSubmission{SerializedTxBase64: "tx", PlayerSignature: "sig", PlayerWallet: "wallet1", TitanID: uuid.New()}

	sig, err := b.Submit(context.Background(), submission, "tok-1")
	require.NoError(t, err)
	assert.Equal(t, "sig123", sig)

	_, err = b.Submit(context.Background(), submission, "tok-1")
	require.Error(t, err)
}

func TestReconcileAppliesRewardAndBroadcasts(t *testing.T) {
	playerID, titanID := uuid.New(), uuid.New()
	store := &fakeStore{
		player:           &models.Player{ID: playerID, WalletAddress: "wallet1"},
		spawn:            &models.TitanSpawn{ID: titanID, Geohash: "9q8yy", ThreatClass: models.ThreatWarbringer, MaxCapturesN: 3},
		confirmOK:        true,
		confirmRemaining: 2,
	}
	chain := &fakeChain{}
	b := New(store, &fakeCache{}, chain, broadcast.NewHub(zap.NewNop()), testConfig(), zap.NewNop())

	result, err := b.Reconcile(context.Background(), playerID, titanID, "sig123")
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 2, result.RemainingCaptures)
	assert.Equal(t, models.ThreatWarbringer.CaptureReward(), result.RewardBaseUnits)
	assert.True(t, store.incremented)
	assert.Equal(t, "wallet1", chain.distributedTo)
	assert.Equal(t, models.ThreatWarbringer.CaptureReward(), chain.distributedAmt)
}

func TestReconcileReportsNoRemainingCaptures(t *testing.T) {
	playerID, titanID := uuid.New(), uuid.New()
	store := &fakeStore{
		player:    &models.Player{ID: playerID, WalletAddress: "wallet1"},
		spawn:     &models.TitanSpawn{ID: titanID, Geohash: "9q8yy", ThreatClass: models.ThreatPioneer, MaxCapturesN: 1},
		confirmOK: false,
	}
	b := New(store, &fakeCache{}, &fakeChain{}, broadcast.NewHub(zap.NewNop()), testConfig(), zap.NewNop())

	result, err := b.Reconcile(context.Background(), playerID, titanID, "sig123")
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.False(t, store.incremented)
}

func TestReconcileSurvivesChainRewardFailure(t *testing.T) {
	playerID, titanID := uuid.New(), uuid.New()
	store := &fakeStore{
		player:           &models.Player{ID: playerID, WalletAddress: "wallet1"},
		spawn:            &models.TitanSpawn{ID: titanID, Geohash: "9q8yy", ThreatClass: models.ThreatPioneer, MaxCapturesN: 3},
		confirmOK:        true,
		confirmRemaining: 1,
	}
	chain := &fakeChain{distributeErr: assert.AnError}
	b := New(store, &fakeCache{}, chain, broadcast.NewHub(zap.NewNop()), testConfig(), zap.NewNop())

	result, err := b.Reconcile(context.Background(), playerID, titanID, "sig123")
	require.NoError(t, err)
	assert.True(t, result.Success)
}
