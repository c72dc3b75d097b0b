package chain

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/titanbreach/engine/pkg/models"
)

func newTestBroker(t *testing.T, rpcHandler http.HandlerFunc) (*Broker, *btcec.PrivateKey) {
	t.Helper()
	srv := httptest.NewServer(rpcHandler)
	t.Cleanup(srv.Close)

	backendKey, err := btcec.NewPrivateKey()
	require.NoError(t, err)

	broker := NewBroker(NewRPCClient(srv.URL), backendKey, ProgramID("titanProgram"), ProgramID("gameProgram"), "breachMint", zap.NewNop())
	return broker, backendKey
}

func fakeRPCHandler(t *testing.T, submitted *string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		w.Header().Set("Content-Type", "application/json")
		switch req.Method {
		case "getRecentBlockhash":
			_, _ = w.Write([]byte(`{"result":{"blockhash":"testblockhash"}}`))
		case "sendTransaction":
			if submitted != nil {
				params, _ := req.Params.([]any)
				if len(params) > 0 {
					*submitted, _ = params[0].(string)
				}
			}
			_, _ = w.Write([]byte(`{"result":{"signature":"sig123"}}`))
		default:
			_, _ = w.Write([]byte(`{"result":null}`))
		}
	}
}

func TestBuildMintTxProducesZeroedSignatureSlots(t *testing.T) {
	broker, _ := newTestBroker(t, fakeRPCHandler(t, nil))

	playerKey, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	playerWallet := base58.Encode(schnorrXOnly(playerKey))

	stats := models.Stats{Power: 10, Fortitude: 20, Velocity: 30, Resonance: 40, HP: 100}
	unsigned, err := broker.BuildMintTx(t.Context(), playerWallet, 1, 1001, 2, 0,
		stats, [6]byte{1, 2, 3, 4, 5, 6}, 35.6, 139.6)
	require.NoError(t, err)
	require.NotEmpty(t, unsigned.MessageBytesBase64)
	require.Equal(t, "testblockhash", unsigned.RecentBlockhash)
	require.Contains(t, unsigned.DerivedAddresses, "titan")

	raw, err := base64.StdEncoding.DecodeString(unsigned.SerializedTxBase64)
	require.NoError(t, err)
	tx, err := deserializeTransaction(raw)
	require.NoError(t, err)
	require.Len(t, tx.Signatures, 2)
	for _, sig := range tx.Signatures {
		require.Equal(t, [64]byte{}, sig)
	}
}

func TestSubmitSignedTxVerifiesAndBroadcasts(t *testing.T) {
	var submitted string
	broker, _ := newTestBroker(t, fakeRPCHandler(t, &submitted))

	playerKey, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	playerWallet := base58.Encode(schnorrXOnly(playerKey))

	stats := models.Stats{Power: 10, Fortitude: 20, Velocity: 30, Resonance: 40, HP: 100}
	unsigned, err := broker.BuildMintTx(t.Context(), playerWallet, 7, 1001, 2, 0, stats, [6]byte{}, 1, 1)
	require.NoError(t, err)

	msgBytes, err := base64.StdEncoding.DecodeString(unsigned.MessageBytesBase64)
	require.NoError(t, err)
	hash := sha256.Sum256(msgBytes)
	sig, err := schnorr.Sign(playerKey, hash[:])
	require.NoError(t, err)

	txSig, err := broker.SubmitSignedTx(t.Context(), unsigned.SerializedTxBase64,
		base64.StdEncoding.EncodeToString(sig.Serialize()), playerWallet)
	require.NoError(t, err)
	require.Equal(t, "sig123", txSig)
	require.NotEmpty(t, submitted)
}

func TestSubmitSignedTxRejectsBadSignature(t *testing.T) {
	broker, _ := newTestBroker(t, fakeRPCHandler(t, nil))

	playerKey, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	playerWallet := base58.Encode(schnorrXOnly(playerKey))

	stats := models.Stats{Power: 1, Fortitude: 1, Velocity: 1, Resonance: 1, HP: 100}
	unsigned, err := broker.BuildMintTx(t.Context(), playerWallet, 9, 1, 1, 0, stats, [6]byte{}, 0, 0)
	require.NoError(t, err)

	_, err = broker.SubmitSignedTx(t.Context(), unsigned.SerializedTxBase64,
		base64.StdEncoding.EncodeToString(make([]byte, 64)), playerWallet)
	require.Error(t, err)
}

func schnorrXOnly(priv *btcec.PrivateKey) []byte {
	return priv.PubKey().SerializeCompressed()[1:]
}

func TestMintTitanForIsSingleSignerAndSubmits(t *testing.T) {
	var submitted string
	broker, _ := newTestBroker(t, fakeRPCHandler(t, &submitted))

	playerKey, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	playerWallet := base58.Encode(schnorrXOnly(playerKey))

	stats := models.Stats{Power: 5, Fortitude: 5, Velocity: 5, Resonance: 5, HP: 50}
	sig, err := broker.MintTitanFor(t.Context(), playerWallet, 42, 1001, 2, 0, stats, [6]byte{}, 1, 1)
	require.NoError(t, err)
	require.Equal(t, "sig123", sig)
	require.NotEmpty(t, submitted)
}

func TestDistributeRewardIsServerSignedOnly(t *testing.T) {
	var submitted string
	broker, _ := newTestBroker(t, fakeRPCHandler(t, &submitted))

	playerKey, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	playerWallet := base58.Encode(schnorrXOnly(playerKey))

	sig, err := broker.DistributeReward(t.Context(), playerWallet, models.RewardBattleWin, 500)
	require.NoError(t, err)
	require.Equal(t, "sig123", sig)
	require.NotEmpty(t, submitted)
}

func TestTransferBreachIsServerSignedOnly(t *testing.T) {
	var submitted string
	broker, _ := newTestBroker(t, fakeRPCHandler(t, &submitted))

	fromKey, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	fromWallet := base58.Encode(schnorrXOnly(fromKey))
	toKey, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	toWallet := base58.Encode(schnorrXOnly(toKey))

	sig, err := broker.TransferBreach(t.Context(), fromWallet, toWallet, 250)
	require.NoError(t, err)
	require.Equal(t, "sig123", sig)
	require.NotEmpty(t, submitted)
}

func TestSubmitUserSignedTxVerifiesSoleSignerAndBroadcasts(t *testing.T) {
	var submitted string
	broker, _ := newTestBroker(t, fakeRPCHandler(t, &submitted))

	playerKey, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	playerWallet := base58.Encode(schnorrXOnly(playerKey))

	tx := Transaction{
		AccountKeys:     []string{playerWallet, "destWallet"},
		RecentBlockhash: "testblockhash",
		Instructions:    []Instruction{{ProgramIDIndex: 1, Accounts: []uint8{0, 1}, Data: []byte{1}}},
		Signatures:      make([][64]byte, 1),
	}
	hash := tx.messageHash()
	sig, err := schnorr.Sign(playerKey, hash[:])
	require.NoError(t, err)

	txSig, err := broker.SubmitUserSignedTx(t.Context(), tx.serializeBase64(),
		base64.StdEncoding.EncodeToString(sig.Serialize()), playerWallet)
	require.NoError(t, err)
	require.Equal(t, "sig123", txSig)
	require.NotEmpty(t, submitted)
}

func TestSubmitUserSignedTxRejectsMismatchedFeePayer(t *testing.T) {
	broker, _ := newTestBroker(t, fakeRPCHandler(t, nil))

	playerKey, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	playerWallet := base58.Encode(schnorrXOnly(playerKey))

	tx := Transaction{
		AccountKeys:     []string{"someoneElse"},
		RecentBlockhash: "testblockhash",
		Instructions:    []Instruction{{ProgramIDIndex: 1, Accounts: []uint8{0}, Data: []byte{1}}},
		Signatures:      make([][64]byte, 1),
	}

	_, err = broker.SubmitUserSignedTx(t.Context(), tx.serializeBase64(),
		base64.StdEncoding.EncodeToString(make([]byte, 64)), playerWallet)
	require.Error(t, err)
}
