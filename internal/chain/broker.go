package chain

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/titanbreach/engine/internal/apperr"
	"github.com/titanbreach/engine/pkg/models"
)

// Broker is C5, the only component that speaks the external chain's wire
// protocol. It holds the server's own signing key (the capture/co-signer
// authority) and the two deployed program IDs.
type Broker struct {
	rpc          *RPCClient
	backendKey   *btcec.PrivateKey
	backendWallet string // base58 x-only pubkey, this broker's own co-signer address
	titanProgram ProgramID
	gameProgram  ProgramID
	breachMint   string
	log          *zap.Logger
}

// NewBroker wires a transport and backend keypair into a broker instance.
func NewBroker(rpc *RPCClient, backendKey *btcec.PrivateKey, titanProgram, gameProgram ProgramID, breachMint string, log *zap.Logger) *Broker {
	pub := backendKey.PubKey().SerializeCompressed()[1:] // drop sign-prefix byte, keep x-only 32 bytes
	return &Broker{
		rpc:           rpc,
		backendKey:    backendKey,
		backendWallet: base58.Encode(pub),
		titanProgram:  titanProgram,
		gameProgram:   gameProgram,
		breachMint:    breachMint,
		log:           log,
	}
}

// ParseWalletPubKey recovers a player's x-only schnorr public key from their
// base58 wallet address text.
func ParseWalletPubKey(wallet string) (*btcec.PublicKey, error) {
	raw, err := base58.Decode(wallet)
	if err != nil {
		return nil, errors.Wrap(err, "decode wallet address")
	}
	pk, err := schnorr.ParsePubKey(raw)
	if err != nil {
		return nil, errors.Wrap(err, "parse wallet public key")
	}
	return pk, nil
}

func microDeg(f float64) int32 { return int32(f * 1e6) }

// buildTwoParty assembles a transaction with the player as fee-payer (index
// 0) and the backend as co-signer (index 1), both signature slots zeroed,
// and returns the Stage-B response shape.
func (b *Broker) buildTwoParty(ctx context.Context, playerWallet string, extraAccounts []string, ix Instruction, pdas map[string]string, onChainID uint64) (*models.UnsignedTransaction, error) {
	blockhash, err := b.rpc.GetRecentBlockhash(ctx)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeServiceUnavailable, "fetch recent blockhash", err)
	}

	keys := append([]string{playerWallet, b.backendWallet}, extraAccounts...)
	tx := Transaction{
		AccountKeys:     keys,
		RecentBlockhash: blockhash,
		Instructions:    []Instruction{ix},
		Signatures:      make([][64]byte, 2), // slot 0 player, slot 1 backend
	}

	return &models.UnsignedTransaction{
		SerializedTxBase64: tx.serializeBase64(),
		MessageBytesBase64: tx.messageBase64(),
		RecentBlockhash:    blockhash,
		DerivedAddresses:   pdas,
		OnChainTitanID:     onChainID,
	}, nil
}

// BuildMintTx is Stage B for a capture: packs TitanMintData and derives the
// config/player/titan PDAs.
func (b *Broker) BuildMintTx(ctx context.Context, playerWallet string, titanID uint64, speciesID uint16, threatClass, elementType uint8, stats models.Stats, genes [6]byte, lat, lng float64) (*models.UnsignedTransaction, error) {
	data := TitanMintData{
		SpeciesID:   speciesID,
		ThreatClass: threatClass,
		ElementType: elementType,
		Power:       clampByte(stats.Power),
		Fortitude:   clampByte(stats.Fortitude),
		Velocity:    clampByte(stats.Velocity),
		Resonance:   clampByte(stats.Resonance),
		Genes:       genes,
		CaptureLat:  microDeg(lat),
		CaptureLng:  microDeg(lng),
		Nonce:       titanID,
	}

	pdas := map[string]string{
		"config": ConfigPDA(b.titanProgram),
		"player": PlayerPDA(b.titanProgram, playerWallet),
		"titan":  TitanPDA(b.titanProgram, titanID),
	}
	ix := Instruction{ProgramIDIndex: 2, Accounts: []uint8{0, 1, 2, 3, 4}, Data: data.Encode()}
	extra := []string{pdas["config"], pdas["player"], pdas["titan"], string(b.titanProgram)}
	return b.buildTwoParty(ctx, playerWallet, extra, ix, pdas, titanID)
}

// BuildRecordCaptureTx is Stage B's game-logic counterpart, acknowledging
// the capture for off-chain/on-chain reconciliation bookkeeping.
func (b *Broker) BuildRecordCaptureTx(ctx context.Context, playerWallet string, titanID, captureID uint64, lat, lng float64, threatClass, elementType uint8, signedAtUnix int64) (*models.UnsignedTransaction, error) {
	data := RecordCaptureData{
		TitanID:            titanID,
		LocationLat:        microDeg(lat),
		LocationLng:        microDeg(lng),
		ThreatClass:        threatClass,
		ElementType:        elementType,
		SignatureTimestamp: signedAtUnix,
	}
	pdas := map[string]string{
		"capture_record": CaptureRecordPDA(b.gameProgram, captureID),
		"game_config":    GameConfigPDA(b.gameProgram),
	}
	ix := Instruction{ProgramIDIndex: 2, Accounts: []uint8{0, 1, 2, 3}, Data: data.Encode()}
	extra := []string{pdas["capture_record"], pdas["game_config"], string(b.gameProgram)}
	return b.buildTwoParty(ctx, playerWallet, extra, ix, pdas, titanID)
}

// BuildRecordBattleTx settles a finished PvP match on-chain.
func (b *Broker) BuildRecordBattleTx(ctx context.Context, playerWallet string, titanAID, titanBID, battleID uint64, winner uint8, expA, expB uint32, lat, lng float64) (*models.UnsignedTransaction, error) {
	data := RecordBattleData{
		TitanAID: titanAID, TitanBID: titanBID, Winner: winner,
		ExpGainedA: expA, ExpGainedB: expB,
		LocationLat: microDeg(lat), LocationLng: microDeg(lng),
	}
	pdas := map[string]string{"battle_record": BattleRecordPDA(b.gameProgram, battleID)}
	ix := Instruction{ProgramIDIndex: 2, Accounts: []uint8{0, 1, 2}, Data: data.Encode()}
	extra := []string{pdas["battle_record"], string(b.gameProgram)}
	return b.buildTwoParty(ctx, playerWallet, extra, ix, pdas, titanAID)
}

// BuildAddExperienceTx grants experience to an owned Titan on-chain.
func (b *Broker) BuildAddExperienceTx(ctx context.Context, playerWallet string, titanID uint64, amount uint32) (*models.UnsignedTransaction, error) {
	data := AddExperienceData{TitanID: titanID, ExpAmount: amount}
	ix := Instruction{ProgramIDIndex: 1, Accounts: []uint8{0, 1}, Data: data.Encode()}
	return b.buildTwoParty(ctx, playerWallet, nil, ix, nil, titanID)
}

// BuildLevelUpTx requests the titan program's level-up path.
func (b *Broker) BuildLevelUpTx(ctx context.Context, playerWallet string, titanID uint64) (*models.UnsignedTransaction, error) {
	ix := Instruction{ProgramIDIndex: 1, Accounts: []uint8{0, 1}, Data: []byte{TitanLevelUp}}
	return b.buildTwoParty(ctx, playerWallet, nil, ix, nil, titanID)
}

// BuildEvolveTx upgrades a Titan's species.
func (b *Broker) BuildEvolveTx(ctx context.Context, playerWallet string, titanID uint64, newSpeciesID uint16) (*models.UnsignedTransaction, error) {
	data := EvolveData{NewSpeciesID: newSpeciesID}
	ix := Instruction{ProgramIDIndex: 1, Accounts: []uint8{0, 1}, Data: data.Encode()}
	return b.buildTwoParty(ctx, playerWallet, nil, ix, nil, titanID)
}

// BuildFuseTx combines two owned Titans into one.
func (b *Broker) BuildFuseTx(ctx context.Context, playerWallet string, titanAID, titanBID uint64) (*models.UnsignedTransaction, error) {
	ix := Instruction{ProgramIDIndex: 2, Accounts: []uint8{0, 1, 2}, Data: []byte{TitanFuse}}
	extra := []string{fmt.Sprintf("titan:%d", titanBID)}
	return b.buildTwoParty(ctx, playerWallet, extra, ix, nil, titanAID)
}

// BuildTransferTx moves a Titan to a new owning wallet.
func (b *Broker) BuildTransferTx(ctx context.Context, playerWallet, toWallet string, titanID uint64) (*models.UnsignedTransaction, error) {
	ix := Instruction{ProgramIDIndex: 2, Accounts: []uint8{0, 1, 2}, Data: []byte{TitanTransfer}}
	return b.buildTwoParty(ctx, playerWallet, []string{toWallet}, ix, nil, titanID)
}

// buildSingleSigner assembles a transaction with the backend as both
// fee-payer and sole required signer (account index 0), for operations the
// spec describes as server-signed with no player counter-signature.
func (b *Broker) buildSingleSigner(ctx context.Context, extraAccounts []string, ix Instruction) (*Transaction, error) {
	blockhash, err := b.rpc.GetRecentBlockhash(ctx)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeServiceUnavailable, "fetch recent blockhash", err)
	}
	return &Transaction{
		AccountKeys:     append([]string{b.backendWallet}, extraAccounts...),
		RecentBlockhash: blockhash,
		Instructions:    []Instruction{ix},
		Signatures:      make([][64]byte, 1), // slot 0 backend, the only signer
	}, nil
}

// signAndSubmitSingleSigner fills the backend's own signature slot and
// broadcasts, for transactions buildSingleSigner produced.
func (b *Broker) signAndSubmitSingleSigner(ctx context.Context, tx *Transaction) (string, error) {
	hash := tx.messageHash()
	backendSig, err := schnorr.Sign(b.backendKey, hash[:])
	if err != nil {
		return "", apperr.Wrap(apperr.CodeInternalError, "sign transaction", err)
	}
	copy(tx.Signatures[0][:], backendSig.Serialize())

	sig, err := b.rpc.SubmitTransaction(ctx, base64.StdEncoding.EncodeToString(tx.serialize()))
	if err != nil {
		return "", apperr.Wrap(apperr.CodeServiceUnavailable, "broadcast transaction", err)
	}
	return sig, nil
}

// TransferBreach is transfer_breach: a server-signed BREACH token transfer
// built as one transfer instruction. It does not create the recipient's
// associated token account when that account is missing.
// Unlike the player-owned Titan transfer above, the player is not a
// required signer here — the backend alone pays and signs.
func (b *Broker) TransferBreach(ctx context.Context, fromWallet, toWallet string, amount uint64) (string, error) {
	ix := Instruction{ProgramIDIndex: 2, Accounts: []uint8{0, 1, 2}, Data: U64LE(amount)}
	tx, err := b.buildSingleSigner(ctx, []string{fromWallet, toWallet, b.breachMint}, ix)
	if err != nil {
		return "", err
	}
	sig, err := b.signAndSubmitSingleSigner(ctx, tx)
	if err != nil {
		return "", err
	}
	b.log.Info("transferred breach", zap.String("signature", sig), zap.String("from", fromWallet), zap.String("to", toWallet))
	return sig, nil
}

// DistributeReward is distribute_reward: a server-signed BREACH mint/
// transfer to a player, multiplied per rewardType (×1/×2/×5 for
// Capture/BattleWin/DailyBonus). No player counter-signature is required
// or verified — the backend is the sole signer.
func (b *Broker) DistributeReward(ctx context.Context, playerWallet string, rewardType models.RewardType, amountBaseUnits int64) (string, error) {
	var rt RewardType
	switch rewardType {
	case models.RewardCapture:
		rt = RewardCapture
	case models.RewardBattleWin:
		rt = RewardBattleWin
	default:
		rt = RewardDailyBonus
	}
	data := DistributeRewardData{Type: rt, Amount: uint64(amountBaseUnits)}
	ix := Instruction{ProgramIDIndex: 1, Accounts: []uint8{0, 1}, Data: data.Encode()}
	tx, err := b.buildSingleSigner(ctx, []string{playerWallet, b.breachMint}, ix)
	if err != nil {
		return "", err
	}
	sig, err := b.signAndSubmitSingleSigner(ctx, tx)
	if err != nil {
		return "", err
	}
	b.log.Info("distributed reward", zap.String("signature", sig), zap.String("wallet", playerWallet), zap.Uint8("reward_type", uint8(rewardType)))
	return sig, nil
}

// MintTitanFor is mint_titan_for: a single-signer, server-paid legacy path
// used only in tests and fixture seeding, where the backend mints a Titan
// directly to a player's wallet without the two-stage build/client-sign/
// submit round trip a live capture goes through.
func (b *Broker) MintTitanFor(ctx context.Context, playerWallet string, titanID uint64, speciesID uint16, threatClass, elementType uint8, stats models.Stats, genes [6]byte, lat, lng float64) (string, error) {
	data := TitanMintData{
		SpeciesID:   speciesID,
		ThreatClass: threatClass,
		ElementType: elementType,
		Power:       clampByte(stats.Power),
		Fortitude:   clampByte(stats.Fortitude),
		Velocity:    clampByte(stats.Velocity),
		Resonance:   clampByte(stats.Resonance),
		Genes:       genes,
		CaptureLat:  microDeg(lat),
		CaptureLng:  microDeg(lng),
		Nonce:       titanID,
	}

	pdas := map[string]string{
		"config": ConfigPDA(b.titanProgram),
		"player": PlayerPDA(b.titanProgram, playerWallet),
		"titan":  TitanPDA(b.titanProgram, titanID),
	}
	ix := Instruction{ProgramIDIndex: 2, Accounts: []uint8{0, 1, 2, 3, 4}, Data: data.Encode()}
	extra := []string{playerWallet, pdas["config"], pdas["player"], pdas["titan"], string(b.titanProgram)}

	tx, err := b.buildSingleSigner(ctx, extra, ix)
	if err != nil {
		return "", err
	}
	sig, err := b.signAndSubmitSingleSigner(ctx, tx)
	if err != nil {
		return "", err
	}
	b.log.Info("minted titan server-paid", zap.String("signature", sig), zap.String("wallet", playerWallet))
	return sig, nil
}

// VerifyPlayerSignature checks a player's detached signature over message
// bytes they were asked to sign in Stage B (spec §6.3 step 4).
func VerifyPlayerSignature(playerWallet string, messageBytes, signature []byte) error {
	pubKey, err := ParseWalletPubKey(playerWallet)
	if err != nil {
		return apperr.New(apperr.CodeInvalidSignature, "invalid wallet address")
	}
	sig, err := schnorr.ParseSignature(signature)
	if err != nil {
		return apperr.New(apperr.CodeInvalidSignature, "malformed signature")
	}
	hash := sha256.Sum256(messageBytes)
	if !sig.Verify(hash[:], pubKey) {
		return apperr.New(apperr.CodeInvalidSignature, "signature does not match message")
	}
	return nil
}

// SubmitSignedTx is Stage C's dual-signer path: verify the player's
// signature, fill both signature slots with the player's own and the
// backend's co-signature, broadcast, and return the signature the RPC node
// reports. It does not poll for or wait on confirmation: a nil error means
// the node accepted the transaction, not that the chain confirmed it.
// This is submit_dual_signed_tx's real implementation, for the Game-Logic
// instruction family built via buildTwoParty.
func (b *Broker) SubmitSignedTx(ctx context.Context, serializedTxBase64 string, playerSignatureBase64 string, playerWallet string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(serializedTxBase64)
	if err != nil {
		return "", apperr.New(apperr.CodeBadRequest, "malformed serialized transaction")
	}
	tx, err := deserializeTransaction(raw)
	if err != nil {
		return "", apperr.New(apperr.CodeBadRequest, "could not parse transaction")
	}
	if len(tx.AccountKeys) == 0 || tx.AccountKeys[0] != playerWallet {
		return "", apperr.New(apperr.CodeUnauthorized, "fee-payer does not match submitting wallet")
	}

	playerSig, err := base64.StdEncoding.DecodeString(playerSignatureBase64)
	if err != nil {
		return "", apperr.New(apperr.CodeInvalidSignature, "malformed player signature")
	}
	if err := VerifyPlayerSignature(playerWallet, tx.message(), playerSig); err != nil {
		return "", err
	}

	hash := tx.messageHash()
	backendSig, err := schnorr.Sign(b.backendKey, hash[:])
	if err != nil {
		return "", apperr.Wrap(apperr.CodeInternalError, "sign transaction", err)
	}

	copy(tx.Signatures[0][:], playerSig)
	copy(tx.Signatures[1][:], backendSig.Serialize())

	sig, err := b.rpc.SubmitTransaction(ctx, base64.StdEncoding.EncodeToString(tx.serialize()))
	if err != nil {
		return "", apperr.Wrap(apperr.CodeServiceUnavailable, "broadcast transaction", err)
	}
	b.log.Info("submitted chain transaction", zap.String("signature", sig), zap.String("wallet", playerWallet))
	return sig, nil
}

// SubmitDualSignedTx is the Game-Logic alias the spec names separately; it
// shares Stage C's verify-fill-broadcast sequence.
func (b *Broker) SubmitDualSignedTx(ctx context.Context, serializedTxBase64, playerSignatureBase64, playerWallet string) (string, error) {
	return b.SubmitSignedTx(ctx, serializedTxBase64, playerSignatureBase64, playerWallet)
}

// SubmitUserSignedTx is submit_user_signed_tx: the single-signer path where
// the player is the only required signer and fee-payer. Unlike
// SubmitSignedTx, the backend never adds a co-signature — it verifies the
// player's signature against the transaction the player built and paid
// for, then relays it to the chain unchanged.
func (b *Broker) SubmitUserSignedTx(ctx context.Context, serializedTxBase64, playerSignatureBase64, playerWallet string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(serializedTxBase64)
	if err != nil {
		return "", apperr.New(apperr.CodeBadRequest, "malformed serialized transaction")
	}
	tx, err := deserializeTransaction(raw)
	if err != nil {
		return "", apperr.New(apperr.CodeBadRequest, "could not parse transaction")
	}
	if len(tx.AccountKeys) == 0 || tx.AccountKeys[0] != playerWallet {
		return "", apperr.New(apperr.CodeUnauthorized, "fee-payer does not match submitting wallet")
	}
	if len(tx.Signatures) != 1 {
		return "", apperr.New(apperr.CodeBadRequest, "single-signer submission must carry exactly one signature slot")
	}

	playerSig, err := base64.StdEncoding.DecodeString(playerSignatureBase64)
	if err != nil {
		return "", apperr.New(apperr.CodeInvalidSignature, "malformed player signature")
	}
	if err := VerifyPlayerSignature(playerWallet, tx.message(), playerSig); err != nil {
		return "", err
	}
	copy(tx.Signatures[0][:], playerSig)

	sig, err := b.rpc.SubmitTransaction(ctx, base64.StdEncoding.EncodeToString(tx.serialize()))
	if err != nil {
		return "", apperr.Wrap(apperr.CodeServiceUnavailable, "broadcast transaction", err)
	}
	b.log.Info("submitted user-signed transaction", zap.String("signature", sig), zap.String("wallet", playerWallet))
	return sig, nil
}

// GetBalance returns a wallet's native balance in base units.
func (b *Broker) GetBalance(ctx context.Context, wallet string) (uint64, error) {
	bal, err := b.rpc.GetBalance(ctx, wallet)
	if err != nil {
		return 0, apperr.Wrap(apperr.CodeServiceUnavailable, "fetch balance", err)
	}
	return bal, nil
}

// GetBreachBalance returns a wallet's BREACH token balance in base units.
func (b *Broker) GetBreachBalance(ctx context.Context, wallet string) (uint64, error) {
	tokenAccount := DerivePDA(ProgramID(b.breachMint), []byte("token_account"), []byte(wallet))
	bal, err := b.rpc.GetTokenBalance(ctx, tokenAccount)
	if err != nil {
		return 0, apperr.Wrap(apperr.CodeServiceUnavailable, "fetch breach balance", err)
	}
	return bal, nil
}

// GetTxStatus polls confirmation state for a previously broadcast signature.
func (b *Broker) GetTxStatus(ctx context.Context, signature string) (models.TxStatus, error) {
	status, err := b.rpc.TxStatus(ctx, signature)
	if err != nil {
		return models.TxStatusUnknown, apperr.Wrap(apperr.CodeServiceUnavailable, "poll tx status", err)
	}
	switch status {
	case "confirmed", "finalized":
		return models.TxStatusConfirmed, nil
	case "failed":
		return models.TxStatusFailed, nil
	case "pending", "processed":
		return models.TxStatusPending, nil
	default:
		return models.TxStatusUnknown, nil
	}
}

func clampByte(v int) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
