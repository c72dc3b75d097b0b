// Package chain is the sole component that speaks the wire protocol of the
// external programmable chain (spec §4.5). Nothing outside this package
// holds a chain RPC connection or derives a program address.
package chain

import (
	"crypto/sha256"
	"encoding/binary"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/mr-tron/base58"
)

// ProgramID identifies a deployed on-chain program by its address text.
type ProgramID string

// DerivePDA reproduces the server side of program-derived address derivation
// (spec §4.5): hash160(sha256(seeds ∥ program_id)), base58-encoded. hash160
// (RIPEMD160 over SHA256) is the same two-stage digest btcutil/btcd already
// carry for address derivation, reused here for an unrelated address scheme
// on a different chain because the byte-level primitive is identical.
func DerivePDA(programID ProgramID, seeds ...[]byte) string {
	h := sha256.New()
	for _, seed := range seeds {
		h.Write(seed)
	}
	h.Write([]byte(programID))
	preimage := h.Sum(nil)
	return base58.Encode(btcutil.Hash160(preimage))
}

// U64LE returns the little-endian bytes of v, the seed encoding the spec
// uses for id-keyed PDAs ("titan", titan_id_le_bytes).
func U64LE(v uint64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, v)
	return b
}

// ConfigPDA derives the titan program's singleton config address.
func ConfigPDA(titanProgram ProgramID) string {
	return DerivePDA(titanProgram, []byte("config"))
}

// PlayerPDA derives a player's titan-program account address from their
// wallet address text.
func PlayerPDA(titanProgram ProgramID, wallet string) string {
	return DerivePDA(titanProgram, []byte("player"), []byte(wallet))
}

// TitanPDA derives a minted Titan's on-chain account address.
func TitanPDA(titanProgram ProgramID, titanID uint64) string {
	return DerivePDA(titanProgram, []byte("titan"), U64LE(titanID))
}

// CaptureRecordPDA derives the game-logic program's capture record address.
func CaptureRecordPDA(gameProgram ProgramID, captureID uint64) string {
	return DerivePDA(gameProgram, []byte("capture"), U64LE(captureID))
}

// BattleRecordPDA derives the game-logic program's battle record address.
func BattleRecordPDA(gameProgram ProgramID, battleID uint64) string {
	return DerivePDA(gameProgram, []byte("battle"), U64LE(battleID))
}

// GameConfigPDA derives the game-logic program's singleton config address.
func GameConfigPDA(gameProgram ProgramID) string {
	return DerivePDA(gameProgram, []byte("game_config"))
}
