package chain

import (
	"bytes"
	"encoding/binary"
)

// Instruction discriminators (spec §6.3).
const (
	TitanInitialize  byte = 0
	TitanMint        byte = 1
	TitanLevelUp     byte = 2
	TitanEvolve      byte = 3
	TitanFuse        byte = 4
	TitanTransfer    byte = 5
	TitanUpdateCfg   byte = 6
	TitanSetPaused   byte = 7

	GameInitialize       byte = 0
	GameRecordCapture    byte = 1
	GameRecordBattle     byte = 2
	GameAddExperience    byte = 3
	GameDistributeReward byte = 4
	GameUpdateConfig     byte = 5
	GameSetPaused        byte = 6
	GameForceUpdateAuth  byte = 7
)

// TitanMintData is the 94-byte packed, little-endian payload for the mint
// instruction (spec §6.3).
type TitanMintData struct {
	SpeciesID   uint16
	ThreatClass uint8
	ElementType uint8
	Power       uint8
	Fortitude   uint8
	Velocity    uint8
	Resonance   uint8
	Genes       [6]byte
	CaptureLat  int32
	CaptureLng  int32
	Nonce       uint64
	Signature   [64]byte
}

// Encode packs the struct and prepends the instruction discriminator.
func (d TitanMintData) Encode() []byte {
	buf := new(bytes.Buffer)
	buf.WriteByte(TitanMint)
	_ = binary.Write(buf, binary.LittleEndian, d.SpeciesID)
	buf.WriteByte(d.ThreatClass)
	buf.WriteByte(d.ElementType)
	buf.WriteByte(d.Power)
	buf.WriteByte(d.Fortitude)
	buf.WriteByte(d.Velocity)
	buf.WriteByte(d.Resonance)
	buf.Write(d.Genes[:])
	_ = binary.Write(buf, binary.LittleEndian, d.CaptureLat)
	_ = binary.Write(buf, binary.LittleEndian, d.CaptureLng)
	_ = binary.Write(buf, binary.LittleEndian, d.Nonce)
	buf.Write(d.Signature[:])
	return buf.Bytes()
}

// RecordCaptureData is the game-logic program's capture-acknowledgement
// payload.
type RecordCaptureData struct {
	TitanID            uint64
	LocationLat        int32
	LocationLng        int32
	ThreatClass        uint8
	ElementType         uint8
	SignatureTimestamp int64
}

func (d RecordCaptureData) Encode() []byte {
	buf := new(bytes.Buffer)
	buf.WriteByte(GameRecordCapture)
	_ = binary.Write(buf, binary.LittleEndian, d.TitanID)
	_ = binary.Write(buf, binary.LittleEndian, d.LocationLat)
	_ = binary.Write(buf, binary.LittleEndian, d.LocationLng)
	buf.WriteByte(d.ThreatClass)
	buf.WriteByte(d.ElementType)
	_ = binary.Write(buf, binary.LittleEndian, d.SignatureTimestamp)
	return buf.Bytes()
}

// RecordBattleData is the post-battle settlement payload.
type RecordBattleData struct {
	TitanAID     uint64
	TitanBID     uint64
	Winner       uint8
	ExpGainedA   uint32
	ExpGainedB   uint32
	LocationLat  int32
	LocationLng  int32
}

func (d RecordBattleData) Encode() []byte {
	buf := new(bytes.Buffer)
	buf.WriteByte(GameRecordBattle)
	_ = binary.Write(buf, binary.LittleEndian, d.TitanAID)
	_ = binary.Write(buf, binary.LittleEndian, d.TitanBID)
	buf.WriteByte(d.Winner)
	_ = binary.Write(buf, binary.LittleEndian, d.ExpGainedA)
	_ = binary.Write(buf, binary.LittleEndian, d.ExpGainedB)
	_ = binary.Write(buf, binary.LittleEndian, d.LocationLat)
	_ = binary.Write(buf, binary.LittleEndian, d.LocationLng)
	return buf.Bytes()
}

// AddExperienceData grants experience to an on-chain Titan account.
type AddExperienceData struct {
	TitanID   uint64
	ExpAmount uint32
}

func (d AddExperienceData) Encode() []byte {
	buf := new(bytes.Buffer)
	buf.WriteByte(GameAddExperience)
	_ = binary.Write(buf, binary.LittleEndian, d.TitanID)
	_ = binary.Write(buf, binary.LittleEndian, d.ExpAmount)
	return buf.Bytes()
}

// RewardType selects which payout table DistributeRewardData applies.
type RewardType uint8

const (
	RewardCapture   RewardType = 0
	RewardBattleWin RewardType = 1
	RewardDailyBonus RewardType = 2
)

// DistributeRewardData mints/transfers BREACH to a player's token account.
type DistributeRewardData struct {
	Type   RewardType
	Amount uint64
}

func (d DistributeRewardData) Encode() []byte {
	buf := new(bytes.Buffer)
	buf.WriteByte(GameDistributeReward)
	buf.WriteByte(byte(d.Type))
	_ = binary.Write(buf, binary.LittleEndian, d.Amount)
	return buf.Bytes()
}

// EvolveData upgrades a Titan's species on-chain. Shares discriminator value
// 3 with AddExperienceData because it targets the titan program rather than
// the game-logic program — discriminators are scoped per program.
type EvolveData struct {
	NewSpeciesID uint16
}

func (d EvolveData) Encode() []byte {
	buf := new(bytes.Buffer)
	buf.WriteByte(TitanEvolve)
	_ = binary.Write(buf, binary.LittleEndian, d.NewSpeciesID)
	return buf.Bytes()
}
