package models

import (
	"time"

	"github.com/google/uuid"
)

// LocationReport is a single client-submitted GPS fix.
type LocationReport struct {
	Lat       float64   `json:"lat"`
	Lng       float64   `json:"lng"`
	AccuracyM float64   `json:"accuracy"`
	SpeedMps  *float64  `json:"speed,omitempty"`
	HeadingDeg *float64 `json:"heading,omitempty"`
	AltitudeM *float64  `json:"altitude,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// LocationStatus is the verifier's tri-state verdict (spec §4.2).
type LocationStatus string

const (
	StatusValid      LocationStatus = "valid"
	StatusSuspicious LocationStatus = "suspicious"
	StatusRejected   LocationStatus = "rejected"
)

// FlagKind names a location anti-cheat signal.
type FlagKind string

const (
	FlagLowAccuracy      FlagKind = "low_accuracy"
	FlagSpeedViolation   FlagKind = "speed_violation"
	FlagPossibleTeleport FlagKind = "possible_teleport"
	FlagSuspiciousIP     FlagKind = "suspicious_ip"
	FlagSensorMismatch   FlagKind = "sensor_mismatch"
	FlagMockLocation     FlagKind = "mock_location"
)

// critical reports whether a flag kind alone forces a Rejected verdict.
func (k FlagKind) critical() bool {
	return k == FlagMockLocation || k == FlagPossibleTeleport
}

// Flag is a single emitted anti-cheat signal with structured detail.
type Flag struct {
	Kind     FlagKind `json:"kind"`
	Detail   string   `json:"detail,omitempty"`
	Distance float64  `json:"distance,omitempty"`
	Speed    float64  `json:"speed,omitempty"`
	Max      float64  `json:"max,omitempty"`
}

// LocationVerification is the verifier's output for a single report.
type LocationVerification struct {
	Status LocationStatus `json:"status"`
	Flags  []Flag         `json:"flags"`
}

// DeriveStatus applies the scoring rule from spec §4.2: Rejected iff any
// flag is critical; Valid iff no flags; Suspicious otherwise.
func DeriveStatus(flags []Flag) LocationStatus {
	if len(flags) == 0 {
		return StatusValid
	}
	for _, f := range flags {
		if f.Kind.critical() {
			return StatusRejected
		}
	}
	return StatusSuspicious
}

// LocationTrailRecord is the append-only, 30-day-retained movement history.
type LocationTrailRecord struct {
	ID           uuid.UUID `json:"id"`
	PlayerID     uuid.UUID `json:"playerId"`
	Lat          float64   `json:"lat"`
	Lng          float64   `json:"lng"`
	AccuracyM    float64   `json:"accuracy"`
	SpeedMps     *float64  `json:"speed,omitempty"`
	HeadingDeg   *float64  `json:"heading,omitempty"`
	AltitudeM    *float64  `json:"altitude,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
	IsSuspicious bool      `json:"isSuspicious"`
	FlagSet      []FlagKind `json:"flagSet"`
}
