package models

import (
	"time"

	"github.com/google/uuid"
)

// RankTier is the display tier derived from ELO rating (supplemented from
// original_source/backend/src/services/pvp.rs usage sites, which call a
// "recompute rank tier/division" step without defining the table itself).
type RankTier string

const (
	RankBronze   RankTier = "Bronze"
	RankSilver   RankTier = "Silver"
	RankGold     RankTier = "Gold"
	RankPlatinum RankTier = "Platinum"
	RankDiamond  RankTier = "Diamond"
	RankMaster   RankTier = "Master"
)

// RankFromElo maps an ELO rating to a (tier, division) pair. Bronze, Silver,
// Gold and Platinum each span 200 points starting at 800 (Bronze also covers
// everything below 800, at division 4); Diamond spans 1600-1999; Master has
// no divisions and covers rating >= 2000. Divisions are 50-point steps within
// each 200-point block, 4 the lowest and 1 the highest (displayed as roman
// numerals IV..I), so Diamond runs through IV..I twice.
func RankFromElo(elo int) (RankTier, int) {
	if elo < 800 {
		return RankBronze, 4
	}
	if elo >= 2000 {
		return RankMaster, 0
	}
	tiers := []RankTier{RankBronze, RankSilver, RankGold, RankPlatinum, RankDiamond}
	band := elo - 800 // 0..1199
	tierIdx := band / 200
	if tierIdx > 4 {
		tierIdx = 4
	}
	withinTier := band % 200
	division := 4 - withinTier/50 // 50-point divisions within a 200-point tier
	if division < 1 {
		division = 1
	}
	return tiers[tierIdx], division
}

// DivisionRoman renders a division 1-4 as a roman numeral, or "" for Master.
func DivisionRoman(division int) string {
	switch division {
	case 1:
		return "I"
	case 2:
		return "II"
	case 3:
		return "III"
	case 4:
		return "IV"
	default:
		return ""
	}
}

// PvpSeason is the singleton-per-period ranked season.
type PvpSeason struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	StartsAt  time.Time `json:"startsAt"`
	EndsAt    time.Time `json:"endsAt"`
	IsActive  bool      `json:"isActive"`
}

// PlayerPvpStats is a per-season, per-player ranked record. New rows default
// to Elo=1000.
type PlayerPvpStats struct {
	PlayerID      uuid.UUID `json:"playerId"`
	SeasonID      uuid.UUID `json:"seasonId"`
	EloRating     int       `json:"eloRating"`
	PeakRating    int       `json:"peakRating"`
	MatchesPlayed int       `json:"matchesPlayed"`
	MatchesWon    int       `json:"matchesWon"`
	MatchesLost   int       `json:"matchesLost"`
	WinStreak     int       `json:"winStreak"`
	MaxWinStreak  int       `json:"maxWinStreak"`
	RankTier      RankTier  `json:"rankTier"`
	RankDivision  int       `json:"rankDivision"`
	LastMatchAt   *time.Time `json:"lastMatchAt,omitempty"`
}

// QueueEntryStatus is the status string of a matchmaking queue entry.
type QueueEntryStatus string

const (
	QueueSearching QueueEntryStatus = "searching"
	QueueMatched   QueueEntryStatus = "matched"
	QueueExpired   QueueEntryStatus = "expired"
)

// QueueEntry is a single player's matchmaking queue row.
type QueueEntry struct {
	PlayerID    uuid.UUID        `json:"playerId"`
	TitanID     uuid.UUID        `json:"titanId"`
	Elo         int              `json:"elo"`
	SearchStart time.Time        `json:"searchStart"`
	Status      QueueEntryStatus `json:"status"`
	MatchedWith *uuid.UUID       `json:"matchedWith,omitempty"`
	MatchID     *uuid.UUID       `json:"matchId,omitempty"`
}

// QueueStatus is the response to join/status queue calls.
type QueueStatus struct {
	InQueue     bool       `json:"inQueue"`
	WaitSeconds int        `json:"waitSeconds"`
	CurrentBand int        `json:"currentBand"`
	MatchID     *uuid.UUID `json:"matchId,omitempty"`
}

// MatchPhase is the PvP match FSM state (spec §4.7).
type MatchPhase string

const (
	PhasePreparing  MatchPhase = "Preparing"
	PhaseTitanSelect MatchPhase = "TitanSelect"
	PhaseActive     MatchPhase = "Active"
	PhaseCompleted  MatchPhase = "Completed"
	PhaseCancelled  MatchPhase = "Cancelled"
)

// Action is a single turn's submitted player action.
type Action string

const (
	ActionAttack  Action = "Attack"
	ActionSpecial Action = "Special"
	ActionDefend  Action = "Defend"
	ActionItem    Action = "Item"
)

// PvpMatch is the battle FSM entity.
type PvpMatch struct {
	ID              uuid.UUID  `json:"id"`
	SeasonID        uuid.UUID  `json:"seasonId"`
	Player1ID       uuid.UUID  `json:"player1Id"`
	Player2ID       uuid.UUID  `json:"player2Id"`
	Player1TitanID  *uuid.UUID `json:"player1TitanId,omitempty"`
	Player2TitanID  *uuid.UUID `json:"player2TitanId,omitempty"`
	Phase           MatchPhase `json:"phase"`
	CurrentTurn     uuid.UUID  `json:"currentTurn"` // player ID whose turn it is
	Player1HP       int        `json:"player1Hp"`
	Player2HP       int        `json:"player2Hp"`
	ReadyDeadline   *time.Time `json:"readyDeadline,omitempty"`
	TurnDeadline    *time.Time `json:"turnDeadline,omitempty"`
	WinnerID        *uuid.UUID `json:"winnerId,omitempty"`
	Reason          string     `json:"reason,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	CompletedAt     *time.Time `json:"completedAt,omitempty"`
}

// BattleTurn is a single appended turn row; one side's action field is nil
// until that side has acted this turn.
type BattleTurn struct {
	ID          uuid.UUID `json:"id"`
	MatchID     uuid.UUID `json:"matchId"`
	TurnNumber  int       `json:"turnNumber"`
	Player1Action *Action `json:"player1Action,omitempty"`
	Player2Action *Action `json:"player2Action,omitempty"`
	DamageDealt int       `json:"damageDealt"`
	CreatedAt   time.Time `json:"createdAt"`
}

// LeaderboardEntry is a single row of the season leaderboard.
type LeaderboardEntry struct {
	PlayerID  uuid.UUID `json:"playerId"`
	Username  *string   `json:"username,omitempty"`
	EloRating int       `json:"eloRating"`
	RankTier  RankTier  `json:"rankTier"`
	RankDiv   int        `json:"rankDivision"`
	Wins      int       `json:"matchesWon"`
	Losses    int       `json:"matchesLost"`
}
