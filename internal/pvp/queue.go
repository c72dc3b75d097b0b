package pvp

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/titanbreach/engine/pkg/models"
)

// queueExpiry is how long a searching entry may wait before it is marked
// expired (spec §4.7 "entries searching > 5 minutes are marked expired").
const queueExpiry = 5 * time.Minute

// band returns the current ELO search band for an entry that has waited
// waitSeconds: 100 + 50·floor(wait_sec / 10).
func band(waitSeconds int) int {
	return 100 + 50*(waitSeconds/10)
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// JoinQueue is join_queue: refreshes any existing entry to searching with a
// reset search_start and the player's current-season ELO.
func (s *Service) JoinQueue(ctx context.Context, playerID, titanID uuid.UUID) (*models.QueueStatus, error) {
	season, err := s.store.ActiveSeason(ctx)
	if err != nil {
		return nil, err
	}
	stats, err := s.store.GetOrCreatePlayerPvpStats(ctx, playerID, season.ID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	entry := models.QueueEntry{
		PlayerID: playerID, TitanID: titanID, Elo: stats.EloRating,
		SearchStart: now, Status: models.QueueSearching,
	}
	if err := s.store.UpsertQueueEntry(ctx, entry); err != nil {
		return nil, err
	}

	return &models.QueueStatus{InQueue: true, WaitSeconds: 0, CurrentBand: band(0)}, nil
}

// LeaveQueue is leave_queue.
func (s *Service) LeaveQueue(ctx context.Context, playerID uuid.UUID) error {
	return s.store.DeleteQueueEntry(ctx, playerID)
}

// GetQueueStatus is get_queue_status.
func (s *Service) GetQueueStatus(ctx context.Context, playerID uuid.UUID) (*models.QueueStatus, error) {
	entry, err := s.store.GetQueueEntry(ctx, playerID)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return &models.QueueStatus{InQueue: false}, nil
	}

	waitSeconds := int(time.Since(entry.SearchStart).Seconds())
	status := &models.QueueStatus{
		InQueue:     entry.Status == models.QueueSearching,
		WaitSeconds: waitSeconds,
		CurrentBand: band(waitSeconds),
		MatchID:     entry.MatchID,
	}
	return status, nil
}

// pairCandidates greedily pairs searching entries by tightest ELO
// difference within each entry's current band, processing the
// longest-waiting entries first so their widened band gets first pick
// (spec §4.7: "first match by |elo_diff| then by search_start wins").
func pairCandidates(entries []models.QueueEntry, now time.Time) [][2]models.QueueEntry {
	remaining := make([]models.QueueEntry, len(entries))
	copy(remaining, entries)

	var pairs [][2]models.QueueEntry
	used := make(map[uuid.UUID]bool)

	for i := range remaining {
		a := remaining[i]
		if used[a.PlayerID] {
			continue
		}
		waitSeconds := int(now.Sub(a.SearchStart).Seconds())
		currentBand := band(waitSeconds)

		bestIdx := -1
		bestDiff := -1
		for j := i + 1; j < len(remaining); j++ {
			b := remaining[j]
			if used[b.PlayerID] {
				continue
			}
			diff := abs(a.Elo - b.Elo)
			if diff > currentBand {
				continue
			}
			if bestIdx == -1 || diff < bestDiff {
				bestIdx = j
				bestDiff = diff
			}
		}
		if bestIdx == -1 {
			continue
		}

		used[a.PlayerID] = true
		used[remaining[bestIdx].PlayerID] = true
		pairs = append(pairs, [2]models.QueueEntry{a, remaining[bestIdx]})
	}
	return pairs
}

// RunMatchmakingCycle is run_matchmaking_cycle, driven by C8 on a fixed
// cadence. Entries searching past queueExpiry are marked expired before
// pairing; everything else still in the pool is matched via pairCandidates.
func (s *Service) RunMatchmakingCycle(ctx context.Context) (int, error) {
	season, err := s.store.ActiveSeason(ctx)
	if err != nil {
		return 0, err
	}

	entries, err := s.store.SearchingEntriesOrderedByWait(ctx)
	if err != nil {
		return 0, err
	}

	now := time.Now()
	var active []models.QueueEntry
	for _, e := range entries {
		if now.Sub(e.SearchStart) > queueExpiry {
			expired := e
			expired.Status = models.QueueExpired
			if err := s.store.UpsertQueueEntry(ctx, expired); err != nil {
				s.log.Error("matchmaking: expire entry failed", zap.Error(err), zap.String("player", e.PlayerID.String()))
			}
			continue
		}
		active = append(active, e)
	}

	formed := 0
	for _, pair := range pairCandidates(active, now) {
		p1, p2 := pair[0], pair[1]
		match := models.PvpMatch{
			ID: uuid.New(), SeasonID: season.ID, Player1ID: p1.PlayerID, Player2ID: p2.PlayerID,
			Phase: models.PhasePreparing, CurrentTurn: p1.PlayerID, CreatedAt: now,
		}
		readyDeadline := now.Add(30 * time.Second)
		match.ReadyDeadline = &readyDeadline

		if err := s.store.FormMatch(ctx, p1.PlayerID, p2.PlayerID, match); err != nil {
			s.log.Error("matchmaking: form match failed", zap.Error(err))
			continue
		}
		formed++
	}

	return formed, nil
}
