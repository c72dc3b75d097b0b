// Package scheduler is C8: five independent ticker-driven background
// tasks sharing process state. Each tick tolerates and logs its own
// errors rather than crashing the process — a single bad spawn cycle or
// a transient DB blip must never take the whole engine down.
package scheduler

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/titanbreach/engine/internal/broadcast"
	"github.com/titanbreach/engine/internal/metrics"
	"github.com/titanbreach/engine/internal/pvp"
	"github.com/titanbreach/engine/internal/spawn"
	"github.com/titanbreach/engine/pkg/models"
)

const (
	spawnCycleInterval      = 1 * time.Hour
	expirySweepInterval     = 5 * time.Minute
	metricsInterval         = 1 * time.Minute
	websocketCleanupInterval = 30 * time.Second
	matchmakingInterval     = 5 * time.Second

	spawnNearExpiryWindow    = 5 * time.Minute
	spawnDeleteGraceWindow   = 1 * time.Hour
	locationTrailRetention   = 30 * 24 * time.Hour
	websocketIdleTimeout     = 2 * time.Minute
)

// TitanStore is the persistence surface the expiry sweep and metrics tick
// need.
type TitanStore interface {
	SpawnsNearExpiry(ctx context.Context, now time.Time, within time.Duration) ([]models.TitanSpawn, error)
	DeleteExpiredSpawns(ctx context.Context, cutoff time.Time) (int64, error)
	DeleteOldLocationRecords(ctx context.Context, cutoff time.Time) (int64, error)
	CountActiveSpawns(ctx context.Context, now time.Time) (int, error)
	CountActiveSince(ctx context.Context, since time.Time) (int, error)
	CountTotal(ctx context.Context) (int, error)
}

// Scheduler owns the five background tickers and stops them together.
type Scheduler struct {
	titans TitanStore
	spawns *spawn.Engine
	pvp    *pvp.Service
	hub    *broadcast.Hub
	log    *zap.Logger

	cancel context.CancelFunc
}

// New constructs a Scheduler. The five tasks only start once Run is called.
func New(titans TitanStore, spawnEngine *spawn.Engine, pvpService *pvp.Service, hub *broadcast.Hub, log *zap.Logger) *Scheduler {
	return &Scheduler{titans: titans, spawns: spawnEngine, pvp: pvpService, hub: hub, log: log}
}

// Run starts all five tickers in their own goroutines; Stop cancels them.
func (s *Scheduler) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	go s.loop(ctx, "spawn_cycle", spawnCycleInterval, s.runSpawnCycle)
	go s.loop(ctx, "expiry_sweep", expirySweepInterval, s.runExpirySweep)
	go s.loop(ctx, "metrics_tick", metricsInterval, s.runMetricsTick)
	go s.loop(ctx, "ws_cleanup", websocketCleanupInterval, s.runWebsocketCleanup)
	go s.loop(ctx, "matchmaking_cycle", matchmakingInterval, s.runMatchmakingCycle)
}

// Stop cancels every running ticker. Safe to call once Run has started.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
}

// loop runs fn on a fixed-interval ticker until ctx is cancelled, logging
// (never panicking on) any error fn returns.
func (s *Scheduler) loop(ctx context.Context, name string, interval time.Duration, fn func(ctx context.Context) error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := fn(ctx); err != nil {
				s.log.Error("scheduler tick failed", zap.String("task", name), zap.Error(err))
			}
		}
	}
}

func (s *Scheduler) runSpawnCycle(ctx context.Context) error {
	n, err := s.spawns.RunCycle(ctx, time.Now())
	if err != nil {
		return err
	}
	if n > 0 {
		s.log.Info("spawn cycle complete", zap.Int("spawned", n))
	}
	return nil
}

func (s *Scheduler) runExpirySweep(ctx context.Context) error {
	now := time.Now()

	nearExpiry, err := s.titans.SpawnsNearExpiry(ctx, now, spawnNearExpiryWindow)
	if err != nil {
		return err
	}
	for _, sp := range nearExpiry {
		env := broadcast.Envelope{Type: broadcast.EventTitanExpired, Data: broadcast.TitanExpiredEvent{TitanID: sp.ID}}
		if data, err := json.Marshal(env); err == nil {
			s.hub.Broadcast(sp.Geohash, data)
		}
	}

	deleted, err := s.titans.DeleteExpiredSpawns(ctx, now.Add(-spawnDeleteGraceWindow))
	if err != nil {
		return err
	}
	if deleted > 0 {
		s.log.Info("expired spawns purged", zap.Int64("count", deleted))
	}

	if _, err := s.titans.DeleteOldLocationRecords(ctx, now.Add(-locationTrailRetention)); err != nil {
		return err
	}
	return nil
}

func (s *Scheduler) runMetricsTick(ctx context.Context) error {
	now := time.Now()

	activeTitans, err := s.titans.CountActiveSpawns(ctx, now)
	if err != nil {
		return err
	}
	metrics.ActiveTitans.Set(float64(activeTitans))

	activePlayers, err := s.titans.CountActiveSince(ctx, now.Add(-5*time.Minute))
	if err != nil {
		return err
	}
	metrics.ActivePlayers.Set(float64(activePlayers))

	totalPlayers, err := s.titans.CountTotal(ctx)
	if err != nil {
		return err
	}
	metrics.TotalPlayers.Set(float64(totalPlayers))

	metrics.WebsocketConnections.Set(float64(s.hub.TotalConnections()))
	return nil
}

func (s *Scheduler) runWebsocketCleanup(ctx context.Context) error {
	closed := s.hub.CleanupStale(websocketIdleTimeout)
	if closed > 0 {
		s.log.Info("closed stale websocket connections", zap.Int("count", closed))
	}
	return nil
}

func (s *Scheduler) runMatchmakingCycle(ctx context.Context) error {
	n, err := s.pvp.RunMatchmakingCycle(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		s.log.Info("matchmaking cycle formed matches", zap.Int("count", n))
	}
	return nil
}
