// Package state is C9, the shared process-wide container every HTTP
// handler, scheduler tick, and background worker reaches through rather
// than threading a dozen individual dependencies.
package state

import (
	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/titanbreach/engine/internal/broadcast"
	"github.com/titanbreach/engine/internal/cache"
	"github.com/titanbreach/engine/internal/chain"
	"github.com/titanbreach/engine/internal/config"
	"github.com/titanbreach/engine/internal/db"
)

// State is the shared container (spec §6 "C9"): config, db pool, cache
// client, broadcaster, and chain broker, plus a mockable clock. The RNG is
// deliberately absent here — rng.Source must never be held on a
// long-lived struct (see internal/rng's package doc).
type State struct {
	Config config.Config
	DB     *db.Store
	Cache  *cache.Client
	Hub    *broadcast.Hub
	Chain  *chain.Broker
	Clock  clock.Clock
	Log    *zap.Logger
}

// New assembles the shared container from already-constructed components.
func New(cfg config.Config, store *db.Store, cacheClient *cache.Client, hub *broadcast.Hub, chainBroker *chain.Broker, log *zap.Logger) *State {
	return &State{
		Config: cfg,
		DB:     store,
		Cache:  cacheClient,
		Hub:    hub,
		Chain:  chainBroker,
		Clock:  clock.New(),
		Log:    log,
	}
}
