// Package db is the Postgres persistence layer (C9's db_pool), covering the
// tables in spec §6.4: players, titan_spawns, pois, player_titans,
// player_locations, pvp_matches/pvp_battle_turns, pvp_seasons,
// player_pvp_stats, matchmaking_queue.
package db

import (
	"context"
	_ "embed"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

//go:embed schema.sql
var schemaSQL string

// Store wraps the pgx connection pool every service-layer component queries
// through. Kept as a single type (mirroring the teacher's PostgresStore)
// with methods split across files by entity for readability.
type Store struct {
	pool *pgxpool.Pool
	log  *zap.Logger
}

// Connect opens a pooled connection to Postgres and verifies it with a ping.
func Connect(ctx context.Context, dsn string, minConns, maxConns int32, log *zap.Logger) (*Store, error) {
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, errors.Wrap(err, "parse database url")
	}
	poolCfg.MinConns = minConns
	poolCfg.MaxConns = maxConns

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, errors.Wrap(err, "open connection pool")
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, errors.Wrap(err, "ping database")
	}

	log.Info("connected to postgres")
	return &Store{pool: pool, log: log}, nil
}

// Close releases the pool.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Pool exposes the underlying pool for components that need a raw
// transaction. Nothing in this module calls it.
func (s *Store) Pool() *pgxpool.Pool { return s.pool }

// BeginTx starts a transaction for callers outside the db package that need
// to group several statements atomically. Nothing in this module calls it:
// capture reconciliation, the matchmaker hand-off and match completion use
// db methods that open their own transactions.
func (s *Store) BeginTx(ctx context.Context) (pgx.Tx, error) {
	return s.pool.Begin(ctx)
}

// InitSchema applies the embedded schema.sql. Safe to call repeatedly; every
// statement in the file is idempotent (CREATE TABLE IF NOT EXISTS, etc), and
// it is embedded at build time so it runs the same regardless of the
// process's working directory (the `migrate` CLI subcommand's primary use).
func (s *Store) InitSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return errors.Wrap(err, "apply schema")
	}
	s.log.Info("schema applied")
	return nil
}
