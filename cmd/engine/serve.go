package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/titanbreach/engine/internal/api"
	"github.com/titanbreach/engine/internal/auth"
	"github.com/titanbreach/engine/internal/broadcast"
	"github.com/titanbreach/engine/internal/cache"
	"github.com/titanbreach/engine/internal/capture"
	"github.com/titanbreach/engine/internal/chain"
	"github.com/titanbreach/engine/internal/config"
	"github.com/titanbreach/engine/internal/db"
	"github.com/titanbreach/engine/internal/location"
	"github.com/titanbreach/engine/internal/poi"
	"github.com/titanbreach/engine/internal/pvp"
	"github.com/titanbreach/engine/internal/scheduler"
	"github.com/titanbreach/engine/internal/spawn"
	"github.com/titanbreach/engine/internal/state"
)

// serveCmd is the default subcommand: it starts the API, the background
// schedulers, and blocks until SIGINT/SIGTERM.
func serveCmd(configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "run the game server (default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(*configFile)
		},
	}
}

func runServe(configFile string) error {
	log, err := zap.NewProduction()
	if err != nil {
		return err
	}
	defer log.Sync()

	cfg, err := config.Load(configFile)
	if err != nil {
		log.Fatal("load config", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := db.Connect(ctx, cfg.Database.URL, int32(cfg.Database.MinConnections), int32(cfg.Database.MaxConnections), log)
	if err != nil {
		log.Fatal("connect to database", zap.Error(err))
	}
	defer store.Close()

	cacheClient, err := cache.New(cfg.Cache.URL, cfg.Cache.PoolSize)
	if err != nil {
		log.Fatal("connect to cache", zap.Error(err))
	}
	defer cacheClient.Close()

	hub := broadcast.NewHub(log)

	backendKey, err := chain.LoadBackendKeypair(cfg.Chain.BackendKeypairPath)
	if err != nil {
		log.Fatal("load backend keypair", zap.Error(err))
	}
	chainBroker := chain.NewBroker(
		chain.NewRPCClient(cfg.Chain.RPCURL),
		backendKey,
		chain.ProgramID(cfg.Chain.TitanProgramID),
		chain.ProgramID(cfg.Chain.GameProgramID),
		cfg.Chain.BreachTokenMint,
		log,
	)

	appState := state.New(cfg, store, cacheClient, hub, chainBroker, log)

	spawnEngine := spawn.New(appState.DB, appState.Hub, log)
	locationVerifier := location.New(appState.DB, location.Thresholds{
		AccuracyMeters: cfg.Game.LocationAccuracyThreshold,
		MaxSpeedMps:    cfg.Game.MaxSpeedMps,
	})
	captureBroker := capture.New(appState.DB, appState.Cache, appState.Chain, appState.Hub, capture.Config{
		RadiusMeters:    cfg.Game.CaptureRadiusMeters,
		CooldownSeconds: cfg.Game.CaptureCooldownSeconds,
		TokenSecret:     cfg.Auth.JWTSecret,
		TokenExpiry:     cfg.SignatureExpiry(),
	}, log)
	pvpService := pvp.New(appState.DB, appState.Chain, log)
	poiCache := poi.New(appState.DB)
	sessions := auth.NewRedisSessionStore(appState.Cache)

	sched := scheduler.New(appState.DB, spawnEngine, pvpService, appState.Hub, log)
	sched.Run(ctx)
	defer sched.Stop()

	deps := &api.Deps{
		Players:    appState.DB,
		Titans:     appState.DB,
		POIs:       poiCache,
		Location:   locationVerifier,
		Capture:    captureBroker,
		Pvp:        pvpService,
		Sessions:   sessions,
		Hub:        appState.Hub,
		Log:        log,
		SessionTTL: time.Duration(cfg.Auth.JWTExpiryHours) * time.Hour,
	}

	router := api.SetupRouter(deps, api.RouterConfig{
		RateLimitPerMinute: cfg.RateLimit.PerMinute,
		RateLimitBurst:     cfg.RateLimit.Burst,
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{Addr: addr, Handler: router}

	go func() {
		log.Info("breach engine listening", zap.String("addr", addr), zap.String("env", cfg.Server.Env))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", zap.Error(err))
	}
	return nil
}
