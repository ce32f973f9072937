// Package main provides the game server binary: websocket rooms over HTTP
// plus a gRPC health endpoint for operators.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/cory-johannsen/nightfall/internal/config"
	"github.com/cory-johannsen/nightfall/internal/game/dice"
	"github.com/cory-johannsen/nightfall/internal/game/engine"
	"github.com/cory-johannsen/nightfall/internal/game/session"
	"github.com/cory-johannsen/nightfall/internal/game/settings"
	"github.com/cory-johannsen/nightfall/internal/gameserver"
	"github.com/cory-johannsen/nightfall/internal/observability"
	"github.com/cory-johannsen/nightfall/internal/scripting"
	"github.com/cory-johannsen/nightfall/internal/server"
	"github.com/cory-johannsen/nightfall/internal/stats"
	"github.com/cory-johannsen/nightfall/internal/storage/postgres"
)

// defaultScriptKey names the server-wide role list script.
const defaultScriptKey = "default"

// healthService is the gRPC health service name reported by this binary.
const healthService = "nightfall.GameServer"

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging, "gameserver")
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("starting game server",
		zap.String("mode", cfg.Server.Mode),
		zap.String("http_addr", cfg.HTTP.Addr()),
		zap.String("admin_addr", cfg.Admin.Addr()),
	)

	cryptoSrc := dice.NewCryptoSource()

	defaults := settings.Default()
	if cfg.Game.SettingsFile != "" {
		defaults, err = settings.Load(cfg.Game.SettingsFile)
		if err != nil {
			logger.Fatal("loading default settings", zap.Error(err))
		}
		logger.Info("default settings loaded",
			zap.String("path", cfg.Game.SettingsFile),
			zap.Int("role_slots", defaults.RoleList.Len()),
		)
	}

	scripts := scripting.NewManager(engine.Catalogue(), dice.NewLoggedRoller(cryptoSrc, logger.Named("script")), logger.Named("script"))
	defer scripts.Close()
	defaultScript := ""
	if cfg.Game.RoleListScript != "" {
		if err := scripts.Load(defaultScriptKey, cfg.Game.RoleListScript, cfg.Game.ScriptInstructionLimit); err != nil {
			logger.Fatal("loading role list script", zap.Error(err))
		}
		defaultScript = defaultScriptKey
		logger.Info("role list script loaded", zap.String("path", cfg.Game.RoleListScript))
	}

	lifecycle := server.NewLifecycle(logger)

	var sink stats.Sink = stats.NopSink{}
	var history gameserver.History
	checks := map[string]gameserver.Checker{}
	if cfg.Server.Persistent() {
		dbStart := time.Now()
		pool, err := postgres.NewPool(ctx, cfg.Database)
		if err != nil {
			logger.Fatal("connecting to database", zap.Error(err))
		}
		logger.Info("database connected",
			zap.String("host", cfg.Database.Host),
			zap.Duration("elapsed", time.Since(dbStart)),
		)
		repo := postgres.NewGameRepository(pool.DB())
		sink, history = repo, repo
		checks["postgres"] = poolChecker{pool: pool}

		stopHealth := make(chan struct{})
		lifecycle.Add("postgres", &server.FuncService{
			StartFn: func() error {
				ticker := time.NewTicker(30 * time.Second)
				defer ticker.Stop()
				for {
					select {
					case <-stopHealth:
						return nil
					case <-ticker.C:
						if err := pool.Health(ctx, 5*time.Second); err != nil {
							logger.Warn("database health check failed", zap.Error(err))
							continue
						}
						st := pool.Stats()
						logger.Debug("database pool",
							zap.Int32("total", st.Total),
							zap.Int32("idle", st.Idle),
							zap.Int32("acquired", st.Acquired),
						)
					}
				}
			},
			StopFn: func() {
				close(stopHealth)
				pool.Close()
			},
		})
	}
	dispatcher := stats.NewDispatcher(sink, cfg.Game.StatsTimeout, logger.Named("stats"))

	sessions := session.NewManager(cfg.Game.OutboxBuffer)
	rooms := gameserver.NewManager(gameserver.ManagerConfig{
		Game:          cfg.Game,
		Defaults:      defaults,
		DefaultScript: defaultScript,
		Scripts:       scripts,
		Sessions:      sessions,
		Source:        cryptoSrc,
		Stats:         dispatcher,
		Logger:        logger,
	})

	roomsCtx, stopRooms := context.WithCancel(ctx)
	rooms.Start(roomsCtx)
	lifecycle.Add("rooms", &server.FuncService{
		StartFn: func() error {
			<-roomsCtx.Done()
			return rooms.Wait()
		},
		StopFn: stopRooms,
	})

	handler := gameserver.NewHandler(rooms, checks, history, cfg.HTTP.OriginPatterns, logger.Named("http"))
	httpServer := &http.Server{
		Addr:              cfg.HTTP.Addr(),
		Handler:           handler.Routes(),
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
	}
	lifecycle.Add("http", &server.FuncService{
		StartFn: func() error {
			lis, err := net.Listen("tcp", httpServer.Addr)
			if err != nil {
				return fmt.Errorf("listening on %s: %w", httpServer.Addr, err)
			}
			logger.Info("http server listening", zap.String("addr", lis.Addr().String()))
			if err := httpServer.Serve(lis); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
		StopFn: func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
			defer cancel()
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				logger.Warn("http shutdown", zap.Error(err))
			}
		},
	})

	healthServer := health.NewServer()
	healthServer.SetServingStatus(healthService, healthpb.HealthCheckResponse_SERVING)
	grpcServer := grpc.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	lifecycle.Add("admin-grpc", &server.FuncService{
		StartFn: func() error {
			lis, err := net.Listen("tcp", cfg.Admin.Addr())
			if err != nil {
				return fmt.Errorf("listening on %s: %w", cfg.Admin.Addr(), err)
			}
			logger.Info("gRPC health server listening", zap.String("addr", lis.Addr().String()))
			return grpcServer.Serve(lis)
		},
		StopFn: func() {
			healthServer.Shutdown()
			grpcServer.GracefulStop()
		},
	})

	logger.Info("game server initialized",
		zap.Duration("startup", time.Since(start)),
		zap.Int("max_rooms", cfg.Game.MaxRooms),
	)

	if err := lifecycle.Run(ctx); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}

// poolChecker adapts *postgres.Pool to gameserver.Checker.
type poolChecker struct{ pool *postgres.Pool }

func (p poolChecker) Check(ctx context.Context) error { return p.pool.Health(ctx, 3*time.Second) }
