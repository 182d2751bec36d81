package main

import (
	"context"
	"crypto/rand"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/playperu/cityguesser/internal/config"
	"github.com/playperu/cityguesser/internal/database"
	"github.com/playperu/cityguesser/internal/handler/health"
	"github.com/playperu/cityguesser/internal/migrations"
	"github.com/playperu/cityguesser/internal/server"
	"github.com/playperu/cityguesser/internal/store"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, stdout io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))

	// --- SQLite (admins, and locations for the sqlite backend) ---
	db, err := database.Open(ctx, cfg.DBPath)
	if err != nil {
		return fmt.Errorf("connecting to sqlite: %w", err)
	}
	defer db.Close()

	if err := migrations.Run(db, migrations.SQLite); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	logger.Info("connected to sqlite", "path", cfg.DBPath)

	checks := map[string]health.Check{
		"sqlite": {Checker: dbChecker{db}},
	}

	// --- Location backend ---
	var gameStore interface {
		server.GameStore
		store.Seeder
	}
	switch cfg.LocationBackend {
	case config.BackendPostGIS:
		pool, err := database.OpenPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("connecting to postgres: %w", err)
		}
		defer pool.Close()

		pgDB := database.SQLFromPool(pool)
		defer pgDB.Close()
		if err := migrations.Run(pgDB, migrations.Postgres); err != nil {
			return fmt.Errorf("running postgres migrations: %w", err)
		}
		pg := store.NewPostGIS(pool)
		checks["postgis"] = health.Check{Checker: health.CheckerFunc(pg.Ping)}
		gameStore = pg
		logger.Info("connected to postgis")
	default:
		gameStore = store.NewSQLite(db)
	}

	if cfg.SeedDemo {
		if _, err := store.SeedDemo(ctx, gameStore, logger); err != nil {
			return fmt.Errorf("seeding demo data: %w", err)
		}
	}

	// --- Admin ---
	admin := server.NewSQLAdminStore(db)
	if cfg.AdminEmail != "" && cfg.AdminPasswordHash != "" {
		if err := admin.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPasswordHash); err != nil {
			return fmt.Errorf("provisioning admin: %w", err)
		}
		logger.Info("admin provisioned", "email", cfg.AdminEmail)
	}

	// --- Redis boundary cache (optional) ---
	var boundaries server.BoundarySource = gameStore
	if cfg.RedisURL != "" {
		rdb, err := openRedis(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("connecting to redis: %w", err)
		}
		defer rdb.Close()

		cache := store.NewBoundaryCache(rdb, gameStore, cfg.BoundaryCacheTTL, logger)
		if err := cache.Check(ctx); err != nil {
			logger.Warn("redis unreachable, boundary cache falls through", "error", err)
		}
		checks["redis"] = health.Check{Checker: redisChecker{rdb}, Optional: true}
		boundaries = cache
	}

	secret := []byte(cfg.JWTSecret)
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return fmt.Errorf("generating jwt secret: %w", err)
		}
		logger.Warn("JWT_SECRET not set, player tokens will not survive a restart")
	}

	sessions := server.NewRegistry(gameStore, gameStore, logger, cfg.StoreTimeout, cfg.SessionIdleTTL)

	// --- HTTP Server ---
	srv := server.New(cfg.HTTPAddr, server.Deps{
		Logger:      logger,
		Store:       gameStore,
		Admin:       admin,
		Sessions:    sessions,
		Boundaries:  boundaries,
		JWTSecret:   secret,
		CORSOrigins: cfg.CORSOrigins,
		SPADir:      cfg.SPADir,
		Health:      checks,
	})

	// --- Run ---
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting http server", "addr", cfg.HTTPAddr, "backend", cfg.LocationBackend)
		return srv.Run(gctx)
	})

	g.Go(func() error {
		return sessions.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down http server")
		return srv.Shutdown(context.Background())
	})

	return g.Wait()
}

func openRedis(rawURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	return redis.NewClient(opt), nil
}

// dbChecker adapts *sql.DB to health.Checker.
type dbChecker struct{ db *sql.DB }

func (d dbChecker) Check(ctx context.Context) error { return d.db.PingContext(ctx) }

// redisChecker adapts *redis.Client to health.Checker.
type redisChecker struct{ client *redis.Client }

func (r redisChecker) Check(ctx context.Context) error { return r.client.Ping(ctx).Err() }
