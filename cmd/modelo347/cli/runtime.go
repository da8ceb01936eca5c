package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/odyssey-erp/modelo347/internal/app"
	"github.com/odyssey-erp/modelo347/internal/modelo347"
	"github.com/odyssey-erp/modelo347/internal/platform/cache"
	"github.com/odyssey-erp/modelo347/internal/platform/db"
)

// Runtime bundles the long-lived clients shared by the commands.
type Runtime struct {
	Config    *app.Config
	Logger    *slog.Logger
	Pool      *pgxpool.Pool
	Redis     *redis.Client
	Countries *modelo347.CountryCache
	Service   *modelo347.Service
}

// Open connects to PostgreSQL and Redis and wires the declaration service.
// Redis is optional: without it country lookups go straight to the database.
func Open(ctx context.Context, cfg *app.Config, logger *slog.Logger) (*Runtime, error) {
	policy, err := cfg.CentsPolicy()
	if err != nil {
		return nil, err
	}
	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, country cache disabled", slog.Any("error", err))
		redisClient = nil
	}

	repo := modelo347.NewRepository(pool)
	countries := modelo347.NewCountryCache(redisClient, cfg.CountryCacheTTL, repo, logger)
	service := modelo347.NewService(repo, countries, modelo347.Options{
		MinAmount: cfg.MinAmount,
		Cents:     policy,
		Logger:    logger,
	})
	return &Runtime{
		Config:    cfg,
		Logger:    logger,
		Pool:      pool,
		Redis:     redisClient,
		Countries: countries,
		Service:   service,
	}, nil
}

// Close releases the connections.
func (r *Runtime) Close() {
	if r == nil {
		return
	}
	if r.Redis != nil {
		if err := r.Redis.Close(); err != nil {
			r.Logger.Warn("redis close", slog.Any("error", err))
		}
	}
	if r.Pool != nil {
		r.Pool.Close()
	}
}

func openFromEnv(ctx context.Context) (*Runtime, error) {
	cfg, err := app.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return Open(ctx, cfg, app.NewLogger(cfg))
}
