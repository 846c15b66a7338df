package repository

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/taxpilot/dashboard-notifications/internal/config"
	"github.com/taxpilot/dashboard-notifications/internal/repository/postgres"
	"github.com/taxpilot/dashboard-notifications/internal/repository/realtime"
	"github.com/taxpilot/dashboard-notifications/internal/repository/redisrepo"
	"github.com/taxpilot/dashboard-notifications/internal/repository/sqlite"
	"go.uber.org/zap"
)

// New connects to the realtime store selected by cfg.Driver.
func New(ctx context.Context, logger *zap.Logger, cfg config.StoreConfig) (realtime.Store, error) {
	switch cfg.Driver {
	case config.STORE_DRIVER_REDIS:
		rdb := redis.NewClient(&redis.Options{
			Addr: cfg.RedisAddr,
		})
		pong, err := rdb.Ping(ctx).Result()
		if err != nil {
			rdb.Close()
			return nil, fmt.Errorf("failed to ping redis: %w", err)
		}
		logger.Sugar().Infof("Successfully connected to Redis: %s", pong)
		return redisrepo.New(logger, rdb), nil

	case config.STORE_DRIVER_POSTGRES:
		db, err := postgres.Connect(ctx, cfg.Postgres)
		if err != nil {
			return nil, fmt.Errorf("db connection error: %w", err)
		}
		if err := db.Ping(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("couldn't ping postgres db: %w", err)
		}
		if err := postgres.Migrate(ctx, db); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to migrate postgres db: %w", err)
		}
		logger.Info("Successfully connected to PostgreSQL")
		return postgres.New(logger, db), nil

	case config.STORE_DRIVER_SQLITE:
		store, err := sqlite.Open(logger, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		logger.Sugar().Infof("Opened sqlite store at %s", cfg.SQLitePath)
		return store, nil
	}

	return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
}
