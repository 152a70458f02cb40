// Package backend opens the storage.Storage selected by the configuration.
package backend

import (
	"campusmatch/backend/internal/config"
	"campusmatch/backend/internal/storage"
	"campusmatch/backend/internal/storage/memory"
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open connects the configured backend. The returned close function releases
// every connection it opened.
func Open(ctx context.Context, cfg *config.Config) (storage.Storage, func(), error) {
	switch cfg.StorageBackend {
	case config.BackendMemory:
		logrus.Warn("Using in-memory storage; state is lost on restart")
		return memory.NewStore(), func() {}, nil
	case config.BackendPostgres:
		return openPostgres(ctx, cfg)
	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}

func openPostgres(ctx context.Context, cfg *config.Config) (storage.Storage, func(), error) {
	// 1. PostgreSQL
	db, err := gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect PostgreSQL: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	// 2. Redis
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		sqlDB.Close()
		return nil, nil, fmt.Errorf("failed to connect Redis: %w", err)
	}

	// 3. Міграції (Створення таблиць)
	if err := storage.AutoMigrate(db); err != nil {
		sqlDB.Close()
		rdb.Close()
		return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	logrus.WithFields(logrus.Fields{"redis": cfg.RedisAddr}).Info("Database and Redis connections established, migrations complete.")

	closeFn := func() {
		if err := rdb.Close(); err != nil {
			logrus.WithError(err).Warn("closing redis")
		}
		if err := sqlDB.Close(); err != nil {
			logrus.WithError(err).Warn("closing postgres")
		}
	}
	return storage.NewStorageService(db, rdb), closeFn, nil
}
