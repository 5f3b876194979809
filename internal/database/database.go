package database

import (
	"context"
	"errors"
	"fmt"

	"faction-intel/internal/config"

	"github.com/rs/zerolog"
)

// KV is the persistent string store the cache layer is built on. Writes are
// durable when Set returns.
type KV interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Close() error
}

var ErrClosed = errors.New("store is closed")

// New opens the backend selected by cfg.StoreDriver.
func New(cfg *config.Config, logger zerolog.Logger) (KV, error) {
	switch cfg.StoreDriver {
	case config.DriverSQLite, "":
		return NewSQLite(cfg.DBPath, logger)
	case config.DriverLevelDB:
		return NewLevelDB(cfg.LevelDBPath, logger)
	case config.DriverRedis:
		return NewRedis(RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Prefix:   cfg.KeyPrefix,
		}, logger)
	case config.DriverMemory:
		logger.Warn().Msg("using in-memory store, cached data will not survive a restart")
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}
