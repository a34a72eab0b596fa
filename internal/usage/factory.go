package usage

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"weatherproxy/internal/models"
)

// Factory creates ledger backends from configuration.
type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

// Create returns the backend selected by cfg.Type, or ErrDisabled when the
// ledger is switched off.
func (f *Factory) Create(cfg models.UsageConfig) (Recorder, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}

	switch cfg.Type {
	case models.UsageTypeMemory:
		return NewMemoryRecorder(cfg.MaxEvents), nil
	case models.UsageTypeSQLite:
		return NewSQLiteRecorder(cfg.DSN, cfg.Options)
	case models.UsageTypePostgres:
		return NewPostgresRecorder(cfg.DSN, cfg.Options)
	case models.UsageTypeRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			_ = rdb.Close()
			return nil, fmt.Errorf("failed to ping redis: %w", err)
		}
		return NewRedisRecorder(rdb,
			WithRedisPrefix(cfg.Redis.Prefix),
			WithRedisTTL(cfg.Redis.TTL),
		), nil
	default:
		return nil, fmt.Errorf("unsupported usage ledger type: %s", cfg.Type)
	}
}

// SupportedTypes lists the backend names Create accepts.
func (f *Factory) SupportedTypes() []string {
	return []string{models.UsageTypeMemory, models.UsageTypeSQLite, models.UsageTypePostgres, models.UsageTypeRedis}
}

// NewRecorder is shorthand for NewFactory().Create(cfg).
func NewRecorder(cfg models.UsageConfig) (Recorder, error) {
	return NewFactory().Create(cfg)
}
