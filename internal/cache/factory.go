package cache

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/edgecomet/catalog/internal/common/configtypes"
	"github.com/edgecomet/catalog/internal/common/redis"
)

// NewStore builds the store selected by cfg.Backend. client may be nil for the memory backend.
func NewStore(cfg configtypes.CacheConfig, client *redis.Client, logger *zap.Logger) (Store, error) {
	codec := NewCodec(cfg.Compression)

	switch cfg.Backend {
	case configtypes.CacheBackendMemory:
		logger.Info("Using in-memory products cache store")
		return NewMemoryStore(codec), nil

	case configtypes.CacheBackendRedis, "":
		if client == nil {
			return nil, fmt.Errorf("redis cache backend requires a redis client")
		}
		logger.Info("Using Redis products cache store",
			zap.Duration("ttl", cfg.TTL.ToDuration()),
			zap.String("compression", cfg.Compression))
		return NewRedisStore(client, codec, cfg.TTL.ToDuration(), logger), nil

	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}
