package cache

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/edgecomet/catalog/internal/common/redis"
)

// RedisStore keeps entries in Redis as tagged byte strings
type RedisStore struct {
	client *redis.Client
	codec  *Codec
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisStore creates a store over client. A zero ttl never expires keys.
func NewRedisStore(client *redis.Client, codec *Codec, ttl time.Duration, logger *zap.Logger) *RedisStore {
	return &RedisStore{
		client: client,
		codec:  codec,
		ttl:    ttl,
		logger: logger,
	}
}

func (s *RedisStore) Read(ctx context.Context, key string) (Entry, error) {
	raw, found, err := s.client.GetBytes(ctx, key)
	if err != nil {
		return Entry{}, err
	}
	if !found {
		return AbsentEntry(), nil
	}

	entry, err := s.codec.Decode(raw)
	if err != nil {
		s.logger.Error("Failed to decode cache entry",
			zap.String("key", key),
			zap.Int("size_bytes", len(raw)),
			zap.Error(err))
		return Entry{}, fmt.Errorf("cache key %s: %w", key, err)
	}
	return entry, nil
}

func (s *RedisStore) Write(ctx context.Context, key string, e Entry) error {
	raw, err := s.codec.Encode(e)
	if err != nil {
		return fmt.Errorf("cache key %s: %w", key, err)
	}

	if err := s.client.Set(ctx, key, raw, s.ttl); err != nil {
		return err
	}

	s.logger.Debug("Cache entry written",
		zap.String("key", key),
		zap.Stringer("state", e.State),
		zap.Int("payload_bytes", len(e.Payload)),
		zap.Int("stored_bytes", len(raw)))
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, key)
}

func (s *RedisStore) Exists(ctx context.Context, key string) (bool, error) {
	return s.client.Exists(ctx, key)
}

// Keys lists keys matching a glob pattern (operator tooling)
func (s *RedisStore) Keys(ctx context.Context, pattern string) ([]string, error) {
	return s.client.ScanKeys(ctx, pattern)
}

var _ Store = (*RedisStore)(nil)
