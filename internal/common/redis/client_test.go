package redis

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/edgecomet/catalog/internal/common/configtypes"
)

func setupTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client, err := NewClient(&configtypes.RedisConfig{Addr: mr.Addr()}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	return client, mr
}

func TestNewClient(t *testing.T) {
	tests := []struct {
		name      string
		config    *configtypes.RedisConfig
		errorText string
	}{
		{
			name:      "nil config",
			config:    nil,
			errorText: "redis config is required",
		},
		{
			name:      "invalid Redis address",
			config:    &configtypes.RedisConfig{Addr: "invalid:99999"},
			errorText: "failed to connect to Redis",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewClient(tt.config, zap.NewNop())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errorText)
			assert.Nil(t, client)
		})
	}
}

func TestNewClientNilLogger(t *testing.T) {
	client, err := NewClient(&configtypes.RedisConfig{Addr: "localhost:6379"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "logger is required")
	assert.Nil(t, client)
}

func TestClientOperations(t *testing.T) {
	client, mr := setupTestClient(t)
	ctx := context.Background()

	t.Run("ping and health check", func(t *testing.T) {
		assert.NoError(t, client.Ping(ctx))
		assert.NoError(t, client.HealthCheck(ctx))
	})

	t.Run("set and get bytes", func(t *testing.T) {
		require.NoError(t, client.Set(ctx, "products-json-1-2", []byte("payload"), 0))

		value, found, err := client.GetBytes(ctx, "products-json-1-2")
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, []byte("payload"), value)
	})

	t.Run("get missing key", func(t *testing.T) {
		value, found, err := client.GetBytes(ctx, "missing")
		require.NoError(t, err)
		assert.False(t, found)
		assert.Nil(t, value)
	})

	t.Run("empty value still exists", func(t *testing.T) {
		require.NoError(t, client.Set(ctx, "empty", "", 0))

		value, found, err := client.GetBytes(ctx, "empty")
		require.NoError(t, err)
		assert.True(t, found)
		assert.Empty(t, value)

		exists, err := client.Exists(ctx, "empty")
		require.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("set with expiration", func(t *testing.T) {
		require.NoError(t, client.Set(ctx, "ttl-key", "v", time.Minute))

		ttl, err := client.TTL(ctx, "ttl-key")
		require.NoError(t, err)
		assert.Equal(t, time.Minute, ttl)

		mr.FastForward(2 * time.Minute)
		exists, err := client.Exists(ctx, "ttl-key")
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, client.Set(ctx, "del-1", "a", 0))
		require.NoError(t, client.Set(ctx, "del-2", "b", 0))
		require.NoError(t, client.Del(ctx, "del-1", "del-2"))

		assert.False(t, mr.Exists("del-1"))
		assert.False(t, mr.Exists("del-2"))
		assert.NoError(t, client.Del(ctx))
	})

	t.Run("hash with expire", func(t *testing.T) {
		key := "report-job:abc"
		require.NoError(t, client.HSetWithExpire(ctx, key, time.Hour, "status", "queued", "format", "csv"))

		fields, err := client.HGetAll(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"status": "queued", "format": "csv"}, fields)
		assert.Equal(t, time.Hour, mr.TTL(key))
	})

	t.Run("scan keys", func(t *testing.T) {
		mr.FlushAll()
		for _, k := range []string{"products-json-1-1", "products-json-1-2", "products-json-2-1", "other"} {
			require.NoError(t, mr.Set(k, "x"))
		}

		keys, err := client.ScanKeys(ctx, "products-json-1-*")
		require.NoError(t, err)
		sort.Strings(keys)
		assert.Equal(t, []string{"products-json-1-1", "products-json-1-2"}, keys)
	})
}

func TestClientOperations_ServerDown(t *testing.T) {
	client, mr := setupTestClient(t)
	mr.Close()

	ctx := context.Background()
	_, _, err := client.GetBytes(ctx, "k")
	assert.Error(t, err)
	assert.Error(t, client.Set(ctx, "k", "v", 0))
	_, err = client.Exists(ctx, "k")
	assert.Error(t, err)
}
