package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/edgecomet/catalog/internal/cache"
	"github.com/edgecomet/catalog/internal/common/config"
	"github.com/edgecomet/catalog/internal/common/configtypes"
	"github.com/edgecomet/catalog/internal/common/redis"
)

var (
	configPath string
	verbose    bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "catalogctl",
		Short:         "Operator tool for catalog-service",
		Long:          "Inspect and invalidate products cache entries and report jobs using the service configuration",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "configs/catalog-service.yaml", "Path to catalog-service configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log client activity to stderr")

	rootCmd.AddCommand(
		cacheCmd(),
		reportCmd(),
		dbCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newLogger() *zap.Logger {
	if !verbose {
		return zap.NewNop()
	}
	logger, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

func loadConfig(logger *zap.Logger) (*config.ServiceConfig, error) {
	absPath, err := config.GetConfigPath(configPath)
	if err != nil {
		return nil, err
	}
	cm, err := config.NewServiceConfigManager(absPath, logger)
	if err != nil {
		return nil, err
	}
	return cm.GetConfig(), nil
}

// session bundles what every subcommand needs
type session struct {
	cfg    *config.ServiceConfig
	redis  *redis.Client
	logger *zap.Logger
}

func openSession() (*session, error) {
	logger := newLogger()
	cfg, err := loadConfig(logger)
	if err != nil {
		return nil, err
	}

	client, err := redis.NewClient(&cfg.Redis, logger)
	if err != nil {
		return nil, fmt.Errorf("connect to redis %s: %w", cfg.Redis.Addr, err)
	}
	return &session{cfg: cfg, redis: client, logger: logger}, nil
}

func (s *session) Close() {
	s.redis.Close()
	_ = s.logger.Sync()
}

// cacheStore returns the shared Redis store; the memory backend lives inside the service process
func (s *session) cacheStore() (*cache.RedisStore, error) {
	if s.cfg.Cache.Backend == configtypes.CacheBackendMemory {
		return nil, fmt.Errorf("cache backend is %q; entries are not reachable from outside the service", s.cfg.Cache.Backend)
	}
	codec := cache.NewCodec(s.cfg.Cache.Compression)
	return cache.NewRedisStore(s.redis, codec, s.cfg.Cache.TTL.ToDuration(), s.logger), nil
}
