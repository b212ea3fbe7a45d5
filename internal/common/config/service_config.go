package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/edgecomet/catalog/internal/common/configtypes"
	"github.com/edgecomet/catalog/internal/common/yamlutil"
)

// Type aliases so callers only import this package
type (
	ServiceConfig = configtypes.ServiceConfig
	RedisConfig   = configtypes.RedisConfig
	LogConfig     = configtypes.LogConfig
)

// EnvironmentOverrideVar overrides the environment value from the config file
const EnvironmentOverrideVar = "CATALOG_ENV"

const (
	defaultServerTimeout   = 30 * time.Second
	defaultQueryTimeout    = 10 * time.Second
	defaultAlertQueueSize  = 256
	defaultReportQueueSize = 100
	defaultStatusTTL       = 7 * 24 * time.Hour
	defaultJobTimeout      = 5 * time.Minute
	defaultPDFTimeout      = 60 * time.Second
	defaultWebhookTimeout  = 5 * time.Second
	defaultMetricsPath     = "/metrics"
	defaultMetricsNS       = "catalog"
	defaultClickHouseTable = "catalog_alerts"
)

// ServiceConfigManager loads and holds catalog-service configuration
type ServiceConfigManager struct {
	config     *ServiceConfig
	configPath string
	logger     *zap.Logger
}

// NewServiceConfigManager loads the configuration at configPath
func NewServiceConfigManager(configPath string, logger *zap.Logger) (*ServiceConfigManager, error) {
	cm := &ServiceConfigManager{
		configPath: configPath,
		logger:     logger,
	}

	if err := cm.LoadConfig(); err != nil {
		return nil, fmt.Errorf("failed to load initial config: %w", err)
	}

	return cm, nil
}

// LoadConfig reads, validates and applies defaults to the configuration file
func (cm *ServiceConfigManager) LoadConfig() error {
	var cfg ServiceConfig
	if err := yamlutil.UnmarshalStrictFile(cm.configPath, &cfg); err != nil {
		return err
	}

	if env := os.Getenv(EnvironmentOverrideVar); env != "" {
		cm.logger.Info("Environment overridden from process environment",
			zap.String("variable", EnvironmentOverrideVar),
			zap.String("config_value", cfg.Environment),
			zap.String("environment", env))
		cfg.Environment = env
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	ApplyDefaults(&cfg)
	cm.config = &cfg

	cm.logger.Info("Configuration loaded",
		zap.String("path", cm.configPath),
		zap.String("environment", cfg.Environment),
		zap.String("cache_backend", cfg.Cache.Backend),
		zap.Strings("alert_sinks", cfg.Alerts.Sinks),
		zap.Bool("reports_enabled", cfg.Reports.Enabled))

	return nil
}

// GetConfig returns the loaded configuration
func (cm *ServiceConfigManager) GetConfig() *ServiceConfig {
	return cm.config
}

// GetConfigPath returns the absolute config path
func (cm *ServiceConfigManager) GetConfigPath() string {
	return cm.configPath
}

// ApplyDefaults fills zero values left after validation
func ApplyDefaults(cfg *ServiceConfig) {
	if cfg.Server.Timeout == 0 {
		cfg.Server.Timeout = configtypes.Duration(defaultServerTimeout)
	}

	if cfg.Cache.Backend == "" {
		cfg.Cache.Backend = configtypes.CacheBackendRedis
	}
	if cfg.Cache.Compression == "" {
		cfg.Cache.Compression = configtypes.CompressionNone
	}

	if cfg.Database.QueryTimeout == 0 {
		cfg.Database.QueryTimeout = configtypes.Duration(defaultQueryTimeout)
	}

	if cfg.Alerts.QueueSize == 0 {
		cfg.Alerts.QueueSize = defaultAlertQueueSize
	}
	if len(cfg.Alerts.Sinks) == 0 {
		cfg.Alerts.Sinks = []string{configtypes.AlertSinkLog}
	}
	if cfg.Alerts.Webhook.Timeout == 0 {
		cfg.Alerts.Webhook.Timeout = configtypes.Duration(defaultWebhookTimeout)
	}
	if cfg.Alerts.ClickHouse.Table == "" {
		cfg.Alerts.ClickHouse.Table = defaultClickHouseTable
	}

	if cfg.Reports.Workers == "" {
		cfg.Reports.Workers = "auto"
	}
	if cfg.Reports.QueueSize == 0 {
		cfg.Reports.QueueSize = defaultReportQueueSize
	}
	if cfg.Reports.StatusTTL == 0 {
		cfg.Reports.StatusTTL = configtypes.Duration(defaultStatusTTL)
	}
	if cfg.Reports.JobTimeout == 0 {
		cfg.Reports.JobTimeout = configtypes.Duration(defaultJobTimeout)
	}
	if cfg.Reports.PDF.Timeout == 0 {
		cfg.Reports.PDF.Timeout = configtypes.Duration(defaultPDFTimeout)
	}
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = configtypes.StorageBackendFilesystem
	}

	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = defaultMetricsPath
	}
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = defaultMetricsNS
	}

	// If both outputs are disabled (zero values), enable console by default
	if !cfg.Log.Console.Enabled && !cfg.Log.File.Enabled {
		cfg.Log.Console.Enabled = true
	}
	if cfg.Log.Console.Format == "" {
		cfg.Log.Console.Format = configtypes.LogFormatConsole
	}
	if cfg.Log.File.Format == "" {
		cfg.Log.File.Format = configtypes.LogFormatText
	}
}

// GetConfigPath resolves path to an absolute path of an existing file
func GetConfigPath(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("config path cannot be empty")
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve config path: %w", err)
	}

	if _, err := os.Stat(absPath); os.IsNotExist(err) {
		return "", fmt.Errorf("config file does not exist: %s", absPath)
	}

	return absPath, nil
}
