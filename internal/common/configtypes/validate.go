package configtypes

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

// ParseListenAddress splits a listen address into host and port.
// Accepts ":8080", "0.0.0.0:8080", "localhost:8080" and a bare "8080".
func ParseListenAddress(listen string) (host string, port int, err error) {
	if listen == "" {
		return "", 0, fmt.Errorf("listen address is empty")
	}

	if !strings.Contains(listen, ":") {
		p, err := strconv.Atoi(listen)
		if err != nil {
			return "", 0, fmt.Errorf("invalid listen address format: %s", listen)
		}
		return "", p, nil
	}

	host, portStr, err := net.SplitHostPort(listen)
	if err != nil {
		return "", 0, fmt.Errorf("invalid listen address format: %s: %w", listen, err)
	}

	port, err = strconv.Atoi(portStr)
	if err != nil {
		return "", 0, fmt.Errorf("invalid port in listen address: %s", portStr)
	}

	return host, port, nil
}

func validateListen(field, listen string) (int, error) {
	_, port, err := ParseListenAddress(listen)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", field, err)
	}
	if port < 1 || port > 65535 {
		return 0, fmt.Errorf("%s port must be between 1 and 65535, got %d", field, port)
	}
	return port, nil
}

// Validate checks the service configuration for missing or contradictory values.
// Defaults are applied by the loader after validation passes.
func (c *ServiceConfig) Validate() error {
	if c == nil {
		return fmt.Errorf("config is nil")
	}

	if c.Environment == "" {
		return fmt.Errorf("environment must be specified")
	}

	serverPort, err := validateListen("server.listen", c.Server.Listen)
	if err != nil {
		return err
	}
	if c.Server.Timeout < 0 {
		return fmt.Errorf("server.timeout must be >= 0")
	}

	switch c.Cache.Backend {
	case "", CacheBackendRedis, CacheBackendMemory:
	default:
		return fmt.Errorf("cache.backend must be 'redis' or 'memory', got '%s'", c.Cache.Backend)
	}
	if c.Cache.TTL < 0 {
		return fmt.Errorf("cache.ttl must be >= 0")
	}
	switch c.Cache.Compression {
	case "", CompressionNone, CompressionSnappy, CompressionLZ4:
	default:
		return fmt.Errorf("cache.compression must be one of: none, snappy, lz4, got '%s'", c.Cache.Compression)
	}

	// Redis backs the cache (unless memory) and report job status
	if c.Cache.Backend != CacheBackendMemory || c.Reports.Enabled {
		if c.Redis.Addr == "" {
			return fmt.Errorf("redis.addr must be specified")
		}
	}
	if c.Redis.DB < 0 {
		return fmt.Errorf("redis.db must be >= 0, got %d", c.Redis.DB)
	}

	if c.Database.Addr == "" {
		return fmt.Errorf("database.addr must be specified")
	}
	if c.Database.Name == "" {
		return fmt.Errorf("database.name must be specified")
	}
	if c.Database.MaxOpenConns < 0 {
		return fmt.Errorf("database.max_open_conns must be >= 0")
	}

	if err := c.Alerts.validate(); err != nil {
		return err
	}

	if c.Reports.Enabled {
		if err := c.Reports.validate(); err != nil {
			return err
		}
		if err := c.Storage.validate(); err != nil {
			return err
		}
	}

	if c.Metrics.Enabled {
		metricsPort, err := validateListen("metrics.listen", c.Metrics.Listen)
		if err != nil {
			return err
		}
		if metricsPort == serverPort {
			return fmt.Errorf("metrics.listen port (%d) must differ from server.listen port (%d)", metricsPort, serverPort)
		}
		if c.Metrics.Path != "" && !strings.HasPrefix(c.Metrics.Path, "/") {
			return fmt.Errorf("metrics.path must start with '/', got '%s'", c.Metrics.Path)
		}
	}

	return c.Log.validate()
}

func (a *AlertsConfig) validate() error {
	if a.QueueSize < 0 {
		return fmt.Errorf("alerts.queue_size must be >= 0, got %d", a.QueueSize)
	}

	seen := make(map[string]bool, len(a.Sinks))
	for _, sink := range a.Sinks {
		if seen[sink] {
			return fmt.Errorf("alerts.sinks contains duplicate sink '%s'", sink)
		}
		seen[sink] = true

		switch sink {
		case AlertSinkLog:
		case AlertSinkFile:
			if a.File.Path == "" {
				return fmt.Errorf("alerts.file.path must be specified when file sink is enabled")
			}
		case AlertSinkWebhook:
			if a.Webhook.URL == "" {
				return fmt.Errorf("alerts.webhook.url must be specified when webhook sink is enabled")
			}
			if !strings.HasPrefix(a.Webhook.URL, "http://") && !strings.HasPrefix(a.Webhook.URL, "https://") {
				return fmt.Errorf("alerts.webhook.url must be an http(s) URL, got '%s'", a.Webhook.URL)
			}
		case AlertSinkClickHouse:
			if len(a.ClickHouse.Addr) == 0 {
				return fmt.Errorf("alerts.clickhouse.addr must be specified when clickhouse sink is enabled")
			}
		default:
			return fmt.Errorf("alerts.sinks: unknown sink '%s'", sink)
		}
	}
	return nil
}

func (r *ReportsConfig) validate() error {
	if r.Workers != "" && r.Workers != "auto" {
		n, err := strconv.Atoi(r.Workers)
		if err != nil || n <= 0 {
			return fmt.Errorf("reports.workers must be 'auto' or a positive number, got '%s'", r.Workers)
		}
	}
	if r.QueueSize < 0 {
		return fmt.Errorf("reports.queue_size must be >= 0, got %d", r.QueueSize)
	}
	if r.StatusTTL < 0 || r.JobTimeout < 0 || r.PDF.Timeout < 0 {
		return fmt.Errorf("reports durations must be >= 0")
	}
	return nil
}

func (s *StorageConfig) validate() error {
	switch s.Backend {
	case "", StorageBackendFilesystem:
		if s.BasePath == "" {
			return fmt.Errorf("storage.base_path must be specified for filesystem storage")
		}
	case StorageBackendS3:
		if s.S3.Bucket == "" {
			return fmt.Errorf("storage.s3.bucket must be specified for s3 storage")
		}
	default:
		return fmt.Errorf("storage.backend must be 'filesystem' or 's3', got '%s'", s.Backend)
	}
	return nil
}

func (l *LogConfig) validate() error {
	validLevels := map[string]bool{
		LogLevelDebug: true,
		LogLevelInfo:  true,
		LogLevelWarn:  true,
		LogLevelError: true,
	}
	if l.Level != "" && !validLevels[l.Level] {
		return fmt.Errorf("log.level must be one of: debug, info, warn, error, got '%s'", l.Level)
	}
	if l.Console.Level != "" && !validLevels[l.Console.Level] {
		return fmt.Errorf("log.console.level must be one of: debug, info, warn, error, got '%s'", l.Console.Level)
	}
	if l.File.Level != "" && !validLevels[l.File.Level] {
		return fmt.Errorf("log.file.level must be one of: debug, info, warn, error, got '%s'", l.File.Level)
	}

	if l.Console.Enabled && l.Console.Format != "" &&
		l.Console.Format != LogFormatJSON && l.Console.Format != LogFormatConsole {
		return fmt.Errorf("log.console.format must be 'json' or 'console', got '%s'", l.Console.Format)
	}

	if l.File.Enabled {
		if l.File.Path == "" {
			return fmt.Errorf("log.file.path must be specified when file logging is enabled")
		}
		if l.File.Format != "" && l.File.Format != LogFormatJSON && l.File.Format != LogFormatText {
			return fmt.Errorf("log.file.format must be 'json' or 'text', got '%s'", l.File.Format)
		}
		if l.File.Rotation.MaxSize < 0 || l.File.Rotation.MaxAge < 0 || l.File.Rotation.MaxBackups < 0 {
			return fmt.Errorf("log.file.rotation values must be >= 0")
		}
	}

	return nil
}
