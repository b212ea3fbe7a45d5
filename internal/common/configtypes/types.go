package configtypes

// Log level constants
const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

// Log format constants
const (
	LogFormatJSON    = "json"
	LogFormatConsole = "console"
	LogFormatText    = "text"
)

// Cache backend constants
const (
	CacheBackendRedis  = "redis"
	CacheBackendMemory = "memory"
)

// Compression algorithm constants
const (
	CompressionNone   = "none"
	CompressionSnappy = "snappy"
	CompressionLZ4    = "lz4"
)

// Alert sink type constants
const (
	AlertSinkLog        = "log"
	AlertSinkFile       = "file"
	AlertSinkWebhook    = "webhook"
	AlertSinkClickHouse = "clickhouse"
)

// Blob storage backend constants
const (
	StorageBackendFilesystem = "filesystem"
	StorageBackendS3         = "s3"
)

// ServiceConfig is the root configuration of catalog-service
type ServiceConfig struct {
	Environment string         `yaml:"environment"`
	Server      ServerConfig   `yaml:"server"`
	Internal    InternalConfig `yaml:"internal"`
	Redis       RedisConfig    `yaml:"redis"`
	Cache       CacheConfig    `yaml:"cache"`
	Database    DatabaseConfig `yaml:"database"`
	Alerts      AlertsConfig   `yaml:"alerts"`
	Reports     ReportsConfig  `yaml:"reports"`
	Storage     StorageConfig  `yaml:"storage"`
	Log         LogConfig      `yaml:"log"`
	Metrics     MetricsConfig  `yaml:"metrics"`
}

type ServerConfig struct {
	Listen  string   `yaml:"listen"`
	Timeout Duration `yaml:"timeout"`
}

// InternalConfig protects the operator endpoints (cache invalidation, entry inspection)
type InternalConfig struct {
	AuthKey string `yaml:"auth_key"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// CacheConfig controls the products cache store.
// TTL of zero keeps entries until they are deleted by an operator.
type CacheConfig struct {
	Backend     string   `yaml:"backend"`
	TTL         Duration `yaml:"ttl"`
	Compression string   `yaml:"compression"`
}

// DatabaseConfig holds the MySQL connection used by the products renderer
type DatabaseConfig struct {
	Addr         string   `yaml:"addr"`
	User         string   `yaml:"user"`
	Password     string   `yaml:"password"`
	Name         string   `yaml:"name"`
	QueryTimeout Duration `yaml:"query_timeout"`
	MaxOpenConns int      `yaml:"max_open_conns"`
}

type AlertsConfig struct {
	QueueSize  int                   `yaml:"queue_size"`
	Sinks      []string              `yaml:"sinks"`
	File       AlertFileConfig       `yaml:"file"`
	Webhook    AlertWebhookConfig    `yaml:"webhook"`
	ClickHouse AlertClickHouseConfig `yaml:"clickhouse"`
}

type AlertFileConfig struct {
	Path     string         `yaml:"path"`
	Rotation RotationConfig `yaml:"rotation"`
}

// AlertWebhookConfig describes an error-tracker style notify endpoint
type AlertWebhookConfig struct {
	URL     string   `yaml:"url"`
	APIKey  string   `yaml:"api_key"`
	Timeout Duration `yaml:"timeout"`
}

type AlertClickHouseConfig struct {
	Addr     []string `yaml:"addr"`
	Database string   `yaml:"database"`
	User     string   `yaml:"user"`
	Password string   `yaml:"password"`
	Table    string   `yaml:"table"`
}

type ReportsConfig struct {
	Enabled    bool      `yaml:"enabled"`
	Workers    string    `yaml:"workers"` // "auto" or a number
	QueueSize  int       `yaml:"queue_size"`
	StatusTTL  Duration  `yaml:"status_ttl"`
	JobTimeout Duration  `yaml:"job_timeout"`
	PDF        PDFConfig `yaml:"pdf"`
}

// PDFConfig configures headless Chrome used for the pdf report format
type PDFConfig struct {
	Enabled  bool     `yaml:"enabled"`
	ExecPath string   `yaml:"exec_path"`
	Timeout  Duration `yaml:"timeout"`
}

type StorageConfig struct {
	Backend  string          `yaml:"backend"`
	BasePath string          `yaml:"base_path"`
	S3       S3StorageConfig `yaml:"s3"`
}

type S3StorageConfig struct {
	Bucket         string `yaml:"bucket"`
	Region         string `yaml:"region"`
	Endpoint       string `yaml:"endpoint"`
	AccessKey      string `yaml:"access_key"`
	SecretKey      string `yaml:"secret_key"`
	ForcePathStyle bool   `yaml:"force_path_style"`
	Prefix         string `yaml:"prefix"`
}

type LogConfig struct {
	Level   string           `yaml:"level"`
	Console ConsoleLogConfig `yaml:"console"`
	File    FileLogConfig    `yaml:"file"`
}

type ConsoleLogConfig struct {
	Enabled bool   `yaml:"enabled"`
	Format  string `yaml:"format"`
	Level   string `yaml:"level,omitempty"`
}

type FileLogConfig struct {
	Enabled  bool           `yaml:"enabled"`
	Path     string         `yaml:"path"`
	Format   string         `yaml:"format"`
	Level    string         `yaml:"level,omitempty"`
	Rotation RotationConfig `yaml:"rotation"`
}

type RotationConfig struct {
	MaxSize    int  `yaml:"max_size"`
	MaxAge     int  `yaml:"max_age"`
	MaxBackups int  `yaml:"max_backups"`
	Compress   bool `yaml:"compress"`
}

type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Listen    string `yaml:"listen"`
	Path      string `yaml:"path"`
	Namespace string `yaml:"namespace"`
}
