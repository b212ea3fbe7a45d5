package alerts

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"go.uber.org/zap"

	"github.com/edgecomet/catalog/internal/common/configtypes"
)

const (
	DefaultClickHouseTable = "catalog_alerts"
	clickhouseDialTimeout  = 5 * time.Second
)

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// chConn is the subset of driver.Conn used by the sink
type chConn interface {
	Exec(ctx context.Context, query string, args ...any) error
	Close() error
}

// ClickHouseSink stores alerts as rows for later querying.
type ClickHouseSink struct {
	conn   chConn
	table  string
	logger *zap.Logger
}

// NewClickHouseSink connects, then creates the alerts table when missing.
func NewClickHouseSink(ctx context.Context, cfg configtypes.AlertClickHouseConfig, logger *zap.Logger) (*ClickHouseSink, error) {
	if len(cfg.Addr) == 0 {
		return nil, fmt.Errorf("clickhouse addr is required")
	}

	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: cfg.Addr,
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.User,
			Password: cfg.Password,
		},
		DialTimeout: clickhouseDialTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open ClickHouse connection: %w", err)
	}

	if err := conn.Ping(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	sink, err := newClickHouseSink(conn, cfg.Table, logger)
	if err != nil {
		conn.Close()
		return nil, err
	}

	if err := sink.ensureTable(ctx); err != nil {
		conn.Close()
		return nil, err
	}

	logger.Info("ClickHouse alert sink ready",
		zap.Strings("addr", cfg.Addr),
		zap.String("table", sink.table))
	return sink, nil
}

func newClickHouseSink(conn chConn, table string, logger *zap.Logger) (*ClickHouseSink, error) {
	if table == "" {
		table = DefaultClickHouseTable
	}
	if !tableNamePattern.MatchString(table) {
		return nil, fmt.Errorf("invalid clickhouse table name %q", table)
	}
	return &ClickHouseSink{conn: conn, table: table, logger: logger}, nil
}

func (s *ClickHouseSink) ensureTable(ctx context.Context) error {
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	created_at DateTime64(3, 'UTC'),
	severity LowCardinality(String),
	message String,
	context Map(String, String)
) ENGINE = MergeTree ORDER BY created_at`, s.table)

	if err := s.conn.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("failed to create ClickHouse table %s: %w", s.table, err)
	}
	return nil
}

func (s *ClickHouseSink) Send(ctx context.Context, alert Alert) error {
	meta := alert.Context
	if meta == nil {
		meta = map[string]string{}
	}

	query := fmt.Sprintf("INSERT INTO %s (created_at, severity, message, context) VALUES (?, ?, ?, ?)", s.table)
	if err := s.conn.Exec(ctx, query, alert.CreatedAt, string(alert.Severity), alert.Message, meta); err != nil {
		return fmt.Errorf("failed to insert alert into ClickHouse: %w", err)
	}
	return nil
}

func (s *ClickHouseSink) Close() error {
	return s.conn.Close()
}
