// Package sqlsource renders the products payload from the shop database.
package sqlsource

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/edgecomet/catalog/internal/common/configtypes"
)

const (
	defaultMaxOpenConns = 10
	dialTimeout         = 5 * time.Second
)

// Open connects to MySQL and verifies the connection with a ping.
func Open(ctx context.Context, cfg configtypes.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("mysql", DSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	maxOpen := cfg.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = defaultMaxOpenConns
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxOpen)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database %s: %w", cfg.Addr, err)
	}
	return db, nil
}

// DSN builds the driver connection string
func DSN(cfg configtypes.DatabaseConfig) string {
	mc := mysql.NewConfig()
	mc.Net = "tcp"
	mc.Addr = cfg.Addr
	mc.User = cfg.User
	mc.Passwd = cfg.Password
	mc.DBName = cfg.Name
	mc.ParseTime = true
	mc.InterpolateParams = true
	mc.Timeout = dialTimeout
	return mc.FormatDSN()
}
