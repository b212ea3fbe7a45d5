package sqlsource

import (
	"context"
	"database/sql"
	"fmt"
)

// SchemaStatements create the tables the products query reads
var SchemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS products (
		id BIGINT PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		description TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS variants (
		id BIGINT PRIMARY KEY,
		product_id BIGINT NOT NULL,
		sku VARCHAR(64) NOT NULL,
		price DECIMAL(10,2) NOT NULL,
		on_hand BIGINT NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS exchange_variants (
		order_cycle_id BIGINT NOT NULL,
		distributor_id BIGINT NOT NULL,
		variant_id BIGINT NOT NULL,
		PRIMARY KEY (order_cycle_id, distributor_id, variant_id)
	)`,
}

// ApplySchema runs SchemaStatements in order
func ApplySchema(ctx context.Context, db *sql.DB) error {
	for i, stmt := range SchemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement %d failed: %w", i+1, err)
		}
	}
	return nil
}
