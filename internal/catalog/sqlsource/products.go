package sqlsource

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/edgecomet/catalog/internal/catalog"
)

// Product is one entry of the products payload
type Product struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Variants    []Variant `json:"variants"`
}

type Variant struct {
	ID     int64  `json:"id"`
	SKU    string `json:"sku"`
	Price  string `json:"price"`
	OnHand int64  `json:"on_hand"`
}

const productsQuery = `SELECT p.id, p.name, COALESCE(p.description, ''), v.id, v.sku, v.price, v.on_hand
FROM exchange_variants ev
JOIN variants v ON v.id = ev.variant_id
JOIN products p ON p.id = v.product_id
WHERE ev.order_cycle_id = ? AND ev.distributor_id = ?
ORDER BY p.name, p.id, v.id`

// ProductsRenderer loads the products a distributor offers in an order cycle.
type ProductsRenderer struct {
	db           *sql.DB
	queryTimeout time.Duration
	logger       *zap.Logger
}

func NewProductsRenderer(db *sql.DB, queryTimeout time.Duration, logger *zap.Logger) *ProductsRenderer {
	return &ProductsRenderer{
		db:           db,
		queryTimeout: queryTimeout,
		logger:       logger,
	}
}

// Render returns the products as a JSON array.
// An empty result wraps catalog.ErrNoDataAvailable.
func (r *ProductsRenderer) Render(ctx context.Context, rc catalog.RenderContext) ([]byte, error) {
	products, err := r.Products(ctx, rc)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(products)
	if err != nil {
		return nil, fmt.Errorf("failed to encode products: %w", err)
	}
	return payload, nil
}

// Products returns the distributor's products for the order cycle, grouped with their variants.
func (r *ProductsRenderer) Products(ctx context.Context, rc catalog.RenderContext) ([]Product, error) {
	distributorID, err := parseID(rc.DistributorID)
	if err != nil {
		return nil, fmt.Errorf("distributor %q: %w", rc.DistributorID, catalog.ErrNoDataAvailable)
	}
	orderCycleID, err := parseID(rc.OrderCycleID)
	if err != nil {
		return nil, fmt.Errorf("order cycle %q: %w", rc.OrderCycleID, catalog.ErrNoDataAvailable)
	}

	if r.queryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.queryTimeout)
		defer cancel()
	}

	start := time.Now()
	rows, err := r.db.QueryContext(ctx, productsQuery, orderCycleID, distributorID)
	if err != nil {
		r.logger.Error("Products query failed",
			zap.Int64("distributor_id", distributorID),
			zap.Int64("order_cycle_id", orderCycleID),
			zap.Error(err))
		return nil, fmt.Errorf("products query failed: %w", err)
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		var (
			p Product
			v Variant
		)
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &v.ID, &v.SKU, &v.Price, &v.OnHand); err != nil {
			return nil, fmt.Errorf("products scan failed: %w", err)
		}

		// rows are ordered by product, so variants of one product are adjacent
		if n := len(products); n > 0 && products[n-1].ID == p.ID {
			products[n-1].Variants = append(products[n-1].Variants, v)
			continue
		}
		p.Variants = []Variant{v}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("products query failed: %w", err)
	}

	r.logger.Debug("Products loaded",
		zap.Int64("distributor_id", distributorID),
		zap.Int64("order_cycle_id", orderCycleID),
		zap.Int("products", len(products)),
		zap.Duration("duration", time.Since(start)))

	if len(products) == 0 {
		return nil, fmt.Errorf("distributor %d order cycle %d: %w", distributorID, orderCycleID, catalog.ErrNoDataAvailable)
	}
	return products, nil
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, err
	}
	if id <= 0 {
		return 0, fmt.Errorf("id must be positive")
	}
	return id, nil
}

var _ catalog.Renderer = (*ProductsRenderer)(nil)
