package reports

import (
	"context"
	"fmt"
	"strconv"

	"github.com/edgecomet/catalog/internal/catalog"
	"github.com/edgecomet/catalog/internal/catalog/sqlsource"
)

// ProductsReportType is the registry name of the products report
const ProductsReportType = "products"

var productsColumns = []string{"product_id", "product", "variant_id", "sku", "price", "on_hand"}

// ProductsSource loads products for a distributor and order cycle
type ProductsSource interface {
	Products(ctx context.Context, rc catalog.RenderContext) ([]sqlsource.Product, error)
}

type productsReport struct {
	source  ProductsSource
	printer PDFPrinter
	userID  string
	rc      catalog.RenderContext
}

// NewProductsFactory returns a Factory for the products report.
// Params distributor_id and order_cycle_id are required positive integers. printer may be nil.
func NewProductsFactory(source ProductsSource, printer PDFPrinter) Factory {
	return func(userID string, params map[string]string) (Report, error) {
		rc := catalog.RenderContext{
			DistributorID: params["distributor_id"],
			OrderCycleID:  params["order_cycle_id"],
		}
		if !rc.Valid() {
			return nil, fmt.Errorf("%w: distributor_id and order_cycle_id must be positive integers", ErrInvalidParams)
		}
		return &productsReport{source: source, printer: printer, userID: userID, rc: rc}, nil
	}
}

func (r *productsReport) RenderAs(ctx context.Context, format Format) ([]byte, error) {
	products, err := r.source.Products(ctx, r.rc)
	if err != nil {
		return nil, err
	}

	table := &Table{
		Title:   fmt.Sprintf("Products for distributor %s, order cycle %s", r.rc.DistributorID, r.rc.OrderCycleID),
		Columns: productsColumns,
	}
	for _, p := range products {
		for _, v := range p.Variants {
			table.Rows = append(table.Rows, []string{
				strconv.FormatInt(p.ID, 10),
				p.Name,
				strconv.FormatInt(v.ID, 10),
				v.SKU,
				v.Price,
				strconv.FormatInt(v.OnHand, 10),
			})
		}
	}

	return table.Render(ctx, format, r.printer)
}
