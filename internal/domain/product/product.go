package product

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Product is the authoritative catalog row for a SKU.
type Product struct {
	SKU   string
	Price decimal.Decimal
	Stock int
	Sales int
}

// Catalog reads authoritative product data.
type Catalog interface {
	// GetBySKUs returns the products matching any of the given SKUs in one
	// batched read. Unknown SKUs are simply absent from the result.
	GetBySKUs(ctx context.Context, skus []string) ([]Product, error)
}

// Writer mutates catalog rows outside the order pipeline (seeding, feed ingest).
type Writer interface {
	Upsert(ctx context.Context, products []Product) error
}
