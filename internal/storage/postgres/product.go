package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/order-pipeline/internal/domain/product"
)

const (
	getProductsBySKUsSQL = `SELECT sku, price, stock, sales FROM products WHERE sku = ANY($1)`

	upsertProductSQL = `INSERT INTO products (sku, price, stock)
		VALUES ($1, $2, $3)
		ON CONFLICT (sku) DO UPDATE
		SET price = EXCLUDED.price, stock = EXCLUDED.stock, updated_at = now()`
)

var (
	_ product.Catalog = (*ProductRepository)(nil)
	_ product.Writer  = (*ProductRepository)(nil)
)

// ProductRepository implements product.Catalog and product.Writer.
type ProductRepository struct {
	conns *Acquirer
}

// NewProductRepository returns a ProductRepository using conns.
func NewProductRepository(conns *Acquirer) *ProductRepository {
	return &ProductRepository{conns: conns}
}

// GetBySKUs returns the products matching any of skus in one query.
func (r *ProductRepository) GetBySKUs(ctx context.Context, skus []string) ([]product.Product, error) {
	var out []product.Product
	err := r.conns.With(ctx, func(conn *pgxpool.Conn) error {
		rows, err := conn.Query(ctx, getProductsBySKUsSQL, skus)
		if err != nil {
			return errors.Wrap(err, "query products by sku")
		}
		if out, err = pgx.CollectRows(rows, scanProduct); err != nil {
			return errors.Wrap(err, "scan products")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Upsert inserts or updates price and stock of the given products in one
// batch. Sales counters are left untouched.
func (r *ProductRepository) Upsert(ctx context.Context, products []product.Product) error {
	if len(products) == 0 {
		return nil
	}
	return r.conns.With(ctx, func(conn *pgxpool.Conn) error {
		b := &pgx.Batch{}
		for _, p := range products {
			b.Queue(upsertProductSQL, p.SKU, p.Price, p.Stock)
		}
		if err := conn.SendBatch(ctx, b).Close(); err != nil {
			return errors.Wrapf(err, "upsert %d products", len(products))
		}
		return nil
	})
}

func scanProduct(row pgx.CollectableRow) (product.Product, error) {
	var p product.Product
	err := row.Scan(&p.SKU, &p.Price, &p.Stock, &p.Sales)
	return p, err
}
