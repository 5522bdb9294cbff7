package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/order-pipeline/internal/domain/order"
	"github.com/xenking/order-pipeline/internal/domain/product"
)

// The decrement is unconditional: stock validated earlier may have been
// consumed by a concurrent order in between.
const adjustInventorySQL = `UPDATE products
	SET stock = stock - $2, sales = sales + $2, updated_at = now()
	WHERE sku = $1`

var _ order.InventoryAdjuster = (*InventoryRepository)(nil)

// InventoryRepository applies post-commit stock adjustments.
type InventoryRepository struct {
	conns *Acquirer
}

// NewInventoryRepository returns an InventoryRepository using conns.
func NewInventoryRepository(conns *Acquirer) *InventoryRepository {
	return &InventoryRepository{conns: conns}
}

// Adjust decrements stock and increments sales of sku by quantity in a single
// statement outside any order transaction.
func (r *InventoryRepository) Adjust(ctx context.Context, sku string, quantity int) error {
	return r.conns.With(ctx, func(conn *pgxpool.Conn) error {
		tag, err := conn.Exec(ctx, adjustInventorySQL, sku, quantity)
		if err != nil {
			return errors.Wrapf(err, "adjust inventory for %s", sku)
		}
		if tag.RowsAffected() == 0 {
			return errors.Wrapf(product.ErrNotFound, "adjust inventory for %s", sku)
		}
		return nil
	})
}
