package order

import (
	"context"
	"time"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
)

// AdjustmentFailure is a post-commit stock adjustment that was not applied.
type AdjustmentFailure struct {
	OrderID  string
	SKU      string
	Quantity int
	Reason   string
	FailedAt time.Time
}

// FailureLedger records failed adjustments so they can be replayed later.
type FailureLedger interface {
	Record(ctx context.Context, f AdjustmentFailure) error
}

// Reconciler applies stock and sales adjustments for committed orders. Each
// line is adjusted independently and at most once; a failed line is not
// retried here and does not undo the order or the other lines.
type Reconciler struct {
	inventory InventoryAdjuster
	ledger    FailureLedger
	runner    Runner
	now       func() time.Time
}

// ReconcilerOption configures a Reconciler.
type ReconcilerOption func(*Reconciler)

// WithLedger records failed adjustments to l.
func WithLedger(l FailureLedger) ReconcilerOption {
	return func(r *Reconciler) { r.ledger = l }
}

// WithReconcileRunner runs each adjustment on the given pool.
func WithReconcileRunner(run Runner) ReconcilerOption {
	return func(r *Reconciler) { r.runner = run }
}

// NewReconciler creates a Reconciler over the given inventory store.
func NewReconciler(inventory InventoryAdjuster, opts ...ReconcilerOption) *Reconciler {
	r := &Reconciler{
		inventory: inventory,
		runner:    inlineRunner{},
		now:       time.Now,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Reconcile adjusts inventory for every item of a committed order. It returns
// a *ReconciliationError listing the SKUs that failed, or nil.
func (r *Reconciler) Reconcile(ctx context.Context, o *Order) error {
	// The order is already committed: a client going away must not stop the
	// remaining adjustments.
	ctx = context.WithoutCancel(ctx)
	lg := zctx.From(ctx)

	var failures []*Error
	for _, it := range o.Items {
		err := r.runner.Do(ctx, func(ctx context.Context) error {
			return r.inventory.Adjust(ctx, it.SKU, it.Quantity)
		})
		if err == nil {
			continue
		}

		lg.Warn("Inventory adjustment failed",
			zap.String("order_id", o.ID),
			zap.String("sku", it.SKU),
			zap.Int("quantity", it.Quantity),
			zap.Error(err),
		)
		failures = append(failures, ReconciliationFailure(it.SKU, err))

		if r.ledger == nil {
			continue
		}
		if lerr := r.ledger.Record(ctx, AdjustmentFailure{
			OrderID:  o.ID,
			SKU:      it.SKU,
			Quantity: it.Quantity,
			Reason:   err.Error(),
			FailedAt: r.now().UTC(),
		}); lerr != nil {
			lg.Error("Record adjustment failure",
				zap.String("order_id", o.ID),
				zap.String("sku", it.SKU),
				zap.Error(lerr),
			)
		}
	}

	if len(failures) > 0 {
		return &ReconciliationError{OrderID: o.ID, Failures: failures}
	}
	return nil
}
