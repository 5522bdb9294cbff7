package main

import (
	"context"
	"log/slog"

	"github.com/go-faster/errors"

	"github.com/xenking/order-pipeline/internal/domain/order"
	redisledger "github.com/xenking/order-pipeline/internal/storage/redis"
)

type pendingLedger interface {
	Pending(ctx context.Context, limit int64) ([]redisledger.Entry, error)
	Resolve(ctx context.Context, e redisledger.Entry) error
}

type replayStats struct {
	Applied int
	Failed  int
}

// replay applies up to limit pending adjustments oldest first. An entry is
// resolved only after its adjustment succeeds; a failed resolve stops the run
// so the entry is not applied twice on the next run.
func replay(ctx context.Context, ledger pendingLedger, inv order.InventoryAdjuster, limit int64, dryRun bool) (replayStats, error) {
	var st replayStats

	entries, err := ledger.Pending(ctx, limit)
	if err != nil {
		return st, errors.Wrap(err, "read pending adjustments")
	}
	slog.Info("pending adjustments", slog.Int("count", len(entries)))

	for _, e := range entries {
		attrs := []any{
			slog.String("order_id", e.OrderID),
			slog.String("sku", e.SKU),
			slog.Int("quantity", e.Quantity),
		}
		if dryRun {
			slog.Info("would apply", attrs...)
			continue
		}
		if err := inv.Adjust(ctx, e.SKU, e.Quantity); err != nil {
			st.Failed++
			slog.Warn("adjustment failed, keeping entry", append(attrs, slog.String("error", err.Error()))...)
			continue
		}
		if err := ledger.Resolve(ctx, e); err != nil {
			st.Applied++
			return st, errors.Wrapf(err, "resolve order %s sku %s after applying it", e.OrderID, e.SKU)
		}
		st.Applied++
		slog.Info("applied", attrs...)
	}
	return st, nil
}
