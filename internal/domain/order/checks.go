package order

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// ErrInconsistentDraft is returned when a priced draft breaks its own totals.
var ErrInconsistentDraft = errors.New("inconsistent draft")

// checkDraft runs the consistency and re-serialization checks concurrently
// and waits for both.
func checkDraft(ctx context.Context, d *Draft) error {
	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error { return verifyTotals(d) })
	g.Go(func() error { return verifyRoundTrip(d) })
	return g.Wait()
}

func verifyTotals(d *Draft) error {
	gross, discount := decimal.Zero, decimal.Zero
	for _, it := range d.Items {
		if !it.Net.Equal(it.Gross.Sub(it.Discount)) {
			return errors.Wrapf(ErrInconsistentDraft, "sku %s: net %s != gross %s - discount %s",
				it.SKU, it.Net, it.Gross, it.Discount)
		}
		if it.Gross.IsNegative() || it.Discount.IsNegative() || it.Freight.IsNegative() {
			return errors.Wrapf(ErrInconsistentDraft, "sku %s: negative amount", it.SKU)
		}
		gross = gross.Add(it.Gross)
		discount = discount.Add(it.Discount)
	}
	if !gross.Equal(d.Gross) {
		return errors.Wrapf(ErrInconsistentDraft, "gross %s != line sum %s", d.Gross, gross)
	}
	if !discount.Equal(d.Discount) {
		return errors.Wrapf(ErrInconsistentDraft, "discount %s != line sum %s", d.Discount, discount)
	}
	if !d.Net.Equal(d.Gross.Sub(d.Discount).Add(d.Freight)) {
		return errors.Wrapf(ErrInconsistentDraft, "net %s != gross - discount + freight", d.Net)
	}
	if !d.Payment.Total.Equal(d.Net) {
		return errors.Wrapf(ErrInconsistentDraft, "payment total %s != net %s", d.Payment.Total, d.Net)
	}
	return nil
}

// verifyRoundTrip encodes the draft, decodes it back and compares the result
// at cent precision.
func verifyRoundTrip(d *Draft) error {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)
	d.Encode(e)

	var decoded Draft
	if err := decoded.Decode(jx.DecodeBytes(e.Bytes())); err != nil {
		return errors.Wrap(err, "decode serialized draft")
	}
	if !sameDraft(d, &decoded) {
		return errors.Wrap(ErrInconsistentDraft, "draft changed after re-serialization")
	}
	return nil
}

func sameMoney(a, b decimal.Decimal) bool {
	return a.Round(2).Equal(b.Round(2))
}

func sameDraft(a, b *Draft) bool {
	if a.CustomerID != b.CustomerID || a.Address != b.Address || a.Status != b.Status ||
		!a.DeliveryDate.Equal(b.DeliveryDate) || len(a.Items) != len(b.Items) {
		return false
	}
	if !sameMoney(a.Gross, b.Gross) || !sameMoney(a.Discount, b.Discount) ||
		!sameMoney(a.Freight, b.Freight) || !sameMoney(a.Net, b.Net) {
		return false
	}
	pa, pb := a.Payment, b.Payment
	if pa.Method != pb.Method || pa.Installments != pb.Installments ||
		!sameMoney(pa.Total, pb.Total) || !sameMoney(pa.InstallmentAmount, pb.InstallmentAmount) {
		return false
	}
	for i := range a.Items {
		x, y := a.Items[i], b.Items[i]
		if x.SKU != y.SKU || x.Quantity != y.Quantity ||
			!sameMoney(x.UnitPrice, y.UnitPrice) || !sameMoney(x.Gross, y.Gross) ||
			!sameMoney(x.Discount, y.Discount) || !sameMoney(x.Net, y.Net) ||
			!sameMoney(x.Freight, y.Freight) {
			return false
		}
	}
	return true
}
