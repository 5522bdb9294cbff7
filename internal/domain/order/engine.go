package order

import (
	"context"
	"math"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/order-pipeline/internal/domain/freight"
	"github.com/xenking/order-pipeline/internal/domain/product"
)

// Engine validates carts against the catalog and prices them. It has no side
// effects besides the catalog read.
type Engine struct {
	catalog product.Catalog
	freight *freight.Table
	now     func() time.Time
}

// NewEngine creates a pricing Engine.
func NewEngine(catalog product.Catalog, table *freight.Table) *Engine {
	return &Engine{
		catalog: catalog,
		freight: table,
		now:     time.Now,
	}
}

// Price validates the cart and returns a fully priced draft. Unit prices and
// stock always come from the catalog.
func (e *Engine) Price(ctx context.Context, cart Cart) (*Draft, error) {
	if err := cart.Validate(); err != nil {
		return nil, err
	}

	// One bulk read keyed by the distinct SKU set.
	skus := make([]string, 0, len(cart.Lines))
	requested := make(map[string]int, len(cart.Lines))
	for _, l := range cart.Lines {
		if _, seen := requested[l.SKU]; !seen {
			skus = append(skus, l.SKU)
		}
		requested[l.SKU] = addQuantity(requested[l.SKU], l.Quantity)
	}

	fetched, err := e.catalog.GetBySKUs(ctx, skus)
	if err != nil {
		return nil, errors.Wrap(err, "get products")
	}
	catalog := make(map[string]product.Product, len(fetched))
	for _, p := range fetched {
		catalog[p.SKU] = p
	}
	for _, sku := range skus {
		if _, ok := catalog[sku]; !ok {
			return nil, ProductNotFound(sku)
		}
	}

	region, err := cart.Address.RegionCode()
	if err != nil {
		return nil, err
	}
	totalFreight, ok := e.freight.Lookup(region)
	if !ok {
		return nil, InvalidRegion(region)
	}

	for _, sku := range skus {
		if p := catalog[sku]; requested[sku] > p.Stock {
			return nil, InsufficientStock(sku, requested[sku], p.Stock)
		}
	}

	return e.price(cart, catalog, totalFreight), nil
}

func (e *Engine) price(cart Cart, catalog map[string]product.Product, totalFreight decimal.Decimal) *Draft {
	pct := cart.Payment.DiscountPercentage
	// Freight is split evenly by line count regardless of quantity.
	freightShare := totalFreight.Div(decimal.NewFromInt(int64(len(cart.Lines)))).Round(2)

	d := &Draft{
		CustomerID:   cart.CustomerID,
		Address:      cart.Address,
		Items:        make([]DraftItem, len(cart.Lines)),
		Gross:        decimal.Zero,
		Discount:     decimal.Zero,
		Freight:      totalFreight,
		DeliveryDate: e.now().UTC().Add(DeliveryLeadTime),
		Status:       StatusPending,
	}

	for i, l := range cart.Lines {
		price := catalog[l.SKU].Price
		gross := price.Mul(decimal.NewFromInt(int64(l.Quantity)))
		discount := decimal.Zero
		if pct.IsPositive() {
			discount = gross.Mul(pct).Round(2)
		}
		d.Items[i] = DraftItem{
			SKU:       l.SKU,
			UnitPrice: price,
			Quantity:  l.Quantity,
			Gross:     gross,
			Discount:  discount,
			Net:       gross.Sub(discount),
			Freight:   freightShare,
		}
		d.Gross = d.Gross.Add(gross)
		d.Discount = d.Discount.Add(discount)
	}

	d.Net = d.Gross.Sub(d.Discount).Add(d.Freight)
	d.Payment = DraftPayment{
		Method:            cart.Payment.Method,
		Installments:      cart.Payment.Installments,
		Total:             d.Net,
		InstallmentAmount: d.Net.Div(decimal.NewFromInt(int64(cart.Payment.Installments))).Round(2),
	}
	return d
}

// addQuantity sums line quantities, saturating at math.MaxInt so that a
// duplicated SKU can never wrap below the available stock.
func addQuantity(total, q int) int {
	if q > math.MaxInt-total {
		return math.MaxInt
	}
	return total + q
}
