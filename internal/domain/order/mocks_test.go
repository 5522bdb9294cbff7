package order

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/order-pipeline/internal/domain/product"
)

// --- Mock implementations ---

// memStore is an in-memory catalog, order repository and inventory store.
type memStore struct {
	mu       sync.Mutex
	products map[string]*product.Product
	orders   []*Order

	catalogErr error
	createErr  error
	adjustErr  map[string]error
	lookups    int
	adjusted   []string

	// beforeLookup runs before each catalog read, outside the lock.
	beforeLookup func()
}

func newMemStore(products ...product.Product) *memStore {
	m := &memStore{
		products:  make(map[string]*product.Product, len(products)),
		adjustErr: map[string]error{},
	}
	for i := range products {
		p := products[i]
		m.products[p.SKU] = &p
	}
	return m
}

func (m *memStore) GetBySKUs(_ context.Context, skus []string) ([]product.Product, error) {
	if m.beforeLookup != nil {
		m.beforeLookup()
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.lookups++
	if m.catalogErr != nil {
		return nil, m.catalogErr
	}
	var out []product.Product
	for _, sku := range skus {
		if p, ok := m.products[sku]; ok {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *memStore) Create(_ context.Context, d *Draft) (*Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.createErr != nil {
		return nil, m.createErr
	}
	id := fmt.Sprintf("order-%d", len(m.orders)+1)
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	o := &Order{
		ID:           id,
		CustomerID:   d.CustomerID,
		Gross:        d.Gross,
		Discount:     d.Discount,
		Freight:      d.Freight,
		Net:          d.Net,
		DeliveryDate: d.DeliveryDate,
		Status:       d.Status,
		CreatedAt:    now,
		UpdatedAt:    now,
		Address:      Address{ID: id + "-addr", OrderID: id, CreatedAt: now, AddressFields: d.Address},
		Payment: Payment{
			ID:                id + "-pay",
			OrderID:           id,
			Method:            d.Payment.Method,
			Installments:      d.Payment.Installments,
			Total:             d.Payment.Total,
			InstallmentAmount: d.Payment.InstallmentAmount,
			CreatedAt:         now,
		},
	}
	for i, it := range d.Items {
		o.Items = append(o.Items, Item{
			ID:        fmt.Sprintf("%s-item-%d", id, i+1),
			OrderID:   id,
			SKU:       it.SKU,
			UnitPrice: it.UnitPrice,
			Quantity:  it.Quantity,
			Gross:     it.Gross,
			Discount:  it.Discount,
			Net:       it.Net,
			Freight:   it.Freight,
			CreatedAt: now,
		})
	}
	m.orders = append(m.orders, o)
	return o, nil
}

// Adjust mirrors the unconditional SQL update: stock may go negative.
func (m *memStore) Adjust(_ context.Context, sku string, qty int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.adjustErr[sku]; err != nil {
		return err
	}
	p, ok := m.products[sku]
	if !ok {
		return product.ErrNotFound
	}
	p.Stock -= qty
	p.Sales += qty
	m.adjusted = append(m.adjusted, sku)
	return nil
}

func (m *memStore) product(sku string) product.Product {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.products[sku]
}

type mockLedger struct {
	mu       sync.Mutex
	failures []AdjustmentFailure
	err      error
}

func (m *mockLedger) Record(_ context.Context, f AdjustmentFailure) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures = append(m.failures, f)
	return m.err
}

type mockPublisher struct {
	mu     sync.Mutex
	topics []string
	keys   []string
	err    error
}

func (m *mockPublisher) PublishEvent(_ context.Context, topic, key string, _ any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.topics = append(m.topics, topic)
	m.keys = append(m.keys, key)
	return m.err
}

type countingRunner struct {
	mu    sync.Mutex
	calls int
}

func (r *countingRunner) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	r.mu.Lock()
	r.calls++
	r.mu.Unlock()
	return fn(ctx)
}

// --- Helpers ---

var fixedNow = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func newTestProduct(sku, price string, stock int) product.Product {
	return product.Product{
		SKU:   sku,
		Price: decimal.RequireFromString(price),
		Stock: stock,
	}
}

func newTestCart(pct string, lines ...LineRequest) Cart {
	return Cart{
		CustomerID: "customer-1",
		Address: AddressFields{
			RecipientName: "Maria Silva",
			PostalCode:    "29055131",
			Street:        "Avenida Nossa Senhora da Penha",
			Number:        "1000",
			District:      "Praia do Canto",
			CityCode:      "3205309",
			StateCode:     "32",
		},
		Payment: PaymentIntent{
			Method:             PaymentCredit,
			Installments:       1,
			DiscountPercentage: decimal.RequireFromString(pct),
		},
		Lines: lines,
	}
}

func money(s string) decimal.Decimal { return decimal.RequireFromString(s) }
