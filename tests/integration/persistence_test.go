//go:build integration

package integration

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/xenking/order-pipeline/internal/domain/order"
	"github.com/xenking/order-pipeline/internal/storage/postgres"
)

func newOrderRepository() *postgres.OrderRepository {
	return postgres.NewOrderRepository(postgres.NewAcquirer(db, postgres.DefaultRetryConfig))
}

func persistedDraft(customer string, items ...order.DraftItem) *order.Draft {
	m := decimal.RequireFromString
	return &order.Draft{
		CustomerID: customer,
		Address: order.AddressFields{
			RecipientName: "Ana Souza",
			PostalCode:    "29055131",
			Street:        "Avenida Nossa Senhora da Penha",
			Number:        "1000",
			District:      "Praia do Canto",
			CityCode:      "3205309",
			StateCode:     "32",
		},
		Payment: order.DraftPayment{
			Method:            order.PaymentPix,
			Installments:      1,
			Total:             m("20.00"),
			InstallmentAmount: m("20.00"),
		},
		Items:        items,
		Gross:        m("10.00"),
		Discount:     m("0.00"),
		Freight:      m("10.00"),
		Net:          m("20.00"),
		DeliveryDate: time.Date(2030, 1, 2, 3, 4, 5, 123456789, time.UTC),
		Status:       order.StatusPending,
	}
}

func draftItem(sku string, quantity int) order.DraftItem {
	m := decimal.RequireFromString
	return order.DraftItem{
		SKU:       sku,
		UnitPrice: m("10.00"),
		Quantity:  quantity,
		Gross:     m("10.00"),
		Discount:  m("0.00"),
		Net:       m("10.00"),
		Freight:   m("5.00"),
	}
}

// countRows returns the row count of every order table for customer.
func countRows(t *testing.T, customer string) map[string]int {
	t.Helper()

	const child = `SELECT count(*) FROM %s c JOIN orders o ON o.id = c.order_id WHERE o.customer_id = $1`
	queries := map[string]string{
		"orders":             `SELECT count(*) FROM orders WHERE customer_id = $1`,
		"delivery_addresses": fmt.Sprintf(child, "delivery_addresses"),
		"payments":           fmt.Sprintf(child, "payments"),
		"order_items":        fmt.Sprintf(child, "order_items"),
	}
	counts := make(map[string]int, len(queries))
	for table, q := range queries {
		var n int
		if err := db.QueryRow(context.Background(), q, customer).Scan(&n); err != nil {
			t.Fatalf("count %s: %v", table, err)
		}
		counts[table] = n
	}
	return counts
}

// tableTotals counts all rows of the child tables, which do not carry the
// customer id themselves.
func tableTotals(t *testing.T) [3]int {
	t.Helper()

	var out [3]int
	for i, table := range []string{"delivery_addresses", "payments", "order_items"} {
		if err := db.QueryRow(context.Background(), `SELECT count(*) FROM `+table).Scan(&out[i]); err != nil {
			t.Fatalf("count %s: %v", table, err)
		}
	}
	return out
}

func TestOrderRepository_FailedItemRollsBackEverything(t *testing.T) {
	customer := "rollback-" + uuid.NewString()
	before := tableTotals(t)

	// The second item violates CHECK (quantity > 0) after the header,
	// address, payment and first item were already written.
	_, err := newOrderRepository().Create(context.Background(),
		persistedDraft(customer, draftItem("A", 1), draftItem("B", 0)))
	if !errors.Is(err, order.ErrPersistenceFailure) {
		t.Fatalf("expected persistence failure, got %v", err)
	}

	for table, n := range countRows(t, customer) {
		if n != 0 {
			t.Errorf("%s: %d rows left after rollback", table, n)
		}
	}
	if after := tableTotals(t); after != before {
		t.Errorf("child tables changed: before %v, after %v", before, after)
	}
}

func TestOrderRepository_ReturnsStoredValues(t *testing.T) {
	customer := "stored-" + uuid.NewString()

	o, err := newOrderRepository().Create(context.Background(),
		persistedDraft(customer, draftItem("A", 1)))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	var stored time.Time
	err = db.QueryRow(context.Background(),
		`SELECT delivery_date FROM orders WHERE id = $1`, o.ID,
	).Scan(&stored)
	if err != nil {
		t.Fatalf("read delivery date: %v", err)
	}
	// TIMESTAMPTZ keeps microseconds; the returned order must match the row.
	if !o.DeliveryDate.Equal(stored) {
		t.Errorf("delivery date: returned %v, stored %v", o.DeliveryDate, stored)
	}
	if o.DeliveryDate.Nanosecond()%int(time.Microsecond) != 0 {
		t.Errorf("delivery date not truncated to microseconds: %v", o.DeliveryDate)
	}

	got := countRows(t, customer)
	want := map[string]int{"orders": 1, "delivery_addresses": 1, "payments": 1, "order_items": 1}
	for table, n := range want {
		if got[table] != n {
			t.Errorf("%s: got %d rows, want %d", table, got[table], n)
		}
	}
}
