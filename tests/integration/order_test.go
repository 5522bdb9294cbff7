//go:build integration

package integration

import (
	"net/http"
	"regexp"
	"sync"
	"testing"
	"time"
)

var uuidPattern = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

func validOrder(items ...itemRequest) orderRequest {
	return orderRequest{
		Address: addressRequest{
			RecipientName: "Ana Souza",
			PostalCode:    "29055131",
			Street:        "Avenida Nossa Senhora da Penha",
			Number:        "1000",
			District:      "Praia do Canto",
			CityCode:      "3205309",
			StateCode:     "32", // freight 10.00
		},
		Payment: paymentRequest{Method: "C", Installments: 2, DiscountPercentage: 0.10},
		Items:   items,
	}
}

func expectError(t *testing.T, resp *http.Response, status int, kind string) errorResponse {
	t.Helper()

	if resp.StatusCode != status {
		t.Fatalf("expected %d, got %d", status, resp.StatusCode)
	}
	body := decodeJSON[errorResponse](t, resp)
	if body.Kind != kind {
		t.Fatalf("kind: got %q, want %q (%s)", body.Kind, kind, body.Message)
	}
	return body
}

func TestPlaceOrder_NoCustomer(t *testing.T) {
	resp := postOrder(t, "", validOrder(itemRequest{SKU: "A", Quantity: 1}))
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestPlaceOrder_EmptyItems(t *testing.T) {
	customer := "it-empty-items"
	resp := postOrder(t, customer, validOrder())
	defer resp.Body.Close()

	body := expectError(t, resp, http.StatusUnprocessableEntity, "invalid_input")
	if body.Field != "items" {
		t.Errorf("field: got %q, want items", body.Field)
	}
	if n := countOrders(t, customer); n != 0 {
		t.Errorf("orders created: %d", n)
	}
}

func TestPlaceOrder_ProductNotFound(t *testing.T) {
	customer := "it-not-found"
	resp := postOrder(t, customer, validOrder(
		itemRequest{SKU: "A", Quantity: 1},
		itemRequest{SKU: "NOPE", Quantity: 1},
	))
	defer resp.Body.Close()

	body := expectError(t, resp, http.StatusUnprocessableEntity, "product_not_found")
	if body.SKU != "NOPE" {
		t.Errorf("sku: got %q, want NOPE", body.SKU)
	}
	if n := countOrders(t, customer); n != 0 {
		t.Errorf("orders created: %d", n)
	}
}

func TestPlaceOrder_InsufficientStock(t *testing.T) {
	customer := "it-stock"
	before, _ := stockOf(t, "MONITOR-27")

	resp := postOrder(t, customer, validOrder(itemRequest{SKU: "MONITOR-27", Quantity: before + 1}))
	defer resp.Body.Close()

	body := expectError(t, resp, http.StatusUnprocessableEntity, "insufficient_stock")
	if body.SKU != "MONITOR-27" {
		t.Errorf("sku: got %q, want MONITOR-27", body.SKU)
	}
	if n := countOrders(t, customer); n != 0 {
		t.Errorf("orders created: %d", n)
	}
	if after, _ := stockOf(t, "MONITOR-27"); after != before {
		t.Errorf("stock changed: %d -> %d", before, after)
	}
}

func TestPlaceOrder_InvalidRegion(t *testing.T) {
	req := validOrder(itemRequest{SKU: "A", Quantity: 1})
	req.Address.StateCode = "99"

	resp := postOrder(t, "it-region", req)
	defer resp.Body.Close()

	expectError(t, resp, http.StatusUnprocessableEntity, "invalid_region")
}

func TestPlaceOrder_Priced(t *testing.T) {
	customer := "it-priced"
	stockA, salesA := stockOf(t, "A")
	stockB, salesB := stockOf(t, "B")

	resp := postOrder(t, customer, validOrder(
		itemRequest{SKU: "A", Quantity: 2}, // 10.00
		itemRequest{SKU: "B", Quantity: 1}, // 5.00
	))
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	body := decodeJSON[orderResponse](t, resp)
	o := body.Order

	if !uuidPattern.MatchString(o.ID) {
		t.Errorf("order ID %q is not a UUID", o.ID)
	}
	if o.CustomerID != customer {
		t.Errorf("customer: got %q, want %q", o.CustomerID, customer)
	}
	if o.Status != "P" {
		t.Errorf("status: got %q, want P", o.Status)
	}
	if o.Gross != 25 || o.Discount != 2.5 || o.Freight != 10 || o.Net != 32.5 {
		t.Errorf("totals: gross %v discount %v freight %v net %v", o.Gross, o.Discount, o.Freight, o.Net)
	}
	if d := o.DeliveryDate.Sub(o.CreatedAt); d < 71*time.Hour || d > 73*time.Hour {
		t.Errorf("delivery date %s is not three days after %s", o.DeliveryDate, o.CreatedAt)
	}
	if o.Payment.Total != 32.5 || o.Payment.InstallmentAmount != 16.25 {
		t.Errorf("payment: total %v installment %v", o.Payment.Total, o.Payment.InstallmentAmount)
	}
	if len(o.Items) != 2 {
		t.Fatalf("items: got %d, want 2", len(o.Items))
	}
	a, b := o.Items[0], o.Items[1]
	if a.SKU != "A" || a.Gross != 20 || a.Discount != 2 || a.Net != 18 || a.Freight != 5 {
		t.Errorf("line A: %+v", a)
	}
	if b.SKU != "B" || b.Gross != 5 || b.Discount != 0.5 || b.Net != 4.5 || b.Freight != 5 {
		t.Errorf("line B: %+v", b)
	}
	if body.InventoryWarning != nil {
		t.Errorf("unexpected inventory warning: %v", body.InventoryWarning.SKUs)
	}

	if n := countOrders(t, customer); n != 1 {
		t.Errorf("orders stored: got %d, want 1", n)
	}
	if stock, sales := stockOf(t, "A"); stock != stockA-2 || sales != salesA+2 {
		t.Errorf("A: stock %d sales %d, want %d %d", stock, sales, stockA-2, salesA+2)
	}
	if stock, sales := stockOf(t, "B"); stock != stockB-1 || sales != salesB+1 {
		t.Errorf("B: stock %d sales %d, want %d %d", stock, sales, stockB-1, salesB+1)
	}
}

func TestPlaceOrder_ClientPriceIgnored(t *testing.T) {
	body := map[string]any{
		"address": validOrder().Address,
		"payment": map[string]any{"method": "P", "installments": 1, "discountPercentage": 0},
		"items": []map[string]any{
			{"sku": "MOUSE-WL", "quantity": 1, "unitPrice": 0.01},
		},
	}
	resp := postOrder(t, "it-client-price", body)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	o := decodeJSON[orderResponse](t, resp).Order
	if o.Items[0].UnitPrice != 129.9 {
		t.Errorf("unit price: got %v, want catalog price 129.9", o.Items[0].UnitPrice)
	}
	if o.Net != 139.9 {
		t.Errorf("net: got %v, want 139.9", o.Net)
	}
}

// Stock is checked before commit and decremented after it without
// coordination, so concurrent orders for the last unit may all pass.
func TestPlaceOrder_LastUnitRace(t *testing.T) {
	const buyers = 4
	before, _ := stockOf(t, "LAST-UNIT")

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
	)
	for i := range buyers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp := postOrder(t, "it-race-"+string(rune('a'+i)), validOrder(itemRequest{SKU: "LAST-UNIT", Quantity: 1}))
			defer resp.Body.Close()

			switch resp.StatusCode {
			case http.StatusCreated:
				mu.Lock()
				created++
				mu.Unlock()
			case http.StatusUnprocessableEntity:
			default:
				t.Errorf("unexpected status %d", resp.StatusCode)
			}
		}()
	}
	wg.Wait()

	if created == 0 {
		t.Fatal("no order for the last unit was created")
	}
	after, _ := stockOf(t, "LAST-UNIT")
	if after != before-created {
		t.Errorf("stock: got %d, want %d after %d orders", after, before-created, created)
	}
	t.Logf("%d of %d concurrent orders for the last unit committed, stock now %d", created, buyers, after)
}
