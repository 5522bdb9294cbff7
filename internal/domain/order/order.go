package order

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// StatusPending is the status of every newly created order.
const StatusPending = "P"

// DeliveryLeadTime is added to the submission time to get the delivery date.
const DeliveryLeadTime = 3 * 24 * time.Hour

// PaymentMethod is the single-letter payment method code.
type PaymentMethod string

const (
	PaymentBoleto PaymentMethod = "B"
	PaymentPix    PaymentMethod = "P"
	PaymentDebit  PaymentMethod = "D"
	PaymentCredit PaymentMethod = "C"
)

// Valid reports whether m is a known payment method.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentBoleto, PaymentPix, PaymentDebit, PaymentCredit:
		return true
	}
	return false
}

// Order is a persisted order with its address, payment and line items.
type Order struct {
	ID           string
	CustomerID   string
	Gross        decimal.Decimal
	Discount     decimal.Decimal
	Freight      decimal.Decimal
	Net          decimal.Decimal
	DeliveryDate time.Time
	Status       string
	CreatedAt    time.Time
	UpdatedAt    time.Time

	Address Address
	Payment Payment
	Items   []Item
}

// Address is the delivery address stored with an order.
type Address struct {
	ID        string
	OrderID   string
	CreatedAt time.Time
	AddressFields
}

// AddressFields are the denormalized delivery address columns.
type AddressFields struct {
	RecipientName string
	PostalCode    string
	Street        string
	Number        string
	Complement    string
	District      string
	CityCode      string
	StateCode     string
}

// Payment is the payment record stored with an order.
type Payment struct {
	ID                string
	OrderID           string
	Method            PaymentMethod
	Installments      int
	Total             decimal.Decimal
	InstallmentAmount decimal.Decimal
	CreatedAt         time.Time
}

// Item is a line item snapshot stored with an order.
type Item struct {
	ID        string
	OrderID   string
	SKU       string
	UnitPrice decimal.Decimal
	Quantity  int
	Gross     decimal.Decimal
	Discount  decimal.Decimal
	Net       decimal.Decimal
	Freight   decimal.Decimal
	CreatedAt time.Time
}

// Draft is a fully priced order that has not been persisted yet.
type Draft struct {
	CustomerID   string
	Address      AddressFields
	Payment      DraftPayment
	Items        []DraftItem
	Gross        decimal.Decimal
	Discount     decimal.Decimal
	Freight      decimal.Decimal
	Net          decimal.Decimal
	DeliveryDate time.Time
	Status       string
}

// DraftPayment is the priced payment of a Draft.
type DraftPayment struct {
	Method            PaymentMethod
	Installments      int
	Total             decimal.Decimal
	InstallmentAmount decimal.Decimal
}

// DraftItem is a priced line of a Draft.
type DraftItem struct {
	SKU       string
	UnitPrice decimal.Decimal
	Quantity  int
	Gross     decimal.Decimal
	Discount  decimal.Decimal
	Net       decimal.Decimal
	Freight   decimal.Decimal
}

// Repository persists priced drafts.
type Repository interface {
	// Create writes the draft and all its parts atomically and returns the
	// order as stored.
	Create(ctx context.Context, d *Draft) (*Order, error)
}

// InventoryAdjuster applies post-commit stock and sales adjustments.
type InventoryAdjuster interface {
	// Adjust decrements stock and increments sales of sku by quantity.
	Adjust(ctx context.Context, sku string, quantity int) error
}

// Runner executes blocking work on a bounded pool.
type Runner interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}

type inlineRunner struct{}

func (inlineRunner) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
