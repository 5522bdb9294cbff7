package order

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

const (
	maxInstallments   = 12
	maxRecipientRunes = 120
	maxFieldRunes     = 60

	// MaxQuantity bounds a single line; order_items.quantity is an INTEGER.
	MaxQuantity = math.MaxInt32
)

// Cart is an untrusted order submission. CustomerID comes from the
// authentication layer, never from the payload.
type Cart struct {
	CustomerID string
	Address    AddressFields
	Payment    PaymentIntent
	Lines      []LineRequest
}

// PaymentIntent is the payment part of a cart. DiscountPercentage is a
// fraction in [0, 1].
type PaymentIntent struct {
	Method             PaymentMethod
	Installments       int
	DiscountPercentage decimal.Decimal
}

// LineRequest is one requested SKU and quantity.
type LineRequest struct {
	SKU      string
	Quantity int
}

// Validate checks the cart shape. It does not touch the catalog.
func (c *Cart) Validate() error {
	if strings.TrimSpace(c.CustomerID) == "" {
		return InvalidInput("customerId", "customer id is required")
	}
	if len(c.Lines) == 0 {
		return InvalidInput("items", "no products informed")
	}
	for i, l := range c.Lines {
		if strings.TrimSpace(l.SKU) == "" {
			return InvalidInput(fmt.Sprintf("items[%d].sku", i), "sku is required")
		}
		if l.Quantity < 1 || l.Quantity > MaxQuantity {
			e := InvalidInput(fmt.Sprintf("items[%d].quantity", i), "quantity must be between 1 and %d for sku %q", MaxQuantity, l.SKU)
			e.SKU = l.SKU
			return e
		}
	}
	if err := c.Address.validate(); err != nil {
		return err
	}
	return c.Payment.validate()
}

// RegionCode returns the state code as the freight lookup key.
func (a AddressFields) RegionCode() (int, error) {
	code, err := strconv.Atoi(a.StateCode)
	if err != nil {
		return 0, InvalidInput("address.stateCode", "state code %q must be a number", a.StateCode)
	}
	return code, nil
}

func (a AddressFields) validate() error {
	if n := utf8.RuneCountInString(strings.TrimSpace(a.RecipientName)); n == 0 || n > maxRecipientRunes {
		return InvalidInput("address.recipientName", "recipient name must have 1 to %d characters", maxRecipientRunes)
	}
	if !isDigits(a.PostalCode, 8) {
		return InvalidInput("address.postalCode", "postal code must have 8 digits")
	}
	for _, f := range []struct {
		field, name, value string
	}{
		{"address.street", "street", a.Street},
		{"address.number", "number", a.Number},
		{"address.district", "district", a.District},
	} {
		if !fieldLenOK(f.value) {
			return InvalidInput(f.field, "%s must have 1 to %d characters", f.name, maxFieldRunes)
		}
	}
	// Complement is optional but must not be blank when given.
	if a.Complement != "" && !fieldLenOK(a.Complement) {
		return InvalidInput("address.complement", "complement must have 1 to %d characters", maxFieldRunes)
	}
	if !isDigits(a.CityCode, 7) {
		return InvalidInput("address.cityCode", "city code must have 7 digits")
	}
	if !isDigits(a.StateCode, 2) {
		return InvalidInput("address.stateCode", "state code must have 2 digits")
	}
	return nil
}

func (p PaymentIntent) validate() error {
	if !p.Method.Valid() {
		return InvalidInput("payment.method", "payment method %q is not one of B, P, D, C", p.Method)
	}
	if p.Installments < 1 || p.Installments > maxInstallments {
		return InvalidInput("payment.installments", "installments must be between 1 and %d", maxInstallments)
	}
	pct := p.DiscountPercentage
	if pct.IsNegative() || pct.GreaterThan(decimal.NewFromInt(1)) {
		return InvalidInput("payment.discountPercentage", "discount percentage must be between 0 and 1")
	}
	if !pct.Equal(pct.Truncate(2)) {
		return InvalidInput("payment.discountPercentage", "discount percentage must have at most 2 decimal places")
	}
	return nil
}

func fieldLenOK(s string) bool {
	n := utf8.RuneCountInString(strings.TrimSpace(s))
	return n > 0 && n <= maxFieldRunes
}

func isDigits(s string, n int) bool {
	if len(s) != n {
		return false
	}
	for i := range len(s) {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
