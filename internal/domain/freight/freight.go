// Package freight holds the flat freight table keyed by IBGE state code.
package freight

import (
	"sort"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Table maps a regional code to a flat freight amount. A Table is immutable
// once built and safe for concurrent use.
type Table struct {
	rates map[int]decimal.Decimal
}

// New builds a Table from the given rates. Negative amounts are rejected.
func New(rates map[int]decimal.Decimal) (*Table, error) {
	t := &Table{rates: make(map[int]decimal.Decimal, len(rates))}
	for code, amount := range rates {
		if amount.IsNegative() {
			return nil, errors.Errorf("freight for region %d is negative: %s", code, amount)
		}
		t.rates[code] = amount.Round(2)
	}
	return t, nil
}

// Default returns the built-in table covering the 27 Brazilian federative
// units by IBGE state code.
func Default() *Table {
	t, err := New(defaultRates())
	if err != nil {
		panic(err)
	}
	return t
}

// WithOverrides returns a copy of t with the given rates replacing or adding
// entries.
func (t *Table) WithOverrides(overrides map[int]decimal.Decimal) (*Table, error) {
	merged := make(map[int]decimal.Decimal, len(t.rates)+len(overrides))
	for code, amount := range t.rates {
		merged[code] = amount
	}
	for code, amount := range overrides {
		merged[code] = amount
	}
	return New(merged)
}

// Lookup returns the freight amount for code.
func (t *Table) Lookup(code int) (decimal.Decimal, bool) {
	amount, ok := t.rates[code]
	return amount, ok
}

// Codes returns the known regional codes in ascending order.
func (t *Table) Codes() []int {
	codes := make([]int, 0, len(t.rates))
	for code := range t.rates {
		codes = append(codes, code)
	}
	sort.Ints(codes)
	return codes
}

func defaultRates() map[int]decimal.Decimal {
	d := decimal.RequireFromString
	return map[int]decimal.Decimal{
		35: d("0.00"), // SP

		31: d("5.00"), // MG
		33: d("5.00"), // RJ
		41: d("5.00"), // PR
		50: d("5.00"), // MS

		32: d("10.00"), // ES
		29: d("10.00"), // BA
		52: d("10.00"), // GO
		51: d("10.00"), // MT
		53: d("10.00"), // DF
		42: d("10.00"), // SC

		43: d("15.00"), // RS
		11: d("15.00"), // RO
		13: d("15.00"), // AM
		15: d("15.00"), // PA
		17: d("15.00"), // TO
		22: d("15.00"), // PI
		26: d("15.00"), // PE
		27: d("15.00"), // AL
		28: d("15.00"), // SE

		12: d("20.00"), // AC
		14: d("20.00"), // RR
		16: d("20.00"), // AP
		21: d("20.00"), // MA
		23: d("20.00"), // CE
		25: d("20.00"), // PB

		24: d("25.00"), // RN
	}
}
