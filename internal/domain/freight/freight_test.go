package freight

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_CoversAllStates(t *testing.T) {
	table := Default()

	codes := table.Codes()
	require.Len(t, codes, 27)
	assert.Equal(t, 11, codes[0])
	assert.Equal(t, 53, codes[len(codes)-1])
}

func TestDefault_Tiers(t *testing.T) {
	table := Default()

	perAmount := map[string]int{}
	for _, code := range table.Codes() {
		amount, _ := table.Lookup(code)
		perAmount[amount.StringFixed(2)]++
	}
	assert.Equal(t, map[string]int{
		"0.00":  1,
		"5.00":  4,
		"10.00": 6,
		"15.00": 9,
		"20.00": 6,
		"25.00": 1,
	}, perAmount)
}

func TestLookup(t *testing.T) {
	table := Default()

	tests := []struct {
		name   string
		code   int
		want   string
		wantOK bool
	}{
		{name: "sao paulo is free", code: 35, want: "0.00", wantOK: true},
		{name: "rio de janeiro", code: 33, want: "5.00", wantOK: true},
		{name: "espirito santo", code: 32, want: "10.00", wantOK: true},
		{name: "rio grande do sul", code: 43, want: "15.00", wantOK: true},
		{name: "roraima", code: 14, want: "20.00", wantOK: true},
		{name: "rio grande do norte", code: 24, want: "25.00", wantOK: true},
		{name: "unknown code", code: 99, wantOK: false},
		{name: "municipality code is not a region", code: 3550308, wantOK: false},
		{name: "zero", code: 0, wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := table.Lookup(tt.code)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.True(t, decimal.RequireFromString(tt.want).Equal(got), "got %s", got)
			}
		})
	}
}

func TestNew_RejectsNegative(t *testing.T) {
	_, err := New(map[int]decimal.Decimal{35: decimal.NewFromInt(-1)})
	require.Error(t, err)
}

func TestNew_RoundsToCents(t *testing.T) {
	table, err := New(map[int]decimal.Decimal{35: decimal.RequireFromString("10.005")})
	require.NoError(t, err)

	got, ok := table.Lookup(35)
	require.True(t, ok)
	assert.Equal(t, "10.01", got.StringFixed(2))
}

func TestWithOverrides(t *testing.T) {
	base := Default()

	table, err := base.WithOverrides(map[int]decimal.Decimal{
		35: decimal.RequireFromString("7.50"),
		99: decimal.RequireFromString("1.00"),
	})
	require.NoError(t, err)

	got, ok := table.Lookup(35)
	require.True(t, ok)
	assert.Equal(t, "7.50", got.StringFixed(2))

	_, ok = table.Lookup(99)
	assert.True(t, ok)

	// The base table is untouched.
	got, _ = base.Lookup(35)
	assert.Equal(t, "0.00", got.StringFixed(2))
	_, ok = base.Lookup(99)
	assert.False(t, ok)
}
