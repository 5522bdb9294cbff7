package order

import (
	"testing"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorIsMatchesKind(t *testing.T) {
	err := errors.Wrap(ProductNotFound("SKU-1"), "price cart")

	assert.ErrorIs(t, err, ErrProductNotFound)
	assert.NotErrorIs(t, err, ErrInsufficientStock)
	assert.Equal(t, KindProductNotFound, KindOf(err))

	var oerr *Error
	require.ErrorAs(t, err, &oerr)
	assert.Equal(t, "SKU-1", oerr.SKU)
	assert.Contains(t, err.Error(), `"SKU-1"`)
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := PersistenceFailure(cause)

	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, ErrPersistenceFailure)
	assert.Equal(t, "persist order: connection reset", err.Error())
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		err  error
		want Kind
	}{
		{err: errors.New("plain"), want: KindUnknown},
		{err: nil, want: KindUnknown},
		{err: InvalidInput("items", "no products"), want: KindInvalidInput},
		{err: InvalidRegion(99), want: KindInvalidRegion},
		{err: ResourceUnavailable(errors.New("x")), want: KindResourceUnavailable},
		{
			err:  &ReconciliationError{OrderID: "o", Failures: []*Error{ReconciliationFailure("A", errors.New("x"))}},
			want: KindReconciliationFailure,
		},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, KindOf(tt.err))
	}
}

func TestReconciliationError(t *testing.T) {
	cause := errors.New("deadlock detected")
	err := &ReconciliationError{
		OrderID: "order-1",
		Failures: []*Error{
			ReconciliationFailure("A", cause),
			ReconciliationFailure("B", errors.New("timeout")),
		},
	}

	assert.Equal(t, []string{"A", "B"}, err.SKUs())
	assert.ErrorIs(t, err, ErrReconciliationFailure)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "order-1")
	assert.Contains(t, err.Error(), `"B"`)
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "insufficient_stock", KindInsufficientStock.String())
	assert.Equal(t, "unknown", Kind(100).String())
}
