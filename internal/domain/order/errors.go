package order

import (
	"fmt"
	"strings"

	"github.com/go-faster/errors"
)

// Kind classifies pipeline failures.
type Kind int

const (
	KindUnknown Kind = iota
	KindInvalidInput
	KindProductNotFound
	KindInsufficientStock
	KindInvalidRegion
	KindResourceUnavailable
	KindPersistenceFailure
	KindReconciliationFailure
)

func (k Kind) String() string {
	switch k {
	case KindInvalidInput:
		return "invalid_input"
	case KindProductNotFound:
		return "product_not_found"
	case KindInsufficientStock:
		return "insufficient_stock"
	case KindInvalidRegion:
		return "invalid_region"
	case KindResourceUnavailable:
		return "resource_unavailable"
	case KindPersistenceFailure:
		return "persistence_failure"
	case KindReconciliationFailure:
		return "reconciliation_failure"
	default:
		return "unknown"
	}
}

// Sentinel values for errors.Is matching by kind.
var (
	ErrInvalidInput          = &Error{Kind: KindInvalidInput, Message: "invalid input"}
	ErrProductNotFound       = &Error{Kind: KindProductNotFound, Message: "product not found"}
	ErrInsufficientStock     = &Error{Kind: KindInsufficientStock, Message: "insufficient stock"}
	ErrInvalidRegion         = &Error{Kind: KindInvalidRegion, Message: "invalid region"}
	ErrResourceUnavailable   = &Error{Kind: KindResourceUnavailable, Message: "resource unavailable"}
	ErrPersistenceFailure    = &Error{Kind: KindPersistenceFailure, Message: "persistence failure"}
	ErrReconciliationFailure = &Error{Kind: KindReconciliationFailure, Message: "reconciliation failure"}
)

// Error is a pipeline failure with a machine-readable kind. SKU and Field
// name the offending line or input field when known.
type Error struct {
	Kind    Kind
	Message string
	SKU     string
	Field   string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	var re *ReconciliationError
	if errors.As(err, &re) {
		return KindReconciliationFailure
	}
	return KindUnknown
}

// InvalidInput reports a malformed cart field.
func InvalidInput(field, format string, args ...any) *Error {
	return &Error{
		Kind:    KindInvalidInput,
		Message: fmt.Sprintf(format, args...),
		Field:   field,
	}
}

// ProductNotFound reports a SKU missing from the catalog.
func ProductNotFound(sku string) *Error {
	return &Error{
		Kind:    KindProductNotFound,
		Message: fmt.Sprintf("product with sku %q does not exist", sku),
		SKU:     sku,
	}
}

// InsufficientStock reports a SKU whose stock cannot cover the requested quantity.
func InsufficientStock(sku string, requested, available int) *Error {
	return &Error{
		Kind:    KindInsufficientStock,
		Message: fmt.Sprintf("product with sku %q is out of stock: requested %d, available %d", sku, requested, available),
		SKU:     sku,
	}
}

// InvalidRegion reports a regional code absent from the freight table.
func InvalidRegion(code int) *Error {
	return &Error{
		Kind:    KindInvalidRegion,
		Message: fmt.Sprintf("region %d not found in freight table", code),
		Field:   "address.stateCode",
	}
}

// ResourceUnavailable wraps a connection acquisition failure.
func ResourceUnavailable(err error) *Error {
	return &Error{
		Kind:    KindResourceUnavailable,
		Message: "database connection unavailable",
		Err:     err,
	}
}

// PersistenceFailure wraps a rolled back order transaction.
func PersistenceFailure(err error) *Error {
	return &Error{
		Kind:    KindPersistenceFailure,
		Message: "persist order",
		Err:     err,
	}
}

// ReconciliationFailure wraps a failed post-commit stock adjustment of sku.
func ReconciliationFailure(sku string, err error) *Error {
	return &Error{
		Kind:    KindReconciliationFailure,
		Message: fmt.Sprintf("adjust inventory for sku %q", sku),
		SKU:     sku,
		Err:     err,
	}
}

// ReconciliationError aggregates the per-SKU failures of one reconciliation
// run. The order it belongs to stays committed.
type ReconciliationError struct {
	OrderID  string
	Failures []*Error
}

func (e *ReconciliationError) Error() string {
	parts := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		parts[i] = f.Error()
	}
	return fmt.Sprintf("order %s: inventory partially reconciled: %s", e.OrderID, strings.Join(parts, "; "))
}

func (e *ReconciliationError) Unwrap() []error {
	errs := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		errs[i] = f
	}
	return errs
}

// SKUs returns the SKUs whose adjustment failed.
func (e *ReconciliationError) SKUs() []string {
	skus := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		skus[i] = f.SKU
	}
	return skus
}
