package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/xenking/order-pipeline/internal/domain/order"
)

// CustomerHeader carries the verified customer id set by the upstream gateway.
const CustomerHeader = "X-Customer-ID"

// maxBodyBytes caps the order payload size.
const maxBodyBytes = 1 << 20

// OrderPlacer runs the order creation pipeline.
type OrderPlacer interface {
	PlaceOrder(ctx context.Context, cart order.Cart) (*order.Result, error)
}

// CustomerResolver returns the authenticated customer for a request, or ""
// when the request carries none.
type CustomerResolver func(r *http.Request) string

// CustomerFromHeader reads the customer id from CustomerHeader.
func CustomerFromHeader(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(CustomerHeader))
}

// Handler serves the order API.
type Handler struct {
	orders    OrderPlacer
	customers CustomerResolver
}

// NewHandler constructs a Handler. A nil resolver defaults to
// CustomerFromHeader.
func NewHandler(orders OrderPlacer, customers CustomerResolver) *Handler {
	if customers == nil {
		customers = CustomerFromHeader
	}
	return &Handler{
		orders:    orders,
		customers: customers,
	}
}

// Mount registers the API routes on r.
func (h *Handler) Mount(r chi.Router) {
	r.Post("/orders", h.PlaceOrder)
}
