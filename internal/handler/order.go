package handler

import (
	"io"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/order-pipeline/internal/domain/order"
)

// PlaceOrder decodes a cart, runs the order pipeline and writes the created
// order. A partial inventory adjustment still answers 201 and adds an
// inventoryWarning to the body.
func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	customer := h.customers(r)
	if customer == "" {
		writeError(w, http.StatusUnauthorized, &order.Error{
			Kind:    order.KindInvalidInput,
			Message: "missing customer identity",
			Field:   CustomerHeader,
		})
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, order.InvalidInput("body", "read body: %s", err))
		return
	}
	cart, err := decodeCart(jx.DecodeBytes(body))
	if err != nil {
		writeError(w, http.StatusBadRequest, order.InvalidInput("body", "malformed order: %s", err))
		return
	}
	cart.CustomerID = customer

	res, err := h.orders.PlaceOrder(ctx, cart)
	if err != nil {
		status := statusOf(err)
		if status >= http.StatusInternalServerError {
			zctx.From(ctx).Error("Place order", zap.Error(err))
		}
		writeError(w, status, err)
		return
	}
	if res.Inventory != nil {
		zctx.From(ctx).Warn("Inventory reconciliation incomplete",
			zap.String("order_id", res.Order.ID),
			zap.Error(res.Inventory),
		)
	}

	e := jx.GetEncoder()
	defer jx.PutEncoder(e)
	encodeResult(e, res)
	writeJSON(w, http.StatusCreated, e.Bytes())
}

func encodeResult(e *jx.Encoder, res *order.Result) {
	e.ObjStart()
	e.FieldStart("order")
	res.Order.Encode(e)

	var re *order.ReconciliationError
	if errors.As(res.Inventory, &re) {
		e.FieldStart("inventoryWarning")
		e.ObjStart()
		e.FieldStart("message")
		e.Str("inventory adjustment failed for some items")
		e.FieldStart("skus")
		e.ArrStart()
		for _, sku := range re.SKUs() {
			e.Str(sku)
		}
		e.ArrEnd()
		e.ObjEnd()
	}
	e.ObjEnd()
}

// statusOf maps a pipeline error kind to an HTTP status.
func statusOf(err error) int {
	switch order.KindOf(err) {
	case order.KindInvalidInput,
		order.KindProductNotFound,
		order.KindInsufficientStock,
		order.KindInvalidRegion:
		return http.StatusUnprocessableEntity
	case order.KindResourceUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)

	kind := order.KindOf(err)
	e.ObjStart()
	e.FieldStart("code")
	e.Int(status)
	e.FieldStart("kind")
	e.Str(kind.String())
	e.FieldStart("message")

	var oe *order.Error
	switch {
	case status >= http.StatusInternalServerError && kind == order.KindUnknown:
		e.Str(http.StatusText(status))
	case errors.As(err, &oe):
		e.Str(oe.Message)
		if oe.SKU != "" {
			e.FieldStart("sku")
			e.Str(oe.SKU)
		}
		if oe.Field != "" {
			e.FieldStart("field")
			e.Str(oe.Field)
		}
	default:
		e.Str(err.Error())
	}
	e.ObjEnd()

	writeJSON(w, status, e.Bytes())
}

func writeJSON(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
