package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/xenking/order-pipeline/internal/domain/order"
)

const (
	insertOrderSQL = `INSERT INTO orders
		(id, customer_id, gross, discount, freight, net, delivery_date, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING delivery_date, created_at, updated_at`

	insertAddressSQL = `INSERT INTO delivery_addresses
		(id, order_id, recipient_name, postal_code, street, number, complement, district, city_code, state_code)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8, $9, $10)
		RETURNING created_at`

	insertPaymentSQL = `INSERT INTO payments
		(id, order_id, method, installments, total, installment_amount)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`

	insertItemSQL = `INSERT INTO order_items
		(id, order_id, sku, unit_price, quantity, gross, discount, net, freight)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository.
type OrderRepository struct {
	conns *Acquirer
	newID func() uuid.UUID
}

// NewOrderRepository returns an OrderRepository using conns.
func NewOrderRepository(conns *Acquirer) *OrderRepository {
	return &OrderRepository{conns: conns, newID: uuid.New}
}

// Create writes the order header, address, payment and items in one
// transaction and returns the order as stored. Acquisition honors ctx; once
// the transaction begins it runs to commit or rollback regardless of ctx.
func (r *OrderRepository) Create(ctx context.Context, d *order.Draft) (*order.Order, error) {
	conn, err := r.conns.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	txCtx := context.WithoutCancel(ctx)
	var o *order.Order
	err = pgx.BeginFunc(txCtx, conn, func(tx pgx.Tx) error {
		var err error
		o, err = r.insert(txCtx, tx, d)
		return err
	})
	if err != nil {
		return nil, order.PersistenceFailure(err)
	}
	return o, nil
}

func (r *OrderRepository) insert(ctx context.Context, tx pgx.Tx, d *order.Draft) (*order.Order, error) {
	orderID := r.newID()
	o := &order.Order{
		ID:           orderID.String(),
		CustomerID:   d.CustomerID,
		Gross:        d.Gross,
		Discount:     d.Discount,
		Freight:      d.Freight,
		Net:          d.Net,
		Status:       d.Status,
	}

	if err := tx.QueryRow(ctx, insertOrderSQL,
		orderID, d.CustomerID, d.Gross, d.Discount, d.Freight, d.Net, d.DeliveryDate, d.Status,
	).Scan(&o.DeliveryDate, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, errors.Wrap(err, "insert order")
	}

	addrID := r.newID()
	o.Address = order.Address{ID: addrID.String(), OrderID: o.ID, AddressFields: d.Address}
	a := d.Address
	if err := tx.QueryRow(ctx, insertAddressSQL,
		addrID, orderID, a.RecipientName, a.PostalCode, a.Street, a.Number, a.Complement,
		a.District, a.CityCode, a.StateCode,
	).Scan(&o.Address.CreatedAt); err != nil {
		return nil, errors.Wrap(err, "insert delivery address")
	}

	payID := r.newID()
	o.Payment = order.Payment{
		ID:                payID.String(),
		OrderID:           o.ID,
		Method:            d.Payment.Method,
		Installments:      d.Payment.Installments,
		Total:             d.Payment.Total,
		InstallmentAmount: d.Payment.InstallmentAmount,
	}
	if err := tx.QueryRow(ctx, insertPaymentSQL,
		payID, orderID, string(d.Payment.Method), d.Payment.Installments,
		d.Payment.Total, d.Payment.InstallmentAmount,
	).Scan(&o.Payment.CreatedAt); err != nil {
		return nil, errors.Wrap(err, "insert payment")
	}

	b := &pgx.Batch{}
	o.Items = make([]order.Item, len(d.Items))
	for i, it := range d.Items {
		itemID := r.newID()
		o.Items[i] = order.Item{
			ID:        itemID.String(),
			OrderID:   o.ID,
			SKU:       it.SKU,
			UnitPrice: it.UnitPrice,
			Quantity:  it.Quantity,
			Gross:     it.Gross,
			Discount:  it.Discount,
			Net:       it.Net,
			Freight:   it.Freight,
		}
		b.Queue(insertItemSQL,
			itemID, orderID, it.SKU, it.UnitPrice, it.Quantity, it.Gross, it.Discount, it.Net, it.Freight,
		)
	}
	br := tx.SendBatch(ctx, b)
	for i := range o.Items {
		if err := br.QueryRow().Scan(&o.Items[i].CreatedAt); err != nil {
			_ = br.Close()
			return nil, errors.Wrapf(err, "insert item %s", o.Items[i].SKU)
		}
	}
	if err := br.Close(); err != nil {
		return nil, errors.Wrap(err, "insert items")
	}

	return o, nil
}
