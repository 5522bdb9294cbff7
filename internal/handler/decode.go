package handler

import (
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/order-pipeline/internal/domain/order"
)

// decodeCart reads an order submission. Unknown fields are skipped; unit
// prices sent by clients are ignored along with them.
func decodeCart(d *jx.Decoder) (order.Cart, error) {
	var c order.Cart
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "address":
			err = decodeAddress(d, &c.Address)
		case "payment":
			err = decodePayment(d, &c.Payment)
		case "items":
			err = d.Arr(func(d *jx.Decoder) error {
				l, err := decodeLine(d)
				if err != nil {
					return err
				}
				c.Lines = append(c.Lines, l)
				return nil
			})
		default:
			return d.Skip()
		}
		if err != nil {
			return errors.Wrapf(err, "decode %q", key)
		}
		return nil
	})
	return c, err
}

func decodeAddress(d *jx.Decoder, a *order.AddressFields) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		var (
			dst  *string
			code bool
		)
		switch key {
		case "recipientName":
			dst = &a.RecipientName
		case "postalCode":
			dst, code = &a.PostalCode, true
		case "street":
			dst = &a.Street
		case "number":
			dst, code = &a.Number, true
		case "complement":
			dst = &a.Complement
		case "district":
			dst = &a.District
		case "cityCode":
			dst, code = &a.CityCode, true
		case "stateCode":
			dst, code = &a.StateCode, true
		default:
			return d.Skip()
		}
		var err error
		if code {
			*dst, err = decodeCode(d)
		} else {
			*dst, err = d.Str()
		}
		if err != nil {
			return errors.Wrapf(err, "decode %q", key)
		}
		return nil
	})
}

// decodeCode accepts codes sent either as strings or as JSON numbers.
func decodeCode(d *jx.Decoder) (string, error) {
	switch d.Next() {
	case jx.String:
		return d.Str()
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return "", err
		}
		if !n.IsInt() {
			return "", errors.Errorf("code %s is not an integer", n)
		}
		return n.String(), nil
	case jx.Null:
		return "", d.Null()
	default:
		return "", errors.Errorf("unexpected %s", d.Next())
	}
}

func decodePayment(d *jx.Decoder, p *order.PaymentIntent) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "method":
			s, err := d.Str()
			if err != nil {
				return errors.Wrap(err, `decode "method"`)
			}
			p.Method = order.PaymentMethod(s)
		case "installments":
			n, err := d.Int()
			if err != nil {
				return errors.Wrap(err, `decode "installments"`)
			}
			p.Installments = n
		case "discountPercentage":
			n, err := d.Num()
			if err != nil {
				return errors.Wrap(err, `decode "discountPercentage"`)
			}
			v, err := decimal.NewFromString(n.String())
			if err != nil {
				return errors.Wrap(err, `decode "discountPercentage"`)
			}
			p.DiscountPercentage = v
		default:
			return d.Skip()
		}
		return nil
	})
}

func decodeLine(d *jx.Decoder) (order.LineRequest, error) {
	var l order.LineRequest
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "sku":
			l.SKU, err = d.Str()
		case "quantity":
			l.Quantity, err = d.Int()
		default:
			return d.Skip()
		}
		if err != nil {
			return errors.Wrapf(err, "decode %q", key)
		}
		return nil
	})
	return l, err
}
