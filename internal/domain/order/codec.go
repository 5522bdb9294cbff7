package order

import (
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
)

func encodeMoney(e *jx.Encoder, name string, v decimal.Decimal) {
	e.FieldStart(name)
	e.Raw([]byte(v.StringFixed(2)))
}

func encodeTime(e *jx.Encoder, name string, v time.Time) {
	e.FieldStart(name)
	e.Str(v.UTC().Format(time.RFC3339Nano))
}

func decodeMoney(d *jx.Decoder) (decimal.Decimal, error) {
	n, err := d.Num()
	if err != nil {
		return decimal.Decimal{}, err
	}
	return decimal.NewFromString(n.String())
}

func decodeTime(d *jx.Decoder) (time.Time, error) {
	s, err := d.Str()
	if err != nil {
		return time.Time{}, err
	}
	return time.Parse(time.RFC3339Nano, s)
}

func encodeAddressFields(e *jx.Encoder, a AddressFields) {
	e.FieldStart("recipientName")
	e.Str(a.RecipientName)
	e.FieldStart("postalCode")
	e.Str(a.PostalCode)
	e.FieldStart("street")
	e.Str(a.Street)
	e.FieldStart("number")
	e.Str(a.Number)
	if a.Complement != "" {
		e.FieldStart("complement")
		e.Str(a.Complement)
	}
	e.FieldStart("district")
	e.Str(a.District)
	e.FieldStart("cityCode")
	e.Str(a.CityCode)
	e.FieldStart("stateCode")
	e.Str(a.StateCode)
}

func decodeAddressField(d *jx.Decoder, key string, a *AddressFields) (handled bool, err error) {
	var dst *string
	switch key {
	case "recipientName":
		dst = &a.RecipientName
	case "postalCode":
		dst = &a.PostalCode
	case "street":
		dst = &a.Street
	case "number":
		dst = &a.Number
	case "complement":
		dst = &a.Complement
	case "district":
		dst = &a.District
	case "cityCode":
		dst = &a.CityCode
	case "stateCode":
		dst = &a.StateCode
	default:
		return false, nil
	}
	*dst, err = d.Str()
	return true, err
}

// Encode writes the draft as JSON.
func (dr *Draft) Encode(e *jx.Encoder) {
	e.ObjStart()
	e.FieldStart("customerId")
	e.Str(dr.CustomerID)
	e.FieldStart("address")
	e.ObjStart()
	encodeAddressFields(e, dr.Address)
	e.ObjEnd()
	e.FieldStart("payment")
	e.ObjStart()
	e.FieldStart("method")
	e.Str(string(dr.Payment.Method))
	e.FieldStart("installments")
	e.Int(dr.Payment.Installments)
	encodeMoney(e, "total", dr.Payment.Total)
	encodeMoney(e, "installmentAmount", dr.Payment.InstallmentAmount)
	e.ObjEnd()
	e.FieldStart("items")
	e.ArrStart()
	for _, it := range dr.Items {
		e.ObjStart()
		e.FieldStart("sku")
		e.Str(it.SKU)
		encodeMoney(e, "unitPrice", it.UnitPrice)
		e.FieldStart("quantity")
		e.Int(it.Quantity)
		encodeMoney(e, "gross", it.Gross)
		encodeMoney(e, "discount", it.Discount)
		encodeMoney(e, "net", it.Net)
		encodeMoney(e, "freight", it.Freight)
		e.ObjEnd()
	}
	e.ArrEnd()
	encodeMoney(e, "gross", dr.Gross)
	encodeMoney(e, "discount", dr.Discount)
	encodeMoney(e, "freight", dr.Freight)
	encodeMoney(e, "net", dr.Net)
	encodeTime(e, "deliveryDate", dr.DeliveryDate)
	e.FieldStart("status")
	e.Str(dr.Status)
	e.ObjEnd()
}

// Decode reads a draft previously written by Encode.
func (dr *Draft) Decode(d *jx.Decoder) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "customerId":
			dr.CustomerID, err = d.Str()
		case "address":
			err = d.Obj(func(d *jx.Decoder, key string) error {
				handled, err := decodeAddressField(d, key, &dr.Address)
				if !handled {
					return d.Skip()
				}
				return err
			})
		case "payment":
			err = dr.Payment.decode(d)
		case "items":
			dr.Items = dr.Items[:0]
			err = d.Arr(func(d *jx.Decoder) error {
				var it DraftItem
				if err := it.decode(d); err != nil {
					return err
				}
				dr.Items = append(dr.Items, it)
				return nil
			})
		case "gross":
			dr.Gross, err = decodeMoney(d)
		case "discount":
			dr.Discount, err = decodeMoney(d)
		case "freight":
			dr.Freight, err = decodeMoney(d)
		case "net":
			dr.Net, err = decodeMoney(d)
		case "deliveryDate":
			dr.DeliveryDate, err = decodeTime(d)
		case "status":
			dr.Status, err = d.Str()
		default:
			err = d.Skip()
		}
		if err != nil {
			return errors.Wrapf(err, "decode %q", key)
		}
		return nil
	})
}

func (p *DraftPayment) decode(d *jx.Decoder) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "method":
			var s string
			s, err = d.Str()
			p.Method = PaymentMethod(s)
		case "installments":
			p.Installments, err = d.Int()
		case "total":
			p.Total, err = decodeMoney(d)
		case "installmentAmount":
			p.InstallmentAmount, err = decodeMoney(d)
		default:
			err = d.Skip()
		}
		return err
	})
}

func (it *DraftItem) decode(d *jx.Decoder) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "sku":
			it.SKU, err = d.Str()
		case "unitPrice":
			it.UnitPrice, err = decodeMoney(d)
		case "quantity":
			it.Quantity, err = d.Int()
		case "gross":
			it.Gross, err = decodeMoney(d)
		case "discount":
			it.Discount, err = decodeMoney(d)
		case "net":
			it.Net, err = decodeMoney(d)
		case "freight":
			it.Freight, err = decodeMoney(d)
		default:
			err = d.Skip()
		}
		return err
	})
}

// Encode writes the order with its nested parts as JSON.
func (o *Order) Encode(e *jx.Encoder) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(o.ID)
	e.FieldStart("customerId")
	e.Str(o.CustomerID)
	encodeMoney(e, "gross", o.Gross)
	encodeMoney(e, "discount", o.Discount)
	encodeMoney(e, "freight", o.Freight)
	encodeMoney(e, "net", o.Net)
	encodeTime(e, "deliveryDate", o.DeliveryDate)
	e.FieldStart("status")
	e.Str(o.Status)
	encodeTime(e, "createdAt", o.CreatedAt)
	encodeTime(e, "updatedAt", o.UpdatedAt)

	e.FieldStart("address")
	e.ObjStart()
	e.FieldStart("id")
	e.Str(o.Address.ID)
	encodeAddressFields(e, o.Address.AddressFields)
	e.ObjEnd()

	e.FieldStart("payment")
	e.ObjStart()
	e.FieldStart("id")
	e.Str(o.Payment.ID)
	e.FieldStart("method")
	e.Str(string(o.Payment.Method))
	e.FieldStart("installments")
	e.Int(o.Payment.Installments)
	encodeMoney(e, "total", o.Payment.Total)
	encodeMoney(e, "installmentAmount", o.Payment.InstallmentAmount)
	e.ObjEnd()

	e.FieldStart("items")
	e.ArrStart()
	for _, it := range o.Items {
		e.ObjStart()
		e.FieldStart("id")
		e.Str(it.ID)
		e.FieldStart("sku")
		e.Str(it.SKU)
		encodeMoney(e, "unitPrice", it.UnitPrice)
		e.FieldStart("quantity")
		e.Int(it.Quantity)
		encodeMoney(e, "gross", it.Gross)
		encodeMoney(e, "discount", it.Discount)
		encodeMoney(e, "net", it.Net)
		encodeMoney(e, "freight", it.Freight)
		e.ObjEnd()
	}
	e.ArrEnd()
	e.ObjEnd()
}
