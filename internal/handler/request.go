package handler

import (
	"io"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
)

const maxBodyBytes = 1 << 20

// calculatePriceRequest is the intake shape of POST /api/calculate-price.
// Pointer fields distinguish absent or null from zero values.
type calculatePriceRequest struct {
	Product    *int64  `json:"product" validate:"notnil,gt=0"`
	TaxNumber  *string `json:"taxNumber" validate:"required"`
	CouponCode string  `json:"couponCode"`
}

type purchaseRequest struct {
	calculatePriceRequest
	PaymentProcessor *string          `json:"paymentProcessor" validate:"required,oneof=paypal stripe"`
	Amount           *decimal.Decimal `json:"amount" validate:"notnil,gt=0"`
}

type couponDiscountRequest struct {
	CouponCode *string          `json:"couponCode" validate:"required"`
	Amount     *decimal.Decimal `json:"amount" validate:"notnil,gte=0"`
}

// typeError reports a JSON value of the wrong kind for a known field.
type typeError struct {
	Field string
	Want  string
}

func (e *typeError) Error() string {
	return "This value should be of type " + e.Want + "."
}

// errMalformed wraps body syntax errors.
var errMalformed = errors.New("malformed JSON body")

func readBody(r *http.Request) (*jx.Decoder, error) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return nil, errors.Wrap(err, "read body")
	}
	return jx.DecodeBytes(data), nil
}

func decodeObject(d *jx.Decoder, field func(d *jx.Decoder, key string) error) error {
	if d.Next() != jx.Object {
		return errMalformed
	}
	err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		return field(d, string(key))
	})
	var te *typeError
	if err != nil && !errors.As(err, &te) {
		return errors.Wrap(errMalformed, err.Error())
	}
	return err
}

func (req *calculatePriceRequest) field(d *jx.Decoder, key string) (bool, error) {
	switch key {
	case "product":
		return true, decodeInt(d, key, &req.Product)
	case "taxNumber":
		return true, decodeString(d, key, &req.TaxNumber)
	case "couponCode":
		var code *string
		if err := decodeString(d, key, &code); err != nil {
			return true, err
		}
		if code != nil {
			req.CouponCode = *code
		}
		return true, nil
	default:
		return false, nil
	}
}

func (req *calculatePriceRequest) Decode(d *jx.Decoder) error {
	return decodeObject(d, func(d *jx.Decoder, key string) error {
		ok, err := req.field(d, key)
		if !ok {
			return d.Skip()
		}
		return err
	})
}

func (req *purchaseRequest) Decode(d *jx.Decoder) error {
	return decodeObject(d, func(d *jx.Decoder, key string) error {
		if ok, err := req.field(d, key); ok {
			return err
		}
		switch key {
		case "paymentProcessor":
			return decodeString(d, key, &req.PaymentProcessor)
		case "amount":
			return decodeDecimal(d, key, &req.Amount)
		default:
			return d.Skip()
		}
	})
}

func (req *couponDiscountRequest) Decode(d *jx.Decoder) error {
	return decodeObject(d, func(d *jx.Decoder, key string) error {
		switch key {
		case "couponCode":
			return decodeString(d, key, &req.CouponCode)
		case "amount":
			return decodeDecimal(d, key, &req.Amount)
		default:
			return d.Skip()
		}
	})
}

// skipNull consumes a JSON null and reports whether it did.
func skipNull(d *jx.Decoder) (bool, error) {
	if d.Next() != jx.Null {
		return false, nil
	}
	return true, d.Null()
}

func decodeInt(d *jx.Decoder, key string, dst **int64) error {
	if null, err := skipNull(d); null || err != nil {
		return err
	}
	if d.Next() != jx.Number {
		return skipWithTypeError(d, key, "int")
	}
	num, err := d.Num()
	if err != nil {
		return err
	}
	if !num.IsInt() {
		return &typeError{Field: key, Want: "int"}
	}
	v, err := num.Int64()
	if err != nil {
		return &typeError{Field: key, Want: "int"}
	}
	*dst = &v
	return nil
}

func decodeString(d *jx.Decoder, key string, dst **string) error {
	if null, err := skipNull(d); null || err != nil {
		return err
	}
	if d.Next() != jx.String {
		return skipWithTypeError(d, key, "string")
	}
	v, err := d.Str()
	if err != nil {
		return err
	}
	*dst = &v
	return nil
}

func decodeDecimal(d *jx.Decoder, key string, dst **decimal.Decimal) error {
	if null, err := skipNull(d); null || err != nil {
		return err
	}
	if d.Next() != jx.Number {
		return skipWithTypeError(d, key, "float")
	}
	num, err := d.Num()
	if err != nil {
		return err
	}
	v, err := decimal.NewFromString(num.String())
	if err != nil {
		return &typeError{Field: key, Want: "float"}
	}
	*dst = &v
	return nil
}

func skipWithTypeError(d *jx.Decoder, key, want string) error {
	if err := d.Skip(); err != nil {
		return err
	}
	return &typeError{Field: key, Want: want}
}
