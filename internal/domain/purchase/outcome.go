package purchase

import (
	"strconv"

	"github.com/shopspring/decimal"
)

// Outcome is the result of a quote or purchase: *Quoted, *Authorized or
// *Rejected.
type Outcome interface {
	outcome()
}

// NoCouponLabel is shown instead of a coupon code when none was applied.
const NoCouponLabel = "Coupon is not valid"

// Quoted carries a computed price.
type Quoted struct {
	ProductName string
	Price       decimal.Decimal
	// CouponCode is empty when no coupon was applied.
	CouponCode string
	TaxPercent int
}

// CouponLabel returns the applied coupon code or NoCouponLabel.
func (q *Quoted) CouponLabel() string {
	if q.CouponCode == "" {
		return NoCouponLabel
	}
	return q.CouponCode
}

// TaxLabel formats the tax percentage, e.g. "24%".
func (q *Quoted) TaxLabel() string {
	return strconv.Itoa(q.TaxPercent) + "%"
}

// Authorized reports a successful payment.
type Authorized struct {
	Message string
}

// Reason enumerates why a request was rejected.
type Reason string

const (
	ReasonProductNotFound     Reason = "product_not_found"
	ReasonCountryUnresolvable Reason = "country_unresolvable"
	ReasonInsufficientFunds   Reason = "insufficient_funds"
	ReasonPaymentFailed       Reason = "payment_failed"
)

const authorizedMessage = "Payment processed successfully!"

// Rejected terminates a request without side effects.
type Rejected struct {
	Reason Reason
}

// Message returns the human-readable rejection text.
func (r *Rejected) Message() string {
	switch r.Reason {
	case ReasonProductNotFound:
		return "Product not found"
	case ReasonCountryUnresolvable:
		return "Inappropriate tax number"
	case ReasonInsufficientFunds:
		return "Insufficient funds"
	case ReasonPaymentFailed:
		return "Payment failed!"
	default:
		return string(r.Reason)
	}
}

func (*Quoted) outcome()     {}
func (*Authorized) outcome() {}
func (*Rejected) outcome()   {}
