package coupon

import (
	"time"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// CalculateDiscount returns the discount c grants on a pre-tax total, rounded
// to 2 decimal places. Percentage coupons take their share of total; fixed
// coupons are capped at total. Invalid coupons grant nothing.
//
// Quote and purchase pricing does not use this function; see
// pricing.ComputeFinalPrice for the post-tax variant.
func CalculateDiscount(c Coupon, total decimal.Decimal, now time.Time) decimal.Decimal {
	if !IsValid(c, now) {
		return decimal.Zero
	}

	var amount decimal.Decimal
	switch c.Type {
	case TypeFixed:
		amount = decimal.Min(c.Value, total)
	case TypePercentage:
		amount = total.Mul(c.Value).Div(hundred)
	default:
		return decimal.Zero
	}
	return amount.Round(2)
}
