// Package pricing composes the public quote and purchase price.
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront-pricing/internal/domain/coupon"
)

var hundred = decimal.NewFromInt(100)

// ComputeFinalPrice returns basePrice plus taxPercent tax, minus the coupon
// discount taken from the taxed total. A fixed discount is not capped, so the
// result can be negative when the coupon value exceeds the taxed total. The
// result is not rounded.
//
// This differs from coupon.CalculateDiscount, which discounts a pre-tax
// total and rounds to cents. Keep both.
func ComputeFinalPrice(basePrice decimal.Decimal, taxPercent int, c *coupon.Coupon) decimal.Decimal {
	taxed := basePrice.Add(basePrice.Mul(decimal.NewFromInt(int64(taxPercent))).Div(hundred))
	return taxed.Sub(discount(taxed, c))
}

func discount(taxed decimal.Decimal, c *coupon.Coupon) decimal.Decimal {
	if c == nil {
		return decimal.Zero
	}
	if c.Type == coupon.TypePercentage {
		return taxed.Mul(c.Value).Div(hundred)
	}
	return c.Value
}
