// Package payment routes purchase amounts to external payment processors.
package payment

import (
	"context"

	"github.com/shopspring/decimal"
)

// Processor selects the external payment gateway.
type Processor string

const (
	Paypal Processor = "paypal"
	Stripe Processor = "stripe"
)

// Processors lists the supported processors.
func Processors() []Processor {
	return []Processor{Paypal, Stripe}
}

// ParseProcessor converts a raw selector into a Processor.
func ParseProcessor(s string) (Processor, bool) {
	for _, p := range Processors() {
		if string(p) == s {
			return p, true
		}
	}
	return "", false
}

// StripeProcessor is the Stripe-shaped gateway. A false result is a decline.
type StripeProcessor interface {
	ProcessPayment(ctx context.Context, amount decimal.Decimal) (bool, error)
}

// PaypalProcessor is the Paypal-shaped gateway. It accepts whole currency
// units only; any error is a decline.
type PaypalProcessor interface {
	Pay(ctx context.Context, amount int64) error
}
