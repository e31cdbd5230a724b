// Package gateway provides payment processor adapters.
package gateway

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront-pricing/internal/domain/payment"
)

var (
	_ payment.StripeProcessor = (*SandboxStripe)(nil)
	_ payment.PaypalProcessor = (*SandboxPaypal)(nil)
)

// ErrAmountTooHigh is returned by SandboxPaypal for amounts over its limit.
var ErrAmountTooHigh = errors.New("Transaction amount too high")

// SandboxStripe mimics the Stripe test processor: payments below MinAmount
// are declined, everything else succeeds.
type SandboxStripe struct {
	MinAmount decimal.Decimal
}

// ProcessPayment implements payment.StripeProcessor.
func (s *SandboxStripe) ProcessPayment(ctx context.Context, amount decimal.Decimal) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return !amount.LessThan(s.MinAmount), nil
}

// SandboxPaypal mimics the Paypal test processor: payments above MaxAmount
// fail, everything else succeeds.
type SandboxPaypal struct {
	MaxAmount int64
}

// Pay implements payment.PaypalProcessor.
func (p *SandboxPaypal) Pay(ctx context.Context, amount int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if amount > p.MaxAmount {
		return ErrAmountTooHigh
	}
	return nil
}
