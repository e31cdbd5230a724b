package gateway

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"

	"github.com/xenking/storefront-pricing/internal/domain/payment"
)

var _ payment.StripeProcessor = (*StripeLive)(nil)

// StripeConfig configures the live Stripe adapter.
type StripeConfig struct {
	SecretKey     string
	Currency      string
	PaymentMethod string
}

// StripeLive charges through the Stripe PaymentIntents API, confirming the
// intent immediately with the configured payment method.
type StripeLive struct {
	api           *client.API
	currency      string
	paymentMethod string
}

// NewStripeLive creates a StripeLive adapter. backends may be nil to use the
// default Stripe endpoints.
func NewStripeLive(cfg StripeConfig, backends *stripe.Backends) (*StripeLive, error) {
	if cfg.SecretKey == "" {
		return nil, errors.New("stripe secret key is required")
	}
	currency := cfg.Currency
	if currency == "" {
		currency = string(stripe.CurrencyEUR)
	}
	return &StripeLive{
		api:           client.New(cfg.SecretKey, backends),
		currency:      currency,
		paymentMethod: cfg.PaymentMethod,
	}, nil
}

// ProcessPayment implements payment.StripeProcessor. The payment succeeds
// only when the intent reaches the succeeded state.
func (s *StripeLive) ProcessPayment(ctx context.Context, amount decimal.Decimal) (bool, error) {
	params := &stripe.PaymentIntentParams{
		Amount:             stripe.Int64(toMinorUnits(amount)),
		Currency:           stripe.String(s.currency),
		PaymentMethod:      stripe.String(s.paymentMethod),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		Confirm:            stripe.Bool(true),
	}
	params.Context = ctx

	pi, err := s.api.PaymentIntents.New(params)
	if err != nil {
		return false, errors.Wrap(err, "create payment intent")
	}
	return pi.Status == stripe.PaymentIntentStatusSucceeded, nil
}

// toMinorUnits converts an amount to cents, rounding half away from zero.
func toMinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}
