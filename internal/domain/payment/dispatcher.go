package payment

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// Dispatcher sends a payment to the selected processor and reduces every
// outcome to a boolean. Adapter errors and panics never escape Dispatch.
//
// Calls are synchronous and carry no timeout of their own; bound them through
// ctx or the surrounding server timeouts.
type Dispatcher struct {
	paypal PaypalProcessor
	stripe StripeProcessor
	lg     *zap.Logger

	dispatched metric.Int64Counter
}

// NewDispatcher creates a Dispatcher over the given adapters.
func NewDispatcher(paypal PaypalProcessor, stripe StripeProcessor, lg *zap.Logger, meter metric.Meter) (*Dispatcher, error) {
	dispatched, err := meter.Int64Counter("storefront.payment.dispatch",
		metric.WithDescription("Payment dispatch attempts by processor and result"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create dispatch counter")
	}
	return &Dispatcher{
		paypal:     paypal,
		stripe:     stripe,
		lg:         lg,
		dispatched: dispatched,
	}, nil
}

// Dispatch charges amount through processor p. It returns false when the
// processor declines, fails, panics, or is not recognized.
func (d *Dispatcher) Dispatch(ctx context.Context, p Processor, amount decimal.Decimal) (ok bool) {
	defer func() {
		if rec := recover(); rec != nil {
			d.fail(p, fmt.Errorf("processor panic: %v", rec))
			ok = false
		}
		d.dispatched.Add(ctx, 1, metric.WithAttributes(
			attribute.String("processor", string(p)),
			attribute.Bool("success", ok),
		))
	}()

	switch p {
	case Stripe:
		res, err := d.stripe.ProcessPayment(ctx, amount)
		if err != nil {
			d.fail(p, err)
			return false
		}
		return res
	case Paypal:
		// Paypal takes whole units; the fraction is dropped, not rounded.
		if err := d.paypal.Pay(ctx, amount.IntPart()); err != nil {
			d.fail(p, err)
			return false
		}
		return true
	default:
		return false
	}
}

func (d *Dispatcher) fail(p Processor, err error) {
	d.lg.Error("Payment error: "+err.Error(),
		zap.String("processor", string(p)),
		zap.Error(err),
	)
}
