// Package purchase implements price quoting and purchase authorization.
package purchase

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/xenking/storefront-pricing/internal/domain/coupon"
	"github.com/xenking/storefront-pricing/internal/domain/payment"
	"github.com/xenking/storefront-pricing/internal/domain/pricing"
	"github.com/xenking/storefront-pricing/internal/domain/product"
	"github.com/xenking/storefront-pricing/internal/domain/tax"
)

// Dispatcher charges an amount through a payment processor.
type Dispatcher interface {
	Dispatch(ctx context.Context, p payment.Processor, amount decimal.Decimal) bool
}

// QuoteRequest holds the input for pricing a product. Fields are expected to
// be validated by the caller.
type QuoteRequest struct {
	ProductID  int64
	TaxNumber  string
	CouponCode string
}

// PurchaseRequest holds the input for buying a product.
type PurchaseRequest struct {
	QuoteRequest
	Processor payment.Processor
	// Amount is what the buyer offers to pay.
	Amount decimal.Decimal
}

// Service composes tax resolution, coupon validation, pricing and payment.
// It holds no per-request state.
type Service struct {
	products product.Repository
	coupons  coupon.Resolver
	payments Dispatcher
	tracer   trace.Tracer
}

// Option configures a Service.
type Option func(*Service)

// WithTracerProvider sets the provider used for request spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Service) {
		s.tracer = tp.Tracer("github.com/xenking/storefront-pricing/internal/domain/purchase")
	}
}

// NewService creates a purchase Service with the required domain dependencies.
func NewService(
	products product.Repository,
	coupons coupon.Resolver,
	payments Dispatcher,
	opts ...Option,
) *Service {
	s := &Service{
		products: products,
		coupons:  coupons,
		payments: payments,
		tracer:   noop.NewTracerProvider().Tracer(""),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Quote prices a product for the buyer's country and coupon. It returns
// *Quoted or *Rejected; the error is reserved for repository failures.
func (s *Service) Quote(ctx context.Context, req QuoteRequest) (_ Outcome, rerr error) {
	ctx, span := s.tracer.Start(ctx, "purchase.Quote",
		trace.WithAttributes(attribute.Int64("product.id", req.ProductID)),
	)
	defer endSpan(span, &rerr)

	q, rej, err := s.quote(ctx, req)
	if err != nil {
		return nil, err
	}
	if rej != nil {
		return rej, nil
	}
	return q, nil
}

// Purchase prices the product and, when the offered amount covers the price,
// charges the offered amount through the selected processor. It returns
// *Authorized or *Rejected.
func (s *Service) Purchase(ctx context.Context, req PurchaseRequest) (_ Outcome, rerr error) {
	ctx, span := s.tracer.Start(ctx, "purchase.Purchase",
		trace.WithAttributes(
			attribute.Int64("product.id", req.ProductID),
			attribute.String("payment.processor", string(req.Processor)),
		),
	)
	defer endSpan(span, &rerr)

	q, rej, err := s.quote(ctx, req.QuoteRequest)
	if err != nil {
		return nil, err
	}
	if rej != nil {
		return rej, nil
	}

	if req.Amount.LessThan(q.Price) {
		return &Rejected{Reason: ReasonInsufficientFunds}, nil
	}

	// The processor is charged what the buyer offered, not the computed price.
	if !s.payments.Dispatch(ctx, req.Processor, req.Amount) {
		return &Rejected{Reason: ReasonPaymentFailed}, nil
	}
	return &Authorized{Message: authorizedMessage}, nil
}

func (s *Service) quote(ctx context.Context, req QuoteRequest) (*Quoted, *Rejected, error) {
	p, err := s.products.GetByID(ctx, req.ProductID)
	if err != nil {
		if errors.Is(err, product.ErrNotFound) {
			return nil, &Rejected{Reason: ReasonProductNotFound}, nil
		}
		return nil, nil, errors.Wrap(err, "get product")
	}

	country, ok := tax.ResolveCountry(req.TaxNumber)
	if !ok {
		return nil, &Rejected{Reason: ReasonCountryUnresolvable}, nil
	}
	percent, _ := tax.Percent(country)

	c, err := s.coupons.ResolveApplicable(ctx, req.CouponCode, p)
	if err != nil {
		return nil, nil, errors.Wrap(err, "resolve coupon")
	}

	q := &Quoted{
		ProductName: p.Name,
		Price:       pricing.ComputeFinalPrice(p.Price, percent, c),
		TaxPercent:  percent,
	}
	if c != nil {
		q.CouponCode = c.Code
	}
	return q, nil, nil
}

func endSpan(span trace.Span, err *error) {
	if *err != nil {
		span.RecordError(*err)
		span.SetStatus(codes.Error, (*err).Error())
	}
	span.End()
}
