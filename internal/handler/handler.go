// Package handler implements the storefront pricing HTTP API.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/xenking/storefront-pricing/internal/domain/coupon"
	"github.com/xenking/storefront-pricing/internal/domain/payment"
	"github.com/xenking/storefront-pricing/internal/domain/purchase"
)

// Pricer quotes and authorizes purchases.
type Pricer interface {
	Quote(ctx context.Context, req purchase.QuoteRequest) (purchase.Outcome, error)
	Purchase(ctx context.Context, req purchase.PurchaseRequest) (purchase.Outcome, error)
}

// Config holds handler-specific configuration.
type Config struct {
	// Dev adds internal error text to 500 responses.
	Dev bool
}

// Handler serves the pricing API.
type Handler struct {
	cfg      Config
	pricer   Pricer
	coupons  coupon.Repository
	validate *validator.Validate
	now      func() time.Time
}

// NewHandler creates a Handler.
func NewHandler(cfg Config, pricer Pricer, coupons coupon.Repository) *Handler {
	return &Handler{
		cfg:      cfg,
		pricer:   pricer,
		coupons:  coupons,
		validate: newValidator(),
		now:      time.Now,
	}
}

// Register mounts the API routes on r.
func (h *Handler) Register(r chi.Router) {
	r.Post("/api/calculate-price", h.CalculatePrice)
	r.Post("/api/purchase", h.Purchase)
	r.Post("/api/coupon-discount", h.CouponDiscount)
}

type decoder interface {
	Decode(d *jx.Decoder) error
}

// bind decodes and validates the body into req. On failure it writes the
// 400 response and returns false.
func (h *Handler) bind(w http.ResponseWriter, r *http.Request, req decoder) bool {
	d, err := readBody(r)
	if err == nil {
		err = req.Decode(d)
	}
	if err == nil {
		err = h.validate.Struct(req)
	}
	if err == nil {
		return true
	}

	var te *typeError
	switch {
	case errors.As(err, &te):
		writeFail(w, http.StatusBadRequest, msgValidationFailed,
			fieldErrorDetails([]FieldError{{Field: te.Field, Message: te.Error()}}))
	case validationErrors(err) != nil:
		writeFail(w, http.StatusBadRequest, msgValidationFailed, fieldErrorDetails(validationErrors(err)))
	default:
		zctx.From(r.Context()).Debug("Bad request body", zap.Error(err))
		writeFail(w, http.StatusBadRequest, msgInvalidBody, nil)
	}
	return false
}

// CalculatePrice handles POST /api/calculate-price.
func (h *Handler) CalculatePrice(w http.ResponseWriter, r *http.Request) {
	var req calculatePriceRequest
	if !h.bind(w, r, &req) {
		return
	}

	out, err := h.pricer.Quote(r.Context(), req.quote())
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	h.writeOutcome(w, out)
}

// Purchase handles POST /api/purchase.
func (h *Handler) Purchase(w http.ResponseWriter, r *http.Request) {
	var req purchaseRequest
	if !h.bind(w, r, &req) {
		return
	}

	processor, _ := payment.ParseProcessor(*req.PaymentProcessor)
	out, err := h.pricer.Purchase(r.Context(), purchase.PurchaseRequest{
		QuoteRequest: req.quote(),
		Processor:    processor,
		Amount:       *req.Amount,
	})
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	h.writeOutcome(w, out)
}

// CouponDiscount handles POST /api/coupon-discount: the pre-tax discount a
// coupon grants on an amount. Invalid coupons yield a zero discount.
func (h *Handler) CouponDiscount(w http.ResponseWriter, r *http.Request) {
	var req couponDiscountRequest
	if !h.bind(w, r, &req) {
		return
	}

	c, err := h.coupons.FindByCode(r.Context(), *req.CouponCode)
	switch {
	case errors.Is(err, coupon.ErrNotFound):
		writeFail(w, http.StatusNotFound, msgCouponNotFound, nil)
		return
	case err != nil:
		h.internalError(w, r, errors.Wrap(err, "find coupon"))
		return
	}

	discount := coupon.CalculateDiscount(*c, *req.Amount, h.now())
	writeOK(w, func(e *jx.Encoder) {
		e.Field("coupon", func(e *jx.Encoder) { e.Str(c.Code) })
		e.Field("discount", func(e *jx.Encoder) { encodeDecimal(e, discount) })
	})
}

func (req *calculatePriceRequest) quote() purchase.QuoteRequest {
	return purchase.QuoteRequest{
		ProductID:  *req.Product,
		TaxNumber:  *req.TaxNumber,
		CouponCode: req.CouponCode,
	}
}

func (h *Handler) writeOutcome(w http.ResponseWriter, out purchase.Outcome) {
	switch o := out.(type) {
	case *purchase.Quoted:
		writeOK(w, func(e *jx.Encoder) {
			e.Field("product", func(e *jx.Encoder) { e.Str(o.ProductName) })
			e.Field("price", func(e *jx.Encoder) { encodeDecimal(e, o.Price) })
			e.Field("coupon", func(e *jx.Encoder) { e.Str(o.CouponLabel()) })
			e.Field("tax", func(e *jx.Encoder) { e.Str(o.TaxLabel()) })
		})
	case *purchase.Authorized:
		writeOK(w, func(e *jx.Encoder) {
			e.Field("message", func(e *jx.Encoder) { e.Str(o.Message) })
		})
	case *purchase.Rejected:
		writeFail(w, rejectionStatus(o.Reason), o.Message(), nil)
	default:
		writeFail(w, http.StatusInternalServerError, msgInternal, nil)
	}
}

func rejectionStatus(reason purchase.Reason) int {
	switch reason {
	case purchase.ReasonProductNotFound, purchase.ReasonCountryUnresolvable:
		return http.StatusNotFound
	case purchase.ReasonInsufficientFunds, purchase.ReasonPaymentFailed:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadRequest
	}
}

func (h *Handler) internalError(w http.ResponseWriter, r *http.Request, err error) {
	zctx.From(r.Context()).Error("Request failed", zap.Error(err))

	var details func(e *jx.Encoder)
	if h.cfg.Dev {
		details = stringDetails(err.Error())
	}
	writeFail(w, http.StatusInternalServerError, msgInternal, details)
}
