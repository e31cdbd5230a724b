package purchase

import (
	"context"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/storefront-pricing/internal/domain/coupon"
	"github.com/xenking/storefront-pricing/internal/domain/payment"
	"github.com/xenking/storefront-pricing/internal/domain/product"
)

// --- Mock implementations ---

type mockProductRepo struct {
	byID   map[int64]*product.Product
	getErr error
}

func (m *mockProductRepo) GetByID(_ context.Context, id int64) (*product.Product, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	p, ok := m.byID[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	return p, nil
}

type mockCouponRepo struct {
	byCode map[string]*coupon.Coupon
	err    error
}

func (m *mockCouponRepo) FindByCode(_ context.Context, code string) (*coupon.Coupon, error) {
	if m.err != nil {
		return nil, m.err
	}
	c, ok := m.byCode[code]
	if !ok {
		return nil, coupon.ErrNotFound
	}
	return c, nil
}

type mockDispatcher struct {
	result    bool
	calls     int
	processor payment.Processor
	amount    decimal.Decimal
}

func (m *mockDispatcher) Dispatch(_ context.Context, p payment.Processor, amount decimal.Decimal) bool {
	m.calls++
	m.processor = p
	m.amount = amount
	return m.result
}

// --- Helpers ---

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func newTestService(dispatcher *mockDispatcher) *Service {
	products := &mockProductRepo{byID: map[int64]*product.Product{
		1: {ID: 1, Name: "Iphone", Price: d("100"), Active: true, CouponCode: "P6"},
		2: {ID: 2, Name: "Headphones", Price: d("20"), Active: true},
		3: {ID: 3, Name: "Case", Price: d("100"), Active: true, CouponCode: "F20"},
	}}
	coupons := &mockCouponRepo{byCode: map[string]*coupon.Coupon{
		"P6":  {Code: "P6", Type: coupon.TypePercentage, Value: d("6"), Status: coupon.StatusActive},
		"F20": {Code: "F20", Type: coupon.TypeFixed, Value: d("20"), Status: coupon.StatusActive},
		"OFF": {Code: "OFF", Type: coupon.TypeFixed, Value: d("20"), Status: coupon.StatusInactive},
	}}
	return NewService(products, coupon.NewRepoValidator(coupons), dispatcher)
}

func quoteRequest(productID int64, taxNumber, code string) QuoteRequest {
	return QuoteRequest{ProductID: productID, TaxNumber: taxNumber, CouponCode: code}
}

// --- Quote ---

func TestQuote(t *testing.T) {
	tests := []struct {
		name       string
		req        QuoteRequest
		wantPrice  decimal.Decimal
		wantCoupon string
		wantTax    string
	}{
		{
			name:       "greece without coupon",
			req:        quoteRequest(1, "GR123456789", ""),
			wantPrice:  d("124"),
			wantCoupon: NoCouponLabel,
			wantTax:    "24%",
		},
		{
			name:       "greece with percentage coupon",
			req:        quoteRequest(1, "GR123456789", "P6"),
			wantPrice:  d("116.56"),
			wantCoupon: "P6",
			wantTax:    "24%",
		},
		{
			name:       "germany with fixed coupon",
			req:        quoteRequest(3, "DE123456789", "F20"),
			wantPrice:  d("99"),
			wantCoupon: "F20",
			wantTax:    "19%",
		},
		{
			name:       "coupon of another product is ignored",
			req:        quoteRequest(1, "DE123456789", "F20"),
			wantPrice:  d("119"),
			wantCoupon: NoCouponLabel,
			wantTax:    "19%",
		},
		{
			name:       "unresolvable tax number is rejected",
			req:        quoteRequest(2, "ITXX", ""),
			wantPrice:  decimal.Zero,
			wantCoupon: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(&mockDispatcher{})

			out, err := svc.Quote(context.Background(), tt.req)
			require.NoError(t, err)

			if tt.wantCoupon == "" {
				rej, ok := out.(*Rejected)
				require.True(t, ok, "expected rejection, got %T", out)
				assert.Equal(t, ReasonCountryUnresolvable, rej.Reason)
				return
			}

			q, ok := out.(*Quoted)
			require.True(t, ok, "expected quote, got %T", out)
			assert.True(t, tt.wantPrice.Equal(q.Price), "expected price %s, got %s", tt.wantPrice, q.Price)
			assert.Equal(t, tt.wantCoupon, q.CouponLabel())
			assert.Equal(t, tt.wantTax, q.TaxLabel())
		})
	}
}

func TestQuote_ProductNotFound(t *testing.T) {
	svc := newTestService(&mockDispatcher{})

	out, err := svc.Quote(context.Background(), quoteRequest(999, "DE123456789", ""))
	require.NoError(t, err)

	rej, ok := out.(*Rejected)
	require.True(t, ok)
	assert.Equal(t, ReasonProductNotFound, rej.Reason)
	assert.Equal(t, "Product not found", rej.Message())
}

func TestQuote_InvalidCouponIgnored(t *testing.T) {
	svc := newTestService(&mockDispatcher{})

	out, err := svc.Quote(context.Background(), quoteRequest(2, "FRAB123456789", "OFF"))
	require.NoError(t, err)

	q, ok := out.(*Quoted)
	require.True(t, ok)
	assert.True(t, d("24").Equal(q.Price))
	assert.Empty(t, q.CouponCode)
	assert.Equal(t, "Headphones", q.ProductName)
}

func TestQuote_ProductRepositoryError(t *testing.T) {
	svc := NewService(
		&mockProductRepo{getErr: errors.New("db down")},
		coupon.NewRepoValidator(&mockCouponRepo{}),
		&mockDispatcher{},
	)

	_, err := svc.Quote(context.Background(), quoteRequest(1, "DE123456789", ""))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "get product")
}

func TestQuote_CouponRepositoryError(t *testing.T) {
	svc := NewService(
		&mockProductRepo{byID: map[int64]*product.Product{1: {ID: 1, Price: d("10")}}},
		coupon.NewRepoValidator(&mockCouponRepo{err: errors.New("db down")}),
		&mockDispatcher{},
	)

	_, err := svc.Quote(context.Background(), quoteRequest(1, "DE123456789", "ANY"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "resolve coupon")
}

// --- Purchase ---

func purchaseRequest(amount string, p payment.Processor) PurchaseRequest {
	return PurchaseRequest{
		QuoteRequest: quoteRequest(1, "GR123456789", "P6"),
		Processor:    p,
		Amount:       d(amount),
	}
}

func TestPurchase_Authorized(t *testing.T) {
	dispatcher := &mockDispatcher{result: true}
	svc := newTestService(dispatcher)

	out, err := svc.Purchase(context.Background(), purchaseRequest("200.75", payment.Paypal))
	require.NoError(t, err)

	auth, ok := out.(*Authorized)
	require.True(t, ok, "expected authorization, got %T", out)
	assert.Equal(t, "Payment processed successfully!", auth.Message)

	// The offered amount is charged, not the computed price.
	assert.Equal(t, 1, dispatcher.calls)
	assert.Equal(t, payment.Paypal, dispatcher.processor)
	assert.True(t, d("200.75").Equal(dispatcher.amount))
}

func TestPurchase_ExactAmount(t *testing.T) {
	dispatcher := &mockDispatcher{result: true}
	svc := newTestService(dispatcher)

	out, err := svc.Purchase(context.Background(), purchaseRequest("116.56", payment.Stripe))
	require.NoError(t, err)

	_, ok := out.(*Authorized)
	assert.True(t, ok)
	assert.Equal(t, 1, dispatcher.calls)
}

func TestPurchase_InsufficientFunds(t *testing.T) {
	dispatcher := &mockDispatcher{result: true}
	svc := newTestService(dispatcher)

	out, err := svc.Purchase(context.Background(), purchaseRequest("116.55", payment.Stripe))
	require.NoError(t, err)

	rej, ok := out.(*Rejected)
	require.True(t, ok)
	assert.Equal(t, ReasonInsufficientFunds, rej.Reason)
	assert.Equal(t, "Insufficient funds", rej.Message())
	assert.Zero(t, dispatcher.calls)
}

func TestPurchase_PaymentFailed(t *testing.T) {
	dispatcher := &mockDispatcher{result: false}
	svc := newTestService(dispatcher)

	out, err := svc.Purchase(context.Background(), purchaseRequest("500", payment.Stripe))
	require.NoError(t, err)

	rej, ok := out.(*Rejected)
	require.True(t, ok)
	assert.Equal(t, ReasonPaymentFailed, rej.Reason)
	assert.Equal(t, "Payment failed!", rej.Message())
	assert.Equal(t, 1, dispatcher.calls)
}

func TestPurchase_RejectionsSkipPayment(t *testing.T) {
	tests := []struct {
		name string
		req  PurchaseRequest
		want Reason
	}{
		{
			name: "unknown product",
			req: PurchaseRequest{
				QuoteRequest: quoteRequest(42, "GR123456789", ""),
				Processor:    payment.Paypal,
				Amount:       d("1000"),
			},
			want: ReasonProductNotFound,
		},
		{
			name: "unresolvable tax number",
			req: PurchaseRequest{
				QuoteRequest: quoteRequest(1, "XX123", ""),
				Processor:    payment.Paypal,
				Amount:       d("1000"),
			},
			want: ReasonCountryUnresolvable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dispatcher := &mockDispatcher{result: true}
			svc := newTestService(dispatcher)

			out, err := svc.Purchase(context.Background(), tt.req)
			require.NoError(t, err)

			rej, ok := out.(*Rejected)
			require.True(t, ok)
			assert.Equal(t, tt.want, rej.Reason)
			assert.Zero(t, dispatcher.calls)
		})
	}
}
