package product

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Product represents a catalog item available for purchase.
type Product struct {
	ID          int64
	Name        string
	Description string
	Price       decimal.Decimal
	Stock       int
	Active      bool
	// CouponCode is the code of the single coupon configured for this
	// product, or empty when none is.
	CouponCode string
}

// Repository defines read operations for the product catalog.
type Repository interface {
	GetByID(ctx context.Context, id int64) (*Product, error)
}
