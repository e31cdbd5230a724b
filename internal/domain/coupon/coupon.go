package coupon

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Type enumerates the supported coupon discount strategies.
type Type string

const (
	// TypeFixed subtracts a fixed monetary amount.
	TypeFixed Type = "fixed"
	// TypePercentage subtracts a percentage (0-100) of the amount.
	TypePercentage Type = "percentage"
)

// Status is the administrative state of a coupon.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
	StatusExpired  Status = "expired"
)

// ErrNotFound is returned by a Repository when no coupon has the requested code.
var ErrNotFound = errors.New("coupon not found")

// Coupon is a discount instrument scoped to a single product.
type Coupon struct {
	ID          int64
	Code        string
	Type        Type
	Value       decimal.Decimal
	Status      Status
	Description string
	// UsageLimit is nil when redemptions are unbounded.
	UsageLimit *int
	TimesUsed   int
	ValidFrom   *time.Time
	ValidTo     *time.Time
}

// IsValid reports whether c is usable at the given instant: it must be
// active, under its usage limit and inside its validity window. Absent
// bounds are treated as unbounded.
func IsValid(c Coupon, now time.Time) bool {
	if c.Status != StatusActive {
		return false
	}
	if c.UsageLimit != nil && c.TimesUsed >= *c.UsageLimit {
		return false
	}
	if c.ValidFrom != nil && now.Before(*c.ValidFrom) {
		return false
	}
	if c.ValidTo != nil && now.After(*c.ValidTo) {
		return false
	}
	return true
}

// Repository provides lookup of coupons by code.
type Repository interface {
	FindByCode(ctx context.Context, code string) (*Coupon, error)
}
