package coupon

import (
	"context"
	"time"

	"github.com/go-faster/errors"

	"github.com/xenking/storefront-pricing/internal/domain/product"
)

// Resolver decides which coupon, if any, applies to a product.
type Resolver interface {
	ResolveApplicable(ctx context.Context, code string, p *product.Product) (*Coupon, error)
}

// RepoValidator implements Resolver on top of a Repository.
type RepoValidator struct {
	repo Repository
	now  func() time.Time
}

var _ Resolver = (*RepoValidator)(nil)

// NewRepoValidator creates a RepoValidator backed by the given Repository.
func NewRepoValidator(repo Repository) *RepoValidator {
	return &RepoValidator{repo: repo, now: time.Now}
}

// ResolveApplicable returns the coupon for code when it exists, is currently
// valid and is the coupon configured on p. Any failed check yields a nil
// coupon and nil error; only repository failures are returned as errors.
// Validity is evaluated on every call.
func (v *RepoValidator) ResolveApplicable(ctx context.Context, code string, p *product.Product) (*Coupon, error) {
	if code == "" {
		return nil, nil
	}

	c, err := v.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "lookup coupon")
	}

	if !IsValid(*c, v.now()) {
		return nil, nil
	}

	// A coupon only applies to the product it was configured for.
	if p == nil || p.CouponCode == "" || p.CouponCode != c.Code {
		return nil, nil
	}

	return c, nil
}
