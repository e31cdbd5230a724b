package repository

import (
	"context"
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"

	"github.com/xenking/storefront-pricing/internal/domain/coupon"
)

// CouponLister is a coupon.Repository that can enumerate stored codes.
type CouponLister interface {
	coupon.Repository
	ListCodes(ctx context.Context) ([]string, error)
}

var _ coupon.Repository = (*CouponFilter)(nil)

// CouponFilter short-circuits lookups for codes that were never stored.
// A negative bloom test is definitive and returns coupon.ErrNotFound without
// touching the database; a positive one falls through to the wrapped
// repository.
type CouponFilter struct {
	next     CouponLister
	capacity uint
	fpr      float64

	mu     sync.RWMutex
	filter *bloom.BloomFilter
}

// NewCouponFilter builds a filter sized for capacity codes at the given
// false-positive rate and loads it from repo.
func NewCouponFilter(ctx context.Context, repo CouponLister, capacity uint, fpr float64) (*CouponFilter, error) {
	f := &CouponFilter{next: repo, capacity: capacity, fpr: fpr}
	if err := f.Refresh(ctx); err != nil {
		return nil, err
	}
	return f, nil
}

// FindByCode implements coupon.Repository.
func (f *CouponFilter) FindByCode(ctx context.Context, code string) (*coupon.Coupon, error) {
	f.mu.RLock()
	maybe := f.filter.TestString(code)
	f.mu.RUnlock()

	if !maybe {
		return nil, coupon.ErrNotFound
	}
	return f.next.FindByCode(ctx, code)
}

// Add marks code as present, e.g. right after it was inserted.
func (f *CouponFilter) Add(code string) {
	f.mu.Lock()
	f.filter.AddString(code)
	f.mu.Unlock()
}

// Refresh rebuilds the filter from the current set of stored codes.
func (f *CouponFilter) Refresh(ctx context.Context) error {
	codes, err := f.next.ListCodes(ctx)
	if err != nil {
		return errors.Wrap(err, "list coupon codes")
	}

	capacity := f.capacity
	if n := uint(len(codes)); n > capacity {
		capacity = n
	}
	filter := bloom.NewWithEstimates(capacity, f.fpr)
	for _, code := range codes {
		filter.AddString(code)
	}

	f.mu.Lock()
	f.filter = filter
	f.mu.Unlock()
	return nil
}
