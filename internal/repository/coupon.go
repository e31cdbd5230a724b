package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront-pricing/internal/domain/coupon"
)

const (
	getCouponByCodeSQL = `SELECT id, code, type, value, status, COALESCE(description, ''),
		usage_limit, times_used, valid_from, valid_to
		FROM coupons WHERE code = $1`

	listCouponCodesSQL = `SELECT code FROM coupons`

	upsertCouponSQL = `INSERT INTO coupons (code, type, value, status, description,
		usage_limit, times_used, valid_from, valid_to)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7, $8, $9)
		ON CONFLICT (code) DO UPDATE SET
			type = EXCLUDED.type,
			value = EXCLUDED.value,
			status = EXCLUDED.status,
			description = EXCLUDED.description,
			usage_limit = EXCLUDED.usage_limit,
			times_used = EXCLUDED.times_used,
			valid_from = EXCLUDED.valid_from,
			valid_to = EXCLUDED.valid_to,
			updated_at = NOW()
		RETURNING id`
)

var _ coupon.Repository = (*CouponRepository)(nil)

// CouponRepository implements coupon.Repository backed by PostgreSQL.
type CouponRepository struct {
	pool *pgxpool.Pool
}

// NewCouponRepository returns a CouponRepository that uses the given pool.
func NewCouponRepository(pool *pgxpool.Pool) *CouponRepository {
	return &CouponRepository{pool: pool}
}

// FindByCode looks up a coupon by its exact code regardless of status.
// Returns coupon.ErrNotFound when no row matches.
func (r *CouponRepository) FindByCode(ctx context.Context, code string) (*coupon.Coupon, error) {
	rows, err := r.pool.Query(ctx, getCouponByCodeSQL, code)
	if err != nil {
		return nil, fmt.Errorf("finding coupon by code %q: %w", code, err)
	}

	c, err := pgx.CollectExactlyOneRow(rows, scanCoupon)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, coupon.ErrNotFound
		}
		return nil, fmt.Errorf("finding coupon by code %q: %w", code, err)
	}
	return &c, nil
}

// ListCodes returns every stored coupon code.
func (r *CouponRepository) ListCodes(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, listCouponCodesSQL)
	if err != nil {
		return nil, fmt.Errorf("listing coupon codes: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

// Upsert inserts c or overwrites the coupon with the same code, returning
// the row ID.
func (r *CouponRepository) Upsert(ctx context.Context, c coupon.Coupon) (int64, error) {
	var limit *int32
	if c.UsageLimit != nil {
		l := int32(*c.UsageLimit)
		limit = &l
	}

	var id int64
	err := r.pool.QueryRow(ctx, upsertCouponSQL,
		c.Code, string(c.Type), c.Value, string(c.Status), c.Description,
		limit, int32(c.TimesUsed), c.ValidFrom, c.ValidTo,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("upserting coupon %q: %w", c.Code, err)
	}
	return id, nil
}

func scanCoupon(row pgx.CollectableRow) (coupon.Coupon, error) {
	var (
		c         coupon.Coupon
		typ       string
		status    string
		limit     *int32
		timesUsed int32
		validFrom *time.Time
		validTo   *time.Time
	)
	err := row.Scan(
		&c.ID, &c.Code, &typ, &c.Value, &status, &c.Description,
		&limit, &timesUsed, &validFrom, &validTo,
	)
	c.Type = coupon.Type(typ)
	c.Status = coupon.Status(status)
	if limit != nil {
		l := int(*limit)
		c.UsageLimit = &l
	}
	c.TimesUsed = int(timesUsed)
	c.ValidFrom = validFrom
	c.ValidTo = validTo
	return c, err
}
