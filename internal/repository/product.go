package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront-pricing/internal/domain/product"
)

const (
	getProductByIDSQL = `SELECT p.id, p.name, COALESCE(p.description, ''), p.price, p.stock,
		p.is_active, COALESCE(c.code, '')
		FROM products p LEFT JOIN coupons c ON c.id = p.coupon_id
		WHERE p.id = $1`

	upsertProductSQL = `INSERT INTO products (name, description, price, stock, is_active, coupon_id)
		VALUES ($1, NULLIF($2, ''), $3, $4, $5, (SELECT id FROM coupons WHERE code = NULLIF($6, '')))
		ON CONFLICT (name) DO UPDATE SET
			description = EXCLUDED.description,
			price = EXCLUDED.price,
			stock = EXCLUDED.stock,
			is_active = EXCLUDED.is_active,
			coupon_id = EXCLUDED.coupon_id,
			updated_at = NOW()
		RETURNING id`
)

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository implements product.Repository backed by PostgreSQL.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// GetByID returns a single product with its configured coupon code.
// Inactive products are returned as stored.
func (r *ProductRepository) GetByID(ctx context.Context, id int64) (*product.Product, error) {
	rows, err := r.pool.Query(ctx, getProductByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting product %d: %w", id, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, fmt.Errorf("getting product %d: %w", id, err)
	}
	return &p, nil
}

// Upsert inserts p keyed by name, linking it to the coupon named by
// p.CouponCode when that coupon exists.
func (r *ProductRepository) Upsert(ctx context.Context, p product.Product) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, upsertProductSQL,
		p.Name, p.Description, p.Price, int32(p.Stock), p.Active, p.CouponCode,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("upserting product %q: %w", p.Name, err)
	}
	return id, nil
}

func scanProduct(row pgx.CollectableRow) (product.Product, error) {
	var (
		p     product.Product
		stock int32
	)
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &stock, &p.Active, &p.CouponCode)
	p.Stock = int(stock)
	return p, err
}
