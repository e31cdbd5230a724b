//go:build integration

package repository

import (
	"context"
	"fmt"
	"log"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go/modules/compose"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/xenking/storefront-pricing/internal/domain/coupon"
	"github.com/xenking/storefront-pricing/internal/domain/product"
)

var (
	databaseURL string
	pool        *pgxpool.Pool
)

func TestMain(m *testing.M) {
	os.Exit(testMain(m))
}

func testMain(m *testing.M) int {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	dc, err := tc.NewDockerCompose("testdata/docker-compose.yml")
	if err != nil {
		log.Fatalf("compose init: %v", err)
	}
	defer func() {
		if err := dc.Down(context.Background(), tc.RemoveOrphans(true), tc.RemoveVolumes(true)); err != nil {
			log.Printf("compose down: %v", err)
		}
	}()

	err = dc.
		WaitForService("postgres", wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(time.Minute)).
		Up(ctx, tc.Wait(true))
	if err != nil {
		log.Fatalf("compose up: %v", err)
	}

	pg, err := dc.ServiceContainer(ctx, "postgres")
	if err != nil {
		log.Fatalf("postgres container: %v", err)
	}
	host, err := pg.Host(ctx)
	if err != nil {
		log.Fatalf("host: %v", err)
	}
	port, err := pg.MappedPort(ctx, "5432/tcp")
	if err != nil {
		log.Fatalf("mapped port: %v", err)
	}
	databaseURL = fmt.Sprintf("postgres://storefront:storefront@%s:%s/storefront?sslmode=disable", host, port.Port())

	if _, err := RunMigrations(databaseURL); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	pool, err = NewPool(ctx, databaseURL)
	if err != nil {
		log.Fatalf("pool: %v", err)
	}
	defer pool.Close()

	return m.Run()
}

func TestRunMigrations_Idempotent(t *testing.T) {
	version, err := RunMigrations(databaseURL)
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
}

func TestCouponRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewCouponRepository(pool)

	limit := 100
	from := time.Now().Add(-time.Hour).UTC().Truncate(time.Second)
	id, err := repo.Upsert(ctx, coupon.Coupon{
		Code:        "ITEST10",
		Type:        coupon.TypePercentage,
		Value:       decimal.NewFromInt(10),
		Status:      coupon.StatusActive,
		Description: "integration",
		UsageLimit:  &limit,
		TimesUsed:   25,
		ValidFrom:   &from,
	})
	require.NoError(t, err)
	assert.Positive(t, id)

	c, err := repo.FindByCode(ctx, "ITEST10")
	require.NoError(t, err)
	assert.Equal(t, id, c.ID)
	assert.Equal(t, coupon.TypePercentage, c.Type)
	assert.True(t, decimal.NewFromInt(10).Equal(c.Value))
	require.NotNil(t, c.UsageLimit)
	assert.Equal(t, 100, *c.UsageLimit)
	assert.Equal(t, 25, c.TimesUsed)
	require.NotNil(t, c.ValidFrom)
	assert.True(t, from.Equal(*c.ValidFrom))
	assert.Nil(t, c.ValidTo)

	_, err = repo.FindByCode(ctx, "itest10")
	assert.ErrorIs(t, err, coupon.ErrNotFound)

	again, err := repo.Upsert(ctx, coupon.Coupon{
		Code:   "ITEST10",
		Type:   coupon.TypeFixed,
		Value:  decimal.RequireFromString("5.99"),
		Status: coupon.StatusInactive,
	})
	require.NoError(t, err)
	assert.Equal(t, id, again)

	c, err = repo.FindByCode(ctx, "ITEST10")
	require.NoError(t, err)
	assert.Equal(t, coupon.StatusInactive, c.Status)
	assert.Nil(t, c.UsageLimit)

	codes, err := repo.ListCodes(ctx)
	require.NoError(t, err)
	assert.Contains(t, codes, "ITEST10")
}

func TestProductRepository(t *testing.T) {
	ctx := context.Background()
	coupons := NewCouponRepository(pool)
	products := NewProductRepository(pool)

	_, err := coupons.Upsert(ctx, coupon.Coupon{
		Code:   "PTEST15",
		Type:   coupon.TypeFixed,
		Value:  decimal.NewFromInt(15),
		Status: coupon.StatusActive,
	})
	require.NoError(t, err)

	id, err := products.Upsert(ctx, product.Product{
		Name:       "Integration Phone",
		Price:      decimal.RequireFromString("899.99"),
		Stock:      75,
		Active:     true,
		CouponCode: "PTEST15",
	})
	require.NoError(t, err)

	p, err := products.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Integration Phone", p.Name)
	assert.True(t, decimal.RequireFromString("899.99").Equal(p.Price))
	assert.Equal(t, 75, p.Stock)
	assert.Equal(t, "PTEST15", p.CouponCode)

	bare, err := products.Upsert(ctx, product.Product{
		Name:  "Integration Case",
		Price: decimal.NewFromInt(10),
	})
	require.NoError(t, err)
	p, err = products.GetByID(ctx, bare)
	require.NoError(t, err)
	assert.Empty(t, p.CouponCode)
	assert.False(t, p.Active)

	_, err = products.GetByID(ctx, 1_000_000)
	assert.ErrorIs(t, err, product.ErrNotFound)
}

func TestCouponFilter_Postgres(t *testing.T) {
	ctx := context.Background()
	repo := NewCouponRepository(pool)

	_, err := repo.Upsert(ctx, coupon.Coupon{
		Code:   "FTEST20",
		Type:   coupon.TypePercentage,
		Value:  decimal.NewFromInt(20),
		Status: coupon.StatusActive,
	})
	require.NoError(t, err)

	f, err := NewCouponFilter(ctx, repo, 1000, 0.001)
	require.NoError(t, err)

	c, err := f.FindByCode(ctx, "FTEST20")
	require.NoError(t, err)
	assert.Equal(t, "FTEST20", c.Code)

	_, err = f.FindByCode(ctx, "MISSING")
	assert.ErrorIs(t, err, coupon.ErrNotFound)
}
