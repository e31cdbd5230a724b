package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/storefront-pricing/internal/domain/coupon"
	"github.com/xenking/storefront-pricing/internal/domain/product"
	"github.com/xenking/storefront-pricing/internal/repository"
)

func main() {
	var databaseURL string

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, time.Now()); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL string, now time.Time) error {
	slog.Info("running migrations")

	if _, err := repository.RunMigrations(databaseURL); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	// Products reference coupons by code, so coupons go first.
	if err := seedCoupons(ctx, pool, fixtureCoupons(now)); err != nil {
		return errors.Wrap(err, "seed coupons")
	}
	if err := seedProducts(ctx, pool, fixtureProducts()); err != nil {
		return errors.Wrap(err, "seed products")
	}

	return nil
}

func seedCoupons(ctx context.Context, pool *pgxpool.Pool, coupons []coupon.Coupon) error {
	repo := repository.NewCouponRepository(pool)
	slog.Info("upserting coupons", slog.Int("count", len(coupons)))

	g, ctx := errgroup.WithContext(ctx)
	for _, c := range coupons {
		g.Go(func() error {
			id, err := repo.Upsert(ctx, c)
			if err != nil {
				return err
			}
			slog.Info("upserted coupon", slog.String("code", c.Code), slog.Int64("id", id))
			return nil
		})
	}
	return g.Wait()
}

func seedProducts(ctx context.Context, pool *pgxpool.Pool, products []product.Product) error {
	repo := repository.NewProductRepository(pool)
	slog.Info("upserting products", slog.Int("count", len(products)))

	g, ctx := errgroup.WithContext(ctx)
	for _, p := range products {
		g.Go(func() error {
			id, err := repo.Upsert(ctx, p)
			if err != nil {
				return err
			}
			slog.Info("upserted product",
				slog.Int64("id", id),
				slog.String("name", p.Name),
				slog.String("coupon", p.CouponCode),
			)
			return nil
		})
	}
	return g.Wait()
}

func fixtureCoupons(now time.Time) []coupon.Coupon {
	at := func(years, months, days int) *time.Time {
		t := now.AddDate(years, months, days)
		return &t
	}
	limit := func(n int) *int { return &n }

	return []coupon.Coupon{
		{
			Code:        "WELCOME10",
			Type:        coupon.TypePercentage,
			Value:       decimal.NewFromInt(10),
			Status:      coupon.StatusActive,
			Description: "10% off for new customers",
			UsageLimit:  limit(100),
			TimesUsed:   25,
			ValidFrom:   at(0, -1, 0),
			ValidTo:     at(0, 2, 0),
		},
		{
			Code:        "FIXED15",
			Type:        coupon.TypeFixed,
			Value:       decimal.NewFromInt(15),
			Status:      coupon.StatusActive,
			Description: "15 EUR off",
			UsageLimit:  limit(50),
			TimesUsed:   12,
			ValidFrom:   at(0, 0, -7),
			ValidTo:     at(0, 1, 0),
		},
		{
			Code:        "SUMMER25",
			Type:        coupon.TypePercentage,
			Value:       decimal.NewFromInt(25),
			Status:      coupon.StatusActive,
			Description: "Summer sale 25% off",
			UsageLimit:  limit(200),
			TimesUsed:   89,
			ValidFrom:   at(0, 0, -15),
			ValidTo:     at(0, 0, 45),
		},
		{
			Code:        "FREESHIP",
			Type:        coupon.TypeFixed,
			Value:       decimal.RequireFromString("5.99"),
			Status:      coupon.StatusActive,
			Description: "Free shipping",
			TimesUsed:   156,
		},
		{
			Code:        "EXPIRED99",
			Type:        coupon.TypePercentage,
			Value:       decimal.NewFromInt(50),
			Status:      coupon.StatusInactive,
			Description: "Expired coupon",
			UsageLimit:  limit(100),
			TimesUsed:   100,
			ValidFrom:   at(0, -6, 0),
			ValidTo:     at(0, -1, 0),
		},
	}
}

func fixtureProducts() []product.Product {
	return []product.Product{
		{
			Name:        "iPhone 15 Pro",
			Description: "Apple flagship smartphone with A17 Pro chip and 48 MP camera",
			Price:       decimal.RequireFromString("1199.99"),
			Stock:       50,
			Active:      true,
			CouponCode:  "WELCOME10",
		},
		{
			Name:        "Samsung Galaxy S24",
			Description: "Android smartphone with AMOLED display",
			Price:       decimal.RequireFromString("899.99"),
			Stock:       75,
			Active:      true,
			CouponCode:  "FIXED15",
		},
		{
			Name:        "MacBook Air M2",
			Description: "Lightweight laptop with Apple M2 chip and Retina display",
			Price:       decimal.RequireFromString("1299.00"),
			Stock:       25,
			Active:      true,
			CouponCode:  "SUMMER25",
		},
		{
			Name:        "Sony WH-1000XM5",
			Description: "Wireless noise-cancelling headphones",
			Price:       decimal.RequireFromString("349.99"),
			Stock:       100,
			Active:      true,
			CouponCode:  "FREESHIP",
		},
		{
			Name:        "Apple Watch Series 9",
			Description: "Smartwatch with ECG and always-on display",
			Price:       decimal.RequireFromString("399.00"),
			Stock:       0,
			Active:      false,
		},
		{
			Name:        "Headphones TWS900",
			Description: "Budget TWS earbuds",
			Price:       decimal.RequireFromString("20.00"),
			Stock:       100,
			Active:      true,
		},
		{
			Name:        "Plastic phone case Samsung+",
			Description: "Plastic case for Samsung phones",
			Price:       decimal.RequireFromString("10.00"),
			Stock:       100,
			Active:      true,
		},
	}
}
