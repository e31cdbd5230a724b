package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/storefront-pricing/internal/domain/coupon"
	"github.com/xenking/storefront-pricing/internal/domain/payment"
	"github.com/xenking/storefront-pricing/internal/domain/purchase"
	"github.com/xenking/storefront-pricing/internal/gateway"
	"github.com/xenking/storefront-pricing/internal/handler"
	"github.com/xenking/storefront-pricing/internal/repository"
	"github.com/xenking/storefront-pricing/pkg/health"
	"github.com/xenking/storefront-pricing/pkg/httpmiddleware"
)

const serviceName = "storefront-api"

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing",
		zap.String("addr", cfg.Addr),
		zap.String("env", cfg.Env),
		zap.String("payment_mode", cfg.Payment.Mode),
	)

	version, err := repository.RunMigrations(cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "run migrations")
	}
	lg.Info("Schema migrated", zap.Uint("version", version))

	pool, err := repository.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	healthSvc := health.New()
	healthSvc.Add(health.Readiness, "postgres", 5*time.Second, health.PingCheck(pool))
	healthSvc.Add(health.Liveness, "goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.Start(ctx, 10*time.Second)
	defer healthSvc.Stop()

	products := repository.NewProductRepository(pool)
	couponRepo := repository.NewCouponRepository(pool)

	var (
		coupons coupon.Repository = couponRepo
		filter  *repository.CouponFilter
	)
	if cfg.CouponFilter.Enabled {
		filter, err = repository.NewCouponFilter(ctx, couponRepo, cfg.CouponFilter.Capacity, cfg.CouponFilter.FPR)
		if err != nil {
			return errors.Wrap(err, "build coupon filter")
		}
		coupons = filter
	}

	paypal, stripe, err := processors(cfg.Payment)
	if err != nil {
		return errors.Wrap(err, "create payment processors")
	}
	dispatcher, err := payment.NewDispatcher(paypal, stripe, lg.Named("payment"),
		m.MeterProvider().Meter("github.com/xenking/storefront-pricing/internal/domain/payment"))
	if err != nil {
		return errors.Wrap(err, "create payment dispatcher")
	}

	svc := purchase.NewService(products, coupon.NewRepoValidator(coupons), dispatcher,
		purchase.WithTracerProvider(m.TracerProvider()),
	)
	h := handler.NewHandler(handler.Config{Dev: cfg.Env == EnvDev}, svc, coupons)

	router := chi.NewRouter()
	router.NotFound(handler.NotFound)
	router.MethodNotAllowed(handler.MethodNotAllowed)
	router.Get("/livez", healthSvc.LiveEndpoint)
	router.Get("/readyz", healthSvc.ReadyEndpoint)
	h.Register(router)

	routeFinder := httpmiddleware.MakeRouteFinder(router)
	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(router,
			httpmiddleware.Recovery(),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.Instrument(serviceName, routeFinder, m),
			httpmiddleware.LogRequests(routeFinder),
			httpmiddleware.Labeler(routeFinder),
		),
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		lg.Info("Server listening", zap.String("addr", cfg.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "server")
		}
		return nil
	})
	g.Go(func() error {
		<-gCtx.Done()
		healthSvc.SetReady(false)
		if ctx.Err() != nil {
			lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
			time.Sleep(cfg.Graceful.ReadinessDelay)
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			return errors.Wrap(err, "shutdown")
		}
		return nil
	})
	if filter != nil {
		g.Go(func() error {
			refreshCouponFilter(gCtx, lg, filter, cfg.CouponFilter.RefreshInterval)
			return nil
		})
	}

	healthSvc.SetReady(true)
	return g.Wait()
}

// processors builds the Paypal and Stripe adapters for the configured mode.
// Paypal has no live adapter and always runs against the sandbox.
func processors(cfg PaymentConfig) (payment.PaypalProcessor, payment.StripeProcessor, error) {
	paypal := &gateway.SandboxPaypal{MaxAmount: cfg.PaypalMaxAmount}
	if cfg.Mode != PaymentLive {
		return paypal, &gateway.SandboxStripe{MinAmount: decimal.NewFromInt(cfg.StripeMinAmount)}, nil
	}

	stripe, err := gateway.NewStripeLive(gateway.StripeConfig{
		SecretKey:     cfg.StripeSecretKey,
		Currency:      cfg.Currency,
		PaymentMethod: cfg.StripePaymentMethod,
	}, nil)
	if err != nil {
		return nil, nil, err
	}
	return paypal, stripe, nil
}

func refreshCouponFilter(ctx context.Context, lg *zap.Logger, f *repository.CouponFilter, interval time.Duration) {
	if interval <= 0 {
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if err := f.Refresh(ctx); err != nil && ctx.Err() == nil {
				lg.Warn("Coupon filter refresh failed", zap.Error(err))
			}
		}
	}
}
