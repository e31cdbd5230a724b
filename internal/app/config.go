package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
	"github.com/joho/godotenv"
)

// Environments.
const (
	EnvDev  = "dev"
	EnvProd = "prod"
)

// Payment modes.
const (
	PaymentSandbox = "sandbox"
	PaymentLive    = "live"
)

const defaultAddr = "0.0.0.0:8080"

// Config holds the complete application configuration, loadable from
// environment variables (STOREFRONT_ prefix), flags, or YAML config files.
type Config struct {
	Addr         string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL  string `usage:"PostgreSQL connection URL (STOREFRONT_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	Env          string `default:"prod" usage:"Runtime environment: dev or prod"`
	Payment      PaymentConfig
	CouponFilter CouponFilterConfig
	Graceful     GracefulConfig
}

// PaymentConfig selects and configures the payment processors.
type PaymentConfig struct {
	Mode                string `default:"sandbox" usage:"Processor mode: sandbox or live"`
	StripeSecretKey     string `usage:"Stripe secret API key (live mode)" flag:"stripe-secret-key"`
	StripePaymentMethod string `default:"pm_card_visa" usage:"Stripe payment method confirmed with each intent"`
	Currency            string `default:"eur" usage:"ISO currency for Stripe payment intents"`
	StripeMinAmount     int64  `default:"100" usage:"Sandbox Stripe declines amounts below this"`
	PaypalMaxAmount     int64  `default:"100000" usage:"Sandbox Paypal fails amounts above this"`
}

// CouponFilterConfig controls the bloom filter in front of coupon lookups.
type CouponFilterConfig struct {
	Enabled         bool          `default:"true" usage:"Skip database lookups for unknown coupon codes"`
	Capacity        uint          `default:"100000" usage:"Expected number of coupon codes"`
	FPR             float64       `default:"0.001" usage:"Target false positive rate"`
	RefreshInterval time.Duration `default:"1m" usage:"How often the filter is rebuilt from the database"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads an optional .env file, then configuration from
// environment variables and YAML config files.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, errors.Wrap(err, "load .env")
	}

	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "STOREFRONT",
		Files:     []string{"config.yaml", "/etc/storefront/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return errors.New("database URL is required: set STOREFRONT_DATABASE_URL or DATABASE_URL")
	}
	switch c.Env {
	case EnvDev, EnvProd:
	default:
		return errors.Errorf("unknown env %q", c.Env)
	}
	switch c.Payment.Mode {
	case PaymentSandbox:
	case PaymentLive:
		if c.Payment.StripeSecretKey == "" {
			return errors.New("live payment mode requires a Stripe secret key")
		}
	default:
		return errors.Errorf("unknown payment mode %q", c.Payment.Mode)
	}
	if c.CouponFilter.Enabled && (c.CouponFilter.FPR <= 0 || c.CouponFilter.FPR >= 1) {
		return errors.Errorf("coupon filter FPR %v out of range (0, 1)", c.CouponFilter.FPR)
	}
	return nil
}

// applyPlatformDefaults maps platform-provided DATABASE_URL and PORT onto the
// STOREFRONT_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		c.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == defaultAddr {
		c.Addr = "0.0.0.0:" + port
	}
}
