// Package config loads service configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/neomorfeo/adoptiq/internal/domain"
)

// Rate-limit policy names. They namespace the counter keys.
const (
	PolicyPayment   = "payment"
	PolicyTestimony = "testimony"
)

// Config is the service configuration.
type Config struct {
	Port         string `env:"PORT"          envDefault:"8080"`
	DatabasePath string `env:"DATABASE_PATH" envDefault:"adoptiq.db"`

	AntiBotSecret string `env:"ANTIBOT_SECRET,required,notEmpty"`
	JWTSecret     string `env:"JWT_SECRET,required,notEmpty"`

	ProcessorAPIKey        string `env:"PROCESSOR_API_KEY"`
	ProcessorBaseURL       string `env:"PROCESSOR_BASE_URL"       envDefault:"https://api.stripe.com"`
	ProcessorWebhookSecret string `env:"PROCESSOR_WEBHOOK_SECRET"`

	// RedisURL selects the shared counter store. Empty keeps counters in
	// process, which is only correct for a single instance.
	RedisURL string `env:"REDIS_URL"`

	AdoptionValidity time.Duration `env:"ADOPTION_VALIDITY" envDefault:"720h"`
	SweepInterval    time.Duration `env:"SWEEP_INTERVAL"    envDefault:"1h"`

	PaymentWindow   time.Duration `env:"RATE_LIMIT_PAYMENT_WINDOW"   envDefault:"15m"`
	PaymentMax      int           `env:"RATE_LIMIT_PAYMENT_MAX"      envDefault:"5"`
	TestimonyWindow time.Duration `env:"RATE_LIMIT_TESTIMONY_WINDOW" envDefault:"1h"`
	TestimonyMax    int           `env:"RATE_LIMIT_TESTIMONY_MAX"    envDefault:"3"`

	// GlobalRPS caps requests per second per client across the whole
	// router. Zero disables the cap.
	GlobalRPS float64 `env:"GLOBAL_RPS" envDefault:"20"`
}

// Load parses and validates the configuration.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Validate checks value ranges that env tags cannot express.
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.AntiBotSecret, validation.Required, validation.Length(16, 0)),
		validation.Field(&c.JWTSecret, validation.Required, validation.Length(16, 0)),
		validation.Field(&c.ProcessorBaseURL, validation.Required, is.URL),
		validation.Field(&c.AdoptionValidity, validation.Min(time.Hour)),
		validation.Field(&c.SweepInterval, validation.Min(time.Minute)),
		validation.Field(&c.PaymentWindow, validation.Min(time.Second)),
		validation.Field(&c.PaymentMax, validation.Min(1)),
		validation.Field(&c.TestimonyWindow, validation.Min(time.Second)),
		validation.Field(&c.TestimonyMax, validation.Min(1)),
		validation.Field(&c.GlobalRPS, validation.Min(0.0)),
	)
}

// PaymentPolicy is the limit applied to payment and subscription creation.
func (c Config) PaymentPolicy() domain.RateLimitPolicy {
	return domain.RateLimitPolicy{Name: PolicyPayment, Window: c.PaymentWindow, MaxRequests: c.PaymentMax}
}

// TestimonyPolicy is the limit applied to testimony submission.
func (c Config) TestimonyPolicy() domain.RateLimitPolicy {
	return domain.RateLimitPolicy{Name: PolicyTestimony, Window: c.TestimonyWindow, MaxRequests: c.TestimonyMax}
}
