package config

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	IsolationReadCommitted = "read_committed"
	IsolationSerializable  = "serializable"
)

// Policy is the operator-tunable part of the configuration. It is read from
// policy.yaml and reloaded on change.
type Policy struct {
	DefaultCurrency string          `mapstructure:"default_currency"`
	Booking         BookingPolicy   `mapstructure:"booking"`
	Gateway         GatewayPolicy   `mapstructure:"gateway"`
	Invoice         InvoicePolicy   `mapstructure:"invoice"`
	RateLimit       RateLimitPolicy `mapstructure:"rate_limit"`
}

type BookingPolicy struct {
	Isolation            string `mapstructure:"isolation"`
	SerializationRetries int    `mapstructure:"serialization_retries"`
	// MaxDurationMinutes caps a single booking window. Zero disables the cap.
	MaxDurationMinutes int64 `mapstructure:"max_duration_minutes"`
}

type GatewayPolicy struct {
	MaxAttempts    int           `mapstructure:"max_attempts"`
	AttemptTimeout time.Duration `mapstructure:"attempt_timeout"`
	InitialBackoff time.Duration `mapstructure:"initial_backoff"`
	MaxBackoff     time.Duration `mapstructure:"max_backoff"`
}

type InvoicePolicy struct {
	DueDays      int    `mapstructure:"due_days"`
	NumberPrefix string `mapstructure:"number_prefix"`
}

type RateLimitPolicy struct {
	Rate  float64 `mapstructure:"rate"`
	Burst int     `mapstructure:"burst"`
}

func DefaultPolicy() Policy {
	return Policy{
		DefaultCurrency: "usd",
		Booking: BookingPolicy{
			Isolation:            IsolationReadCommitted,
			SerializationRetries: 3,
		},
		Gateway: GatewayPolicy{
			MaxAttempts:    3,
			AttemptTimeout: 12 * time.Second,
			InitialBackoff: 200 * time.Millisecond,
			MaxBackoff:     2 * time.Second,
		},
		Invoice: InvoicePolicy{
			DueDays:      0,
			NumberPrefix: "INV",
		},
		RateLimit: RateLimitPolicy{
			Rate:  1,
			Burst: 10,
		},
	}
}

type PolicyHolder struct {
	current atomic.Pointer[Policy]
}

// NewStaticPolicyHolder returns a holder that never reloads.
func NewStaticPolicyHolder(p Policy) *PolicyHolder {
	holder := &PolicyHolder{}
	holder.current.Store(&p)
	return holder
}

func NewPolicyHolder(log *zap.Logger) (*PolicyHolder, error) {
	log = log.Named("config.policy")
	v := viper.New()

	v.SetConfigName("policy")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/spacebook")
	v.AddConfigPath(".")

	v.SetEnvPrefix("SPACEBOOK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setPolicyDefaults(v, DefaultPolicy())

	fileFound := true
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		fileFound = false
	}

	cfg, err := decodePolicy(v)
	if err != nil {
		return nil, err
	}

	holder := NewStaticPolicyHolder(cfg)
	if !fileFound {
		log.Info("policy file not found, using defaults")
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		updated, err := decodePolicy(v)
		if err != nil {
			log.Warn("policy reload rejected", zap.String("file", e.Name), zap.Error(err))
			return
		}
		holder.current.Store(&updated)
		log.Info("policy reloaded", zap.String("file", e.Name))
	})

	return holder, nil
}

func (h *PolicyHolder) Get() Policy {
	return *h.current.Load()
}

func setPolicyDefaults(v *viper.Viper, p Policy) {
	v.SetDefault("default_currency", p.DefaultCurrency)
	v.SetDefault("booking.isolation", p.Booking.Isolation)
	v.SetDefault("booking.serialization_retries", p.Booking.SerializationRetries)
	v.SetDefault("booking.max_duration_minutes", p.Booking.MaxDurationMinutes)
	v.SetDefault("gateway.max_attempts", p.Gateway.MaxAttempts)
	v.SetDefault("gateway.attempt_timeout", p.Gateway.AttemptTimeout)
	v.SetDefault("gateway.initial_backoff", p.Gateway.InitialBackoff)
	v.SetDefault("gateway.max_backoff", p.Gateway.MaxBackoff)
	v.SetDefault("invoice.due_days", p.Invoice.DueDays)
	v.SetDefault("invoice.number_prefix", p.Invoice.NumberPrefix)
	v.SetDefault("rate_limit.rate", p.RateLimit.Rate)
	v.SetDefault("rate_limit.burst", p.RateLimit.Burst)
}

func decodePolicy(v *viper.Viper) (Policy, error) {
	var cfg Policy
	if err := v.Unmarshal(&cfg); err != nil {
		return Policy{}, err
	}
	cfg.DefaultCurrency = strings.ToLower(strings.TrimSpace(cfg.DefaultCurrency))
	cfg.Booking.Isolation = strings.ToLower(strings.TrimSpace(cfg.Booking.Isolation))
	if err := ValidatePolicy(cfg); err != nil {
		return Policy{}, err
	}
	return cfg, nil
}

func ValidatePolicy(cfg Policy) error {
	if len(cfg.DefaultCurrency) != 3 {
		return fmt.Errorf("default_currency must be a 3-letter code, got %q", cfg.DefaultCurrency)
	}
	switch cfg.Booking.Isolation {
	case IsolationReadCommitted, IsolationSerializable:
	default:
		return fmt.Errorf("booking.isolation must be %q or %q", IsolationReadCommitted, IsolationSerializable)
	}
	if cfg.Booking.SerializationRetries < 0 {
		return errors.New("booking.serialization_retries cannot be negative")
	}
	if cfg.Booking.MaxDurationMinutes < 0 {
		return errors.New("booking.max_duration_minutes cannot be negative")
	}
	if cfg.Gateway.MaxAttempts < 1 {
		return errors.New("gateway.max_attempts must be at least 1")
	}
	if cfg.Gateway.AttemptTimeout <= 0 {
		return errors.New("gateway.attempt_timeout must be positive")
	}
	if cfg.Invoice.DueDays < 0 {
		return errors.New("invoice.due_days cannot be negative")
	}
	if cfg.RateLimit.Rate <= 0 || cfg.RateLimit.Burst <= 0 {
		return errors.New("rate_limit.rate and rate_limit.burst must be positive")
	}
	return nil
}
