package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestDefaultPolicyIsValid(t *testing.T) {
	require.NoError(t, ValidatePolicy(DefaultPolicy()))
}

func TestDefaultPolicyHasNoDurationCap(t *testing.T) {
	assert.Zero(t, DefaultPolicy().Booking.MaxDurationMinutes)
}

func TestValidatePolicy(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p *Policy)
	}{
		{"currency too short", func(p *Policy) { p.DefaultCurrency = "us" }},
		{"unknown isolation", func(p *Policy) { p.Booking.Isolation = "snapshot" }},
		{"negative retries", func(p *Policy) { p.Booking.SerializationRetries = -1 }},
		{"negative duration cap", func(p *Policy) { p.Booking.MaxDurationMinutes = -1 }},
		{"no gateway attempts", func(p *Policy) { p.Gateway.MaxAttempts = 0 }},
		{"no attempt timeout", func(p *Policy) { p.Gateway.AttemptTimeout = 0 }},
		{"negative due days", func(p *Policy) { p.Invoice.DueDays = -3 }},
		{"zero burst", func(p *Policy) { p.RateLimit.Burst = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultPolicy()
			tt.mutate(&p)
			assert.Error(t, ValidatePolicy(p))
		})
	}
}

func TestNewPolicyHolderUsesDefaultsAndEnv(t *testing.T) {
	t.Setenv("SPACEBOOK_DEFAULT_CURRENCY", "EUR")
	t.Setenv("SPACEBOOK_GATEWAY_MAX_ATTEMPTS", "5")

	holder, err := NewPolicyHolder(zaptest.NewLogger(t))
	require.NoError(t, err)

	p := holder.Get()
	assert.Equal(t, "eur", p.DefaultCurrency)
	assert.Equal(t, 5, p.Gateway.MaxAttempts)
	assert.Equal(t, IsolationReadCommitted, p.Booking.Isolation)
	assert.Equal(t, 12*time.Second, p.Gateway.AttemptTimeout)
}

func TestStaticPolicyHolder(t *testing.T) {
	p := DefaultPolicy()
	p.Invoice.DueDays = 14

	holder := NewStaticPolicyHolder(p)
	assert.Equal(t, 14, holder.Get().Invoice.DueDays)
}
