package gateway

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/smallbiznis/spacebook/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func fastPolicy() *config.PolicyHolder {
	p := config.DefaultPolicy()
	p.Gateway.MaxAttempts = 3
	p.Gateway.AttemptTimeout = time.Second
	p.Gateway.InitialBackoff = time.Millisecond
	p.Gateway.MaxBackoff = 5 * time.Millisecond
	return config.NewStaticPolicyHolder(p)
}

func TestRetryingRecoversFromTransientFailures(t *testing.T) {
	fake := NewFake()
	fake.FailNext("create_intent",
		&Error{Op: "create_intent", Outcome: OutcomeTransient, Err: errors.New("connection reset")},
		errors.New("eof"),
	)
	gw := NewRetrying(fake, fastPolicy(), nil, zaptest.NewLogger(t))

	intent, err := gw.CreateIntent(context.Background(), CreateIntentInput{AmountMinor: 100, Currency: "usd", IdempotencyKey: "k1"})
	require.NoError(t, err)
	assert.NotEmpty(t, intent.ID)
	assert.Equal(t, 3, fake.Calls("create_intent"))
}

func TestRetryingDoesNotRetryRejections(t *testing.T) {
	fake := NewFake()
	gw := NewRetrying(fake, fastPolicy(), nil, zaptest.NewLogger(t))

	_, err := gw.RetrieveIntent(context.Background(), "pi_missing")
	require.Error(t, err)
	assert.Equal(t, OutcomeRejected, OutcomeOf(err))
	assert.Equal(t, 1, fake.Calls("retrieve_intent"))
}

func TestRetryingReportsUnknownWhenExhausted(t *testing.T) {
	fake := NewFake()
	transient := &Error{Op: "retrieve_intent", Outcome: OutcomeTransient, Err: errors.New("timeout")}
	fake.FailNext("retrieve_intent", transient, transient, transient)
	gw := NewRetrying(fake, fastPolicy(), nil, zaptest.NewLogger(t))

	_, err := gw.RetrieveIntent(context.Background(), "pi_any")
	require.Error(t, err)
	assert.Equal(t, OutcomeUnknown, OutcomeOf(err))
	assert.Equal(t, 3, fake.Calls("retrieve_intent"))
}

func TestFakeHonoursIdempotencyKeys(t *testing.T) {
	fake := NewFake()
	ctx := context.Background()

	first, err := fake.CreateIntent(ctx, CreateIntentInput{AmountMinor: 100, Currency: "usd", IdempotencyKey: "booking:1:attempt:1"})
	require.NoError(t, err)
	again, err := fake.CreateIntent(ctx, CreateIntentInput{AmountMinor: 100, Currency: "usd", IdempotencyKey: "booking:1:attempt:1"})
	require.NoError(t, err)
	other, err := fake.CreateIntent(ctx, CreateIntentInput{AmountMinor: 100, Currency: "usd", IdempotencyKey: "booking:1:attempt:2"})
	require.NoError(t, err)

	assert.Equal(t, first.ID, again.ID)
	assert.NotEqual(t, first.ID, other.ID)
}
