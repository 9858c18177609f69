package gateway

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/smallbiznis/spacebook/internal/config"
	obsmetrics "github.com/smallbiznis/spacebook/internal/observability/metrics"
	"go.uber.org/zap"
)

// Retrying wraps a Gateway with per-attempt timeouts and exponential backoff
// on transient failures. Whatever is still failing when the budget or the
// caller's deadline runs out is reported as OutcomeUnknown.
type Retrying struct {
	next    Gateway
	policy  *config.PolicyHolder
	metrics *obsmetrics.Metrics
	log     *zap.Logger
}

func NewRetrying(next Gateway, policy *config.PolicyHolder, metrics *obsmetrics.Metrics, log *zap.Logger) *Retrying {
	return &Retrying{
		next:    next,
		policy:  policy,
		metrics: metrics,
		log:     log.Named("payment.gateway"),
	}
}

func (r *Retrying) CreateIntent(ctx context.Context, in CreateIntentInput) (Intent, error) {
	return r.call(ctx, "create_intent", func(ctx context.Context) (Intent, error) {
		return r.next.CreateIntent(ctx, in)
	})
}

func (r *Retrying) RetrieveIntent(ctx context.Context, id string) (Intent, error) {
	return r.call(ctx, "retrieve_intent", func(ctx context.Context) (Intent, error) {
		return r.next.RetrieveIntent(ctx, id)
	})
}

func (r *Retrying) UpdateIntentAmount(ctx context.Context, id string, amountMinor int64, currency string) (Intent, error) {
	return r.call(ctx, "update_intent", func(ctx context.Context) (Intent, error) {
		return r.next.UpdateIntentAmount(ctx, id, amountMinor, currency)
	})
}

func (r *Retrying) call(ctx context.Context, op string, fn func(context.Context) (Intent, error)) (Intent, error) {
	policy := r.policy.Get().Gateway

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = policy.InitialBackoff
	b.MaxInterval = policy.MaxBackoff

	started := time.Now()
	attempt := 0
	intent, err := backoff.Retry(ctx, func() (Intent, error) {
		attempt++
		attemptCtx, cancel := context.WithTimeout(ctx, policy.AttemptTimeout)
		defer cancel()

		intent, err := fn(attemptCtx)
		if err == nil {
			return intent, nil
		}
		err = classify(op, err)
		if OutcomeOf(err) == OutcomeRejected {
			return Intent{}, backoff.Permanent(err)
		}
		return Intent{}, err
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(policy.MaxAttempts)),
		backoff.WithNotify(func(err error, next time.Duration) {
			r.log.Warn("gateway call failed, retrying",
				zap.String("op", op),
				zap.Int("attempt", attempt),
				zap.Duration("backoff", next),
				zap.Error(err),
			)
		}),
	)

	outcome := "ok"
	if err != nil {
		if OutcomeOf(err) != OutcomeRejected {
			err = &Error{Op: op, Outcome: OutcomeUnknown, Err: err}
		}
		outcome = string(OutcomeOf(err))
		r.log.Warn("gateway call gave up",
			zap.String("op", op),
			zap.Int("attempts", attempt),
			zap.String("outcome", outcome),
			zap.Error(err),
		)
	}
	r.metrics.GatewayCall(op, outcome, time.Since(started))
	return intent, err
}

// classify turns unclassified errors into gateway errors. A timed out
// attempt is transient: the next attempt reuses the idempotency key.
func classify(op string, err error) error {
	var gwErr *Error
	if errors.As(err, &gwErr) {
		return err
	}
	return &Error{Op: op, Outcome: OutcomeTransient, Err: err}
}

var _ Gateway = (*Retrying)(nil)
