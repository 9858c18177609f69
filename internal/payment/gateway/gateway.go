package gateway

import (
	"context"
	"errors"
	"fmt"

	paymentdomain "github.com/smallbiznis/spacebook/internal/payment/domain"
)

// Outcome classifies a failed gateway call.
type Outcome string

const (
	// OutcomeTransient failures may succeed when retried.
	OutcomeTransient Outcome = "transient"
	// OutcomeRejected means the gateway refused the request; retrying will not help.
	OutcomeRejected Outcome = "rejected"
	// OutcomeUnknown means the call may or may not have taken effect.
	OutcomeUnknown Outcome = "unknown"
)

var ErrWebhookSignature = errors.New("invalid_webhook_signature")

type Error struct {
	Op      string
	Outcome Outcome
	Code    string
	Err     error
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("gateway %s %s (%s): %v", e.Op, e.Outcome, e.Code, e.Err)
	}
	return fmt.Sprintf("gateway %s %s: %v", e.Op, e.Outcome, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// OutcomeOf returns the outcome carried by err, or "" when err is not a gateway error.
func OutcomeOf(err error) Outcome {
	var gwErr *Error
	if errors.As(err, &gwErr) {
		return gwErr.Outcome
	}
	return ""
}

type Intent struct {
	ID           string
	ClientSecret string
	Status       paymentdomain.Status
	AmountMinor  int64
	Currency     string
	Metadata     map[string]string
}

type CreateIntentInput struct {
	AmountMinor    int64
	Currency       string
	Metadata       map[string]string
	IdempotencyKey string
}

type Gateway interface {
	CreateIntent(ctx context.Context, in CreateIntentInput) (Intent, error)
	RetrieveIntent(ctx context.Context, id string) (Intent, error)
	UpdateIntentAmount(ctx context.Context, id string, amountMinor int64, currency string) (Intent, error)
}

// WebhookEvent is a verified gateway notification about one intent.
type WebhookEvent struct {
	ID       string
	Type     string
	IntentID string
}

const (
	EventIntentSucceeded  = "payment_intent.succeeded"
	EventIntentProcessing = "payment_intent.processing"
	EventIntentCanceled   = "payment_intent.canceled"
	EventIntentFailed     = "payment_intent.payment_failed"
)

type WebhookParser interface {
	ParseWebhook(payload []byte, signature string) (WebhookEvent, error)
}
