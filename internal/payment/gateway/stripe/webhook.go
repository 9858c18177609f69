package stripe

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/smallbiznis/spacebook/internal/payment/gateway"
	stripe "github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"
)

var ErrMissingWebhookSecret = errors.New("stripe webhook secret is not configured")

type WebhookParser struct {
	secret string
}

func NewWebhookParser(secret string) (*WebhookParser, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, ErrMissingWebhookSecret
	}
	return &WebhookParser{secret: secret}, nil
}

// ParseWebhook verifies the Stripe-Signature header and extracts the intent
// the event is about.
func (p *WebhookParser) ParseWebhook(payload []byte, signature string) (gateway.WebhookEvent, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, p.secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return gateway.WebhookEvent{}, gateway.ErrWebhookSignature
	}

	out := gateway.WebhookEvent{ID: event.ID, Type: string(event.Type)}
	if !strings.HasPrefix(out.Type, "payment_intent.") || event.Data == nil {
		return out, nil
	}

	var pi stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
		return gateway.WebhookEvent{}, err
	}
	out.IntentID = pi.ID
	return out, nil
}

var _ gateway.WebhookParser = (*WebhookParser)(nil)
