package stripe

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/smallbiznis/spacebook/internal/config"
	paymentdomain "github.com/smallbiznis/spacebook/internal/payment/domain"
	"github.com/smallbiznis/spacebook/internal/payment/gateway"
	stripe "github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"go.uber.org/zap"
)

var ErrMissingSecretKey = errors.New("stripe secret key is not configured")

// Gateway talks to the Stripe PaymentIntents API. Retries are left to
// gateway.Retrying, so the client's own network retries are disabled.
type Gateway struct {
	api *client.API
}

func New(cfg config.StripeConfig, log *zap.Logger) (*Gateway, error) {
	key := strings.TrimSpace(cfg.SecretKey)
	if key == "" {
		return nil, ErrMissingSecretKey
	}

	backendCfg := &stripe.BackendConfig{
		HTTPClient:        &http.Client{},
		LeveledLogger:     log.Named("stripe").Sugar(),
		MaxNetworkRetries: stripe.Int64(0),
	}
	if url := strings.TrimRight(strings.TrimSpace(cfg.APIURL), "/"); url != "" {
		backendCfg.URL = stripe.String(url)
	}
	backend := stripe.GetBackendWithConfig(stripe.APIBackend, backendCfg)

	return &Gateway{
		api: client.New(key, &stripe.Backends{
			API:     backend,
			Connect: backend,
			Uploads: backend,
		}),
	}, nil
}

func (g *Gateway) CreateIntent(ctx context.Context, in gateway.CreateIntentInput) (gateway.Intent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(in.AmountMinor),
		Currency: stripe.String(strings.ToLower(in.Currency)),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	if in.IdempotencyKey != "" {
		params.SetIdempotencyKey(in.IdempotencyKey)
	}
	for k, v := range in.Metadata {
		params.AddMetadata(k, v)
	}

	pi, err := g.api.PaymentIntents.New(params)
	if err != nil {
		return gateway.Intent{}, classify("create_intent", err)
	}
	return toIntent(pi), nil
}

func (g *Gateway) RetrieveIntent(ctx context.Context, id string) (gateway.Intent, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	pi, err := g.api.PaymentIntents.Get(id, params)
	if err != nil {
		return gateway.Intent{}, classify("retrieve_intent", err)
	}
	return toIntent(pi), nil
}

func (g *Gateway) UpdateIntentAmount(ctx context.Context, id string, amountMinor int64, currency string) (gateway.Intent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amountMinor),
		Currency: stripe.String(strings.ToLower(currency)),
	}
	params.Context = ctx

	pi, err := g.api.PaymentIntents.Update(id, params)
	if err != nil {
		return gateway.Intent{}, classify("update_intent", err)
	}
	return toIntent(pi), nil
}

func toIntent(pi *stripe.PaymentIntent) gateway.Intent {
	if pi == nil {
		return gateway.Intent{}
	}
	return gateway.Intent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Status:       MapStatus(pi.Status),
		AmountMinor:  pi.Amount,
		Currency:     strings.ToLower(string(pi.Currency)),
		Metadata:     pi.Metadata,
	}
}

// MapStatus folds Stripe's intent statuses into the payment lifecycle.
// Statuses that still wait on the payer count as requires_payment_method;
// an authorized but uncaptured intent counts as processing.
func MapStatus(status stripe.PaymentIntentStatus) paymentdomain.Status {
	switch status {
	case stripe.PaymentIntentStatusSucceeded:
		return paymentdomain.StatusSucceeded
	case stripe.PaymentIntentStatusCanceled:
		return paymentdomain.StatusCanceled
	case stripe.PaymentIntentStatusProcessing, stripe.PaymentIntentStatusRequiresCapture:
		return paymentdomain.StatusProcessing
	default:
		return paymentdomain.StatusRequiresPaymentMethod
	}
}

func classify(op string, err error) error {
	var stripeErr *stripe.Error
	if !errors.As(err, &stripeErr) {
		return &gateway.Error{Op: op, Outcome: gateway.OutcomeTransient, Err: err}
	}

	outcome := gateway.OutcomeRejected
	switch {
	case stripeErr.HTTPStatusCode >= http.StatusInternalServerError,
		stripeErr.HTTPStatusCode == http.StatusTooManyRequests,
		stripeErr.HTTPStatusCode == http.StatusConflict,
		stripeErr.Type == stripe.ErrorTypeAPI:
		outcome = gateway.OutcomeTransient
	}
	return &gateway.Error{
		Op:      op,
		Outcome: outcome,
		Code:    string(stripeErr.Code),
		Err:     err,
	}
}

var _ gateway.Gateway = (*Gateway)(nil)
