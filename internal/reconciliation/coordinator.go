package reconciliation

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/snowflake"
	authdomain "github.com/smallbiznis/spacebook/internal/auth/domain"
	"github.com/smallbiznis/spacebook/internal/authorization"
	invoicedomain "github.com/smallbiznis/spacebook/internal/invoice/domain"
	"github.com/smallbiznis/spacebook/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/spacebook/internal/observability/metrics"
	paymentdomain "github.com/smallbiznis/spacebook/internal/payment/domain"
	"github.com/smallbiznis/spacebook/internal/payment/gateway"
	"github.com/smallbiznis/spacebook/pkg/telemetry/correlation"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// State is where a payment stands between gateway confirmation and invoicing.
type State string

const (
	StatePendingConfirmation State = "PENDING_CONFIRMATION"
	StateConfirmedNoInvoice  State = "CONFIRMED_NO_INVOICE"
	StateInvoiced            State = "INVOICED"
	StateRejected            State = "REJECTED"
)

const (
	SourceConfirm = "confirm"
	SourceWebhook = "webhook"
	SourceSweep   = "sweep"
)

var ErrNotConfirmed = errors.New("payment_not_confirmed")

// NotConfirmedError reports a confirmation attempt the gateway has not
// settled. Nothing was written.
type NotConfirmedError struct {
	State         State
	GatewayStatus paymentdomain.Status
}

func (e *NotConfirmedError) Error() string {
	return fmt.Sprintf("payment not confirmed: %s (gateway status %s)", e.State, e.GatewayStatus)
}

func (e *NotConfirmedError) Is(target error) bool {
	return target == ErrNotConfirmed
}

type Confirmation struct {
	InvoiceID     snowflake.ID `json:"invoice_id"`
	Created       bool         `json:"-"`
	State         State        `json:"state"`
	CorrelationID string       `json:"correlation_id,omitempty"`
}

type WebhookResult struct {
	EventID string `json:"event_id,omitempty"`
	Handled bool   `json:"handled"`
}

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	Payments   paymentdomain.Repository
	PaymentSvc paymentdomain.Service
	Issuer     invoicedomain.Issuer
	Gateway    gateway.Gateway
	Webhooks   gateway.WebhookParser
	Authz      authorization.Authorizer
	Metrics    *obsmetrics.Metrics `optional:"true"`
}

// Coordinator settles payments the gateway reports as succeeded into
// invoices, whether the report comes from the payer's client or a webhook.
type Coordinator struct {
	db         *gorm.DB
	log        *zap.Logger
	payments   paymentdomain.Repository
	paymentSvc paymentdomain.Service
	issuer     invoicedomain.Issuer
	gateway    gateway.Gateway
	webhooks   gateway.WebhookParser
	authz      authorization.Authorizer
	metrics    *obsmetrics.Metrics
}

func New(p Params) *Coordinator {
	return &Coordinator{
		db:         p.DB,
		log:        p.Log.Named("reconciliation"),
		payments:   p.Payments,
		paymentSvc: p.PaymentSvc,
		issuer:     p.Issuer,
		gateway:    p.Gateway,
		webhooks:   p.Webhooks,
		authz:      p.Authz,
		metrics:    p.Metrics,
	}
}

// ConfirmPayment checks the gateway for intentID and issues the booking's
// invoice once the payment succeeded.
func (c *Coordinator) ConfirmPayment(ctx context.Context, cred authdomain.Credential, intentID string) (*Confirmation, error) {
	if cred.IsZero() {
		return nil, authdomain.ErrMissingCredential
	}

	payment, err := c.payments.FindByIntentID(ctx, c.db, intentID)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, paymentdomain.ErrPaymentNotFound
	}
	if err := c.authorize(ctx, cred, payment); err != nil {
		return nil, err
	}

	return c.reconcile(ctx, SourceConfirm, payment)
}

// HandleWebhook applies a signed gateway notification. Events about intents
// this service does not know are acknowledged and ignored.
func (c *Coordinator) HandleWebhook(ctx context.Context, payload []byte, signature string) (*WebhookResult, error) {
	event, err := c.webhooks.ParseWebhook(payload, signature)
	if err != nil {
		return nil, err
	}
	ctx = correlation.WithWebhookEvent(ctx, event.ID)
	log := logger.WithContext(ctx, c.log).With(
		zap.String("event_type", event.Type),
		zap.String("payment_intent_id", event.IntentID),
	)
	result := &WebhookResult{EventID: event.ID}

	if event.IntentID == "" {
		log.Debug("webhook ignored, no payment intent")
		return result, nil
	}
	payment, err := c.payments.FindByIntentID(ctx, c.db, event.IntentID)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		log.Info("webhook ignored, unknown payment intent")
		return result, nil
	}
	if err := c.authorize(ctx, authdomain.SystemCredential(), payment); err != nil {
		return nil, err
	}

	switch event.Type {
	case gateway.EventIntentSucceeded:
		_, err := c.reconcile(ctx, SourceWebhook, payment)
		if errors.Is(err, ErrNotConfirmed) {
			// The retrieve is authoritative; a stale or replayed event is not an error.
			log.Warn("webhook reported success the gateway does not confirm", zap.Error(err))
			return result, nil
		}
		if err != nil {
			return nil, err
		}
	case gateway.EventIntentProcessing, gateway.EventIntentCanceled, gateway.EventIntentFailed:
		refreshed, err := c.paymentSvc.RefreshStatus(ctx, payment.ID)
		if err != nil {
			return nil, err
		}
		log.Info("payment status refreshed from webhook", zap.String("status", string(refreshed.Status)))
	default:
		log.Debug("webhook ignored, unhandled event type")
		return result, nil
	}

	result.Handled = true
	return result, nil
}

// Resync settles a payment nobody confirmed. It acts as the system: a
// gateway success issues the invoice, any other status is recorded locally.
func (c *Coordinator) Resync(ctx context.Context, paymentID snowflake.ID) (State, error) {
	payment, err := c.payments.FindByID(ctx, c.db, paymentID)
	if err != nil {
		return "", err
	}
	if payment == nil {
		return "", paymentdomain.ErrPaymentNotFound
	}
	if err := c.authorize(ctx, authdomain.SystemCredential(), payment); err != nil {
		return "", err
	}

	confirmation, err := c.reconcile(ctx, SourceSweep, payment)
	var notConfirmed *NotConfirmedError
	if errors.As(err, &notConfirmed) {
		if _, err := c.paymentSvc.ApplyStatus(ctx, payment.ID, notConfirmed.GatewayStatus); err != nil {
			return "", err
		}
		return notConfirmed.State, nil
	}
	if err != nil {
		return "", err
	}
	return confirmation.State, nil
}

func (c *Coordinator) reconcile(ctx context.Context, source string, payment *paymentdomain.Payment) (*Confirmation, error) {
	ctx, cid := correlation.Ensure(ctx, source)
	ctx, span := otel.Tracer("spacebook/reconciliation").Start(ctx, "reconciliation.reconcile")
	defer span.End()
	span.SetAttributes(
		attribute.String("payment.id", payment.ID.String()),
		attribute.String("payment.intent_id", payment.ExternalIntentID),
		attribute.String("reconciliation.source", source),
	)

	log := logger.WithContext(ctx, c.log).With(
		zap.String("source", source),
		zap.String("payment_id", payment.ID.String()),
		zap.String("booking_id", payment.BookingID.String()),
	)

	intent, err := c.gateway.RetrieveIntent(ctx, payment.ExternalIntentID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "gateway retrieve failed")
		log.Warn("gateway status unavailable", zap.Error(err))
		return nil, err
	}

	switch intent.Status {
	case paymentdomain.StatusSucceeded:
	case paymentdomain.StatusCanceled, paymentdomain.StatusFailed:
		c.metrics.Reconciliation(source, string(StateRejected))
		return nil, &NotConfirmedError{State: StateRejected, GatewayStatus: intent.Status}
	default:
		c.metrics.Reconciliation(source, string(StatePendingConfirmation))
		return nil, &NotConfirmedError{State: StatePendingConfirmation, GatewayStatus: intent.Status}
	}

	log.Info("payment confirmed by gateway", zap.String("state", string(StateConfirmedNoInvoice)))

	inv, created, err := c.issuer.IssueOnce(ctx, payment.ID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invoice issuance failed")
		log.Error("invoice issuance failed", zap.Error(err))
		return nil, err
	}

	c.metrics.Reconciliation(source, string(StateInvoiced))
	span.SetAttributes(attribute.String("invoice.id", inv.ID.String()), attribute.Bool("invoice.created", created))
	log.Info("payment reconciled",
		zap.String("state", string(StateInvoiced)),
		zap.String("invoice_id", inv.ID.String()),
		zap.Bool("created", created),
	)
	return &Confirmation{
		InvoiceID:     inv.ID,
		Created:       created,
		State:         StateInvoiced,
		CorrelationID: cid,
	}, nil
}

// authorize lets the payer through and asks the policy for everyone else.
func (c *Coordinator) authorize(ctx context.Context, cred authdomain.Credential, payment *paymentdomain.Payment) error {
	if cred.Owns(payment.UserID) {
		return nil
	}
	err := c.authz.Authorize(ctx, cred, authorization.ObjectPayment, authorization.ActionReconcileAny)
	if errors.Is(err, authorization.ErrForbidden) {
		return paymentdomain.ErrNotOwner
	}
	return err
}
