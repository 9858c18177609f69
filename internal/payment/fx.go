package payment

import (
	"github.com/smallbiznis/spacebook/internal/config"
	obsmetrics "github.com/smallbiznis/spacebook/internal/observability/metrics"
	"github.com/smallbiznis/spacebook/internal/payment/gateway"
	stripegw "github.com/smallbiznis/spacebook/internal/payment/gateway/stripe"
	"github.com/smallbiznis/spacebook/internal/payment/repository"
	paymentservice "github.com/smallbiznis/spacebook/internal/payment/service"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type gatewayParams struct {
	fx.In

	Cfg     config.Config
	Policy  *config.PolicyHolder
	Log     *zap.Logger
	Metrics *obsmetrics.Metrics `optional:"true"`
}

func newGateway(p gatewayParams) (gateway.Gateway, error) {
	stripe, err := stripegw.New(p.Cfg.Stripe, p.Log)
	if err != nil {
		return nil, err
	}
	return gateway.NewRetrying(stripe, p.Policy, p.Metrics, p.Log), nil
}

func newWebhookParser(cfg config.Config) (gateway.WebhookParser, error) {
	return stripegw.NewWebhookParser(cfg.Stripe.WebhookSecret)
}

var Module = fx.Module("payment.service",
	fx.Provide(repository.Provide),
	fx.Provide(newGateway),
	fx.Provide(newWebhookParser),
	fx.Provide(paymentservice.NewService),
)
