package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/spacebook/internal/agreement"
	agreementdomain "github.com/smallbiznis/spacebook/internal/agreement/domain"
	"github.com/smallbiznis/spacebook/internal/audit"
	auditdomain "github.com/smallbiznis/spacebook/internal/audit/domain"
	"github.com/smallbiznis/spacebook/internal/auth"
	authdomain "github.com/smallbiznis/spacebook/internal/auth/domain"
	"github.com/smallbiznis/spacebook/internal/authorization"
	"github.com/smallbiznis/spacebook/internal/booking"
	bookingdomain "github.com/smallbiznis/spacebook/internal/booking/domain"
	"github.com/smallbiznis/spacebook/internal/catalog"
	"github.com/smallbiznis/spacebook/internal/config"
	"github.com/smallbiznis/spacebook/internal/invoice"
	invoicedomain "github.com/smallbiznis/spacebook/internal/invoice/domain"
	obslogger "github.com/smallbiznis/spacebook/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/spacebook/internal/observability/metrics"
	obstracing "github.com/smallbiznis/spacebook/internal/observability/tracing"
	"github.com/smallbiznis/spacebook/internal/payment"
	paymentdomain "github.com/smallbiznis/spacebook/internal/payment/domain"
	"github.com/smallbiznis/spacebook/internal/providers"
	"github.com/smallbiznis/spacebook/internal/ratelimit"
	"github.com/smallbiznis/spacebook/internal/reconciliation"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	authorization.Module,
	audit.Module,
	auth.Module,
	catalog.Module,
	booking.Module,
	agreement.Module,
	providers.Module,
	invoice.Module,
	payment.Module,
	reconciliation.Module,
	ratelimit.Module,
	fx.Provide(registerGin),
	fx.Provide(NewServer),
	fx.Invoke(run),
)

type EngineParams struct {
	fx.In

	Log     *zap.Logger
	Metrics *obsmetrics.Metrics `optional:"true"`
}

func NewEngine(log *zap.Logger, metrics *obsmetrics.Metrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(obslogger.MiddlewareConfig{
		Logger:          log,
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(metrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(cfg config.Config, p EngineParams) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	return NewEngine(p.Log, p.Metrics)
}

func run(lc fx.Lifecycle, cfg config.Config, log *zap.Logger, s *Server) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           s.Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine       *gin.Engine
	cfg          config.Config
	log          *zap.Logger
	verifier     authdomain.Verifier
	bookingSvc   bookingdomain.Service
	paymentSvc   paymentdomain.Service
	invoiceSvc   invoicedomain.Service
	agreementSvc agreementdomain.Service
	coordinator  *reconciliation.Coordinator
	auditSvc     auditdomain.Service
	limiter      ratelimit.Limiter
	metrics      *obsmetrics.Metrics
}

type ServerParams struct {
	fx.In

	Gin          *gin.Engine
	Cfg          config.Config
	Log          *zap.Logger
	Verifier     authdomain.Verifier
	BookingSvc   bookingdomain.Service
	PaymentSvc   paymentdomain.Service
	InvoiceSvc   invoicedomain.Service
	AgreementSvc agreementdomain.Service
	Coordinator  *reconciliation.Coordinator
	AuditSvc     auditdomain.Service `optional:"true"`
	Limiter      ratelimit.Limiter   `optional:"true"`
	Metrics      *obsmetrics.Metrics `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:       p.Gin,
		cfg:          p.Cfg,
		log:          p.Log.Named("http.server"),
		verifier:     p.Verifier,
		bookingSvc:   p.BookingSvc,
		paymentSvc:   p.PaymentSvc,
		invoiceSvc:   p.InvoiceSvc,
		agreementSvc: p.AgreementSvc,
		coordinator:  p.Coordinator,
		auditSvc:     p.AuditSvc,
		limiter:      p.Limiter,
		metrics:      p.Metrics,
	}

	svc.registerBookingRoutes()
	svc.registerPaymentRoutes()
	svc.registerInvoiceRoutes()
	svc.registerAgreementRoutes()
	svc.registerWebhookRoutes()
	svc.registerAuditRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerBookingRoutes() {
	bookings := s.engine.Group("/bookings", s.CredentialRequired())

	bookings.POST("", s.RateLimit(), s.CreateBooking)
	bookings.GET("/me", s.ListMyBookings)
	bookings.GET("/:id", s.GetBooking)
	// :id is the space id here; gin does not allow a second wildcard name on this segment.
	bookings.GET("/:id/availability", s.CheckAvailability)
	bookings.POST("/:id/cancel", s.CancelBooking)
}

func (s *Server) registerPaymentRoutes() {
	payments := s.engine.Group("/payments", s.CredentialRequired(), s.RateLimit())

	payments.POST("/create-intent", s.CreatePaymentIntent)
	payments.POST("/confirm/:intent_id", s.ConfirmPayment)
}

func (s *Server) registerInvoiceRoutes() {
	invoices := s.engine.Group("/invoices", s.CredentialRequired())

	invoices.GET("/:id", s.GetInvoice)
	invoices.GET("/:id/pdf", s.GetInvoicePDF)
}

func (s *Server) registerAgreementRoutes() {
	s.engine.POST("/agreements/accept", s.CredentialRequired(), s.AcceptAgreement)
}

func (s *Server) registerWebhookRoutes() {
	s.engine.POST("/webhooks/stripe", s.HandleStripeWebhook)
}

func (s *Server) registerAuditRoutes() {
	s.engine.GET("/audit-logs", s.CredentialRequired(), s.ListAuditLogs)
}
