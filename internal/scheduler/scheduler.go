package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/spacebook/internal/clock"
	obslogger "github.com/smallbiznis/spacebook/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/spacebook/internal/observability/metrics"
	paymentdomain "github.com/smallbiznis/spacebook/internal/payment/domain"
	"github.com/smallbiznis/spacebook/internal/reconciliation"
	"github.com/smallbiznis/spacebook/pkg/telemetry/correlation"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const JobReconcilePayments = "reconcile_payments"

var ErrInvalidConfig = errors.New("scheduler: invalid configuration")

// Reconciler settles a single payment against the gateway.
type Reconciler interface {
	Resync(ctx context.Context, paymentID snowflake.ID) (reconciliation.State, error)
}

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	Clock      clock.Clock
	Payments   paymentdomain.Repository
	Reconciler Reconciler
	Config     Config              `optional:"true"`
	Metrics    *obsmetrics.Metrics `optional:"true"`
}

// Scheduler runs background jobs that close gaps left by clients and
// webhooks, such as a payment that succeeded but was never confirmed.
type Scheduler struct {
	db         *gorm.DB
	log        *zap.Logger
	cfg        Config
	clock      clock.Clock
	payments   paymentdomain.Repository
	reconciler Reconciler
	metrics    *obsmetrics.Metrics
}

func New(p Params) (*Scheduler, error) {
	if p.DB == nil || p.Log == nil || p.Clock == nil || p.Payments == nil || p.Reconciler == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		db:         p.DB,
		log:        p.Log.Named("scheduler"),
		cfg:        p.Config.withDefaults(),
		clock:      p.Clock,
		payments:   p.Payments,
		reconciler: p.Reconciler,
		metrics:    p.Metrics,
	}, nil
}

func (s *Scheduler) runJob(parent context.Context, name string, timeout time.Duration, fn func(ctx context.Context) error) error {
	start := time.Now()
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	ctx, runID := correlation.Ensure(ctx, name)
	log := obslogger.WithContext(ctx, s.log).With(
		zap.String("job", name),
		zap.String("run_id", runID),
	)
	log.Debug("scheduler.job.start")

	err := fn(ctx)
	elapsed := time.Since(start)
	if err == nil {
		s.metrics.SchedulerJob(name, "ok", elapsed)
		log.Debug("scheduler.job.finish", zap.Duration("duration", elapsed))
		return nil
	}

	// deadline is a soft timeout; the next tick picks up the rest
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		s.metrics.SchedulerJob(name, "timeout", elapsed)
		log.Warn("job timed out", zap.Duration("timeout", timeout), zap.Error(err))
		return nil
	}

	s.metrics.SchedulerJob(name, "error", elapsed)
	return fmt.Errorf("%s: %w", name, err)
}

func (s *Scheduler) RunOnce(ctx context.Context) error {
	return s.runJob(ctx, JobReconcilePayments, s.cfg.JobTimeout, s.ReconcilePaymentsJob)
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()

	for {
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
