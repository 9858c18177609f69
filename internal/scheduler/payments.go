package scheduler

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	obslogger "github.com/smallbiznis/spacebook/internal/observability/logger"
	"go.uber.org/zap"
)

// ReconcilePaymentsJob resyncs unsettled payments older than StaleAfter and
// younger than MaxAge. Failures of one payment do not stop the batch.
func (s *Scheduler) ReconcilePaymentsJob(ctx context.Context) error {
	now := s.clock.Now()
	from := now.Add(-s.cfg.MaxAge)
	to := now.Add(-s.cfg.StaleAfter)
	log := obslogger.WithContext(ctx, s.log)

	var (
		jobErr    error
		afterID   snowflake.ID
		processed int
		failed    int
	)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		batch, err := s.payments.ListOpenCreatedBetween(ctx, s.db, from, to, afterID, s.cfg.BatchSize)
		if err != nil {
			return err
		}
		if len(batch) == 0 {
			break
		}

		for _, payment := range batch {
			afterID = payment.ID
			state, err := s.reconciler.Resync(ctx, payment.ID)
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return ctxErr
				}
				failed++
				jobErr = errors.Join(jobErr, err)
				log.Warn("payment resync failed",
					zap.String("payment_id", payment.ID.String()),
					zap.Error(err),
				)
				continue
			}
			processed++
			log.Debug("payment resynced",
				zap.String("payment_id", payment.ID.String()),
				zap.String("state", string(state)),
			)
		}

		if len(batch) < s.cfg.BatchSize {
			break
		}
	}

	if processed > 0 || failed > 0 {
		log.Info("payment resync finished", zap.Int("processed_count", processed), zap.Int("error_count", failed))
	}
	return jobErr
}
