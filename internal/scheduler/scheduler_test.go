package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/spacebook/internal/clock"
	paymentdomain "github.com/smallbiznis/spacebook/internal/payment/domain"
	paymentrepo "github.com/smallbiznis/spacebook/internal/payment/repository"
	"github.com/smallbiznis/spacebook/internal/reconciliation"
	"github.com/smallbiznis/spacebook/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

type fakeReconciler struct {
	mu    sync.Mutex
	calls []snowflake.ID
	fail  map[snowflake.ID]error
	hook  func(ctx context.Context) error
}

func (f *fakeReconciler) Resync(ctx context.Context, paymentID snowflake.ID) (reconciliation.State, error) {
	f.mu.Lock()
	f.calls = append(f.calls, paymentID)
	f.mu.Unlock()
	if f.hook != nil {
		if err := f.hook(ctx); err != nil {
			return "", err
		}
	}
	if err := f.fail[paymentID]; err != nil {
		return "", err
	}
	return reconciliation.StateInvoiced, nil
}

func (f *fakeReconciler) Calls() []snowflake.ID {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]snowflake.ID(nil), f.calls...)
}

type fixture struct {
	db    *gorm.DB
	node  *snowflake.Node
	clock *clock.FakeClock
	rec   *fakeReconciler
	sched *Scheduler
}

func setup(t *testing.T, cfg Config) *fixture {
	t.Helper()
	db := testutil.OpenDB(t)
	fc := clock.NewFakeClock(time.Date(2030, 5, 6, 12, 0, 0, 0, time.UTC))
	rec := &fakeReconciler{fail: map[snowflake.ID]error{}}

	sched, err := New(Params{
		DB:         db,
		Log:        zaptest.NewLogger(t),
		Clock:      fc,
		Payments:   paymentrepo.Provide(),
		Reconciler: rec,
		Config:     cfg,
	})
	require.NoError(t, err)

	return &fixture{db: db, node: testutil.Node(t), clock: fc, rec: rec, sched: sched}
}

func (f *fixture) payment(t *testing.T, status paymentdomain.Status, age time.Duration) snowflake.ID {
	t.Helper()
	createdAt := f.clock.Now().Add(-age)
	payment := &paymentdomain.Payment{
		ID:               f.node.Generate(),
		BookingID:        f.node.Generate(),
		UserID:           snowflake.ID(1),
		AmountMinor:      1500,
		Currency:         "usd",
		Status:           status,
		ExternalIntentID: "pi_" + f.node.Generate().String(),
		CreatedAt:        createdAt,
		UpdatedAt:        createdAt,
	}
	require.NoError(t, f.db.Create(payment).Error)
	return payment.ID
}

func TestNewRejectsMissingDependencies(t *testing.T) {
	_, err := New(Params{})
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestReconcilePaymentsSelectsStaleOpenPayments(t *testing.T) {
	f := setup(t, Config{StaleAfter: 5 * time.Minute, MaxAge: 48 * time.Hour})

	stale := f.payment(t, paymentdomain.StatusRequiresPaymentMethod, 10*time.Minute)
	processing := f.payment(t, paymentdomain.StatusProcessing, time.Hour)
	f.payment(t, paymentdomain.StatusRequiresPaymentMethod, time.Minute)
	f.payment(t, paymentdomain.StatusProcessing, 72*time.Hour)
	f.payment(t, paymentdomain.StatusSucceeded, 10*time.Minute)
	f.payment(t, paymentdomain.StatusFailed, 10*time.Minute)

	require.NoError(t, f.sched.RunOnce(context.Background()))
	assert.Equal(t, []snowflake.ID{stale, processing}, f.rec.Calls())
}

func TestReconcilePaymentsPagesThroughBatches(t *testing.T) {
	f := setup(t, Config{BatchSize: 2})

	var want []snowflake.ID
	for i := 0; i < 5; i++ {
		want = append(want, f.payment(t, paymentdomain.StatusProcessing, time.Hour))
	}

	require.NoError(t, f.sched.RunOnce(context.Background()))
	assert.Equal(t, want, f.rec.Calls())
}

func TestReconcilePaymentsContinuesAfterFailure(t *testing.T) {
	f := setup(t, Config{})
	first := f.payment(t, paymentdomain.StatusProcessing, time.Hour)
	second := f.payment(t, paymentdomain.StatusProcessing, time.Hour)
	gatewayDown := errors.New("gateway down")
	f.rec.fail[first] = gatewayDown

	err := f.sched.RunOnce(context.Background())
	require.ErrorIs(t, err, gatewayDown)
	assert.Contains(t, err.Error(), JobReconcilePayments)
	assert.Equal(t, []snowflake.ID{first, second}, f.rec.Calls())
}

func TestRunJobTreatsTimeoutAsSoft(t *testing.T) {
	f := setup(t, Config{})

	err := f.sched.runJob(context.Background(), "slow", 10*time.Millisecond, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	require.NoError(t, err)
}

func TestReconcilePaymentsStopsWhenContextEnds(t *testing.T) {
	f := setup(t, Config{})
	f.payment(t, paymentdomain.StatusProcessing, time.Hour)
	f.payment(t, paymentdomain.StatusProcessing, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	f.rec.hook = func(context.Context) error {
		cancel()
		return context.Canceled
	}

	err := f.sched.ReconcilePaymentsJob(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Len(t, f.rec.Calls(), 1)
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{StaleAfter: time.Hour, MaxAge: time.Minute}.withDefaults()
	assert.Equal(t, time.Minute, cfg.RunInterval)
	assert.Equal(t, 50, cfg.BatchSize)
	assert.Equal(t, time.Hour, cfg.StaleAfter)
	assert.Equal(t, 48*time.Hour, cfg.MaxAge)
}
