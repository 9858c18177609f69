package service_test

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	authdomain "github.com/smallbiznis/spacebook/internal/auth/domain"
	"github.com/smallbiznis/spacebook/internal/authorization"
	"github.com/smallbiznis/spacebook/internal/booking/domain"
	bookingrepo "github.com/smallbiznis/spacebook/internal/booking/repository"
	bookingservice "github.com/smallbiznis/spacebook/internal/booking/service"
	catalogdomain "github.com/smallbiznis/spacebook/internal/catalog/domain"
	catalogrepo "github.com/smallbiznis/spacebook/internal/catalog/repository"
	"github.com/smallbiznis/spacebook/internal/clock"
	"github.com/smallbiznis/spacebook/internal/config"
	paymentdomain "github.com/smallbiznis/spacebook/internal/payment/domain"
	"github.com/smallbiznis/spacebook/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

var day = time.Date(2030, 5, 6, 0, 0, 0, 0, time.UTC)

func at(hour, minute int) time.Time {
	return day.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

type fixture struct {
	db    *gorm.DB
	node  *snowflake.Node
	clock *clock.FakeClock
	svc   domain.Service
}

func setup(t *testing.T) *fixture {
	t.Helper()
	return setupWithPolicy(t, config.DefaultPolicy())
}

func setupWithPolicy(t *testing.T, policy config.Policy) *fixture {
	t.Helper()
	db := testutil.OpenDB(t)
	node := testutil.Node(t)
	log := zaptest.NewLogger(t)

	enforcer, err := authorization.NewEnforcer(db)
	require.NoError(t, err)

	fc := clock.NewFakeClock(day.Add(-24 * time.Hour))
	svc := bookingservice.New(bookingservice.Params{
		DB:      db,
		Log:     log,
		GenID:   node,
		Clock:   fc,
		Policy:  config.NewStaticPolicyHolder(policy),
		Catalog: catalogrepo.Provide(),
		Repo:    bookingrepo.Provide(),
		Authz:   authorization.NewService(authorization.Params{Log: log, Enforcer: enforcer}),
	})
	return &fixture{db: db, node: node, clock: fc, svc: svc}
}

func user(id int64) authdomain.Credential {
	return authdomain.Credential{UserID: snowflake.ID(id), Role: authdomain.RoleUser}
}

func (f *fixture) book(t *testing.T, cred authdomain.Credential, spaceID snowflake.ID, start, end time.Time) (*domain.Booking, error) {
	t.Helper()
	f.clock.Advance(time.Second)
	return f.svc.CreateBooking(context.Background(), cred, domain.CreateBookingRequest{
		SpaceID:   spaceID,
		StartTime: start,
		EndTime:   end,
	})
}

func TestBookCancelRebook(t *testing.T) {
	f := setup(t)
	space := testutil.CreateSpace(t, f.db, f.node, "Room A", 1000)
	alice, bob := user(1), user(2)

	first, err := f.book(t, alice, space.ID, at(10, 0), at(11, 30))
	require.NoError(t, err)
	assert.Equal(t, int64(90), first.DurationMinutes)
	assert.Equal(t, int64(1500), first.TotalCost)
	assert.Equal(t, "usd", first.Currency)
	assert.Equal(t, domain.StatusConfirmed, first.Status)

	_, err = f.book(t, bob, space.ID, at(11, 0), at(12, 0))
	assert.ErrorIs(t, err, domain.ErrBookingConflict)

	cancelled, err := f.svc.CancelBooking(context.Background(), alice, first.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, cancelled.Status)
	require.NotNil(t, cancelled.CancelledAt)

	second, err := f.book(t, bob, space.ID, at(11, 0), at(12, 0))
	require.NoError(t, err)
	assert.Equal(t, int64(1000), second.TotalCost)
}

func TestTouchingWindowsDoNotConflict(t *testing.T) {
	f := setup(t)
	space := testutil.CreateSpace(t, f.db, f.node, "Room A", 1000)

	_, err := f.book(t, user(1), space.ID, at(10, 0), at(11, 30))
	require.NoError(t, err)
	_, err = f.book(t, user(2), space.ID, at(11, 30), at(12, 0))
	require.NoError(t, err)
	_, err = f.book(t, user(2), space.ID, at(9, 0), at(10, 0))
	require.NoError(t, err)

	_, err = f.book(t, user(3), space.ID, at(9, 30), at(12, 30))
	assert.ErrorIs(t, err, domain.ErrBookingConflict)
}

func TestSpacesAreIndependent(t *testing.T) {
	f := setup(t)
	roomA := testutil.CreateSpace(t, f.db, f.node, "Room A", 1000)
	roomB := testutil.CreateSpace(t, f.db, f.node, "Room B", 1000)

	_, err := f.book(t, user(1), roomA.ID, at(10, 0), at(11, 0))
	require.NoError(t, err)
	_, err = f.book(t, user(1), roomB.ID, at(10, 0), at(11, 0))
	require.NoError(t, err)
}

func TestConcurrentOverlappingCreatesAdmitOne(t *testing.T) {
	f := setup(t)
	space := testutil.CreateSpace(t, f.db, f.node, "Room A", 1000)

	const callers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			start := at(10, 0).Add(time.Duration(i) * time.Minute)
			_, err := f.svc.CreateBooking(context.Background(), user(int64(i+1)), domain.CreateBookingRequest{
				SpaceID:   space.ID,
				StartTime: start,
				EndTime:   start.Add(time.Hour),
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case assert.ErrorIs(t, err, domain.ErrBookingConflict):
				conflicts++
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, callers-1, conflicts)

	var confirmed int64
	require.NoError(t, f.db.Model(&domain.Booking{}).
		Where("space_id = ? AND status = ?", space.ID, domain.StatusConfirmed).
		Count(&confirmed).Error)
	assert.Equal(t, int64(1), confirmed)
}

func TestCreateBookingValidation(t *testing.T) {
	f := setup(t)
	space := testutil.CreateSpace(t, f.db, f.node, "Room A", 1000)

	inactive := testutil.CreateSpace(t, f.db, f.node, "Closed Room", 1000)
	require.NoError(t, f.db.Model(inactive).Update("is_active", false).Error)

	tests := []struct {
		name    string
		spaceID snowflake.ID
		start   time.Time
		end     time.Time
		wantErr error
	}{
		{"end before start", space.ID, at(11, 0), at(10, 0), domain.ErrInvalidRange},
		{"empty window", space.ID, at(10, 0), at(10, 0), domain.ErrInvalidRange},
		{"shorter than a minute", space.ID, at(10, 0), at(10, 0).Add(30 * time.Second), domain.ErrInvalidRange},
		{"unknown space", snowflake.ID(404), at(10, 0), at(11, 0), catalogdomain.ErrSpaceNotFound},
		{"inactive space", inactive.ID, at(10, 0), at(11, 0), catalogdomain.ErrSpaceNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.book(t, user(1), tt.spaceID, tt.start, tt.end)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	_, err := f.svc.CreateBooking(context.Background(), authdomain.Credential{}, domain.CreateBookingRequest{
		SpaceID: space.ID, StartTime: at(10, 0), EndTime: at(11, 0),
	})
	assert.ErrorIs(t, err, authdomain.ErrMissingCredential)
}

func TestClientSuppliedCostIsIgnored(t *testing.T) {
	f := setup(t)
	space := testutil.CreateSpace(t, f.db, f.node, "Room A", 1000)

	tampered := int64(1)
	b, err := f.svc.CreateBooking(context.Background(), user(1), domain.CreateBookingRequest{
		SpaceID:         space.ID,
		StartTime:       at(10, 0),
		EndTime:         at(11, 30),
		ClientTotalCost: &tampered,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1500), b.TotalCost)
}

func TestLongWindowsAreUncappedByDefault(t *testing.T) {
	f := setup(t)
	space := testutil.CreateSpace(t, f.db, f.node, "Room A", 1000)
	end := at(10, 0).Add(8 * 24 * time.Hour)

	available, err := f.svc.CheckAvailability(context.Background(), space.ID, at(10, 0), end)
	require.NoError(t, err)
	assert.True(t, available)

	b, err := f.book(t, user(1), space.ID, at(10, 0), end)
	require.NoError(t, err)
	assert.Equal(t, int64(8*24*60), b.DurationMinutes)
	assert.Equal(t, int64(8*24*1000), b.TotalCost)
}

func TestDurationCapAppliesToCreateAndAvailability(t *testing.T) {
	policy := config.DefaultPolicy()
	policy.Booking.MaxDurationMinutes = 24 * 60
	f := setupWithPolicy(t, policy)
	space := testutil.CreateSpace(t, f.db, f.node, "Room A", 1000)
	ctx := context.Background()

	_, err := f.svc.CheckAvailability(ctx, space.ID, at(10, 0), at(10, 0).Add(25*time.Hour))
	assert.ErrorIs(t, err, domain.ErrInvalidRange)
	_, err = f.book(t, user(1), space.ID, at(10, 0), at(10, 0).Add(25*time.Hour))
	assert.ErrorIs(t, err, domain.ErrInvalidRange)

	available, err := f.svc.CheckAvailability(ctx, space.ID, at(10, 0), at(10, 0).Add(24*time.Hour))
	require.NoError(t, err)
	assert.True(t, available)
	_, err = f.book(t, user(1), space.ID, at(10, 0), at(10, 0).Add(24*time.Hour))
	require.NoError(t, err)
}

func TestUnpriceableWindowIsInvalidRange(t *testing.T) {
	f := setup(t)
	space := testutil.CreateSpace(t, f.db, f.node, "Vault", math.MaxInt64/2)

	_, err := f.book(t, user(1), space.ID, at(10, 0), at(13, 0))
	assert.ErrorIs(t, err, domain.ErrInvalidRange)

	var count int64
	require.NoError(t, f.db.Model(&domain.Booking{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestCheckAvailability(t *testing.T) {
	f := setup(t)
	space := testutil.CreateSpace(t, f.db, f.node, "Room A", 1000)
	ctx := context.Background()

	_, err := f.book(t, user(1), space.ID, at(10, 0), at(11, 0))
	require.NoError(t, err)

	available, err := f.svc.CheckAvailability(ctx, space.ID, at(10, 30), at(11, 30))
	require.NoError(t, err)
	assert.False(t, available)

	available, err = f.svc.CheckAvailability(ctx, space.ID, at(11, 0), at(12, 0))
	require.NoError(t, err)
	assert.True(t, available)

	_, err = f.svc.CheckAvailability(ctx, space.ID, at(12, 0), at(11, 0))
	assert.ErrorIs(t, err, domain.ErrInvalidRange)

	_, err = f.svc.CheckAvailability(ctx, snowflake.ID(404), at(11, 0), at(12, 0))
	assert.ErrorIs(t, err, catalogdomain.ErrSpaceNotFound)
}

func TestCancelBookingAuthorization(t *testing.T) {
	f := setup(t)
	space := testutil.CreateSpace(t, f.db, f.node, "Room A", 1000)
	ctx := context.Background()

	b, err := f.book(t, user(1), space.ID, at(10, 0), at(11, 0))
	require.NoError(t, err)

	_, err = f.svc.CancelBooking(ctx, user(2), b.ID)
	assert.ErrorIs(t, err, domain.ErrNotOwner)

	support := authdomain.Credential{UserID: 3, Role: authdomain.RoleSupport}
	_, err = f.svc.CancelBooking(ctx, support, b.ID)
	assert.ErrorIs(t, err, domain.ErrNotOwner)

	admin := authdomain.Credential{UserID: 4, Role: authdomain.RoleAdmin}
	cancelled, err := f.svc.CancelBooking(ctx, admin, b.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, cancelled.Status)

	again, err := f.svc.CancelBooking(ctx, user(1), b.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, again.Status)
	assert.Equal(t, cancelled.CancelledAt.Unix(), again.CancelledAt.Unix())

	_, err = f.svc.CancelBooking(ctx, user(1), snowflake.ID(404))
	assert.ErrorIs(t, err, domain.ErrBookingNotFound)
}

func TestGetBooking(t *testing.T) {
	f := setup(t)
	space := testutil.CreateSpace(t, f.db, f.node, "Room A", 1000)
	ctx := context.Background()

	b, err := f.book(t, user(1), space.ID, at(10, 0), at(11, 0))
	require.NoError(t, err)

	got, err := f.svc.GetBooking(ctx, user(1), b.ID)
	require.NoError(t, err)
	assert.Equal(t, b.ID, got.ID)

	_, err = f.svc.GetBooking(ctx, user(2), b.ID)
	assert.ErrorIs(t, err, domain.ErrNotOwner)

	_, err = f.svc.GetBooking(ctx, authdomain.Credential{UserID: 9, Role: authdomain.RoleSupport}, b.ID)
	require.NoError(t, err)
}

func TestListMyBookings(t *testing.T) {
	f := setup(t)
	space := testutil.CreateSpace(t, f.db, f.node, "Room A", 1000)
	ctx := context.Background()
	alice := user(1)

	older, err := f.book(t, alice, space.ID, at(10, 0), at(11, 0))
	require.NoError(t, err)
	newer, err := f.book(t, alice, space.ID, at(12, 0), at(13, 0))
	require.NoError(t, err)
	_, err = f.book(t, user(2), space.ID, at(14, 0), at(15, 0))
	require.NoError(t, err)

	now := f.clock.Now()
	require.NoError(t, f.db.Create(&paymentdomain.Payment{
		ID:               f.node.Generate(),
		BookingID:        older.ID,
		UserID:           alice.UserID,
		AmountMinor:      older.TotalCost,
		Currency:         "usd",
		Status:           paymentdomain.StatusProcessing,
		ExternalIntentID: "pi_list_1",
		CreatedAt:        now,
		UpdatedAt:        now,
	}).Error)

	page, err := f.svc.ListMyBookings(ctx, alice, domain.ListBookingsRequest{})
	require.NoError(t, err)
	require.Len(t, page.Bookings, 2)
	assert.False(t, page.HasMore)

	assert.Equal(t, newer.ID, page.Bookings[0].ID)
	assert.Equal(t, "Room A", page.Bookings[0].SpaceName)
	assert.Equal(t, domain.PaymentStatusUnpaid, page.Bookings[0].PaymentStatus)
	assert.Equal(t, older.ID, page.Bookings[1].ID)
	assert.Equal(t, string(paymentdomain.StatusProcessing), page.Bookings[1].PaymentStatus)

	req := domain.ListBookingsRequest{}
	req.PageSize = 1
	first, err := f.svc.ListMyBookings(ctx, alice, req)
	require.NoError(t, err)
	require.Len(t, first.Bookings, 1)
	assert.True(t, first.HasMore)
	assert.Equal(t, newer.ID, first.Bookings[0].ID)

	req.PageToken = first.NextPageToken
	second, err := f.svc.ListMyBookings(ctx, alice, req)
	require.NoError(t, err)
	require.Len(t, second.Bookings, 1)
	assert.False(t, second.HasMore)
	assert.Equal(t, older.ID, second.Bookings[0].ID)
}
