package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/spacebook/internal/audit/domain"
	auditrepo "github.com/smallbiznis/spacebook/internal/audit/repository"
	authdomain "github.com/smallbiznis/spacebook/internal/auth/domain"
	"github.com/smallbiznis/spacebook/internal/authorization"
	"github.com/smallbiznis/spacebook/internal/clock"
	obscontext "github.com/smallbiznis/spacebook/internal/observability/context"
	"github.com/smallbiznis/spacebook/internal/testutil"
	"github.com/smallbiznis/spacebook/pkg/db/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var (
	user  = authdomain.Credential{UserID: snowflake.ID(1), Role: authdomain.RoleUser}
	admin = authdomain.Credential{UserID: snowflake.ID(3), Role: authdomain.RoleAdmin}
)

func setup(t *testing.T) (auditdomain.Service, *clock.FakeClock) {
	t.Helper()
	db := testutil.OpenDB(t)
	log := zaptest.NewLogger(t)

	enforcer, err := authorization.NewEnforcer(db)
	require.NoError(t, err)

	fc := clock.NewFakeClock(time.Date(2030, 5, 6, 9, 0, 0, 0, time.UTC))
	return NewService(Params{
		DB:    db,
		Log:   log,
		GenID: testutil.Node(t),
		Clock: fc,
		Repo:  auditrepo.Provide(),
		Authz: authorization.NewService(authorization.Params{Log: log, Enforcer: enforcer}),
	}), fc
}

func TestAuditLogMasksSecretsAndRecordsRequest(t *testing.T) {
	svc, _ := setup(t)
	ctx := obscontext.WithRequestID(context.Background(), "req-1")

	require.NoError(t, svc.AuditLog(ctx, user, auditdomain.ActionInvoiceIssue, auditdomain.TargetInvoice, snowflake.ID(42), map[string]any{
		"payment_intent_id": "pi_3NxYz1234abcd",
		"source":            "confirm",
	}))

	resp, err := svc.List(context.Background(), admin, auditdomain.ListAuditLogRequest{})
	require.NoError(t, err)
	require.Len(t, resp.AuditLogs, 1)

	entry := resp.AuditLogs[0]
	assert.Equal(t, "user", entry.ActorType)
	require.NotNil(t, entry.ActorID)
	assert.Equal(t, user.UserID, *entry.ActorID)
	require.NotNil(t, entry.TargetID)
	assert.Equal(t, snowflake.ID(42), *entry.TargetID)
	assert.Equal(t, "pi_****abcd", entry.Metadata["payment_intent_id"])
	assert.Equal(t, "confirm", entry.Metadata["source"])
	assert.Equal(t, "req-1", entry.Metadata["request_id"])
}

func TestAuditLogRequiresAction(t *testing.T) {
	svc, _ := setup(t)
	err := svc.AuditLog(context.Background(), user, " ", auditdomain.TargetBooking, snowflake.ID(1), nil)
	require.ErrorIs(t, err, auditdomain.ErrInvalidAction)
}

func TestAuditLogWithoutActorIsSystem(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()
	require.NoError(t, svc.AuditLog(ctx, authdomain.Credential{}, auditdomain.ActionInvoiceIssue, auditdomain.TargetInvoice, snowflake.ID(7), nil))

	resp, err := svc.List(ctx, admin, auditdomain.ListAuditLogRequest{ActorType: "system"})
	require.NoError(t, err)
	require.Len(t, resp.AuditLogs, 1)
	assert.Nil(t, resp.AuditLogs[0].ActorID)
}

func TestListRequiresAdmin(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	_, err := svc.List(ctx, authdomain.Credential{}, auditdomain.ListAuditLogRequest{})
	require.ErrorIs(t, err, authdomain.ErrMissingCredential)

	_, err = svc.List(ctx, user, auditdomain.ListAuditLogRequest{})
	require.ErrorIs(t, err, authorization.ErrForbidden)

	support := authdomain.Credential{UserID: snowflake.ID(2), Role: authdomain.RoleSupport}
	_, err = svc.List(ctx, support, auditdomain.ListAuditLogRequest{})
	require.ErrorIs(t, err, authorization.ErrForbidden)
}

func TestListFiltersAndPages(t *testing.T) {
	svc, fc := setup(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, svc.AuditLog(ctx, user, auditdomain.ActionBookingCreate, auditdomain.TargetBooking, snowflake.ID(100+i), nil))
		fc.Advance(time.Minute)
	}
	require.NoError(t, svc.AuditLog(ctx, admin, auditdomain.ActionBookingCancel, auditdomain.TargetBooking, snowflake.ID(100), nil))

	first, err := svc.List(ctx, admin, auditdomain.ListAuditLogRequest{
		Pagination: pagination.Pagination{PageSize: 2},
		Action:     auditdomain.ActionBookingCreate,
	})
	require.NoError(t, err)
	require.Len(t, first.AuditLogs, 2)
	assert.True(t, first.HasMore)
	assert.Equal(t, snowflake.ID(102), *first.AuditLogs[0].TargetID)

	second, err := svc.List(ctx, admin, auditdomain.ListAuditLogRequest{
		Pagination: pagination.Pagination{PageSize: 2, PageToken: first.NextPageToken},
		Action:     auditdomain.ActionBookingCreate,
	})
	require.NoError(t, err)
	require.Len(t, second.AuditLogs, 1)
	assert.False(t, second.HasMore)
	assert.Equal(t, snowflake.ID(100), *second.AuditLogs[0].TargetID)

	target := snowflake.ID(100)
	byTarget, err := svc.List(ctx, admin, auditdomain.ListAuditLogRequest{TargetID: &target})
	require.NoError(t, err)
	assert.Len(t, byTarget.AuditLogs, 2)
}

func TestListRejectsInvertedRange(t *testing.T) {
	svc, fc := setup(t)
	start := fc.Now()
	end := start.Add(-time.Hour)

	_, err := svc.List(context.Background(), admin, auditdomain.ListAuditLogRequest{StartAt: &start, EndAt: &end})
	require.ErrorIs(t, err, auditdomain.ErrInvalidTimeRange)
}
