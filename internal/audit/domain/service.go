package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	authdomain "github.com/smallbiznis/spacebook/internal/auth/domain"
	"github.com/smallbiznis/spacebook/pkg/db/pagination"
)

const (
	ActionBookingCreate   = "booking.create"
	ActionBookingCancel   = "booking.cancel"
	ActionInvoiceIssue    = "invoice.issue"
	ActionAgreementAccept = "agreement.accept"
)

const (
	TargetBooking = "booking"
	TargetInvoice = "invoice"
)

type ListAuditLogRequest struct {
	pagination.Pagination
	Action     string
	TargetType string
	TargetID   *snowflake.ID
	ActorType  string
	StartAt    *time.Time
	EndAt      *time.Time
}

type ListAuditLogResponse struct {
	pagination.PageInfo
	AuditLogs []AuditLog `json:"audit_logs"`
}

type Service interface {
	AuditLog(ctx context.Context, actor authdomain.Credential, action, targetType string, targetID snowflake.ID, metadata map[string]any) error
	List(ctx context.Context, cred authdomain.Credential, req ListAuditLogRequest) (ListAuditLogResponse, error)
}

var (
	ErrInvalidAction    = errors.New("invalid_action")
	ErrInvalidTimeRange = errors.New("invalid_time_range")
)
