package authorization

import (
	"context"
	_ "embed"
	"errors"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	authdomain "github.com/smallbiznis/spacebook/internal/auth/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

const (
	ObjectBooking  = "booking"
	ObjectInvoice  = "invoice"
	ObjectPayment  = "payment"
	ObjectAuditLog = "audit_log"
)

const (
	ActionCancelAny    = "cancel_any"
	ActionViewAny      = "view_any"
	ActionReconcileAny = "reconcile_any"
)

var ErrForbidden = errors.New("forbidden")

// Authorizer decides whether a credential may act on resources it does not own.
type Authorizer interface {
	Authorize(ctx context.Context, cred authdomain.Credential, object, action string) error
}

type Params struct {
	fx.In

	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
}

type Service struct {
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
}

func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	if err := enforcer.BuildRoleLinks(); err != nil {
		return nil, err
	}
	return enforcer, nil
}

func NewService(p Params) *Service {
	return &Service{
		log:      p.Log.Named("authorization"),
		enforcer: p.Enforcer,
	}
}

func (s *Service) Authorize(ctx context.Context, cred authdomain.Credential, object, action string) error {
	object = strings.TrimSpace(object)
	action = strings.TrimSpace(action)
	if cred.Role == "" || object == "" || action == "" {
		return ErrForbidden
	}

	allowed, err := s.enforcer.Enforce(roleSubject(cred.Role), object, action)
	if err != nil {
		return err
	}
	if !allowed {
		s.log.Debug("authorization denied",
			zap.String("user_id", cred.UserID.String()),
			zap.String("role", string(cred.Role)),
			zap.String("object", object),
			zap.String("action", action),
		)
		return ErrForbidden
	}
	return nil
}

func roleSubject(role authdomain.Role) string {
	return "role:" + string(role)
}

// seededPolicies are the role grants every enforcer starts with.
var seededPolicies = [][]string{
	{roleSubject(authdomain.RoleSupport), ObjectBooking, ActionViewAny},
	{roleSubject(authdomain.RoleSupport), ObjectInvoice, ActionViewAny},

	{roleSubject(authdomain.RoleAdmin), ObjectBooking, ActionCancelAny},
	{roleSubject(authdomain.RoleAdmin), ObjectAuditLog, ActionViewAny},
	{roleSubject(authdomain.RoleSystem), ObjectPayment, ActionReconcileAny},
}

// seededGroupings make admins inherit every support permission.
var seededGroupings = [][]string{
	{roleSubject(authdomain.RoleAdmin), roleSubject(authdomain.RoleSupport)},
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	for _, p := range seededPolicies {
		if _, err := enforcer.AddPolicy(p[0], p[1], p[2]); err != nil {
			return err
		}
	}
	for _, g := range seededGroupings {
		if _, err := enforcer.AddGroupingPolicy(g[0], g[1]); err != nil {
			return err
		}
	}
	return nil
}

var _ Authorizer = (*Service)(nil)
