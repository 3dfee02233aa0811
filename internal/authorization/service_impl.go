package authorization

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	obscontext "github.com/smallbiznis/buildingbills/internal/observability/context"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

const (
	RoleAdmin    = "admin"
	RoleOccupant = "occupant"
)

const (
	ObjectStatement    = "statement"
	ObjectBillingCycle = "billing_cycle"
	ObjectCharge       = "charge"
	ObjectPayment      = "payment"
	ObjectReference    = "reference"
	ObjectAuditLog     = "audit_log"
	ObjectNotification = "notification"
)

const (
	ActionStatementView       = "view"
	ActionStatementViewAmount = "view_amount"
	ActionStatementBoard      = "board"

	ActionBillingCycleView   = "view"
	ActionBillingCycleManage = "manage"

	ActionChargeManage        = "manage"
	ActionPaymentRecord       = "record"
	ActionReferenceManage     = "manage"
	ActionAuditLogView        = "view"
	ActionNotificationSend    = "send"
	ActionNotificationHistory = "history"
)

type Params struct {
	fx.In

	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
}

type ServiceImpl struct {
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
}

// NewEnforcer loads policies from the casbin_rule table and seeds the
// built-in role capabilities.
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
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	return enforcer, nil
}

// NewMemoryEnforcer builds an enforcer with the seeded policies and no
// backing store.
func NewMemoryEnforcer() (*casbin.SyncedEnforcer, error) {
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m)
	if err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
	}
}

func (s *ServiceImpl) Can(ctx context.Context, role string, object string, action string) (bool, error) {
	role = normalizeRole(role)
	if role == "" {
		return false, nil
	}
	object = strings.TrimSpace(object)
	if object == "" {
		return false, ErrInvalidObject
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return false, ErrInvalidAction
	}
	return s.enforcer.Enforce(subject(role), object, action)
}

func (s *ServiceImpl) Authorize(ctx context.Context, role string, object string, action string) error {
	allowed, err := s.Can(ctx, role, object, action)
	if err != nil {
		return err
	}
	if !allowed {
		actorID, _ := obscontext.ActorFromContext(ctx)
		s.log.Warn("authorization denied",
			zap.String("actor_id", actorID),
			zap.String("role", role),
			zap.String("object", object),
			zap.String("action", action),
		)
		return ErrForbidden
	}
	return nil
}

func normalizeRole(role string) string {
	return strings.ToLower(strings.TrimSpace(role))
}

func subject(role string) string {
	return fmt.Sprintf("role:%s", role)
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	policies := [][]string{
		// Occupants see their own statement and the paid/due board.
		{subject(RoleOccupant), ObjectStatement, ActionStatementView},
		{subject(RoleOccupant), ObjectStatement, ActionStatementBoard},

		{subject(RoleAdmin), ObjectStatement, ActionStatementView},
		{subject(RoleAdmin), ObjectStatement, ActionStatementBoard},
		{subject(RoleAdmin), ObjectStatement, ActionStatementViewAmount},
		{subject(RoleAdmin), ObjectBillingCycle, ActionBillingCycleView},
		{subject(RoleAdmin), ObjectBillingCycle, ActionBillingCycleManage},
		{subject(RoleAdmin), ObjectCharge, ActionChargeManage},
		{subject(RoleAdmin), ObjectPayment, ActionPaymentRecord},
		{subject(RoleAdmin), ObjectReference, ActionReferenceManage},
		{subject(RoleAdmin), ObjectAuditLog, ActionAuditLogView},
		{subject(RoleAdmin), ObjectNotification, ActionNotificationSend},
		{subject(RoleAdmin), ObjectNotification, ActionNotificationHistory},
	}

	for _, policy := range policies {
		has, err := enforcer.HasPolicy(policy)
		if err != nil {
			return err
		}
		if has {
			continue
		}
		if _, err := enforcer.AddPolicy(policy); err != nil {
			return err
		}
	}
	return nil
}
