package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/buildingbills/internal/audit/domain"
	"gorm.io/gorm"
)

type CreateRequest struct {
	Period  string `json:"period"`
	ActorID string `json:"-"`
}

type ListRequest struct {
	Status Status `form:"status"`
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (BillingCycle, error)
	Get(ctx context.Context, id snowflake.ID) (BillingCycle, error)
	GetByPeriod(ctx context.Context, period string) (BillingCycle, error)
	List(ctx context.Context, req ListRequest) ([]BillingCycle, error)

	Publish(ctx context.Context, id snowflake.ID, actorID string) (Status, error)
	Recalculate(ctx context.Context, id snowflake.ID, actorID string) (Status, error)
	Lock(ctx context.Context, id snowflake.ID, actorID string) (Status, error)

	Checklist(ctx context.Context, id snowflake.ID) (Checklist, error)
	Summary(ctx context.Context, id snowflake.ID) (Summary, error)
	Timeline(ctx context.Context, id snowflake.ID) ([]auditdomain.Entry, error)
}

// Repository is shared with the charge and payment packages, which claim
// the cycle row before mutating its inputs.
type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, cycle *BillingCycle) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*BillingCycle, error)
	FindByPeriod(ctx context.Context, db *gorm.DB, period string) (*BillingCycle, error)
	List(ctx context.Context, db *gorm.DB, status Status) ([]BillingCycle, error)
	// CompareAndSwap writes cycle's status and timestamps and bumps the
	// version, only if the row still has the expected status and version.
	CompareAndSwap(ctx context.Context, db *gorm.DB, cycle BillingCycle, expected Status, expectedVersion int64) (bool, error)
	// Claim bumps the version of a cycle that is not locked. Concurrent
	// claims and transitions on the same cycle serialize on the row.
	Claim(ctx context.Context, db *gorm.DB, id snowflake.ID) (*BillingCycle, error)
}
