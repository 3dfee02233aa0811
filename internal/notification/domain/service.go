package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	billingcycledomain "github.com/smallbiznis/buildingbills/internal/billingcycle/domain"
	"gorm.io/gorm"
)

type Service interface {
	// Dispatch sends the statement-ready notice to every recipient of the
	// cycle. Delivery failures are recorded and counted, never returned.
	Dispatch(ctx context.Context, cycleID snowflake.ID, actorID string) (Summary, error)
	History(ctx context.Context, req HistoryRequest) (HistoryResponse, error)
}

// RecipientLookup resolves who should hear about a cycle.
type RecipientLookup interface {
	Recipients(ctx context.Context, cycle billingcycledomain.BillingCycle) ([]Recipient, error)
}

type Repository interface {
	InsertBatch(ctx context.Context, db *gorm.DB, records []Record) error
	List(ctx context.Context, db *gorm.DB, cycleID snowflake.ID, beforeID snowflake.ID, limit int) ([]Record, error)
}

var ErrDispatchTimeout = errors.New("delivery_timeout")
