package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	billingcycledomain "github.com/smallbiznis/buildingbills/internal/billingcycle/domain"
	"gorm.io/gorm"
)

type Service interface {
	// Compute recomputes the statements of every active unit for cycle
	// inside tx and returns how many rows were written.
	Compute(ctx context.Context, tx *gorm.DB, cycle billingcycledomain.BillingCycle) (int, error)
	GetStatement(ctx context.Context, cycleID, unitID snowflake.ID) (StatementView, error)
	GetStatementByPeriod(ctx context.Context, period string, unitID snowflake.ID) (StatementView, error)
	ListStatements(ctx context.Context, cycleID snowflake.ID) ([]StatementView, error)
	StatusBoard(ctx context.Context, cycleID snowflake.ID, role string) ([]BoardRow, error)
}

type Repository interface {
	Upsert(ctx context.Context, db *gorm.DB, statements []Statement) error
	// DeleteOthers removes statements of cycleID whose unit is not in keep.
	DeleteOthers(ctx context.Context, db *gorm.DB, cycleID snowflake.ID, keep []snowflake.ID) (int64, error)
	ListByCycle(ctx context.Context, db *gorm.DB, cycleID snowflake.ID) ([]Statement, error)
	FindByCycleUnit(ctx context.Context, db *gorm.DB, cycleID, unitID snowflake.ID) (*Statement, error)
}

var (
	ErrNotFound          = errors.New("statement_not_found")
	ErrCycleNotPublished = errors.New("cycle_not_published")
	ErrInvalidUnit       = errors.New("invalid_unit")
)
