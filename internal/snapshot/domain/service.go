package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Service interface {
	// CreateForCycle freezes every statement of the cycle. It must run in
	// the lock transaction and refuses a cycle that already has snapshots.
	CreateForCycle(ctx context.Context, tx *gorm.DB, cycleID snowflake.ID) (int, error)
	Get(ctx context.Context, cycleID, unitID snowflake.ID) (StatementSnapshot, error)
	List(ctx context.Context, cycleID snowflake.ID) ([]StatementSnapshot, error)
}

type Repository interface {
	InsertBatch(ctx context.Context, db *gorm.DB, rows []StatementSnapshot) error
	Count(ctx context.Context, db *gorm.DB, cycleID snowflake.ID) (int64, error)
	Find(ctx context.Context, db *gorm.DB, cycleID, unitID snowflake.ID) (*StatementSnapshot, error)
	ListByCycle(ctx context.Context, db *gorm.DB, cycleID snowflake.ID) ([]StatementSnapshot, error)
}

var (
	ErrSnapshotExists = errors.New("snapshot_exists")
	ErrNotFound       = errors.New("snapshot_not_found")
)
