package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/buildingbills/pkg/db/pagination"
	"gorm.io/gorm"
)

// RecordInput describes one mutating action. Record writes it through the
// caller's transaction so the audit row commits or rolls back with the change.
type RecordInput struct {
	Table    string
	RecordID string
	Action   Action
	ActorID  string
	CycleID  *snowflake.ID
	Metadata map[string]any
}

type ListRequest struct {
	pagination.Pagination
	Table   string `form:"table_name"`
	Action  string `form:"action"`
	ActorID string `form:"actor_id"`
	CycleID *snowflake.ID
}

type ListResponse struct {
	pagination.PageInfo
	Entries []Entry `json:"entries"`
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, entry *Entry) error
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]Entry, error)
	ListByCycle(ctx context.Context, db *gorm.DB, cycleID snowflake.ID) ([]Entry, error)
}

type Service interface {
	Record(ctx context.Context, tx *gorm.DB, in RecordInput) error
	List(ctx context.Context, req ListRequest) (ListResponse, error)
	Timeline(ctx context.Context, cycleID snowflake.ID) ([]Entry, error)
}

var (
	ErrInvalidAction   = errors.New("invalid_action")
	ErrInvalidTable    = errors.New("invalid_table_name")
	ErrInvalidActor    = errors.New("invalid_actor_id")
	ErrInvalidRecordID = errors.New("invalid_record_id")
)
