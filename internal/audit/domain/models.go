package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type Action string

const (
	ActionCreate      Action = "create"
	ActionUpdate      Action = "update"
	ActionDelete      Action = "delete"
	ActionActivate    Action = "activate"
	ActionDeactivate  Action = "deactivate"
	ActionPublish     Action = "publish"
	ActionRecalculate Action = "recalculate"
	ActionLock        Action = "lock"
	ActionNotify      Action = "notify"
)

// Entry is one append-only audit row. Ids are snowflakes, so ordering by id
// is insertion order.
type Entry struct {
	ID        snowflake.ID      `json:"id" gorm:"primaryKey"`
	Table     string            `json:"table_name" gorm:"column:table_name;type:text;not null;index"`
	RecordID  string            `json:"record_id" gorm:"type:text;not null"`
	Action    Action            `json:"action" gorm:"type:text;not null"`
	ActorID   string            `json:"actor_id" gorm:"type:text;not null"`
	CycleID   *snowflake.ID     `json:"cycle_id,omitempty" gorm:"index"`
	Metadata  datatypes.JSONMap `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at" gorm:"not null"`
}

func (Entry) TableName() string { return "audit_entries" }

type ListFilter struct {
	Table   string
	Action  string
	ActorID string
	CycleID *snowflake.ID
	AfterID snowflake.ID
	Limit   int
}
