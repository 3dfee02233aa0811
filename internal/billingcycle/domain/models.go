package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Status is a cycle's lifecycle stage. Locked is terminal.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
	StatusLocked    Status = "locked"
)

type Action string

const (
	ActionPublish     Action = "publish"
	ActionRecalculate Action = "recalculate"
	ActionLock        Action = "lock"
	ActionMutate      Action = "modify"
)

// BillingCycle is one calendar month of billing for the building.
type BillingCycle struct {
	ID          snowflake.ID `json:"id" gorm:"primaryKey"`
	Period      string       `json:"period" gorm:"type:char(7);not null;uniqueIndex"`
	PeriodStart time.Time    `json:"period_start" gorm:"not null"`
	Status      Status       `json:"status" gorm:"type:text;not null;default:'draft'"`
	PublishedAt *time.Time   `json:"published_at,omitempty"`
	LockedAt    *time.Time   `json:"locked_at,omitempty"`
	Version     int64        `json:"version" gorm:"not null;default:0"`
	CreatedBy   string       `json:"created_by" gorm:"type:text;not null"`
	CreatedAt   time.Time    `json:"created_at" gorm:"not null"`
	UpdatedAt   time.Time    `json:"updated_at" gorm:"not null"`
}

// TableName sets the database table name.
func (BillingCycle) TableName() string { return "billing_cycles" }

func (c BillingCycle) IsLocked() bool { return c.Status == StatusLocked }
