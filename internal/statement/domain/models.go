package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	referencedomain "github.com/smallbiznis/buildingbills/internal/reference/domain"
	"gorm.io/datatypes"
)

type Status string

const (
	StatusDue     Status = "due"
	StatusPartial Status = "partial"
	StatusPaid    Status = "paid"
)

// Source tells whether a statement was read from the live table or from
// the frozen snapshot of a locked cycle.
type Source string

const (
	SourceLive     Source = "live"
	SourceSnapshot Source = "snapshot"
)

// LineItem is one charge on a statement. Names are copied at computation
// time so later category renames do not change issued statements.
type LineItem struct {
	CategoryID snowflake.ID               `json:"category_id"`
	Name       string                     `json:"name"`
	Kind       referencedomain.ChargeKind `json:"kind"`
	Amount     decimal.Decimal            `json:"amount"`
}

type Statement struct {
	ID         snowflake.ID                  `json:"id" gorm:"primaryKey"`
	CycleID    snowflake.ID                  `json:"cycle_id" gorm:"not null;uniqueIndex:ux_statements_cycle_unit,priority:1"`
	UnitID     snowflake.ID                  `json:"unit_id" gorm:"not null;uniqueIndex:ux_statements_cycle_unit,priority:2"`
	OpeningDue decimal.Decimal               `json:"opening_due" gorm:"type:numeric(14,2);not null"`
	NewCharges decimal.Decimal               `json:"new_charges" gorm:"type:numeric(14,2);not null"`
	PaidAmount decimal.Decimal               `json:"paid_amount" gorm:"type:numeric(14,2);not null"`
	ClosingDue decimal.Decimal               `json:"closing_due" gorm:"type:numeric(14,2);not null"`
	Status     Status                        `json:"status" gorm:"type:text;not null"`
	LineItems  datatypes.JSONSlice[LineItem] `json:"line_items" gorm:"not null"`
	CreatedAt  time.Time                     `json:"created_at" gorm:"not null"`
	UpdatedAt  time.Time                     `json:"updated_at" gorm:"not null"`
}

func (Statement) TableName() string { return "statements" }

type StatementView struct {
	CycleID    snowflake.ID    `json:"cycle_id"`
	Period     string          `json:"period"`
	UnitID     snowflake.ID    `json:"unit_id"`
	UnitCode   string          `json:"unit_code"`
	OpeningDue decimal.Decimal `json:"opening_due"`
	NewCharges decimal.Decimal `json:"new_charges"`
	PaidAmount decimal.Decimal `json:"paid_amount"`
	ClosingDue decimal.Decimal `json:"closing_due"`
	Status     Status          `json:"status"`
	LineItems  []LineItem      `json:"line_items"`
	Source     Source          `json:"source"`
}

// BoardRow is one line of the building status board. ClosingDue is only
// set for callers allowed to see amounts.
type BoardRow struct {
	UnitID     snowflake.ID     `json:"unit_id"`
	UnitCode   string           `json:"unit_code"`
	Status     Status           `json:"status"`
	ClosingDue *decimal.Decimal `json:"closing_due,omitempty"`
}
