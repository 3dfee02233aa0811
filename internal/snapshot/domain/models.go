package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	statementdomain "github.com/smallbiznis/buildingbills/internal/statement/domain"
	"gorm.io/datatypes"
)

// StatementSnapshot is the frozen copy of a statement taken when its cycle
// was locked. Rows are written once and never changed.
type StatementSnapshot struct {
	ID         snowflake.ID                                  `json:"id" gorm:"primaryKey"`
	CycleID    snowflake.ID                                  `json:"cycle_id" gorm:"not null;uniqueIndex:ux_statement_snapshots_cycle_unit,priority:1"`
	UnitID     snowflake.ID                                  `json:"unit_id" gorm:"not null;uniqueIndex:ux_statement_snapshots_cycle_unit,priority:2"`
	UnitCode   string                                        `json:"unit_code" gorm:"type:text;not null"`
	OpeningDue decimal.Decimal                               `json:"opening_due" gorm:"type:numeric(14,2);not null"`
	NewCharges decimal.Decimal                               `json:"new_charges" gorm:"type:numeric(14,2);not null"`
	PaidAmount decimal.Decimal                               `json:"paid_amount" gorm:"type:numeric(14,2);not null"`
	ClosingDue decimal.Decimal                               `json:"closing_due" gorm:"type:numeric(14,2);not null"`
	Status     statementdomain.Status                        `json:"status" gorm:"type:text;not null"`
	LineItems  datatypes.JSONSlice[statementdomain.LineItem] `json:"line_items" gorm:"not null"`
	CreatedAt  time.Time                                     `json:"created_at" gorm:"not null"`
}

func (StatementSnapshot) TableName() string { return "statement_snapshots" }
