package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// CommonCharge is a building-wide cost split across active units.
type CommonCharge struct {
	ID          snowflake.ID    `json:"id" gorm:"primaryKey"`
	CycleID     snowflake.ID    `json:"cycle_id" gorm:"not null;uniqueIndex:ux_common_charge_cycle_category,priority:1"`
	CategoryID  snowflake.ID    `json:"category_id" gorm:"not null;uniqueIndex:ux_common_charge_cycle_category,priority:2"`
	TotalAmount decimal.Decimal `json:"total_amount" gorm:"type:numeric(14,2);not null"`
	Notes       string          `json:"notes" gorm:"type:text;not null;default:''"`
	CreatedBy   string          `json:"created_by" gorm:"type:text;not null"`
	CreatedAt   time.Time       `json:"created_at" gorm:"not null"`
	UpdatedAt   time.Time       `json:"updated_at" gorm:"not null"`
}

func (CommonCharge) TableName() string { return "common_charges" }

// IndividualCharge is a cost billed to one unit.
type IndividualCharge struct {
	ID         snowflake.ID    `json:"id" gorm:"primaryKey"`
	CycleID    snowflake.ID    `json:"cycle_id" gorm:"not null;uniqueIndex:ux_individual_charge_cycle_unit_category,priority:1"`
	UnitID     snowflake.ID    `json:"unit_id" gorm:"not null;uniqueIndex:ux_individual_charge_cycle_unit_category,priority:2"`
	CategoryID snowflake.ID    `json:"category_id" gorm:"not null;uniqueIndex:ux_individual_charge_cycle_unit_category,priority:3"`
	Amount     decimal.Decimal `json:"amount" gorm:"type:numeric(14,2);not null"`
	CreatedBy  string          `json:"created_by" gorm:"type:text;not null"`
	CreatedAt  time.Time       `json:"created_at" gorm:"not null"`
	UpdatedAt  time.Time       `json:"updated_at" gorm:"not null"`
}

func (IndividualCharge) TableName() string { return "individual_charges" }

// CommonChargeView adds the category name resolved at read time.
type CommonChargeView struct {
	CommonCharge
	CategoryName string `json:"category_name"`
}

type IndividualChargeView struct {
	IndividualCharge
	CategoryName string `json:"category_name"`
	UnitCode     string `json:"unit_code"`
}
