package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type Method string

const (
	MethodCash         Method = "cash"
	MethodUPI          Method = "upi"
	MethodBankTransfer Method = "bank_transfer"
	MethodCheque       Method = "cheque"
	MethodOther        Method = "other"
)

func (m Method) Valid() bool {
	switch m {
	case MethodCash, MethodUPI, MethodBankTransfer, MethodCheque, MethodOther:
		return true
	}
	return false
}

// Payment is an externally confirmed receipt. Rows are never updated.
type Payment struct {
	ID         snowflake.ID    `json:"id" gorm:"primaryKey"`
	CycleID    snowflake.ID    `json:"cycle_id" gorm:"not null;index:ix_payments_cycle_unit,priority:1"`
	UnitID     snowflake.ID    `json:"unit_id" gorm:"not null;index:ix_payments_cycle_unit,priority:2"`
	Amount     decimal.Decimal `json:"amount" gorm:"type:numeric(14,2);not null"`
	PaidOn     time.Time       `json:"paid_on" gorm:"not null"`
	Method     Method          `json:"method" gorm:"type:text;not null;default:''"`
	Reference  string          `json:"reference" gorm:"type:text;not null;default:''"`
	Notes      string          `json:"notes" gorm:"type:text;not null;default:''"`
	ReceivedBy string          `json:"received_by" gorm:"type:text;not null"`
	CreatedAt  time.Time       `json:"created_at" gorm:"not null"`
}

func (Payment) TableName() string { return "payments" }

type PaymentView struct {
	Payment
	UnitCode string `json:"unit_code"`
}
