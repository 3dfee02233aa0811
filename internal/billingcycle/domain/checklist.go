package domain

import (
	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

const (
	CheckCycleStage       = "cycle_stage_ready"
	CheckCommonCharges    = "common_charges_added"
	CheckStatementsCover  = "statements_cover_active_units"
	CheckFormulaBalanced  = "formula_balanced"
	CheckSnapshotsCreated = "snapshot_created"
)

type ChecklistItem struct {
	Key    string `json:"key"`
	Label  string `json:"label"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail,omitempty"`
	// Gating items block Lock when they fail.
	Gating bool `json:"gating"`
}

type Checklist struct {
	CycleID     snowflake.ID    `json:"cycle_id"`
	Status      Status          `json:"status"`
	Items       []ChecklistItem `json:"items"`
	ReadyToLock bool            `json:"ready_to_lock"`
}

// Failed returns the gating items that did not pass.
func (c Checklist) Failed() []ChecklistItem {
	var failed []ChecklistItem
	for _, item := range c.Items {
		if item.Gating && !item.Passed {
			failed = append(failed, item)
		}
	}
	return failed
}

func (c Checklist) Item(key string) (ChecklistItem, bool) {
	for _, item := range c.Items {
		if item.Key == key {
			return item, true
		}
	}
	return ChecklistItem{}, false
}

type StatusCounts struct {
	Total   int `json:"total"`
	Paid    int `json:"paid"`
	Partial int `json:"partial"`
	Due     int `json:"due"`
}

type Totals struct {
	OpeningDue decimal.Decimal `json:"opening_due"`
	NewCharges decimal.Decimal `json:"new_charges"`
	PaidAmount decimal.Decimal `json:"paid_amount"`
	ClosingDue decimal.Decimal `json:"closing_due"`
}

// Summary is the cycle dashboard: counts, totals and the ledger check.
type Summary struct {
	CycleID               snowflake.ID    `json:"cycle_id"`
	Period                string          `json:"period"`
	Status                Status          `json:"status"`
	Source                string          `json:"source"`
	ActiveUnits           int64           `json:"active_units"`
	Counts                StatusCounts    `json:"counts"`
	Totals                Totals          `json:"totals"`
	OutstandingDue        decimal.Decimal `json:"outstanding_due"`
	CreditBalance         decimal.Decimal `json:"credit_balance"`
	FormulaCheck          decimal.Decimal `json:"formula_check"`
	CommonChargeCount     int64           `json:"common_charge_count"`
	IndividualChargeCount int64           `json:"individual_charge_count"`
	PaymentCount          int64           `json:"payment_count"`
}
