package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type UpsertCommonRequest struct {
	CycleID     snowflake.ID    `json:"-"`
	CategoryID  snowflake.ID    `json:"category_id"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Notes       string          `json:"notes"`
	ActorID     string          `json:"-"`
}

// IndividualCell is one (unit, category) cell of the charge grid. A zero
// amount removes the charge.
type IndividualCell struct {
	UnitID     snowflake.ID    `json:"unit_id"`
	CategoryID snowflake.ID    `json:"category_id"`
	Amount     decimal.Decimal `json:"amount"`
}

type SaveIndividualRequest struct {
	CycleID snowflake.ID     `json:"-"`
	Cells   []IndividualCell `json:"cells"`
	ActorID string           `json:"-"`
}

type SaveIndividualResult struct {
	Upserted int `json:"upserted"`
	Deleted  int `json:"deleted"`
}

type Service interface {
	UpsertCommon(ctx context.Context, req UpsertCommonRequest) (CommonCharge, error)
	DeleteCommon(ctx context.Context, cycleID, chargeID snowflake.ID, actorID string) error
	ListCommon(ctx context.Context, cycleID snowflake.ID) ([]CommonChargeView, error)

	SaveIndividual(ctx context.Context, req SaveIndividualRequest) (SaveIndividualResult, error)
	ListIndividual(ctx context.Context, cycleID snowflake.ID) ([]IndividualChargeView, error)
}

var (
	ErrInvalidAmount   = errors.New("invalid_amount")
	ErrInvalidCategory = errors.New("invalid_category")
	ErrInvalidUnit     = errors.New("invalid_unit")
	ErrInvalidCells    = errors.New("invalid_cells")
	ErrNotFound        = errors.New("charge_not_found")
)
