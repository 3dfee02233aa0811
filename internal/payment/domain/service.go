package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type RecordRequest struct {
	CycleID   snowflake.ID    `json:"-"`
	UnitID    snowflake.ID    `json:"unit_id"`
	Amount    decimal.Decimal `json:"amount"`
	PaidOn    string          `json:"paid_on"`
	Method    Method          `json:"method"`
	Reference string          `json:"reference"`
	Notes     string          `json:"notes"`
	ActorID   string          `json:"-"`
}

type ListRequest struct {
	CycleID snowflake.ID
	UnitID  *snowflake.ID
}

type Service interface {
	Record(ctx context.Context, req RecordRequest) (Payment, error)
	List(ctx context.Context, req ListRequest) ([]PaymentView, error)
}

var (
	ErrInvalidAmount = errors.New("invalid_amount")
	ErrInvalidUnit   = errors.New("invalid_unit")
	ErrInvalidPaidOn = errors.New("invalid_paid_on")
	ErrInvalidMethod = errors.New("invalid_method")
)
