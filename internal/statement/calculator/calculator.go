// Package calculator derives a unit's statement figures from its opening
// balance, new charges and payments.
package calculator

import (
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/buildingbills/internal/statement/domain"
	"github.com/smallbiznis/buildingbills/pkg/money"
)

type Input struct {
	OpeningDue decimal.Decimal
	NewCharges decimal.Decimal
	Payments   []decimal.Decimal
}

type Result struct {
	OpeningDue decimal.Decimal
	NewCharges decimal.Decimal
	PaidAmount decimal.Decimal
	ClosingDue decimal.Decimal
	Status     domain.Status
}

func Calculate(in Input) Result {
	opening := money.Round(in.OpeningDue)
	charges := money.Round(in.NewCharges)
	paid := money.Round(money.Sum(in.Payments...))

	return Result{
		OpeningDue: opening,
		NewCharges: charges,
		PaidAmount: paid,
		ClosingDue: opening.Add(charges).Sub(paid),
		Status:     Classify(opening, charges, paid),
	}
}

// Classify returns paid when payments cover everything owed, including
// overpayment, due when nothing was paid and partial otherwise.
func Classify(opening, charges, paid decimal.Decimal) domain.Status {
	if paid.GreaterThanOrEqual(opening.Add(charges)) {
		return domain.StatusPaid
	}
	if paid.IsZero() {
		return domain.StatusDue
	}
	return domain.StatusPartial
}
