// Package money holds the currency arithmetic shared by charge aggregation,
// statement calculation and the close checklist.
package money

import (
	"errors"

	"github.com/shopspring/decimal"
)

// Precision is the number of decimal places amounts are stored with.
const Precision int32 = 2

// Tolerance is the largest ledger drift accepted by the balance check.
var Tolerance = decimal.New(1, -Precision)

var ErrInvalidParts = errors.New("invalid_split_parts")

// Round rounds an amount half away from zero to currency precision.
func Round(v decimal.Decimal) decimal.Decimal {
	return v.Round(Precision)
}

// Truncate drops digits beyond currency precision.
func Truncate(v decimal.Decimal) decimal.Decimal {
	return v.Truncate(Precision)
}

// Split divides total into n truncated shares. The remainder needed to make
// the shares sum to total exactly is returned separately so the caller can
// assign it deterministically.
func Split(total decimal.Decimal, n int) (share decimal.Decimal, remainder decimal.Decimal, err error) {
	if n <= 0 {
		return decimal.Zero, decimal.Zero, ErrInvalidParts
	}
	total = Round(total)
	parts := decimal.NewFromInt(int64(n))
	share = Truncate(total.Div(parts))
	remainder = total.Sub(share.Mul(parts))
	return share, remainder, nil
}

// Sum adds amounts.
func Sum(values ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}

// Drift returns opening + charges - paid - closing, rounded to precision.
func Drift(opening, charges, paid, closing decimal.Decimal) decimal.Decimal {
	return Round(opening.Add(charges).Sub(paid).Sub(closing))
}

// Balanced reports whether the ledger equation holds within Tolerance.
func Balanced(opening, charges, paid, closing decimal.Decimal) bool {
	return Drift(opening, charges, paid, closing).Abs().LessThanOrEqual(Tolerance)
}

// Positive reports whether v is strictly greater than zero.
func Positive(v decimal.Decimal) bool {
	return v.GreaterThan(decimal.Zero)
}
