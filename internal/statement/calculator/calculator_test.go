package calculator

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/buildingbills/internal/statement/domain"
	"github.com/smallbiznis/buildingbills/pkg/money"
	"github.com/stretchr/testify/assert"
)

func d(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func TestCalculate(t *testing.T) {
	cases := []struct {
		name     string
		opening  string
		charges  string
		payments []string
		closing  string
		status   domain.Status
	}{
		{"nothing paid", "0", "150", nil, "150", domain.StatusDue},
		{"part paid with carry forward", "20", "150", []string{"100"}, "70", domain.StatusPartial},
		{"paid in two payments", "0", "200", []string{"120", "80"}, "0", domain.StatusPaid},
		{"overpaid", "0", "150", []string{"200"}, "-50", domain.StatusPaid},
		{"credit covers charges", "-60", "50", nil, "-10", domain.StatusPaid},
		{"zero owed", "0", "0", nil, "0", domain.StatusPaid},
	}

	for _, tc := range cases {
		payments := make([]decimal.Decimal, 0, len(tc.payments))
		for _, p := range tc.payments {
			payments = append(payments, d(p))
		}
		res := Calculate(Input{OpeningDue: d(tc.opening), NewCharges: d(tc.charges), Payments: payments})

		assert.True(t, res.ClosingDue.Equal(d(tc.closing)), "%s: closing %s", tc.name, res.ClosingDue)
		assert.Equal(t, tc.status, res.Status, tc.name)
		assert.True(t, money.Balanced(res.OpeningDue, res.NewCharges, res.PaidAmount, res.ClosingDue), tc.name)
	}
}
