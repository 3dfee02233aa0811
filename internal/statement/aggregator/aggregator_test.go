package aggregator

import (
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	referencedomain "github.com/smallbiznis/buildingbills/internal/reference/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func TestAggregateSplitsCommonChargesWithRemainderToFirstCode(t *testing.T) {
	units := []Unit{{ID: 3, Code: "A3"}, {ID: 1, Code: "A1"}, {ID: 2, Code: "A2"}}
	common := []Common{{CategoryID: 10, CategoryName: "Maintenance", Total: d("100")}}

	out := Aggregate(units, common, nil)
	require.Len(t, out, 3)

	assert.True(t, out[1].NewCharges.Equal(d("33.34")), "A1 got %s", out[1].NewCharges)
	assert.True(t, out[2].NewCharges.Equal(d("33.33")))
	assert.True(t, out[3].NewCharges.Equal(d("33.33")))

	total := decimal.Zero
	for _, r := range out {
		total = total.Add(r.NewCharges)
	}
	assert.True(t, total.Equal(d("100")))
}

func TestAggregateExampleScenario(t *testing.T) {
	units := []Unit{{ID: 1, Code: "A1"}, {ID: 2, Code: "A2"}, {ID: 3, Code: "A3"}}
	common := []Common{
		{CategoryID: 10, CategoryName: "Water", Total: d("300")},
		{CategoryID: 11, CategoryName: "Electricity", Total: d("150")},
	}
	individual := []Individual{
		{UnitID: 2, CategoryID: 20, CategoryName: "Parking", Amount: d("50")},
	}

	out := Aggregate(units, common, individual)

	assert.True(t, out[1].NewCharges.Equal(d("150")))
	assert.True(t, out[2].NewCharges.Equal(d("200")))
	assert.True(t, out[3].NewCharges.Equal(d("150")))

	items := out[2].LineItems
	require.Len(t, items, 3)
	assert.Equal(t, "Electricity", items[0].Name)
	assert.Equal(t, "Water", items[1].Name)
	assert.Equal(t, "Parking", items[2].Name)
	assert.Equal(t, referencedomain.KindIndividual, items[2].Kind)
}

func TestAggregateIgnoresInactiveUnitCharges(t *testing.T) {
	units := []Unit{{ID: 1, Code: "A1"}}
	individual := []Individual{
		{UnitID: 1, CategoryID: 20, CategoryName: "Parking", Amount: d("10")},
		{UnitID: 9, CategoryID: 20, CategoryName: "Parking", Amount: d("99")},
	}

	out := Aggregate(units, nil, individual)
	require.Len(t, out, 1)
	assert.True(t, out[1].NewCharges.Equal(d("10")))
	_, ok := out[snowflake.ID(9)]
	assert.False(t, ok)
}

func TestAggregateNoUnits(t *testing.T) {
	out := Aggregate(nil, []Common{{CategoryID: 1, CategoryName: "Water", Total: d("10")}}, nil)
	assert.Empty(t, out)
}

func TestAggregateUnitWithoutChargesHasZeroTotal(t *testing.T) {
	out := Aggregate([]Unit{{ID: 1, Code: "B1"}}, nil, nil)
	require.Contains(t, out, snowflake.ID(1))
	assert.True(t, out[1].NewCharges.IsZero())
	assert.Empty(t, out[1].LineItems)
}
