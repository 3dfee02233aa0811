// Package aggregator turns the charge inputs of one cycle into per-unit
// totals and line items. It performs no I/O.
package aggregator

import (
	"sort"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	referencedomain "github.com/smallbiznis/buildingbills/internal/reference/domain"
	"github.com/smallbiznis/buildingbills/internal/statement/domain"
	"github.com/smallbiznis/buildingbills/pkg/money"
)

type Unit struct {
	ID   snowflake.ID
	Code string
}

type Common struct {
	CategoryID   snowflake.ID
	CategoryName string
	Total        decimal.Decimal
}

type Individual struct {
	UnitID       snowflake.ID
	CategoryID   snowflake.ID
	CategoryName string
	Amount       decimal.Decimal
}

type Result struct {
	UnitID     snowflake.ID
	UnitCode   string
	NewCharges decimal.Decimal
	LineItems  []domain.LineItem
}

// Aggregate splits every common charge evenly across units, truncating to
// currency precision, and gives the remainder to the unit whose code sorts
// first. Individual charges of units outside units are ignored.
func Aggregate(units []Unit, common []Common, individual []Individual) map[snowflake.ID]*Result {
	out := make(map[snowflake.ID]*Result, len(units))
	if len(units) == 0 {
		return out
	}

	first := units[0]
	for _, u := range units {
		out[u.ID] = &Result{UnitID: u.ID, UnitCode: u.Code, NewCharges: decimal.Zero}
		if u.Code < first.Code {
			first = u
		}
	}

	for _, c := range common {
		share, remainder, err := money.Split(c.Total, len(units))
		if err != nil {
			continue
		}
		for _, u := range units {
			amount := share
			if u.ID == first.ID {
				amount = amount.Add(remainder)
			}
			out[u.ID].add(domain.LineItem{
				CategoryID: c.CategoryID,
				Name:       c.CategoryName,
				Kind:       referencedomain.KindCommon,
				Amount:     amount,
			})
		}
	}

	for _, ic := range individual {
		r, ok := out[ic.UnitID]
		if !ok {
			continue
		}
		r.add(domain.LineItem{
			CategoryID: ic.CategoryID,
			Name:       ic.CategoryName,
			Kind:       referencedomain.KindIndividual,
			Amount:     money.Round(ic.Amount),
		})
	}

	for _, r := range out {
		SortLineItems(r.LineItems)
	}
	return out
}

func (r *Result) add(item domain.LineItem) {
	r.LineItems = append(r.LineItems, item)
	r.NewCharges = r.NewCharges.Add(item.Amount)
}

// SortLineItems orders common charges before individual ones, then by name.
func SortLineItems(items []domain.LineItem) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Kind != items[j].Kind {
			return items[i].Kind == referencedomain.KindCommon
		}
		return items[i].Name < items[j].Name
	})
}
