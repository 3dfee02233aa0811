package service

import (
	"context"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/buildingbills/internal/billingcycle/domain"
	chargedomain "github.com/smallbiznis/buildingbills/internal/charge/domain"
	paymentdomain "github.com/smallbiznis/buildingbills/internal/payment/domain"
	referencedomain "github.com/smallbiznis/buildingbills/internal/reference/domain"
	snapshotdomain "github.com/smallbiznis/buildingbills/internal/snapshot/domain"
	statementdomain "github.com/smallbiznis/buildingbills/internal/statement/domain"
	"github.com/smallbiznis/buildingbills/pkg/money"
	"gorm.io/gorm"
)

const (
	sourceLive     = "live"
	sourceSnapshot = "snapshot"
)

type ledgerRow struct {
	OpeningDue decimal.Decimal
	NewCharges decimal.Decimal
	PaidAmount decimal.Decimal
	ClosingDue decimal.Decimal
	Status     statementdomain.Status
}

func (s *Service) Checklist(ctx context.Context, id snowflake.ID) (domain.Checklist, error) {
	cycle, err := s.Get(ctx, id)
	if err != nil {
		return domain.Checklist{}, err
	}
	return s.buildChecklist(ctx, s.db, cycle)
}

func (s *Service) buildChecklist(ctx context.Context, tx *gorm.DB, cycle domain.BillingCycle) (domain.Checklist, error) {
	commonCount, err := countWhere(ctx, tx, &chargedomain.CommonCharge{}, "cycle_id = ?", cycle.ID)
	if err != nil {
		return domain.Checklist{}, err
	}
	activeUnits, err := countWhere(ctx, tx, &referencedomain.Unit{}, "is_active = ?", true)
	if err != nil {
		return domain.Checklist{}, err
	}
	snapshotCount, err := countWhere(ctx, tx, &snapshotdomain.StatementSnapshot{}, "cycle_id = ?", cycle.ID)
	if err != nil {
		return domain.Checklist{}, err
	}
	rows, err := liveRows(ctx, tx, cycle.ID)
	if err != nil {
		return domain.Checklist{}, err
	}
	covered, err := coveredActiveUnits(ctx, tx, cycle.ID)
	if err != nil {
		return domain.Checklist{}, err
	}

	unbalanced := 0
	for _, row := range rows {
		if !money.Balanced(row.OpeningDue, row.NewCharges, row.PaidAmount, row.ClosingDue) {
			unbalanced++
		}
	}
	statementCount := int64(len(rows))
	stale := statementCount - covered
	staged := cycle.Status == domain.StatusPublished || cycle.Status == domain.StatusLocked

	items := []domain.ChecklistItem{
		{
			Key:    domain.CheckCycleStage,
			Label:  "Cycle is published",
			Passed: staged,
			Detail: string(cycle.Status),
			Gating: true,
		},
		{
			Key:    domain.CheckCommonCharges,
			Label:  "Common charges added",
			Passed: commonCount > 0,
			Detail: fmt.Sprintf("%d common charges", commonCount),
			Gating: true,
		},
		{
			Key:    domain.CheckStatementsCover,
			Label:  "Statements cover all active units",
			Passed: activeUnits > 0 && covered == activeUnits && stale == 0,
			Detail: fmt.Sprintf("%d of %d active units, %d for inactive units", covered, activeUnits, stale),
			Gating: true,
		},
		{
			Key:    domain.CheckFormulaBalanced,
			Label:  "Opening + new - paid = closing",
			Passed: statementCount > 0 && unbalanced == 0,
			Detail: fmt.Sprintf("%d unbalanced statements", unbalanced),
			Gating: true,
		},
		{
			Key:    domain.CheckSnapshotsCreated,
			Label:  "Snapshot created",
			Passed: snapshotCount > 0,
			Detail: fmt.Sprintf("%d snapshots", snapshotCount),
		},
	}

	checklist := domain.Checklist{CycleID: cycle.ID, Status: cycle.Status, Items: items}
	checklist.ReadyToLock = cycle.Status == domain.StatusPublished && len(checklist.Failed()) == 0
	return checklist, nil
}

// Summary reads frozen snapshots for locked cycles and live statements
// otherwise.
func (s *Service) Summary(ctx context.Context, id snowflake.ID) (domain.Summary, error) {
	cycle, err := s.Get(ctx, id)
	if err != nil {
		return domain.Summary{}, err
	}

	summary := domain.Summary{
		CycleID: cycle.ID,
		Period:  cycle.Period,
		Status:  cycle.Status,
		Source:  sourceLive,
	}

	var rows []ledgerRow
	if cycle.IsLocked() {
		summary.Source = sourceSnapshot
		rows, err = snapshotRows(ctx, s.db, cycle.ID)
	} else {
		rows, err = liveRows(ctx, s.db, cycle.ID)
	}
	if err != nil {
		return domain.Summary{}, err
	}

	if summary.ActiveUnits, err = countWhere(ctx, s.db, &referencedomain.Unit{}, "is_active = ?", true); err != nil {
		return domain.Summary{}, err
	}
	if summary.CommonChargeCount, err = countWhere(ctx, s.db, &chargedomain.CommonCharge{}, "cycle_id = ?", cycle.ID); err != nil {
		return domain.Summary{}, err
	}
	if summary.IndividualChargeCount, err = countWhere(ctx, s.db, &chargedomain.IndividualCharge{}, "cycle_id = ?", cycle.ID); err != nil {
		return domain.Summary{}, err
	}
	if summary.PaymentCount, err = countWhere(ctx, s.db, &paymentdomain.Payment{}, "cycle_id = ?", cycle.ID); err != nil {
		return domain.Summary{}, err
	}

	totals := domain.Totals{
		OpeningDue: decimal.Zero,
		NewCharges: decimal.Zero,
		PaidAmount: decimal.Zero,
		ClosingDue: decimal.Zero,
	}
	outstanding := decimal.Zero
	credit := decimal.Zero
	for _, row := range rows {
		summary.Counts.Total++
		switch row.Status {
		case statementdomain.StatusPaid:
			summary.Counts.Paid++
		case statementdomain.StatusPartial:
			summary.Counts.Partial++
		default:
			summary.Counts.Due++
		}

		totals.OpeningDue = totals.OpeningDue.Add(row.OpeningDue)
		totals.NewCharges = totals.NewCharges.Add(row.NewCharges)
		totals.PaidAmount = totals.PaidAmount.Add(row.PaidAmount)
		totals.ClosingDue = totals.ClosingDue.Add(row.ClosingDue)
		if money.Positive(row.ClosingDue) {
			outstanding = outstanding.Add(row.ClosingDue)
		} else {
			credit = credit.Add(row.ClosingDue.Abs())
		}
	}

	summary.Totals = totals
	summary.OutstandingDue = outstanding
	summary.CreditBalance = credit
	summary.FormulaCheck = money.Drift(totals.OpeningDue, totals.NewCharges, totals.PaidAmount, totals.ClosingDue)
	return summary, nil
}

func countWhere(ctx context.Context, db *gorm.DB, model any, query string, args ...any) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Model(model).Where(query, args...).Count(&count).Error
	return count, err
}

// coveredActiveUnits counts the cycle's statements whose unit is still
// active. Statements left behind by deactivated units are not counted.
func coveredActiveUnits(ctx context.Context, db *gorm.DB, cycleID snowflake.ID) (int64, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&statementdomain.Statement{}).
		Joins("JOIN units ON units.id = statements.unit_id").
		Where("statements.cycle_id = ? AND units.is_active = ?", cycleID, true).
		Count(&count).Error
	return count, err
}

func liveRows(ctx context.Context, db *gorm.DB, cycleID snowflake.ID) ([]ledgerRow, error) {
	var rows []ledgerRow
	err := db.WithContext(ctx).
		Model(&statementdomain.Statement{}).
		Select("opening_due, new_charges, paid_amount, closing_due, status").
		Where("cycle_id = ?", cycleID).
		Scan(&rows).Error
	return rows, err
}

func snapshotRows(ctx context.Context, db *gorm.DB, cycleID snowflake.ID) ([]ledgerRow, error) {
	var rows []ledgerRow
	err := db.WithContext(ctx).
		Model(&snapshotdomain.StatementSnapshot{}).
		Select("opening_due, new_charges, paid_amount, closing_due, status").
		Where("cycle_id = ?", cycleID).
		Scan(&rows).Error
	return rows, err
}
