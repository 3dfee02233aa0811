package service

import (
	"context"
	"sort"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/buildingbills/internal/authorization"
	billingcycledomain "github.com/smallbiznis/buildingbills/internal/billingcycle/domain"
	"github.com/smallbiznis/buildingbills/internal/clock"
	paymentdomain "github.com/smallbiznis/buildingbills/internal/payment/domain"
	referencedomain "github.com/smallbiznis/buildingbills/internal/reference/domain"
	snapshotdomain "github.com/smallbiznis/buildingbills/internal/snapshot/domain"
	"github.com/smallbiznis/buildingbills/internal/statement/aggregator"
	"github.com/smallbiznis/buildingbills/internal/statement/calculator"
	"github.com/smallbiznis/buildingbills/internal/statement/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	GenID        *snowflake.Node
	Clock        clock.Clock
	Repo         domain.Repository
	CycleRepo    billingcycledomain.Repository
	SnapshotRepo snapshotdomain.Repository
	Authz        authorization.Service
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	genID        *snowflake.Node
	clock        clock.Clock
	repo         domain.Repository
	cycleRepo    billingcycledomain.Repository
	snapshotRepo snapshotdomain.Repository
	authz        authorization.Service
}

func NewService(p Params) domain.Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("statement.service"),
		genID:        p.GenID,
		clock:        p.Clock,
		repo:         p.Repo,
		cycleRepo:    p.CycleRepo,
		snapshotRepo: p.SnapshotRepo,
		authz:        p.Authz,
	}
}

type commonRow struct {
	CategoryID   snowflake.ID
	CategoryName string
	TotalAmount  decimal.Decimal
}

type individualRow struct {
	UnitID       snowflake.ID
	CategoryID   snowflake.ID
	CategoryName string
	Amount       decimal.Decimal
}

type paymentRow struct {
	UnitID snowflake.ID
	Amount decimal.Decimal
}

func (s *Service) Compute(ctx context.Context, tx *gorm.DB, cycle billingcycledomain.BillingCycle) (int, error) {
	var units []referencedomain.Unit
	if err := tx.WithContext(ctx).
		Where("is_active = ?", true).
		Order("unit_code asc").
		Find(&units).Error; err != nil {
		return 0, err
	}

	var commons []commonRow
	if err := tx.WithContext(ctx).
		Table("common_charges AS cc").
		Select("cc.category_id, c.name AS category_name, cc.total_amount").
		Joins("JOIN charge_categories AS c ON c.id = cc.category_id").
		Where("cc.cycle_id = ?", cycle.ID).
		Order("cc.id asc").
		Scan(&commons).Error; err != nil {
		return 0, err
	}

	var individuals []individualRow
	if err := tx.WithContext(ctx).
		Table("individual_charges AS ic").
		Select("ic.unit_id, ic.category_id, c.name AS category_name, ic.amount").
		Joins("JOIN charge_categories AS c ON c.id = ic.category_id").
		Where("ic.cycle_id = ?", cycle.ID).
		Order("ic.id asc").
		Scan(&individuals).Error; err != nil {
		return 0, err
	}

	var payments []paymentRow
	if err := tx.WithContext(ctx).
		Model(&paymentdomain.Payment{}).
		Select("unit_id, amount").
		Where("cycle_id = ?", cycle.ID).
		Scan(&payments).Error; err != nil {
		return 0, err
	}

	opening, err := s.carriedForward(ctx, tx, cycle.Period)
	if err != nil {
		return 0, err
	}

	aggUnits := make([]aggregator.Unit, 0, len(units))
	for _, u := range units {
		aggUnits = append(aggUnits, aggregator.Unit{ID: u.ID, Code: u.Code})
	}
	aggCommon := make([]aggregator.Common, 0, len(commons))
	for _, c := range commons {
		aggCommon = append(aggCommon, aggregator.Common{
			CategoryID:   c.CategoryID,
			CategoryName: c.CategoryName,
			Total:        c.TotalAmount,
		})
	}
	aggIndividual := make([]aggregator.Individual, 0, len(individuals))
	for _, ic := range individuals {
		aggIndividual = append(aggIndividual, aggregator.Individual{
			UnitID:       ic.UnitID,
			CategoryID:   ic.CategoryID,
			CategoryName: ic.CategoryName,
			Amount:       ic.Amount,
		})
	}
	charges := aggregator.Aggregate(aggUnits, aggCommon, aggIndividual)

	paid := make(map[snowflake.ID][]decimal.Decimal, len(units))
	for _, p := range payments {
		paid[p.UnitID] = append(paid[p.UnitID], p.Amount)
	}

	now := s.clock.Now()
	statements := make([]domain.Statement, 0, len(units))
	keep := make([]snowflake.ID, 0, len(units))
	for _, u := range units {
		agg := charges[u.ID]
		res := calculator.Calculate(calculator.Input{
			OpeningDue: opening[u.ID],
			NewCharges: agg.NewCharges,
			Payments:   paid[u.ID],
		})
		items := agg.LineItems
		if items == nil {
			items = []domain.LineItem{}
		}
		statements = append(statements, domain.Statement{
			ID:         s.genID.Generate(),
			CycleID:    cycle.ID,
			UnitID:     u.ID,
			OpeningDue: res.OpeningDue,
			NewCharges: res.NewCharges,
			PaidAmount: res.PaidAmount,
			ClosingDue: res.ClosingDue,
			Status:     res.Status,
			LineItems:  items,
			CreatedAt:  now,
			UpdatedAt:  now,
		})
		keep = append(keep, u.ID)
	}

	if err := s.repo.Upsert(ctx, tx, statements); err != nil {
		return 0, err
	}
	removed, err := s.repo.DeleteOthers(ctx, tx, cycle.ID, keep)
	if err != nil {
		return 0, err
	}

	s.log.Debug("statements computed",
		zap.String("cycle_id", cycle.ID.String()),
		zap.String("period", cycle.Period),
		zap.Int("written", len(statements)),
		zap.Int64("removed", removed),
	)
	return len(statements), nil
}

// carriedForward returns each unit's closing due of the previous calendar
// month: the frozen snapshot when that cycle is locked, the live statement
// when it is published, nothing otherwise.
func (s *Service) carriedForward(ctx context.Context, db *gorm.DB, period string) (map[snowflake.ID]decimal.Decimal, error) {
	out := map[snowflake.ID]decimal.Decimal{}

	prevPeriod, err := billingcycledomain.PreviousPeriod(period)
	if err != nil {
		return nil, err
	}
	prev, err := s.cycleRepo.FindByPeriod(ctx, db, prevPeriod)
	if err != nil {
		return nil, err
	}
	if prev == nil {
		return out, nil
	}

	switch prev.Status {
	case billingcycledomain.StatusLocked:
		rows, err := s.snapshotRepo.ListByCycle(ctx, db, prev.ID)
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			out[row.UnitID] = row.ClosingDue
		}
	case billingcycledomain.StatusPublished:
		rows, err := s.repo.ListByCycle(ctx, db, prev.ID)
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			out[row.UnitID] = row.ClosingDue
		}
	}
	return out, nil
}

func (s *Service) GetStatement(ctx context.Context, cycleID, unitID snowflake.ID) (domain.StatementView, error) {
	if unitID == 0 {
		return domain.StatementView{}, domain.ErrInvalidUnit
	}
	cycle, err := s.loadCycle(ctx, cycleID)
	if err != nil {
		return domain.StatementView{}, err
	}
	return s.statementFor(ctx, cycle, unitID)
}

func (s *Service) GetStatementByPeriod(ctx context.Context, period string, unitID snowflake.ID) (domain.StatementView, error) {
	if unitID == 0 {
		return domain.StatementView{}, domain.ErrInvalidUnit
	}
	start, err := billingcycledomain.ParsePeriod(period)
	if err != nil {
		return domain.StatementView{}, err
	}
	cycle, err := s.cycleRepo.FindByPeriod(ctx, s.db, billingcycledomain.FormatPeriod(start))
	if err != nil {
		return domain.StatementView{}, err
	}
	if cycle == nil {
		return domain.StatementView{}, billingcycledomain.ErrNotFound
	}
	return s.statementFor(ctx, *cycle, unitID)
}

func (s *Service) statementFor(ctx context.Context, cycle billingcycledomain.BillingCycle, unitID snowflake.ID) (domain.StatementView, error) {
	if cycle.IsLocked() {
		snap, err := s.snapshotRepo.Find(ctx, s.db, cycle.ID, unitID)
		if err != nil {
			return domain.StatementView{}, err
		}
		if snap == nil {
			return domain.StatementView{}, domain.ErrNotFound
		}
		return viewFromSnapshot(cycle, *snap), nil
	}

	st, err := s.repo.FindByCycleUnit(ctx, s.db, cycle.ID, unitID)
	if err != nil {
		return domain.StatementView{}, err
	}
	if st == nil {
		return domain.StatementView{}, domain.ErrNotFound
	}
	var unit referencedomain.Unit
	if err := s.db.WithContext(ctx).Where("id = ?", unitID).Take(&unit).Error; err != nil {
		return domain.StatementView{}, err
	}
	return viewFromStatement(cycle, *st, unit.Code), nil
}

func (s *Service) ListStatements(ctx context.Context, cycleID snowflake.ID) ([]domain.StatementView, error) {
	cycle, err := s.loadCycle(ctx, cycleID)
	if err != nil {
		return nil, err
	}
	return s.listViews(ctx, cycle)
}

func (s *Service) listViews(ctx context.Context, cycle billingcycledomain.BillingCycle) ([]domain.StatementView, error) {
	views := []domain.StatementView{}
	if cycle.IsLocked() {
		rows, err := s.snapshotRepo.ListByCycle(ctx, s.db, cycle.ID)
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			views = append(views, viewFromSnapshot(cycle, row))
		}
	} else {
		rows, err := s.repo.ListByCycle(ctx, s.db, cycle.ID)
		if err != nil {
			return nil, err
		}
		codes, err := s.unitCodes(ctx, rows)
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			views = append(views, viewFromStatement(cycle, row, codes[row.UnitID]))
		}
	}

	sort.SliceStable(views, func(i, j int) bool {
		return referencedomain.CompareUnitCodes(views[i].UnitCode, views[j].UnitCode) < 0
	})
	return views, nil
}

// StatusBoard lists paid/partial/due per unit for a published or locked
// cycle. Closing dues are included only for roles allowed to view amounts.
func (s *Service) StatusBoard(ctx context.Context, cycleID snowflake.ID, role string) ([]domain.BoardRow, error) {
	cycle, err := s.loadCycle(ctx, cycleID)
	if err != nil {
		return nil, err
	}
	if cycle.Status == billingcycledomain.StatusDraft {
		return nil, domain.ErrCycleNotPublished
	}

	showAmount, err := s.authz.Can(ctx, role, authorization.ObjectStatement, authorization.ActionStatementViewAmount)
	if err != nil {
		return nil, err
	}

	views, err := s.listViews(ctx, cycle)
	if err != nil {
		return nil, err
	}
	rows := make([]domain.BoardRow, 0, len(views))
	for _, v := range views {
		row := domain.BoardRow{
			UnitID:   v.UnitID,
			UnitCode: v.UnitCode,
			Status:   v.Status,
		}
		if showAmount {
			closing := v.ClosingDue
			row.ClosingDue = &closing
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (s *Service) loadCycle(ctx context.Context, cycleID snowflake.ID) (billingcycledomain.BillingCycle, error) {
	cycle, err := s.cycleRepo.FindByID(ctx, s.db, cycleID)
	if err != nil {
		return billingcycledomain.BillingCycle{}, err
	}
	if cycle == nil {
		return billingcycledomain.BillingCycle{}, billingcycledomain.ErrNotFound
	}
	return *cycle, nil
}

func (s *Service) unitCodes(ctx context.Context, rows []domain.Statement) (map[snowflake.ID]string, error) {
	codes := make(map[snowflake.ID]string, len(rows))
	if len(rows) == 0 {
		return codes, nil
	}
	ids := make([]snowflake.ID, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.UnitID)
	}
	var units []referencedomain.Unit
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&units).Error; err != nil {
		return nil, err
	}
	for _, u := range units {
		codes[u.ID] = u.Code
	}
	return codes, nil
}

func viewFromStatement(cycle billingcycledomain.BillingCycle, st domain.Statement, unitCode string) domain.StatementView {
	return domain.StatementView{
		CycleID:    cycle.ID,
		Period:     cycle.Period,
		UnitID:     st.UnitID,
		UnitCode:   unitCode,
		OpeningDue: st.OpeningDue,
		NewCharges: st.NewCharges,
		PaidAmount: st.PaidAmount,
		ClosingDue: st.ClosingDue,
		Status:     st.Status,
		LineItems:  lineItems(st.LineItems),
		Source:     domain.SourceLive,
	}
}

func viewFromSnapshot(cycle billingcycledomain.BillingCycle, snap snapshotdomain.StatementSnapshot) domain.StatementView {
	return domain.StatementView{
		CycleID:    cycle.ID,
		Period:     cycle.Period,
		UnitID:     snap.UnitID,
		UnitCode:   snap.UnitCode,
		OpeningDue: snap.OpeningDue,
		NewCharges: snap.NewCharges,
		PaidAmount: snap.PaidAmount,
		ClosingDue: snap.ClosingDue,
		Status:     snap.Status,
		LineItems:  lineItems(snap.LineItems),
		Source:     domain.SourceSnapshot,
	}
}

func lineItems(items []domain.LineItem) []domain.LineItem {
	if items == nil {
		return []domain.LineItem{}
	}
	return items
}
