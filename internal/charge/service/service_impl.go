package service

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/buildingbills/internal/audit/domain"
	billingcycledomain "github.com/smallbiznis/buildingbills/internal/billingcycle/domain"
	"github.com/smallbiznis/buildingbills/internal/charge/domain"
	"github.com/smallbiznis/buildingbills/internal/clock"
	"github.com/smallbiznis/buildingbills/internal/observability/metrics"
	referencedomain "github.com/smallbiznis/buildingbills/internal/reference/domain"
	"github.com/smallbiznis/buildingbills/pkg/money"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	AuditSvc  auditdomain.Service
	CycleRepo billingcycledomain.Repository
	Metrics   *metrics.Metrics `optional:"true"`
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	clock     clock.Clock
	auditSvc  auditdomain.Service
	cycleRepo billingcycledomain.Repository
	metrics   *metrics.Metrics
}

func NewService(p Params) domain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("charge.service"),
		genID:     p.GenID,
		clock:     p.Clock,
		auditSvc:  p.AuditSvc,
		cycleRepo: p.CycleRepo,
		metrics:   p.Metrics,
	}
}

func (s *Service) UpsertCommon(ctx context.Context, req domain.UpsertCommonRequest) (domain.CommonCharge, error) {
	if req.CategoryID == 0 {
		return domain.CommonCharge{}, domain.ErrInvalidCategory
	}
	total := money.Round(req.TotalAmount)
	if !money.Positive(total) {
		return domain.CommonCharge{}, domain.ErrInvalidAmount
	}

	var saved domain.CommonCharge
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cycle, err := s.cycleRepo.Claim(ctx, tx, req.CycleID)
		if err != nil {
			return err
		}
		if err := ensureCategory(ctx, tx, req.CategoryID, referencedomain.KindCommon); err != nil {
			return err
		}

		var existing domain.CommonCharge
		action := auditdomain.ActionUpdate
		if err := tx.WithContext(ctx).
			Where("cycle_id = ? AND category_id = ?", cycle.ID, req.CategoryID).
			Take(&existing).Error; err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			action = auditdomain.ActionCreate
		}

		now := s.clock.Now()
		charge := domain.CommonCharge{
			ID:          s.genID.Generate(),
			CycleID:     cycle.ID,
			CategoryID:  req.CategoryID,
			TotalAmount: total,
			Notes:       req.Notes,
			CreatedBy:   req.ActorID,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := tx.WithContext(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "cycle_id"}, {Name: "category_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"total_amount", "notes", "updated_at"}),
		}).Create(&charge).Error; err != nil {
			return err
		}

		if err := tx.WithContext(ctx).
			Where("cycle_id = ? AND category_id = ?", cycle.ID, req.CategoryID).
			Take(&saved).Error; err != nil {
			return err
		}

		return s.auditSvc.Record(ctx, tx, auditdomain.RecordInput{
			Table:    saved.TableName(),
			RecordID: saved.ID.String(),
			Action:   action,
			ActorID:  req.ActorID,
			CycleID:  &cycle.ID,
			Metadata: map[string]any{
				"category_id":  req.CategoryID.String(),
				"total_amount": total.StringFixed(money.Precision),
			},
		})
	})
	if err != nil {
		return domain.CommonCharge{}, err
	}

	s.metrics.RecordChargeMutation(ctx, string(referencedomain.KindCommon), "upsert")
	return saved, nil
}

func (s *Service) DeleteCommon(ctx context.Context, cycleID, chargeID snowflake.ID, actorID string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.cycleRepo.Claim(ctx, tx, cycleID); err != nil {
			return err
		}
		res := tx.WithContext(ctx).
			Where("id = ? AND cycle_id = ?", chargeID, cycleID).
			Delete(&domain.CommonCharge{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.ErrNotFound
		}
		return s.auditSvc.Record(ctx, tx, auditdomain.RecordInput{
			Table:    domain.CommonCharge{}.TableName(),
			RecordID: chargeID.String(),
			Action:   auditdomain.ActionDelete,
			ActorID:  actorID,
			CycleID:  &cycleID,
		})
	})
	if err != nil {
		return err
	}
	s.metrics.RecordChargeMutation(ctx, string(referencedomain.KindCommon), "delete")
	return nil
}

func (s *Service) ListCommon(ctx context.Context, cycleID snowflake.ID) ([]domain.CommonChargeView, error) {
	if err := s.ensureCycle(ctx, cycleID); err != nil {
		return nil, err
	}
	var rows []domain.CommonChargeView
	err := s.db.WithContext(ctx).
		Table("common_charges AS cc").
		Select("cc.*, cat.name AS category_name").
		Joins("JOIN charge_categories AS cat ON cat.id = cc.category_id").
		Where("cc.cycle_id = ?", cycleID).
		Order("cat.name asc").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []domain.CommonChargeView{}
	}
	return rows, nil
}

// SaveIndividual applies a batch of grid cells in one transaction. A cell
// with amount 0 deletes the (cycle, unit, category) row if present.
func (s *Service) SaveIndividual(ctx context.Context, req domain.SaveIndividualRequest) (domain.SaveIndividualResult, error) {
	if len(req.Cells) == 0 {
		return domain.SaveIndividualResult{}, domain.ErrInvalidCells
	}
	for _, cell := range req.Cells {
		if cell.UnitID == 0 {
			return domain.SaveIndividualResult{}, domain.ErrInvalidUnit
		}
		if cell.CategoryID == 0 {
			return domain.SaveIndividualResult{}, domain.ErrInvalidCategory
		}
		if cell.Amount.IsNegative() {
			return domain.SaveIndividualResult{}, domain.ErrInvalidAmount
		}
	}

	var result domain.SaveIndividualResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cycle, err := s.cycleRepo.Claim(ctx, tx, req.CycleID)
		if err != nil {
			return err
		}

		checkedCategories := map[snowflake.ID]struct{}{}
		checkedUnits := map[snowflake.ID]struct{}{}
		now := s.clock.Now()

		for _, cell := range req.Cells {
			if _, ok := checkedUnits[cell.UnitID]; !ok {
				if err := ensureActiveUnit(ctx, tx, cell.UnitID); err != nil {
					return err
				}
				checkedUnits[cell.UnitID] = struct{}{}
			}
			if _, ok := checkedCategories[cell.CategoryID]; !ok {
				if err := ensureCategory(ctx, tx, cell.CategoryID, referencedomain.KindIndividual); err != nil {
					return err
				}
				checkedCategories[cell.CategoryID] = struct{}{}
			}

			amount := money.Round(cell.Amount)
			existing, err := findIndividual(ctx, tx, cycle.ID, cell.UnitID, cell.CategoryID)
			if err != nil {
				return err
			}

			if amount.IsZero() {
				if existing == nil {
					continue
				}
				if err := tx.WithContext(ctx).Delete(&domain.IndividualCharge{}, "id = ?", existing.ID).Error; err != nil {
					return err
				}
				result.Deleted++
				if err := s.recordCell(ctx, tx, req.ActorID, *existing, auditdomain.ActionDelete); err != nil {
					return err
				}
				continue
			}

			if existing != nil {
				if err := tx.WithContext(ctx).Model(existing).Updates(map[string]any{
					"amount":     amount,
					"updated_at": now,
				}).Error; err != nil {
					return err
				}
				existing.Amount = amount
				result.Upserted++
				if err := s.recordCell(ctx, tx, req.ActorID, *existing, auditdomain.ActionUpdate); err != nil {
					return err
				}
				continue
			}

			charge := domain.IndividualCharge{
				ID:         s.genID.Generate(),
				CycleID:    cycle.ID,
				UnitID:     cell.UnitID,
				CategoryID: cell.CategoryID,
				Amount:     amount,
				CreatedBy:  req.ActorID,
				CreatedAt:  now,
				UpdatedAt:  now,
			}
			if err := tx.WithContext(ctx).Create(&charge).Error; err != nil {
				return err
			}
			result.Upserted++
			if err := s.recordCell(ctx, tx, req.ActorID, charge, auditdomain.ActionCreate); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return domain.SaveIndividualResult{}, err
	}

	s.metrics.RecordChargeMutation(ctx, string(referencedomain.KindIndividual), "save")
	return result, nil
}

// recordCell writes one audit entry per changed grid cell, keyed by the
// individual_charges row id.
func (s *Service) recordCell(ctx context.Context, tx *gorm.DB, actorID string, charge domain.IndividualCharge, action auditdomain.Action) error {
	return s.auditSvc.Record(ctx, tx, auditdomain.RecordInput{
		Table:    charge.TableName(),
		RecordID: charge.ID.String(),
		Action:   action,
		ActorID:  actorID,
		CycleID:  &charge.CycleID,
		Metadata: map[string]any{
			"unit_id":     charge.UnitID.String(),
			"category_id": charge.CategoryID.String(),
			"amount":      charge.Amount.StringFixed(money.Precision),
		},
	})
}

func findIndividual(ctx context.Context, tx *gorm.DB, cycleID, unitID, categoryID snowflake.ID) (*domain.IndividualCharge, error) {
	var charge domain.IndividualCharge
	err := tx.WithContext(ctx).
		Where("cycle_id = ? AND unit_id = ? AND category_id = ?", cycleID, unitID, categoryID).
		Take(&charge).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &charge, nil
}

func (s *Service) ListIndividual(ctx context.Context, cycleID snowflake.ID) ([]domain.IndividualChargeView, error) {
	if err := s.ensureCycle(ctx, cycleID); err != nil {
		return nil, err
	}
	var rows []domain.IndividualChargeView
	err := s.db.WithContext(ctx).
		Table("individual_charges AS ic").
		Select("ic.*, cat.name AS category_name, u.unit_code AS unit_code").
		Joins("JOIN charge_categories AS cat ON cat.id = ic.category_id").
		Joins("JOIN units AS u ON u.id = ic.unit_id").
		Where("ic.cycle_id = ?", cycleID).
		Order("u.unit_code asc, cat.name asc").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []domain.IndividualChargeView{}
	}
	return rows, nil
}

func (s *Service) ensureCycle(ctx context.Context, cycleID snowflake.ID) error {
	cycle, err := s.cycleRepo.FindByID(ctx, s.db, cycleID)
	if err != nil {
		return err
	}
	if cycle == nil {
		return billingcycledomain.ErrNotFound
	}
	return nil
}

func ensureCategory(ctx context.Context, tx *gorm.DB, id snowflake.ID, kind referencedomain.ChargeKind) error {
	var category referencedomain.Category
	err := tx.WithContext(ctx).Where("id = ?", id).Take(&category).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrInvalidCategory
		}
		return err
	}
	if category.Kind != kind || !category.IsActive {
		return domain.ErrInvalidCategory
	}
	return nil
}

func ensureActiveUnit(ctx context.Context, tx *gorm.DB, id snowflake.ID) error {
	var unit referencedomain.Unit
	err := tx.WithContext(ctx).Where("id = ?", id).Take(&unit).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrInvalidUnit
		}
		return err
	}
	if !unit.IsActive {
		return domain.ErrInvalidUnit
	}
	return nil
}
