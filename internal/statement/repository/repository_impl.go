package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/buildingbills/internal/statement/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const upsertBatchSize = 200

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

// Upsert replaces the computed columns of an existing (cycle, unit) row and
// keeps its id.
func (r *repo) Upsert(ctx context.Context, db *gorm.DB, statements []domain.Statement) error {
	if len(statements) == 0 {
		return nil
	}
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "cycle_id"}, {Name: "unit_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"opening_due",
				"new_charges",
				"paid_amount",
				"closing_due",
				"status",
				"line_items",
				"updated_at",
			}),
		}).
		CreateInBatches(statements, upsertBatchSize).Error
}

func (r *repo) DeleteOthers(ctx context.Context, db *gorm.DB, cycleID snowflake.ID, keep []snowflake.ID) (int64, error) {
	stmt := db.WithContext(ctx).Where("cycle_id = ?", cycleID)
	if len(keep) > 0 {
		stmt = stmt.Where("unit_id NOT IN ?", keep)
	}
	res := stmt.Delete(&domain.Statement{})
	return res.RowsAffected, res.Error
}

func (r *repo) ListByCycle(ctx context.Context, db *gorm.DB, cycleID snowflake.ID) ([]domain.Statement, error) {
	var rows []domain.Statement
	err := db.WithContext(ctx).
		Where("cycle_id = ?", cycleID).
		Order("unit_id asc").
		Find(&rows).Error
	return rows, err
}

func (r *repo) FindByCycleUnit(ctx context.Context, db *gorm.DB, cycleID, unitID snowflake.ID) (*domain.Statement, error) {
	var row domain.Statement
	err := db.WithContext(ctx).
		Where("cycle_id = ? AND unit_id = ?", cycleID, unitID).
		Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}
