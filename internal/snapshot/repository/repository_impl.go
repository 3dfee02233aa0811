package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/buildingbills/internal/snapshot/domain"
	"gorm.io/gorm"
)

const insertBatchSize = 200

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertBatch(ctx context.Context, db *gorm.DB, rows []domain.StatementSnapshot) error {
	if len(rows) == 0 {
		return nil
	}
	return db.WithContext(ctx).CreateInBatches(rows, insertBatchSize).Error
}

func (r *repo) Count(ctx context.Context, db *gorm.DB, cycleID snowflake.ID) (int64, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&domain.StatementSnapshot{}).
		Where("cycle_id = ?", cycleID).
		Count(&count).Error
	return count, err
}

func (r *repo) Find(ctx context.Context, db *gorm.DB, cycleID, unitID snowflake.ID) (*domain.StatementSnapshot, error) {
	var row domain.StatementSnapshot
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

func (r *repo) ListByCycle(ctx context.Context, db *gorm.DB, cycleID snowflake.ID) ([]domain.StatementSnapshot, error) {
	var rows []domain.StatementSnapshot
	err := db.WithContext(ctx).
		Where("cycle_id = ?", cycleID).
		Order("unit_code asc").
		Find(&rows).Error
	return rows, err
}
