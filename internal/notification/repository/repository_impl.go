package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/buildingbills/internal/notification/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertBatch(ctx context.Context, db *gorm.DB, records []domain.Record) error {
	if len(records) == 0 {
		return nil
	}
	return db.WithContext(ctx).CreateInBatches(records, 200).Error
}

// List returns records of a cycle newest first, strictly older than
// beforeID when it is set.
func (r *repo) List(ctx context.Context, db *gorm.DB, cycleID snowflake.ID, beforeID snowflake.ID, limit int) ([]domain.Record, error) {
	stmt := db.WithContext(ctx).Where("cycle_id = ?", cycleID)
	if beforeID != 0 {
		stmt = stmt.Where("id < ?", beforeID)
	}
	var records []domain.Record
	err := stmt.Order("id desc").Limit(limit + 1).Find(&records).Error
	return records, err
}
