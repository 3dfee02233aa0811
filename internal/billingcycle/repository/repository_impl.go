package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/buildingbills/internal/billingcycle/domain"
	"github.com/smallbiznis/buildingbills/internal/billingcycle/guard"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, cycle *domain.BillingCycle) error {
	return db.WithContext(ctx).Create(cycle).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.BillingCycle, error) {
	var cycle domain.BillingCycle
	err := db.WithContext(ctx).Where("id = ?", id).Take(&cycle).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &cycle, nil
}

func (r *repo) FindByPeriod(ctx context.Context, db *gorm.DB, period string) (*domain.BillingCycle, error) {
	var cycle domain.BillingCycle
	err := db.WithContext(ctx).Where("period = ?", period).Take(&cycle).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &cycle, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, status domain.Status) ([]domain.BillingCycle, error) {
	var cycles []domain.BillingCycle
	stmt := db.WithContext(ctx).Model(&domain.BillingCycle{})
	if status != "" {
		stmt = stmt.Where("status = ?", status)
	}
	if err := stmt.Order("period desc").Find(&cycles).Error; err != nil {
		return nil, err
	}
	return cycles, nil
}

func (r *repo) CompareAndSwap(ctx context.Context, db *gorm.DB, cycle domain.BillingCycle, expected domain.Status, expectedVersion int64) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE billing_cycles
		SET status = ?, published_at = ?, locked_at = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND status = ? AND version = ?`,
		cycle.Status,
		cycle.PublishedAt,
		cycle.LockedAt,
		cycle.UpdatedAt,
		cycle.ID,
		expected,
		expectedVersion,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repo) Claim(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.BillingCycle, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE billing_cycles SET version = version + 1 WHERE id = ? AND status <> ?`,
		id,
		domain.StatusLocked,
	)
	if res.Error != nil {
		return nil, res.Error
	}

	cycle, err := r.FindByID(ctx, db, id)
	if err != nil {
		return nil, err
	}
	if cycle == nil {
		return nil, domain.ErrNotFound
	}
	if res.RowsAffected == 0 {
		return nil, guard.EnsureMutable(cycle.Status)
	}
	return cycle, nil
}
