package repository

import (
	"context"

	"github.com/smallbiznis/buildingbills/pkg/db/option"
	"gorm.io/gorm"
)

// Repository is a thin generic store for reference tables without
// invariants of their own. Zero-valued fields in the query struct are
// ignored by gorm, so boolean filters go through option.WithWhere.
type Repository[T any] interface {
	WithTrx(tx *gorm.DB) Repository[T]
	Find(ctx context.Context, query *T, opts ...option.QueryOption) ([]*T, error)
	FindOne(ctx context.Context, query *T, opts ...option.QueryOption) (*T, error)
	Create(ctx context.Context, resource *T) error
	Update(ctx context.Context, resourceID int64, fields map[string]any) (int64, error)
	Count(ctx context.Context, query *T, opts ...option.QueryOption) (int64, error)
}
