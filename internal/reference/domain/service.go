package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type CreateUnitRequest struct {
	Code    string `json:"unit_code"`
	Email   string `json:"email"`
	ActorID string `json:"-"`
}

type UpdateUnitRequest struct {
	Code    *string `json:"unit_code"`
	Email   *string `json:"email"`
	ActorID string  `json:"-"`
}

type CreateCategoryRequest struct {
	Name    string     `json:"name"`
	Kind    ChargeKind `json:"kind"`
	ActorID string     `json:"-"`
}

type ListUnitsRequest struct {
	ActiveOnly bool `form:"active_only"`
}

type ListCategoriesRequest struct {
	Kind       ChargeKind `form:"kind"`
	ActiveOnly bool       `form:"active_only"`
}

type Service interface {
	CreateUnit(ctx context.Context, req CreateUnitRequest) (Unit, error)
	UpdateUnit(ctx context.Context, id snowflake.ID, req UpdateUnitRequest) (Unit, error)
	SetUnitActive(ctx context.Context, id snowflake.ID, active bool, actorID string) (Unit, error)
	GetUnit(ctx context.Context, id snowflake.ID) (Unit, error)
	ListUnits(ctx context.Context, req ListUnitsRequest) ([]Unit, error)

	CreateCategory(ctx context.Context, req CreateCategoryRequest) (Category, error)
	RenameCategory(ctx context.Context, id snowflake.ID, name string, actorID string) (Category, error)
	SetCategoryActive(ctx context.Context, id snowflake.ID, active bool, actorID string) (Category, error)
	GetCategory(ctx context.Context, id snowflake.ID) (Category, error)
	ListCategories(ctx context.Context, req ListCategoriesRequest) ([]Category, error)
}

var (
	ErrInvalidUnitCode  = errors.New("invalid_unit_code")
	ErrInvalidEmail     = errors.New("invalid_email")
	ErrInvalidName      = errors.New("invalid_name")
	ErrInvalidKind      = errors.New("invalid_kind")
	ErrUnitExists       = errors.New("unit_exists")
	ErrCategoryExists   = errors.New("category_exists")
	ErrUnitNotFound     = errors.New("unit_not_found")
	ErrCategoryNotFound = errors.New("category_not_found")
)
