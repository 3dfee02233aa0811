package service

import (
	"context"
	"net/mail"
	"sort"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	auditdomain "github.com/smallbiznis/buildingbills/internal/audit/domain"
	"github.com/smallbiznis/buildingbills/internal/clock"
	"github.com/smallbiznis/buildingbills/internal/reference/domain"
	"github.com/smallbiznis/buildingbills/pkg/db"
	"github.com/smallbiznis/buildingbills/pkg/db/option"
	"github.com/smallbiznis/buildingbills/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	AuditSvc auditdomain.Service
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	auditSvc auditdomain.Service

	units      repository.Repository[domain.Unit]
	categories repository.Repository[domain.Category]
}

func NewService(p Params) domain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("reference.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		auditSvc:   p.AuditSvc,
		units:      repository.ProvideStore[domain.Unit](p.DB),
		categories: repository.ProvideStore[domain.Category](p.DB),
	}
}

func (s *Service) CreateUnit(ctx context.Context, req domain.CreateUnitRequest) (domain.Unit, error) {
	code := normalizeUnitCode(req.Code)
	if code == "" {
		return domain.Unit{}, domain.ErrInvalidUnitCode
	}
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return domain.Unit{}, err
	}

	now := s.clock.Now()
	unit := domain.Unit{
		ID:        s.genID.Generate(),
		Code:      code,
		Email:     email,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.units.WithTrx(tx).Create(ctx, &unit); err != nil {
			if db.IsDuplicateKeyErr(err) {
				return domain.ErrUnitExists
			}
			return err
		}
		return s.auditSvc.Record(ctx, tx, auditdomain.RecordInput{
			Table:    unit.TableName(),
			RecordID: unit.ID.String(),
			Action:   auditdomain.ActionCreate,
			ActorID:  req.ActorID,
			Metadata: map[string]any{"unit_code": unit.Code, "email": unit.Email},
		})
	})
	if err != nil {
		return domain.Unit{}, err
	}
	return unit, nil
}

func (s *Service) UpdateUnit(ctx context.Context, id snowflake.ID, req domain.UpdateUnitRequest) (domain.Unit, error) {
	fields := map[string]any{}
	if req.Code != nil {
		code := normalizeUnitCode(*req.Code)
		if code == "" {
			return domain.Unit{}, domain.ErrInvalidUnitCode
		}
		fields["unit_code"] = code
	}
	if req.Email != nil {
		email, err := normalizeEmail(*req.Email)
		if err != nil {
			return domain.Unit{}, err
		}
		fields["email"] = email
	}
	if len(fields) == 0 {
		return s.GetUnit(ctx, id)
	}
	fields["updated_at"] = s.clock.Now()

	return s.updateUnit(ctx, id, fields, auditdomain.ActionUpdate, req.ActorID)
}

func (s *Service) SetUnitActive(ctx context.Context, id snowflake.ID, active bool, actorID string) (domain.Unit, error) {
	action := auditdomain.ActionDeactivate
	if active {
		action = auditdomain.ActionActivate
	}
	return s.updateUnit(ctx, id, map[string]any{
		"is_active":  active,
		"updated_at": s.clock.Now(),
	}, action, actorID)
}

func (s *Service) updateUnit(ctx context.Context, id snowflake.ID, fields map[string]any, action auditdomain.Action, actorID string) (domain.Unit, error) {
	var updated domain.Unit
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		store := s.units.WithTrx(tx)
		rows, err := store.Update(ctx, id.Int64(), fields)
		if err != nil {
			if db.IsDuplicateKeyErr(err) {
				return domain.ErrUnitExists
			}
			return err
		}
		if rows == 0 {
			return domain.ErrUnitNotFound
		}
		unit, err := store.FindOne(ctx, &domain.Unit{ID: id})
		if err != nil {
			return err
		}
		if unit == nil {
			return domain.ErrUnitNotFound
		}
		updated = *unit

		metadata := map[string]any{}
		for key, value := range fields {
			if key != "updated_at" {
				metadata[key] = value
			}
		}
		return s.auditSvc.Record(ctx, tx, auditdomain.RecordInput{
			Table:    updated.TableName(),
			RecordID: id.String(),
			Action:   action,
			ActorID:  actorID,
			Metadata: metadata,
		})
	})
	if err != nil {
		return domain.Unit{}, err
	}
	return updated, nil
}

func (s *Service) GetUnit(ctx context.Context, id snowflake.ID) (domain.Unit, error) {
	unit, err := s.units.FindOne(ctx, &domain.Unit{ID: id})
	if err != nil {
		return domain.Unit{}, err
	}
	if unit == nil {
		return domain.Unit{}, domain.ErrUnitNotFound
	}
	return *unit, nil
}

func (s *Service) ListUnits(ctx context.Context, req domain.ListUnitsRequest) ([]domain.Unit, error) {
	opts := []option.QueryOption{option.ApplyOrder("unit_code asc")}
	if req.ActiveOnly {
		opts = append(opts, option.WithWhere("is_active = ?", true))
	}
	items, err := s.units.Find(ctx, nil, opts...)
	if err != nil {
		return nil, err
	}

	units := make([]domain.Unit, 0, len(items))
	for _, item := range items {
		units = append(units, *item)
	}
	sort.SliceStable(units, func(i, j int) bool {
		return domain.CompareUnitCodes(units[i].Code, units[j].Code) < 0
	})
	return units, nil
}

func (s *Service) CreateCategory(ctx context.Context, req domain.CreateCategoryRequest) (domain.Category, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Category{}, domain.ErrInvalidName
	}
	kind := domain.ChargeKind(strings.ToLower(strings.TrimSpace(string(req.Kind))))
	if !kind.Valid() {
		return domain.Category{}, domain.ErrInvalidKind
	}

	now := s.clock.Now()
	category := domain.Category{
		ID:        s.genID.Generate(),
		Name:      name,
		Slug:      slug.Make(string(kind) + " " + name),
		Kind:      kind,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.categories.WithTrx(tx).Create(ctx, &category); err != nil {
			if db.IsDuplicateKeyErr(err) {
				return domain.ErrCategoryExists
			}
			return err
		}
		return s.auditSvc.Record(ctx, tx, auditdomain.RecordInput{
			Table:    category.TableName(),
			RecordID: category.ID.String(),
			Action:   auditdomain.ActionCreate,
			ActorID:  req.ActorID,
			Metadata: map[string]any{"name": category.Name, "kind": string(category.Kind)},
		})
	})
	if err != nil {
		return domain.Category{}, err
	}
	return category, nil
}

// RenameCategory changes the display name only. The slug stays stable so
// links and existing charges keep pointing at the same category.
func (s *Service) RenameCategory(ctx context.Context, id snowflake.ID, name string, actorID string) (domain.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Category{}, domain.ErrInvalidName
	}
	return s.updateCategory(ctx, id, map[string]any{
		"name":       name,
		"updated_at": s.clock.Now(),
	}, auditdomain.ActionUpdate, actorID)
}

func (s *Service) SetCategoryActive(ctx context.Context, id snowflake.ID, active bool, actorID string) (domain.Category, error) {
	action := auditdomain.ActionDeactivate
	if active {
		action = auditdomain.ActionActivate
	}
	return s.updateCategory(ctx, id, map[string]any{
		"is_active":  active,
		"updated_at": s.clock.Now(),
	}, action, actorID)
}

func (s *Service) updateCategory(ctx context.Context, id snowflake.ID, fields map[string]any, action auditdomain.Action, actorID string) (domain.Category, error) {
	var updated domain.Category
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		store := s.categories.WithTrx(tx)
		rows, err := store.Update(ctx, id.Int64(), fields)
		if err != nil {
			return err
		}
		if rows == 0 {
			return domain.ErrCategoryNotFound
		}
		category, err := store.FindOne(ctx, &domain.Category{ID: id})
		if err != nil {
			return err
		}
		if category == nil {
			return domain.ErrCategoryNotFound
		}
		updated = *category

		metadata := map[string]any{}
		for key, value := range fields {
			if key != "updated_at" {
				metadata[key] = value
			}
		}
		return s.auditSvc.Record(ctx, tx, auditdomain.RecordInput{
			Table:    updated.TableName(),
			RecordID: id.String(),
			Action:   action,
			ActorID:  actorID,
			Metadata: metadata,
		})
	})
	if err != nil {
		return domain.Category{}, err
	}
	return updated, nil
}

func (s *Service) GetCategory(ctx context.Context, id snowflake.ID) (domain.Category, error) {
	category, err := s.categories.FindOne(ctx, &domain.Category{ID: id})
	if err != nil {
		return domain.Category{}, err
	}
	if category == nil {
		return domain.Category{}, domain.ErrCategoryNotFound
	}
	return *category, nil
}

func (s *Service) ListCategories(ctx context.Context, req domain.ListCategoriesRequest) ([]domain.Category, error) {
	query := &domain.Category{}
	if req.Kind != "" {
		if !req.Kind.Valid() {
			return nil, domain.ErrInvalidKind
		}
		query.Kind = req.Kind
	}
	opts := []option.QueryOption{option.ApplyOrder("kind asc, name asc")}
	if req.ActiveOnly {
		opts = append(opts, option.WithWhere("is_active = ?", true))
	}

	items, err := s.categories.Find(ctx, query, opts...)
	if err != nil {
		return nil, err
	}
	categories := make([]domain.Category, 0, len(items))
	for _, item := range items {
		categories = append(categories, *item)
	}
	return categories, nil
}

func normalizeUnitCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func normalizeEmail(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	addr, err := mail.ParseAddress(raw)
	if err != nil || addr.Name != "" {
		return "", domain.ErrInvalidEmail
	}
	return strings.ToLower(addr.Address), nil
}
