package service

import (
	"context"
	"testing"

	auditdomain "github.com/smallbiznis/buildingbills/internal/audit/domain"
	"github.com/smallbiznis/buildingbills/internal/reference/domain"
	"github.com/smallbiznis/buildingbills/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) (domain.Service, *testutil.Env) {
	t.Helper()
	env := testutil.New(t)
	svc := NewService(Params{
		DB:       env.DB,
		Log:      env.Log,
		GenID:    env.Node,
		Clock:    env.Clock,
		AuditSvc: env.Audit,
	})
	return svc, env
}

func TestCreateUnit(t *testing.T) {
	svc, env := newTestService(t)
	ctx := context.Background()

	unit, err := svc.CreateUnit(ctx, domain.CreateUnitRequest{Code: " a-101 ", Email: "Resident@Example.com", ActorID: testutil.Actor})
	require.NoError(t, err)
	assert.Equal(t, "A-101", unit.Code)
	assert.Equal(t, "resident@example.com", unit.Email)
	assert.True(t, unit.IsActive)

	_, err = svc.CreateUnit(ctx, domain.CreateUnitRequest{Code: "A-101", ActorID: testutil.Actor})
	assert.ErrorIs(t, err, domain.ErrUnitExists)

	_, err = svc.CreateUnit(ctx, domain.CreateUnitRequest{Code: "  "})
	assert.ErrorIs(t, err, domain.ErrInvalidUnitCode)

	_, err = svc.CreateUnit(ctx, domain.CreateUnitRequest{Code: "A-102", Email: "Jo <jo@example.com>"})
	assert.ErrorIs(t, err, domain.ErrInvalidEmail)

	resp, err := env.Audit.List(ctx, auditdomain.ListRequest{Table: "units"})
	require.NoError(t, err)
	require.Len(t, resp.Entries, 1)
	assert.Equal(t, auditdomain.ActionCreate, resp.Entries[0].Action)
}

func TestUpdateAndDeactivateUnit(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	unit, err := svc.CreateUnit(ctx, domain.CreateUnitRequest{Code: "B-2", ActorID: testutil.Actor})
	require.NoError(t, err)

	email := "b2@example.com"
	updated, err := svc.UpdateUnit(ctx, unit.ID, domain.UpdateUnitRequest{Email: &email, ActorID: testutil.Actor})
	require.NoError(t, err)
	assert.Equal(t, email, updated.Email)
	assert.Equal(t, "B-2", updated.Code)

	off, err := svc.SetUnitActive(ctx, unit.ID, false, testutil.Actor)
	require.NoError(t, err)
	assert.False(t, off.IsActive)

	_, err = svc.SetUnitActive(ctx, 9999, false, testutil.Actor)
	assert.ErrorIs(t, err, domain.ErrUnitNotFound)

	_, err = svc.GetUnit(ctx, 9999)
	assert.ErrorIs(t, err, domain.ErrUnitNotFound)
}

func TestListUnitsNaturalOrder(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	for _, code := range []string{"A-10", "A-2", "B-1", "A-1"} {
		_, err := svc.CreateUnit(ctx, domain.CreateUnitRequest{Code: code, ActorID: testutil.Actor})
		require.NoError(t, err)
	}
	units, err := svc.ListUnits(ctx, domain.ListUnitsRequest{})
	require.NoError(t, err)

	codes := make([]string, 0, len(units))
	for _, u := range units {
		codes = append(codes, u.Code)
	}
	assert.Equal(t, []string{"A-1", "A-2", "A-10", "B-1"}, codes)

	_, err = svc.SetUnitActive(ctx, units[0].ID, false, testutil.Actor)
	require.NoError(t, err)
	active, err := svc.ListUnits(ctx, domain.ListUnitsRequest{ActiveOnly: true})
	require.NoError(t, err)
	assert.Len(t, active, 3)
}

func TestCategories(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	maintenance, err := svc.CreateCategory(ctx, domain.CreateCategoryRequest{Name: "Maintenance", Kind: "COMMON", ActorID: testutil.Actor})
	require.NoError(t, err)
	assert.Equal(t, domain.KindCommon, maintenance.Kind)
	assert.Equal(t, "common-maintenance", maintenance.Slug)

	_, err = svc.CreateCategory(ctx, domain.CreateCategoryRequest{Name: "maintenance", Kind: domain.KindCommon})
	assert.ErrorIs(t, err, domain.ErrCategoryExists)

	_, err = svc.CreateCategory(ctx, domain.CreateCategoryRequest{Name: "Maintenance", Kind: domain.KindIndividual, ActorID: testutil.Actor})
	require.NoError(t, err, "same name is allowed under another kind")

	_, err = svc.CreateCategory(ctx, domain.CreateCategoryRequest{Name: "Gas", Kind: "metered"})
	assert.ErrorIs(t, err, domain.ErrInvalidKind)

	_, err = svc.CreateCategory(ctx, domain.CreateCategoryRequest{Kind: domain.KindCommon})
	assert.ErrorIs(t, err, domain.ErrInvalidName)

	renamed, err := svc.RenameCategory(ctx, maintenance.ID, "Upkeep", testutil.Actor)
	require.NoError(t, err)
	assert.Equal(t, "Upkeep", renamed.Name)
	assert.Equal(t, maintenance.Slug, renamed.Slug)

	common, err := svc.ListCategories(ctx, domain.ListCategoriesRequest{Kind: domain.KindCommon})
	require.NoError(t, err)
	require.Len(t, common, 1)
	assert.Equal(t, "Upkeep", common[0].Name)

	_, err = svc.SetCategoryActive(ctx, maintenance.ID, false, testutil.Actor)
	require.NoError(t, err)
	active, err := svc.ListCategories(ctx, domain.ListCategoriesRequest{ActiveOnly: true})
	require.NoError(t, err)
	assert.Len(t, active, 1)

	_, err = svc.ListCategories(ctx, domain.ListCategoriesRequest{Kind: "metered"})
	assert.ErrorIs(t, err, domain.ErrInvalidKind)

	_, err = svc.RenameCategory(ctx, 31337, "Nope", testutil.Actor)
	assert.ErrorIs(t, err, domain.ErrCategoryNotFound)
}
