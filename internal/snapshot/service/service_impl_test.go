package service

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	billingcycledomain "github.com/smallbiznis/buildingbills/internal/billingcycle/domain"
	referencedomain "github.com/smallbiznis/buildingbills/internal/reference/domain"
	"github.com/smallbiznis/buildingbills/internal/snapshot/domain"
	"github.com/smallbiznis/buildingbills/internal/snapshot/repository"
	statementdomain "github.com/smallbiznis/buildingbills/internal/statement/domain"
	"github.com/smallbiznis/buildingbills/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (domain.Service, *testutil.Env) {
	t.Helper()
	env := testutil.New(t)
	svc := NewService(Params{
		DB:    env.DB,
		Log:   env.Log,
		GenID: env.Node,
		Clock: env.Clock,
		Repo:  repository.Provide(),
	})
	return svc, env
}

func seedStatement(t *testing.T, env *testutil.Env, cycleID snowflake.ID, unit referencedomain.Unit, closing string) statementdomain.Statement {
	t.Helper()
	now := env.Clock.Now()
	st := statementdomain.Statement{
		ID:         env.Node.Generate(),
		CycleID:    cycleID,
		UnitID:     unit.ID,
		OpeningDue: testutil.D("0"),
		NewCharges: testutil.D(closing),
		PaidAmount: testutil.D("0"),
		ClosingDue: testutil.D(closing),
		Status:     statementdomain.StatusDue,
		LineItems: datatypes.NewJSONSlice([]statementdomain.LineItem{
			{Name: "Maintenance", Kind: referencedomain.KindCommon, Amount: testutil.D(closing)},
		}),
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, env.DB.Create(&st).Error)
	return st
}

func freeze(t *testing.T, env *testutil.Env, svc domain.Service, cycleID snowflake.ID) (int, error) {
	t.Helper()
	var count int
	err := env.DB.Transaction(func(tx *gorm.DB) error {
		var err error
		count, err = svc.CreateForCycle(context.Background(), tx, cycleID)
		return err
	})
	return count, err
}

func TestCreateForCycle(t *testing.T) {
	svc, env := newTestService(t)
	ctx := context.Background()
	cycle := env.Cycle(t, "2024-03", billingcycledomain.StatusPublished)
	a10 := env.Unit(t, "A10", "")
	a2 := env.Unit(t, "A2", "")
	seedStatement(t, env, cycle.ID, a10, "40")
	st := seedStatement(t, env, cycle.ID, a2, "25.50")

	count, err := freeze(t, env, svc, cycle.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	_, err = freeze(t, env, svc, cycle.ID)
	assert.ErrorIs(t, err, domain.ErrSnapshotExists)

	// Later edits to live rows never reach the frozen copy.
	require.NoError(t, env.DB.Model(&statementdomain.Statement{}).
		Where("id = ?", st.ID).
		Update("closing_due", testutil.D("999")).Error)
	require.NoError(t, env.DB.Model(&referencedomain.Unit{}).
		Where("id = ?", a2.ID).
		Update("unit_code", "Z9").Error)

	snap, err := svc.Get(ctx, cycle.ID, a2.ID)
	require.NoError(t, err)
	assert.Equal(t, "A2", snap.UnitCode)
	testutil.Eq(t, "25.50", snap.ClosingDue)
	require.Len(t, snap.LineItems, 1)
	assert.Equal(t, "Maintenance", snap.LineItems[0].Name)

	rows, err := svc.List(ctx, cycle.ID)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "A2", rows[0].UnitCode)
	assert.Equal(t, "A10", rows[1].UnitCode)

	_, err = svc.Get(ctx, cycle.ID, 12345)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCreateForCycleWithoutStatements(t *testing.T) {
	svc, env := newTestService(t)
	cycle := env.Cycle(t, "2024-03", billingcycledomain.StatusPublished)

	count, err := freeze(t, env, svc, cycle.ID)
	require.NoError(t, err)
	assert.Zero(t, count)

	rows, err := svc.List(context.Background(), cycle.ID)
	require.NoError(t, err)
	assert.Empty(t, rows)
}
