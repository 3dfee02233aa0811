package service

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/buildingbills/internal/authorization"
	billingcycledomain "github.com/smallbiznis/buildingbills/internal/billingcycle/domain"
	billingcyclerepository "github.com/smallbiznis/buildingbills/internal/billingcycle/repository"
	chargedomain "github.com/smallbiznis/buildingbills/internal/charge/domain"
	paymentdomain "github.com/smallbiznis/buildingbills/internal/payment/domain"
	referencedomain "github.com/smallbiznis/buildingbills/internal/reference/domain"
	snapshotrepository "github.com/smallbiznis/buildingbills/internal/snapshot/repository"
	"github.com/smallbiznis/buildingbills/internal/statement/domain"
	"github.com/smallbiznis/buildingbills/internal/statement/repository"
	"github.com/smallbiznis/buildingbills/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	*testutil.Env
	svc domain.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	env := testutil.New(t)
	enforcer, err := authorization.NewMemoryEnforcer()
	require.NoError(t, err)

	svc := NewService(Params{
		DB:           env.DB,
		Log:          env.Log,
		GenID:        env.Node,
		Clock:        env.Clock,
		Repo:         repository.Provide(),
		CycleRepo:    billingcyclerepository.Provide(),
		SnapshotRepo: snapshotrepository.Provide(),
		Authz:        authorization.NewService(authorization.Params{Log: zap.NewNop(), Enforcer: enforcer}),
	})
	return &fixture{Env: env, svc: svc}
}

func (f *fixture) common(t *testing.T, cycleID snowflake.ID, cat referencedomain.Category, total string) {
	t.Helper()
	now := f.Clock.Now()
	require.NoError(t, f.DB.Create(&chargedomain.CommonCharge{
		ID: f.Node.Generate(), CycleID: cycleID, CategoryID: cat.ID, TotalAmount: testutil.D(total),
		CreatedBy: testutil.Actor, CreatedAt: now, UpdatedAt: now,
	}).Error)
}

func (f *fixture) individual(t *testing.T, cycleID snowflake.ID, unit referencedomain.Unit, cat referencedomain.Category, amount string) {
	t.Helper()
	now := f.Clock.Now()
	require.NoError(t, f.DB.Create(&chargedomain.IndividualCharge{
		ID: f.Node.Generate(), CycleID: cycleID, UnitID: unit.ID, CategoryID: cat.ID, Amount: testutil.D(amount),
		CreatedBy: testutil.Actor, CreatedAt: now, UpdatedAt: now,
	}).Error)
}

func (f *fixture) pay(t *testing.T, cycleID snowflake.ID, unit referencedomain.Unit, amount string) {
	t.Helper()
	now := f.Clock.Now()
	require.NoError(t, f.DB.Create(&paymentdomain.Payment{
		ID: f.Node.Generate(), CycleID: cycleID, UnitID: unit.ID, Amount: testutil.D(amount),
		PaidOn: now, Method: paymentdomain.MethodCash, ReceivedBy: testutil.Actor, CreatedAt: now,
	}).Error)
}

func (f *fixture) compute(t *testing.T, cycle billingcycledomain.BillingCycle) int {
	t.Helper()
	var written int
	require.NoError(t, f.DB.Transaction(func(tx *gorm.DB) error {
		var err error
		written, err = f.svc.Compute(context.Background(), tx, cycle)
		return err
	}))
	return written
}

func TestComputeSplitsCommonCharges(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a1 := f.Unit(t, "A1", "")
	a2 := f.Unit(t, "A2", "")
	a3 := f.Unit(t, "A3", "")
	maintenance := f.Category(t, "Maintenance", referencedomain.KindCommon)
	water := f.Category(t, "Water", referencedomain.KindIndividual)

	cycle := f.Cycle(t, "2024-03", billingcycledomain.StatusPublished)
	f.common(t, cycle.ID, maintenance, "100")
	f.individual(t, cycle.ID, a2, water, "12.50")

	assert.Equal(t, 3, f.compute(t, cycle))

	st, err := f.svc.GetStatement(ctx, cycle.ID, a1.ID)
	require.NoError(t, err)
	testutil.Eq(t, "33.34", st.NewCharges)
	assert.Equal(t, domain.StatusDue, st.Status)
	assert.Equal(t, "2024-03", st.Period)

	st, err = f.svc.GetStatement(ctx, cycle.ID, a2.ID)
	require.NoError(t, err)
	testutil.Eq(t, "45.83", st.NewCharges)
	require.Len(t, st.LineItems, 2)
	assert.Equal(t, "Maintenance", st.LineItems[0].Name)
	assert.Equal(t, "Water", st.LineItems[1].Name)

	st, err = f.svc.GetStatement(ctx, cycle.ID, a3.ID)
	require.NoError(t, err)
	testutil.Eq(t, "33.33", st.NewCharges)
	testutil.Eq(t, "0", st.OpeningDue)
}

func TestComputeCarriesForwardPublishedClosingDue(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a1 := f.Unit(t, "A1", "")
	maintenance := f.Category(t, "Maintenance", referencedomain.KindCommon)

	feb := f.Cycle(t, "2024-02", billingcycledomain.StatusPublished)
	f.common(t, feb.ID, maintenance, "80")
	f.pay(t, feb.ID, a1, "30")
	f.compute(t, feb)

	mar := f.Cycle(t, "2024-03", billingcycledomain.StatusPublished)
	f.common(t, mar.ID, maintenance, "80")
	f.pay(t, mar.ID, a1, "130")
	f.compute(t, mar)

	st, err := f.svc.GetStatement(ctx, mar.ID, a1.ID)
	require.NoError(t, err)
	testutil.Eq(t, "50", st.OpeningDue)
	testutil.Eq(t, "0", st.ClosingDue)
	assert.Equal(t, domain.StatusPaid, st.Status)
}

func TestComputeIgnoresDraftPriorCycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a1 := f.Unit(t, "A1", "")
	maintenance := f.Category(t, "Maintenance", referencedomain.KindCommon)

	feb := f.Cycle(t, "2024-02", billingcycledomain.StatusDraft)
	f.common(t, feb.ID, maintenance, "80")

	mar := f.Cycle(t, "2024-03", billingcycledomain.StatusPublished)
	f.common(t, mar.ID, maintenance, "10")
	f.compute(t, mar)

	st, err := f.svc.GetStatement(ctx, mar.ID, a1.ID)
	require.NoError(t, err)
	testutil.Eq(t, "0", st.OpeningDue)
	testutil.Eq(t, "10", st.ClosingDue)
}

func TestComputeOverpaymentIsCredit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a1 := f.Unit(t, "A1", "")
	maintenance := f.Category(t, "Maintenance", referencedomain.KindCommon)

	cycle := f.Cycle(t, "2024-03", billingcycledomain.StatusPublished)
	f.common(t, cycle.ID, maintenance, "100")
	f.pay(t, cycle.ID, a1, "120")
	f.pay(t, cycle.ID, a1, "80")
	f.compute(t, cycle)

	st, err := f.svc.GetStatement(ctx, cycle.ID, a1.ID)
	require.NoError(t, err)
	testutil.Eq(t, "200", st.PaidAmount)
	testutil.Eq(t, "-100", st.ClosingDue)
	assert.Equal(t, domain.StatusPaid, st.Status)
}

func TestComputeIgnoresInactiveUnits(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.Unit(t, "A1", "")
	gone := f.Unit(t, "A2", "")
	f.Deactivate(t, gone.ID)
	maintenance := f.Category(t, "Maintenance", referencedomain.KindCommon)

	cycle := f.Cycle(t, "2024-03", billingcycledomain.StatusPublished)
	f.common(t, cycle.ID, maintenance, "90")
	assert.Equal(t, 1, f.compute(t, cycle))

	_, err := f.svc.GetStatement(ctx, cycle.ID, gone.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.svc.GetStatement(ctx, cycle.ID, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidUnit)
}

func TestStatusBoard(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.Unit(t, "B1", "")
	a1 := f.Unit(t, "A1", "")
	maintenance := f.Category(t, "Maintenance", referencedomain.KindCommon)

	draft := f.Cycle(t, "2024-02", billingcycledomain.StatusDraft)
	_, err := f.svc.StatusBoard(ctx, draft.ID, authorization.RoleAdmin)
	assert.ErrorIs(t, err, domain.ErrCycleNotPublished)

	cycle := f.Cycle(t, "2024-03", billingcycledomain.StatusPublished)
	f.common(t, cycle.ID, maintenance, "100")
	f.pay(t, cycle.ID, a1, "50")
	f.compute(t, cycle)

	rows, err := f.svc.StatusBoard(ctx, cycle.ID, authorization.RoleAdmin)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "A1", rows[0].UnitCode)
	assert.Equal(t, domain.StatusPaid, rows[0].Status)
	require.NotNil(t, rows[0].ClosingDue)
	testutil.Eq(t, "0", *rows[0].ClosingDue)
	assert.Equal(t, "B1", rows[1].UnitCode)
	assert.Equal(t, domain.StatusDue, rows[1].Status)

	rows, err = f.svc.StatusBoard(ctx, cycle.ID, authorization.RoleOccupant)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	for _, row := range rows {
		assert.Nil(t, row.ClosingDue, row.UnitCode)
	}

	_, err = f.svc.StatusBoard(ctx, 42, authorization.RoleAdmin)
	assert.ErrorIs(t, err, billingcycledomain.ErrNotFound)
}
