package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/buildingbills/internal/authorization"
	"github.com/smallbiznis/buildingbills/internal/billingcycle/domain"
	"github.com/smallbiznis/buildingbills/internal/billingcycle/repository"
	chargedomain "github.com/smallbiznis/buildingbills/internal/charge/domain"
	chargeservice "github.com/smallbiznis/buildingbills/internal/charge/service"
	"github.com/smallbiznis/buildingbills/internal/cyclelock"
	paymentdomain "github.com/smallbiznis/buildingbills/internal/payment/domain"
	paymentservice "github.com/smallbiznis/buildingbills/internal/payment/service"
	referencedomain "github.com/smallbiznis/buildingbills/internal/reference/domain"
	snapshotdomain "github.com/smallbiznis/buildingbills/internal/snapshot/domain"
	snapshotrepository "github.com/smallbiznis/buildingbills/internal/snapshot/repository"
	snapshotservice "github.com/smallbiznis/buildingbills/internal/snapshot/service"
	statementdomain "github.com/smallbiznis/buildingbills/internal/statement/domain"
	statementrepository "github.com/smallbiznis/buildingbills/internal/statement/repository"
	statementservice "github.com/smallbiznis/buildingbills/internal/statement/service"
	"github.com/smallbiznis/buildingbills/internal/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type harness struct {
	*testutil.Env

	cycles     *Service
	repo       domain.Repository
	charges    chargedomain.Service
	payments   paymentdomain.Service
	statements statementdomain.Service
	snapshots  snapshotdomain.Service
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	env := testutil.New(t)

	enforcer, err := authorization.NewMemoryEnforcer()
	require.NoError(t, err)
	authz := authorization.NewService(authorization.Params{Log: zap.NewNop(), Enforcer: enforcer})

	cycleRepo := repository.Provide()
	snapshotRepo := snapshotrepository.Provide()

	statements := statementservice.NewService(statementservice.Params{
		DB:           env.DB,
		Log:          env.Log,
		GenID:        env.Node,
		Clock:        env.Clock,
		Repo:         statementrepository.Provide(),
		CycleRepo:    cycleRepo,
		SnapshotRepo: snapshotRepo,
		Authz:        authz,
	})
	snapshots := snapshotservice.NewService(snapshotservice.Params{
		DB:    env.DB,
		Log:   env.Log,
		GenID: env.Node,
		Clock: env.Clock,
		Repo:  snapshotRepo,
	})
	cycles := NewService(Params{
		DB:           env.DB,
		Log:          env.Log,
		GenID:        env.Node,
		Clock:        env.Clock,
		Repo:         cycleRepo,
		AuditSvc:     env.Audit,
		StatementSvc: statements,
		SnapshotSvc:  snapshots,
		Locker:       cyclelock.NewLocalLocker(nil),
	}).(*Service)
	charges := chargeservice.NewService(chargeservice.Params{
		DB:        env.DB,
		Log:       env.Log,
		GenID:     env.Node,
		Clock:     env.Clock,
		AuditSvc:  env.Audit,
		CycleRepo: cycleRepo,
	})
	payments := paymentservice.NewService(paymentservice.Params{
		DB:        env.DB,
		Log:       env.Log,
		GenID:     env.Node,
		Clock:     env.Clock,
		AuditSvc:  env.Audit,
		CycleRepo: cycleRepo,
	})

	return &harness{
		Env:        env,
		cycles:     cycles,
		repo:       cycleRepo,
		charges:    charges,
		payments:   payments,
		statements: statements,
		snapshots:  snapshots,
	}
}

func (h *harness) createCycle(t *testing.T, period string) domain.BillingCycle {
	t.Helper()
	cycle, err := h.cycles.Create(context.Background(), domain.CreateRequest{Period: period, ActorID: testutil.Actor})
	require.NoError(t, err)
	return cycle
}

func (h *harness) common(t *testing.T, cycle domain.BillingCycle, cat referencedomain.Category, total string) {
	t.Helper()
	_, err := h.charges.UpsertCommon(context.Background(), chargedomain.UpsertCommonRequest{
		CycleID:     cycle.ID,
		CategoryID:  cat.ID,
		TotalAmount: testutil.D(total),
		ActorID:     testutil.Actor,
	})
	require.NoError(t, err)
}

func (h *harness) individual(t *testing.T, cycle domain.BillingCycle, unit referencedomain.Unit, cat referencedomain.Category, amount string) {
	t.Helper()
	_, err := h.charges.SaveIndividual(context.Background(), chargedomain.SaveIndividualRequest{
		CycleID: cycle.ID,
		Cells:   []chargedomain.IndividualCell{{UnitID: unit.ID, CategoryID: cat.ID, Amount: testutil.D(amount)}},
		ActorID: testutil.Actor,
	})
	require.NoError(t, err)
}

func (h *harness) pay(t *testing.T, cycle domain.BillingCycle, unit referencedomain.Unit, amount string) {
	t.Helper()
	_, err := h.payments.Record(context.Background(), paymentdomain.RecordRequest{
		CycleID: cycle.ID,
		UnitID:  unit.ID,
		Amount:  testutil.D(amount),
		PaidOn:  "2024-03-05",
		Method:  paymentdomain.MethodUPI,
		ActorID: testutil.Actor,
	})
	require.NoError(t, err)
}

// statementRows returns the cycle's stored statements as JSON, ordered by
// unit.
func (h *harness) statementRows(t *testing.T, cycleID snowflake.ID) string {
	t.Helper()
	var rows []statementdomain.Statement
	require.NoError(t, h.DB.Where("cycle_id = ?", cycleID).Order("unit_id asc").Find(&rows).Error)
	require.NotEmpty(t, rows)
	raw, err := json.Marshal(rows)
	require.NoError(t, err)
	return string(raw)
}
