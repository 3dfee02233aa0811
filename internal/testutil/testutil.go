// Package testutil wires the in-memory sqlite database and the shared
// collaborators used by service tests.
package testutil

import (
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	auditdomain "github.com/smallbiznis/buildingbills/internal/audit/domain"
	auditrepository "github.com/smallbiznis/buildingbills/internal/audit/repository"
	auditservice "github.com/smallbiznis/buildingbills/internal/audit/service"
	billingcycledomain "github.com/smallbiznis/buildingbills/internal/billingcycle/domain"
	"github.com/smallbiznis/buildingbills/internal/clock"
	"github.com/smallbiznis/buildingbills/internal/migration"
	referencedomain "github.com/smallbiznis/buildingbills/internal/reference/domain"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const Actor = "admin-1"

// Epoch is the default fake clock start.
var Epoch = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

type Env struct {
	DB    *gorm.DB
	Node  *snowflake.Node
	Clock *clock.FakeClock
	Audit auditdomain.Service
	Log   *zap.Logger
}

// New opens a private in-memory database named after the test and migrates
// every model into it.
func New(t *testing.T) *Env {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, migration.AutoMigrate(db))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	clk := clock.NewFakeClock(Epoch)
	audit := auditservice.NewService(auditservice.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clk,
		Repo:  auditrepository.Provide(),
	})

	return &Env{DB: db, Node: node, Clock: clk, Audit: audit, Log: zap.NewNop()}
}

// Unit inserts an active unit directly.
func (e *Env) Unit(t *testing.T, code, email string) referencedomain.Unit {
	t.Helper()
	now := e.Clock.Now()
	unit := referencedomain.Unit{ID: e.Node.Generate(), Code: code, Email: email, IsActive: true, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, e.DB.Create(&unit).Error)
	return unit
}

// Deactivate flips a unit's active flag off.
func (e *Env) Deactivate(t *testing.T, unitID snowflake.ID) {
	t.Helper()
	require.NoError(t, e.DB.Model(&referencedomain.Unit{}).Where("id = ?", unitID).Update("is_active", false).Error)
}

func (e *Env) Category(t *testing.T, name string, kind referencedomain.ChargeKind) referencedomain.Category {
	t.Helper()
	now := e.Clock.Now()
	cat := referencedomain.Category{
		ID:        e.Node.Generate(),
		Name:      name,
		Slug:      string(kind) + "-" + name,
		Kind:      kind,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, e.DB.Create(&cat).Error)
	return cat
}

// Cycle inserts a billing cycle already in status, bypassing transitions.
func (e *Env) Cycle(t *testing.T, period string, status billingcycledomain.Status) billingcycledomain.BillingCycle {
	t.Helper()
	start, err := billingcycledomain.ParsePeriod(period)
	require.NoError(t, err)
	now := e.Clock.Now()
	cycle := billingcycledomain.BillingCycle{
		ID:          e.Node.Generate(),
		Period:      period,
		PeriodStart: start,
		Status:      status,
		CreatedBy:   Actor,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	require.NoError(t, e.DB.Create(&cycle).Error)
	return cycle
}

// D parses a decimal literal.
func D(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

// Eq reports decimal equality with a readable failure message.
func Eq(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	require.Truef(t, D(want).Equal(got), "want %s, got %s %v", want, got.String(), msgAndArgs)
}
