package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	auditdomain "github.com/smallbiznis/buildingbills/internal/audit/domain"
	"github.com/smallbiznis/buildingbills/internal/audit/repository"
	"github.com/smallbiznis/buildingbills/internal/clock"
	obscontext "github.com/smallbiznis/buildingbills/internal/observability/context"
	"github.com/smallbiznis/buildingbills/pkg/db/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&auditdomain.Entry{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	svc := NewService(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clock.NewFakeClock(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)),
		Repo:  repository.Provide(),
	}).(*Service)
	return svc, db
}

func TestRecordValidatesInput(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	err := svc.Record(ctx, nil, auditdomain.RecordInput{Table: "units", RecordID: "1", ActorID: "admin"})
	assert.ErrorIs(t, err, auditdomain.ErrInvalidAction)

	err = svc.Record(ctx, nil, auditdomain.RecordInput{Action: auditdomain.ActionCreate, RecordID: "1", ActorID: "admin"})
	assert.ErrorIs(t, err, auditdomain.ErrInvalidTable)

	err = svc.Record(ctx, nil, auditdomain.RecordInput{Table: "units", Action: auditdomain.ActionCreate, ActorID: "admin"})
	assert.ErrorIs(t, err, auditdomain.ErrInvalidRecordID)

	err = svc.Record(ctx, nil, auditdomain.RecordInput{Table: "units", RecordID: "1", Action: auditdomain.ActionCreate})
	assert.ErrorIs(t, err, auditdomain.ErrInvalidActor)
}

func TestRecordUsesContextActorAndMasksEmail(t *testing.T) {
	svc, db := newTestService(t)
	ctx := obscontext.WithActor(context.Background(), "admin-1", "admin")
	ctx = obscontext.WithRequestID(ctx, "req-9")

	require.NoError(t, svc.Record(ctx, nil, auditdomain.RecordInput{
		Table:    "units",
		RecordID: "42",
		Action:   auditdomain.ActionUpdate,
		Metadata: map[string]any{"email": "owner@example.com", "unit_code": "A-101"},
	}))

	var stored auditdomain.Entry
	require.NoError(t, db.First(&stored).Error)
	assert.Equal(t, "admin-1", stored.ActorID)
	assert.Equal(t, "o****@example.com", stored.Metadata["email"])
	assert.Equal(t, "A-101", stored.Metadata["unit_code"])
	assert.Equal(t, "req-9", stored.Metadata["request_id"])
}

func TestRecordRollsBackWithCallerTransaction(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	_ = db.Transaction(func(tx *gorm.DB) error {
		require.NoError(t, svc.Record(ctx, tx, auditdomain.RecordInput{
			Table: "payments", RecordID: "7", Action: auditdomain.ActionCreate, ActorID: "admin",
		}))
		return assert.AnError
	})

	var count int64
	require.NoError(t, db.Model(&auditdomain.Entry{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestListNewestFirstWithPagination(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, svc.Record(ctx, nil, auditdomain.RecordInput{
			Table: "payments", RecordID: "p", Action: auditdomain.ActionCreate, ActorID: "admin",
		}))
	}
	require.NoError(t, svc.Record(ctx, nil, auditdomain.RecordInput{
		Table: "units", RecordID: "u", Action: auditdomain.ActionCreate, ActorID: "admin",
	}))

	first, err := svc.List(ctx, auditdomain.ListRequest{
		Pagination: pagination.Pagination{PageSize: 2},
		Table:      "payments",
	})
	require.NoError(t, err)
	require.Len(t, first.Entries, 2)
	assert.True(t, first.HasMore)
	assert.Greater(t, first.Entries[0].ID, first.Entries[1].ID)

	second, err := svc.List(ctx, auditdomain.ListRequest{
		Pagination: pagination.Pagination{PageSize: 2, PageToken: first.NextPageToken},
		Table:      "payments",
	})
	require.NoError(t, err)
	require.Len(t, second.Entries, 2)
	assert.Less(t, second.Entries[0].ID, first.Entries[1].ID)

	_, err = svc.List(ctx, auditdomain.ListRequest{Pagination: pagination.Pagination{PageToken: "garbage!"}})
	assert.ErrorIs(t, err, pagination.ErrInvalidPageToken)
}

func TestTimelineIsInsertionOrdered(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	cycleID := snowflake.ID(99)
	other := snowflake.ID(100)

	for _, action := range []auditdomain.Action{auditdomain.ActionCreate, auditdomain.ActionPublish, auditdomain.ActionLock} {
		require.NoError(t, svc.Record(ctx, nil, auditdomain.RecordInput{
			Table: "billing_cycles", RecordID: cycleID.String(), Action: action, ActorID: "admin", CycleID: &cycleID,
		}))
	}
	require.NoError(t, svc.Record(ctx, nil, auditdomain.RecordInput{
		Table: "billing_cycles", RecordID: other.String(), Action: auditdomain.ActionCreate, ActorID: "admin", CycleID: &other,
	}))

	entries, err := svc.Timeline(ctx, cycleID)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, auditdomain.ActionCreate, entries[0].Action)
	assert.Equal(t, auditdomain.ActionPublish, entries[1].Action)
	assert.Equal(t, auditdomain.ActionLock, entries[2].Action)
}
