package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/golang/mock/gomock"
	auditdomain "github.com/smallbiznis/buildingbills/internal/audit/domain"
	billingcycledomain "github.com/smallbiznis/buildingbills/internal/billingcycle/domain"
	billingcyclerepository "github.com/smallbiznis/buildingbills/internal/billingcycle/repository"
	"github.com/smallbiznis/buildingbills/internal/config"
	"github.com/smallbiznis/buildingbills/internal/notification/domain"
	"github.com/smallbiznis/buildingbills/internal/notification/repository"
	obscontext "github.com/smallbiznis/buildingbills/internal/observability/context"
	"github.com/smallbiznis/buildingbills/internal/providers/email"
	mock_email "github.com/smallbiznis/buildingbills/internal/providers/email/mock"
	referencedomain "github.com/smallbiznis/buildingbills/internal/reference/domain"
	statementdomain "github.com/smallbiznis/buildingbills/internal/statement/domain"
	"github.com/smallbiznis/buildingbills/internal/testutil"
	"github.com/smallbiznis/buildingbills/pkg/db/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T, provider email.Provider, cfg config.BillingConfig) (domain.Service, *testutil.Env) {
	t.Helper()
	env := testutil.New(t)
	svc := NewService(Params{
		DB:            env.DB,
		Log:           env.Log,
		GenID:         env.Node,
		Clock:         env.Clock,
		Repo:          repository.Provide(),
		CycleRepo:     billingcyclerepository.Provide(),
		Lookup:        NewRecipientLookup(env.DB),
		Provider:      provider,
		BillingConfig: config.NewStaticBillingConfigHolder(cfg),
		AuditSvc:      env.Audit,
	})
	return svc, env
}

func seedStatement(t *testing.T, env *testutil.Env, cycleID snowflake.ID, unit referencedomain.Unit) {
	t.Helper()
	now := env.Clock.Now()
	require.NoError(t, env.DB.Create(&statementdomain.Statement{
		ID:         env.Node.Generate(),
		CycleID:    cycleID,
		UnitID:     unit.ID,
		OpeningDue: testutil.D("0"),
		NewCharges: testutil.D("10"),
		PaidAmount: testutil.D("0"),
		ClosingDue: testutil.D("10"),
		Status:     statementdomain.StatusDue,
		CreatedAt:  now,
		UpdatedAt:  now,
	}).Error)
}

func TestDispatchRecordsEveryAttempt(t *testing.T) {
	ctrl := gomock.NewController(t)
	provider := mock_email.NewMockProvider(ctrl)
	provider.EXPECT().Name().Return("mock").AnyTimes()

	svc, env := newTestService(t, provider, config.DefaultBillingConfig())
	ctx := context.Background()

	cycle := env.Cycle(t, "2024-03", billingcycledomain.StatusPublished)
	a1 := env.Unit(t, "A1", "a1@example.com")
	a2 := env.Unit(t, "A2", "a2@example.com")
	noEmail := env.Unit(t, "A3", "")
	for _, u := range []referencedomain.Unit{a1, a2, noEmail} {
		seedStatement(t, env, cycle.ID, u)
	}

	provider.EXPECT().
		Send(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, msg email.Message) (email.Delivery, error) {
			assert.Equal(t, "Statement ready for March 2024", msg.Subject)
			if assert.Len(t, msg.To, 1) && msg.To[0] == "a2@example.com" {
				return email.Delivery{Provider: "mock", Response: "mailbox full"}, email.ErrRejected
			}
			return email.Delivery{Provider: "mock", Response: "queued"}, nil
		}).
		Times(2)

	summary, err := svc.Dispatch(ctx, cycle.ID, testutil.Actor)
	require.NoError(t, err)
	assert.Len(t, summary.DispatchID, 26)
	assert.Equal(t, 2, summary.Attempted)
	assert.Equal(t, 1, summary.Sent)
	assert.Equal(t, 1, summary.Failed)
	assert.False(t, summary.NoRecipients)

	history, err := svc.History(ctx, domain.HistoryRequest{CycleID: cycle.ID})
	require.NoError(t, err)
	require.Len(t, history.Records, 2)
	byEmail := map[string]domain.Record{}
	for _, r := range history.Records {
		byEmail[r.Email] = r
		assert.Equal(t, summary.DispatchID, r.DispatchID)
	}
	assert.Equal(t, domain.StatusSent, byEmail["a1@example.com"].Status)
	assert.Equal(t, domain.StatusFailed, byEmail["a2@example.com"].Status)
	assert.Equal(t, "mailbox full", byEmail["a2@example.com"].ProviderResponse)

	entries, err := env.Audit.Timeline(ctx, cycle.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, auditdomain.ActionNotify, entries[0].Action)
}

func TestDispatchWithoutRecipients(t *testing.T) {
	ctrl := gomock.NewController(t)
	provider := mock_email.NewMockProvider(ctrl)

	svc, env := newTestService(t, provider, config.DefaultBillingConfig())
	ctx := context.Background()
	cycle := env.Cycle(t, "2024-03", billingcycledomain.StatusPublished)
	seedStatement(t, env, cycle.ID, env.Unit(t, "A1", ""))

	summary, err := svc.Dispatch(ctx, cycle.ID, testutil.Actor)
	require.NoError(t, err)
	assert.True(t, summary.NoRecipients)
	assert.Equal(t, domain.NoRecipientsMessage, summary.Message)
	assert.Zero(t, summary.Attempted)

	history, err := svc.History(ctx, domain.HistoryRequest{CycleID: cycle.ID})
	require.NoError(t, err)
	assert.Empty(t, history.Records)

	_, err = svc.Dispatch(ctx, 4040, testutil.Actor)
	assert.ErrorIs(t, err, billingcycledomain.ErrNotFound)
}

func TestDispatchRequiresActorBeforeSending(t *testing.T) {
	ctrl := gomock.NewController(t)
	provider := mock_email.NewMockProvider(ctrl)
	provider.EXPECT().Name().Return("mock").AnyTimes()

	svc, env := newTestService(t, provider, config.DefaultBillingConfig())
	ctx := context.Background()
	cycle := env.Cycle(t, "2024-03", billingcycledomain.StatusPublished)
	seedStatement(t, env, cycle.ID, env.Unit(t, "A1", "a1@example.com"))

	// No Send expectation: the controller fails the test if mail goes out.
	_, err := svc.Dispatch(ctx, cycle.ID, "  ")
	require.ErrorIs(t, err, billingcycledomain.ErrInvalidActor)

	history, err := svc.History(ctx, domain.HistoryRequest{CycleID: cycle.ID})
	require.NoError(t, err)
	assert.Empty(t, history.Records)

	provider.EXPECT().Send(gomock.Any(), gomock.Any()).Return(email.Delivery{Provider: "mock", Response: "queued"}, nil)
	actorCtx := obscontext.WithActor(ctx, "admin-ctx", "admin")
	summary, err := svc.Dispatch(actorCtx, cycle.ID, "")
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Sent)

	entries, err := env.Audit.Timeline(ctx, cycle.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "admin-ctx", entries[0].ActorID)
}

func TestDispatchTimesOutSlowProvider(t *testing.T) {
	ctrl := gomock.NewController(t)
	provider := mock_email.NewMockProvider(ctrl)
	provider.EXPECT().Name().Return("slow").AnyTimes()

	release := make(chan struct{})
	t.Cleanup(func() { close(release) })
	provider.EXPECT().
		Send(gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, email.Message) (email.Delivery, error) {
			<-release
			return email.Delivery{Provider: "slow"}, nil
		})

	cfg := config.DefaultBillingConfig()
	cfg.Notification.SendTimeout = 20 * time.Millisecond
	svc, env := newTestService(t, provider, cfg)
	ctx := context.Background()
	cycle := env.Cycle(t, "2024-03", billingcycledomain.StatusPublished)
	seedStatement(t, env, cycle.ID, env.Unit(t, "A1", "a1@example.com"))

	summary, err := svc.Dispatch(ctx, cycle.ID, testutil.Actor)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Failed)

	history, err := svc.History(ctx, domain.HistoryRequest{CycleID: cycle.ID})
	require.NoError(t, err)
	require.Len(t, history.Records, 1)
	assert.Equal(t, "slow", history.Records[0].Provider)
	assert.Equal(t, domain.ErrDispatchTimeout.Error(), history.Records[0].ProviderResponse)
}

func TestHistoryPaginates(t *testing.T) {
	ctrl := gomock.NewController(t)
	provider := mock_email.NewMockProvider(ctrl)
	provider.EXPECT().Name().Return("mock").AnyTimes()
	provider.EXPECT().Send(gomock.Any(), gomock.Any()).Return(email.Delivery{Provider: "mock"}, nil).Times(6)

	svc, env := newTestService(t, provider, config.DefaultBillingConfig())
	ctx := context.Background()
	cycle := env.Cycle(t, "2024-03", billingcycledomain.StatusPublished)
	seedStatement(t, env, cycle.ID, env.Unit(t, "A1", "a1@example.com"))
	seedStatement(t, env, cycle.ID, env.Unit(t, "A2", "a2@example.com"))
	seedStatement(t, env, cycle.ID, env.Unit(t, "A3", "a3@example.com"))

	first, err := svc.Dispatch(ctx, cycle.ID, testutil.Actor)
	require.NoError(t, err)
	second, err := svc.Dispatch(ctx, cycle.ID, testutil.Actor)
	require.NoError(t, err)
	assert.NotEqual(t, first.DispatchID, second.DispatchID, "resends get a new dispatch id")

	page, err := svc.History(ctx, domain.HistoryRequest{CycleID: cycle.ID, Pagination: pagination.Pagination{PageSize: 4}})
	require.NoError(t, err)
	require.Len(t, page.Records, 4)
	assert.True(t, page.HasMore)

	rest, err := svc.History(ctx, domain.HistoryRequest{
		CycleID:    cycle.ID,
		Pagination: pagination.Pagination{PageSize: 4, PageToken: page.NextPageToken},
	})
	require.NoError(t, err)
	assert.Len(t, rest.Records, 2)
	assert.False(t, rest.HasMore)
}
