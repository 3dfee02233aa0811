package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/oklog/ulid/v2"
	auditdomain "github.com/smallbiznis/buildingbills/internal/audit/domain"
	billingcycledomain "github.com/smallbiznis/buildingbills/internal/billingcycle/domain"
	"github.com/smallbiznis/buildingbills/internal/clock"
	"github.com/smallbiznis/buildingbills/internal/config"
	"github.com/smallbiznis/buildingbills/internal/notification/domain"
	obscontext "github.com/smallbiznis/buildingbills/internal/observability/context"
	obslogger "github.com/smallbiznis/buildingbills/internal/observability/logger"
	"github.com/smallbiznis/buildingbills/internal/observability/metrics"
	"github.com/smallbiznis/buildingbills/internal/providers/email"
	"github.com/smallbiznis/buildingbills/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB            *gorm.DB
	Log           *zap.Logger
	GenID         *snowflake.Node
	Clock         clock.Clock
	Repo          domain.Repository
	CycleRepo     billingcycledomain.Repository
	Lookup        domain.RecipientLookup
	Provider      email.Provider
	BillingConfig *config.BillingConfigHolder
	AuditSvc      auditdomain.Service
	Engine        *metrics.EngineMetrics `optional:"true"`
	Metrics       *metrics.Metrics       `optional:"true"`
}

type Service struct {
	db            *gorm.DB
	log           *zap.Logger
	genID         *snowflake.Node
	clock         clock.Clock
	repo          domain.Repository
	cycleRepo     billingcycledomain.Repository
	lookup        domain.RecipientLookup
	provider      email.Provider
	billingConfig *config.BillingConfigHolder
	auditSvc      auditdomain.Service
	engine        *metrics.EngineMetrics
	metrics       *metrics.Metrics
}

func NewService(p Params) domain.Service {
	return &Service{
		db:            p.DB,
		log:           p.Log.Named("notification.service"),
		genID:         p.GenID,
		clock:         p.Clock,
		repo:          p.Repo,
		cycleRepo:     p.CycleRepo,
		lookup:        p.Lookup,
		provider:      p.Provider,
		billingConfig: p.BillingConfig,
		auditSvc:      p.AuditSvc,
		engine:        p.Engine,
		metrics:       p.Metrics,
	}
}

type outcome struct {
	delivery email.Delivery
	err      error
}

func (s *Service) Dispatch(ctx context.Context, cycleID snowflake.ID, actorID string) (summary domain.Summary, err error) {
	start := time.Now()
	defer func() {
		s.engine.ObserveCycleAction(metrics.ActionNotify, time.Since(start), err)
	}()

	// Resolved before any send so a bad actor cannot leave delivered mail
	// without records.
	actorID, err = resolveActor(ctx, actorID)
	if err != nil {
		return domain.Summary{}, err
	}

	cycle, err := s.cycleRepo.FindByID(ctx, s.db, cycleID)
	if err != nil {
		return domain.Summary{}, err
	}
	if cycle == nil {
		return domain.Summary{}, billingcycledomain.ErrNotFound
	}
	log := obslogger.WithCycle(obslogger.WithContext(ctx, s.log), cycle.ID.Int64(), cycle.Period)

	recipients, err := s.lookup.Recipients(ctx, *cycle)
	if err != nil {
		return domain.Summary{}, err
	}
	recipients = withEmail(recipients)

	summary = domain.Summary{
		DispatchID: ulid.Make().String(),
		CycleID:    cycle.ID,
		Period:     cycle.Period,
	}
	if len(recipients) == 0 {
		summary.NoRecipients = true
		summary.Message = domain.NoRecipientsMessage
		log.Info("no notification recipients", zap.String("dispatch_id", summary.DispatchID))
		return summary, nil
	}

	cfg := s.billingConfig.Get()
	timeout := cfg.Notification.SendTimeout
	limit := cfg.Notification.Concurrency
	if limit <= 0 {
		limit = 1
	}
	label := billingcycledomain.PeriodLabel(cycle.Period)

	results := make([]outcome, len(recipients))
	var g errgroup.Group
	g.SetLimit(limit)
	for i, r := range recipients {
		g.Go(func() error {
			msg, err := email.StatementReady(email.StatementNotice{
				From:       cfg.EmailFrom,
				To:         r.Email,
				UnitCode:   r.UnitCode,
				Period:     cycle.Period,
				Label:      label,
				AppBaseURL: cfg.AppBaseURL,
			})
			if err != nil {
				results[i] = outcome{delivery: email.Delivery{Provider: s.provider.Name()}, err: err}
				return nil
			}
			results[i] = s.send(ctx, timeout, msg)
			return nil
		})
	}
	_ = g.Wait()

	now := s.clock.Now()
	records := make([]domain.Record, 0, len(recipients))
	for i, r := range recipients {
		res := results[i]
		status := domain.StatusSent
		if res.err != nil {
			status = domain.StatusFailed
			summary.Failed++
			log.Warn("notification delivery failed",
				zap.String("unit_code", r.UnitCode),
				zap.String("provider", res.delivery.Provider),
				zap.Error(res.err),
			)
		} else {
			summary.Sent++
		}
		s.engine.IncDelivery(res.delivery.Provider, string(status))

		records = append(records, domain.Record{
			ID:               s.genID.Generate(),
			DispatchID:       summary.DispatchID,
			CycleID:          cycle.ID,
			UnitID:           r.UnitID,
			Email:            r.Email,
			Status:           status,
			Provider:         res.delivery.Provider,
			ProviderResponse: res.delivery.Response,
			CreatedAt:        now,
		})
	}
	summary.Attempted = len(records)

	// Persist the accounting even if the caller went away mid-batch.
	writeCtx := context.WithoutCancel(ctx)
	err = s.db.WithContext(writeCtx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.InsertBatch(writeCtx, tx, records); err != nil {
			return err
		}
		return s.auditSvc.Record(writeCtx, tx, auditdomain.RecordInput{
			Table:    domain.Record{}.TableName(),
			RecordID: summary.DispatchID,
			Action:   auditdomain.ActionNotify,
			ActorID:  actorID,
			CycleID:  &cycle.ID,
			Metadata: map[string]any{
				"attempted": summary.Attempted,
				"sent":      summary.Sent,
				"failed":    summary.Failed,
				"provider":  s.provider.Name(),
			},
		})
	})
	if err != nil {
		return domain.Summary{}, err
	}

	s.metrics.RecordDispatch(ctx, s.provider.Name(), summary.Failed)
	log.Info("notifications dispatched",
		zap.String("dispatch_id", summary.DispatchID),
		zap.Int("attempted", summary.Attempted),
		zap.Int("sent", summary.Sent),
		zap.Int("failed", summary.Failed),
	)
	return summary, nil
}

// send bounds one provider call by timeout. A provider that ignores its
// context is abandoned and the attempt counts as failed.
func (s *Service) send(ctx context.Context, timeout time.Duration, msg email.Message) outcome {
	if timeout <= 0 {
		timeout = config.DefaultBillingConfig().Notification.SendTimeout
	}
	sendCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan outcome, 1)
	go func() {
		delivery, err := s.provider.Send(sendCtx, msg)
		done <- outcome{delivery: delivery, err: err}
	}()

	var res outcome
	select {
	case res = <-done:
	case <-sendCtx.Done():
		res = outcome{
			delivery: email.Delivery{Response: domain.ErrDispatchTimeout.Error()},
			err:      domain.ErrDispatchTimeout,
		}
	}
	if res.delivery.Provider == "" {
		res.delivery.Provider = s.provider.Name()
	}
	return res
}

func (s *Service) History(ctx context.Context, req domain.HistoryRequest) (domain.HistoryResponse, error) {
	cycle, err := s.cycleRepo.FindByID(ctx, s.db, req.CycleID)
	if err != nil {
		return domain.HistoryResponse{}, err
	}
	if cycle == nil {
		return domain.HistoryResponse{}, billingcycledomain.ErrNotFound
	}

	cursor, err := pagination.DecodeCursor(req.PageToken)
	if err != nil {
		return domain.HistoryResponse{}, err
	}
	var before snowflake.ID
	if cursor != nil {
		before = snowflake.ID(cursor.ID)
	}

	limit := req.Limit()
	items, err := s.repo.List(ctx, s.db, cycle.ID, before, limit)
	if err != nil {
		return domain.HistoryResponse{}, err
	}
	records, pageInfo, err := pagination.BuildCursorPageInfo(items, limit, func(r domain.Record) pagination.Cursor {
		return pagination.Cursor{ID: r.ID.Int64()}
	})
	if err != nil {
		return domain.HistoryResponse{}, err
	}
	if records == nil {
		records = []domain.Record{}
	}
	return domain.HistoryResponse{PageInfo: pageInfo, Records: records}, nil
}

func withEmail(in []domain.Recipient) []domain.Recipient {
	out := in[:0]
	for _, r := range in {
		if r.Email != "" {
			out = append(out, r)
		}
	}
	return out
}

func resolveActor(ctx context.Context, actorID string) (string, error) {
	actorID = strings.TrimSpace(actorID)
	if actorID == "" {
		actorID, _ = obscontext.ActorFromContext(ctx)
	}
	if actorID == "" {
		return "", billingcycledomain.ErrInvalidActor
	}
	return actorID, nil
}
