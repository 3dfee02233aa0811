package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/buildingbills/internal/audit/domain"
	"github.com/smallbiznis/buildingbills/internal/billingcycle/domain"
	"github.com/smallbiznis/buildingbills/internal/billingcycle/guard"
	"github.com/smallbiznis/buildingbills/internal/clock"
	"github.com/smallbiznis/buildingbills/internal/cyclelock"
	obscontext "github.com/smallbiznis/buildingbills/internal/observability/context"
	obslogger "github.com/smallbiznis/buildingbills/internal/observability/logger"
	"github.com/smallbiznis/buildingbills/internal/observability/metrics"
	"github.com/smallbiznis/buildingbills/internal/observability/tracing"
	snapshotdomain "github.com/smallbiznis/buildingbills/internal/snapshot/domain"
	statementdomain "github.com/smallbiznis/buildingbills/internal/statement/domain"
	"github.com/smallbiznis/buildingbills/pkg/db"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	GenID        *snowflake.Node
	Clock        clock.Clock
	Repo         domain.Repository
	AuditSvc     auditdomain.Service
	StatementSvc statementdomain.Service
	SnapshotSvc  snapshotdomain.Service
	Locker       cyclelock.Locker
	Engine       *metrics.EngineMetrics `optional:"true"`
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	genID        *snowflake.Node
	clock        clock.Clock
	repo         domain.Repository
	auditSvc     auditdomain.Service
	statementSvc statementdomain.Service
	snapshotSvc  snapshotdomain.Service
	locker       cyclelock.Locker
	engine       *metrics.EngineMetrics
	tracer       trace.Tracer
}

func NewService(p Params) domain.Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("billingcycle.service"),
		genID:        p.GenID,
		clock:        p.Clock,
		repo:         p.Repo,
		auditSvc:     p.AuditSvc,
		statementSvc: p.StatementSvc,
		snapshotSvc:  p.SnapshotSvc,
		locker:       p.Locker,
		engine:       p.Engine,
		tracer:       otel.Tracer("buildingbills/billingcycle"),
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (cycle domain.BillingCycle, err error) {
	start := time.Now()
	defer func() { s.engine.ObserveCycleAction(metrics.ActionCreate, time.Since(start), err) }()

	periodStart, err := domain.ParsePeriod(req.Period)
	if err != nil {
		return domain.BillingCycle{}, err
	}
	actorID, err := resolveActor(ctx, req.ActorID)
	if err != nil {
		return domain.BillingCycle{}, err
	}

	now := s.clock.Now()
	cycle = domain.BillingCycle{
		ID:          s.genID.Generate(),
		Period:      domain.FormatPeriod(periodStart),
		PeriodStart: periodStart,
		Status:      domain.StatusDraft,
		CreatedBy:   actorID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.repo.FindByPeriod(ctx, tx, cycle.Period)
		if err != nil {
			return err
		}
		if existing != nil {
			return domain.ErrCycleExists
		}
		if err := s.repo.Insert(ctx, tx, &cycle); err != nil {
			if db.IsDuplicateKeyErr(err) {
				return domain.ErrCycleExists
			}
			return err
		}
		return s.auditSvc.Record(ctx, tx, auditdomain.RecordInput{
			Table:    cycle.TableName(),
			RecordID: cycle.ID.String(),
			Action:   auditdomain.ActionCreate,
			ActorID:  actorID,
			CycleID:  &cycle.ID,
			Metadata: map[string]any{"period": cycle.Period},
		})
	})
	if err != nil {
		return domain.BillingCycle{}, err
	}

	obslogger.WithCycle(obslogger.WithContext(ctx, s.log), cycle.ID.Int64(), cycle.Period).
		Info("billing cycle created")
	return cycle, nil
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (domain.BillingCycle, error) {
	cycle, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.BillingCycle{}, err
	}
	if cycle == nil {
		return domain.BillingCycle{}, domain.ErrNotFound
	}
	return *cycle, nil
}

func (s *Service) GetByPeriod(ctx context.Context, period string) (domain.BillingCycle, error) {
	start, err := domain.ParsePeriod(period)
	if err != nil {
		return domain.BillingCycle{}, err
	}
	cycle, err := s.repo.FindByPeriod(ctx, s.db, domain.FormatPeriod(start))
	if err != nil {
		return domain.BillingCycle{}, err
	}
	if cycle == nil {
		return domain.BillingCycle{}, domain.ErrNotFound
	}
	return *cycle, nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) ([]domain.BillingCycle, error) {
	status := domain.Status(strings.ToLower(strings.TrimSpace(string(req.Status))))
	switch status {
	case "", domain.StatusDraft, domain.StatusPublished, domain.StatusLocked:
	default:
		return nil, domain.ErrInvalidStatus
	}

	cycles, err := s.repo.List(ctx, s.db, status)
	if err != nil {
		return nil, err
	}
	if cycles == nil {
		cycles = []domain.BillingCycle{}
	}
	return cycles, nil
}

// Publish moves a draft cycle to published and computes the statement of
// every active unit.
func (s *Service) Publish(ctx context.Context, id snowflake.ID, actorID string) (domain.Status, error) {
	return s.transition(ctx, id, domain.ActionPublish, actorID, func(ctx context.Context, tx *gorm.DB, cycle domain.BillingCycle, now time.Time) (domain.BillingCycle, stepFunc, error) {
		if err := guard.EnsureCanPublish(cycle.Status); err != nil {
			return cycle, nil, err
		}
		next := cycle
		next.Status = domain.StatusPublished
		next.PublishedAt = &now
		return next, s.computeStep, nil
	})
}

// Recalculate recomputes the statements of a published cycle. Running it
// twice without input changes yields identical statements.
func (s *Service) Recalculate(ctx context.Context, id snowflake.ID, actorID string) (domain.Status, error) {
	return s.transition(ctx, id, domain.ActionRecalculate, actorID, func(ctx context.Context, tx *gorm.DB, cycle domain.BillingCycle, now time.Time) (domain.BillingCycle, stepFunc, error) {
		if err := guard.EnsureCanRecalculate(cycle.Status); err != nil {
			return cycle, nil, err
		}
		return cycle, s.computeStep, nil
	})
}

// Lock freezes a published cycle whose checklist passes. Statements are
// copied into snapshots in the same transaction.
func (s *Service) Lock(ctx context.Context, id snowflake.ID, actorID string) (domain.Status, error) {
	return s.transition(ctx, id, domain.ActionLock, actorID, func(ctx context.Context, tx *gorm.DB, cycle domain.BillingCycle, now time.Time) (domain.BillingCycle, stepFunc, error) {
		if cycle.Status != domain.StatusPublished {
			return cycle, nil, guard.EnsureCanLock(cycle.Status, domain.Checklist{})
		}
		checklist, err := s.buildChecklist(ctx, tx, cycle)
		if err != nil {
			return cycle, nil, err
		}
		if err := guard.EnsureCanLock(cycle.Status, checklist); err != nil {
			return cycle, nil, err
		}
		next := cycle
		next.Status = domain.StatusLocked
		next.LockedAt = &now
		return next, s.snapshotStep, nil
	})
}

// stepFunc runs after the version compare-and-set succeeded and returns
// metadata for the audit entry.
type stepFunc func(ctx context.Context, tx *gorm.DB, cycle domain.BillingCycle) (map[string]any, error)

type planFunc func(ctx context.Context, tx *gorm.DB, cycle domain.BillingCycle, now time.Time) (domain.BillingCycle, stepFunc, error)

func (s *Service) computeStep(ctx context.Context, tx *gorm.DB, cycle domain.BillingCycle) (map[string]any, error) {
	written, err := s.statementSvc.Compute(ctx, tx, cycle)
	if err != nil {
		return nil, err
	}
	s.engine.AddStatementsWritten(written)
	return map[string]any{"statements": written}, nil
}

func (s *Service) snapshotStep(ctx context.Context, tx *gorm.DB, cycle domain.BillingCycle) (map[string]any, error) {
	count, err := s.snapshotSvc.CreateForCycle(ctx, tx, cycle.ID)
	if err != nil {
		return nil, err
	}
	return map[string]any{"snapshots": count}, nil
}

func (s *Service) transition(ctx context.Context, id snowflake.ID, action domain.Action, actorID string, plan planFunc) (status domain.Status, err error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "billingcycle."+string(action), trace.WithAttributes(
		tracing.SafeAttributes(
			attribute.String("cycle_id", id.String()),
			attribute.String("action", string(action)),
		)...,
	))
	defer func() {
		s.engine.ObserveCycleAction(string(action), time.Since(start), err)
		if err != nil {
			span.RecordError(tracing.SafeError(err))
			span.SetStatus(codes.Error, metrics.ClassifyOutcome(err))
		}
		span.End()
	}()

	actorID, err = resolveActor(ctx, actorID)
	if err != nil {
		return "", err
	}

	release, err := s.locker.Acquire(ctx, id)
	if err != nil {
		if errors.Is(err, cyclelock.ErrLockTimeout) {
			return "", domain.ErrConcurrencyConflict
		}
		return "", err
	}
	defer release()

	log := obslogger.WithContext(ctx, s.log)
	var next domain.BillingCycle
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cycle, err := s.repo.FindByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if cycle == nil {
			return domain.ErrNotFound
		}

		now := s.clock.Now()
		planned, step, err := plan(ctx, tx, *cycle, now)
		if err != nil {
			return err
		}
		planned.UpdatedAt = now

		ok, err := s.repo.CompareAndSwap(ctx, tx, planned, cycle.Status, cycle.Version)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrConcurrencyConflict
		}
		planned.Version = cycle.Version + 1

		meta := map[string]any{}
		if step != nil {
			meta, err = step(ctx, tx, planned)
			if err != nil {
				return err
			}
		}
		meta["from"] = string(cycle.Status)
		meta["to"] = string(planned.Status)
		meta["period"] = planned.Period

		if err := s.auditSvc.Record(ctx, tx, auditdomain.RecordInput{
			Table:    planned.TableName(),
			RecordID: planned.ID.String(),
			Action:   auditAction(action),
			ActorID:  actorID,
			CycleID:  &planned.ID,
			Metadata: meta,
		}); err != nil {
			return err
		}
		next = planned
		return nil
	})
	if err != nil {
		log.Info("billing cycle action rejected",
			zap.String("cycle_id", id.String()),
			zap.String("action", string(action)),
			zap.String("outcome", metrics.ClassifyOutcome(err)),
			zap.Error(err),
		)
		return "", err
	}

	obslogger.WithCycle(log, next.ID.Int64(), next.Period).Info("billing cycle action applied",
		zap.String("action", string(action)),
		zap.String("status", string(next.Status)),
		zap.Int64("version", next.Version),
	)
	return next.Status, nil
}

func (s *Service) Timeline(ctx context.Context, id snowflake.ID) ([]auditdomain.Entry, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.auditSvc.Timeline(ctx, id)
}

func auditAction(action domain.Action) auditdomain.Action {
	switch action {
	case domain.ActionPublish:
		return auditdomain.ActionPublish
	case domain.ActionRecalculate:
		return auditdomain.ActionRecalculate
	case domain.ActionLock:
		return auditdomain.ActionLock
	default:
		return auditdomain.ActionUpdate
	}
}

func resolveActor(ctx context.Context, actorID string) (string, error) {
	actorID = strings.TrimSpace(actorID)
	if actorID == "" {
		actorID, _ = obscontext.ActorFromContext(ctx)
	}
	if actorID == "" {
		return "", domain.ErrInvalidActor
	}
	return actorID, nil
}
