package service

import (
	"context"
	"sort"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/buildingbills/internal/clock"
	"github.com/smallbiznis/buildingbills/internal/observability/metrics"
	referencedomain "github.com/smallbiznis/buildingbills/internal/reference/domain"
	"github.com/smallbiznis/buildingbills/internal/snapshot/domain"
	statementdomain "github.com/smallbiznis/buildingbills/internal/statement/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Repo    domain.Repository
	Metrics *metrics.Metrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	repo    domain.Repository
	metrics *metrics.Metrics
}

func NewService(p Params) domain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("snapshot.service"),
		genID:   p.GenID,
		clock:   p.Clock,
		repo:    p.Repo,
		metrics: p.Metrics,
	}
}

func (s *Service) CreateForCycle(ctx context.Context, tx *gorm.DB, cycleID snowflake.ID) (int, error) {
	existing, err := s.repo.Count(ctx, tx, cycleID)
	if err != nil {
		return 0, err
	}
	if existing > 0 {
		return 0, domain.ErrSnapshotExists
	}

	var statements []statementdomain.Statement
	if err := tx.WithContext(ctx).Where("cycle_id = ?", cycleID).Find(&statements).Error; err != nil {
		return 0, err
	}
	if len(statements) == 0 {
		return 0, nil
	}

	unitIDs := make([]snowflake.ID, 0, len(statements))
	for _, st := range statements {
		unitIDs = append(unitIDs, st.UnitID)
	}
	var units []referencedomain.Unit
	if err := tx.WithContext(ctx).Where("id IN ?", unitIDs).Find(&units).Error; err != nil {
		return 0, err
	}
	codes := make(map[snowflake.ID]string, len(units))
	for _, u := range units {
		codes[u.ID] = u.Code
	}

	now := s.clock.Now()
	rows := make([]domain.StatementSnapshot, 0, len(statements))
	for _, st := range statements {
		items := make([]statementdomain.LineItem, len(st.LineItems))
		copy(items, st.LineItems)
		rows = append(rows, domain.StatementSnapshot{
			ID:         s.genID.Generate(),
			CycleID:    cycleID,
			UnitID:     st.UnitID,
			UnitCode:   codes[st.UnitID],
			OpeningDue: st.OpeningDue,
			NewCharges: st.NewCharges,
			PaidAmount: st.PaidAmount,
			ClosingDue: st.ClosingDue,
			Status:     st.Status,
			LineItems:  items,
			CreatedAt:  now,
		})
	}

	if err := s.repo.InsertBatch(ctx, tx, rows); err != nil {
		return 0, err
	}

	s.log.Info("statements frozen",
		zap.String("cycle_id", cycleID.String()),
		zap.Int("count", len(rows)),
	)
	s.metrics.RecordSnapshots(ctx, len(rows))
	return len(rows), nil
}

func (s *Service) Get(ctx context.Context, cycleID, unitID snowflake.ID) (domain.StatementSnapshot, error) {
	row, err := s.repo.Find(ctx, s.db, cycleID, unitID)
	if err != nil {
		return domain.StatementSnapshot{}, err
	}
	if row == nil {
		return domain.StatementSnapshot{}, domain.ErrNotFound
	}
	return *row, nil
}

func (s *Service) List(ctx context.Context, cycleID snowflake.ID) ([]domain.StatementSnapshot, error) {
	rows, err := s.repo.ListByCycle(ctx, s.db, cycleID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return referencedomain.CompareUnitCodes(rows[i].UnitCode, rows[j].UnitCode) < 0
	})
	return rows, nil
}
