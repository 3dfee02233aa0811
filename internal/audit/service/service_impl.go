package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/buildingbills/internal/audit/domain"
	"github.com/smallbiznis/buildingbills/internal/audit/masking"
	"github.com/smallbiznis/buildingbills/internal/clock"
	obscontext "github.com/smallbiznis/buildingbills/internal/observability/context"
	"github.com/smallbiznis/buildingbills/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  auditdomain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  auditdomain.Repository
}

func NewService(p Params) auditdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("audit.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Record(ctx context.Context, tx *gorm.DB, in auditdomain.RecordInput) error {
	action := auditdomain.Action(strings.TrimSpace(string(in.Action)))
	if action == "" {
		return auditdomain.ErrInvalidAction
	}
	table := strings.TrimSpace(in.Table)
	if table == "" {
		return auditdomain.ErrInvalidTable
	}
	recordID := strings.TrimSpace(in.RecordID)
	if recordID == "" {
		return auditdomain.ErrInvalidRecordID
	}
	actorID := strings.TrimSpace(in.ActorID)
	if actorID == "" {
		actorID, _ = obscontext.ActorFromContext(ctx)
	}
	if actorID == "" {
		return auditdomain.ErrInvalidActor
	}

	payload := masking.MaskMetadata(in.Metadata)
	if requestID := obscontext.RequestIDFromContext(ctx); requestID != "" {
		if payload == nil {
			payload = map[string]any{}
		}
		payload["request_id"] = requestID
	}

	entry := auditdomain.Entry{
		ID:        s.genID.Generate(),
		Table:     table,
		RecordID:  recordID,
		Action:    action,
		ActorID:   actorID,
		CycleID:   in.CycleID,
		CreatedAt: s.clock.Now(),
	}
	if payload != nil {
		entry.Metadata = datatypes.JSONMap(payload)
	}

	if tx == nil {
		tx = s.db
	}
	if err := s.repo.Insert(ctx, tx, &entry); err != nil {
		s.log.Warn("failed to write audit entry",
			zap.String("table_name", table),
			zap.String("action", string(action)),
			zap.Error(err),
		)
		return err
	}
	return nil
}

func (s *Service) List(ctx context.Context, req auditdomain.ListRequest) (auditdomain.ListResponse, error) {
	cursor, err := pagination.DecodeCursor(req.PageToken)
	if err != nil {
		return auditdomain.ListResponse{}, err
	}

	limit := req.Limit()
	filter := auditdomain.ListFilter{
		Table:   req.Table,
		Action:  req.Action,
		ActorID: req.ActorID,
		CycleID: req.CycleID,
		Limit:   limit,
	}
	if cursor != nil {
		filter.AfterID = snowflake.ID(cursor.ID)
	}

	items, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return auditdomain.ListResponse{}, err
	}

	entries, pageInfo, err := pagination.BuildCursorPageInfo(items, limit, func(item auditdomain.Entry) pagination.Cursor {
		return pagination.Cursor{ID: item.ID.Int64()}
	})
	if err != nil {
		return auditdomain.ListResponse{}, err
	}
	if entries == nil {
		entries = []auditdomain.Entry{}
	}

	return auditdomain.ListResponse{PageInfo: pageInfo, Entries: entries}, nil
}

func (s *Service) Timeline(ctx context.Context, cycleID snowflake.ID) ([]auditdomain.Entry, error) {
	entries, err := s.repo.ListByCycle(ctx, s.db, cycleID)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []auditdomain.Entry{}
	}
	return entries, nil
}
