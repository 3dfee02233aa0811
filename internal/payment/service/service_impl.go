package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/buildingbills/internal/audit/domain"
	billingcycledomain "github.com/smallbiznis/buildingbills/internal/billingcycle/domain"
	"github.com/smallbiznis/buildingbills/internal/clock"
	"github.com/smallbiznis/buildingbills/internal/observability/metrics"
	paymentdomain "github.com/smallbiznis/buildingbills/internal/payment/domain"
	referencedomain "github.com/smallbiznis/buildingbills/internal/reference/domain"
	"github.com/smallbiznis/buildingbills/pkg/money"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const paidOnLayout = "2006-01-02"

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	AuditSvc  auditdomain.Service
	CycleRepo billingcycledomain.Repository
	Metrics   *metrics.Metrics `optional:"true"`
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	clock     clock.Clock
	auditSvc  auditdomain.Service
	cycleRepo billingcycledomain.Repository
	metrics   *metrics.Metrics
}

func NewService(p Params) paymentdomain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("payment.service"),
		genID:     p.GenID,
		clock:     p.Clock,
		auditSvc:  p.AuditSvc,
		cycleRepo: p.CycleRepo,
		metrics:   p.Metrics,
	}
}

func (s *Service) Record(ctx context.Context, req paymentdomain.RecordRequest) (paymentdomain.Payment, error) {
	if req.UnitID == 0 {
		return paymentdomain.Payment{}, paymentdomain.ErrInvalidUnit
	}
	amount := money.Round(req.Amount)
	if !money.Positive(amount) {
		return paymentdomain.Payment{}, paymentdomain.ErrInvalidAmount
	}
	paidOn, err := time.Parse(paidOnLayout, strings.TrimSpace(req.PaidOn))
	if err != nil {
		return paymentdomain.Payment{}, paymentdomain.ErrInvalidPaidOn
	}
	method := paymentdomain.Method(strings.ToLower(strings.TrimSpace(string(req.Method))))
	if method != "" && !method.Valid() {
		return paymentdomain.Payment{}, paymentdomain.ErrInvalidMethod
	}

	payment := paymentdomain.Payment{
		ID:         s.genID.Generate(),
		UnitID:     req.UnitID,
		Amount:     amount,
		PaidOn:     paidOn.UTC(),
		Method:     method,
		Reference:  strings.TrimSpace(req.Reference),
		Notes:      strings.TrimSpace(req.Notes),
		ReceivedBy: req.ActorID,
		CreatedAt:  s.clock.Now(),
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cycle, err := s.cycleRepo.Claim(ctx, tx, req.CycleID)
		if err != nil {
			return err
		}
		payment.CycleID = cycle.ID

		var unit referencedomain.Unit
		if err := tx.WithContext(ctx).Where("id = ?", req.UnitID).Take(&unit).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return paymentdomain.ErrInvalidUnit
			}
			return err
		}

		if err := tx.WithContext(ctx).Create(&payment).Error; err != nil {
			return err
		}

		return s.auditSvc.Record(ctx, tx, auditdomain.RecordInput{
			Table:    payment.TableName(),
			RecordID: payment.ID.String(),
			Action:   auditdomain.ActionCreate,
			ActorID:  req.ActorID,
			CycleID:  &cycle.ID,
			Metadata: map[string]any{
				"unit_code": unit.Code,
				"amount":    amount.StringFixed(money.Precision),
				"method":    string(method),
				"paid_on":   payment.PaidOn.Format(paidOnLayout),
			},
		})
	})
	if err != nil {
		return paymentdomain.Payment{}, err
	}

	s.metrics.RecordPayment(ctx, string(method))
	return payment, nil
}

func (s *Service) List(ctx context.Context, req paymentdomain.ListRequest) ([]paymentdomain.PaymentView, error) {
	cycle, err := s.cycleRepo.FindByID(ctx, s.db, req.CycleID)
	if err != nil {
		return nil, err
	}
	if cycle == nil {
		return nil, billingcycledomain.ErrNotFound
	}

	stmt := s.db.WithContext(ctx).
		Table("payments AS p").
		Select("p.*, u.unit_code AS unit_code").
		Joins("JOIN units AS u ON u.id = p.unit_id").
		Where("p.cycle_id = ?", req.CycleID)
	if req.UnitID != nil {
		stmt = stmt.Where("p.unit_id = ?", *req.UnitID)
	}

	var rows []paymentdomain.PaymentView
	if err := stmt.Order("p.paid_on desc, p.id desc").Scan(&rows).Error; err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []paymentdomain.PaymentView{}
	}
	return rows, nil
}
