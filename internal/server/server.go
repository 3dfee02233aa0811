package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	auditdomain "github.com/smallbiznis/buildingbills/internal/audit/domain"
	"github.com/smallbiznis/buildingbills/internal/authorization"
	billingcycledomain "github.com/smallbiznis/buildingbills/internal/billingcycle/domain"
	chargedomain "github.com/smallbiznis/buildingbills/internal/charge/domain"
	"github.com/smallbiznis/buildingbills/internal/config"
	notificationdomain "github.com/smallbiznis/buildingbills/internal/notification/domain"
	"github.com/smallbiznis/buildingbills/internal/observability"
	obsmiddleware "github.com/smallbiznis/buildingbills/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/buildingbills/internal/observability/metrics"
	obstracing "github.com/smallbiznis/buildingbills/internal/observability/tracing"
	paymentdomain "github.com/smallbiznis/buildingbills/internal/payment/domain"
	referencedomain "github.com/smallbiznis/buildingbills/internal/reference/domain"
	snapshotdomain "github.com/smallbiznis/buildingbills/internal/snapshot/domain"
	statementdomain "github.com/smallbiznis/buildingbills/internal/statement/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(httpMetrics.Middleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine          *gin.Engine
	log             *zap.Logger
	authzSvc        authorization.Service
	auditSvc        auditdomain.Service
	cycleSvc        billingcycledomain.Service
	chargeSvc       chargedomain.Service
	paymentSvc      paymentdomain.Service
	statementSvc    statementdomain.Service
	snapshotSvc     snapshotdomain.Service
	notificationSvc notificationdomain.Service
	referenceSvc    referencedomain.Service
}

type ServerParams struct {
	fx.In

	Gin             *gin.Engine
	Log             *zap.Logger
	AuthzSvc        authorization.Service
	AuditSvc        auditdomain.Service
	CycleSvc        billingcycledomain.Service
	ChargeSvc       chargedomain.Service
	PaymentSvc      paymentdomain.Service
	StatementSvc    statementdomain.Service
	SnapshotSvc     snapshotdomain.Service
	NotificationSvc notificationdomain.Service
	ReferenceSvc    referencedomain.Service
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:          p.Gin,
		log:             p.Log.Named("http.server"),
		authzSvc:        p.AuthzSvc,
		auditSvc:        p.AuditSvc,
		cycleSvc:        p.CycleSvc,
		chargeSvc:       p.ChargeSvc,
		paymentSvc:      p.PaymentSvc,
		statementSvc:    p.StatementSvc,
		snapshotSvc:     p.SnapshotSvc,
		notificationSvc: p.NotificationSvc,
		referenceSvc:    p.ReferenceSvc,
	}

	svc.registerAPIRoutes()
	svc.registerFallback()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api", ActorRequired())

	// -------- Billing cycles --------
	api.GET("/cycles", s.authorize(authorization.ObjectBillingCycle, authorization.ActionBillingCycleView), s.ListCycles)
	api.POST("/cycles", s.authorize(authorization.ObjectBillingCycle, authorization.ActionBillingCycleManage), s.CreateCycle)
	api.GET("/cycles/:id", s.authorize(authorization.ObjectBillingCycle, authorization.ActionBillingCycleView), s.GetCycle)
	api.GET("/periods/:period", s.authorize(authorization.ObjectBillingCycle, authorization.ActionBillingCycleView), s.GetCycleByPeriod)
	api.POST("/cycles/:id/publish", s.authorize(authorization.ObjectBillingCycle, authorization.ActionBillingCycleManage), s.PublishCycle)
	api.POST("/cycles/:id/recalculate", s.authorize(authorization.ObjectBillingCycle, authorization.ActionBillingCycleManage), s.RecalculateCycle)
	api.POST("/cycles/:id/lock", s.authorize(authorization.ObjectBillingCycle, authorization.ActionBillingCycleManage), s.LockCycle)
	api.GET("/cycles/:id/checklist", s.authorize(authorization.ObjectBillingCycle, authorization.ActionBillingCycleView), s.GetChecklist)
	api.GET("/cycles/:id/summary", s.authorize(authorization.ObjectBillingCycle, authorization.ActionBillingCycleView), s.GetSummary)
	api.GET("/cycles/:id/timeline", s.authorize(authorization.ObjectAuditLog, authorization.ActionAuditLogView), s.GetTimeline)

	// -------- Charges --------
	api.GET("/cycles/:id/common-charges", s.authorize(authorization.ObjectCharge, authorization.ActionChargeManage), s.ListCommonCharges)
	api.PUT("/cycles/:id/common-charges", s.authorize(authorization.ObjectCharge, authorization.ActionChargeManage), s.UpsertCommonCharge)
	api.DELETE("/cycles/:id/common-charges/:chargeId", s.authorize(authorization.ObjectCharge, authorization.ActionChargeManage), s.DeleteCommonCharge)
	api.GET("/cycles/:id/individual-charges", s.authorize(authorization.ObjectCharge, authorization.ActionChargeManage), s.ListIndividualCharges)
	api.PUT("/cycles/:id/individual-charges", s.authorize(authorization.ObjectCharge, authorization.ActionChargeManage), s.SaveIndividualCharges)

	// -------- Payments --------
	api.GET("/cycles/:id/payments", s.authorize(authorization.ObjectPayment, authorization.ActionPaymentRecord), s.ListPayments)
	api.POST("/cycles/:id/payments", s.authorize(authorization.ObjectPayment, authorization.ActionPaymentRecord), s.RecordPayment)

	// -------- Statements --------
	api.GET("/cycles/:id/statements", s.authorize(authorization.ObjectStatement, authorization.ActionStatementViewAmount), s.ListStatements)
	api.GET("/cycles/:id/statements/:unitId", s.authorize(authorization.ObjectStatement, authorization.ActionStatementView), s.GetStatement)
	api.GET("/cycles/:id/board", s.authorize(authorization.ObjectStatement, authorization.ActionStatementBoard), s.GetStatusBoard)
	api.GET("/cycles/:id/snapshots", s.authorize(authorization.ObjectStatement, authorization.ActionStatementViewAmount), s.ListSnapshots)
	api.GET("/me/:period", s.authorize(authorization.ObjectStatement, authorization.ActionStatementView), s.GetMyStatement)

	// -------- Notifications --------
	api.POST("/cycles/:id/notifications", s.authorize(authorization.ObjectNotification, authorization.ActionNotificationSend), s.DispatchNotifications)
	api.GET("/cycles/:id/notifications", s.authorize(authorization.ObjectNotification, authorization.ActionNotificationHistory), s.ListNotifications)

	// -------- Reference data --------
	api.GET("/units", s.authorize(authorization.ObjectReference, authorization.ActionReferenceManage), s.ListUnits)
	api.POST("/units", s.authorize(authorization.ObjectReference, authorization.ActionReferenceManage), s.CreateUnit)
	api.GET("/units/:id", s.authorize(authorization.ObjectReference, authorization.ActionReferenceManage), s.GetUnit)
	api.PATCH("/units/:id", s.authorize(authorization.ObjectReference, authorization.ActionReferenceManage), s.UpdateUnit)
	api.POST("/units/:id/activate", s.authorize(authorization.ObjectReference, authorization.ActionReferenceManage), s.ActivateUnit)
	api.POST("/units/:id/deactivate", s.authorize(authorization.ObjectReference, authorization.ActionReferenceManage), s.DeactivateUnit)
	api.GET("/categories", s.authorize(authorization.ObjectReference, authorization.ActionReferenceManage), s.ListCategories)
	api.POST("/categories", s.authorize(authorization.ObjectReference, authorization.ActionReferenceManage), s.CreateCategory)
	api.PATCH("/categories/:id", s.authorize(authorization.ObjectReference, authorization.ActionReferenceManage), s.RenameCategory)
	api.POST("/categories/:id/activate", s.authorize(authorization.ObjectReference, authorization.ActionReferenceManage), s.ActivateCategory)
	api.POST("/categories/:id/deactivate", s.authorize(authorization.ObjectReference, authorization.ActionReferenceManage), s.DeactivateCategory)

	// -------- Audit --------
	api.GET("/audit-logs", s.authorize(authorization.ObjectAuditLog, authorization.ActionAuditLogView), s.ListAuditLogs)
}

func (s *Server) registerFallback() {
	s.engine.NoRoute(func(c *gin.Context) {
		AbortWithError(c, ErrNotFound)
	})
}
