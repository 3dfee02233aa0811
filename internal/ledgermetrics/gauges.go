package ledgermetrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	billingcycledomain "github.com/smallbiznis/buildingbills/internal/billingcycle/domain"
	referencedomain "github.com/smallbiznis/buildingbills/internal/reference/domain"
	snapshotdomain "github.com/smallbiznis/buildingbills/internal/snapshot/domain"
	statementdomain "github.com/smallbiznis/buildingbills/internal/statement/domain"
	"gorm.io/gorm"
)

// Gauges is a point-in-time view of the building ledger, kept on its own
// registry so pushes carry ledger state only.
type Gauges struct {
	registry    *prometheus.Registry
	activeUnits prometheus.Gauge
	cycles      *prometheus.GaugeVec
	outstanding *prometheus.GaugeVec
	credit      *prometheus.GaugeVec
}

func NewGauges() *Gauges {
	g := &Gauges{
		registry: prometheus.NewRegistry(),
		activeUnits: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "buildingbills_ledger_active_units",
			Help: "Units currently billed.",
		}),
		cycles: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "buildingbills_ledger_cycles",
			Help: "Billing cycles by status.",
		}, []string{"status"}),
		outstanding: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "buildingbills_ledger_outstanding_due",
			Help: "Sum of positive closing dues of the latest non-draft cycle.",
		}, []string{"period"}),
		credit: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "buildingbills_ledger_credit_balance",
			Help: "Sum of negative closing dues of the latest non-draft cycle.",
		}, []string{"period"}),
	}
	g.registry.MustRegister(g.activeUnits, g.cycles, g.outstanding, g.credit)
	return g
}

func (g *Gauges) Gatherer() prometheus.Gatherer { return g.registry }

// Refresh reloads every gauge from the database.
func (g *Gauges) Refresh(ctx context.Context, db *gorm.DB) error {
	var active int64
	if err := db.WithContext(ctx).Model(&referencedomain.Unit{}).Where("is_active = ?", true).Count(&active).Error; err != nil {
		return err
	}
	g.activeUnits.Set(float64(active))

	var byStatus []struct {
		Status billingcycledomain.Status
		Total  int64
	}
	if err := db.WithContext(ctx).
		Model(&billingcycledomain.BillingCycle{}).
		Select("status, COUNT(*) AS total").
		Group("status").
		Scan(&byStatus).Error; err != nil {
		return err
	}
	g.cycles.Reset()
	for _, status := range []billingcycledomain.Status{billingcycledomain.StatusDraft, billingcycledomain.StatusPublished, billingcycledomain.StatusLocked} {
		g.cycles.WithLabelValues(string(status)).Set(0)
	}
	for _, row := range byStatus {
		g.cycles.WithLabelValues(string(row.Status)).Set(float64(row.Total))
	}

	var latest billingcycledomain.BillingCycle
	res := db.WithContext(ctx).
		Where("status <> ?", billingcycledomain.StatusDraft).
		Order("period desc").
		Limit(1).
		Find(&latest)
	if res.Error != nil {
		return res.Error
	}
	g.outstanding.Reset()
	g.credit.Reset()
	if res.RowsAffected == 0 {
		return nil
	}

	var model any = &statementdomain.Statement{}
	if latest.IsLocked() {
		model = &snapshotdomain.StatementSnapshot{}
	}
	var totals struct {
		Outstanding float64
		Credit      float64
	}
	if err := db.WithContext(ctx).
		Model(model).
		Select(`COALESCE(SUM(CASE WHEN closing_due > 0 THEN closing_due ELSE 0 END), 0) AS outstanding,
			COALESCE(SUM(CASE WHEN closing_due < 0 THEN -closing_due ELSE 0 END), 0) AS credit`).
		Where("cycle_id = ?", latest.ID).
		Scan(&totals).Error; err != nil {
		return err
	}
	g.outstanding.WithLabelValues(latest.Period).Set(totals.Outstanding)
	g.credit.WithLabelValues(latest.Period).Set(totals.Credit)
	return nil
}
