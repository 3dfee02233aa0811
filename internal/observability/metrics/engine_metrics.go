package metrics

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
)

const (
	ActionCreate      = "create"
	ActionPublish     = "publish"
	ActionRecalculate = "recalculate"
	ActionLock        = "lock"
	ActionNotify      = "notify"
)

const (
	OutcomeSuccess              = "success"
	OutcomeRejected             = "rejected"
	OutcomeDeadlineExceeded     = "deadline_exceeded"
	OutcomeDBLockTimeout        = "db_lock_timeout"
	OutcomeSerializationFailure = "serialization_failure"
	OutcomeUniqueViolation      = "unique_violation"
	OutcomeDB                   = "db"
)

const (
	LockBackendRedis = "redis"
	LockBackendLocal = "local"
)

// Reasoner lets domain errors pick their own low-cardinality outcome label.
type Reasoner interface {
	MetricReason() string
}

// EngineMetrics captures billing cycle engine health signals.
type EngineMetrics struct {
	cycleActions      *prometheus.CounterVec
	actionDuration    *prometheus.HistogramVec
	statementsWritten prometheus.Counter
	lockWait          *prometheus.HistogramVec
	lockContention    *prometheus.CounterVec
	deliveries        *prometheus.CounterVec

	successCounts map[string]prometheus.Counter
}

var (
	engineMetricsOnce sync.Once
	engineMetrics     *EngineMetrics
)

// Engine returns the singleton engine metrics registry.
func Engine() *EngineMetrics {
	return EngineWithConfig(Config{})
}

// EngineWithConfig returns the singleton engine metrics registry using config labels.
func EngineWithConfig(cfg Config) *EngineMetrics {
	engineMetricsOnce.Do(func() {
		engineMetrics = newEngineMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return engineMetrics
}

// ResetEngineMetricsForTest resets the engine metrics singleton for tests.
func ResetEngineMetricsForTest() {
	engineMetricsOnce = sync.Once{}
	engineMetrics = nil
}

func constLabels(cfg Config) prometheus.Labels {
	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "buildingbills"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	return prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}
}

func newEngineMetrics(registerer prometheus.Registerer, cfg Config) *EngineMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	labels := constLabels(cfg)

	cycleActions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "buildingbills_cycle_actions_total",
		Help:        "Billing cycle lifecycle actions by outcome.",
		ConstLabels: labels,
	}, []string{"action", "outcome"})
	actionDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:        "buildingbills_cycle_action_duration_seconds",
		Help:        "Billing cycle action latency, including statement recomputation.",
		Buckets:     []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		ConstLabels: labels,
	}, []string{"action"})
	statementsWritten := prometheus.NewCounter(prometheus.CounterOpts{
		Name:        "buildingbills_statements_written_total",
		Help:        "Per-unit statements written by publish and recalculate.",
		ConstLabels: labels,
	})
	lockWait := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:        "buildingbills_cycle_lock_wait_seconds",
		Help:        "Time spent waiting on the per-cycle mutation lock.",
		Buckets:     []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		ConstLabels: labels,
	}, []string{"backend"})
	lockContention := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "buildingbills_cycle_lock_contention_total",
		Help:        "Per-cycle lock acquisitions that had to retry.",
		ConstLabels: labels,
	}, []string{"backend"})
	deliveries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "buildingbills_notification_deliveries_total",
		Help:        "Notification deliveries by provider and status.",
		ConstLabels: labels,
	}, []string{"provider", "status"})

	registerer.MustRegister(
		cycleActions,
		actionDuration,
		statementsWritten,
		lockWait,
		lockContention,
		deliveries,
	)

	successCounts := map[string]prometheus.Counter{}
	for _, action := range []string{ActionCreate, ActionPublish, ActionRecalculate, ActionLock, ActionNotify} {
		successCounts[action] = cycleActions.WithLabelValues(action, OutcomeSuccess)
	}

	return &EngineMetrics{
		cycleActions:      cycleActions,
		actionDuration:    actionDuration,
		statementsWritten: statementsWritten,
		lockWait:          lockWait,
		lockContention:    lockContention,
		deliveries:        deliveries,
		successCounts:     successCounts,
	}
}

// ObserveCycleAction records the outcome and latency of a cycle action.
func (m *EngineMetrics) ObserveCycleAction(action string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.actionDuration.WithLabelValues(action).Observe(duration.Seconds())
	if err == nil {
		if counter, ok := m.successCounts[action]; ok {
			counter.Inc()
			return
		}
	}
	m.cycleActions.WithLabelValues(action, ClassifyOutcome(err)).Inc()
}

// AddStatementsWritten increments the statements counter by count.
func (m *EngineMetrics) AddStatementsWritten(count int) {
	if m == nil || count <= 0 {
		return
	}
	m.statementsWritten.Add(float64(count))
}

// ObserveLockWait records how long a cycle lock took to acquire.
func (m *EngineMetrics) ObserveLockWait(backend string, duration time.Duration, contended bool) {
	if m == nil {
		return
	}
	if duration < 0 {
		duration = 0
	}
	m.lockWait.WithLabelValues(backend).Observe(duration.Seconds())
	if contended {
		m.lockContention.WithLabelValues(backend).Inc()
	}
}

// IncDelivery counts a single notification attempt.
func (m *EngineMetrics) IncDelivery(provider, status string) {
	if m == nil {
		return
	}
	m.deliveries.WithLabelValues(strings.TrimSpace(provider), strings.TrimSpace(status)).Inc()
}

// ClassifyOutcome maps an action error to a low-cardinality outcome label.
func ClassifyOutcome(err error) string {
	if err == nil {
		return OutcomeSuccess
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return OutcomeDeadlineExceeded
	}
	var reasoner Reasoner
	if errors.As(err, &reasoner) {
		if reason := strings.TrimSpace(reasoner.MetricReason()); reason != "" {
			return reason
		}
	}
	switch {
	case hasPGCode(err, "55P03"):
		return OutcomeDBLockTimeout
	case hasPGCode(err, "40001"), hasPGCode(err, "40P01"):
		return OutcomeSerializationFailure
	case errors.Is(err, gorm.ErrDuplicatedKey), hasPGCode(err, "23505"):
		return OutcomeUniqueViolation
	case isDBError(err):
		return OutcomeDB
	}
	return OutcomeRejected
}

func hasPGCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == code
	}
	return false
}

func isDBError(err error) bool {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false
	}
	if errors.Is(err, gorm.ErrInvalidDB) ||
		errors.Is(err, gorm.ErrInvalidTransaction) ||
		errors.Is(err, gorm.ErrInvalidField) ||
		errors.Is(err, gorm.ErrInvalidData) ||
		errors.Is(err, gorm.ErrMissingWhereClause) ||
		errors.Is(err, gorm.ErrInvalidValue) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr)
}
