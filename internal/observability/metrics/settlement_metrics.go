package metrics

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	pkgdb "github.com/somagouache/gouache/pkg/db"
	"gorm.io/gorm"
)

const (
	SettlementReasonDeadlineExceeded     = "deadline_exceeded"
	SettlementReasonDBLockTimeout        = "db_lock_timeout"
	SettlementReasonSerializationFailure = "serialization_failure"
	SettlementReasonUniqueViolation      = "unique_violation"
	SettlementReasonNotFound             = "not_found"
	SettlementReasonUnknown              = "unknown"
)

// SettlementMetrics captures webhook settlement latency and replay health for Prometheus scraping.
type SettlementMetrics struct {
	handleDuration *prometheus.HistogramVec
	replayRuns     prometheus.Counter
	replayed       *prometheus.CounterVec
	stockExhausted *prometheus.CounterVec
}

var (
	settlementMetricsOnce sync.Once
	settlementMetrics     *SettlementMetrics
)

// Settlement returns the singleton settlement metrics registry.
func Settlement() *SettlementMetrics {
	return SettlementWithConfig(Config{})
}

// SettlementWithConfig returns the singleton settlement metrics registry using config labels.
func SettlementWithConfig(cfg Config) *SettlementMetrics {
	settlementMetricsOnce.Do(func() {
		settlementMetrics = newSettlementMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return settlementMetrics
}

// ResetSettlementMetricsForTest resets the settlement metrics singleton for tests.
func ResetSettlementMetricsForTest() {
	settlementMetricsOnce = sync.Once{}
	settlementMetrics = nil
}

func newSettlementMetrics(registerer prometheus.Registerer, cfg Config) *SettlementMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "gouache"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	handleDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:        "gouache_settlement_handle_duration_seconds",
		Help:        "Time from webhook admission to acknowledgement by event type.",
		Buckets:     []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		ConstLabels: constLabels,
	}, []string{"event_type", "outcome"})
	replayRuns := prometheus.NewCounter(prometheus.CounterOpts{
		Name:        "gouache_settlement_replay_runs_total",
		Help:        "Replay sweeps executed.",
		ConstLabels: constLabels,
	})
	replayed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "gouache_settlement_replayed_events_total",
		Help:        "Stored events re-dispatched by the replay worker.",
		ConstLabels: constLabels,
	}, []string{"result"})
	stockExhausted := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "gouache_settlement_stock_exhausted_total",
		Help:        "Paid purchases that found no stock left to decrement.",
		ConstLabels: constLabels,
	}, []string{"item_type"})

	registerer.MustRegister(handleDuration, replayRuns, replayed, stockExhausted)

	return &SettlementMetrics{
		handleDuration: handleDuration,
		replayRuns:     replayRuns,
		replayed:       replayed,
		stockExhausted: stockExhausted,
	}
}

func (m *SettlementMetrics) ObserveHandle(eventType, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.handleDuration.WithLabelValues(normalizeLabel(eventType), normalizeLabel(outcome)).Observe(duration.Seconds())
}

func (m *SettlementMetrics) IncReplayRun() {
	if m == nil {
		return
	}
	m.replayRuns.Inc()
}

func (m *SettlementMetrics) IncReplayed(result string) {
	if m == nil {
		return
	}
	m.replayed.WithLabelValues(normalizeLabel(result)).Inc()
}

func (m *SettlementMetrics) IncStockExhausted(itemType string) {
	if m == nil {
		return
	}
	m.stockExhausted.WithLabelValues(normalizeLabel(itemType)).Inc()
}

func normalizeLabel(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "unknown"
	}
	return value
}

// ClassifySettlementError maps settlement failures to low-cardinality reasons.
func ClassifySettlementError(err error) string {
	if err == nil {
		return SettlementReasonUnknown
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return SettlementReasonDeadlineExceeded
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return SettlementReasonNotFound
	}
	switch pkgdb.PGCode(err) {
	case "55P03":
		return SettlementReasonDBLockTimeout
	case "40001":
		return SettlementReasonSerializationFailure
	}
	if pkgdb.IsDuplicateKeyErr(err) {
		return SettlementReasonUniqueViolation
	}
	return SettlementReasonUnknown
}

// IsSettlementErrorRetryable reports whether replaying the event may succeed.
func IsSettlementErrorRetryable(err error) bool {
	switch ClassifySettlementError(err) {
	case SettlementReasonDeadlineExceeded, SettlementReasonDBLockTimeout, SettlementReasonSerializationFailure:
		return true
	default:
		return false
	}
}
