package metrics

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestClassifySettlementError(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{context.DeadlineExceeded, SettlementReasonDeadlineExceeded},
		{fmt.Errorf("load: %w", gorm.ErrRecordNotFound), SettlementReasonNotFound},
		{&pgconn.PgError{Code: "55P03"}, SettlementReasonDBLockTimeout},
		{&pgconn.PgError{Code: "40001"}, SettlementReasonSerializationFailure},
		{&pgconn.PgError{Code: "23505"}, SettlementReasonUniqueViolation},
		{errors.New("boom"), SettlementReasonUnknown},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ClassifySettlementError(tc.err))
	}
	assert.True(t, IsSettlementErrorRetryable(&pgconn.PgError{Code: "40001"}))
	assert.False(t, IsSettlementErrorRetryable(errors.New("boom")))
}

func TestSettlementMetricsRecords(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := newSettlementMetrics(registry, Config{ServiceName: "gouache", Environment: "test"})

	m.ObserveHandle("payment_intent.succeeded", "settled", 20*time.Millisecond)
	m.IncStockExhausted("print")
	m.IncStockExhausted("print")
	m.IncReplayed("")

	assert.Equal(t, float64(2), testutil.ToFloat64(m.stockExhausted.WithLabelValues("print")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.replayed.WithLabelValues("unknown")))
	assert.Equal(t, uint64(1), histogramCount(t, registry, "gouache_settlement_handle_duration_seconds", map[string]string{
		"event_type": "payment_intent.succeeded",
		"outcome":    "settled",
	}))
}

func histogramCount(t *testing.T, registry *prometheus.Registry, name string, labels map[string]string) uint64 {
	t.Helper()
	families, err := registry.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, metric := range family.Metric {
			if labelsMatch(metric, labels) {
				return metric.GetHistogram().GetSampleCount()
			}
		}
	}
	return 0
}

// labelsMatch ignores the constant service and env labels.
func labelsMatch(metric *dto.Metric, labels map[string]string) bool {
	matched := 0
	for _, pair := range metric.Label {
		want, ok := labels[pair.GetName()]
		if !ok {
			continue
		}
		if pair.GetValue() != want {
			return false
		}
		matched++
	}
	return matched == len(labels)
}
