package logger

import (
	"context"
	"errors"
	"testing"
	"time"

	obscontext "github.com/somagouache/gouache/internal/observability/context"
	"github.com/somagouache/gouache/pkg/telemetry/correlation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

func settlementContext() context.Context {
	ctx := obscontext.WithRequestID(context.Background(), "req-1")
	ctx = obscontext.WithEventID(ctx, "evt_123")
	ctx = obscontext.WithPaymentIntentID(ctx, "pi_123")
	return correlation.ForEvent(ctx, "evt_123")
}

func TestWithContextAddsSettlementFields(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)

	WithContext(settlementContext(), zap.New(core)).Info("hello")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "req-1", fields["request_id"])
	assert.Equal(t, "evt_123", fields["event_id"])
	assert.Equal(t, "pi_123", fields["payment_intent_id"])
	assert.Equal(t, "evt_123", fields["correlation_id"])
	assert.NotContains(t, fields, "buyer_id")
	assert.NotContains(t, fields, "trace_id")
}

func TestAuditSamplerKeepsPaymentLogs(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	log := zap.New(newAuditSampler(core))

	for i := 0; i < 300; i++ {
		log.Named("http").Info("http_request")
		log.Named("payment.settlement").Info("sale settled")
	}

	assert.Equal(t, 300, logs.FilterLoggerName("payment.settlement").Len())
	assert.Less(t, logs.FilterLoggerName("http").Len(), 300)
}

func TestGormLoggerWritesFailuresWithEventFields(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	gl := NewGormLogger(zap.New(core), DefaultGormLoggerConfig())
	ctx := settlementContext()
	query := func() (string, int64) { return `UPDATE artworks SET stock = stock - 1 WHERE id = ?`, 0 }

	gl.Trace(ctx, time.Now(), query, errors.New("lock timeout"))
	gl.Trace(ctx, time.Now(), query, gormlogger.ErrRecordNotFound)
	gl.Trace(ctx, time.Now(), query, nil)
	gl.Trace(ctx, time.Now().Add(-time.Second), query, nil)

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, zapcore.ErrorLevel, entries[0].Level)
	assert.Equal(t, "query failed", entries[0].Message)
	fields := entries[0].ContextMap()
	assert.Equal(t, "pi_123", fields["payment_intent_id"])
	assert.Equal(t, "evt_123", fields["event_id"])
	assert.Equal(t, "artworks", fields["table"])
	assert.Equal(t, "UPDATE", fields["operation"])

	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, "slow query", entries[1].Message)
}

func TestStatementSummary(t *testing.T) {
	cases := []struct {
		sql   string
		op    string
		table string
	}{
		{`INSERT INTO sales (id) VALUES (1) ON CONFLICT (payment_intent_id) DO NOTHING`, "INSERT", "sales"},
		{`  update artworks set stock = stock - 1`, "UPDATE", "artworks"},
		{`SELECT count(*) FROM "payment_events" WHERE processed_at IS NULL`, "SELECT", "payment_events"},
		{`WITH x AS (SELECT 1) SELECT * FROM x`, "SELECT", "x"},
		{`DELETE FROM settlement_errors`, "DELETE", "settlement_errors"},
		{``, "UNKNOWN", ""},
	}
	for _, tc := range cases {
		op, table := statementSummary(tc.sql)
		assert.Equal(t, tc.op, op, tc.sql)
		assert.Equal(t, tc.table, table, tc.sql)
	}
}

func TestNormalizeFormat(t *testing.T) {
	assert.Equal(t, "console", normalizeFormat(" Console "))
	assert.Equal(t, "json", normalizeFormat("xml"))
}
