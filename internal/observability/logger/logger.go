package logger

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	obscontext "github.com/somagouache/gouache/internal/observability/context"
	"github.com/somagouache/gouache/pkg/telemetry/correlation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// unsampledPrefix marks loggers whose entries form the settlement audit trail.
// The sampler never drops them, however noisy a webhook storm gets.
const unsampledPrefix = "payment."

type Config struct {
	ServiceName string
	Environment string
	Version     string
	Level       string
	Format      string
	Debug       bool
}

// New builds the process logger, installs it as the zap global and flushes it on stop.
func New(lc fx.Lifecycle, cfg Config) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(cfg.Level))); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	if normalizeFormat(cfg.Format) == "console" {
		encoder = zapcore.NewConsoleEncoder(encCfg)
	} else {
		encoder = zapcore.NewJSONEncoder(encCfg)
	}

	core := zapcore.NewCore(encoder, zapcore.Lock(os.Stdout), zap.NewAtomicLevelAt(level))
	opts := []zap.Option{zap.AddCaller(), zap.ErrorOutput(zapcore.Lock(os.Stderr))}
	if cfg.Debug {
		opts = append(opts, zap.AddStacktrace(zapcore.ErrorLevel))
	}

	log := zap.New(newAuditSampler(core), opts...).With(
		zap.String("service", firstNonEmpty(cfg.ServiceName, "gouache")),
		zap.String("env", strings.TrimSpace(cfg.Environment)),
		zap.String("version", strings.TrimSpace(cfg.Version)),
	)
	zap.ReplaceGlobals(log)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(context.Context) error {
				_ = log.Sync()
				return nil
			},
		})
	}
	return log, nil
}

// auditSampler samples everything except entries from payment.* loggers.
type auditSampler struct {
	full    zapcore.Core
	sampled zapcore.Core
}

func newAuditSampler(core zapcore.Core) zapcore.Core {
	return &auditSampler{
		full:    core,
		sampled: zapcore.NewSamplerWithOptions(core, time.Second, 100, 100),
	}
}

func (s *auditSampler) Enabled(level zapcore.Level) bool { return s.full.Enabled(level) }

func (s *auditSampler) With(fields []zapcore.Field) zapcore.Core {
	return &auditSampler{full: s.full.With(fields), sampled: s.sampled.With(fields)}
}

func (s *auditSampler) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if strings.HasPrefix(ent.LoggerName, unsampledPrefix) {
		return s.full.Check(ent, ce)
	}
	return s.sampled.Check(ent, ce)
}

func (s *auditSampler) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	return s.full.Write(ent, fields)
}

func (s *auditSampler) Sync() error { return s.full.Sync() }

func normalizeFormat(format string) string {
	if strings.EqualFold(strings.TrimSpace(format), "console") {
		return "console"
	}
	return "json"
}

func firstNonEmpty(value, def string) string {
	if value = strings.TrimSpace(value); value != "" {
		return value
	}
	return def
}

// FromContext returns the global logger enriched with request and settlement fields.
func FromContext(ctx context.Context) *zap.Logger {
	return WithContext(ctx, zap.L())
}

// WithContext adds the ids carried on ctx. Only ids that are present are logged.
func WithContext(ctx context.Context, base *zap.Logger) *zap.Logger {
	if ctx == nil || base == nil {
		return base
	}
	fields := contextFields(ctx)
	if len(fields) == 0 {
		return base
	}
	return base.With(fields...)
}

func contextFields(ctx context.Context) []zap.Field {
	var fields []zap.Field
	add := func(key, value string) {
		if value != "" {
			fields = append(fields, zap.String(key, value))
		}
	}
	add("request_id", obscontext.RequestIDFromContext(ctx))
	add("correlation_id", correlation.ExtractCorrelationID(ctx))
	add("event_id", obscontext.EventIDFromContext(ctx))
	add("payment_intent_id", obscontext.PaymentIntentIDFromContext(ctx))
	add("buyer_id", obscontext.BuyerIDFromContext(ctx))

	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		add("trace_id", sc.TraceID().String())
		add("span_id", sc.SpanID().String())
	}
	return fields
}
