package replay

import (
	"context"
	"errors"
	"time"

	"github.com/somagouache/gouache/internal/clock"
	"github.com/somagouache/gouache/internal/config"
	obsmetrics "github.com/somagouache/gouache/internal/observability/metrics"
	paymentdomain "github.com/somagouache/gouache/internal/payment/domain"
	"github.com/somagouache/gouache/internal/ratelimit"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const lockKey = "payment.replay"

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	Repo       paymentdomain.Repository
	Settlement paymentdomain.SettlementService
	Clock      clock.Clock
	Config     config.Config
	Locker     *ratelimit.Locker             `optional:"true"`
	Metrics    *obsmetrics.SettlementMetrics `optional:"true"`
}

// Worker re-applies admitted events whose effects never completed.
type Worker struct {
	db         *gorm.DB
	log        *zap.Logger
	repo       paymentdomain.Repository
	settlement paymentdomain.SettlementService
	clock      clock.Clock
	locker     *ratelimit.Locker
	metrics    *obsmetrics.SettlementMetrics
	cfg        config.ReplayConfig
}

func New(p Params) *Worker {
	cfg := p.Config.Replay
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 10
	}
	clk := p.Clock
	if clk == nil {
		clk = clock.New()
	}
	return &Worker{
		db:         p.DB,
		log:        p.Log.Named("payment.replay"),
		repo:       p.Repo,
		settlement: p.Settlement,
		clock:      clk,
		locker:     p.Locker,
		metrics:    p.Metrics,
		cfg:        cfg,
	}
}

// RunOnce replays one batch and reports how many events were picked up.
func (w *Worker) RunOnce(ctx context.Context) (int, error) {
	processed := 0
	acquired, err := w.locker.WithLock(ctx, lockKey, 2*w.cfg.Interval, func(ctx context.Context) error {
		n, err := w.replayBatch(ctx)
		processed = n
		return err
	})
	if err != nil {
		return processed, err
	}
	if !acquired {
		w.log.Debug("replay skipped; another instance holds the lease")
		return 0, nil
	}
	w.metrics.IncReplayRun()
	return processed, nil
}

func (w *Worker) replayBatch(ctx context.Context) (int, error) {
	receivedBefore := w.clock.Now().Add(-w.cfg.Delay)
	records, err := w.repo.ListUnprocessed(ctx, w.db, receivedBefore, w.cfg.MaxAttempts, w.cfg.BatchSize)
	if err != nil {
		return 0, err
	}

	var runErr error
	for _, record := range records {
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		outcome, err := w.settlement.Replay(ctx, record)
		if err != nil {
			w.metrics.IncReplayed("error")
			w.log.Warn("replay failed",
				zap.String("provider_event_id", record.ProviderEventID),
				zap.String("event_type", record.EventType),
				zap.Error(err),
			)
			runErr = errors.Join(runErr, err)
			continue
		}
		w.metrics.IncReplayed(string(outcome))
		w.log.Info("event replayed",
			zap.String("provider_event_id", record.ProviderEventID),
			zap.String("event_type", record.EventType),
			zap.String("outcome", string(outcome)),
			zap.Int("attempts", record.Attempts),
		)
	}
	return len(records), runErr
}

func (w *Worker) RunForever(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()

	for {
		if _, err := w.RunOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
			w.log.Warn("replay run failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
