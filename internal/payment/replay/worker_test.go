package replay

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/somagouache/gouache/internal/clock"
	"github.com/somagouache/gouache/internal/config"
	paymentdomain "github.com/somagouache/gouache/internal/payment/domain"
	paymentrepository "github.com/somagouache/gouache/internal/payment/repository"
	"github.com/somagouache/gouache/internal/testsupport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

type recordingSettlement struct {
	mu       sync.Mutex
	replayed []string
	fail     map[string]error
}

func (r *recordingSettlement) HandleEvent(ctx context.Context, payload []byte, signatureHeader string) (paymentdomain.Outcome, error) {
	return "", errors.New("not used")
}

func (r *recordingSettlement) Replay(ctx context.Context, record paymentdomain.EventRecord) (paymentdomain.Outcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.replayed = append(r.replayed, record.ProviderEventID)
	if err := r.fail[record.ProviderEventID]; err != nil {
		return "", err
	}
	return paymentdomain.OutcomeSettled, nil
}

func TestRunOnceReplaysStaleUnprocessedEvents(t *testing.T) {
	db := testsupport.OpenDB(t)
	repo := paymentrepository.Provide()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	processedAt := now.Add(-time.Hour)

	seed := []paymentdomain.EventRecord{
		{ID: 1, ProviderEventID: "evt_stale", ReceivedAt: now.Add(-10 * time.Minute)},
		{ID: 2, ProviderEventID: "evt_fresh", ReceivedAt: now.Add(-30 * time.Second)},
		{ID: 3, ProviderEventID: "evt_done", ReceivedAt: now.Add(-time.Hour), ProcessedAt: &processedAt},
		{ID: 4, ProviderEventID: "evt_exhausted", ReceivedAt: now.Add(-time.Hour), Attempts: 10},
		{ID: 5, ProviderEventID: "evt_older", ReceivedAt: now.Add(-20 * time.Minute)},
	}
	for _, record := range seed {
		record.Provider = "stripe"
		record.EventType = paymentdomain.EventTypePaymentSucceeded
		record.Payload = datatypes.JSON(`{}`)
		inserted, err := repo.InsertEvent(context.Background(), db, &record)
		require.NoError(t, err)
		require.True(t, inserted)
	}

	settlement := &recordingSettlement{}
	worker := New(Params{
		DB:         db,
		Log:        zap.NewNop(),
		Repo:       repo,
		Settlement: settlement,
		Clock:      clock.NewFakeClock(now),
		Config: config.Config{Replay: config.ReplayConfig{
			Interval:    time.Minute,
			Delay:       2 * time.Minute,
			BatchSize:   10,
			MaxAttempts: 10,
		}},
	})

	n, err := worker.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"evt_older", "evt_stale"}, settlement.replayed)
}

func TestRunOnceContinuesPastFailures(t *testing.T) {
	db := testsupport.OpenDB(t)
	repo := paymentrepository.Provide()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i, id := range []string{"evt_a", "evt_b"} {
		record := paymentdomain.EventRecord{
			ID:              snowflake.ID(i + 1),
			Provider:        "stripe",
			ProviderEventID: id,
			EventType:       paymentdomain.EventTypePaymentSucceeded,
			Payload:         datatypes.JSON(`{}`),
			ReceivedAt:      now.Add(-time.Duration(10-i) * time.Minute),
		}
		_, err := repo.InsertEvent(context.Background(), db, &record)
		require.NoError(t, err)
	}

	settlement := &recordingSettlement{fail: map[string]error{"evt_a": errors.New("stored payload unreadable")}}
	worker := New(Params{
		DB:         db,
		Log:        zap.NewNop(),
		Repo:       repo,
		Settlement: settlement,
		Clock:      clock.NewFakeClock(now),
		Config:     config.Config{Replay: config.ReplayConfig{Delay: time.Minute}},
	})

	n, err := worker.RunOnce(context.Background())
	assert.Error(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"evt_a", "evt_b"}, settlement.replayed)
}

type countingClock struct {
	mu    sync.Mutex
	now   time.Time
	calls int
}

func (c *countingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return c.now
}

func (c *countingClock) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func TestStartStopsWorkerWithLifecycle(t *testing.T) {
	clk := &countingClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	cfg := config.Config{Replay: config.ReplayConfig{Enabled: true, Interval: 10 * time.Millisecond}}
	worker := New(Params{
		DB:         testsupport.OpenDB(t),
		Log:        zap.NewNop(),
		Repo:       paymentrepository.Provide(),
		Settlement: &recordingSettlement{},
		Clock:      clk,
		Config:     cfg,
	})

	lc := fxtest.NewLifecycle(t)
	Start(lc, cfg, worker)
	lc.RequireStart()

	require.Eventually(t, func() bool { return clk.Calls() >= 3 }, 2*time.Second, 5*time.Millisecond)
	lc.RequireStop()

	stoppedAt := clk.Calls()
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, stoppedAt, clk.Calls())
}

func TestStartIsNoopWhenDisabled(t *testing.T) {
	lc := fxtest.NewLifecycle(t)
	Start(lc, config.Config{}, nil)
	lc.RequireStart()
	lc.RequireStop()
}
