package replay

import (
	"context"

	"github.com/somagouache/gouache/internal/config"
	"go.uber.org/fx"
)

var Module = fx.Module("payment.replay",
	fx.Provide(New),
	fx.Invoke(Start),
)

// Start runs the sweeper for the lifetime of the app. Stop cancels the loop and
// waits for the in-flight batch to return before the DB pool is closed.
func Start(lc fx.Lifecycle, cfg config.Config, worker *Worker) {
	if !cfg.Replay.Enabled {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				defer close(done)
				worker.RunForever(ctx)
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			select {
			case <-done:
				return nil
			case <-stopCtx.Done():
				return stopCtx.Err()
			}
		},
	})
}
