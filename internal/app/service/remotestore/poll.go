package remotestore

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/fatflowers/entitlements/pkg/clock"
	"github.com/fatflowers/entitlements/pkg/types"
)

// fetchFunc loads the current version of a record. A missing record has version 0.
type fetchFunc func(ctx context.Context) (int64, types.SubscriptionRecord, error)

// poll emits the record whenever its version moves. The first fetch only sets the
// baseline and its error is returned to the caller.
func poll(ctx context.Context, l *zap.SugaredLogger, clk clock.Clock, interval time.Duration, fetch fetchFunc) (<-chan types.SubscriptionRecord, error) {
	version, _, err := fetch(ctx)
	if err != nil {
		return nil, err
	}
	out := make(chan types.SubscriptionRecord, 1)
	go func() {
		defer close(out)
		for {
			t := clk.NewTimer(interval)
			select {
			case <-ctx.Done():
				t.Stop()
				return
			case <-t.C():
			}

			v, rec, err := fetch(ctx)
			if err != nil {
				if ctx.Err() == nil {
					l.Warnw("remote record poll failed", "err", err)
				}
				return
			}
			if v == version {
				continue
			}
			version = v
			select {
			case out <- rec:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}
