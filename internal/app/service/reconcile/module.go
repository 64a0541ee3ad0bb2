package reconcile

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/fatflowers/entitlements/internal/app/service/cache"
	"github.com/fatflowers/entitlements/internal/app/service/ledger"
	"github.com/fatflowers/entitlements/internal/app/service/remotestore"
	"github.com/fatflowers/entitlements/pkg/clock"
	"github.com/fatflowers/entitlements/pkg/config"
)

func provideEngine(l *zap.SugaredLogger, cfg *config.Config, ledgerClient ledger.Client, remote remotestore.Store, c *cache.Cache, db *gorm.DB, clk clock.Clock) *Engine {
	return NewEngine(l, ledgerClient, remote, c, NewGormAuditLog(db, l), clk, Options{
		OperationTimeout: cfg.Reconcile.OperationTimeout,
		TrustWindow:      cfg.Reconcile.OptimisticTrustWindow,
	})
}

func registerLifecycle(lc fx.Lifecycle, e *Engine) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				defer close(done)
				e.Run(ctx)
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			select {
			case <-done:
			case <-stopCtx.Done():
			}
			return nil
		},
	})
}

var Module = fx.Options(
	fx.Provide(provideEngine),
	fx.Invoke(registerLifecycle),
)
