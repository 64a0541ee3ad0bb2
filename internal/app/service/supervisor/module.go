package supervisor

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/fatflowers/entitlements/internal/app/service/ledger"
	"github.com/fatflowers/entitlements/internal/app/service/reconcile"
	"github.com/fatflowers/entitlements/internal/app/service/remotestore"
	"github.com/fatflowers/entitlements/pkg/clock"
	"github.com/fatflowers/entitlements/pkg/config"
)

func provideSupervisor(l *zap.SugaredLogger, cfg *config.Config, clk clock.Clock, engine *reconcile.Engine, client ledger.Client, store remotestore.Store) *Supervisor {
	return New(l, clk, engine, cfg.Supervisor.RetryInterval,
		NewLedgerListener(client),
		NewRemoteListener(store),
	)
}

func registerLifecycle(lc fx.Lifecycle, s *Supervisor) {
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			s.Stop()
			return nil
		},
	})
}

var Module = fx.Options(
	fx.Provide(provideSupervisor),
	fx.Invoke(registerLifecycle),
)
