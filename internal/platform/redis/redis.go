package redis

import (
	"context"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"

	cfgpkg "github.com/fatflowers/entitlements/pkg/config"
)

// NewClient builds the client; go-redis dials lazily so an unused client costs nothing.
func NewClient(l *zap.SugaredLogger, cfg *cfgpkg.Config) *goredis.Client {
	l.Infow("redis client configured", "addr", cfg.Redis.Addr, "db", cfg.Redis.DB)
	return goredis.NewClient(&goredis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}

func registerClose(lc fx.Lifecycle, l *zap.SugaredLogger, c *goredis.Client) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			l.Infow("closing redis client")
			return c.Close()
		},
	})
}

var Module = fx.Options(
	fx.Provide(NewClient),
	fx.Invoke(registerClose),
)
