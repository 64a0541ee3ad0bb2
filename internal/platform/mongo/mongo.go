package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.uber.org/fx"
	"go.uber.org/zap"

	cfgpkg "github.com/fatflowers/entitlements/pkg/config"
)

// NewClient configures the driver. Connections are established on first use.
func NewClient(l *zap.SugaredLogger, cfg *cfgpkg.Config) (*mongo.Client, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(cfg.Mongo.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to configure mongo client: %w", err)
	}
	l.Infow("mongo client configured", "database", cfg.Mongo.Database)
	return client, nil
}

func registerClose(lc fx.Lifecycle, l *zap.SugaredLogger, c *mongo.Client) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			l.Infow("disconnecting mongo client")
			return c.Disconnect(ctx)
		},
	})
}

var Module = fx.Options(
	fx.Provide(NewClient),
	fx.Invoke(registerClose),
)
