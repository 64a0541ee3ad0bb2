package remotestore

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/fatflowers/entitlements/pkg/clock"
	cfgpkg "github.com/fatflowers/entitlements/pkg/config"
	"github.com/fatflowers/entitlements/pkg/types"
)

var ErrNotFound = errors.New("remote record not found")

// Store is the remote authoritative copy of subscription records.
type Store interface {
	// GetRecord returns nil when the user has no remote record.
	GetRecord(ctx context.Context, userID string) (*types.SubscriptionRecord, error)
	// MergeWrite sets the given record fields, creating the record when absent.
	MergeWrite(ctx context.Context, userID string, fields map[string]any) error
	// Subscribe streams the record after each remote change. The channel closes when ctx
	// ends or the stream breaks.
	Subscribe(ctx context.Context, userID string) (<-chan types.SubscriptionRecord, error)
}

type params struct {
	fx.In

	Log    *zap.SugaredLogger
	Config *cfgpkg.Config
	Clock  clock.Clock
	DB     *gorm.DB
	Mongo  *mongo.Client
}

func NewStore(p params) Store {
	switch p.Config.RemoteStore.Driver {
	case cfgpkg.DriverMemory:
		p.Log.Infow("remote store using process memory")
		return NewMemoryStore()
	case cfgpkg.DriverMongo:
		coll := p.Mongo.Database(p.Config.Mongo.Database).Collection(p.Config.Mongo.Collection)
		return NewMongoStore(p.Log, coll)
	default:
		return NewGormStore(p.Log, p.DB, p.Clock, p.Config.RemoteStore.PollInterval)
	}
}

var Module = fx.Options(
	fx.Provide(NewStore),
)
