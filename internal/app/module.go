package app

import (
	"time"

	"go.uber.org/fx"

	"github.com/fatflowers/entitlements/internal/app/api/server"
	"github.com/fatflowers/entitlements/internal/app/service/cache"
	"github.com/fatflowers/entitlements/internal/app/service/ledger"
	notificationhandler "github.com/fatflowers/entitlements/internal/app/service/notification_handler"
	notificationlog "github.com/fatflowers/entitlements/internal/app/service/notification_log"
	"github.com/fatflowers/entitlements/internal/app/service/pricebook"
	"github.com/fatflowers/entitlements/internal/app/service/reconcile"
	"github.com/fatflowers/entitlements/internal/app/service/remotestore"
	"github.com/fatflowers/entitlements/internal/app/service/session"
	"github.com/fatflowers/entitlements/internal/app/service/supervisor"
	"github.com/fatflowers/entitlements/internal/app/service/timeledger"
	"github.com/fatflowers/entitlements/internal/platform/db"
	"github.com/fatflowers/entitlements/internal/platform/mongo"
	"github.com/fatflowers/entitlements/internal/platform/nats"
	"github.com/fatflowers/entitlements/internal/platform/redis"
	"github.com/fatflowers/entitlements/pkg/clock"
	"github.com/fatflowers/entitlements/pkg/config"
	"github.com/fatflowers/entitlements/pkg/logger"
)

const (
	DefaultStartTimeout = 15 * time.Second
	DefaultStopTimeout  = 10 * time.Second
)

var Module = fx.Options(
	logger.Module,
	config.Module,
	clock.Module,
	db.Module,
	redis.Module,
	mongo.Module,
	nats.Module,
	server.Module,
	notificationlog.Module,
	remotestore.Module,
	cache.Module,
	ledger.Module,
	reconcile.Module,
	supervisor.Module,
	session.Module,
	timeledger.Module,
	pricebook.Module,
	notificationhandler.Module,
)
