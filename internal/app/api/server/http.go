package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/fatflowers/entitlements/docs"
	"github.com/fatflowers/entitlements/internal/app/api/handlers"
	mw "github.com/fatflowers/entitlements/internal/app/api/middleware"
	"github.com/fatflowers/entitlements/internal/app/service/cache"
	"github.com/fatflowers/entitlements/internal/app/service/ledger"
	nh "github.com/fatflowers/entitlements/internal/app/service/notification_handler"
	"github.com/fatflowers/entitlements/internal/app/service/reconcile"
	"github.com/fatflowers/entitlements/internal/app/service/session"
	"github.com/fatflowers/entitlements/internal/app/service/timeledger"
	cfgpkg "github.com/fatflowers/entitlements/pkg/config"
	"github.com/fatflowers/entitlements/pkg/metrics"
)

func newEngine() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	// request logger & access log are attached per group in registerRoutes
	r.Use(mw.TraceMiddleware())
	return r
}

type routeParams struct {
	fx.In

	Engine        *gin.Engine
	Log           *zap.SugaredLogger
	Config        *cfgpkg.Config
	DB            *gorm.DB
	Redis         *goredis.Client
	Cache         *cache.Cache
	Reconciler    *reconcile.Engine
	Ledger        ledger.Client
	Index         *ledger.GormIndex
	TimeLedger    *timeledger.Ledger
	Sessions      *session.Holder
	Notifications *nh.NotificationHandler
}

func registerRoutes(p routeParams) {
	r, log, cfg := p.Engine, p.Log, p.Config
	if cfg.MetricsAddr != "" {
		prom := metrics.NewPrometheus(metrics.NewPrometheusOptions{
			ReqCntURLLabelMappingFn: func(c *gin.Context) string {
				if fp := c.FullPath(); fp != "" {
					return fp
				}
				return c.Request.URL.Path
			},
			Logger: log,
		})
		prom.SetListenAddress(cfg.MetricsAddr)
		prom.Use(r)

		log.Infow("metrics started", "addr", cfg.MetricsAddr)
	}

	pub := r.Group("/")
	pub.Use(mw.RequestLoggerMiddleware(log), mw.AccessLogMiddleware(log))
	handlers.RegisterHealthRoutes(pub, readinessChecks(p))
	docs.SwaggerInfo.BasePath = "/"
	pub.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	apiV1 := r.Group("/api/v1")
	apiV1.Use(mw.RequestLoggerMiddleware(log), mw.AccessLogMiddleware(log))
	handlers.RegisterEntitlementRoutes(apiV1, p.Cache, p.Reconciler)
	handlers.RegisterPurchaseRoutes(apiV1, p.Ledger, p.Reconciler)
	handlers.RegisterPricingRoutes(apiV1, p.Cache)
	handlers.RegisterAllowanceRoutes(apiV1, p.TimeLedger)
	handlers.RegisterSessionRoutes(apiV1, p.Sessions)
	handlers.RegisterAdminRoutes(apiV1.Group("/admin"), p.Index)

	apiV2Payment := r.Group("/api/v2/payment")
	apiV2Payment.Use(mw.RequestLoggerMiddleware(log), mw.AccessLogMiddleware(log))
	handlers.RegisterPaymentWebhookRoutes(apiV2Payment, p.Notifications, log)
}

// readinessChecks covers the stores this instance is configured to write to.
func readinessChecks(p routeParams) map[string]handlers.Check {
	checks := map[string]handlers.Check{
		"postgres": func(ctx context.Context) error {
			sqlDB, err := p.DB.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}
	if p.Config.Cache.Driver == cfgpkg.DriverRedis {
		checks["redis"] = func(ctx context.Context) error { return p.Redis.Ping(ctx).Err() }
	}
	return checks
}

func runServer(lc fx.Lifecycle, shutdowner fx.Shutdowner, log *zap.SugaredLogger, cfg *cfgpkg.Config, r *gin.Engine) {
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 5 * time.Second}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Infow("starting HTTP server", "addr", addr)
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Errorw("server error", "err", err)
					_ = shutdowner.Shutdown(fx.ExitCode(1))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Infow("stopping HTTP server")
			shutdownCtx, cancel := context.WithTimeout(ctx, 120*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

var Module = fx.Options(
	fx.Provide(newEngine),
	fx.Invoke(registerRoutes),
	fx.Invoke(runServer),
)
