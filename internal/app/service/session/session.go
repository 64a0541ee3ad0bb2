package session

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/fatflowers/entitlements/internal/app/service/cache"
	"github.com/fatflowers/entitlements/internal/app/service/supervisor"
	"github.com/fatflowers/entitlements/pkg/config"
	"github.com/fatflowers/entitlements/pkg/logctx"
)

var ErrEmptyUserID = errors.New("user id is empty")

// Loader hydrates a user's persisted local state.
type Loader interface {
	Load(ctx context.Context, userID string) error
}

// Listeners is the supervisor as the session sees it.
type Listeners interface {
	Start(userID string)
	Stop()
}

// Holder owns the signed-in identity. Listeners only run while one is present.
type Holder struct {
	log       *zap.SugaredLogger
	loader    Loader
	listeners Listeners

	mu     sync.Mutex
	userID string
}

func New(l *zap.SugaredLogger, loader Loader, listeners Listeners) *Holder {
	return &Holder{log: l, loader: loader, listeners: listeners}
}

// Login switches the identity to userID. A failed hydration is logged and the cache
// starts from defaults.
func (h *Holder) Login(ctx context.Context, userID string) error {
	if userID == "" {
		return ErrEmptyUserID
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	ctx = logctx.WithUser(ctx, userID)
	log := logctx.FromCtx(ctx, h.log)
	if err := h.loader.Load(ctx, userID); err != nil {
		log.Warnw("failed to hydrate local state", "err", err)
	}
	if h.userID != "" && h.userID != userID {
		log.Infow("switching identity", "previous_user_id", h.userID)
	}
	h.userID = userID
	h.listeners.Start(userID)
	return nil
}

// Logout clears the identity and stops every listener. It is safe to call when nobody
// is signed in.
func (h *Holder) Logout(ctx context.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.listeners.Stop()
	if h.userID != "" {
		logctx.FromCtx(ctx, h.log).Infow("signed out", "user_id", h.userID)
	}
	h.userID = ""
}

func (h *Holder) Current() (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.userID, h.userID != ""
}

func provideHolder(l *zap.SugaredLogger, c *cache.Cache, s *supervisor.Supervisor) *Holder {
	return New(l, c, s)
}

func registerLifecycle(lc fx.Lifecycle, cfg *config.Config, h *Holder) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if cfg.Identity.UserID == "" {
				return nil
			}
			return h.Login(ctx, cfg.Identity.UserID)
		},
		OnStop: func(ctx context.Context) error {
			h.Logout(ctx)
			return nil
		},
	})
}

var Module = fx.Options(
	fx.Provide(provideHolder),
	fx.Invoke(registerLifecycle),
)
