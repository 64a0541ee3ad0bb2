package cache

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/fatflowers/entitlements/pkg/clock"
	cfgpkg "github.com/fatflowers/entitlements/pkg/config"
	"github.com/fatflowers/entitlements/pkg/types"
)

// Cache is the in-memory view every feature read goes through. Reads never lock and
// never touch the network; values stored in the maps are immutable.
type Cache struct {
	log     *zap.SugaredLogger
	backend Backend
	clock   clock.Clock
	flush   time.Duration

	records sync.Map // userID -> types.SubscriptionRecord
	usage   sync.Map // userID -> types.Usage
	prices  atomic.Pointer[map[string]types.PriceQuote]

	dirtyMu sync.Mutex
	dirty   map[string]struct{}
	signal  chan struct{}
}

func New(l *zap.SugaredLogger, backend Backend, clk clock.Clock, flushInterval time.Duration) *Cache {
	if backend == nil {
		backend = nopBackend{}
	}
	if flushInterval <= 0 {
		flushInterval = time.Second
	}
	c := &Cache{
		log:     l,
		backend: backend,
		clock:   clk,
		flush:   flushInterval,
		dirty:   make(map[string]struct{}),
		signal:  make(chan struct{}, 1),
	}
	empty := map[string]types.PriceQuote{}
	c.prices.Store(&empty)
	return c
}

// Read returns the last authoritative record evaluated at the current time, or the
// inactive default on a miss. A record whose expiry and soft windows have passed reads
// as expired even before the next reconciliation rewrites it.
func (c *Cache) Read(userID string) types.SubscriptionRecord {
	if v, ok := c.records.Load(userID); ok {
		return v.(types.SubscriptionRecord).Normalize(c.clock.Now())
	}
	return types.Inactive()
}

// Has reports whether a record was ever written or hydrated for the user.
func (c *Cache) Has(userID string) bool {
	_, ok := c.records.Load(userID)
	return ok
}

// Write stores the record in memory and then persists it. A persistence failure is
// returned but the in-memory value stays.
func (c *Cache) Write(ctx context.Context, userID string, rec types.SubscriptionRecord) error {
	c.records.Store(userID, rec)
	return c.backend.SaveRecord(ctx, userID, rec)
}

func (c *Cache) ReadPrice(productID string, period types.Period) (*types.PriceQuote, bool) {
	q, ok := (*c.prices.Load())[types.PriceKey(productID, period)]
	if !ok {
		return nil, false
	}
	return &q, true
}

// Prices returns every cached quote ordered by key.
func (c *Cache) Prices() []types.PriceQuote {
	m := *c.prices.Load()
	out := make([]types.PriceQuote, 0, len(m))
	for _, q := range m {
		out = append(out, q)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out
}

// SetPrices replaces the price table and persists it.
func (c *Cache) SetPrices(ctx context.Context, quotes []types.PriceQuote) error {
	m := make(map[string]types.PriceQuote, len(quotes))
	for _, q := range quotes {
		m[q.Key()] = q
	}
	c.prices.Store(&m)
	return c.backend.SavePrices(ctx, quotes)
}

// Usage returns the stored usage and whether any exists.
func (c *Cache) Usage(userID string) (types.Usage, bool) {
	v, ok := c.usage.Load(userID)
	if !ok {
		return types.Usage{}, false
	}
	return v.(types.Usage), true
}

// StoreUsage updates memory immediately and queues the user for the write-behind flush.
func (c *Cache) StoreUsage(userID string, u types.Usage) {
	c.usage.Store(userID, u)
	c.markDirty(userID)
}

func (c *Cache) markDirty(userID string) {
	c.dirtyMu.Lock()
	c.dirty[userID] = struct{}{}
	c.dirtyMu.Unlock()
	select {
	case c.signal <- struct{}{}:
	default:
	}
}

// Load hydrates a user from the backend without overwriting values already in memory.
func (c *Cache) Load(ctx context.Context, userID string) error {
	state, err := c.backend.LoadUser(ctx, userID)
	if err != nil {
		return err
	}
	if state == nil {
		return nil
	}
	if state.HasRecord {
		c.records.LoadOrStore(userID, state.Record)
	}
	c.usage.LoadOrStore(userID, state.Usage)
	return nil
}

// LoadPrices hydrates the price table when nothing has been set yet.
func (c *Cache) LoadPrices(ctx context.Context) error {
	quotes, err := c.backend.LoadPrices(ctx)
	if err != nil {
		return err
	}
	if len(*c.prices.Load()) > 0 || len(quotes) == 0 {
		return nil
	}
	m := make(map[string]types.PriceQuote, len(quotes))
	for _, q := range quotes {
		m[q.Key()] = q
	}
	c.prices.Store(&m)
	return nil
}

// Flush persists every dirty usage entry. Failed users are queued again.
func (c *Cache) Flush(ctx context.Context) error {
	c.dirtyMu.Lock()
	pending := c.dirty
	c.dirty = make(map[string]struct{})
	c.dirtyMu.Unlock()

	var firstErr error
	for userID := range pending {
		u, ok := c.Usage(userID)
		if !ok {
			continue
		}
		if err := c.backend.SaveUsage(ctx, userID, u); err != nil {
			c.log.Warnw("usage flush failed", "user_id", userID, "err", err)
			c.dirtyMu.Lock()
			c.dirty[userID] = struct{}{}
			c.dirtyMu.Unlock()
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// Run flushes on every usage change and on the flush interval until ctx ends, then
// makes a final flush.
func (c *Cache) Run(ctx context.Context) {
	for {
		t := c.clock.NewTimer(c.flush)
		select {
		case <-ctx.Done():
			t.Stop()
			final, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			_ = c.Flush(final)
			cancel()
			return
		case <-c.signal:
			t.Stop()
		case <-t.C():
		}
		_ = c.Flush(ctx)
	}
}

func NewBackend(l *zap.SugaredLogger, cfg *cfgpkg.Config, rdb *goredis.Client) Backend {
	if cfg.Cache.Driver == cfgpkg.DriverRedis {
		return NewRedisBackend(rdb)
	}
	l.Infow("local cache persistence disabled", "driver", cfg.Cache.Driver)
	return nopBackend{}
}

func provideCache(l *zap.SugaredLogger, cfg *cfgpkg.Config, b Backend, clk clock.Clock) *Cache {
	return New(l, b, clk, cfg.Cache.FlushInterval)
}

func registerLifecycle(lc fx.Lifecycle, l *zap.SugaredLogger, c *Cache) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	lc.Append(fx.Hook{
		OnStart: func(startCtx context.Context) error {
			if err := c.LoadPrices(startCtx); err != nil {
				l.Warnw("failed to hydrate cached prices", "err", err)
			}
			go func() {
				defer close(done)
				c.Run(ctx)
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
	fx.Provide(NewBackend, provideCache),
	fx.Invoke(registerLifecycle),
)
