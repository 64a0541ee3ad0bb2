package pricebook

import (
	"context"
	"sort"
	"sync/atomic"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/fatflowers/entitlements/internal/app/service/cache"
	"github.com/fatflowers/entitlements/pkg/config"
	"github.com/fatflowers/entitlements/pkg/period"
	"github.com/fatflowers/entitlements/pkg/product"
	"github.com/fatflowers/entitlements/pkg/types"
)

// PriceSink stores the computed quotes.
type PriceSink interface {
	SetPrices(ctx context.Context, quotes []types.PriceQuote) error
}

func baselineKey(p *types.ProductDetails, tier types.Tier) string {
	return string(p.ProviderID) + "|" + string(tier) + "|" + p.CurrencyCode
}

// BuildPriceQuotes turns catalog products into display quotes. Savings compare against
// the weekly product of the same store, tier and currency and stay nil without one.
func BuildPriceQuotes(products []types.ProductDetails) []types.PriceQuote {
	weekly := map[string]int64{}
	for i := range products {
		p := &products[i]
		tier, per := product.ParseWithBasePlan(p.ProductID, p.BasePlanID)
		if tier != types.TierNone && per == types.PeriodWeekly && p.PriceMicros > 0 {
			weekly[baselineKey(p, tier)] = p.PriceMicros
		}
	}

	quotes := make([]types.PriceQuote, 0, len(products))
	for i := range products {
		p := &products[i]
		tier, per := product.ParseWithBasePlan(p.ProductID, p.BasePlanID)
		q := types.PriceQuote{
			ProductID:      p.ProductID,
			Period:         per,
			Tier:           tier,
			FormattedPrice: p.FormattedPrice,
			PriceMicros:    p.PriceMicros,
			CurrencyCode:   p.CurrencyCode,
		}
		if tier != types.TierNone {
			if per == types.PeriodWeekly {
				zero := 0.0
				q.SavingsPercent = &zero
			} else if base, ok := weekly[baselineKey(p, tier)]; ok {
				s := period.ComputeSavingsPercent(base, p.PriceMicros, per)
				q.SavingsPercent = &s
			}
		}
		quotes = append(quotes, q)
	}
	sort.Slice(quotes, func(i, j int) bool { return quotes[i].Key() < quotes[j].Key() })
	return quotes
}

type Book struct {
	log  *zap.SugaredLogger
	sink PriceSink
}

func New(l *zap.SugaredLogger, sink PriceSink) *Book {
	return &Book{log: l, sink: sink}
}

// Load rebuilds every quote from products.
func (b *Book) Load(ctx context.Context, products []types.ProductDetails) error {
	quotes := BuildPriceQuotes(products)
	if err := b.sink.SetPrices(ctx, quotes); err != nil {
		b.log.Warnw("failed to persist price quotes", "count", len(quotes), "err", err)
		return err
	}
	b.log.Infow("price quotes loaded", "count", len(quotes))
	return nil
}

func provideBook(l *zap.SugaredLogger, c *cache.Cache) *Book {
	return New(l, c)
}

func registerLifecycle(lc fx.Lifecycle, l *zap.SugaredLogger, cfg *config.Config, b *Book) {
	var stopped atomic.Bool
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			// quotes are a display aid, a persistence failure is not fatal
			_ = b.Load(ctx, cfg.Catalog.Products)
			return config.Watch(cfg.ConfigFile, func(next *config.Config, err error) {
				if stopped.Load() {
					return
				}
				if err != nil {
					l.Warnw("ignoring unreadable config change", "file", cfg.ConfigFile, "err", err)
					return
				}
				l.Infow("catalog changed, rebuilding price quotes", "file", cfg.ConfigFile)
				_ = b.Load(context.Background(), next.Catalog.Products)
			})
		},
		OnStop: func(context.Context) error {
			stopped.Store(true)
			return nil
		},
	})
}

var Module = fx.Options(
	fx.Provide(provideBook),
	fx.Invoke(registerLifecycle),
)
