package cache

import (
	"context"

	"github.com/fatflowers/entitlements/pkg/types"
)

// UserState is what a backend persists for one user.
type UserState struct {
	Record    types.SubscriptionRecord
	HasRecord bool
	Usage     types.Usage
}

// Backend persists the local cache so it survives restarts.
type Backend interface {
	// LoadUser returns nil when nothing is stored for the user.
	LoadUser(ctx context.Context, userID string) (*UserState, error)
	SaveRecord(ctx context.Context, userID string, rec types.SubscriptionRecord) error
	SaveUsage(ctx context.Context, userID string, usage types.Usage) error
	SavePrices(ctx context.Context, quotes []types.PriceQuote) error
	LoadPrices(ctx context.Context) ([]types.PriceQuote, error)
}

// nopBackend keeps everything in process memory only.
type nopBackend struct{}

func (nopBackend) LoadUser(context.Context, string) (*UserState, error) { return nil, nil }

func (nopBackend) SaveRecord(context.Context, string, types.SubscriptionRecord) error { return nil }

func (nopBackend) SaveUsage(context.Context, string, types.Usage) error { return nil }

func (nopBackend) SavePrices(context.Context, []types.PriceQuote) error { return nil }

func (nopBackend) LoadPrices(context.Context) ([]types.PriceQuote, error) { return nil, nil }
