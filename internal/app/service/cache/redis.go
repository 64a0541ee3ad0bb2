package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/fatflowers/entitlements/pkg/types"
)

const (
	userKeyPrefix = "ent:user:"
	pricesKey     = "ent:prices"
)

// RedisClient is the subset of go-redis used by RedisBackend.
type RedisClient interface {
	HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd
	HSet(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	TxPipelined(ctx context.Context, fn func(redis.Pipeliner) error) ([]redis.Cmder, error)
}

// RedisBackend stores one hash per user (record fields and usage counters) and a shared
// hash of price quotes keyed "productId|period".
type RedisBackend struct {
	client RedisClient
}

func NewRedisBackend(client RedisClient) *RedisBackend {
	return &RedisBackend{client: client}
}

func userKey(userID string) string { return userKeyPrefix + userID }

func (b *RedisBackend) LoadUser(ctx context.Context, userID string) (*UserState, error) {
	fields, err := b.client.HGetAll(ctx, userKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load cached user %s: %w", userID, err)
	}
	if len(fields) == 0 {
		return nil, nil
	}

	state := &UserState{Record: types.Inactive()}
	if _, ok := fields[types.FieldStatus]; ok {
		rec, err := types.RecordFromStringFields(fields)
		if err != nil {
			return nil, fmt.Errorf("corrupt cached record for %s: %w", userID, err)
		}
		state.Record, state.HasRecord = rec, true
	}
	if state.Usage.LiveTimeUsedSeconds, err = parseCounter(fields, types.FieldLiveTimeUsedSeconds); err != nil {
		return nil, err
	}
	if state.Usage.CallTimeUsedSeconds, err = parseCounter(fields, types.FieldCallTimeUsedSeconds); err != nil {
		return nil, err
	}
	if state.Usage.CurrentPeriodStartMillis, err = parseCounter(fields, types.FieldCurrentPeriodStartMillis); err != nil {
		return nil, err
	}
	return state, nil
}

func parseCounter(fields map[string]string, key string) (int64, error) {
	v, ok := fields[key]
	if !ok || v == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("corrupt cached counter %s: %w", key, err)
	}
	return n, nil
}

func (b *RedisBackend) SaveRecord(ctx context.Context, userID string, rec types.SubscriptionRecord) error {
	values := make([]interface{}, 0, 2*len(types.RecordFieldNames))
	for k, v := range rec.StringFields() {
		values = append(values, k, v)
	}
	if err := b.client.HSet(ctx, userKey(userID), values...).Err(); err != nil {
		return fmt.Errorf("failed to cache record for %s: %w", userID, err)
	}
	return nil
}

func (b *RedisBackend) SaveUsage(ctx context.Context, userID string, usage types.Usage) error {
	err := b.client.HSet(ctx, userKey(userID),
		types.FieldLiveTimeUsedSeconds, usage.LiveTimeUsedSeconds,
		types.FieldCallTimeUsedSeconds, usage.CallTimeUsedSeconds,
		types.FieldCurrentPeriodStartMillis, usage.CurrentPeriodStartMillis,
	).Err()
	if err != nil {
		return fmt.Errorf("failed to cache usage for %s: %w", userID, err)
	}
	return nil
}

// SavePrices replaces the whole price hash atomically.
func (b *RedisBackend) SavePrices(ctx context.Context, quotes []types.PriceQuote) error {
	values := make([]interface{}, 0, 2*len(quotes))
	for i := range quotes {
		raw, err := json.Marshal(&quotes[i])
		if err != nil {
			return err
		}
		values = append(values, quotes[i].Key(), string(raw))
	}
	_, err := b.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, pricesKey)
		if len(values) > 0 {
			p.HSet(ctx, pricesKey, values...)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to cache prices: %w", err)
	}
	return nil
}

func (b *RedisBackend) LoadPrices(ctx context.Context) ([]types.PriceQuote, error) {
	fields, err := b.client.HGetAll(ctx, pricesKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load cached prices: %w", err)
	}
	quotes := make([]types.PriceQuote, 0, len(fields))
	for key, raw := range fields {
		var q types.PriceQuote
		if err := json.Unmarshal([]byte(raw), &q); err != nil {
			return nil, fmt.Errorf("corrupt cached price %s: %w", key, err)
		}
		quotes = append(quotes, q)
	}
	return quotes, nil
}
