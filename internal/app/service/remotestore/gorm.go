package remotestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/fatflowers/entitlements/internal/models"
	"github.com/fatflowers/entitlements/pkg/clock"
	"github.com/fatflowers/entitlements/pkg/types"
)

// GormStore keeps records in the subscription_record table. Subscriptions poll the row
// version.
type GormStore struct {
	log      *zap.SugaredLogger
	db       *gorm.DB
	clock    clock.Clock
	interval time.Duration
}

func NewGormStore(l *zap.SugaredLogger, db *gorm.DB, clk clock.Clock, pollInterval time.Duration) *GormStore {
	if pollInterval <= 0 {
		pollInterval = 5 * time.Second
	}
	return &GormStore{log: l, db: db, clock: clk, interval: pollInterval}
}

func (s *GormStore) find(ctx context.Context, userID string) (*models.SubscriptionRecord, error) {
	var row models.SubscriptionRecord
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query remote record for %s: %w", userID, err)
	}
	return &row, nil
}

func (s *GormStore) GetRecord(ctx context.Context, userID string) (*types.SubscriptionRecord, error) {
	row, err := s.find(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	rec := row.Record()
	return &rec, nil
}

func (s *GormStore) MergeWrite(ctx context.Context, userID string, fields map[string]any) error {
	if _, err := types.RecordFromFields(fields); err != nil {
		return fmt.Errorf("refusing remote write for %s: %w", userID, err)
	}
	updates := lo.PickByKeys(fields, types.RecordFieldNames)
	if len(updates) == 0 {
		return nil
	}

	for attempt := 0; attempt < 2; attempt++ {
		ok, err := s.update(ctx, userID, updates)
		if err != nil || ok {
			return err
		}
		row, err := models.NewSubscriptionRecord(userID, updates)
		if err != nil {
			return err
		}
		res := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(row)
		if res.Error != nil {
			return fmt.Errorf("failed to create remote record for %s: %w", userID, res.Error)
		}
		if res.RowsAffected > 0 {
			return nil
		}
		// lost a create race, the row exists now
	}
	return fmt.Errorf("failed to merge remote record for %s", userID)
}

func (s *GormStore) update(ctx context.Context, userID string, updates map[string]any) (bool, error) {
	values := lo.Assign(updates, map[string]any{"version": gorm.Expr("version + ?", 1)})
	res := s.db.WithContext(ctx).Model(&models.SubscriptionRecord{}).Where("user_id = ?", userID).Updates(values)
	if res.Error != nil {
		return false, fmt.Errorf("failed to update remote record for %s: %w", userID, res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (s *GormStore) Subscribe(ctx context.Context, userID string) (<-chan types.SubscriptionRecord, error) {
	return poll(ctx, s.log, s.clock, s.interval, func(ctx context.Context) (int64, types.SubscriptionRecord, error) {
		row, err := s.find(ctx, userID)
		if errors.Is(err, ErrNotFound) {
			return 0, types.Inactive(), nil
		}
		if err != nil {
			return 0, types.SubscriptionRecord{}, err
		}
		return row.Version, row.Record(), nil
	})
}
