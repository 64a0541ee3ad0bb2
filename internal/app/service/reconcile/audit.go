package reconcile

import (
	"context"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/fatflowers/entitlements/internal/models"
	"github.com/fatflowers/entitlements/pkg/logctx"
	"github.com/fatflowers/entitlements/pkg/tool"
	"github.com/fatflowers/entitlements/pkg/types"
)

// AuditLog keeps the history of authoritative record changes.
type AuditLog interface {
	Save(ctx context.Context, entry *models.SubscriptionLog)
}

type GormAuditLog struct {
	db  *gorm.DB
	log *zap.SugaredLogger
}

func NewGormAuditLog(db *gorm.DB, l *zap.SugaredLogger) *GormAuditLog {
	return &GormAuditLog{db: db, log: l}
}

// Save writes asynchronously; failures are only logged.
func (a *GormAuditLog) Save(ctx context.Context, entry *models.SubscriptionLog) {
	if entry == nil {
		return
	}
	if entry.ID == "" {
		entry.ID = tool.GenerateUUIDV7()
	}
	go func() {
		if err := a.db.WithContext(context.WithoutCancel(ctx)).Create(entry).Error; err != nil {
			logctx.FromCtx(ctx, a.log).Errorw("failed to save subscription log", "err", err)
		}
	}()
}

func newSubscriptionLog(userID string, reason types.SubscriptionChangeReason, before, after types.SubscriptionRecord, extra map[string]any) *models.SubscriptionLog {
	return &models.SubscriptionLog{
		UserID: userID,
		Reason: reason,
		Before: datatypes.NewJSONType(&before),
		After:  datatypes.NewJSONType(&after),
		Extra:  datatypes.JSONMap(extra),
	}
}
