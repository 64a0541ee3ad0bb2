package notification_log

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/fatflowers/entitlements/internal/models"
	"github.com/fatflowers/entitlements/pkg/logctx"
	"github.com/fatflowers/entitlements/pkg/tool"
	"github.com/fatflowers/entitlements/pkg/types"
)

// Recorder persists notification and verification logs.
type Recorder interface {
	Save(ctx context.Context, log *models.PaymentNotificationLog)
}

type Service struct {
	db  *gorm.DB
	log *zap.SugaredLogger
}

func New(db *gorm.DB, log *zap.SugaredLogger) *Service { return &Service{db: db, log: log} }

// Save asynchronously persists a payment notification log. Nil input is ignored.
func (s *Service) Save(ctx context.Context, log *models.PaymentNotificationLog) {
	if log == nil {
		return
	}
	if log.ID == "" {
		log.ID = tool.GenerateUUIDV7()
	}
	go func() {
		if err := s.db.WithContext(context.WithoutCancel(ctx)).Save(log).Error; err != nil {
			logctx.FromCtx(ctx, s.log).Errorw("failed to save notification log", "id", log.ID, "err", err)
		}
	}()
}

// Nop drops every log.
type Nop struct{}

func (Nop) Save(context.Context, *models.PaymentNotificationLog) {}

// Received builds the log of an incoming notification or verification request.
func Received(ctx context.Context, provider types.PaymentProvider, notificationType, transactionID string, data any) *models.PaymentNotificationLog {
	raw, _ := json.Marshal(data)
	entry := &models.PaymentNotificationLog{
		ProviderID:       provider,
		NotificationType: notificationType,
		TraceID:          logctx.TraceID(ctx),
		TransactionID:    transactionID,
		NotificationTime: time.Now(),
		Data:             datatypes.JSON(raw),
		Status:           models.PaymentNotificationLogStatusReceived,
	}
	if uid := logctx.UserID(ctx); uid != "" {
		entry.UserID = &uid
	}
	return entry
}

// Finished derives the outcome log of a received entry; err selects handle_failed.
func Finished(received *models.PaymentNotificationLog, userID, transactionID string, result any, err error) *models.PaymentNotificationLog {
	out := *received
	out.ID = ""
	out.NotificationTime = time.Now()
	if userID != "" {
		out.UserID = &userID
	}
	if transactionID != "" {
		out.TransactionID = transactionID
	}
	res := map[string]any{"result": result}
	out.Status = models.PaymentNotificationLogStatusHandled
	if err != nil {
		res["error"] = err.Error()
		out.Status = models.PaymentNotificationLogStatusHandleFailed
	}
	raw, _ := json.Marshal(res)
	j := datatypes.JSON(raw)
	out.Result = &j
	return &out
}

var Module = fx.Options(
	fx.Provide(New, func(s *Service) Recorder { return s }),
)
