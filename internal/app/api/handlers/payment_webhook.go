package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	nh "github.com/fatflowers/entitlements/internal/app/service/notification_handler"
	"github.com/fatflowers/entitlements/internal/platform/apple/apple_notification"
	"github.com/fatflowers/entitlements/internal/platform/google/play"
	"github.com/fatflowers/entitlements/pkg/logctx"
	"github.com/fatflowers/entitlements/pkg/response"
)

// Notifications applies store server notifications.
type Notifications interface {
	HandleApple(ctx context.Context, signedPayload string) error
	HandleGoogle(ctx context.Context, req *play.PushRequest) error
}

// ackable errors are answered with success so the store stops redelivering.
func ackable(err error) bool {
	return errors.Is(err, nh.ErrUnknownUser)
}

// @Summary      Apple Webhook
// @Description  Handles App Store Server Notifications V2. The request body carries the signed JWS payload.
// @Tags         Webhook
// @Accept       json
// @Produce      json
// @Param        request body apple_notification.AppStoreServerRequest true "App Store Server Notification V2"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v2/payment/webhook/apple [post]
func ApiAppleWebhook(h Notifications, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req apple_notification.AppStoreServerRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		l := logctx.FromGin(c, log)
		if err := h.HandleApple(c.Request.Context(), req.SignedPayload); err != nil && !ackable(err) {
			l.Errorw("webhook_apple_handle_error", "err", err)
			c.JSON(http.StatusInternalServerError, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		l.Infow("webhook_apple_handled")
		c.JSON(http.StatusOK, response.OKT[any](nil))
	}
}

// @Summary      Google Webhook
// @Description  Handles Google Play real-time developer notifications delivered by Pub/Sub push.
// @Tags         Webhook
// @Accept       json
// @Produce      json
// @Param        request body play.PushRequest true "Pub/Sub push envelope"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v2/payment/webhook/google [post]
func ApiGoogleWebhook(h Notifications, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req play.PushRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		l := logctx.FromGin(c, log).With("message_id", req.Message.MessageID)
		if err := h.HandleGoogle(c.Request.Context(), &req); err != nil && !ackable(err) {
			l.Errorw("webhook_google_handle_error", "err", err)
			c.JSON(http.StatusInternalServerError, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		l.Infow("webhook_google_handled")
		c.JSON(http.StatusOK, response.OKT[any](nil))
	}
}

func RegisterPaymentWebhookRoutes(r gin.IRouter, h Notifications, log *zap.SugaredLogger) {
	r.POST("/webhook/apple", ApiAppleWebhook(h, log))
	r.POST("/webhook/google", ApiGoogleWebhook(h, log))
}
