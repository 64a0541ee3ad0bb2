package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fatflowers/entitlements/internal/app/service/reconcile"
	"github.com/fatflowers/entitlements/pkg/logctx"
	"github.com/fatflowers/entitlements/pkg/response"
	"github.com/fatflowers/entitlements/pkg/types"
)

// RecordReader serves cached subscription records.
type RecordReader interface {
	Read(userID string) types.SubscriptionRecord
}

// Reconciler recomputes a user's authoritative record.
type Reconciler interface {
	Reconcile(ctx context.Context, userID string, reason types.SubscriptionChangeReason) (types.SubscriptionRecord, error)
	ApplyPurchase(ctx context.Context, userID string, res *types.PurchaseResult) (types.SubscriptionRecord, error)
}

type EntitlementResponse struct {
	UserID string                   `json:"user_id"`
	Record types.SubscriptionRecord `json:"record"`
}

type RefreshEntitlementRequest struct {
	UserID string `json:"user_id" binding:"required"`
}

// @Summary      Get Entitlement
// @Description  Returns the cached subscription record of a user. Unknown users are inactive.
// @Tags         Entitlement
// @Produce      json
// @Param        user_id query string true "User ID"
// @Success      200  {object}  handlers.RespEntitlement
// @Router       /api/v1/entitlement [get]
func ApiGetEntitlement(records RecordReader) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.Query("user_id")
		if userID == "" {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, "missing user_id"))
			return
		}
		c.JSON(http.StatusOK, response.OKT(&EntitlementResponse{UserID: userID, Record: records.Read(userID)}))
	}
}

// @Summary      Refresh Entitlement
// @Description  Reconciles the user's record against the purchase ledger and the remote store.
// @Description  When the ledger is unreachable the cached record is returned with code 50300.
// @Tags         Entitlement
// @Accept       json
// @Produce      json
// @Param        request body RefreshEntitlementRequest true "Refresh request"
// @Success      200  {object}  handlers.RespEntitlement
// @Router       /api/v1/entitlement/refresh [post]
func ApiRefreshEntitlement(engine Reconciler) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RefreshEntitlementRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		ctx := logctx.WithUser(c.Request.Context(), req.UserID)
		rec, err := engine.Reconcile(ctx, req.UserID, types.SubscriptionChangeReasonRefresh)
		out := &EntitlementResponse{UserID: req.UserID, Record: rec}
		switch {
		case errors.Is(err, reconcile.ErrLedgerUnavailable):
			c.JSON(http.StatusOK, response.ErrorT(response.APIResponseCodeUnavailable, out))
		case err != nil:
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
		default:
			c.JSON(http.StatusOK, response.OKT(out))
		}
	}
}

func RegisterEntitlementRoutes(r gin.IRouter, records RecordReader, engine Reconciler) {
	r.GET("/entitlement", ApiGetEntitlement(records))
	r.POST("/entitlement/refresh", ApiRefreshEntitlement(engine))
}
