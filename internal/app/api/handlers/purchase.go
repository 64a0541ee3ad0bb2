package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fatflowers/entitlements/internal/app/service/ledger"
	"github.com/fatflowers/entitlements/internal/app/service/reconcile"
	"github.com/fatflowers/entitlements/pkg/logctx"
	"github.com/fatflowers/entitlements/pkg/response"
	"github.com/fatflowers/entitlements/pkg/types"
)

// Purchaser verifies client purchase reports with the store.
type Purchaser interface {
	Purchase(ctx context.Context, req *types.PurchaseRequest) (*types.PurchaseResult, error)
}

type PurchaseResponse struct {
	Result *types.PurchaseResult    `json:"result"`
	Record types.SubscriptionRecord `json:"record"`
}

// @Summary      Purchase
// @Description  Reports the outcome of a store purchase. Verified purchases grant access at once.
// @Description  Cancelled, pending and failed purchases are results, not errors.
// @Tags         Payment
// @Accept       json
// @Produce      json
// @Param        request body types.PurchaseRequest true "Purchase report"
// @Success      200  {object}  handlers.RespPurchase
// @Router       /api/v1/purchase [post]
func ApiPurchase(purchaser Purchaser, engine Reconciler) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req types.PurchaseRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		if req.UserID == "" || req.ProductID == "" {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, "missing user_id or product_id"))
			return
		}
		ctx := logctx.WithUser(c.Request.Context(), req.UserID)

		res, err := purchaser.Purchase(ctx, &req)
		if err != nil {
			code := response.APIResponseCodeError
			if errors.Is(err, ledger.ErrUnknownProvider) {
				code = response.APIResponseCodeBadRequest
			}
			c.JSON(http.StatusOK, response.ErrorT[any](code, err.Error()))
			return
		}

		rec, err := engine.ApplyPurchase(ctx, req.UserID, res)
		out := &PurchaseResponse{Result: res, Record: rec}
		switch {
		case err == nil, errors.Is(err, reconcile.ErrPurchaseFailed):
			c.JSON(http.StatusOK, response.OKT(out))
		case errors.Is(err, reconcile.ErrLedgerUnavailable):
			c.JSON(http.StatusOK, response.ErrorT(response.APIResponseCodeUnavailable, out))
		default:
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
		}
	}
}

func RegisterPurchaseRoutes(r gin.IRouter, purchaser Purchaser, engine Reconciler) {
	r.POST("/purchase", ApiPurchase(purchaser, engine))
}
