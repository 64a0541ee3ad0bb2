package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fatflowers/entitlements/internal/app/service/timeledger"
	"github.com/fatflowers/entitlements/pkg/logctx"
	"github.com/fatflowers/entitlements/pkg/response"
	"github.com/fatflowers/entitlements/pkg/types"
)

// Allowances meters live and call time against the tier allowance.
type Allowances interface {
	Usage(userID string) types.Usage
	Remaining(userID string, kind types.BudgetKind) int64
	CanStart(userID string, kind types.BudgetKind) bool
	Consume(ctx context.Context, userID string, kind types.BudgetKind, seconds int64) (types.Usage, error)
}

type AllowanceResponse struct {
	UserID           string           `json:"user_id"`
	Kind             types.BudgetKind `json:"kind"`
	RemainingSeconds int64            `json:"remaining_seconds"`
	CanStart         bool             `json:"can_start"`
	Usage            types.Usage      `json:"usage"`
}

type ConsumeRequest struct {
	UserID  string           `json:"user_id" binding:"required"`
	Kind    types.BudgetKind `json:"kind" binding:"required"`
	Seconds int64            `json:"seconds"`
}

func allowanceOf(a Allowances, userID string, kind types.BudgetKind) *AllowanceResponse {
	return &AllowanceResponse{
		UserID:           userID,
		Kind:             kind,
		RemainingSeconds: a.Remaining(userID, kind),
		CanStart:         a.CanStart(userID, kind),
		Usage:            a.Usage(userID),
	}
}

// @Summary      Get Allowance
// @Description  Returns the remaining seconds of a budget kind for the current billing period.
// @Tags         Allowance
// @Produce      json
// @Param        user_id query string true "User ID"
// @Param        kind query string true "live or call"
// @Success      200  {object}  handlers.RespAllowance
// @Router       /api/v1/allowance [get]
func ApiGetAllowance(a Allowances) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.Query("user_id")
		kind := types.BudgetKind(c.Query("kind"))
		if userID == "" || !kind.Valid() {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, "missing user_id or invalid kind"))
			return
		}
		c.JSON(http.StatusOK, response.OKT(allowanceOf(a, userID, kind)))
	}
}

// @Summary      Consume Allowance
// @Description  Adds used seconds to the user's counters. The allowance is not enforced here.
// @Tags         Allowance
// @Accept       json
// @Produce      json
// @Param        request body ConsumeRequest true "Consumption"
// @Success      200  {object}  handlers.RespAllowance
// @Router       /api/v1/allowance/consume [post]
func ApiConsumeAllowance(a Allowances) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ConsumeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		ctx := logctx.WithUser(c.Request.Context(), req.UserID)
		if _, err := a.Consume(ctx, req.UserID, req.Kind, req.Seconds); err != nil {
			code := response.APIResponseCodeError
			if errors.Is(err, timeledger.ErrInvalidKind) || errors.Is(err, timeledger.ErrInvalidSeconds) {
				code = response.APIResponseCodeBadRequest
			}
			c.JSON(http.StatusOK, response.ErrorT[any](code, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(allowanceOf(a, req.UserID, req.Kind)))
	}
}

func RegisterAllowanceRoutes(r gin.IRouter, a Allowances) {
	r.GET("/allowance", ApiGetAllowance(a))
	r.POST("/allowance/consume", ApiConsumeAllowance(a))
}
