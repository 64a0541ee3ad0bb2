package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"

	"github.com/fatflowers/entitlements/internal/app/service/ledger"
	"github.com/fatflowers/entitlements/internal/models"
	"github.com/fatflowers/entitlements/pkg/product"
	"github.com/fatflowers/entitlements/pkg/response"
	"github.com/fatflowers/entitlements/pkg/types"
)

// LedgerScanner lists known ledger transactions for operators.
type LedgerScanner interface {
	Scan(ctx context.Context, req *ledger.ScanRequest) (*ledger.ScanResponse, error)
}

type ListLedgerTransactionRequest struct {
	Filters   []*types.CommonFilter `json:"filters"`
	From      int                   `json:"from"`
	Size      int                   `json:"size"`
	SortBy    string                `json:"sort_by"`
	SortOrder string                `json:"sort_order"`
}

type LedgerTransactionItem struct {
	ID                  string                `json:"id"`
	UserID              string                `json:"user_id"`
	ProviderID          types.PaymentProvider `json:"provider_id"`
	SubscriptionKey     string                `json:"subscription_key"`
	LatestTransactionID string                `json:"latest_transaction_id"`
	ProductID           string                `json:"product_id"`
	BasePlanID          string                `json:"base_plan_id"`
	Tier                types.Tier            `json:"tier"`
	Period              types.Period          `json:"period"`
	PriceMicros         int64                 `json:"price_micros"`
	CurrencyCode        string                `json:"currency_code"`
	PurchaseAt          time.Time             `json:"purchase_at"`
	ExpireAt            *time.Time            `json:"expire_at"`
	RevokedAt           *time.Time            `json:"revoked_at"`
	CreatedAt           time.Time             `json:"created_at"`
	UpdatedAt           time.Time             `json:"updated_at"`
}

type ListLedgerTransactionResponse struct {
	Items []*LedgerTransactionItem `json:"items"`
	Total int64                    `json:"total"`
}

func toLedgerTransactionItem(m *models.LedgerTransaction) *LedgerTransactionItem {
	tier, per := product.ParseWithBasePlan(m.ProductID, m.BasePlanID)
	item := &LedgerTransactionItem{
		ID:                  m.ID,
		UserID:              m.UserID,
		ProviderID:          m.ProviderID,
		SubscriptionKey:     m.SubscriptionKey,
		LatestTransactionID: m.LatestTransactionID,
		ProductID:           m.ProductID,
		BasePlanID:          m.BasePlanID,
		Tier:                tier,
		Period:              per,
		PurchaseAt:          m.PurchaseAt,
		ExpireAt:            m.ExpireAt,
		RevokedAt:           m.RevokedAt,
		CreatedAt:           m.CreatedAt,
		UpdatedAt:           m.UpdatedAt,
	}
	if snap := m.ProductSnapshot(); snap != nil {
		item.PriceMicros = snap.PriceMicros
		item.CurrencyCode = snap.CurrencyCode
	}
	return item
}

// @Summary      List Ledger Transactions (Admin)
// @Description  Retrieves a paginated and filterable list of the store subscriptions known per user.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Param        request body ListLedgerTransactionRequest true "List request with filters, pagination, and sorting"
// @Success      200  {object}  handlers.RespListLedgerTransaction
// @Router       /api/v1/admin/list_ledger_transaction [post]
func ApiListLedgerTransactions(scanner LedgerScanner) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ListLedgerTransactionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		for _, f := range req.Filters {
			if f == nil {
				c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, "filter is null"))
				return
			}
			if err := f.Validate(); err != nil {
				c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
				return
			}
		}
		res, err := scanner.Scan(c.Request.Context(), &ledger.ScanRequest{
			Filters:   req.Filters,
			From:      req.From,
			Size:      req.Size,
			SortBy:    req.SortBy,
			SortOrder: req.SortOrder,
		})
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		items := lo.Map(res.Items, func(it *models.LedgerTransaction, _ int) *LedgerTransactionItem { return toLedgerTransactionItem(it) })
		c.JSON(http.StatusOK, response.OKT(&ListLedgerTransactionResponse{Items: items, Total: res.Total}))
	}
}

func RegisterAdminRoutes(r gin.IRouter, scanner LedgerScanner) {
	r.POST("/list_ledger_transaction", ApiListLedgerTransactions(scanner))
}
