package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fatflowers/entitlements/pkg/response"
	"github.com/fatflowers/entitlements/pkg/types"
)

// PriceReader serves quotes from the local cache.
type PriceReader interface {
	Prices() []types.PriceQuote
	ReadPrice(productID string, period types.Period) (*types.PriceQuote, bool)
}

// @Summary      List Prices
// @Description  Returns every cached price quote with its savings against the weekly baseline.
// @Tags         Pricing
// @Produce      json
// @Success      200  {object}  handlers.RespPrices
// @Router       /api/v1/prices [get]
func ApiListPrices(prices PriceReader) gin.HandlerFunc {
	return func(c *gin.Context) {
		quotes := prices.Prices()
		if quotes == nil {
			quotes = []types.PriceQuote{}
		}
		c.JSON(http.StatusOK, response.OKT(quotes))
	}
}

// @Summary      Get Price
// @Description  Returns the cached quote of one product and period. Period defaults to monthly.
// @Tags         Pricing
// @Produce      json
// @Param        product_id query string true "Store product ID"
// @Param        period query string false "weekly, monthly or yearly"
// @Success      200  {object}  handlers.RespPrice
// @Router       /api/v1/price [get]
func ApiGetPrice(prices PriceReader) gin.HandlerFunc {
	return func(c *gin.Context) {
		productID := c.Query("product_id")
		if productID == "" {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, "missing product_id"))
			return
		}
		period := types.Period(c.DefaultQuery("period", string(types.PeriodMonthly)))
		switch period {
		case types.PeriodWeekly, types.PeriodMonthly, types.PeriodYearly:
		default:
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, "invalid period"))
			return
		}
		q, ok := prices.ReadPrice(productID, period)
		if !ok {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeNotFound, nil))
			return
		}
		c.JSON(http.StatusOK, response.OKT(q))
	}
}

func RegisterPricingRoutes(r gin.IRouter, prices PriceReader) {
	r.GET("/prices", ApiListPrices(prices))
	r.GET("/price", ApiGetPrice(prices))
}
