package handlers

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fatflowers/entitlements/pkg/response"
)

const readinessTimeout = 2 * time.Second

// Check reports whether one backing dependency answers.
type Check func(ctx context.Context) error

// @Summary      Liveness
// @Description  Returns ok while the process serves requests
// @Tags         System
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /healthz [get]
func Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, response.OKT(map[string]string{"status": "ok"}))
}

// @Summary      Readiness
// @Description  Pings the stores the service writes to; code 50300 lists the failing ones
// @Tags         System
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /readyz [get]
func ApiReadyz(checks map[string]Check) gin.HandlerFunc {
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), readinessTimeout)
		defer cancel()

		status := make(map[string]string, len(names))
		code := response.APIResponseCodeOK
		for _, name := range names {
			if err := checks[name](ctx); err != nil {
				status[name] = err.Error()
				code = response.APIResponseCodeUnavailable
				continue
			}
			status[name] = "ok"
		}
		c.JSON(http.StatusOK, response.ErrorT(code, status))
	}
}

func RegisterHealthRoutes(r gin.IRouter, checks map[string]Check) {
	r.GET("/healthz", Healthz)
	r.GET("/readyz", ApiReadyz(checks))
}
