package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fatflowers/entitlements/pkg/logctx"
	"github.com/fatflowers/entitlements/pkg/response"
)

// Sessions holds the signed-in identity the listeners follow.
type Sessions interface {
	Login(ctx context.Context, userID string) error
	Logout(ctx context.Context)
	Current() (string, bool)
}

type LoginRequest struct {
	UserID string `json:"user_id" binding:"required"`
}

type SessionResponse struct {
	UserID   string `json:"user_id"`
	LoggedIn bool   `json:"logged_in"`
}

// @Summary      Login
// @Description  Sets the current identity; change listeners follow it.
// @Tags         Session
// @Accept       json
// @Produce      json
// @Param        request body LoginRequest true "Login request"
// @Success      200  {object}  handlers.RespSession
// @Router       /api/v1/session/login [post]
func ApiLogin(s Sessions) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		if err := s.Login(logctx.WithUser(c.Request.Context(), req.UserID), req.UserID); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		userID, ok := s.Current()
		c.JSON(http.StatusOK, response.OKT(&SessionResponse{UserID: userID, LoggedIn: ok}))
	}
}

// @Summary      Logout
// @Description  Clears the current identity and stops its change listeners.
// @Tags         Session
// @Produce      json
// @Success      200  {object}  handlers.RespSession
// @Router       /api/v1/session/logout [post]
func ApiLogout(s Sessions) gin.HandlerFunc {
	return func(c *gin.Context) {
		s.Logout(c.Request.Context())
		c.JSON(http.StatusOK, response.OKT(&SessionResponse{}))
	}
}

func RegisterSessionRoutes(r gin.IRouter, s Sessions) {
	r.POST("/session/login", ApiLogin(s))
	r.POST("/session/logout", ApiLogout(s))
}
