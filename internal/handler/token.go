package handler

import (
	"net/http"

	"github.com/crudkit/sampleapi/internal/middleware"
	"github.com/crudkit/sampleapi/internal/service"
	"github.com/gin-gonic/gin"
)

type TokenHandler struct {
	svc *service.AuthService
}

func NewTokenHandler(svc *service.AuthService) *TokenHandler {
	return &TokenHandler{svc: svc}
}

// Obtain exchanges username/password for an access/refresh pair.
func (h *TokenHandler) Obtain(c *gin.Context) {
	var req service.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(bindError(err))
		return
	}
	pair, err := h.svc.Login(c.Request.Context(), req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, pair)
}

func (h *TokenHandler) Refresh(c *gin.Context) {
	var req service.RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(bindError(err))
		return
	}
	access, err := h.svc.Refresh(c.Request.Context(), req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, access)
}

// Info describes the caller. Mounted behind RequireAuth.
func (h *TokenHandler) Info(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Info(middleware.Principal(c)))
}
