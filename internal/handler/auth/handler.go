package auth

import (
	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/clinic-api/internal/authz"
	"github.com/jwalitptl/clinic-api/internal/handler"
	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/service/auth"
)

type Handler struct {
	service *auth.Service
}

func NewHandler(service *auth.Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes mounts the login and password reset flows on public and
// the caller's own profile on protected.
func (h *Handler) RegisterRoutes(public, protected *gin.RouterGroup, allow handler.Authorizer) {
	a := public.Group("/auth")
	{
		a.POST("/login", h.Login)
		a.POST("/forgot-password", h.ForgotPassword)
		a.POST("/reset-password", h.ResetPassword)
	}
	protected.GET("/auth/me", allow(authz.AuthMe), h.Me)
}

func (h *Handler) Login(c *gin.Context) {
	var req model.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.RespondBindError(c, err)
		return
	}

	res, err := h.service.Login(c.Request.Context(), &req)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	handler.OK(c, res)
}

func (h *Handler) Me(c *gin.Context) {
	user, err := h.service.Me(c.Request.Context())
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	handler.OK(c, gin.H{
		"user":         user,
		"capabilities": authz.Capabilities(user.Role),
	})
}

func (h *Handler) ForgotPassword(c *gin.Context) {
	var req model.ForgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.RespondBindError(c, err)
		return
	}

	if err := h.service.ForgotPassword(c.Request.Context(), req.Email); err != nil {
		handler.RespondError(c, err)
		return
	}
	handler.OK(c, gin.H{"message": "if the address is registered, a reset link has been sent"})
}

func (h *Handler) ResetPassword(c *gin.Context) {
	var req model.ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.RespondBindError(c, err)
		return
	}

	if err := h.service.ResetPassword(c.Request.Context(), &req); err != nil {
		handler.RespondError(c, err)
		return
	}
	handler.OK(c, gin.H{"message": "password updated"})
}
