package apikey

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/clinic-api/internal/authz"
	"github.com/jwalitptl/clinic-api/internal/handler"
	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/service/apikey"
)

type Handler struct {
	service *apikey.Service
}

func NewHandler(service *apikey.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup, allow handler.Authorizer) {
	keys := r.Group("/api-keys", allow(authz.APIKeysManage))
	{
		keys.GET("", h.ListKeys)
		keys.POST("", h.CreateKey)
		keys.DELETE("/:id", h.RevokeKey)
	}
}

func (h *Handler) ListKeys(c *gin.Context) {
	keys, err := h.service.List(c.Request.Context())
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	handler.OK(c, keys)
}

// CreateKey returns the raw key. It cannot be retrieved again.
func (h *Handler) CreateKey(c *gin.Context) {
	var req model.CreateAPIKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.RespondBindError(c, err)
		return
	}

	created, err := h.service.Create(c.Request.Context(), &req)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	handler.Created(c, created)
}

func (h *Handler) RevokeKey(c *gin.Context) {
	id, ok := handler.ParseID(c, "api key")
	if !ok {
		return
	}

	if err := h.service.Revoke(c.Request.Context(), id); err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{"revoked": true}))
}
