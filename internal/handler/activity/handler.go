package activity

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/authz"
	"github.com/jwalitptl/clinic-api/internal/handler"
	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/service/activity"
)

type Handler struct {
	service *activity.Service
}

func NewHandler(service *activity.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup, allow handler.Authorizer) {
	r.GET("/activity", allow(authz.ActivityRead), h.ListActivity)
}

func (h *Handler) ListActivity(c *gin.Context) {
	var filters model.ActivityFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		handler.RespondBindError(c, err)
		return
	}
	if err := handler.QueryIDs(c, map[string]*uuid.UUID{
		"user_id":   &filters.UserID,
		"entity_id": &filters.EntityID,
	}); err != nil {
		handler.RespondError(c, err)
		return
	}

	logs, err := h.service.List(c.Request.Context(), &filters)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	handler.OK(c, logs)
}
