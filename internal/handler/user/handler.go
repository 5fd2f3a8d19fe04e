package user

import (
	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/clinic-api/internal/authz"
	"github.com/jwalitptl/clinic-api/internal/handler"
	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/service/user"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
)

type Handler struct {
	service *user.Service
}

func NewHandler(service *user.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup, allow handler.Authorizer) {
	users := r.Group("/users")
	{
		users.POST("", allow(authz.UsersManage), h.CreateUser)
		users.GET("", allow(authz.UsersRead), h.ListUsers)
		users.GET("/:id", allow(authz.UsersRead), h.GetUser)
		users.PUT("/:id", allow(authz.UsersManage), h.UpdateUser)
		users.POST("/:id/deactivate", allow(authz.UsersManage), h.DeactivateUser)
		users.POST("/:id/activate", allow(authz.UsersManage), h.ActivateUser)
	}
}

func (h *Handler) CreateUser(c *gin.Context) {
	var req model.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.RespondBindError(c, err)
		return
	}

	user, err := h.service.Create(c.Request.Context(), &req)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	handler.Created(c, user)
}

func (h *Handler) GetUser(c *gin.Context) {
	id, ok := handler.ParseID(c, "user")
	if !ok {
		return
	}

	user, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	handler.OK(c, user)
}

func (h *Handler) UpdateUser(c *gin.Context) {
	id, ok := handler.ParseID(c, "user")
	if !ok {
		return
	}
	var req model.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.RespondBindError(c, err)
		return
	}

	user, err := h.service.Update(c.Request.Context(), id, &req)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	handler.OK(c, user)
}

func (h *Handler) DeactivateUser(c *gin.Context) {
	id, ok := handler.ParseID(c, "user")
	if !ok {
		return
	}

	user, err := h.service.Deactivate(c.Request.Context(), id)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	handler.OK(c, user)
}

func (h *Handler) ActivateUser(c *gin.Context) {
	id, ok := handler.ParseID(c, "user")
	if !ok {
		return
	}

	user, err := h.service.Activate(c.Request.Context(), id)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	handler.OK(c, user)
}

func (h *Handler) ListUsers(c *gin.Context) {
	var filters model.UserFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		handler.RespondBindError(c, err)
		return
	}
	if filters.Role != "" && !filters.Role.Valid() {
		handler.RespondError(c, apperrors.Validation("invalid query", map[string]string{"role": "must be one of staff, admin, doctor"}))
		return
	}

	users, err := h.service.List(c.Request.Context(), &filters)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	handler.OK(c, users)
}
