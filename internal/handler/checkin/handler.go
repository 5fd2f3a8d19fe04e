package checkin

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/authz"
	"github.com/jwalitptl/clinic-api/internal/handler"
	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/service/checkin"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
)

type Handler struct {
	service *checkin.Service
}

func NewHandler(service *checkin.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup, allow handler.Authorizer) {
	checkIns := r.Group("/check-ins")
	{
		checkIns.POST("", allow(authz.CheckInsWrite), h.CreateCheckIn)
		checkIns.GET("", allow(authz.CheckInsRead), h.ListCheckIns)
		checkIns.GET("/:id", allow(authz.CheckInsRead), h.GetCheckIn)
	}
}

func (h *Handler) CreateCheckIn(c *gin.Context) {
	var req model.CreateCheckInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.RespondBindError(c, err)
		return
	}

	result, err := h.service.Create(c.Request.Context(), &req)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	handler.Created(c, result)
}

func (h *Handler) GetCheckIn(c *gin.Context) {
	id, ok := handler.ParseID(c, "check-in")
	if !ok {
		return
	}

	checkIn, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	handler.OK(c, checkIn)
}

func (h *Handler) ListCheckIns(c *gin.Context) {
	var filters model.CheckInFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		handler.RespondBindError(c, err)
		return
	}
	if err := handler.QueryIDs(c, map[string]*uuid.UUID{"patient_id": &filters.PatientID}); err != nil {
		handler.RespondError(c, err)
		return
	}
	if raw := c.Query("date"); raw != "" {
		date, err := model.ParseDate(raw)
		if err != nil {
			handler.RespondError(c, apperrors.Validation("invalid query", map[string]string{"date": "must be YYYY-MM-DD"}))
			return
		}
		filters.Date = &date
	}

	checkIns, err := h.service.List(c.Request.Context(), &filters)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	handler.OK(c, checkIns)
}
