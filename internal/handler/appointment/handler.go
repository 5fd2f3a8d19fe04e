package appointment

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/authz"
	"github.com/jwalitptl/clinic-api/internal/handler"
	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/service/appointment"
)

type Handler struct {
	service *appointment.Service
}

func NewHandler(service *appointment.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup, allow handler.Authorizer) {
	appointments := r.Group("/appointments")
	{
		appointments.POST("", allow(authz.AppointmentsWrite), h.CreateAppointment)
		appointments.GET("", allow(authz.AppointmentsRead), h.ListAppointments)
		appointments.GET("/:id", allow(authz.AppointmentsRead), h.GetAppointment)
		appointments.PUT("/:id", allow(authz.AppointmentsWrite), h.UpdateAppointment)
		appointments.POST("/:id/status", allow(authz.AppointmentsStatus), h.UpdateStatus)
	}
}

func (h *Handler) CreateAppointment(c *gin.Context) {
	var req model.CreateAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.RespondBindError(c, err)
		return
	}

	apt, err := h.service.Create(c.Request.Context(), &req)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	handler.Created(c, apt)
}

func (h *Handler) GetAppointment(c *gin.Context) {
	id, ok := handler.ParseID(c, "appointment")
	if !ok {
		return
	}

	apt, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	handler.OK(c, apt)
}

func (h *Handler) UpdateAppointment(c *gin.Context) {
	id, ok := handler.ParseID(c, "appointment")
	if !ok {
		return
	}
	var req model.UpdateAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.RespondBindError(c, err)
		return
	}

	apt, err := h.service.Update(c.Request.Context(), id, &req)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	handler.OK(c, apt)
}

func (h *Handler) UpdateStatus(c *gin.Context) {
	id, ok := handler.ParseID(c, "appointment")
	if !ok {
		return
	}
	var req model.AppointmentStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.RespondBindError(c, err)
		return
	}

	apt, err := h.service.UpdateStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	handler.OK(c, apt)
}

func (h *Handler) ListAppointments(c *gin.Context) {
	var filters model.AppointmentFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		handler.RespondBindError(c, err)
		return
	}
	if err := handler.QueryIDs(c, map[string]*uuid.UUID{
		"patient_id": &filters.PatientID,
		"doctor_id":  &filters.DoctorID,
	}); err != nil {
		handler.RespondError(c, err)
		return
	}

	appointments, err := h.service.List(c.Request.Context(), &filters)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	handler.OK(c, appointments)
}
