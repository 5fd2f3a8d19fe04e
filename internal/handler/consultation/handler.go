package consultation

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/authz"
	"github.com/jwalitptl/clinic-api/internal/handler"
	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/service/consultation"
)

type Handler struct {
	service *consultation.Service
}

func NewHandler(service *consultation.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup, allow handler.Authorizer) {
	consultations := r.Group("/consultations")
	{
		consultations.POST("", allow(authz.ConsultationsWrite), h.CreateConsultation)
		consultations.GET("", allow(authz.ConsultationsRead), h.ListConsultations)
		consultations.GET("/:id", allow(authz.ConsultationsRead), h.GetConsultation)
		consultations.PUT("/:id", allow(authz.ConsultationsWrite), h.UpdateConsultation)
	}
}

func (h *Handler) CreateConsultation(c *gin.Context) {
	var req model.CreateConsultationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.RespondBindError(c, err)
		return
	}

	consultation, err := h.service.Create(c.Request.Context(), &req)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	handler.Created(c, consultation)
}

func (h *Handler) GetConsultation(c *gin.Context) {
	id, ok := handler.ParseID(c, "consultation")
	if !ok {
		return
	}

	consultation, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	handler.OK(c, consultation)
}

func (h *Handler) UpdateConsultation(c *gin.Context) {
	id, ok := handler.ParseID(c, "consultation")
	if !ok {
		return
	}
	var req model.UpdateConsultationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.RespondBindError(c, err)
		return
	}

	consultation, err := h.service.Update(c.Request.Context(), id, &req)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	handler.OK(c, consultation)
}

func (h *Handler) ListConsultations(c *gin.Context) {
	var filters model.ConsultationFilters
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

	consultations, err := h.service.List(c.Request.Context(), &filters)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	handler.OK(c, consultations)
}
