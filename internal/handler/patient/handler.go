package patient

import (
	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/clinic-api/internal/authz"
	"github.com/jwalitptl/clinic-api/internal/handler"
	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/service/patient"
)

type Handler struct {
	service *patient.Service
}

func NewHandler(service *patient.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup, allow handler.Authorizer) {
	patients := r.Group("/patients")
	{
		patients.POST("", allow(authz.PatientsWrite), h.CreatePatient)
		patients.GET("", allow(authz.PatientsRead), h.ListPatients)
		patients.GET("/:id", allow(authz.PatientsRead), h.GetPatient)
		patients.PUT("/:id", allow(authz.PatientsWrite), h.UpdatePatient)
		patients.GET("/:id/history", allow(authz.PatientsRead), h.GetHistory)
	}
}

func (h *Handler) CreatePatient(c *gin.Context) {
	var req model.CreatePatientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.RespondBindError(c, err)
		return
	}

	patient, err := h.service.Create(c.Request.Context(), &req)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	handler.Created(c, patient)
}

func (h *Handler) GetPatient(c *gin.Context) {
	id, ok := handler.ParseID(c, "patient")
	if !ok {
		return
	}

	patient, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	handler.OK(c, patient)
}

func (h *Handler) UpdatePatient(c *gin.Context) {
	id, ok := handler.ParseID(c, "patient")
	if !ok {
		return
	}
	var req model.UpdatePatientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.RespondBindError(c, err)
		return
	}

	patient, err := h.service.Update(c.Request.Context(), id, &req)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	handler.OK(c, patient)
}

func (h *Handler) ListPatients(c *gin.Context) {
	var filters model.PatientFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		handler.RespondBindError(c, err)
		return
	}

	patients, err := h.service.List(c.Request.Context(), &filters)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	handler.OK(c, patients)
}

func (h *Handler) GetHistory(c *gin.Context) {
	id, ok := handler.ParseID(c, "patient")
	if !ok {
		return
	}

	history, err := h.service.History(c.Request.Context(), id)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	handler.OK(c, history)
}
