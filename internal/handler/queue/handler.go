package queue

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/authz"
	"github.com/jwalitptl/clinic-api/internal/handler"
	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/service/queue"
)

type Handler struct {
	service *queue.Service
}

func NewHandler(service *queue.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup, allow handler.Authorizer) {
	q := r.Group("/queue")
	{
		q.GET("", allow(authz.QueueRead), h.ListQueue)
		q.POST("", allow(authz.QueueAdmit), h.Admit)
		q.GET("/next", allow(authz.QueueRead), h.Next)
		q.GET("/:id", allow(authz.QueueRead), h.GetEntry)
		q.PATCH("/:id", allow(authz.QueueEdit), h.UpdateEntry)
		q.POST("/:id/start", allow(authz.QueueTransition), h.Start)
		q.POST("/:id/complete", allow(authz.QueueTransition), h.Complete)
	}
}

type startRequest struct {
	DoctorID *uuid.UUID `json:"doctor_id"`
}

func (h *Handler) ListQueue(c *gin.Context) {
	var filters model.QueueFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		handler.RespondBindError(c, err)
		return
	}
	if err := handler.QueryIDs(c, map[string]*uuid.UUID{"doctor_id": &filters.DoctorID}); err != nil {
		handler.RespondError(c, err)
		return
	}

	entries, err := h.service.List(c.Request.Context(), &filters)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	handler.OK(c, entries)
}

func (h *Handler) Admit(c *gin.Context) {
	var req model.AdmitQueueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.RespondBindError(c, err)
		return
	}

	entry, err := h.service.Admit(c.Request.Context(), &req)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	handler.Created(c, entry)
}

func (h *Handler) Next(c *gin.Context) {
	var doctorID uuid.UUID
	if err := handler.QueryIDs(c, map[string]*uuid.UUID{"doctor_id": &doctorID}); err != nil {
		handler.RespondError(c, err)
		return
	}
	var filter *uuid.UUID
	if doctorID != uuid.Nil {
		filter = &doctorID
	}

	entry, err := h.service.Next(c.Request.Context(), filter)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	handler.OK(c, entry)
}

func (h *Handler) GetEntry(c *gin.Context) {
	id, ok := handler.ParseID(c, "queue entry")
	if !ok {
		return
	}

	entry, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	handler.OK(c, entry)
}

func (h *Handler) UpdateEntry(c *gin.Context) {
	id, ok := handler.ParseID(c, "queue entry")
	if !ok {
		return
	}
	var req model.UpdateQueueEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.RespondBindError(c, err)
		return
	}

	entry, err := h.service.Update(c.Request.Context(), id, &req)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	handler.OK(c, entry)
}

// Start accepts an optional body naming the doctor who takes the patient.
func (h *Handler) Start(c *gin.Context) {
	id, ok := handler.ParseID(c, "queue entry")
	if !ok {
		return
	}
	var req startRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			handler.RespondBindError(c, err)
			return
		}
	}

	entry, err := h.service.Start(c.Request.Context(), id, req.DoctorID)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	handler.OK(c, entry)
}

func (h *Handler) Complete(c *gin.Context) {
	id, ok := handler.ParseID(c, "queue entry")
	if !ok {
		return
	}

	entry, err := h.service.Complete(c.Request.Context(), id)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	handler.OK(c, entry)
}
