package payment

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/authz"
	"github.com/jwalitptl/clinic-api/internal/handler"
	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/service/payment"
)

type Handler struct {
	service *payment.Service
}

func NewHandler(service *payment.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup, allow handler.Authorizer) {
	payments := r.Group("/payments")
	{
		payments.POST("", allow(authz.PaymentsWrite), h.CreatePayment)
		payments.GET("", allow(authz.PaymentsRead), h.ListPayments)
		payments.GET("/:id", allow(authz.PaymentsRead), h.GetPayment)
	}
}

func (h *Handler) CreatePayment(c *gin.Context) {
	var req model.CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.RespondBindError(c, err)
		return
	}

	payment, err := h.service.Create(c.Request.Context(), &req)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	handler.Created(c, payment)
}

func (h *Handler) GetPayment(c *gin.Context) {
	id, ok := handler.ParseID(c, "payment")
	if !ok {
		return
	}

	payment, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	handler.OK(c, payment)
}

func (h *Handler) ListPayments(c *gin.Context) {
	var filters model.PaymentFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		handler.RespondBindError(c, err)
		return
	}
	if err := handler.QueryIDs(c, map[string]*uuid.UUID{
		"patient_id":  &filters.PatientID,
		"check_in_id": &filters.CheckInID,
	}); err != nil {
		handler.RespondError(c, err)
		return
	}

	payments, err := h.service.List(c.Request.Context(), &filters)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	handler.OK(c, payments)
}
