package payment

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	"github.com/jwalitptl/clinic-api/internal/service/activity"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
)

type Service struct {
	repo     repository.PaymentRepository
	patients repository.PatientRepository
	checkIns repository.CheckInRepository
	activity *activity.Service
}

func NewService(
	repo repository.PaymentRepository,
	patients repository.PatientRepository,
	checkIns repository.CheckInRepository,
	activity *activity.Service,
) *Service {
	return &Service{repo: repo, patients: patients, checkIns: checkIns, activity: activity}
}

func (s *Service) Create(ctx context.Context, req *model.CreatePaymentRequest) (*model.Payment, error) {
	if !model.ValidAmount(req.Amount) {
		return nil, apperrors.Validation("invalid amount",
			map[string]string{"amount": "must be between 0 and " + model.MaxAmount.StringFixed(model.AmountScale) +
				" with at most two decimals"})
	}
	if _, err := model.ParsePaymentMethod(string(req.PaymentMethod)); err != nil {
		return nil, apperrors.Validation("invalid payment method", map[string]string{"payment_method": err.Error()})
	}
	if _, err := s.patients.Get(ctx, req.PatientID); err != nil {
		return nil, fmt.Errorf("failed to load patient: %w", err)
	}
	if req.CheckInID == uuid.Nil {
		return nil, apperrors.Validation("check-in required", map[string]string{"check_in_id": "is required"})
	}
	checkIn, err := s.checkIns.Get(ctx, req.CheckInID)
	if err != nil {
		return nil, fmt.Errorf("failed to load check-in: %w", err)
	}
	if checkIn.PatientID != req.PatientID {
		return nil, apperrors.Validation("check-in belongs to another patient",
			map[string]string{"check_in_id": "does not belong to patient"})
	}

	payment := &model.Payment{
		PatientID:     req.PatientID,
		CheckInID:     req.CheckInID,
		Amount:        req.Amount,
		PaymentMethod: req.PaymentMethod,
		Reference:     req.Reference,
		Notes:         req.Notes,
	}
	if err := s.repo.Create(ctx, payment); err != nil {
		return nil, fmt.Errorf("failed to record payment: %w", err)
	}

	s.activity.Log(ctx, model.ActivityCreate, model.EntityPayment, payment.ID, model.JSONMap{
		"patient_id": payment.PatientID.String(),
		"amount":     payment.Amount.StringFixed(model.AmountScale),
		"method":     string(payment.PaymentMethod),
	})
	return payment, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.Payment, error) {
	payment, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	return payment, nil
}

func (s *Service) List(ctx context.Context, filters *model.PaymentFilters) ([]*model.Payment, error) {
	payments, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	return payments, nil
}
