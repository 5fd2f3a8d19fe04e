package checkin

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	"github.com/jwalitptl/clinic-api/internal/service/activity"
	"github.com/jwalitptl/clinic-api/internal/service/queue"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
)

type Service struct {
	repo         repository.CheckInRepository
	patients     repository.PatientRepository
	appointments repository.AppointmentRepository
	users        repository.UserRepository
	queue        *queue.Service
	activity     *activity.Service
}

func NewService(
	repo repository.CheckInRepository,
	patients repository.PatientRepository,
	appointments repository.AppointmentRepository,
	users repository.UserRepository,
	queueSvc *queue.Service,
	activity *activity.Service,
) *Service {
	return &Service{
		repo:         repo,
		patients:     patients,
		appointments: appointments,
		users:        users,
		queue:        queueSvc,
		activity:     activity,
	}
}

// Create records an arrival. Without an appointment the visit is a walk-in.
// With AdmitToQueue the queue entry is stored in the same transaction.
func (s *Service) Create(ctx context.Context, req *model.CreateCheckInRequest) (*model.CheckInResult, error) {
	if _, err := model.ParsePaymentMethod(string(req.PaymentMethod)); err != nil {
		return nil, apperrors.Validation("invalid payment method", map[string]string{"payment_method": err.Error()})
	}
	if _, err := s.patients.Get(ctx, req.PatientID); err != nil {
		return nil, fmt.Errorf("failed to load patient: %w", err)
	}

	checkIn := &model.CheckIn{
		PatientID:     req.PatientID,
		PaymentMethod: req.PaymentMethod,
		IsWalkIn:      req.AppointmentID == nil,
		Notes:         req.Notes,
	}
	if req.AppointmentID != nil {
		apt, err := s.appointments.Get(ctx, *req.AppointmentID)
		if err != nil {
			return nil, fmt.Errorf("failed to load appointment: %w", err)
		}
		if apt.PatientID != req.PatientID {
			return nil, apperrors.Validation("appointment belongs to another patient",
				map[string]string{"appointment_id": "does not belong to patient"})
		}
		if apt.Status.Terminal() {
			return nil, apperrors.Conflict(fmt.Sprintf("cannot check in for a %s appointment", apt.Status), nil)
		}
		checkIn.AppointmentID = req.AppointmentID
	}

	var entry *model.QueueEntry
	if req.AdmitToQueue {
		if req.DoctorID != nil {
			if err := queue.EnsureDoctor(ctx, s.users, *req.DoctorID); err != nil {
				return nil, err
			}
		}
		entry = &model.QueueEntry{
			PatientID: req.PatientID,
			DoctorID:  req.DoctorID,
			Priority:  req.Priority,
		}
	}

	if err := s.repo.Create(ctx, checkIn, entry); err != nil {
		return nil, fmt.Errorf("failed to create check-in: %w", err)
	}

	s.activity.Log(ctx, model.ActivityCreate, model.EntityCheckIn, checkIn.ID, model.JSONMap{
		"patient_id": checkIn.PatientID.String(),
		"walk_in":    checkIn.IsWalkIn,
	})
	if entry != nil {
		s.queue.Admitted(ctx, entry)
	}
	return &model.CheckInResult{CheckIn: checkIn, QueueEntry: entry}, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.CheckIn, error) {
	checkIn, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get check-in: %w", err)
	}
	return checkIn, nil
}

func (s *Service) List(ctx context.Context, filters *model.CheckInFilters) ([]*model.CheckIn, error) {
	checkIns, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list check-ins: %w", err)
	}
	return checkIns, nil
}
