package appointment

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	"github.com/jwalitptl/clinic-api/internal/service/activity"
	"github.com/jwalitptl/clinic-api/internal/service/queue"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
)

const (
	MinAppointmentDuration = 5 * time.Minute
	MaxAppointmentDuration = 8 * time.Hour
)

type Service struct {
	repo     repository.AppointmentRepository
	patients repository.PatientRepository
	users    repository.UserRepository
	activity *activity.Service
}

func NewService(
	repo repository.AppointmentRepository,
	patients repository.PatientRepository,
	users repository.UserRepository,
	activity *activity.Service,
) *Service {
	return &Service{
		repo:     repo,
		patients: patients,
		users:    users,
		activity: activity,
	}
}

func validateDuration(minutes int) error {
	d := time.Duration(minutes) * time.Minute
	if d < MinAppointmentDuration || d > MaxAppointmentDuration {
		return apperrors.Validation("invalid appointment duration", map[string]string{
			"duration_minutes": fmt.Sprintf("must be between %v and %v", MinAppointmentDuration, MaxAppointmentDuration),
		})
	}
	return nil
}

func (s *Service) Create(ctx context.Context, req *model.CreateAppointmentRequest) (*model.Appointment, error) {
	if _, err := s.patients.Get(ctx, req.PatientID); err != nil {
		return nil, fmt.Errorf("failed to load patient: %w", err)
	}
	if err := queue.EnsureDoctor(ctx, s.users, req.DoctorID); err != nil {
		return nil, err
	}

	apt := &model.Appointment{
		PatientID:       req.PatientID,
		DoctorID:        req.DoctorID,
		ScheduledAt:     req.ScheduledAt.UTC(),
		DurationMinutes: req.DurationMinutes,
		Status:          model.AppointmentStatusScheduled,
		Type:            req.Type,
		Notes:           req.Notes,
	}
	if apt.DurationMinutes == 0 {
		apt.DurationMinutes = model.DefaultAppointmentMinutes
	}
	if err := validateDuration(apt.DurationMinutes); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, apt); err != nil {
		return nil, fmt.Errorf("failed to create appointment: %w", err)
	}

	s.activity.Log(ctx, model.ActivityCreate, model.EntityAppointment, apt.ID, model.JSONMap{
		"patient_id":   apt.PatientID.String(),
		"doctor_id":    apt.DoctorID.String(),
		"scheduled_at": apt.ScheduledAt,
	})
	return apt, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	apt, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}
	return apt, nil
}

// Update reschedules or edits an appointment that has not reached a
// terminal status.
func (s *Service) Update(ctx context.Context, id uuid.UUID, req *model.UpdateAppointmentRequest) (*model.Appointment, error) {
	apt, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}
	if apt.Status.Terminal() {
		return nil, apperrors.Conflict(fmt.Sprintf("%s appointments cannot be edited", apt.Status), nil)
	}

	if req.DoctorID != nil && *req.DoctorID != apt.DoctorID {
		if err := queue.EnsureDoctor(ctx, s.users, *req.DoctorID); err != nil {
			return nil, err
		}
		apt.DoctorID = *req.DoctorID
	}
	if req.ScheduledAt != nil {
		apt.ScheduledAt = req.ScheduledAt.UTC()
	}
	if req.DurationMinutes != nil {
		if err := validateDuration(*req.DurationMinutes); err != nil {
			return nil, err
		}
		apt.DurationMinutes = *req.DurationMinutes
	}
	if req.Type != nil {
		apt.Type = *req.Type
	}
	if req.Notes != nil {
		apt.Notes = *req.Notes
	}

	if err := s.repo.Update(ctx, apt); err != nil {
		return nil, fmt.Errorf("failed to update appointment: %w", err)
	}

	s.activity.Log(ctx, model.ActivityUpdate, model.EntityAppointment, apt.ID, nil)
	return apt, nil
}

// UpdateStatus moves the appointment to status if the lifecycle allows it
// from the status it is in now. A concurrent change between the read and
// the write surfaces as an invalid transition.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, status model.AppointmentStatus) (*model.Appointment, error) {
	if _, err := model.ParseAppointmentStatus(string(status)); err != nil {
		return nil, apperrors.Validation("invalid status", map[string]string{"status": err.Error()})
	}

	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}
	if !current.Status.CanTransitionTo(status) {
		return nil, apperrors.InvalidTransition("appointment", string(current.Status), string(status))
	}

	apt, err := s.repo.Transition(ctx, id, current.Status, status)
	if err != nil {
		return nil, fmt.Errorf("failed to move appointment to %s: %w", status, err)
	}

	s.activity.Log(ctx, model.ActivityTransition, model.EntityAppointment, apt.ID, model.JSONMap{
		"from": string(current.Status),
		"to":   string(status),
	})
	return apt, nil
}

func (s *Service) List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error) {
	if !filters.From.IsZero() && !filters.To.IsZero() && filters.To.Before(filters.From) {
		return nil, apperrors.Validation("invalid date range", map[string]string{"to": "must not be before from"})
	}
	appointments, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	return appointments, nil
}
