package consultation

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/authz"
	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	"github.com/jwalitptl/clinic-api/internal/service/activity"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
)

type Service struct {
	repo     repository.ConsultationRepository
	patients repository.PatientRepository
	queue    repository.QueueRepository
	activity *activity.Service
}

func NewService(
	repo repository.ConsultationRepository,
	patients repository.PatientRepository,
	queue repository.QueueRepository,
	activity *activity.Service,
) *Service {
	return &Service{repo: repo, patients: patients, queue: queue, activity: activity}
}

// Create records a consultation by the calling doctor.
func (s *Service) Create(ctx context.Context, req *model.CreateConsultationRequest) (*model.Consultation, error) {
	caller, ok := authz.IdentityFrom(ctx)
	if !ok {
		return nil, apperrors.Unauthenticated("authentication required")
	}
	if caller.Role != model.RoleDoctor {
		return nil, apperrors.Forbidden("only doctors record consultations")
	}

	if _, err := s.patients.Get(ctx, req.PatientID); err != nil {
		return nil, fmt.Errorf("failed to load patient: %w", err)
	}
	if req.QueueEntryID == uuid.Nil {
		return nil, apperrors.Validation("queue entry required", map[string]string{"queue_entry_id": "is required"})
	}
	entry, err := s.queue.Get(ctx, req.QueueEntryID)
	if err != nil {
		return nil, fmt.Errorf("failed to load queue entry: %w", err)
	}
	if entry.PatientID != req.PatientID {
		return nil, apperrors.Validation("queue entry belongs to another patient",
			map[string]string{"queue_entry_id": "does not belong to patient"})
	}

	consultation := &model.Consultation{
		PatientID:       req.PatientID,
		DoctorID:        caller.UserID,
		QueueEntryID:    req.QueueEntryID,
		Notes:           req.Notes,
		Diagnosis:       req.Diagnosis,
		Prescription:    req.Prescription,
		ReferralLetters: req.ReferralLetters,
		Attachments:     model.StringList(req.Attachments),
	}
	if consultation.Attachments == nil {
		consultation.Attachments = model.StringList{}
	}

	if err := s.repo.Create(ctx, consultation); err != nil {
		return nil, fmt.Errorf("failed to create consultation: %w", err)
	}

	s.activity.Log(ctx, model.ActivityCreate, model.EntityConsultation, consultation.ID, model.JSONMap{
		"patient_id": consultation.PatientID.String(),
	})
	return consultation, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.Consultation, error) {
	consultation, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get consultation: %w", err)
	}
	return consultation, nil
}

// Update lets the doctor who wrote a consultation amend it.
func (s *Service) Update(ctx context.Context, id uuid.UUID, req *model.UpdateConsultationRequest) (*model.Consultation, error) {
	consultation, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get consultation: %w", err)
	}
	if caller, ok := authz.IdentityFrom(ctx); !ok || caller.UserID != consultation.DoctorID {
		return nil, apperrors.Forbidden("only the authoring doctor may amend a consultation")
	}

	req.Apply(consultation)
	if err := s.repo.Update(ctx, consultation); err != nil {
		return nil, fmt.Errorf("failed to update consultation: %w", err)
	}

	s.activity.Log(ctx, model.ActivityUpdate, model.EntityConsultation, consultation.ID, nil)
	return consultation, nil
}

func (s *Service) List(ctx context.Context, filters *model.ConsultationFilters) ([]*model.Consultation, error) {
	consultations, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list consultations: %w", err)
	}
	return consultations, nil
}
