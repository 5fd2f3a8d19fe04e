package patient

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	"github.com/jwalitptl/clinic-api/internal/service/activity"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
)

type Service struct {
	repo          repository.PatientRepository
	appointments  repository.AppointmentRepository
	consultations repository.ConsultationRepository
	payments      repository.PaymentRepository
	activity      *activity.Service
}

func NewService(
	repo repository.PatientRepository,
	appointments repository.AppointmentRepository,
	consultations repository.ConsultationRepository,
	payments repository.PaymentRepository,
	activity *activity.Service,
) *Service {
	return &Service{
		repo:          repo,
		appointments:  appointments,
		consultations: consultations,
		payments:      payments,
		activity:      activity,
	}
}

func (s *Service) Create(ctx context.Context, req *model.CreatePatientRequest) (*model.Patient, error) {
	patient := &model.Patient{
		FirstName:        strings.TrimSpace(req.FirstName),
		LastName:         strings.TrimSpace(req.LastName),
		Email:            req.Email,
		Phone:            strings.TrimSpace(req.Phone),
		DateOfBirth:      req.DateOfBirth,
		Gender:           req.Gender,
		IDNumber:         strings.TrimSpace(req.IDNumber),
		Address:          req.Address,
		MedicalAidScheme: req.MedicalAidScheme,
		MedicalAidNumber: req.MedicalAidNumber,
		PhotoURL:         req.PhotoURL,
	}
	if err := validatePatient(patient); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, patient); err != nil {
		return nil, fmt.Errorf("failed to create patient: %w", err)
	}

	s.activity.Log(ctx, model.ActivityCreate, model.EntityPatient, patient.ID, model.JSONMap{"name": patient.FullName()})
	return patient, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.Patient, error) {
	patient, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get patient: %w", err)
	}
	return patient, nil
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, req *model.UpdatePatientRequest) (*model.Patient, error) {
	patient, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get patient: %w", err)
	}

	req.Apply(patient)
	if err := validatePatient(patient); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, patient); err != nil {
		return nil, fmt.Errorf("failed to update patient: %w", err)
	}

	s.activity.Log(ctx, model.ActivityUpdate, model.EntityPatient, patient.ID, nil)
	return patient, nil
}

func (s *Service) List(ctx context.Context, filters *model.PatientFilters) ([]*model.Patient, error) {
	patients, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list patients: %w", err)
	}
	return patients, nil
}

// History collects the patient's appointments, consultations and payments.
func (s *Service) History(ctx context.Context, id uuid.UUID) (*model.PatientHistory, error) {
	patient, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get patient: %w", err)
	}

	all := model.Pagination{PageSize: model.MaxPageSize}
	appointments, err := s.appointments.List(ctx, &model.AppointmentFilters{PatientID: id, Pagination: all})
	if err != nil {
		return nil, fmt.Errorf("failed to load appointments: %w", err)
	}
	consultations, err := s.consultations.List(ctx, &model.ConsultationFilters{PatientID: id, Pagination: all})
	if err != nil {
		return nil, fmt.Errorf("failed to load consultations: %w", err)
	}
	payments, err := s.payments.List(ctx, &model.PaymentFilters{PatientID: id, Pagination: all})
	if err != nil {
		return nil, fmt.Errorf("failed to load payments: %w", err)
	}

	return &model.PatientHistory{
		Patient:       patient,
		Appointments:  appointments,
		Consultations: consultations,
		Payments:      payments,
	}, nil
}

func validatePatient(p *model.Patient) error {
	fields := map[string]string{}
	if p.FirstName == "" {
		fields["first_name"] = "is required"
	}
	if p.LastName == "" {
		fields["last_name"] = "is required"
	}
	if p.IDNumber == "" {
		fields["id_number"] = "is required"
	}
	if p.DateOfBirth.IsZero() {
		fields["date_of_birth"] = "is required"
	} else if p.DateOfBirth.After(time.Now()) {
		fields["date_of_birth"] = "must not be in the future"
	}
	if _, err := model.ParseGender(string(p.Gender)); err != nil {
		fields["gender"] = "must be one of male, female, other"
	}
	if len(fields) > 0 {
		return apperrors.Validation("invalid patient", fields)
	}
	return nil
}
