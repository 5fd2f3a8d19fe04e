package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
)

// All repository interfaces in one file
type (
	UserRepository interface {
		Create(ctx context.Context, user *model.User) error
		Get(ctx context.Context, id uuid.UUID) (*model.User, error)
		GetByEmail(ctx context.Context, email string) (*model.User, error)
		Update(ctx context.Context, user *model.User) error
		SetActive(ctx context.Context, id uuid.UUID, active bool) (*model.User, error)
		UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
		TouchLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
		List(ctx context.Context, filters *model.UserFilters) ([]*model.User, error)
	}

	PatientRepository interface {
		Create(ctx context.Context, patient *model.Patient) error
		Get(ctx context.Context, id uuid.UUID) (*model.Patient, error)
		GetByIDNumber(ctx context.Context, idNumber string) (*model.Patient, error)
		Update(ctx context.Context, patient *model.Patient) error
		List(ctx context.Context, filters *model.PatientFilters) ([]*model.Patient, error)
	}

	AppointmentRepository interface {
		Create(ctx context.Context, appointment *model.Appointment) error
		Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
		Update(ctx context.Context, appointment *model.Appointment) error
		// Transition moves the appointment from one status to another only if
		// the stored status still equals from.
		Transition(ctx context.Context, id uuid.UUID, from, to model.AppointmentStatus) (*model.Appointment, error)
		List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error)
	}

	CheckInRepository interface {
		// Create stores the check-in and, when entry is non-nil, the queue
		// entry in the same transaction.
		Create(ctx context.Context, checkIn *model.CheckIn, entry *model.QueueEntry) error
		Get(ctx context.Context, id uuid.UUID) (*model.CheckIn, error)
		List(ctx context.Context, filters *model.CheckInFilters) ([]*model.CheckIn, error)
	}

	QueueRepository interface {
		Create(ctx context.Context, entry *model.QueueEntry) error
		Get(ctx context.Context, id uuid.UUID) (*model.QueueEntry, error)
		// List returns entries in service order: priority descending, then
		// entered_at ascending.
		List(ctx context.Context, filters *model.QueueFilters) ([]*model.QueueEntry, error)
		Next(ctx context.Context, doctorID *uuid.UUID) (*model.QueueEntry, error)
		Transition(ctx context.Context, t model.QueueTransition) (*model.QueueEntry, error)
		// Update applies corrective edits to an entry that is not completed.
		Update(ctx context.Context, entry *model.QueueEntry) error
	}

	ConsultationRepository interface {
		Create(ctx context.Context, consultation *model.Consultation) error
		Get(ctx context.Context, id uuid.UUID) (*model.Consultation, error)
		Update(ctx context.Context, consultation *model.Consultation) error
		List(ctx context.Context, filters *model.ConsultationFilters) ([]*model.Consultation, error)
	}

	PaymentRepository interface {
		Create(ctx context.Context, payment *model.Payment) error
		Get(ctx context.Context, id uuid.UUID) (*model.Payment, error)
		List(ctx context.Context, filters *model.PaymentFilters) ([]*model.Payment, error)
	}

	ActivityRepository interface {
		Create(ctx context.Context, entry *model.ActivityLog) error
		List(ctx context.Context, filters *model.ActivityFilters) ([]*model.ActivityLog, error)
	}

	APIKeyRepository interface {
		Create(ctx context.Context, key *model.APIKey) error
		Get(ctx context.Context, id uuid.UUID) (*model.APIKey, error)
		GetByHash(ctx context.Context, hash string) (*model.APIKey, error)
		ListByUser(ctx context.Context, userID uuid.UUID) ([]*model.APIKey, error)
		Revoke(ctx context.Context, id uuid.UUID, at time.Time) error
		TouchLastUsed(ctx context.Context, id uuid.UUID, at time.Time) error
	}

	PasswordResetRepository interface {
		Create(ctx context.Context, token *model.PasswordResetToken) error
		// Consume marks an unexpired, unused token as used and returns its owner.
		Consume(ctx context.Context, tokenHash string, now time.Time) (uuid.UUID, error)
		// Purge deletes tokens that expired or were used before cutoff.
		Purge(ctx context.Context, cutoff time.Time) (int64, error)
	}

	DashboardRepository interface {
		Stats(ctx context.Context, dayStart, dayEnd time.Time) (*model.DashboardStats, error)
	}
)
