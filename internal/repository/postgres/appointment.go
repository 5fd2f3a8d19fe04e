package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
)

const appointmentColumns = `id, patient_id, doctor_id, scheduled_at, duration_minutes, status, type, notes, created_at, updated_at`

type appointmentRepository struct {
	db *sqlx.DB
}

func NewAppointmentRepository(db *sqlx.DB) repository.AppointmentRepository {
	return &appointmentRepository{db: db}
}

func (r *appointmentRepository) Create(ctx context.Context, appointment *model.Appointment) error {
	query := `
		INSERT INTO appointments (
			id, patient_id, doctor_id, scheduled_at, duration_minutes,
			status, type, notes, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	appointment.ID = uuid.New()
	appointment.CreatedAt = time.Now().UTC()
	appointment.UpdatedAt = appointment.CreatedAt

	_, err := r.db.ExecContext(ctx, query,
		appointment.ID,
		appointment.PatientID,
		appointment.DoctorID,
		appointment.ScheduledAt,
		appointment.DurationMinutes,
		appointment.Status,
		appointment.Type,
		appointment.Notes,
		appointment.CreatedAt,
		appointment.UpdatedAt,
	)
	return mapError(err, "appointment")
}

func (r *appointmentRepository) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	var appointment model.Appointment
	err := r.db.GetContext(ctx, &appointment, `SELECT `+appointmentColumns+` FROM appointments WHERE id = $1`, id)
	if err != nil {
		return nil, mapError(err, "appointment")
	}
	return &appointment, nil
}

// Update edits scheduling details. Status only changes through Transition.
func (r *appointmentRepository) Update(ctx context.Context, appointment *model.Appointment) error {
	query := `
		UPDATE appointments
		SET doctor_id = $1, scheduled_at = $2, duration_minutes = $3, type = $4, notes = $5, updated_at = $6
		WHERE id = $7
	`
	appointment.UpdatedAt = time.Now().UTC()

	result, err := r.db.ExecContext(ctx, query,
		appointment.DoctorID,
		appointment.ScheduledAt,
		appointment.DurationMinutes,
		appointment.Type,
		appointment.Notes,
		appointment.UpdatedAt,
		appointment.ID,
	)
	if err != nil {
		return mapError(err, "appointment")
	}
	return expectOne(result, "appointment")
}

func (r *appointmentRepository) Transition(ctx context.Context, id uuid.UUID, from, to model.AppointmentStatus) (*model.Appointment, error) {
	if !from.CanTransitionTo(to) {
		return nil, apperrors.InvalidTransition("appointment", string(from), string(to))
	}

	var appointment model.Appointment
	err := r.db.GetContext(ctx, &appointment, `
		UPDATE appointments SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = $3
		RETURNING `+appointmentColumns, to, id, from)
	if err == nil {
		return &appointment, nil
	}
	if !isNoRows(err) {
		return nil, mapError(err, "appointment")
	}

	current, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return nil, apperrors.InvalidTransition("appointment", string(current.Status), string(to))
}

func (r *appointmentRepository) List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error) {
	var w where
	if filters.PatientID != uuid.Nil {
		w.add("patient_id = $%d", filters.PatientID)
	}
	if filters.DoctorID != uuid.Nil {
		w.add("doctor_id = $%d", filters.DoctorID)
	}
	if filters.Status != "" {
		w.add("status = $%d", filters.Status)
	}
	if !filters.From.IsZero() {
		w.add("scheduled_at >= $%d", filters.From)
	}
	if !filters.To.IsZero() {
		w.add("scheduled_at < $%d", filters.To.AddDate(0, 0, 1))
	}
	query := `SELECT ` + appointmentColumns + ` FROM appointments` + w.String() +
		` ORDER BY scheduled_at ASC` + w.page(filters.Pagination)

	appointments := []*model.Appointment{}
	if err := r.db.SelectContext(ctx, &appointments, query, w.args...); err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	return appointments, nil
}
