package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
)

const consultationColumns = `id, patient_id, doctor_id, queue_entry_id, notes, diagnosis, prescription,
	referral_letters, attachments, created_at, updated_at`

type consultationRepository struct {
	db *sqlx.DB
}

func NewConsultationRepository(db *sqlx.DB) repository.ConsultationRepository {
	return &consultationRepository{db: db}
}

func (r *consultationRepository) Create(ctx context.Context, c *model.Consultation) error {
	query := `
		INSERT INTO consultations (
			id, patient_id, doctor_id, queue_entry_id, notes, diagnosis, prescription,
			referral_letters, attachments, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	c.ID = uuid.New()
	c.CreatedAt = time.Now().UTC()
	c.UpdatedAt = c.CreatedAt
	if c.Attachments == nil {
		c.Attachments = model.StringList{}
	}

	_, err := r.db.ExecContext(ctx, query,
		c.ID,
		c.PatientID,
		c.DoctorID,
		c.QueueEntryID,
		c.Notes,
		c.Diagnosis,
		c.Prescription,
		c.ReferralLetters,
		c.Attachments,
		c.CreatedAt,
		c.UpdatedAt,
	)
	return mapError(err, "consultation")
}

func (r *consultationRepository) Get(ctx context.Context, id uuid.UUID) (*model.Consultation, error) {
	var c model.Consultation
	if err := r.db.GetContext(ctx, &c, `SELECT `+consultationColumns+` FROM consultations WHERE id = $1`, id); err != nil {
		return nil, mapError(err, "consultation")
	}
	return &c, nil
}

func (r *consultationRepository) Update(ctx context.Context, c *model.Consultation) error {
	query := `
		UPDATE consultations
		SET notes = $1, diagnosis = $2, prescription = $3, referral_letters = $4, attachments = $5, updated_at = $6
		WHERE id = $7
	`
	c.UpdatedAt = time.Now().UTC()

	result, err := r.db.ExecContext(ctx, query,
		c.Notes,
		c.Diagnosis,
		c.Prescription,
		c.ReferralLetters,
		c.Attachments,
		c.UpdatedAt,
		c.ID,
	)
	if err != nil {
		return mapError(err, "consultation")
	}
	return expectOne(result, "consultation")
}

func (r *consultationRepository) List(ctx context.Context, filters *model.ConsultationFilters) ([]*model.Consultation, error) {
	var w where
	if filters.PatientID != uuid.Nil {
		w.add("patient_id = $%d", filters.PatientID)
	}
	if filters.DoctorID != uuid.Nil {
		w.add("doctor_id = $%d", filters.DoctorID)
	}
	query := `SELECT ` + consultationColumns + ` FROM consultations` + w.String() +
		` ORDER BY created_at DESC` + w.page(filters.Pagination)

	consultations := []*model.Consultation{}
	if err := r.db.SelectContext(ctx, &consultations, query, w.args...); err != nil {
		return nil, fmt.Errorf("failed to list consultations: %w", err)
	}
	return consultations, nil
}
