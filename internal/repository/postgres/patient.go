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

const patientColumns = `id, first_name, last_name, email, phone, date_of_birth, gender, id_number,
	address, medical_aid_scheme, medical_aid_number, photo_url, created_at, updated_at`

type patientRepository struct {
	db *sqlx.DB
}

func NewPatientRepository(db *sqlx.DB) repository.PatientRepository {
	return &patientRepository{db: db}
}

func (r *patientRepository) Create(ctx context.Context, patient *model.Patient) error {
	query := `
		INSERT INTO patients (
			id, first_name, last_name, email, phone, date_of_birth, gender, id_number,
			address, medical_aid_scheme, medical_aid_number, photo_url, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	patient.ID = uuid.New()
	patient.CreatedAt = time.Now().UTC()
	patient.UpdatedAt = patient.CreatedAt

	_, err := r.db.ExecContext(ctx, query,
		patient.ID,
		patient.FirstName,
		patient.LastName,
		patient.Email,
		patient.Phone,
		patient.DateOfBirth,
		patient.Gender,
		patient.IDNumber,
		patient.Address,
		patient.MedicalAidScheme,
		patient.MedicalAidNumber,
		patient.PhotoURL,
		patient.CreatedAt,
		patient.UpdatedAt,
	)
	return mapError(err, "patient")
}

func (r *patientRepository) Get(ctx context.Context, id uuid.UUID) (*model.Patient, error) {
	var patient model.Patient
	if err := r.db.GetContext(ctx, &patient, `SELECT `+patientColumns+` FROM patients WHERE id = $1`, id); err != nil {
		return nil, mapError(err, "patient")
	}
	return &patient, nil
}

func (r *patientRepository) GetByIDNumber(ctx context.Context, idNumber string) (*model.Patient, error) {
	var patient model.Patient
	if err := r.db.GetContext(ctx, &patient, `SELECT `+patientColumns+` FROM patients WHERE id_number = $1`, idNumber); err != nil {
		return nil, mapError(err, "patient")
	}
	return &patient, nil
}

func (r *patientRepository) Update(ctx context.Context, patient *model.Patient) error {
	query := `
		UPDATE patients SET
			first_name = $1, last_name = $2, email = $3, phone = $4, date_of_birth = $5,
			gender = $6, id_number = $7, address = $8, medical_aid_scheme = $9,
			medical_aid_number = $10, photo_url = $11, updated_at = $12
		WHERE id = $13
	`
	patient.UpdatedAt = time.Now().UTC()

	result, err := r.db.ExecContext(ctx, query,
		patient.FirstName,
		patient.LastName,
		patient.Email,
		patient.Phone,
		patient.DateOfBirth,
		patient.Gender,
		patient.IDNumber,
		patient.Address,
		patient.MedicalAidScheme,
		patient.MedicalAidNumber,
		patient.PhotoURL,
		patient.UpdatedAt,
		patient.ID,
	)
	if err != nil {
		return mapError(err, "patient")
	}
	return expectOne(result, "patient")
}

func (r *patientRepository) List(ctx context.Context, filters *model.PatientFilters) ([]*model.Patient, error) {
	var w where
	if filters.Search != "" {
		w.add("(first_name || ' ' || last_name ILIKE $%[1]d OR id_number ILIKE $%[1]d OR phone ILIKE $%[1]d)",
			"%"+filters.Search+"%")
	}
	if filters.IDNumber != "" {
		w.add("id_number = $%d", filters.IDNumber)
	}
	query := `SELECT ` + patientColumns + ` FROM patients` + w.String() +
		` ORDER BY last_name ASC, first_name ASC` + w.page(filters.Pagination)

	patients := []*model.Patient{}
	if err := r.db.SelectContext(ctx, &patients, query, w.args...); err != nil {
		return nil, fmt.Errorf("failed to list patients: %w", err)
	}
	return patients, nil
}
