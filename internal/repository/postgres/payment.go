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

const paymentColumns = `id, patient_id, check_in_id, amount, payment_method, reference, notes, created_at, updated_at`

type paymentRepository struct {
	db *sqlx.DB
}

func NewPaymentRepository(db *sqlx.DB) repository.PaymentRepository {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) Create(ctx context.Context, payment *model.Payment) error {
	query := `
		INSERT INTO payments (
			id, patient_id, check_in_id, amount, payment_method, reference, notes, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	payment.ID = uuid.New()
	payment.CreatedAt = time.Now().UTC()
	payment.UpdatedAt = payment.CreatedAt
	payment.Amount = payment.Amount.Round(model.AmountScale)

	_, err := r.db.ExecContext(ctx, query,
		payment.ID,
		payment.PatientID,
		payment.CheckInID,
		payment.Amount,
		payment.PaymentMethod,
		payment.Reference,
		payment.Notes,
		payment.CreatedAt,
		payment.UpdatedAt,
	)
	return mapError(err, "payment")
}

func (r *paymentRepository) Get(ctx context.Context, id uuid.UUID) (*model.Payment, error) {
	var payment model.Payment
	if err := r.db.GetContext(ctx, &payment, `SELECT `+paymentColumns+` FROM payments WHERE id = $1`, id); err != nil {
		return nil, mapError(err, "payment")
	}
	return &payment, nil
}

func (r *paymentRepository) List(ctx context.Context, filters *model.PaymentFilters) ([]*model.Payment, error) {
	var w where
	if filters.PatientID != uuid.Nil {
		w.add("patient_id = $%d", filters.PatientID)
	}
	if filters.CheckInID != uuid.Nil {
		w.add("check_in_id = $%d", filters.CheckInID)
	}
	query := `SELECT ` + paymentColumns + ` FROM payments` + w.String() +
		` ORDER BY created_at DESC` + w.page(filters.Pagination)

	payments := []*model.Payment{}
	if err := r.db.SelectContext(ctx, &payments, query, w.args...); err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	return payments, nil
}
