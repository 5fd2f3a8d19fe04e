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

const checkInColumns = `id, patient_id, appointment_id, arrived_at, payment_method, is_walk_in, notes, created_at, updated_at`

type checkInRepository struct {
	BaseRepository
}

func NewCheckInRepository(base BaseRepository) repository.CheckInRepository {
	return &checkInRepository{base}
}

func (r *checkInRepository) Create(ctx context.Context, checkIn *model.CheckIn, entry *model.QueueEntry) error {
	query := `
		INSERT INTO check_ins (
			id, patient_id, appointment_id, arrived_at, payment_method, is_walk_in, notes, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	now := time.Now().UTC()
	checkIn.ID = uuid.New()
	if checkIn.ArrivedAt.IsZero() {
		checkIn.ArrivedAt = now
	}
	checkIn.CreatedAt = now
	checkIn.UpdatedAt = now

	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, query,
			checkIn.ID,
			checkIn.PatientID,
			checkIn.AppointmentID,
			checkIn.ArrivedAt,
			checkIn.PaymentMethod,
			checkIn.IsWalkIn,
			checkIn.Notes,
			checkIn.CreatedAt,
			checkIn.UpdatedAt,
		)
		if err != nil {
			return mapError(err, "check-in")
		}
		if entry == nil {
			return nil
		}

		entry.CheckInID = checkIn.ID
		entry.PatientID = checkIn.PatientID
		prepareQueueEntry(entry)
		if _, err := tx.ExecContext(ctx, insertQueueEntry, queueEntryArgs(entry)...); err != nil {
			return mapError(err, "queue entry")
		}
		return nil
	})
}

func (r *checkInRepository) Get(ctx context.Context, id uuid.UUID) (*model.CheckIn, error) {
	var checkIn model.CheckIn
	if err := r.db.GetContext(ctx, &checkIn, `SELECT `+checkInColumns+` FROM check_ins WHERE id = $1`, id); err != nil {
		return nil, mapError(err, "check-in")
	}
	return &checkIn, nil
}

func (r *checkInRepository) List(ctx context.Context, filters *model.CheckInFilters) ([]*model.CheckIn, error) {
	var w where
	if filters.PatientID != uuid.Nil {
		w.add("patient_id = $%d", filters.PatientID)
	}
	if filters.Date != nil && !filters.Date.IsZero() {
		w.add("arrived_at >= $%d", filters.Date.Time)
		w.add("arrived_at < $%d", filters.Date.AddDate(0, 0, 1))
	}
	query := `SELECT ` + checkInColumns + ` FROM check_ins` + w.String() +
		` ORDER BY arrived_at DESC` + w.page(filters.Pagination)

	checkIns := []*model.CheckIn{}
	if err := r.db.SelectContext(ctx, &checkIns, query, w.args...); err != nil {
		return nil, fmt.Errorf("failed to list check-ins: %w", err)
	}
	return checkIns, nil
}
