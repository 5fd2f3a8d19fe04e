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

const queueColumns = `id, patient_id, check_in_id, doctor_id, status, priority, estimated_wait_time,
	actual_wait_time, entered_at, started_at, completed_at, notes, created_at, updated_at`

// queueOrder is the service order of the queue.
const queueOrder = ` ORDER BY priority DESC, entered_at ASC`

type queueRepository struct {
	db *sqlx.DB
}

func NewQueueRepository(db *sqlx.DB) repository.QueueRepository {
	return &queueRepository{db: db}
}

const insertQueueEntry = `
	INSERT INTO queue_entries (
		id, patient_id, check_in_id, doctor_id, status, priority,
		estimated_wait_time, entered_at, notes, created_at, updated_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
`

// prepareQueueEntry fills the fields set on admission.
func prepareQueueEntry(entry *model.QueueEntry) {
	now := time.Now().UTC()
	entry.ID = uuid.New()
	entry.Status = model.QueueStatusWaiting
	entry.EnteredAt = now
	entry.StartedAt = nil
	entry.CompletedAt = nil
	entry.ActualWaitTime = nil
	entry.CreatedAt = now
	entry.UpdatedAt = now
}

func queueEntryArgs(entry *model.QueueEntry) []interface{} {
	return []interface{}{
		entry.ID,
		entry.PatientID,
		entry.CheckInID,
		entry.DoctorID,
		entry.Status,
		entry.Priority,
		entry.EstimatedWaitTime,
		entry.EnteredAt,
		entry.Notes,
		entry.CreatedAt,
		entry.UpdatedAt,
	}
}

func (r *queueRepository) Create(ctx context.Context, entry *model.QueueEntry) error {
	prepareQueueEntry(entry)
	_, err := r.db.ExecContext(ctx, insertQueueEntry, queueEntryArgs(entry)...)
	return mapError(err, "queue entry")
}

func (r *queueRepository) Get(ctx context.Context, id uuid.UUID) (*model.QueueEntry, error) {
	var entry model.QueueEntry
	if err := r.db.GetContext(ctx, &entry, `SELECT `+queueColumns+` FROM queue_entries WHERE id = $1`, id); err != nil {
		return nil, mapError(err, "queue entry")
	}
	return &entry, nil
}

func (r *queueRepository) List(ctx context.Context, filters *model.QueueFilters) ([]*model.QueueEntry, error) {
	var w where
	if filters.Status != "" {
		w.add("status = $%d", filters.Status)
	}
	if filters.DoctorID != uuid.Nil {
		w.add("doctor_id = $%d", filters.DoctorID)
	}
	query := `SELECT ` + queueColumns + ` FROM queue_entries` + w.String() + queueOrder + w.page(filters.Pagination)

	entries := []*model.QueueEntry{}
	if err := r.db.SelectContext(ctx, &entries, query, w.args...); err != nil {
		return nil, fmt.Errorf("failed to list queue entries: %w", err)
	}
	return entries, nil
}

// Next returns the waiting entry that is served first. Entries without a
// doctor are eligible for any doctor.
func (r *queueRepository) Next(ctx context.Context, doctorID *uuid.UUID) (*model.QueueEntry, error) {
	var w where
	w.add("status = $%d", model.QueueStatusWaiting)
	if doctorID != nil {
		w.add("(doctor_id = $%d OR doctor_id IS NULL)", *doctorID)
	}
	query := `SELECT ` + queueColumns + ` FROM queue_entries` + w.String() + queueOrder + ` LIMIT 1`

	var entry model.QueueEntry
	if err := r.db.GetContext(ctx, &entry, query, w.args...); err != nil {
		return nil, mapError(err, "waiting queue entry")
	}
	return &entry, nil
}

// Transition applies t only if the stored status still equals t.From. When
// no row matches, the entry is re-read to tell a missing entry from a stale
// or invalid one.
func (r *queueRepository) Transition(ctx context.Context, t model.QueueTransition) (*model.QueueEntry, error) {
	if !t.From.CanTransitionTo(t.To) {
		return nil, apperrors.InvalidTransition("queue", string(t.From), string(t.To))
	}

	var query string
	args := []interface{}{t.To, t.At, t.ID, t.From}
	switch t.To {
	case model.QueueStatusInProgress:
		query = `
			UPDATE queue_entries
			SET status = $1, started_at = $2, updated_at = $2, doctor_id = COALESCE($5, doctor_id)
			WHERE id = $3 AND status = $4
			RETURNING ` + queueColumns
		args = append(args, t.DoctorID)
	case model.QueueStatusCompleted:
		query = `
			UPDATE queue_entries
			SET status = $1, completed_at = $2, updated_at = $2,
				actual_wait_time = FLOOR(EXTRACT(EPOCH FROM (started_at - entered_at)) / 60)::INTEGER
			WHERE id = $3 AND status = $4
			RETURNING ` + queueColumns
	case model.QueueStatusWaiting:
		return nil, apperrors.InvalidTransition("queue", string(t.From), string(t.To))
	default:
		panic(fmt.Sprintf("unhandled queue status %q", string(t.To)))
	}

	var entry model.QueueEntry
	err := r.db.GetContext(ctx, &entry, query, args...)
	if err == nil {
		return &entry, nil
	}
	if !isNoRows(err) {
		return nil, mapError(err, "queue entry")
	}

	current, err := r.Get(ctx, t.ID)
	if err != nil {
		return nil, err
	}
	return nil, apperrors.InvalidTransition("queue", string(current.Status), string(t.To))
}

func (r *queueRepository) Update(ctx context.Context, entry *model.QueueEntry) error {
	query := `
		UPDATE queue_entries
		SET doctor_id = $1, priority = $2, estimated_wait_time = $3, notes = $4, updated_at = $5
		WHERE id = $6 AND status <> $7
		RETURNING ` + queueColumns

	err := r.db.GetContext(ctx, entry, query,
		entry.DoctorID,
		entry.Priority,
		entry.EstimatedWaitTime,
		entry.Notes,
		time.Now().UTC(),
		entry.ID,
		model.QueueStatusCompleted,
	)
	if err == nil {
		return nil
	}
	if !isNoRows(err) {
		return mapError(err, "queue entry")
	}
	if _, err := r.Get(ctx, entry.ID); err != nil {
		return err
	}
	return apperrors.Conflict("completed queue entries cannot be edited", nil)
}
