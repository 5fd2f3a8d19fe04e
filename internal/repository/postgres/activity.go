package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
)

type activityRepository struct {
	BaseRepository
}

func NewActivityRepository(base BaseRepository) repository.ActivityRepository {
	return &activityRepository{base}
}

func (r *activityRepository) Create(ctx context.Context, entry *model.ActivityLog) error {
	query := `
		INSERT INTO activity_logs (
			id, user_id, action, entity_type, entity_id, details, ip_address, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx, query,
		entry.ID,
		entry.UserID,
		entry.Action,
		entry.EntityType,
		entry.EntityID,
		entry.Details,
		entry.IPAddress,
		entry.CreatedAt,
	)
	return mapError(err, "activity log")
}

func (r *activityRepository) List(ctx context.Context, filters *model.ActivityFilters) ([]*model.ActivityLog, error) {
	var w where
	if filters.UserID != uuid.Nil {
		w.add("user_id = $%d", filters.UserID)
	}
	if filters.EntityType != "" {
		w.add("entity_type = $%d", filters.EntityType)
	}
	if filters.EntityID != uuid.Nil {
		w.add("entity_id = $%d", filters.EntityID)
	}
	if filters.Action != "" {
		w.add("action = $%d", filters.Action)
	}
	query := `SELECT id, user_id, action, entity_type, entity_id, details, ip_address, created_at
		FROM activity_logs` + w.String() + ` ORDER BY created_at DESC` + w.page(filters.Pagination)

	logs := []*model.ActivityLog{}
	if err := r.db.SelectContext(ctx, &logs, query, w.args...); err != nil {
		return nil, fmt.Errorf("failed to list activity logs: %w", err)
	}
	return logs, nil
}
