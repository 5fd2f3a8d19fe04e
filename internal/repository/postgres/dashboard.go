package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
)

type dashboardRepository struct {
	db *sqlx.DB
}

func NewDashboardRepository(db *sqlx.DB) repository.DashboardRepository {
	return &dashboardRepository{db: db}
}

func (r *dashboardRepository) Stats(ctx context.Context, dayStart, dayEnd time.Time) (*model.DashboardStats, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM appointments
				WHERE scheduled_at >= $1 AND scheduled_at < $2 AND status <> 'cancelled') AS appointments_today,
			(SELECT COUNT(*) FROM queue_entries WHERE status = 'waiting') AS waiting,
			(SELECT COUNT(*) FROM queue_entries WHERE status = 'in_progress') AS in_progress,
			(SELECT COUNT(*) FROM queue_entries
				WHERE status = 'completed' AND completed_at >= $1 AND completed_at < $2) AS completed_today,
			(SELECT COALESCE(AVG(actual_wait_time), 0)::FLOAT8 FROM queue_entries
				WHERE status = 'completed' AND completed_at >= $1 AND completed_at < $2) AS average_wait_minutes,
			(SELECT COALESCE(SUM(amount), 0) FROM payments
				WHERE created_at >= $1 AND created_at < $2) AS payments_total_today
	`

	var stats model.DashboardStats
	if err := r.db.GetContext(ctx, &stats, query, dayStart, dayEnd); err != nil {
		return nil, fmt.Errorf("failed to load dashboard stats: %w", err)
	}
	return &stats, nil
}
