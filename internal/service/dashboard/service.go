package dashboard

import (
	"context"
	"fmt"
	"time"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
)

type Service struct {
	repo     repository.DashboardRepository
	location *time.Location
	now      func() time.Time
}

// NewService reports "today" in loc, the clinic's local time zone.
func NewService(repo repository.DashboardRepository, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{repo: repo, location: loc, now: time.Now}
}

func (s *Service) Stats(ctx context.Context) (*model.DashboardStats, error) {
	start, end := DayBounds(s.now(), s.location)
	stats, err := s.repo.Stats(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to load dashboard stats: %w", err)
	}
	return stats, nil
}

// DayBounds returns midnight of t's day in loc and the following midnight.
func DayBounds(t time.Time, loc *time.Location) (time.Time, time.Time) {
	local := t.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 1)
}
