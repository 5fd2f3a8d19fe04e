package queue

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/clinic-api/internal/authz"
	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	"github.com/jwalitptl/clinic-api/internal/service/activity"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
	"github.com/jwalitptl/clinic-api/pkg/messaging"
	"github.com/jwalitptl/clinic-api/pkg/metrics"
)

const EventQueueUpdated = "queue.updated"

type Service struct {
	repo      repository.QueueRepository
	checkIns  repository.CheckInRepository
	users     repository.UserRepository
	activity  *activity.Service
	publisher messaging.Publisher
	metrics   *metrics.Metrics
	now       func() time.Time
}

func NewService(
	repo repository.QueueRepository,
	checkIns repository.CheckInRepository,
	users repository.UserRepository,
	activity *activity.Service,
	publisher messaging.Publisher,
	m *metrics.Metrics,
) *Service {
	if publisher == nil {
		publisher = messaging.NopPublisher{}
	}
	return &Service{
		repo:      repo,
		checkIns:  checkIns,
		users:     users,
		activity:  activity,
		publisher: publisher,
		metrics:   m,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) Admit(ctx context.Context, req *model.AdmitQueueRequest) (*model.QueueEntry, error) {
	checkIn, err := s.checkIns.Get(ctx, req.CheckInID)
	if err != nil {
		return nil, fmt.Errorf("failed to load check-in: %w", err)
	}
	if checkIn.PatientID != req.PatientID {
		return nil, apperrors.Validation("check-in belongs to another patient",
			map[string]string{"check_in_id": "does not belong to patient"})
	}
	if req.DoctorID != nil {
		if err := EnsureDoctor(ctx, s.users, *req.DoctorID); err != nil {
			return nil, err
		}
	}

	entry := &model.QueueEntry{
		PatientID:         req.PatientID,
		CheckInID:         req.CheckInID,
		DoctorID:          req.DoctorID,
		Priority:          req.Priority,
		EstimatedWaitTime: req.EstimatedWaitTime,
		Notes:             req.Notes,
	}
	if err := s.repo.Create(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to admit patient: %w", err)
	}

	s.Admitted(ctx, entry)
	return entry, nil
}

// Admitted records and announces an entry created outside Admit, such as
// during check-in.
func (s *Service) Admitted(ctx context.Context, entry *model.QueueEntry) {
	s.activity.Log(ctx, model.ActivityCreate, model.EntityQueueEntry, entry.ID, model.JSONMap{
		"patient_id": entry.PatientID.String(),
		"priority":   entry.Priority,
	})
	s.publish(ctx, entry)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.QueueEntry, error) {
	entry, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get queue entry: %w", err)
	}
	return entry, nil
}

// List returns entries in service order.
func (s *Service) List(ctx context.Context, filters *model.QueueFilters) ([]*model.QueueEntry, error) {
	entries, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list queue: %w", err)
	}
	sort.SliceStable(entries, func(i, j int) bool { return model.ServedBefore(entries[i], entries[j]) })
	return entries, nil
}

// Next returns the waiting entry to be served first, optionally limited to
// entries that the given doctor may take.
func (s *Service) Next(ctx context.Context, doctorID *uuid.UUID) (*model.QueueEntry, error) {
	entry, err := s.repo.Next(ctx, doctorID)
	if err != nil {
		return nil, fmt.Errorf("failed to get next queue entry: %w", err)
	}
	return entry, nil
}

// Start moves a waiting entry to in_progress. A doctor starting an
// unassigned entry takes it.
func (s *Service) Start(ctx context.Context, id uuid.UUID, doctorID *uuid.UUID) (*model.QueueEntry, error) {
	if doctorID != nil {
		if err := EnsureDoctor(ctx, s.users, *doctorID); err != nil {
			return nil, err
		}
	} else if caller, ok := authz.IdentityFrom(ctx); ok && caller.Role == model.RoleDoctor {
		current, err := s.repo.Get(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to get queue entry: %w", err)
		}
		if current.DoctorID == nil {
			doctorID = &caller.UserID
		}
	}

	return s.transition(ctx, model.QueueTransition{
		ID:       id,
		From:     model.QueueStatusWaiting,
		To:       model.QueueStatusInProgress,
		DoctorID: doctorID,
	})
}

// Complete moves an in_progress entry to completed and records the wait.
func (s *Service) Complete(ctx context.Context, id uuid.UUID) (*model.QueueEntry, error) {
	return s.transition(ctx, model.QueueTransition{
		ID:   id,
		From: model.QueueStatusInProgress,
		To:   model.QueueStatusCompleted,
	})
}

func (s *Service) transition(ctx context.Context, t model.QueueTransition) (*model.QueueEntry, error) {
	t.At = s.now()
	entry, err := s.repo.Transition(ctx, t)
	if err != nil {
		s.countTransition(t.To, apperrors.KindOf(err).String())
		return nil, fmt.Errorf("failed to move queue entry to %s: %w", t.To, err)
	}
	s.countTransition(t.To, "ok")
	if entry.Status == model.QueueStatusCompleted && entry.ActualWaitTime != nil && s.metrics != nil {
		s.metrics.QueueWaitMinutes.Observe(float64(*entry.ActualWaitTime))
	}

	s.activity.Log(ctx, model.ActivityTransition, model.EntityQueueEntry, entry.ID, model.JSONMap{
		"from": string(t.From),
		"to":   string(t.To),
	})
	s.publish(ctx, entry)
	return entry, nil
}

// Update applies corrective edits to an entry that is not yet completed.
func (s *Service) Update(ctx context.Context, id uuid.UUID, req *model.UpdateQueueEntryRequest) (*model.QueueEntry, error) {
	entry, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get queue entry: %w", err)
	}
	if entry.Status == model.QueueStatusCompleted {
		return nil, apperrors.Conflict("completed queue entries cannot be edited", nil)
	}

	if req.DoctorID != nil {
		if err := EnsureDoctor(ctx, s.users, *req.DoctorID); err != nil {
			return nil, err
		}
		entry.DoctorID = req.DoctorID
	}
	if req.Priority != nil {
		entry.Priority = *req.Priority
	}
	if req.EstimatedWaitTime != nil {
		entry.EstimatedWaitTime = req.EstimatedWaitTime
	}
	if req.Notes != nil {
		entry.Notes = *req.Notes
	}

	if err := s.repo.Update(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to update queue entry: %w", err)
	}

	s.activity.Log(ctx, model.ActivityUpdate, model.EntityQueueEntry, entry.ID, model.JSONMap{"priority": entry.Priority})
	s.publish(ctx, entry)
	return entry, nil
}

func (s *Service) publish(ctx context.Context, entry *model.QueueEntry) {
	event := model.QueueEvent{
		Type:      EventQueueUpdated,
		EntryID:   entry.ID,
		PatientID: entry.PatientID,
		Status:    entry.Status,
		Priority:  entry.Priority,
		At:        s.now(),
	}
	outcome := "ok"
	if err := s.publisher.Publish(ctx, model.QueueEventsChannel, event); err != nil {
		outcome = "error"
		log.Ctx(ctx).Warn().Err(err).Str("entry_id", entry.ID.String()).Msg("Failed to publish queue event")
	}
	if s.metrics != nil {
		s.metrics.BrokerPublishes.WithLabelValues(model.QueueEventsChannel, outcome).Inc()
	}
}

func (s *Service) countTransition(to model.QueueStatus, outcome string) {
	if s.metrics != nil {
		s.metrics.QueueTransitions.WithLabelValues(string(to), outcome).Inc()
	}
}

// EnsureDoctor checks that id is an active user with the doctor role.
func EnsureDoctor(ctx context.Context, users repository.UserRepository, id uuid.UUID) error {
	user, err := users.Get(ctx, id)
	if err != nil {
		if apperrors.KindOf(err) == apperrors.KindNotFound {
			return apperrors.NotFound("doctor", err)
		}
		return fmt.Errorf("failed to load doctor: %w", err)
	}
	if user.Role != model.RoleDoctor || !user.IsActive {
		return apperrors.Validation("assigned user is not an active doctor",
			map[string]string{"doctor_id": "must be an active doctor"})
	}
	return nil
}
