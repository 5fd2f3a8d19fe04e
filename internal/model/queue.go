package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// QueueStatus is the closed set of queue entry states.
type QueueStatus string

const (
	QueueStatusWaiting    QueueStatus = "waiting"
	QueueStatusInProgress QueueStatus = "in_progress"
	QueueStatusCompleted  QueueStatus = "completed"
)

func ParseQueueStatus(s string) (QueueStatus, error) {
	switch QueueStatus(s) {
	case QueueStatusWaiting, QueueStatusInProgress, QueueStatusCompleted:
		return QueueStatus(s), nil
	}
	return "", fmt.Errorf("unknown queue status %q", s)
}

// Next returns the only state reachable from s. Completed has none.
func (s QueueStatus) Next() (QueueStatus, bool) {
	switch s {
	case QueueStatusWaiting:
		return QueueStatusInProgress, true
	case QueueStatusInProgress:
		return QueueStatusCompleted, true
	case QueueStatusCompleted:
		return "", false
	}
	panic(fmt.Sprintf("unhandled queue status %q", string(s)))
}

// CanTransitionTo reports whether s -> next is a forward step of the lifecycle.
func (s QueueStatus) CanTransitionTo(next QueueStatus) bool {
	n, ok := s.Next()
	return ok && n == next
}

// QueueEntry is a patient's place in the line to see a doctor.
type QueueEntry struct {
	Base
	PatientID         uuid.UUID   `db:"patient_id" json:"patient_id"`
	CheckInID         uuid.UUID   `db:"check_in_id" json:"check_in_id"`
	DoctorID          *uuid.UUID  `db:"doctor_id" json:"doctor_id,omitempty"`
	Status            QueueStatus `db:"status" json:"status"`
	Priority          int         `db:"priority" json:"priority"`
	EstimatedWaitTime *int        `db:"estimated_wait_time" json:"estimated_wait_time,omitempty"`
	ActualWaitTime    *int        `db:"actual_wait_time" json:"actual_wait_time,omitempty"`
	EnteredAt         time.Time   `db:"entered_at" json:"entered_at"`
	StartedAt         *time.Time  `db:"started_at" json:"started_at,omitempty"`
	CompletedAt       *time.Time  `db:"completed_at" json:"completed_at,omitempty"`
	Notes             string      `db:"notes" json:"notes,omitempty"`
}

// ServedBefore orders entries by priority (higher first) and then by
// arrival in the queue (earlier first).
func ServedBefore(a, b *QueueEntry) bool {
	if a.Priority != b.Priority {
		return a.Priority > b.Priority
	}
	return a.EnteredAt.Before(b.EnteredAt)
}

// WaitMinutes is the whole minutes between entering the queue and starting.
func WaitMinutes(enteredAt, startedAt time.Time) int {
	d := startedAt.Sub(enteredAt)
	if d < 0 {
		return 0
	}
	return int(d / time.Minute)
}

// QueueTransition describes one compare-and-set step on a queue entry.
type QueueTransition struct {
	ID       uuid.UUID
	From     QueueStatus
	To       QueueStatus
	At       time.Time
	DoctorID *uuid.UUID
}

type AdmitQueueRequest struct {
	PatientID         uuid.UUID  `json:"patient_id" binding:"required"`
	CheckInID         uuid.UUID  `json:"check_in_id" binding:"required"`
	DoctorID          *uuid.UUID `json:"doctor_id"`
	Priority          int        `json:"priority" binding:"min=0,max=100"`
	EstimatedWaitTime *int       `json:"estimated_wait_time" binding:"omitempty,min=0"`
	Notes             string     `json:"notes" binding:"max=1000"`
}

type UpdateQueueEntryRequest struct {
	DoctorID          *uuid.UUID `json:"doctor_id"`
	Priority          *int       `json:"priority" binding:"omitempty,min=0,max=100"`
	EstimatedWaitTime *int       `json:"estimated_wait_time" binding:"omitempty,min=0"`
	Notes             *string    `json:"notes" binding:"omitempty,max=1000"`
}

type QueueFilters struct {
	Status   QueueStatus `form:"status"`
	DoctorID uuid.UUID   `form:"-"`
	Pagination
}

// QueueEvent is published whenever the queue changes.
type QueueEvent struct {
	Type      string      `json:"type"`
	EntryID   uuid.UUID   `json:"entry_id"`
	PatientID uuid.UUID   `json:"patient_id"`
	Status    QueueStatus `json:"status"`
	Priority  int         `json:"priority"`
	At        time.Time   `json:"at"`
}

const QueueEventsChannel = "clinic.queue"
