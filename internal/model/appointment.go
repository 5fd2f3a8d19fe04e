package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	AppointmentStatusScheduled  AppointmentStatus = "scheduled"
	AppointmentStatusConfirmed  AppointmentStatus = "confirmed"
	AppointmentStatusInProgress AppointmentStatus = "in_progress"
	AppointmentStatusCompleted  AppointmentStatus = "completed"
	AppointmentStatusCancelled  AppointmentStatus = "cancelled"
)

func ParseAppointmentStatus(s string) (AppointmentStatus, error) {
	switch AppointmentStatus(s) {
	case AppointmentStatusScheduled, AppointmentStatusConfirmed, AppointmentStatusInProgress,
		AppointmentStatusCompleted, AppointmentStatusCancelled:
		return AppointmentStatus(s), nil
	}
	return "", fmt.Errorf("unknown appointment status %q", s)
}

// Terminal reports whether no further transition is possible.
func (s AppointmentStatus) Terminal() bool {
	switch s {
	case AppointmentStatusCompleted, AppointmentStatusCancelled:
		return true
	case AppointmentStatusScheduled, AppointmentStatusConfirmed, AppointmentStatusInProgress:
		return false
	}
	panic(fmt.Sprintf("unhandled appointment status %q", string(s)))
}

// CanTransitionTo follows scheduled -> confirmed -> in_progress -> completed,
// with cancellation allowed before the visit starts.
func (s AppointmentStatus) CanTransitionTo(next AppointmentStatus) bool {
	switch s {
	case AppointmentStatusScheduled:
		return next == AppointmentStatusConfirmed || next == AppointmentStatusInProgress || next == AppointmentStatusCancelled
	case AppointmentStatusConfirmed:
		return next == AppointmentStatusInProgress || next == AppointmentStatusCancelled
	case AppointmentStatusInProgress:
		return next == AppointmentStatusCompleted
	case AppointmentStatusCompleted, AppointmentStatusCancelled:
		return false
	}
	panic(fmt.Sprintf("unhandled appointment status %q", string(s)))
}

const DefaultAppointmentMinutes = 30

type Appointment struct {
	Base
	PatientID       uuid.UUID         `db:"patient_id" json:"patient_id"`
	DoctorID        uuid.UUID         `db:"doctor_id" json:"doctor_id"`
	ScheduledAt     time.Time         `db:"scheduled_at" json:"scheduled_at"`
	DurationMinutes int               `db:"duration_minutes" json:"duration_minutes"`
	Status          AppointmentStatus `db:"status" json:"status"`
	Type            string            `db:"type" json:"type"`
	Notes           string            `db:"notes" json:"notes,omitempty"`
}

type CreateAppointmentRequest struct {
	PatientID       uuid.UUID `json:"patient_id" binding:"required"`
	DoctorID        uuid.UUID `json:"doctor_id" binding:"required"`
	ScheduledAt     time.Time `json:"scheduled_at" binding:"required"`
	DurationMinutes int       `json:"duration_minutes" binding:"omitempty,min=5,max=480"`
	Type            string    `json:"type" binding:"required,max=50"`
	Notes           string    `json:"notes" binding:"max=1000"`
}

type UpdateAppointmentRequest struct {
	DoctorID        *uuid.UUID `json:"doctor_id"`
	ScheduledAt     *time.Time `json:"scheduled_at"`
	DurationMinutes *int       `json:"duration_minutes" binding:"omitempty,min=5,max=480"`
	Type            *string    `json:"type" binding:"omitempty,max=50"`
	Notes           *string    `json:"notes" binding:"omitempty,max=1000"`
}

type AppointmentStatusRequest struct {
	Status AppointmentStatus `json:"status" binding:"required,appointment_status"`
}

type AppointmentFilters struct {
	PatientID uuid.UUID         `form:"-"`
	DoctorID  uuid.UUID         `form:"-"`
	Status    AppointmentStatus `form:"status"`
	From      time.Time         `form:"from" time_format:"2006-01-02"`
	To        time.Time         `form:"to" time_format:"2006-01-02"`
	Pagination
}
