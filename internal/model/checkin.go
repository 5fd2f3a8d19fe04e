package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type PaymentMethod string

const (
	PaymentMethodCash       PaymentMethod = "cash"
	PaymentMethodMedicalAid PaymentMethod = "medical_aid"
	PaymentMethodBoth       PaymentMethod = "both"
)

func ParsePaymentMethod(s string) (PaymentMethod, error) {
	switch PaymentMethod(s) {
	case PaymentMethodCash, PaymentMethodMedicalAid, PaymentMethodBoth:
		return PaymentMethod(s), nil
	}
	return "", fmt.Errorf("unknown payment method %q", s)
}

// CheckIn records a patient's arrival at the clinic.
type CheckIn struct {
	Base
	PatientID     uuid.UUID     `db:"patient_id" json:"patient_id"`
	AppointmentID *uuid.UUID    `db:"appointment_id" json:"appointment_id,omitempty"`
	ArrivedAt     time.Time     `db:"arrived_at" json:"arrived_at"`
	PaymentMethod PaymentMethod `db:"payment_method" json:"payment_method"`
	IsWalkIn      bool          `db:"is_walk_in" json:"is_walk_in"`
	Notes         string        `db:"notes" json:"notes,omitempty"`
}

type CreateCheckInRequest struct {
	PatientID     uuid.UUID     `json:"patient_id" binding:"required"`
	AppointmentID *uuid.UUID    `json:"appointment_id"`
	PaymentMethod PaymentMethod `json:"payment_method" binding:"required,payment_method"`
	Notes         string        `json:"notes" binding:"max=1000"`

	// AdmitToQueue places the patient in the queue as part of the check-in.
	AdmitToQueue bool       `json:"admit_to_queue"`
	Priority     int        `json:"priority" binding:"min=0,max=100"`
	DoctorID     *uuid.UUID `json:"doctor_id"`
}

// CheckInResult is a check-in plus the queue entry it created, if any.
type CheckInResult struct {
	CheckIn    *CheckIn    `json:"check_in"`
	QueueEntry *QueueEntry `json:"queue_entry,omitempty"`
}

type CheckInFilters struct {
	PatientID uuid.UUID `form:"-"`
	Date      *Date     `form:"-"`
	Pagination
}
