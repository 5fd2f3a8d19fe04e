package model

import (
	"time"

	"github.com/google/uuid"
)

// ActivityLog is an append-only record of a user's action.
type ActivityLog struct {
	ID         uuid.UUID  `json:"id" db:"id"`
	UserID     *uuid.UUID `json:"user_id,omitempty" db:"user_id"`
	Action     string     `json:"action" db:"action"`
	EntityType string     `json:"entity_type" db:"entity_type"`
	EntityID   *uuid.UUID `json:"entity_id,omitempty" db:"entity_id"`
	Details    JSONMap    `json:"details" db:"details"`
	IPAddress  string     `json:"ip_address,omitempty" db:"ip_address"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
}

const (
	// Action types
	ActivityCreate     = "create"
	ActivityUpdate     = "update"
	ActivityTransition = "transition"
	ActivityLogin      = "login"
	ActivityRevoke     = "revoke"
	ActivityDeactivate = "deactivate"
	ActivityActivate   = "activate"
	ActivityReset      = "password_reset"

	// Entity types
	EntityUser         = "user"
	EntityPatient      = "patient"
	EntityAppointment  = "appointment"
	EntityCheckIn      = "check_in"
	EntityQueueEntry   = "queue_entry"
	EntityConsultation = "consultation"
	EntityPayment      = "payment"
	EntityAPIKey       = "api_key"
)

type ActivityFilters struct {
	UserID     uuid.UUID `form:"-"`
	EntityType string    `form:"entity_type"`
	EntityID   uuid.UUID `form:"-"`
	Action     string    `form:"action"`
	Pagination
}
