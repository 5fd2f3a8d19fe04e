package postgres

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/jwalitptl/clinic-api/internal/model"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
)

const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
	pqCheckViolation      = "23514"
	pqNumericOutOfRange   = "22003"
)

// mapError turns driver errors into application errors. resource names the
// entity for not-found messages.
func mapError(err error, resource string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return apperrors.NotFound(resource, err)
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pqUniqueViolation:
			return apperrors.Conflict(uniqueMessage(pqErr.Constraint, resource), err)
		case pqForeignKeyViolation:
			return apperrors.NotFound(referencedResource(pqErr.Constraint), err)
		case pqCheckViolation:
			return apperrors.Validation(fmt.Sprintf("%s violates constraint %s", resource, pqErr.Constraint), nil)
		case pqNumericOutOfRange:
			var fields map[string]string
			if resource == "payment" {
				fields = map[string]string{"amount": "must be at most " + model.MaxAmount.StringFixed(model.AmountScale)}
			}
			return apperrors.Validation(resource+" has a value out of range", fields)
		}
	}
	return fmt.Errorf("%s: %w", resource, err)
}

func uniqueMessage(constraint, resource string) string {
	switch constraint {
	case "patients_id_number_key":
		return "a patient with this id number already exists"
	case "users_email_key":
		return "a user with this email already exists"
	case "queue_entries_open_check_in_key":
		return "this check-in is already in the queue"
	}
	return resource + " already exists"
}

// referencedResource names the parent row from the default foreign key
// constraint names, e.g. appointments_patient_id_fkey.
func referencedResource(constraint string) string {
	for _, ref := range []struct{ suffix, name string }{
		{"_patient_id_fkey", "patient"},
		{"_doctor_id_fkey", "doctor"},
		{"_user_id_fkey", "user"},
		{"_appointment_id_fkey", "appointment"},
		{"_check_in_id_fkey", "check-in"},
		{"_queue_entry_id_fkey", "queue entry"},
	} {
		if strings.HasSuffix(constraint, ref.suffix) {
			return ref.name
		}
	}
	return "referenced record"
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
