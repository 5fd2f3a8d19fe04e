package model

import "github.com/google/uuid"

type Consultation struct {
	Base
	PatientID       uuid.UUID  `db:"patient_id" json:"patient_id"`
	DoctorID        uuid.UUID  `db:"doctor_id" json:"doctor_id"`
	QueueEntryID    uuid.UUID  `db:"queue_entry_id" json:"queue_entry_id"`
	Notes           string     `db:"notes" json:"notes"`
	Diagnosis       string     `db:"diagnosis" json:"diagnosis"`
	Prescription    string     `db:"prescription" json:"prescription"`
	ReferralLetters string     `db:"referral_letters" json:"referral_letters"`
	Attachments     StringList `db:"attachments" json:"attachments"`
}

type CreateConsultationRequest struct {
	PatientID       uuid.UUID  `json:"patient_id" binding:"required"`
	QueueEntryID    uuid.UUID  `json:"queue_entry_id" binding:"required"`
	Notes           string     `json:"notes"`
	Diagnosis       string     `json:"diagnosis"`
	Prescription    string     `json:"prescription"`
	ReferralLetters string     `json:"referral_letters"`
	Attachments     []string   `json:"attachments" binding:"omitempty,dive,max=500"`
}

type UpdateConsultationRequest struct {
	Notes           *string  `json:"notes"`
	Diagnosis       *string  `json:"diagnosis"`
	Prescription    *string  `json:"prescription"`
	ReferralLetters *string  `json:"referral_letters"`
	Attachments     []string `json:"attachments" binding:"omitempty,dive,max=500"`
}

func (r *UpdateConsultationRequest) Apply(c *Consultation) {
	if r.Notes != nil {
		c.Notes = *r.Notes
	}
	if r.Diagnosis != nil {
		c.Diagnosis = *r.Diagnosis
	}
	if r.Prescription != nil {
		c.Prescription = *r.Prescription
	}
	if r.ReferralLetters != nil {
		c.ReferralLetters = *r.ReferralLetters
	}
	if r.Attachments != nil {
		c.Attachments = StringList(r.Attachments)
	}
}

type ConsultationFilters struct {
	PatientID uuid.UUID `form:"-"`
	DoctorID  uuid.UUID `form:"-"`
	Pagination
}
