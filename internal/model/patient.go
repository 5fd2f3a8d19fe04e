package model

import "fmt"

type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderOther  Gender = "other"
)

func ParseGender(s string) (Gender, error) {
	switch Gender(s) {
	case GenderMale, GenderFemale, GenderOther:
		return Gender(s), nil
	}
	return "", fmt.Errorf("unknown gender %q", s)
}

// Patient is the root of every clinical record.
type Patient struct {
	Base
	FirstName        string  `db:"first_name" json:"first_name"`
	LastName         string  `db:"last_name" json:"last_name"`
	Email            *string `db:"email" json:"email,omitempty"`
	Phone            string  `db:"phone" json:"phone"`
	DateOfBirth      Date    `db:"date_of_birth" json:"date_of_birth"`
	Gender           Gender  `db:"gender" json:"gender"`
	IDNumber         string  `db:"id_number" json:"id_number"`
	Address          string  `db:"address" json:"address"`
	MedicalAidScheme *string `db:"medical_aid_scheme" json:"medical_aid_scheme,omitempty"`
	MedicalAidNumber *string `db:"medical_aid_number" json:"medical_aid_number,omitempty"`
	PhotoURL         *string `db:"photo_url" json:"photo_url,omitempty"`
}

func (p *Patient) FullName() string {
	return p.FirstName + " " + p.LastName
}

type CreatePatientRequest struct {
	FirstName        string  `json:"first_name" binding:"required,max=100"`
	LastName         string  `json:"last_name" binding:"required,max=100"`
	Email            *string `json:"email" binding:"omitempty,email"`
	Phone            string  `json:"phone" binding:"required,max=30"`
	DateOfBirth      Date    `json:"date_of_birth"`
	Gender           Gender  `json:"gender" binding:"required,gender"`
	IDNumber         string  `json:"id_number" binding:"required,max=50"`
	Address          string  `json:"address" binding:"max=500"`
	MedicalAidScheme *string `json:"medical_aid_scheme" binding:"omitempty,max=100"`
	MedicalAidNumber *string `json:"medical_aid_number" binding:"omitempty,max=100"`
	PhotoURL         *string `json:"photo_url" binding:"omitempty,url"`
}

type UpdatePatientRequest struct {
	FirstName        *string `json:"first_name" binding:"omitempty,max=100"`
	LastName         *string `json:"last_name" binding:"omitempty,max=100"`
	Email            *string `json:"email" binding:"omitempty,email"`
	Phone            *string `json:"phone" binding:"omitempty,max=30"`
	DateOfBirth      *Date   `json:"date_of_birth"`
	Gender           *Gender `json:"gender" binding:"omitempty,gender"`
	IDNumber         *string `json:"id_number" binding:"omitempty,max=50"`
	Address          *string `json:"address" binding:"omitempty,max=500"`
	MedicalAidScheme *string `json:"medical_aid_scheme" binding:"omitempty,max=100"`
	MedicalAidNumber *string `json:"medical_aid_number" binding:"omitempty,max=100"`
	PhotoURL         *string `json:"photo_url" binding:"omitempty,url"`
}

// Apply copies the set fields of the request onto p.
func (r *UpdatePatientRequest) Apply(p *Patient) {
	if r.FirstName != nil {
		p.FirstName = *r.FirstName
	}
	if r.LastName != nil {
		p.LastName = *r.LastName
	}
	if r.Email != nil {
		p.Email = r.Email
	}
	if r.Phone != nil {
		p.Phone = *r.Phone
	}
	if r.DateOfBirth != nil {
		p.DateOfBirth = *r.DateOfBirth
	}
	if r.Gender != nil {
		p.Gender = *r.Gender
	}
	if r.IDNumber != nil {
		p.IDNumber = *r.IDNumber
	}
	if r.Address != nil {
		p.Address = *r.Address
	}
	if r.MedicalAidScheme != nil {
		p.MedicalAidScheme = r.MedicalAidScheme
	}
	if r.MedicalAidNumber != nil {
		p.MedicalAidNumber = r.MedicalAidNumber
	}
	if r.PhotoURL != nil {
		p.PhotoURL = r.PhotoURL
	}
}

type PatientFilters struct {
	Search   string `form:"search"`
	IDNumber string `form:"id_number"`
	Pagination
}

// PatientHistory groups a patient's clinical records.
type PatientHistory struct {
	Patient       *Patient        `json:"patient"`
	Appointments  []*Appointment  `json:"appointments"`
	Consultations []*Consultation `json:"consultations"`
	Payments      []*Payment      `json:"payments"`
}
