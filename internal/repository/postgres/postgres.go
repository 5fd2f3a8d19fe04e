package postgres

import (
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/clinic-api/internal/repository"
)

// Repositories bundles every store used by the services.
type Repositories struct {
	Base          BaseRepository
	Users         repository.UserRepository
	Patients      repository.PatientRepository
	Appointments  repository.AppointmentRepository
	CheckIns      repository.CheckInRepository
	Queue         repository.QueueRepository
	Consultations repository.ConsultationRepository
	Payments      repository.PaymentRepository
	Activity      repository.ActivityRepository
	APIKeys       repository.APIKeyRepository
	ResetTokens   repository.PasswordResetRepository
	Dashboard     repository.DashboardRepository
}

func NewRepositories(db *sqlx.DB) *Repositories {
	base := NewBaseRepository(db)
	return &Repositories{
		Base:          base,
		Users:         NewUserRepository(base),
		Patients:      NewPatientRepository(db),
		Appointments:  NewAppointmentRepository(db),
		CheckIns:      NewCheckInRepository(base),
		Queue:         NewQueueRepository(db),
		Consultations: NewConsultationRepository(db),
		Payments:      NewPaymentRepository(db),
		Activity:      NewActivityRepository(base),
		APIKeys:       NewAPIKeyRepository(base),
		ResetTokens:   NewPasswordResetRepository(base),
		Dashboard:     NewDashboardRepository(db),
	}
}
