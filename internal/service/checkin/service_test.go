package checkin

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository/repotest"
	"github.com/jwalitptl/clinic-api/internal/service/activity"
	"github.com/jwalitptl/clinic-api/internal/service/queue"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
	"github.com/jwalitptl/clinic-api/pkg/messaging"
	"github.com/jwalitptl/clinic-api/pkg/metrics"
)

type fixture struct {
	store   *repotest.Store
	svc     *Service
	patient *model.Patient
	doctor  *model.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store := repotest.NewStore()
	act := activity.NewService(store.Activity())
	queueSvc := queue.NewService(store.Queue(), store.CheckIns(), store.Users(), act, messaging.NopPublisher{}, metrics.NewTestMetrics())
	svc := NewService(store.CheckIns(), store.Patients(), store.Appointments(), store.Users(), queueSvc, act)

	patient := &model.Patient{FirstName: "Lerato", LastName: "Khumalo", IDNumber: "8803030123081",
		Gender: model.GenderFemale, DateOfBirth: model.NewDate(1988, time.March, 3)}
	require.NoError(t, store.Patients().Create(ctx, patient))
	doctor := &model.User{Email: "dr@clinic.test", Name: "Dr Botha", Role: model.RoleDoctor, IsActive: true}
	require.NoError(t, store.Users().Create(ctx, doctor))
	return &fixture{store: store, svc: svc, patient: patient, doctor: doctor}
}

func (f *fixture) appointment(t *testing.T, patientID uuid.UUID) *model.Appointment {
	t.Helper()
	apt := &model.Appointment{PatientID: patientID, DoctorID: f.doctor.ID, ScheduledAt: time.Now(),
		DurationMinutes: 30, Status: model.AppointmentStatusScheduled, Type: "checkup"}
	require.NoError(t, f.store.Appointments().Create(context.Background(), apt))
	return apt
}

func TestCreate_WalkIn(t *testing.T) {
	f := newFixture(t)

	res, err := f.svc.Create(context.Background(), &model.CreateCheckInRequest{
		PatientID: f.patient.ID, PaymentMethod: model.PaymentMethodCash,
	})
	require.NoError(t, err)
	assert.True(t, res.CheckIn.IsWalkIn)
	assert.Nil(t, res.QueueEntry)
	assert.False(t, res.CheckIn.ArrivedAt.IsZero())
}

func TestCreate_WithAppointment(t *testing.T) {
	f := newFixture(t)
	apt := f.appointment(t, f.patient.ID)

	res, err := f.svc.Create(context.Background(), &model.CreateCheckInRequest{
		PatientID: f.patient.ID, AppointmentID: &apt.ID, PaymentMethod: model.PaymentMethodMedicalAid,
	})
	require.NoError(t, err)
	assert.False(t, res.CheckIn.IsWalkIn)
	require.NotNil(t, res.CheckIn.AppointmentID)
	assert.Equal(t, apt.ID, *res.CheckIn.AppointmentID)
}

func TestCreate_AppointmentOfAnotherPatient(t *testing.T) {
	f := newFixture(t)
	other := &model.Patient{FirstName: "X", LastName: "Y", IDNumber: "other", Gender: model.GenderOther,
		DateOfBirth: model.NewDate(2000, time.January, 1)}
	require.NoError(t, f.store.Patients().Create(context.Background(), other))
	apt := f.appointment(t, other.ID)

	_, err := f.svc.Create(context.Background(), &model.CreateCheckInRequest{
		PatientID: f.patient.ID, AppointmentID: &apt.ID, PaymentMethod: model.PaymentMethodCash,
	})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestCreate_UnknownPatient(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Create(context.Background(), &model.CreateCheckInRequest{
		PatientID: uuid.New(), PaymentMethod: model.PaymentMethodCash,
	})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestCreate_AdmitToQueue(t *testing.T) {
	f := newFixture(t)

	res, err := f.svc.Create(context.Background(), &model.CreateCheckInRequest{
		PatientID: f.patient.ID, PaymentMethod: model.PaymentMethodBoth,
		AdmitToQueue: true, Priority: 3, DoctorID: &f.doctor.ID,
	})
	require.NoError(t, err)
	require.NotNil(t, res.QueueEntry)
	assert.Equal(t, model.QueueStatusWaiting, res.QueueEntry.Status)
	assert.Equal(t, 3, res.QueueEntry.Priority)
	assert.Equal(t, res.CheckIn.ID, res.QueueEntry.CheckInID)

	next, err := f.store.Queue().Next(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, res.QueueEntry.ID, next.ID)

	var actions []string
	for _, l := range f.store.ActivityLogs() {
		actions = append(actions, l.EntityType)
	}
	assert.ElementsMatch(t, []string{model.EntityCheckIn, model.EntityQueueEntry}, actions)
}

func TestCreate_AdmitWithNonDoctorLeavesNothingBehind(t *testing.T) {
	f := newFixture(t)
	stranger := uuid.New()

	_, err := f.svc.Create(context.Background(), &model.CreateCheckInRequest{
		PatientID: f.patient.ID, PaymentMethod: model.PaymentMethodCash,
		AdmitToQueue: true, DoctorID: &stranger,
	})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	list, err := f.svc.List(context.Background(), &model.CheckInFilters{PatientID: f.patient.ID})
	require.NoError(t, err)
	assert.Empty(t, list)
}
