package patient

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository/repotest"
	"github.com/jwalitptl/clinic-api/internal/service/activity"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
)

func newService() (*Service, *repotest.Store) {
	store := repotest.NewStore()
	return NewService(store.Patients(), store.Appointments(), store.Consultations(), store.Payments(),
		activity.NewService(store.Activity())), store
}

func request(idNumber string) *model.CreatePatientRequest {
	return &model.CreatePatientRequest{
		FirstName:   "Thandi",
		LastName:    "Mokoena",
		Phone:       "+27821234567",
		DateOfBirth: model.NewDate(1985, time.May, 14),
		Gender:      model.GenderFemale,
		IDNumber:    idNumber,
	}
}

func TestCreate_FreshIDNumberIsRetrievable(t *testing.T) {
	svc, store := newService()
	ctx := context.Background()

	created, err := svc.Create(ctx, request("8505140001088"))
	require.NoError(t, err)

	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "8505140001088", got.IDNumber)
	assert.Equal(t, "Thandi Mokoena", got.FullName())
	assert.Len(t, store.ActivityLogs(), 1)
}

func TestCreate_DuplicateIDNumberConflicts(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	_, err := svc.Create(ctx, request("8505140001088"))
	require.NoError(t, err)

	_, err = svc.Create(ctx, request("8505140001088"))
	assert.ErrorIs(t, err, apperrors.ErrConflict)
}

func TestCreate_Validation(t *testing.T) {
	svc, _ := newService()

	req := request("1")
	req.DateOfBirth = model.Date{}
	req.Gender = "unknown"
	_, err := svc.Create(context.Background(), req)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.KindValidation, appErr.Kind)
	assert.Contains(t, appErr.Fields, "date_of_birth")
	assert.Contains(t, appErr.Fields, "gender")
}

func TestUpdate_AppliesOnlySetFields(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()
	created, err := svc.Create(ctx, request("8505140001088"))
	require.NoError(t, err)

	phone := "+27830000000"
	updated, err := svc.Update(ctx, created.ID, &model.UpdatePatientRequest{Phone: &phone})
	require.NoError(t, err)
	assert.Equal(t, phone, updated.Phone)
	assert.Equal(t, "Thandi", updated.FirstName)
}

func TestUpdate_IDNumberCollision(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()
	_, err := svc.Create(ctx, request("A"))
	require.NoError(t, err)
	second, err := svc.Create(ctx, request("B"))
	require.NoError(t, err)

	taken := "A"
	_, err = svc.Update(ctx, second.ID, &model.UpdatePatientRequest{IDNumber: &taken})
	assert.ErrorIs(t, err, apperrors.ErrConflict)
}

func TestHistory(t *testing.T) {
	svc, store := newService()
	ctx := context.Background()
	p, err := svc.Create(ctx, request("A"))
	require.NoError(t, err)

	doctor := &model.User{Email: "dr@clinic.test", Name: "Dr", Role: model.RoleDoctor, IsActive: true}
	require.NoError(t, store.Users().Create(ctx, doctor))
	require.NoError(t, store.Appointments().Create(ctx, &model.Appointment{
		PatientID: p.ID, DoctorID: doctor.ID, ScheduledAt: time.Now(), Status: model.AppointmentStatusScheduled, Type: "checkup",
	}))

	history, err := svc.History(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.ID, history.Patient.ID)
	assert.Len(t, history.Appointments, 1)
	assert.Empty(t, history.Consultations)
	assert.Empty(t, history.Payments)
}
