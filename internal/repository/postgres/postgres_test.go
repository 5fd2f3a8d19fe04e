package postgres

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"testing/fstest"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-api/internal/model"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
)

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return sqlx.NewDb(db, "postgres"), mock
}

var queueColumnNames = []string{
	"id", "patient_id", "check_in_id", "doctor_id", "status", "priority", "estimated_wait_time",
	"actual_wait_time", "entered_at", "started_at", "completed_at", "notes", "created_at", "updated_at",
}

func queueRow(id uuid.UUID, status model.QueueStatus, enteredAt time.Time, startedAt interface{}) *sqlmock.Rows {
	return sqlmock.NewRows(queueColumnNames).AddRow(
		id.String(), uuid.NewString(), uuid.NewString(), nil, string(status), int64(0), nil,
		nil, enteredAt, startedAt, nil, "", enteredAt, enteredAt,
	)
}

func TestMapError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{name: "no rows", err: sql.ErrNoRows, want: apperrors.ErrNotFound},
		{name: "unique", err: &pq.Error{Code: pqUniqueViolation, Constraint: "patients_id_number_key"}, want: apperrors.ErrConflict},
		{name: "foreign key", err: &pq.Error{Code: pqForeignKeyViolation, Constraint: "appointments_patient_id_fkey"}, want: apperrors.ErrNotFound},
		{name: "check", err: &pq.Error{Code: pqCheckViolation, Constraint: "payments_amount_check"}, want: apperrors.ErrValidation},
		{name: "numeric overflow", err: &pq.Error{Code: pqNumericOutOfRange}, want: apperrors.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, mapError(tt.err, "patient"), tt.want)
		})
	}

	assert.NoError(t, mapError(nil, "patient"))

	other := errors.New("connection reset")
	err := mapError(other, "patient")
	assert.ErrorIs(t, err, other)
	assert.Equal(t, apperrors.KindInternal, apperrors.KindOf(err))
}

func TestMapError_Messages(t *testing.T) {
	err := mapError(&pq.Error{Code: pqUniqueViolation, Constraint: "patients_id_number_key"}, "patient")
	assert.Contains(t, err.Error(), "id number already exists")

	err = mapError(&pq.Error{Code: pqForeignKeyViolation, Constraint: "queue_entries_check_in_id_fkey"}, "queue entry")
	assert.Contains(t, err.Error(), "check-in not found")
}

func TestMapError_DuplicateAdmission(t *testing.T) {
	err := mapError(&pq.Error{Code: pqUniqueViolation, Constraint: "queue_entries_open_check_in_key"}, "queue entry")
	assert.ErrorIs(t, err, apperrors.ErrConflict)
	assert.Contains(t, err.Error(), "already in the queue")
}

func TestPaymentCreate_AmountOutOfRange(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPaymentRepository(db)

	mock.ExpectExec(`INSERT INTO payments`).
		WillReturnError(&pq.Error{Code: pqNumericOutOfRange, Message: "numeric field overflow"})

	err := repo.Create(context.Background(), &model.Payment{
		PatientID:     uuid.New(),
		CheckInID:     uuid.New(),
		Amount:        decimal.RequireFromString("100000000.00"),
		PaymentMethod: model.PaymentMethodCash,
	})
	require.ErrorIs(t, err, apperrors.ErrValidation)
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "must be at most 99999999.99", appErr.Fields["amount"])
}

func TestQueueTransition_Start(t *testing.T) {
	db, mock := newMock(t)
	repo := NewQueueRepository(db)

	id := uuid.New()
	doctor := uuid.New()
	entered := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	at := entered.Add(20 * time.Minute)

	mock.ExpectQuery(regexp.QuoteMeta(`UPDATE queue_entries`)+`(?s).*WHERE id = \$3 AND status = \$4`).
		WithArgs(model.QueueStatusInProgress, at, id, model.QueueStatusWaiting, &doctor).
		WillReturnRows(queueRow(id, model.QueueStatusInProgress, entered, at))

	entry, err := repo.Transition(context.Background(), model.QueueTransition{
		ID: id, From: model.QueueStatusWaiting, To: model.QueueStatusInProgress, At: at, DoctorID: &doctor,
	})
	require.NoError(t, err)
	assert.Equal(t, model.QueueStatusInProgress, entry.Status)
	require.NotNil(t, entry.StartedAt)
}

func TestQueueTransition_LostRace(t *testing.T) {
	db, mock := newMock(t)
	repo := NewQueueRepository(db)
	id := uuid.New()
	now := time.Now().UTC()

	mock.ExpectQuery(`UPDATE queue_entries`).
		WillReturnRows(sqlmock.NewRows(queueColumnNames))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM queue_entries WHERE id = $1`)).
		WithArgs(id).
		WillReturnRows(queueRow(id, model.QueueStatusInProgress, now, now))

	_, err := repo.Transition(context.Background(), model.QueueTransition{
		ID: id, From: model.QueueStatusWaiting, To: model.QueueStatusInProgress, At: now,
	})
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)
}

func TestQueueTransition_Missing(t *testing.T) {
	db, mock := newMock(t)
	repo := NewQueueRepository(db)
	id := uuid.New()

	mock.ExpectQuery(`UPDATE queue_entries`).
		WillReturnRows(sqlmock.NewRows(queueColumnNames))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM queue_entries WHERE id = $1`)).
		WithArgs(id).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Transition(context.Background(), model.QueueTransition{
		ID: id, From: model.QueueStatusInProgress, To: model.QueueStatusCompleted, At: time.Now(),
	})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestQueueTransition_RejectsBackwardStep(t *testing.T) {
	db, _ := newMock(t)
	repo := NewQueueRepository(db)

	_, err := repo.Transition(context.Background(), model.QueueTransition{
		ID: uuid.New(), From: model.QueueStatusCompleted, To: model.QueueStatusWaiting, At: time.Now(),
	})
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)
}

func TestQueueNext_OrdersByPriorityThenArrival(t *testing.T) {
	db, mock := newMock(t)
	repo := NewQueueRepository(db)
	doctor := uuid.New()
	id := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE status = $1 AND (doctor_id = $2 OR doctor_id IS NULL) ORDER BY priority DESC, entered_at ASC LIMIT 1`)).
		WithArgs(model.QueueStatusWaiting, doctor).
		WillReturnRows(queueRow(id, model.QueueStatusWaiting, time.Now(), nil))

	entry, err := repo.Next(context.Background(), &doctor)
	require.NoError(t, err)
	assert.Equal(t, id, entry.ID)
}

func TestPatientCreate_DuplicateIDNumber(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPatientRepository(db)

	mock.ExpectExec(`INSERT INTO patients`).
		WillReturnError(&pq.Error{Code: pqUniqueViolation, Constraint: "patients_id_number_key"})

	err := repo.Create(context.Background(), &model.Patient{FirstName: "A", LastName: "B", IDNumber: "1"})
	assert.ErrorIs(t, err, apperrors.ErrConflict)
}

func TestPasswordResetPurge(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPasswordResetRepository(NewBaseRepository(db))
	cutoff := time.Now().UTC()

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM password_reset_tokens WHERE expires_at < $1 OR used_at < $1`)).
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := repo.Purge(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestLoadMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"010_later.sql":  {Data: []byte("SELECT 10;")},
		"002_second.sql": {Data: []byte("SELECT 2;")},
		"001_first.sql":  {Data: []byte("SELECT 1;")},
		"README.md":      {Data: []byte("docs")},
		"notes.sql":      {Data: []byte("SELECT 0;")},
	}

	migrations, err := LoadMigrations(fsys)
	require.NoError(t, err)
	require.Len(t, migrations, 3)
	assert.Equal(t, []int{1, 2, 10}, []int{migrations[0].Version, migrations[1].Version, migrations[2].Version})
	assert.Equal(t, "SELECT 2;", migrations[1].SQL)
}

func TestMigrate_SkipsApplied(t *testing.T) {
	db, mock := newMock(t)
	fsys := fstest.MapFS{
		"001_first.sql":  {Data: []byte("CREATE TABLE a (id INT);")},
		"002_second.sql": {Data: []byte("CREATE TABLE b (id INT);")},
	}

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS schema_migrations`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT version FROM schema_migrations`).
		WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow(1))
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`CREATE TABLE b (id INT);`)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO schema_migrations`).
		WithArgs(2, "002_second.sql").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	applied, err := Migrate(context.Background(), db, fsys)
	require.NoError(t, err)
	assert.Equal(t, 1, applied)
}

func TestMigrate_RollsBackFailedMigration(t *testing.T) {
	db, mock := newMock(t)
	fsys := fstest.MapFS{"001_first.sql": {Data: []byte("BROKEN;")}}

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS schema_migrations`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT version FROM schema_migrations`).
		WillReturnRows(sqlmock.NewRows([]string{"version"}))
	mock.ExpectBegin()
	mock.ExpectExec(`BROKEN;`).WillReturnError(errors.New("syntax error"))
	mock.ExpectRollback()

	applied, err := Migrate(context.Background(), db, fsys)
	assert.Error(t, err)
	assert.Equal(t, 0, applied)
}
