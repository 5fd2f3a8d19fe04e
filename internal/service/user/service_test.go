package user

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/jwalitptl/clinic-api/internal/authz"
	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository/repotest"
	"github.com/jwalitptl/clinic-api/internal/service/activity"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
	"github.com/jwalitptl/clinic-api/pkg/security"
)

func newService() (*Service, *repotest.Store) {
	store := repotest.NewStore()
	return NewService(store.Users(), security.NewBcryptHasher(bcrypt.MinCost), activity.NewService(store.Activity())), store
}

func TestCreate_HashesPassword(t *testing.T) {
	svc, store := newService()
	ctx := context.Background()

	u, err := svc.Create(ctx, &model.CreateUserRequest{
		Email: " Reception@Clinic.test ", Name: "Reception", Password: "s3cretpass", Role: model.RoleStaff,
	})
	require.NoError(t, err)
	assert.Equal(t, "reception@clinic.test", u.Email)
	assert.True(t, u.IsActive)

	stored, err := store.Users().Get(ctx, u.ID)
	require.NoError(t, err)
	assert.NotEqual(t, "s3cretpass", stored.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("s3cretpass")))
}

func TestCreate_DuplicateEmail(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()
	req := &model.CreateUserRequest{Email: "a@clinic.test", Name: "A", Password: "password1", Role: model.RoleAdmin}

	_, err := svc.Create(ctx, req)
	require.NoError(t, err)
	req.Email = "A@CLINIC.TEST"
	_, err = svc.Create(ctx, req)
	assert.ErrorIs(t, err, apperrors.ErrConflict)
}

func TestCreate_RejectsUnknownRole(t *testing.T) {
	svc, _ := newService()
	_, err := svc.Create(context.Background(), &model.CreateUserRequest{
		Email: "a@clinic.test", Name: "A", Password: "password1", Role: "superuser",
	})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestDeactivateAndActivate(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()
	u, err := svc.Create(ctx, &model.CreateUserRequest{Email: "d@clinic.test", Name: "D", Password: "password1", Role: model.RoleDoctor})
	require.NoError(t, err)

	off, err := svc.Deactivate(ctx, u.ID)
	require.NoError(t, err)
	assert.False(t, off.IsActive)

	on, err := svc.Activate(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, on.IsActive)
}

func TestDeactivate_Self(t *testing.T) {
	svc, _ := newService()
	u, err := svc.Create(context.Background(), &model.CreateUserRequest{Email: "admin@clinic.test", Name: "Admin", Password: "password1", Role: model.RoleAdmin})
	require.NoError(t, err)

	ctx := authz.WithIdentity(context.Background(), model.Identity{UserID: u.ID, Role: model.RoleAdmin})
	_, err = svc.Deactivate(ctx, u.ID)
	assert.ErrorIs(t, err, apperrors.ErrConflict)
}

func TestUpdate_RoleAndPassword(t *testing.T) {
	svc, store := newService()
	ctx := context.Background()
	u, err := svc.Create(ctx, &model.CreateUserRequest{Email: "s@clinic.test", Name: "S", Password: "password1", Role: model.RoleStaff})
	require.NoError(t, err)

	role := model.RoleAdmin
	password := "newpassword"
	updated, err := svc.Update(ctx, u.ID, &model.UpdateUserRequest{Role: &role, Password: &password})
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, updated.Role)

	stored, err := store.Users().Get(ctx, u.ID)
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte(password)))

	short := "short"
	_, err = svc.Update(ctx, u.ID, &model.UpdateUserRequest{Password: &short})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestEnsureAdmin_CreatesOnce(t *testing.T) {
	svc, store := newService()
	ctx := context.Background()

	created, err := svc.EnsureAdmin(ctx, "Admin@Clinic.test", "", "bootstrap-pass")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = svc.EnsureAdmin(ctx, "admin@clinic.test", "", "another-pass")
	require.NoError(t, err)
	assert.False(t, created)

	u, err := store.Users().GetByEmail(ctx, "admin@clinic.test")
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, u.Role)
	assert.Equal(t, "Administrator", u.Name)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("bootstrap-pass")))
}
