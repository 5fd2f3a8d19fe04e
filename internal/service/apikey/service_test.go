package apikey

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-api/internal/authz"
	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository/repotest"
	"github.com/jwalitptl/clinic-api/internal/service/activity"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
	"github.com/jwalitptl/clinic-api/pkg/security"
)

func setup(t *testing.T) (*Service, *repotest.Store, *model.User, context.Context) {
	t.Helper()
	store := repotest.NewStore()
	svc := NewService(store.APIKeys(), store.Users(), activity.NewService(store.Activity()))
	owner := &model.User{Email: "ops@clinic.test", Name: "Ops", Role: model.RoleAdmin, IsActive: true}
	require.NoError(t, store.Users().Create(context.Background(), owner))
	ctx := authz.WithIdentity(context.Background(), model.Identity{UserID: owner.ID, Role: owner.Role})
	return svc, store, owner, ctx
}

func TestCreateAndAuthenticate(t *testing.T) {
	svc, store, owner, ctx := setup(t)

	created, err := svc.Create(ctx, &model.CreateAPIKeyRequest{Name: "kiosk"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(created.Key, security.APIKeyPrefix))
	assert.True(t, strings.HasPrefix(created.Key, created.KeyPrefix))
	assert.NotContains(t, created.KeyHash, created.Key)

	id, err := svc.Authenticate(context.Background(), created.Key)
	require.NoError(t, err)
	assert.Equal(t, owner.ID, id.UserID)
	assert.Equal(t, model.RoleAdmin, id.Role)
	assert.Equal(t, created.ID, id.APIKeyID)

	stored, err := store.APIKeys().Get(context.Background(), created.ID)
	require.NoError(t, err)
	assert.NotNil(t, stored.LastUsedAt)
}

func TestAuthenticate_RevokedKeyFails(t *testing.T) {
	svc, _, _, ctx := setup(t)
	created, err := svc.Create(ctx, &model.CreateAPIKeyRequest{Name: "kiosk"})
	require.NoError(t, err)

	require.NoError(t, svc.Revoke(ctx, created.ID))

	_, err = svc.Authenticate(context.Background(), created.Key)
	assert.ErrorIs(t, err, apperrors.ErrUnauthenticated)

	keys, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, keys, 1)
	assert.False(t, keys[0].IsActive)
	assert.NotNil(t, keys[0].RevokedAt)
}

func TestAuthenticate_InactiveOwner(t *testing.T) {
	svc, store, owner, ctx := setup(t)
	created, err := svc.Create(ctx, &model.CreateAPIKeyRequest{Name: "kiosk"})
	require.NoError(t, err)

	_, err = store.Users().SetActive(context.Background(), owner.ID, false)
	require.NoError(t, err)

	_, err = svc.Authenticate(context.Background(), created.Key)
	assert.ErrorIs(t, err, apperrors.ErrUnauthenticated)
}

func TestAuthenticate_Unknown(t *testing.T) {
	svc, _, _, _ := setup(t)

	_, err := svc.Authenticate(context.Background(), "ck_"+strings.Repeat("0", 64))
	assert.ErrorIs(t, err, apperrors.ErrUnauthenticated)

	_, err = svc.Authenticate(context.Background(), "not-a-key")
	assert.ErrorIs(t, err, apperrors.ErrUnauthenticated)
}

func TestRevoke_OtherUsersKey(t *testing.T) {
	svc, store, _, ctx := setup(t)
	created, err := svc.Create(ctx, &model.CreateAPIKeyRequest{Name: "kiosk"})
	require.NoError(t, err)

	other := &model.User{Email: "other@clinic.test", Name: "Other", Role: model.RoleStaff, IsActive: true}
	require.NoError(t, store.Users().Create(context.Background(), other))
	otherCtx := authz.WithIdentity(context.Background(), model.Identity{UserID: other.ID, Role: other.Role})

	err = svc.Revoke(otherCtx, created.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	_, err = svc.Authenticate(context.Background(), created.Key)
	assert.NoError(t, err)
}
