package activity

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-api/internal/authz"
	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository/repotest"
)

func TestLog_RecordsCallerAndIP(t *testing.T) {
	store := repotest.NewStore()
	svc := NewService(store.Activity())

	userID, keyID, patientID := uuid.New(), uuid.New(), uuid.New()
	ctx := authz.WithIdentity(context.Background(), model.Identity{UserID: userID, Role: model.RoleStaff, APIKeyID: keyID})
	ctx = authz.WithClientIP(ctx, "192.168.1.20")

	svc.Log(ctx, model.ActivityCreate, model.EntityPatient, patientID, model.JSONMap{"id_number": "8001015009087"})

	logs := store.ActivityLogs()
	require.Len(t, logs, 1)
	assert.Equal(t, userID, *logs[0].UserID)
	assert.Equal(t, patientID, *logs[0].EntityID)
	assert.Equal(t, "192.168.1.20", logs[0].IPAddress)
	assert.Equal(t, keyID.String(), logs[0].Details["api_key_id"])
}

func TestList_FiltersByEntity(t *testing.T) {
	store := repotest.NewStore()
	svc := NewService(store.Activity())
	ctx := context.Background()

	target := uuid.New()
	svc.LogAs(ctx, uuid.New(), model.ActivityLogin, model.EntityUser, uuid.Nil, nil)
	svc.LogAs(ctx, uuid.New(), model.ActivityUpdate, model.EntityQueueEntry, target, nil)

	logs, err := svc.List(ctx, &model.ActivityFilters{EntityType: model.EntityQueueEntry})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, target, *logs[0].EntityID)
	assert.Nil(t, store.ActivityLogs()[0].EntityID)
}
