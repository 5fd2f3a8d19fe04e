package apikey

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/clinic-api/internal/authz"
	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	"github.com/jwalitptl/clinic-api/internal/service/activity"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
	"github.com/jwalitptl/clinic-api/pkg/security"
)

type Service struct {
	repo     repository.APIKeyRepository
	users    repository.UserRepository
	activity *activity.Service
	now      func() time.Time
}

func NewService(repo repository.APIKeyRepository, users repository.UserRepository, activity *activity.Service) *Service {
	return &Service{
		repo:     repo,
		users:    users,
		activity: activity,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Create issues a key for the caller. The raw key is only ever returned here.
func (s *Service) Create(ctx context.Context, req *model.CreateAPIKeyRequest) (*model.CreatedAPIKey, error) {
	caller, ok := authz.IdentityFrom(ctx)
	if !ok {
		return nil, apperrors.Unauthenticated("authentication required")
	}

	raw, prefix, hash, err := security.GenerateAPIKey()
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	key := &model.APIKey{
		UserID:    caller.UserID,
		Name:      req.Name,
		KeyPrefix: prefix,
		KeyHash:   hash,
		IsActive:  true,
	}
	if err := s.repo.Create(ctx, key); err != nil {
		return nil, fmt.Errorf("failed to create api key: %w", err)
	}

	s.activity.Log(ctx, model.ActivityCreate, model.EntityAPIKey, key.ID, model.JSONMap{"name": key.Name, "prefix": prefix})
	return &model.CreatedAPIKey{APIKey: key, Key: raw}, nil
}

// List returns the caller's keys.
func (s *Service) List(ctx context.Context) ([]*model.APIKey, error) {
	caller, ok := authz.IdentityFrom(ctx)
	if !ok {
		return nil, apperrors.Unauthenticated("authentication required")
	}
	keys, err := s.repo.ListByUser(ctx, caller.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to list api keys: %w", err)
	}
	return keys, nil
}

// Revoke disables one of the caller's keys. Keys of other users look absent.
func (s *Service) Revoke(ctx context.Context, id uuid.UUID) error {
	caller, ok := authz.IdentityFrom(ctx)
	if !ok {
		return apperrors.Unauthenticated("authentication required")
	}
	key, err := s.repo.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get api key: %w", err)
	}
	if key.UserID != caller.UserID {
		return apperrors.NotFound("api key", nil)
	}

	if err := s.repo.Revoke(ctx, id, s.now()); err != nil {
		return fmt.Errorf("failed to revoke api key: %w", err)
	}
	s.activity.Log(ctx, model.ActivityRevoke, model.EntityAPIKey, id, nil)
	return nil
}

// Authenticate resolves a raw key to its owner's identity. The key must be
// active and its owner active.
func (s *Service) Authenticate(ctx context.Context, raw string) (model.Identity, error) {
	if !security.IsAPIKey(raw) {
		return model.Identity{}, apperrors.Unauthenticated("invalid api key")
	}
	key, err := s.repo.GetByHash(ctx, security.HashToken(raw))
	if err != nil {
		if apperrors.KindOf(err) == apperrors.KindNotFound {
			return model.Identity{}, apperrors.Unauthenticated("invalid api key")
		}
		return model.Identity{}, fmt.Errorf("failed to look up api key: %w", err)
	}
	if !key.IsActive || key.RevokedAt != nil {
		return model.Identity{}, apperrors.Unauthenticated("api key has been revoked")
	}

	owner, err := s.users.Get(ctx, key.UserID)
	if err != nil {
		if apperrors.KindOf(err) == apperrors.KindNotFound {
			return model.Identity{}, apperrors.Unauthenticated("invalid api key")
		}
		return model.Identity{}, fmt.Errorf("failed to load api key owner: %w", err)
	}
	if !owner.IsActive {
		return model.Identity{}, apperrors.Unauthenticated("account is deactivated")
	}

	if err := s.repo.TouchLastUsed(ctx, key.ID, s.now()); err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("api_key_id", key.ID.String()).Msg("Failed to record api key use")
	}
	return model.Identity{UserID: owner.ID, Role: owner.Role, APIKeyID: key.ID}, nil
}
