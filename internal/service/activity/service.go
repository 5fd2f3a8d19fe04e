package activity

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/clinic-api/internal/authz"
	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
)

type Service struct {
	repo repository.ActivityRepository
}

func NewService(repo repository.ActivityRepository) *Service {
	return &Service{repo: repo}
}

// Log records an action by the caller found in ctx. A failed write is
// logged and never fails the action it describes.
func (s *Service) Log(ctx context.Context, action, entityType string, entityID uuid.UUID, details model.JSONMap) {
	entry := &model.ActivityLog{
		Action:     action,
		EntityType: entityType,
		Details:    details,
		IPAddress:  authz.ClientIPFrom(ctx),
		CreatedAt:  time.Now().UTC(),
	}
	if entityID != uuid.Nil {
		entry.EntityID = &entityID
	}
	if id, ok := authz.IdentityFrom(ctx); ok && id.UserID != uuid.Nil {
		userID := id.UserID
		entry.UserID = &userID
		if id.ViaAPIKey() {
			if entry.Details == nil {
				entry.Details = model.JSONMap{}
			}
			entry.Details["api_key_id"] = id.APIKeyID.String()
		}
	}

	if err := s.repo.Create(ctx, entry); err != nil {
		log.Ctx(ctx).Error().Err(err).
			Str("action", action).
			Str("entity_type", entityType).
			Msg("Failed to write activity log")
	}
}

// LogAs records an action for an explicit user, for flows such as login
// where no identity is in ctx yet.
func (s *Service) LogAs(ctx context.Context, userID uuid.UUID, action, entityType string, entityID uuid.UUID, details model.JSONMap) {
	s.Log(authz.WithIdentity(ctx, model.Identity{UserID: userID}), action, entityType, entityID, details)
}

func (s *Service) List(ctx context.Context, filters *model.ActivityFilters) ([]*model.ActivityLog, error) {
	logs, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list activity: %w", err)
	}
	return logs, nil
}
