package user

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/authz"
	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	"github.com/jwalitptl/clinic-api/internal/service/activity"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
	"github.com/jwalitptl/clinic-api/pkg/security"
)

type Service struct {
	repo     repository.UserRepository
	hasher   security.PasswordHasher
	activity *activity.Service
}

func NewService(repo repository.UserRepository, hasher security.PasswordHasher, activity *activity.Service) *Service {
	return &Service{repo: repo, hasher: hasher, activity: activity}
}

func (s *Service) Create(ctx context.Context, req *model.CreateUserRequest) (*model.User, error) {
	if !req.Role.Valid() {
		return nil, apperrors.Validation("invalid role", map[string]string{"role": "must be one of staff, admin, doctor"})
	}
	hash, err := s.hashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		Name:         strings.TrimSpace(req.Name),
		Role:         req.Role,
		PasswordHash: hash,
		IsActive:     true,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.activity.Log(ctx, model.ActivityCreate, model.EntityUser, user.ID, model.JSONMap{"role": string(user.Role)})
	return user, nil
}

// EnsureAdmin creates an admin account for email unless a user with that
// email already exists. It is run at startup so a fresh install can log in.
func (s *Service) EnsureAdmin(ctx context.Context, email, name, password string) (bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	_, err := s.repo.GetByEmail(ctx, email)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return false, fmt.Errorf("failed to look up bootstrap admin: %w", err)
	}
	if name == "" {
		name = "Administrator"
	}
	if _, err := s.Create(ctx, &model.CreateUserRequest{
		Email:    email,
		Name:     name,
		Password: password,
		Role:     model.RoleAdmin,
	}); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.User, error) {
	user, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, req *model.UpdateUserRequest) (*model.User, error) {
	user, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if req.Name != nil {
		user.Name = strings.TrimSpace(*req.Name)
	}
	if req.Email != nil {
		user.Email = strings.ToLower(strings.TrimSpace(*req.Email))
	}
	if req.Role != nil {
		if !req.Role.Valid() {
			return nil, apperrors.Validation("invalid role", map[string]string{"role": "must be one of staff, admin, doctor"})
		}
		if *req.Role != user.Role {
			if err := s.guardSelf(ctx, id, "change your own role"); err != nil {
				return nil, err
			}
		}
		user.Role = *req.Role
	}
	var hash string
	if req.Password != nil {
		if hash, err = s.hashPassword(*req.Password); err != nil {
			return nil, err
		}
	}

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	if hash != "" {
		if err := s.repo.UpdatePassword(ctx, id, hash); err != nil {
			return nil, fmt.Errorf("failed to update password: %w", err)
		}
	}

	s.activity.Log(ctx, model.ActivityUpdate, model.EntityUser, user.ID, model.JSONMap{"role": string(user.Role)})
	return user, nil
}

// Deactivate disables a user. Users are never deleted.
func (s *Service) Deactivate(ctx context.Context, id uuid.UUID) (*model.User, error) {
	if err := s.guardSelf(ctx, id, "deactivate yourself"); err != nil {
		return nil, err
	}
	user, err := s.repo.SetActive(ctx, id, false)
	if err != nil {
		return nil, fmt.Errorf("failed to deactivate user: %w", err)
	}
	s.activity.Log(ctx, model.ActivityDeactivate, model.EntityUser, id, nil)
	return user, nil
}

func (s *Service) Activate(ctx context.Context, id uuid.UUID) (*model.User, error) {
	user, err := s.repo.SetActive(ctx, id, true)
	if err != nil {
		return nil, fmt.Errorf("failed to activate user: %w", err)
	}
	s.activity.Log(ctx, model.ActivityActivate, model.EntityUser, id, nil)
	return user, nil
}

func (s *Service) List(ctx context.Context, filters *model.UserFilters) ([]*model.User, error) {
	users, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

func (s *Service) hashPassword(password string) (string, error) {
	hash, err := s.hasher.Hash(password)
	if err == security.ErrPasswordTooShort {
		return "", apperrors.Validation("password too short",
			map[string]string{"password": fmt.Sprintf("must be at least %d characters", security.MinPasswordLen)})
	}
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return hash, nil
}

// guardSelf stops an admin from locking themselves out.
func (s *Service) guardSelf(ctx context.Context, id uuid.UUID, what string) error {
	if caller, ok := authz.IdentityFrom(ctx); ok && caller.UserID == id {
		return apperrors.Conflict("you cannot "+what, nil)
	}
	return nil
}
