package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/clinic-api/internal/authz"
	"github.com/jwalitptl/clinic-api/internal/email"
	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	"github.com/jwalitptl/clinic-api/internal/service/activity"
	"github.com/jwalitptl/clinic-api/pkg/auth"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
	"github.com/jwalitptl/clinic-api/pkg/security"
)

const resetTokenBytes = 32

var ErrInvalidCredentials = apperrors.Unauthenticated("invalid email or password")

type Service struct {
	users    repository.UserRepository
	resets   repository.PasswordResetRepository
	tokens   *auth.TokenManager
	hasher   security.PasswordHasher
	email    email.Service
	activity *activity.Service
	now      func() time.Time
}

func NewService(
	users repository.UserRepository,
	resets repository.PasswordResetRepository,
	tokens *auth.TokenManager,
	hasher security.PasswordHasher,
	emailSvc email.Service,
	activity *activity.Service,
) *Service {
	return &Service{
		users:    users,
		resets:   resets,
		tokens:   tokens,
		hasher:   hasher,
		email:    emailSvc,
		activity: activity,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) Login(ctx context.Context, req *model.LoginRequest) (*model.LoginResponse, error) {
	user, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		if apperrors.KindOf(err) == apperrors.KindNotFound {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if err := s.hasher.Compare(user.PasswordHash, req.Password); err != nil {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, apperrors.Unauthenticated("account is deactivated")
	}

	token, expiresAt, err := s.tokens.Generate(user.ID, string(user.Role))
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	now := s.now()
	if err := s.users.TouchLastLogin(ctx, user.ID, now); err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("user_id", user.ID.String()).Msg("Failed to record last login")
	}
	user.LastLoginAt = &now
	s.activity.LogAs(ctx, user.ID, model.ActivityLogin, model.EntityUser, user.ID, nil)

	return &model.LoginResponse{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

// ResolveSession turns a session token into the caller's identity. The user
// is re-read so deactivation and role changes apply immediately.
func (s *Service) ResolveSession(ctx context.Context, token string) (model.Identity, error) {
	claims, err := s.tokens.Validate(token)
	if err != nil {
		return model.Identity{}, apperrors.Unauthenticated("invalid or expired session")
	}
	user, err := s.users.Get(ctx, claims.UserID)
	if err != nil {
		if apperrors.KindOf(err) == apperrors.KindNotFound {
			return model.Identity{}, apperrors.Unauthenticated("invalid or expired session")
		}
		return model.Identity{}, fmt.Errorf("failed to load session user: %w", err)
	}
	if !user.IsActive {
		return model.Identity{}, apperrors.Unauthenticated("account is deactivated")
	}
	return model.Identity{UserID: user.ID, Role: user.Role}, nil
}

// Me returns the calling user.
func (s *Service) Me(ctx context.Context) (*model.User, error) {
	caller, ok := authz.IdentityFrom(ctx)
	if !ok {
		return nil, apperrors.Unauthenticated("authentication required")
	}
	user, err := s.users.Get(ctx, caller.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// ForgotPassword issues a reset token when the email belongs to an active
// user. It reports success either way so callers cannot probe for accounts.
func (s *Service) ForgotPassword(ctx context.Context, address string) error {
	user, err := s.users.GetByEmail(ctx, address)
	if err != nil {
		if apperrors.KindOf(err) == apperrors.KindNotFound {
			return nil
		}
		return fmt.Errorf("failed to load user: %w", err)
	}
	if !user.IsActive {
		return nil
	}

	raw, err := security.RandomHex(resetTokenBytes)
	if err != nil {
		return apperrors.Internal(err)
	}
	token := &model.PasswordResetToken{
		UserID:    user.ID,
		TokenHash: security.HashToken(raw),
		ExpiresAt: s.now().Add(model.PasswordResetTTL),
	}
	if err := s.resets.Create(ctx, token); err != nil {
		return fmt.Errorf("failed to store reset token: %w", err)
	}

	if err := s.email.SendPasswordReset(ctx, user.Email, user.Name, raw); err != nil {
		log.Ctx(ctx).Error().Err(err).Str("user_id", user.ID.String()).Msg("Failed to send password reset email")
	}
	return nil
}

// ResetPassword consumes a reset token and sets the new password.
func (s *Service) ResetPassword(ctx context.Context, req *model.ResetPasswordRequest) error {
	hash, err := s.hasher.Hash(req.Password)
	if errors.Is(err, security.ErrPasswordTooShort) {
		return apperrors.Validation("password too short",
			map[string]string{"password": fmt.Sprintf("must be at least %d characters", security.MinPasswordLen)})
	}
	if err != nil {
		return apperrors.Internal(err)
	}

	userID, err := s.resets.Consume(ctx, security.HashToken(req.Token), s.now())
	if err != nil {
		return fmt.Errorf("failed to redeem reset token: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, userID, hash); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	s.activity.LogAs(ctx, userID, model.ActivityReset, model.EntityUser, userID, nil)
	return nil
}
