package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/clinic-api/internal/authz"
	"github.com/jwalitptl/clinic-api/internal/handler"
	"github.com/jwalitptl/clinic-api/internal/model"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
	"github.com/jwalitptl/clinic-api/pkg/metrics"
	"github.com/jwalitptl/clinic-api/pkg/security"
)

const HeaderAPIKey = "X-API-Key"

// SessionResolver resolves a bearer session token.
type SessionResolver interface {
	ResolveSession(ctx context.Context, token string) (model.Identity, error)
}

// KeyAuthenticator resolves a raw API key.
type KeyAuthenticator interface {
	Authenticate(ctx context.Context, raw string) (model.Identity, error)
}

// AuthMiddleware is the single gate every protected route passes through.
type AuthMiddleware struct {
	sessions SessionResolver
	keys     KeyAuthenticator
	metrics  *metrics.Metrics
}

func NewAuthMiddleware(sessions SessionResolver, keys KeyAuthenticator, m *metrics.Metrics) *AuthMiddleware {
	return &AuthMiddleware{sessions: sessions, keys: keys, metrics: m}
}

// Authenticate resolves the caller from a bearer session token, a bearer
// API key or the X-API-Key header, and stores the identity in the request
// context.
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		credential, err := credentialFrom(c)
		if err != nil {
			m.reject(c, "malformed", err)
			return
		}
		if credential == "" {
			m.reject(c, "missing", apperrors.Unauthenticated("missing credentials"))
			return
		}

		ctx := c.Request.Context()
		var identity model.Identity
		kind := "session"
		if strings.HasPrefix(credential, security.APIKeyPrefix) {
			kind = "api_key"
			identity, err = m.keys.Authenticate(ctx, credential)
		} else {
			identity, err = m.sessions.ResolveSession(ctx, credential)
		}
		if err != nil {
			m.reject(c, kind, err)
			return
		}

		ctx = authz.WithIdentity(ctx, identity)
		logger := log.Ctx(ctx).With().
			Str("user_id", identity.UserID.String()).
			Str("role", string(identity.Role)).
			Logger()
		c.Request = c.Request.WithContext(logger.WithContext(ctx))
		c.Set(ContextIdentity, identity)
		c.Next()
	}
}

// Require admits the caller only if their role holds capability.
func (m *AuthMiddleware) Require(capability authz.Capability) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := authz.IdentityFrom(c.Request.Context())
		if !ok {
			m.reject(c, "missing", apperrors.Unauthenticated("missing credentials"))
			return
		}
		if !authz.Allowed(capability, identity.Role) {
			m.count("forbidden")
			handler.RespondError(c, apperrors.Forbidden("your role may not "+string(capability)))
			return
		}
		c.Next()
	}
}

func (m *AuthMiddleware) reject(c *gin.Context, reason string, err error) {
	m.count(reason)
	if apperrors.KindOf(err) != apperrors.KindUnauthenticated && apperrors.KindOf(err) != apperrors.KindInternal {
		err = apperrors.Unauthenticated("")
	}
	handler.RespondError(c, err)
}

func (m *AuthMiddleware) count(reason string) {
	if m.metrics != nil {
		m.metrics.AuthFailures.WithLabelValues(reason).Inc()
	}
}

func credentialFrom(c *gin.Context) (string, error) {
	if key := strings.TrimSpace(c.GetHeader(HeaderAPIKey)); key != "" {
		return key, nil
	}
	header := c.GetHeader("Authorization")
	if header == "" {
		return "", nil
	}
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", apperrors.Unauthenticated("invalid authorization format")
	}
	return strings.TrimSpace(token), nil
}
