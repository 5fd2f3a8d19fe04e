package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/jwalitptl/clinic-api/internal/authz"
	"github.com/jwalitptl/clinic-api/internal/model"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
	"github.com/jwalitptl/clinic-api/pkg/metrics"
)

type fakeSessions map[string]model.Identity

func (f fakeSessions) ResolveSession(_ context.Context, token string) (model.Identity, error) {
	id, ok := f[token]
	if !ok {
		return model.Identity{}, apperrors.Unauthenticated("invalid or expired token")
	}
	return id, nil
}

type fakeKeys map[string]model.Identity

func (f fakeKeys) Authenticate(_ context.Context, raw string) (model.Identity, error) {
	id, ok := f[raw]
	if !ok {
		// services report unknown keys as not found; the gate must still answer 401
		return model.Identity{}, apperrors.NotFound("api key", nil)
	}
	return id, nil
}

func setupGate(t *testing.T) (*gin.Engine, *metrics.Metrics) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	staff := model.Identity{UserID: uuid.New(), Role: model.RoleStaff}
	admin := model.Identity{UserID: uuid.New(), Role: model.RoleAdmin}
	keyID := uuid.New()
	doctorByKey := model.Identity{UserID: uuid.New(), Role: model.RoleDoctor, APIKeyID: keyID}

	m := metrics.NewTestMetrics()
	gate := NewAuthMiddleware(
		fakeSessions{"staff-token": staff, "admin-token": admin},
		fakeKeys{"ck_doctor": doctorByKey},
		m,
	)

	r := gin.New()
	protected := r.Group("/api", gate.Authenticate())
	protected.GET("/users", gate.Require(authz.UsersRead), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	protected.GET("/whoami", gate.Require(authz.AuthMe), func(c *gin.Context) {
		id, _ := authz.IdentityFrom(c.Request.Context())
		c.String(http.StatusOK, string(id.Role))
	})
	return r, m
}

func TestAuthenticate(t *testing.T) {
	r, m := setupGate(t)

	tests := []struct {
		name     string
		header   string
		value    string
		path     string
		wantCode int
		wantBody string
	}{
		{name: "no credentials", path: "/api/whoami", wantCode: http.StatusUnauthorized},
		{name: "not bearer", header: "Authorization", value: "Basic abc", path: "/api/whoami", wantCode: http.StatusUnauthorized},
		{name: "unknown token", header: "Authorization", value: "Bearer nope", path: "/api/whoami", wantCode: http.StatusUnauthorized},
		{name: "unknown api key", header: HeaderAPIKey, value: "ck_missing", path: "/api/whoami", wantCode: http.StatusUnauthorized},
		{name: "session", header: "Authorization", value: "Bearer staff-token", path: "/api/whoami", wantCode: http.StatusOK, wantBody: "staff"},
		{name: "api key header", header: HeaderAPIKey, value: "ck_doctor", path: "/api/whoami", wantCode: http.StatusOK, wantBody: "doctor"},
		{name: "api key as bearer", header: "Authorization", value: "Bearer ck_doctor", path: "/api/whoami", wantCode: http.StatusOK, wantBody: "doctor"},
		{name: "role lacks capability", header: "Authorization", value: "Bearer staff-token", path: "/api/users", wantCode: http.StatusForbidden},
		{name: "role holds capability", header: "Authorization", value: "Bearer admin-token", path: "/api/users", wantCode: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set(tt.header, tt.value)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.wantCode, w.Code)
			if tt.wantBody != "" {
				assert.Equal(t, tt.wantBody, w.Body.String())
			}
		})
	}

	assert.Equal(t, float64(1), testutil.ToFloat64(m.AuthFailures.WithLabelValues("forbidden")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.AuthFailures.WithLabelValues("api_key")))
}

func TestAuthenticate_APIKeyHeaderWins(t *testing.T) {
	r, _ := setupGate(t)

	req := httptest.NewRequest(http.MethodGet, "/api/whoami", nil)
	req.Header.Set("Authorization", "Bearer staff-token")
	req.Header.Set(HeaderAPIKey, "ck_doctor")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "doctor", w.Body.String())
}
