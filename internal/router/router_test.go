package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/jwalitptl/clinic-api/internal/handler"
	activityHandler "github.com/jwalitptl/clinic-api/internal/handler/activity"
	apikeyHandler "github.com/jwalitptl/clinic-api/internal/handler/apikey"
	authHandler "github.com/jwalitptl/clinic-api/internal/handler/auth"
	checkinHandler "github.com/jwalitptl/clinic-api/internal/handler/checkin"
	"github.com/jwalitptl/clinic-api/internal/handler/health"
	patientHandler "github.com/jwalitptl/clinic-api/internal/handler/patient"
	prometheusHandler "github.com/jwalitptl/clinic-api/internal/handler/prometheus"
	queueHandler "github.com/jwalitptl/clinic-api/internal/handler/queue"
	userHandler "github.com/jwalitptl/clinic-api/internal/handler/user"
	"github.com/jwalitptl/clinic-api/internal/middleware"
	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository/repotest"
	"github.com/jwalitptl/clinic-api/internal/service/activity"
	apikeyService "github.com/jwalitptl/clinic-api/internal/service/apikey"
	authService "github.com/jwalitptl/clinic-api/internal/service/auth"
	checkinService "github.com/jwalitptl/clinic-api/internal/service/checkin"
	patientService "github.com/jwalitptl/clinic-api/internal/service/patient"
	queueService "github.com/jwalitptl/clinic-api/internal/service/queue"
	userService "github.com/jwalitptl/clinic-api/internal/service/user"
	"github.com/jwalitptl/clinic-api/pkg/auth"
	"github.com/jwalitptl/clinic-api/pkg/metrics"
	"github.com/jwalitptl/clinic-api/pkg/security"
)

type discardMail struct{}

func (discardMail) SendPasswordReset(context.Context, string, string, string) error { return nil }

type okPinger struct{}

func (okPinger) Ping(context.Context) error { return nil }

type testServer struct {
	engine *gin.Engine
	users  *userService.Service
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	require.NoError(t, handler.RegisterValidators())

	store := repotest.NewStore()
	registry := prometheus.NewRegistry()
	m := metrics.NewMetrics(registry, "test")
	hasher := security.NewBcryptHasher(bcrypt.MinCost)
	tokens := auth.NewTokenManager("test-secret", time.Hour)

	activitySvc := activity.NewService(store.Activity())
	userSvc := userService.NewService(store.Users(), hasher, activitySvc)
	authSvc := authService.NewService(store.Users(), store.ResetTokens(), tokens, hasher, discardMail{}, activitySvc)
	apikeySvc := apikeyService.NewService(store.APIKeys(), store.Users(), activitySvc)
	patientSvc := patientService.NewService(store.Patients(), store.Appointments(), store.Consultations(), store.Payments(), activitySvc)
	queueSvc := queueService.NewService(store.Queue(), store.CheckIns(), store.Users(), activitySvc, nil, m)
	checkinSvc := checkinService.NewService(store.CheckIns(), store.Patients(), store.Appointments(), store.Users(), queueSvc, activitySvc)

	r := NewRouter(
		RouterConfig{Mode: gin.TestMode, CORSConfig: middleware.DefaultCORSConfig(nil)},
		m,
		middleware.NewAuthMiddleware(authSvc, apikeySvc, m),
		authHandler.NewHandler(authSvc),
		[]Handler{
			userHandler.NewHandler(userSvc),
			apikeyHandler.NewHandler(apikeySvc),
			patientHandler.NewHandler(patientSvc),
			checkinHandler.NewHandler(checkinSvc),
			queueHandler.NewHandler(queueSvc),
			activityHandler.NewHandler(activitySvc),
		},
		health.NewHandler(okPinger{}, "test"),
		prometheusHandler.New(registry),
		handler.NewSPA(t.TempDir(), "test"),
	)
	r.Setup()
	return &testServer{engine: r.Engine(), users: userSvc}
}

func (s *testServer) addUser(t *testing.T, email string, role model.Role) {
	t.Helper()
	_, err := s.users.Create(context.Background(), &model.CreateUserRequest{
		Email: email, Name: string(role), Password: "password123", Role: role,
	})
	require.NoError(t, err)
}

type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Code    string          `json:"code"`
	Data    json.RawMessage `json:"data"`
}

func (s *testServer) do(t *testing.T, method, path string, headers map[string]string, body interface{}) (int, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	var env envelope
	_ = json.Unmarshal(w.Body.Bytes(), &env)
	return w.Code, env
}

func (s *testServer) login(t *testing.T, email string) map[string]string {
	t.Helper()
	code, env := s.do(t, http.MethodPost, "/api/auth/login", nil, model.LoginRequest{Email: email, Password: "password123"})
	require.Equal(t, http.StatusOK, code, env.Message)
	var res model.LoginResponse
	require.NoError(t, json.Unmarshal(env.Data, &res))
	return map[string]string{"Authorization": "Bearer " + res.Token}
}

func TestRouter_PublicSurface(t *testing.T) {
	s := newTestServer(t)

	code, _ := s.do(t, http.MethodGet, "/healthz/live", nil, nil)
	assert.Equal(t, http.StatusOK, code)
	code, _ = s.do(t, http.MethodGet, "/healthz/ready", nil, nil)
	assert.Equal(t, http.StatusOK, code)
	code, _ = s.do(t, http.MethodGet, "/metrics", nil, nil)
	assert.Equal(t, http.StatusOK, code)

	code, env := s.do(t, http.MethodGet, "/api/patients", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "error", env.Status)

	code, _ = s.do(t, http.MethodGet, "/api/does-not-exist", nil, nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, env = s.do(t, http.MethodPost, "/api/auth/login", nil, model.LoginRequest{Email: "nobody@clinic.test", Password: "whatever1"})
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "error", env.Status)
}

func TestRouter_RoleGate(t *testing.T) {
	s := newTestServer(t)
	s.addUser(t, "staff@clinic.test", model.RoleStaff)
	s.addUser(t, "admin@clinic.test", model.RoleAdmin)

	staff := s.login(t, "staff@clinic.test")
	admin := s.login(t, "admin@clinic.test")

	code, _ := s.do(t, http.MethodGet, "/api/users", staff, nil)
	assert.Equal(t, http.StatusForbidden, code)
	code, _ = s.do(t, http.MethodGet, "/api/activity", staff, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = s.do(t, http.MethodGet, "/api/users", admin, nil)
	assert.Equal(t, http.StatusOK, code)
	code, _ = s.do(t, http.MethodGet, "/api/auth/me", staff, nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestRouter_RevokedKeyRejectedSessionKept(t *testing.T) {
	s := newTestServer(t)
	s.addUser(t, "staff@clinic.test", model.RoleStaff)
	session := s.login(t, "staff@clinic.test")

	code, env := s.do(t, http.MethodPost, "/api/api-keys", session, model.CreateAPIKeyRequest{Name: "kiosk"})
	require.Equal(t, http.StatusCreated, code, env.Message)
	var created struct {
		ID  string `json:"id"`
		Key string `json:"key"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &created))
	key := map[string]string{middleware.HeaderAPIKey: created.Key}

	code, _ = s.do(t, http.MethodGet, "/api/auth/me", key, nil)
	assert.Equal(t, http.StatusOK, code)

	code, _ = s.do(t, http.MethodDelete, "/api/api-keys/"+created.ID, session, nil)
	require.Equal(t, http.StatusOK, code)

	code, _ = s.do(t, http.MethodGet, "/api/auth/me", key, nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	code, _ = s.do(t, http.MethodGet, "/api/auth/me", session, nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestRouter_WalkInThroughQueue(t *testing.T) {
	s := newTestServer(t)
	s.addUser(t, "staff@clinic.test", model.RoleStaff)
	s.addUser(t, "doctor@clinic.test", model.RoleDoctor)
	staff := s.login(t, "staff@clinic.test")
	doctor := s.login(t, "doctor@clinic.test")

	code, env := s.do(t, http.MethodPost, "/api/patients", staff, map[string]interface{}{
		"first_name":    "Thandi",
		"last_name":     "Nkosi",
		"phone":         "+27 82 000 0000",
		"date_of_birth": "1990-04-12",
		"gender":        "female",
		"id_number":     "9004120000000",
	})
	require.Equal(t, http.StatusCreated, code, env.Message)
	var patient model.Patient
	require.NoError(t, json.Unmarshal(env.Data, &patient))

	code, env = s.do(t, http.MethodPost, "/api/patients", staff, map[string]interface{}{
		"first_name":    "Other",
		"last_name":     "Person",
		"phone":         "1",
		"date_of_birth": "1980-01-01",
		"gender":        "male",
		"id_number":     "9004120000000",
	})
	assert.Equal(t, http.StatusConflict, code, env.Message)

	code, env = s.do(t, http.MethodPost, "/api/check-ins", staff, map[string]interface{}{
		"patient_id":     patient.ID,
		"payment_method": "cash",
		"admit_to_queue": true,
	})
	require.Equal(t, http.StatusCreated, code, env.Message)
	var result model.CheckInResult
	require.NoError(t, json.Unmarshal(env.Data, &result))
	require.NotNil(t, result.QueueEntry)
	assert.True(t, result.CheckIn.IsWalkIn)
	assert.Equal(t, model.QueueStatusWaiting, result.QueueEntry.Status)

	entryPath := "/api/queue/" + result.QueueEntry.ID.String()

	code, _ = s.do(t, http.MethodPost, entryPath+"/complete", doctor, nil)
	assert.Equal(t, http.StatusConflict, code)

	code, env = s.do(t, http.MethodPost, entryPath+"/start", doctor, nil)
	require.Equal(t, http.StatusOK, code, env.Message)

	code, env = s.do(t, http.MethodPost, entryPath+"/start", doctor, nil)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "invalid_transition", env.Code)

	code, env = s.do(t, http.MethodPost, entryPath+"/complete", doctor, nil)
	require.Equal(t, http.StatusOK, code, env.Message)
	var entry model.QueueEntry
	require.NoError(t, json.Unmarshal(env.Data, &entry))
	assert.Equal(t, model.QueueStatusCompleted, entry.Status)
	require.NotNil(t, entry.ActualWaitTime)

	code, _ = s.do(t, http.MethodGet, "/api/queue/not-a-uuid", staff, nil)
	assert.Equal(t, http.StatusNotFound, code)
}
