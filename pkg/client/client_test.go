package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-api/internal/model"
)

type fakeAPI struct {
	mu    sync.Mutex
	hits  map[string]int
	keys  []*model.APIKey
	valid string
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{hits: map[string]int{}, valid: "ck_good"}
}

func (f *fakeAPI) count(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits[path]
}

func writeJSON(w http.ResponseWriter, code int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hits[r.Method+" "+r.URL.Path]++

	if r.Header.Get(headerAPIKey) != f.valid {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"status": "error", "message": "invalid API key"})
		return
	}

	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/api/auth/me":
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status": "success",
			"data":   map[string]interface{}{"user": map[string]string{"email": "a@clinic.test", "role": "staff"}, "capabilities": []string{"auth.me"}},
		})
	case r.Method == http.MethodGet && r.URL.Path == "/api/api-keys":
		writeJSON(w, http.StatusOK, map[string]interface{}{"status": "success", "data": f.keys})
	case r.Method == http.MethodPost && r.URL.Path == "/api/api-keys":
		var req model.CreateAPIKeyRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		key := &model.APIKey{Name: req.Name}
		key.ID = uuid.New()
		f.keys = append(f.keys, key)
		writeJSON(w, http.StatusCreated, map[string]interface{}{
			"status": "success",
			"data":   model.CreatedAPIKey{APIKey: key, Key: "ck_new"},
		})
	case r.Method == http.MethodPost && r.URL.Path == "/api/queue/"+uuid.Nil.String()+"/start":
		writeJSON(w, http.StatusConflict, map[string]string{
			"status": "error", "code": "invalid_transition", "message": "invalid queue transition",
		})
	default:
		writeJSON(w, http.StatusNotFound, map[string]string{"status": "error", "message": "route not found"})
	}
}

func newTestClient(t *testing.T, api *fakeAPI, key string) *Client {
	t.Helper()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	c, err := New(Config{BaseURL: srv.URL, APIKey: key})
	require.NoError(t, err)
	return c
}

func TestNew_RequiresBaseURL(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}

func TestGet_IsCached(t *testing.T) {
	api := newFakeAPI()
	c := newTestClient(t, api, "ck_good")
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := c.ListAPIKeys(ctx)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, api.count("GET /api/api-keys"))
}

func TestMutation_InvalidatesDeclaredPrefixes(t *testing.T) {
	api := newFakeAPI()
	c := newTestClient(t, api, "ck_good")
	ctx := context.Background()

	keys, err := c.ListAPIKeys(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)

	created, err := c.CreateAPIKey(ctx, "kiosk")
	require.NoError(t, err)
	assert.Equal(t, "ck_new", created.Key)
	assert.Equal(t, "kiosk", created.Name)

	keys, err = c.ListAPIKeys(ctx)
	require.NoError(t, err)
	require.Len(t, keys, 1)
	assert.Equal(t, 2, api.count("GET /api/api-keys"))
}

func TestInvalidate_MatchesPrefixOnly(t *testing.T) {
	c, err := New(Config{BaseURL: "http://localhost"})
	require.NoError(t, err)

	c.cache.SetDefault("/api/queue?status=waiting", json.RawMessage(`[]`))
	c.cache.SetDefault("/api/patients", json.RawMessage(`[]`))

	c.Invalidate("/api/queue")

	_, ok := c.cache.Get("/api/queue?status=waiting")
	assert.False(t, ok)
	_, ok = c.cache.Get("/api/patients")
	assert.True(t, ok)
}

func TestCheckSession(t *testing.T) {
	ctx := context.Background()

	t.Run("valid credentials", func(t *testing.T) {
		c := newTestClient(t, newFakeAPI(), "ck_good")
		s, err := c.CheckSession(ctx)
		require.NoError(t, err)
		assert.Equal(t, model.RoleStaff, s.User.Role)
		assert.True(t, c.HasCredentials())
	})

	t.Run("rejected credentials are cleared", func(t *testing.T) {
		c := newTestClient(t, newFakeAPI(), "ck_revoked")
		_, err := c.CheckSession(ctx)
		require.ErrorIs(t, err, ErrUnauthenticated)

		var apiErr *APIError
		require.True(t, errors.As(err, &apiErr))
		assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
		assert.False(t, c.HasCredentials())
	})

	t.Run("network failure keeps credentials", func(t *testing.T) {
		srv := httptest.NewServer(newFakeAPI())
		url := srv.URL
		srv.Close()

		c, err := New(Config{BaseURL: url, APIKey: "ck_good"})
		require.NoError(t, err)

		_, err = c.CheckSession(ctx)
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrUnauthenticated)
		assert.True(t, c.HasCredentials())
	})

	t.Run("no credentials", func(t *testing.T) {
		c, err := New(Config{BaseURL: "http://localhost"})
		require.NoError(t, err)
		_, err = c.CheckSession(ctx)
		assert.ErrorIs(t, err, ErrUnauthenticated)
	})
}

func TestAPIError_CarriesCode(t *testing.T) {
	c := newTestClient(t, newFakeAPI(), "ck_good")

	_, err := c.StartQueueEntry(context.Background(), uuid.Nil, nil)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusConflict, apiErr.StatusCode)
	assert.Equal(t, "invalid_transition", apiErr.Code)
	assert.NotErrorIs(t, err, ErrUnauthenticated)
}
