package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.Header.Get("X-API-Key") != "ck_test" {
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{"status": "error", "message": "invalid API key"})
			return
		}
		switch r.URL.Path {
		case "/api/queue":
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"status": "success",
				"data": []map[string]interface{}{{
					"id":         "6f1c3d52-4d0a-4a53-9a3c-0d8f1e2b7a10",
					"patient_id": "0b9f8a8e-2f55-4d1e-8b8e-1f0a3c2d4e5f",
					"status":     "waiting",
					"priority":   5,
					"entered_at": "2026-10-18T09:00:00Z",
				}},
			})
		default:
			w.WriteHeader(http.StatusNotFound)
			_ = json.NewEncoder(w).Encode(map[string]string{"status": "error", "message": "route not found"})
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestQueueList_Table(t *testing.T) {
	srv := fakeServer(t)
	t.Setenv("CLINICCTL_URL", srv.URL)
	t.Setenv("CLINICCTL_API_KEY", "ck_test")

	out, err := run(t, "queue", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "STATUS")
	assert.Contains(t, out, "waiting")
	assert.Contains(t, out, "6f1c3d52-4d0a-4a53-9a3c-0d8f1e2b7a10")
}

func TestQueueList_JSON(t *testing.T) {
	srv := fakeServer(t)
	t.Setenv("CLINICCTL_URL", srv.URL)
	t.Setenv("CLINICCTL_API_KEY", "ck_test")

	out, err := run(t, "queue", "list", "-o", "json")
	require.NoError(t, err)

	var entries []map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "waiting", entries[0]["status"])
}

func TestSession_RejectedKey(t *testing.T) {
	srv := fakeServer(t)
	t.Setenv("CLINICCTL_URL", srv.URL)
	t.Setenv("CLINICCTL_API_KEY", "ck_revoked")

	_, err := run(t, "session")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "credentials rejected")
}
