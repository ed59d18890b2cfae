package http

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mkravets/roomcast-server/internal/auth"
	"github.com/mkravets/roomcast-server/internal/config"
	"github.com/mkravets/roomcast-server/internal/log"
	"github.com/mkravets/roomcast-server/internal/realtime"
	"github.com/mkravets/roomcast-server/internal/service/relationships"
	"github.com/mkravets/roomcast-server/internal/store"
	"github.com/mkravets/roomcast-server/internal/store/sqlite"
)

// testEnv bundles everything a handler test needs.
type testEnv struct {
	store  store.Store
	auth   *auth.Service
	hub    *realtime.Hub
	server *httptest.Server
}

// startTestEnv builds a full stack over an in-memory database.
func startTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	jwtConfig := &auth.JWTConfig{
		Secret:   []byte("test-secret"),
		Issuer:   "test",
		Audience: "test",
		TTL:      time.Hour,
	}
	authService := auth.NewService(st, jwtConfig)
	rels := relationships.New(st)
	hub := realtime.NewHub(time.Second, log.Nop())
	poller := realtime.NewPoller(st)

	cfg := config.Default()
	cfg.UploadDir = t.TempDir()
	cfg.JWTSecret = "test-secret"

	router := NewRouter(hub, poller, authService, rels, st, &cfg, log.Nop())

	ts := httptest.NewServer(router)
	t.Cleanup(ts.Close)

	return &testEnv{store: st, auth: authService, hub: hub, server: ts}
}

// registerUser registers a user through the API and returns their ID and token.
func (e *testEnv) registerUser(t *testing.T, name, email string) (string, string) {
	t.Helper()

	body := map[string]string{"name": name, "email": email, "password": "password123"}
	status, resp := e.request(t, http.MethodPost, "/api/auth/register", "", body)
	if status != http.StatusOK {
		t.Fatalf("register %s failed with status %d: %s", name, status, resp)
	}

	var decoded struct {
		AccessToken string `json:"access_token"`
		User        struct {
			ID string `json:"id"`
		} `json:"user"`
	}
	if err := json.Unmarshal(resp, &decoded); err != nil {
		t.Fatalf("failed to decode register response: %v", err)
	}
	return decoded.User.ID, decoded.AccessToken
}

// request performs an API call and returns the status code and body.
func (e *testEnv) request(t *testing.T, method, path, token string, body any) (int, []byte) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequest(method, e.server.URL+path, reader)
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := e.server.Client().Do(req)
	if err != nil {
		t.Fatalf("request %s %s failed: %v", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}
	return resp.StatusCode, data
}

// createRoom creates a room through the API and returns its ID.
func (e *testEnv) createRoom(t *testing.T, token, name string) string {
	t.Helper()

	status, resp := e.request(t, http.MethodPost, "/api/rooms", token, map[string]any{"name": name})
	if status != http.StatusCreated {
		t.Fatalf("create room failed with status %d: %s", status, resp)
	}
	var room RoomResponse
	if err := json.Unmarshal(resp, &room); err != nil {
		t.Fatalf("failed to decode room response: %v", err)
	}
	return room.ID
}
