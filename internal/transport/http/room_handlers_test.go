package http

import (
	"encoding/json"
	"net/http"
	"testing"
)

func TestHealthEndpoint(t *testing.T) {
	env := startTestEnv(t)

	resp, err := env.server.Client().Get(env.server.URL + "/health")
	if err != nil {
		t.Fatalf("health request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}
}

func TestCreateRoomRequiresAuth(t *testing.T) {
	env := startTestEnv(t)

	status, _ := env.request(t, http.MethodPost, "/api/rooms", "", map[string]any{"name": "general"})
	if status != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", status)
	}
}

func TestCreateAndListRooms(t *testing.T) {
	env := startTestEnv(t)
	_, token := env.registerUser(t, "alice", "alice@example.com")

	status, resp := env.request(t, http.MethodPost, "/api/rooms", token, map[string]any{
		"name":        "general",
		"description": "the main room",
	})
	if status != http.StatusCreated {
		t.Fatalf("create room failed with status %d: %s", status, resp)
	}
	var created RoomResponse
	if err := json.Unmarshal(resp, &created); err != nil {
		t.Fatalf("failed to decode room: %v", err)
	}
	if created.ID == "" || created.Name != "general" {
		t.Fatalf("unexpected room: %+v", created)
	}

	status, resp = env.request(t, http.MethodGet, "/api/rooms", token, nil)
	if status != http.StatusOK {
		t.Fatalf("list rooms failed with status %d", status)
	}
	var rooms []RoomResponse
	if err := json.Unmarshal(resp, &rooms); err != nil {
		t.Fatalf("failed to decode rooms: %v", err)
	}
	if len(rooms) != 1 || rooms[0].ID != created.ID {
		t.Fatalf("expected the created room, got %+v", rooms)
	}
}

func TestPrivateRoomRequiresPassword(t *testing.T) {
	env := startTestEnv(t)
	_, ownerToken := env.registerUser(t, "alice", "alice@example.com")
	_, guestToken := env.registerUser(t, "bob", "bob@example.com")

	// Private room without a password is rejected.
	status, _ := env.request(t, http.MethodPost, "/api/rooms", ownerToken, map[string]any{
		"name":       "secret",
		"is_private": true,
	})
	if status != http.StatusBadRequest {
		t.Fatalf("expected 400 for private room without password, got %d", status)
	}

	status, resp := env.request(t, http.MethodPost, "/api/rooms", ownerToken, map[string]any{
		"name":       "secret",
		"is_private": true,
		"password":   "hunter2",
	})
	if status != http.StatusCreated {
		t.Fatalf("create private room failed with status %d: %s", status, resp)
	}
	var room RoomResponse
	if err := json.Unmarshal(resp, &room); err != nil {
		t.Fatalf("failed to decode room: %v", err)
	}

	// A missing password and a wrong password fail differently.
	status, _ = env.request(t, http.MethodPost, "/api/rooms/"+room.ID+"/join", guestToken, nil)
	if status != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing password, got %d", status)
	}
	status, _ = env.request(t, http.MethodPost, "/api/rooms/"+room.ID+"/join", guestToken, map[string]any{"password": "wrong"})
	if status != http.StatusUnauthorized {
		t.Fatalf("expected 401 for wrong password, got %d", status)
	}
	status, _ = env.request(t, http.MethodPost, "/api/rooms/"+room.ID+"/join", guestToken, map[string]any{"password": "hunter2"})
	if status != http.StatusOK {
		t.Fatalf("expected 200 for correct password, got %d", status)
	}

	// The creator bypasses the password entirely.
	status, _ = env.request(t, http.MethodPost, "/api/rooms/"+room.ID+"/join", ownerToken, nil)
	if status != http.StatusOK {
		t.Fatalf("creator join failed with status %d", status)
	}
}

func TestUpdateRoomCreatorOnly(t *testing.T) {
	env := startTestEnv(t)
	_, ownerToken := env.registerUser(t, "alice", "alice@example.com")
	_, otherToken := env.registerUser(t, "bob", "bob@example.com")

	roomID := env.createRoom(t, ownerToken, "general")

	status, _ := env.request(t, http.MethodPut, "/api/rooms/"+roomID, otherToken, map[string]any{"name": "hijacked"})
	if status != http.StatusForbidden {
		t.Fatalf("non-creator update must be forbidden, got %d", status)
	}

	status, resp := env.request(t, http.MethodPut, "/api/rooms/"+roomID, ownerToken, map[string]any{"name": "renamed"})
	if status != http.StatusOK {
		t.Fatalf("creator update failed with status %d: %s", status, resp)
	}
	var room RoomResponse
	if err := json.Unmarshal(resp, &room); err != nil {
		t.Fatalf("failed to decode room: %v", err)
	}
	if room.Name != "renamed" {
		t.Fatalf("rename not applied: %+v", room)
	}
}

func TestDeleteRoom(t *testing.T) {
	env := startTestEnv(t)
	_, ownerToken := env.registerUser(t, "alice", "alice@example.com")
	_, otherToken := env.registerUser(t, "bob", "bob@example.com")

	roomID := env.createRoom(t, ownerToken, "doomed")

	status, _ := env.request(t, http.MethodDelete, "/api/rooms/"+roomID, otherToken, nil)
	if status != http.StatusForbidden {
		t.Fatalf("non-creator delete must be forbidden, got %d", status)
	}

	status, _ = env.request(t, http.MethodDelete, "/api/rooms/"+roomID, ownerToken, nil)
	if status != http.StatusOK {
		t.Fatalf("creator delete failed with status %d", status)
	}

	status, _ = env.request(t, http.MethodDelete, "/api/rooms/"+roomID, ownerToken, nil)
	if status != http.StatusNotFound {
		t.Fatalf("deleting a missing room must 404, got %d", status)
	}
}

func TestJoinMissingRoom(t *testing.T) {
	env := startTestEnv(t)
	_, token := env.registerUser(t, "alice", "alice@example.com")

	status, _ := env.request(t, http.MethodPost, "/api/rooms/missing/join", token, nil)
	if status != http.StatusNotFound {
		t.Fatalf("expected 404 for missing room, got %d", status)
	}
}
