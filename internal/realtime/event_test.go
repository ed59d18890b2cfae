package realtime

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/mkravets/roomcast-server/internal/store"
)

func TestNewMessageEventWireShape(t *testing.T) {
	m := &store.Message{
		ID:           "m1",
		RoomID:       "r1",
		SenderID:     "u1",
		SenderName:   "Alice",
		SenderAvatar: "/api/uploads/avatars/a.png",
		Content:      "hello",
		Type:         store.MessageTypeText,
		Timestamp:    time.Date(2025, 6, 1, 12, 30, 45, 123000000, time.UTC),
	}

	data, err := json.Marshal(NewMessageEvent(m))
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var decoded struct {
		Type    string         `json:"type"`
		Payload map[string]any `json:"payload"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	if decoded.Type != "NEW_MESSAGE" {
		t.Fatalf("expected type NEW_MESSAGE, got %q", decoded.Type)
	}

	// Payload keys are lowerCamelCase; clients depend on the exact names.
	for _, key := range []string{"id", "roomId", "senderId", "senderName", "senderAvatar", "content", "type", "timestamp"} {
		if _, ok := decoded.Payload[key]; !ok {
			t.Fatalf("payload missing key %q: %v", key, decoded.Payload)
		}
	}
	if decoded.Payload["timestamp"] != "2025-06-01T12:30:45.123Z" {
		t.Fatalf("unexpected timestamp encoding: %v", decoded.Payload["timestamp"])
	}
}

func TestUserEventsWireShape(t *testing.T) {
	u := &store.User{ID: "u1", Name: "Alice", Email: "a@example.com", IsOnline: true}

	data, err := json.Marshal(UserUpdateEvent(u, nil, nil))
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	payload := decoded["payload"].(map[string]any)

	if payload["isOnline"] != true {
		t.Fatalf("expected isOnline true, got %v", payload["isOnline"])
	}
	// Relationship sets serialize as empty arrays, never null.
	if favs, ok := payload["favorites"].([]any); !ok || favs == nil {
		t.Fatalf("favorites must be [], got %v", payload["favorites"])
	}
	if blocked, ok := payload["blocked"].([]any); !ok || blocked == nil {
		t.Fatalf("blocked must be [], got %v", payload["blocked"])
	}
}

func TestRoomDeletedEventWireShape(t *testing.T) {
	data, err := json.Marshal(RoomDeletedEvent("r1"))
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if string(data) != `{"type":"ROOM_DELETED","payload":{"roomId":"r1"}}` {
		t.Fatalf("unexpected encoding: %s", data)
	}
}

func TestUserLeftEventWireShape(t *testing.T) {
	data, err := json.Marshal(UserLeftEvent("u1"))
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if string(data) != `{"type":"USER_LEFT","payload":{"userId":"u1"}}` {
		t.Fatalf("unexpected encoding: %s", data)
	}
}
