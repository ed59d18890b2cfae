package realtime

import (
	"context"
	"testing"
	"time"

	"github.com/mkravets/roomcast-server/internal/store"
)

// fakePollStore serves canned data for poller tests.
type fakePollStore struct {
	messages      map[string]*store.Message
	since         []*store.Message
	sinceAfter    time.Time
	sinceLimit    int
	rooms         []*store.Room
	onlineUsers   []*store.User
	blockedIDs    map[string][]string
	relationships map[string][]*store.Relationship
}

func (f *fakePollStore) GetMessage(_ context.Context, id string) (*store.Message, error) {
	m, ok := f.messages[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return m, nil
}

func (f *fakePollStore) MessagesSince(_ context.Context, after time.Time, limit int) ([]*store.Message, error) {
	f.sinceAfter = after
	f.sinceLimit = limit
	return f.since, nil
}

func (f *fakePollStore) ListRooms(_ context.Context) ([]*store.Room, error) {
	return f.rooms, nil
}

func (f *fakePollStore) ListOnlineUsers(_ context.Context) ([]*store.User, error) {
	return f.onlineUsers, nil
}

func (f *fakePollStore) ListBlockedIDs(_ context.Context, userID string) ([]string, error) {
	return f.blockedIDs[userID], nil
}

func (f *fakePollStore) ListRelationships(_ context.Context, userID string) ([]*store.Relationship, error) {
	return f.relationships[userID], nil
}

func pollMessage(id, senderID string, ts time.Time) *store.Message {
	return &store.Message{
		ID:        id,
		RoomID:    "general",
		SenderID:  senderID,
		Content:   "content of " + id,
		Type:      store.MessageTypeText,
		Timestamp: ts,
	}
}

func TestPollBootstrapSnapshot(t *testing.T) {
	bio := "hi"
	fs := &fakePollStore{
		rooms: []*store.Room{
			{ID: "r1", Name: "general", CreatedBy: "alice"},
			{ID: "r2", Name: "random", CreatedBy: "bob"},
		},
		onlineUsers: []*store.User{
			{ID: "me", Name: "Me"},
			{ID: "bob", Name: "Bob", Bio: &bio, IsOnline: true},
			{ID: "enemy", Name: "Enemy", IsOnline: true},
		},
		blockedIDs: map[string][]string{"me": {"enemy"}},
		relationships: map[string][]*store.Relationship{
			"bob": {
				{UserID: "bob", TargetID: "carol", Type: store.RelationshipFavorite},
			},
		},
	}

	result, err := NewPoller(fs).Poll(context.Background(), "me", "", "")
	if err != nil {
		t.Fatalf("poll failed: %v", err)
	}

	// Two rooms plus one visible online user: the caller themselves and the
	// blocked user are excluded.
	if len(result.Events) != 3 {
		t.Fatalf("expected 3 events, got %d: %+v", len(result.Events), result.Events)
	}
	if result.Events[0].Type != KindRoomCreated || result.Events[1].Type != KindRoomCreated {
		t.Fatalf("expected room snapshot first, got %+v", result.Events)
	}

	userEv := result.Events[2]
	if userEv.Type != KindUserUpdate {
		t.Fatalf("expected USER_UPDATE, got %s", userEv.Type)
	}
	payload, ok := userEv.Payload.(UserPayload)
	if !ok {
		t.Fatalf("unexpected payload type %T", userEv.Payload)
	}
	if payload.ID != "bob" {
		t.Fatalf("expected bob, got %s", payload.ID)
	}
	if len(payload.Favorites) != 1 || payload.Favorites[0] != "carol" {
		t.Fatalf("expected bob's favorites, got %v", payload.Favorites)
	}

	if result.Timestamp == "" {
		t.Fatal("poll must return a cursor timestamp")
	}
	if _, err := time.Parse(time.RFC3339Nano, result.Timestamp); err != nil {
		t.Fatalf("timestamp not RFC3339Nano: %v", err)
	}
}

func TestPollNoSnapshotAfterBootstrap(t *testing.T) {
	fs := &fakePollStore{
		rooms:       []*store.Room{{ID: "r1", Name: "general"}},
		onlineUsers: []*store.User{{ID: "bob", IsOnline: true}},
	}

	result, err := NewPoller(fs).Poll(context.Background(), "me", "", "2025-06-01T12:00:00Z")
	if err != nil {
		t.Fatalf("poll failed: %v", err)
	}
	if len(result.Events) != 0 {
		t.Fatalf("snapshots only belong to the first poll, got %+v", result.Events)
	}
}

func TestPollMessageIncrement(t *testing.T) {
	cursorTime := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	fs := &fakePollStore{
		messages: map[string]*store.Message{
			"m1": pollMessage("m1", "bob", cursorTime),
		},
		since: []*store.Message{
			pollMessage("m2", "bob", cursorTime.Add(time.Second)),
			pollMessage("m3", "enemy", cursorTime.Add(2*time.Second)),
			pollMessage("m4", "carol", cursorTime.Add(3*time.Second)),
		},
		blockedIDs: map[string][]string{"me": {"enemy"}},
	}

	result, err := NewPoller(fs).Poll(context.Background(), "me", "m1", "2025-06-01T12:00:00Z")
	if err != nil {
		t.Fatalf("poll failed: %v", err)
	}

	if !fs.sinceAfter.Equal(cursorTime) {
		t.Fatalf("increment must start at the cursor message's timestamp, got %v", fs.sinceAfter)
	}
	if fs.sinceLimit != pollPageSize {
		t.Fatalf("expected page size %d, got %d", pollPageSize, fs.sinceLimit)
	}

	// The blocked sender's message is dropped after the query.
	if len(result.Events) != 2 {
		t.Fatalf("expected 2 events, got %d: %+v", len(result.Events), result.Events)
	}
	for _, ev := range result.Events {
		if ev.Type != KindNewMessage {
			t.Fatalf("expected NEW_MESSAGE, got %s", ev.Type)
		}
		payload := ev.Payload.(MessagePayload)
		if payload.SenderID == "enemy" {
			t.Fatal("blocked sender's message leaked through the poll")
		}
	}
}

func TestPollWithoutCursorReturnsNoMessages(t *testing.T) {
	fs := &fakePollStore{
		since: []*store.Message{
			pollMessage("m2", "bob", time.Now()),
		},
	}

	result, err := NewPoller(fs).Poll(context.Background(), "me", "", "2025-06-01T12:00:00Z")
	if err != nil {
		t.Fatalf("poll failed: %v", err)
	}
	if len(result.Events) != 0 {
		t.Fatalf("no cursor means no messages, got %+v", result.Events)
	}
}

func TestPollStaleCursorReturnsNoMessages(t *testing.T) {
	fs := &fakePollStore{messages: map[string]*store.Message{}}

	result, err := NewPoller(fs).Poll(context.Background(), "me", "deleted-id", "2025-06-01T12:00:00Z")
	if err != nil {
		t.Fatalf("stale cursor must not be an error: %v", err)
	}
	if len(result.Events) != 0 {
		t.Fatalf("stale cursor yields no messages, got %+v", result.Events)
	}
}

func TestPollEventsNeverNull(t *testing.T) {
	fs := &fakePollStore{}

	result, err := NewPoller(fs).Poll(context.Background(), "me", "", "2025-06-01T12:00:00Z")
	if err != nil {
		t.Fatalf("poll failed: %v", err)
	}
	if result.Events == nil {
		t.Fatal("events must serialize as [], not null")
	}
}
