package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mkravets/roomcast-server/internal/store"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func seedUser(t *testing.T, s *SQLiteStore, name, email string) *store.User {
	t.Helper()
	u, err := s.CreateUser(context.Background(), name, email, "hash", "avatar.png")
	if err != nil {
		t.Fatalf("failed to create user %s: %v", name, err)
	}
	return u
}

func seedRoom(t *testing.T, s *SQLiteStore, name, createdBy string) *store.Room {
	t.Helper()
	r, err := s.CreateRoom(context.Background(), name, false, nil, createdBy, nil)
	if err != nil {
		t.Fatalf("failed to create room %s: %v", name, err)
	}
	return r
}

func seedMessage(t *testing.T, s *SQLiteStore, roomID, senderID, content string, ts time.Time) *store.Message {
	t.Helper()
	m := &store.Message{
		RoomID:       roomID,
		SenderID:     senderID,
		SenderName:   "name",
		SenderAvatar: "avatar.png",
		Content:      content,
		Timestamp:    ts,
	}
	if err := s.SaveMessage(context.Background(), m); err != nil {
		t.Fatalf("failed to save message: %v", err)
	}
	return m
}

func TestUserLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	u := seedUser(t, s, "alice", "alice@example.com")
	if u.ID == "" {
		t.Fatal("user ID must be assigned")
	}
	if !u.IsOnline {
		t.Fatal("new users start online")
	}

	byEmail, err := s.GetUserByEmail(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("get by email failed: %v", err)
	}
	if byEmail.ID != u.ID {
		t.Fatalf("expected user %s, got %s", u.ID, byEmail.ID)
	}

	bio := "hello"
	u.Name = "alice2"
	u.Bio = &bio
	if err := s.UpdateUser(ctx, u); err != nil {
		t.Fatalf("update failed: %v", err)
	}
	updated, err := s.GetUserByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("get by id failed: %v", err)
	}
	if updated.Name != "alice2" || updated.Bio == nil || *updated.Bio != "hello" {
		t.Fatalf("update not persisted: %+v", updated)
	}
	if updated.UpdatedAt == nil {
		t.Fatal("updated_at must be set after update")
	}

	if err := s.SetOnline(ctx, u.ID, false); err != nil {
		t.Fatalf("set online failed: %v", err)
	}
	online, err := s.ListOnlineUsers(ctx)
	if err != nil {
		t.Fatalf("list online failed: %v", err)
	}
	if len(online) != 0 {
		t.Fatalf("expected no online users, got %d", len(online))
	}

	if _, err := s.GetUserByID(ctx, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := s.SetOnline(ctx, "missing", true); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDuplicateEmailRejected(t *testing.T) {
	s := newTestStore(t)

	seedUser(t, s, "alice", "same@example.com")
	if _, err := s.CreateUser(context.Background(), "bob", "same@example.com", "hash", "a.png"); err == nil {
		t.Fatal("expected unique constraint violation")
	}
}

func TestRoomLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	alice := seedUser(t, s, "alice", "alice@example.com")

	hash := "room-hash"
	desc := "private place"
	r, err := s.CreateRoom(ctx, "secret", true, &hash, alice.ID, &desc)
	if err != nil {
		t.Fatalf("create room failed: %v", err)
	}
	if !r.IsPrivate || r.PasswordHash == nil || *r.PasswordHash != hash {
		t.Fatalf("private room fields not persisted: %+v", r)
	}

	exists, err := s.RoomExists(ctx, r.ID)
	if err != nil || !exists {
		t.Fatalf("room should exist, got %v %v", exists, err)
	}
	exists, err = s.RoomExists(ctx, "missing")
	if err != nil || exists {
		t.Fatalf("missing room should not exist, got %v %v", exists, err)
	}

	r.Name = "renamed"
	if err := s.UpdateRoom(ctx, r); err != nil {
		t.Fatalf("update room failed: %v", err)
	}
	got, err := s.GetRoom(ctx, r.ID)
	if err != nil || got.Name != "renamed" {
		t.Fatalf("rename not persisted: %+v %v", got, err)
	}

	seedMessage(t, s, r.ID, alice.ID, "hi", time.Now().UTC())
	if err := s.DeleteRoom(ctx, r.ID); err != nil {
		t.Fatalf("delete room failed: %v", err)
	}
	if _, err := s.GetRoom(ctx, r.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("room should be gone, got %v", err)
	}
	msgs, err := s.ListRoomMessages(ctx, r.ID, nil)
	if err != nil {
		t.Fatalf("list messages failed: %v", err)
	}
	if len(msgs) != 0 {
		t.Fatalf("room messages must be deleted with the room, got %d", len(msgs))
	}

	if err := s.DeleteRoom(ctx, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMessagesSinceOrderingAndLimit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	alice := seedUser(t, s, "alice", "alice@example.com")
	room := seedRoom(t, s, "general", alice.ID)

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		seedMessage(t, s, room.ID, alice.ID, "msg", base.Add(time.Duration(i)*time.Second))
	}

	// Strictly-after semantics: the cursor's own message is excluded.
	msgs, err := s.MessagesSince(ctx, base.Add(time.Second), 10)
	if err != nil {
		t.Fatalf("messages since failed: %v", err)
	}
	if len(msgs) != 3 {
		t.Fatalf("expected 3 messages after cursor, got %d", len(msgs))
	}
	for i := 1; i < len(msgs); i++ {
		if msgs[i].Timestamp.Before(msgs[i-1].Timestamp) {
			t.Fatal("messages must come back in ascending timestamp order")
		}
	}

	limited, err := s.MessagesSince(ctx, base.Add(-time.Second), 2)
	if err != nil {
		t.Fatalf("messages since failed: %v", err)
	}
	if len(limited) != 2 {
		t.Fatalf("limit not applied, got %d", len(limited))
	}
	if !limited[0].Timestamp.Equal(base) {
		t.Fatalf("limit must keep the oldest unseen messages, got %v", limited[0].Timestamp)
	}
}

func TestRoomMessagesExcludeSenders(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	alice := seedUser(t, s, "alice", "alice@example.com")
	enemy := seedUser(t, s, "enemy", "enemy@example.com")
	room := seedRoom(t, s, "general", alice.ID)

	now := time.Now().UTC()
	seedMessage(t, s, room.ID, alice.ID, "mine", now)
	seedMessage(t, s, room.ID, enemy.ID, "theirs", now.Add(time.Second))

	msgs, err := s.ListRoomMessages(ctx, room.ID, []string{enemy.ID})
	if err != nil {
		t.Fatalf("list messages failed: %v", err)
	}
	if len(msgs) != 1 || msgs[0].SenderID != alice.ID {
		t.Fatalf("excluded sender leaked: %+v", msgs)
	}
}

func TestSearchMessages(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	alice := seedUser(t, s, "alice", "alice@example.com")
	room := seedRoom(t, s, "general", alice.ID)

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	seedMessage(t, s, room.ID, alice.ID, "Hello World", base)
	seedMessage(t, s, room.ID, alice.ID, "hello again", base.Add(time.Second))
	seedMessage(t, s, room.ID, alice.ID, "unrelated", base.Add(2*time.Second))

	img := &store.Message{
		RoomID: room.ID, SenderID: alice.ID, SenderName: "alice", SenderAvatar: "a.png",
		Content: "hello.png", Type: store.MessageTypeImage, Timestamp: base.Add(3 * time.Second),
	}
	if err := s.SaveMessage(ctx, img); err != nil {
		t.Fatalf("save image message failed: %v", err)
	}

	hits, err := s.SearchMessages(ctx, "HELLO", nil, 10)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	// Case-insensitive, text-only, newest first.
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %d: %+v", len(hits), hits)
	}
	if hits[0].Content != "hello again" {
		t.Fatalf("expected newest hit first, got %q", hits[0].Content)
	}
}

func TestRelationships(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	alice := seedUser(t, s, "alice", "alice@example.com")
	bob := seedUser(t, s, "bob", "bob@example.com")

	if err := s.SetRelationship(ctx, alice.ID, bob.ID, store.RelationshipFavorite); err != nil {
		t.Fatalf("set favorite failed: %v", err)
	}
	// Setting it twice must not error or duplicate.
	if err := s.SetRelationship(ctx, alice.ID, bob.ID, store.RelationshipFavorite); err != nil {
		t.Fatalf("set favorite twice failed: %v", err)
	}

	rels, err := s.ListRelationships(ctx, alice.ID)
	if err != nil {
		t.Fatalf("list relationships failed: %v", err)
	}
	if len(rels) != 1 || rels[0].Type != store.RelationshipFavorite {
		t.Fatalf("expected one favorite, got %+v", rels)
	}

	// Blocking replaces the favorite for the same pair.
	if err := s.SetRelationship(ctx, alice.ID, bob.ID, store.RelationshipBlocked); err != nil {
		t.Fatalf("set blocked failed: %v", err)
	}
	rels, err = s.ListRelationships(ctx, alice.ID)
	if err != nil {
		t.Fatalf("list relationships failed: %v", err)
	}
	if len(rels) != 1 || rels[0].Type != store.RelationshipBlocked {
		t.Fatalf("block must replace favorite, got %+v", rels)
	}

	blocked, err := s.ListBlockedIDs(ctx, alice.ID)
	if err != nil {
		t.Fatalf("list blocked failed: %v", err)
	}
	if len(blocked) != 1 || blocked[0] != bob.ID {
		t.Fatalf("expected bob blocked, got %v", blocked)
	}

	removed, err := s.DeleteRelationship(ctx, alice.ID, bob.ID, store.RelationshipBlocked)
	if err != nil || !removed {
		t.Fatalf("delete should report removal, got %v %v", removed, err)
	}
	removed, err = s.DeleteRelationship(ctx, alice.ID, bob.ID, store.RelationshipBlocked)
	if err != nil || removed {
		t.Fatalf("second delete should report nothing removed, got %v %v", removed, err)
	}
}
