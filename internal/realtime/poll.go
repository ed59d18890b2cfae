package realtime

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mkravets/roomcast-server/internal/store"
)

// pollPageSize caps the message increment returned by one poll.
const pollPageSize = 50

// PollStore is the slice of persistence the polling gateway needs.
type PollStore interface {
	GetMessage(ctx context.Context, id string) (*store.Message, error)
	MessagesSince(ctx context.Context, after time.Time, limit int) ([]*store.Message, error)
	ListRooms(ctx context.Context) ([]*store.Room, error)
	ListOnlineUsers(ctx context.Context) ([]*store.User, error)
	ListBlockedIDs(ctx context.Context, userID string) ([]string, error)
	ListRelationships(ctx context.Context, userID string) ([]*store.Relationship, error)
}

// PollResult is the response of one poll call. Timestamp becomes the client's
// next cursor.
type PollResult struct {
	Events    []Event `json:"events"`
	Timestamp string  `json:"timestamp"`
}

// Poller approximates push delivery over plain request/response. It keeps no
// state between calls: the client supplies its cursor (last seen message ID,
// last snapshot timestamp) and receives the increment it has not seen.
//
// Room and user snapshots are only included while lastTimestamp is absent;
// subsequent polls carry incremental messages only. That parity gap with push
// delivery is inherited behavior clients already compensate for.
type Poller struct {
	store PollStore
}

// NewPoller creates a polling gateway over the given persistence slice.
func NewPoller(st PollStore) *Poller {
	return &Poller{store: st}
}

// Poll computes the events the client has not seen yet.
//
// Messages: only returned when lastMessageID is given: everything with a
// timestamp strictly after that message, ascending, capped at the page size.
// A first call returns no messages; history backfill uses the messages API.
//
// Snapshots: the full room list and online-user list are returned only when
// lastTimestamp is absent (one-time bootstrap).
//
// Messages and users from identities the caller has blocked are excluded.
func (p *Poller) Poll(ctx context.Context, userID, lastMessageID, lastTimestamp string) (*PollResult, error) {
	blockedIDs, err := p.store.ListBlockedIDs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list blocked ids: %w", err)
	}
	blocked := make(map[string]struct{}, len(blockedIDs))
	for _, id := range blockedIDs {
		blocked[id] = struct{}{}
	}

	events := make([]Event, 0)

	if lastMessageID != "" {
		messages, err := p.messagesAfter(ctx, lastMessageID)
		if err != nil {
			return nil, err
		}
		for _, m := range messages {
			if _, isBlocked := blocked[m.SenderID]; isBlocked {
				continue
			}
			events = append(events, NewMessageEvent(m))
		}
	}

	if lastTimestamp == "" {
		bootstrap, err := p.bootstrapEvents(ctx, userID, blocked)
		if err != nil {
			return nil, err
		}
		events = append(events, bootstrap...)
	}

	return &PollResult{
		Events:    events,
		Timestamp: formatTimestamp(time.Now()),
	}, nil
}

func (p *Poller) messagesAfter(ctx context.Context, lastMessageID string) ([]*store.Message, error) {
	last, err := p.store.GetMessage(ctx, lastMessageID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Stale cursor; the client resyncs through the history API.
			return nil, nil
		}
		return nil, fmt.Errorf("resolve cursor message: %w", err)
	}
	messages, err := p.store.MessagesSince(ctx, last.Timestamp, pollPageSize)
	if err != nil {
		return nil, fmt.Errorf("messages since: %w", err)
	}
	return messages, nil
}

func (p *Poller) bootstrapEvents(ctx context.Context, userID string, blocked map[string]struct{}) ([]Event, error) {
	events := make([]Event, 0)

	rooms, err := p.store.ListRooms(ctx)
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	for _, room := range rooms {
		events = append(events, RoomCreatedEvent(room))
	}

	users, err := p.store.ListOnlineUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list online users: %w", err)
	}
	for _, u := range users {
		if u.ID == userID {
			continue
		}
		if _, isBlocked := blocked[u.ID]; isBlocked {
			continue
		}
		rels, err := p.store.ListRelationships(ctx, u.ID)
		if err != nil {
			return nil, fmt.Errorf("list relationships: %w", err)
		}
		favorites, blockedByUser := store.RelationshipSets(rels)
		events = append(events, UserUpdateEvent(u, favorites, blockedByUser))
	}

	return events, nil
}
