package realtime

import (
	"context"
	"sync"

	"github.com/mkravets/roomcast-server/internal/utils"
)

// Sink is the write side of one live transport channel. Implementations are
// expected to fail fast once the underlying channel is gone.
type Sink interface {
	Send(ctx context.Context, data []byte) error
}

// Conn is one live connection of a user. A user may hold several at once
// (multi-device); the id distinguishes instances so exactly one can be removed.
type Conn struct {
	id   string
	sink Sink

	// mu serializes writes so events leave in dispatch order.
	mu sync.Mutex
}

// NewConn wraps a transport sink as a registrable connection.
func NewConn(sink Sink) *Conn {
	return &Conn{id: utils.NewID(), sink: sink}
}

// ID returns the connection's instance identifier.
func (c *Conn) ID() string {
	return c.id
}

// Send writes one frame to the connection. Callers treat any error as the
// connection being dead.
func (c *Conn) Send(ctx context.Context, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sink.Send(ctx, data)
}
