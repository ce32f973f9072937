// Package session tracks the client connections seated in each game room and
// buffers the packets pushed to them.
package session

import (
	"fmt"
	"sync"
)

// Entity is one client connection's outbound queue. The room goroutine
// pushes encoded packets; the connection's writer goroutine drains Events.
type Entity struct {
	token  string
	events chan []byte
	mu     sync.Mutex
	closed bool
}

// NewEntity creates an Entity for the session identified by token.
//
// Precondition: token must be non-empty.
// Postcondition: Returns an Entity with an open events channel.
func NewEntity(token string, bufferSize int) *Entity {
	if bufferSize <= 0 {
		bufferSize = 64
	}
	return &Entity{
		token:  token,
		events: make(chan []byte, bufferSize),
	}
}

// Token returns the owning session's token.
func (e *Entity) Token() string {
	return e.token
}

// Push enqueues data without blocking.
//
// Precondition: data must be a non-nil byte slice.
// Postcondition: data is enqueued, or an error is returned if the entity is
// closed or its buffer is full.
func (e *Entity) Push(data []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return fmt.Errorf("entity %s is closed", e.token)
	}
	select {
	case e.events <- data:
		return nil
	default:
		return fmt.Errorf("entity %s event buffer full", e.token)
	}
}

// Events returns the read-only events channel. It is closed by Close.
func (e *Entity) Events() <-chan []byte {
	return e.events
}

// Close marks the entity as closed and closes the events channel.
//
// Postcondition: The events channel is closed. Further Push calls return an error.
func (e *Entity) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.closed {
		e.closed = true
		close(e.events)
	}
	return nil
}

// IsClosed reports whether the entity has been closed.
func (e *Entity) IsClosed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}
