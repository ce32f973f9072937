package session

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/cory-johannsen/nightfall/internal/game/player"
)

// Session is one seat in a room. The token survives reconnects; the Entity
// is replaced every time a client attaches.
type Session struct {
	// Token is the secret a client presents to reclaim the seat.
	Token string
	// RoomID is the room the seat belongs to.
	RoomID string
	// Name is the display name chosen at join.
	Name string
	// Player is the seat's index in the game once it starts.
	Player player.Ref
	// Seated reports whether Player has been assigned.
	Seated bool
	// Entity is the currently attached connection, or nil while detached.
	Entity *Entity
}

// Manager tracks every session and room occupancy.
// All methods are safe for concurrent use.
type Manager struct {
	mu         sync.RWMutex
	bufferSize int
	sessions   map[string]*Session              // token → session
	roomSets   map[string]map[string]bool       // roomID → set of tokens
	seats      map[string]map[player.Ref]string // roomID → player → token
}

// NewManager creates an empty Manager whose entities buffer bufferSize
// packets.
func NewManager(bufferSize int) *Manager {
	return &Manager{
		bufferSize: bufferSize,
		sessions:   make(map[string]*Session),
		roomSets:   make(map[string]map[string]bool),
		seats:      make(map[string]map[player.Ref]string),
	}
}

// Join creates a session for name in roomID with a fresh token and an
// attached Entity.
//
// Precondition: roomID and name must be non-empty.
// Postcondition: Returns a copy of the new session and its Entity, or an
// error if name is already taken in the room.
func (m *Manager) Join(roomID, name string) (Session, *Entity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for tok := range m.roomSets[roomID] {
		if m.sessions[tok].Name == name {
			return Session{}, nil, fmt.Errorf("name %q already taken in room %s", name, roomID)
		}
	}

	token := uuid.NewString()
	sess := &Session{
		Token:  token,
		RoomID: roomID,
		Name:   name,
		Entity: NewEntity(token, m.bufferSize),
	}
	m.sessions[token] = sess
	if m.roomSets[roomID] == nil {
		m.roomSets[roomID] = make(map[string]bool)
	}
	m.roomSets[roomID][token] = true
	return *sess, sess.Entity, nil
}

// Seat assigns a game player index to the session.
//
// Postcondition: Returns an error if the token is unknown or p is taken.
func (m *Manager) Seat(token string, p player.Ref) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[token]
	if !ok {
		return fmt.Errorf("session %q not found", token)
	}
	seats := m.seats[sess.RoomID]
	if seats == nil {
		seats = make(map[player.Ref]string)
		m.seats[sess.RoomID] = seats
	}
	if other, taken := seats[p]; taken && other != token {
		return fmt.Errorf("player %s already seated in room %s", p, sess.RoomID)
	}
	sess.Player, sess.Seated = p, true
	seats[p] = token
	return nil
}

// Attach gives the session a new Entity for a reconnecting client and
// closes the previous one.
//
// Postcondition: Returns a copy of the session and its new Entity, or an
// error if the token is unknown.
func (m *Manager) Attach(token string) (Session, *Entity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[token]
	if !ok {
		return Session{}, nil, fmt.Errorf("session %q not found", token)
	}
	if sess.Entity != nil {
		_ = sess.Entity.Close()
	}
	sess.Entity = NewEntity(token, m.bufferSize)
	return *sess, sess.Entity, nil
}

// Detach closes the session's Entity if it is still e. A stale connection
// detaching after a reconnect leaves the new Entity alone.
//
// Postcondition: Reports whether the session is now detached.
func (m *Manager) Detach(token string, e *Entity) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[token]
	if !ok || sess.Entity != e {
		return false
	}
	_ = e.Close()
	sess.Entity = nil
	return true
}

// Remove drops the session and its room occupancy.
//
// Postcondition: Returns an error if the token is unknown.
func (m *Manager) Remove(token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[token]
	if !ok {
		return fmt.Errorf("session %q not found", token)
	}
	if rs, ok := m.roomSets[sess.RoomID]; ok {
		delete(rs, token)
		if len(rs) == 0 {
			delete(m.roomSets, sess.RoomID)
		}
	}
	if sess.Seated {
		delete(m.seats[sess.RoomID], sess.Player)
		if len(m.seats[sess.RoomID]) == 0 {
			delete(m.seats, sess.RoomID)
		}
	}
	if sess.Entity != nil {
		_ = sess.Entity.Close()
	}
	delete(m.sessions, token)
	return nil
}

// RemoveRoom drops every session in roomID.
func (m *Manager) RemoveRoom(roomID string) {
	for _, tok := range m.TokensInRoom(roomID) {
		_ = m.Remove(tok)
	}
}

// Get returns a copy of the session for token.
func (m *Manager) Get(token string) (Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, ok := m.sessions[token]
	if !ok {
		return Session{}, false
	}
	return *sess, true
}

// Push sends data to the entity attached to player p of roomID. A detached
// seat drops the packet; the client is resynced when it reattaches.
func (m *Manager) Push(roomID string, p player.Ref, data []byte) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	tok, ok := m.seats[roomID][p]
	if !ok {
		return fmt.Errorf("no session for player %s in room %s", p, roomID)
	}
	sess := m.sessions[tok]
	if sess.Entity == nil {
		return nil
	}
	return sess.Entity.Push(data)
}

// Send pushes data to the entity attached to token, whether or not the
// session is seated. A detached session drops the packet.
func (m *Manager) Send(token string, data []byte) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sess, ok := m.sessions[token]
	if !ok {
		return fmt.Errorf("session %q not found", token)
	}
	if sess.Entity == nil {
		return nil
	}
	return sess.Entity.Push(data)
}

// Attached returns how many sessions in roomID have a live connection.
func (m *Manager) Attached(roomID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := 0
	for tok := range m.roomSets[roomID] {
		if m.sessions[tok].Entity != nil {
			n++
		}
	}
	return n
}

// TokensInRoom returns the tokens of every session in roomID.
//
// Postcondition: Returns a slice of tokens (may be empty).
func (m *Manager) TokensInRoom(roomID string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	tokens := m.roomSets[roomID]
	out := make([]string, 0, len(tokens))
	for tok := range tokens {
		out = append(out, tok)
	}
	return out
}

// NamesInRoom returns the display names of every session in roomID.
func (m *Manager) NamesInRoom(roomID string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	tokens := m.roomSets[roomID]
	names := make([]string, 0, len(tokens))
	for tok := range tokens {
		names = append(names, m.sessions[tok].Name)
	}
	return names
}

// Count returns the total number of sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
