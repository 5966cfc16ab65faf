// Package runtime owns the live coordination state of the chat core:
// sessions, rooms, presence and fan-out. It is created at server start,
// passed by handle to the transport, and torn down at shutdown — never
// ambient globals.
package runtime

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"chat-relay/contract"
	"chat-relay/domain"
)

type session struct {
	domain.Session
	sink  contract.EventSink
	rooms map[domain.RoomID]struct{}
}

// SessionManager owns every live session. A session exists between Register
// and Deregister; everything else in the core treats session ids it cannot
// resolve here as already disconnected.
type SessionManager struct {
	mu       sync.RWMutex
	sessions map[string]*session
}

func NewSessionManager() *SessionManager {
	return &SessionManager{sessions: make(map[string]*session)}
}

// Register assigns a process-unique id to a new connection. The display name
// may be empty at this point when identity is established at first join.
func (m *SessionManager) Register(displayName string, sink contract.EventSink) domain.Session {
	s := &session{
		Session: domain.Session{
			ID:          uuid.NewString(),
			DisplayName: displayName,
			ConnectedAt: time.Now().UTC(),
		},
		sink:  sink,
		rooms: make(map[domain.RoomID]struct{}),
	}

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	return s.Session
}

// Deregister removes the session and reports the rooms it belonged to so the
// caller can cascade the removal. Idempotent: a second call reports nothing.
func (m *SessionManager) Deregister(sessionID string) ([]domain.RoomID, contract.EventSink, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, nil, false
	}
	delete(m.sessions, sessionID)

	rooms := make([]domain.RoomID, 0, len(s.rooms))
	for room := range s.rooms {
		rooms = append(rooms, room)
	}
	return rooms, s.sink, true
}

func (m *SessionManager) Lookup(sessionID string) (domain.Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[sessionID]
	if !ok {
		return domain.Session{}, false
	}
	return s.Session, true
}

// Registered reports whether the session is still alive. The registry
// re-checks this under the room lock so a join racing a disconnect can never
// leave an orphan member behind.
func (m *SessionManager) Registered(sessionID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.sessions[sessionID]
	return ok
}

func (m *SessionManager) Sink(sessionID string) (contract.EventSink, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, false
	}
	return s.sink, true
}

// SetName stores the display name supplied at join. The first non-empty name
// wins: an identity-verified name set at registration is never overwritten,
// and later joins of the same session keep the original name.
func (m *SessionManager) SetName(sessionID, displayName string) {
	if displayName == "" {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[sessionID]
	if ok && s.DisplayName == "" {
		s.DisplayName = displayName
	}
}

// Track notes that the session belongs to a room, so a disconnect knows what
// to cascade through. Returns false when the session is already gone.
func (m *SessionManager) Track(sessionID string, room domain.RoomID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[sessionID]
	if !ok {
		return false
	}
	s.rooms[room] = struct{}{}
	return true
}

func (m *SessionManager) Untrack(sessionID string, room domain.RoomID) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[sessionID]; ok {
		delete(s.rooms, room)
	}
}

// DisplayNames resolves session ids to display names, dropping sessions that
// disconnected in between.
func (m *SessionManager) DisplayNames(sessionIDs []string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(sessionIDs))
	for _, id := range sessionIDs {
		if s, ok := m.sessions[id]; ok {
			names = append(names, s.DisplayName)
		}
	}
	return names
}

func (m *SessionManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
