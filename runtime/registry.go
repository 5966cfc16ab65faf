package runtime

import (
	"log/slog"
	"sync"
	"time"

	"chat-relay/domain"
	"chat-relay/errors"
)

// Directory answers whether a session id is still registered. It exists so
// the registry can re-validate members under the room lock without depending
// on the full SessionManager.
type Directory interface {
	Registered(sessionID string) bool
}

// roomState is the only long-lived shared mutable state of a room: its
// member set and its sequence counter. Everything that must be serialized
// per room — membership mutation, sequence allocation and delivery enqueue —
// happens under mu, so operations on different rooms never contend.
type roomState struct {
	mu        sync.Mutex
	members   map[string]struct{}
	seq       uint64
	createdAt time.Time
	// removed marks a reclaimed room; holders of a stale pointer retry.
	removed bool
}

func (rs *roomState) snapshot() []string {
	members := make([]string, 0, len(rs.members))
	for id := range rs.members {
		members = append(members, id)
	}
	return members
}

// Registry maps room ids to live rooms. Rooms are created lazily on first
// join and reclaimed as soon as their membership becomes empty: absence of
// an entry means "room does not exist".
//
// The callbacks passed to Join, Leave and Broadcast run while the room lock
// is held. That is what makes presence and message ordering per room a total
// order — and why callbacks must enqueue, never block.
type Registry struct {
	mu          sync.RWMutex
	rooms       map[domain.RoomID]*roomState
	dir         Directory
	maxRoomSize int
	log         *slog.Logger
}

func NewRegistry(log *slog.Logger, dir Directory, maxRoomSize int) *Registry {
	return &Registry{
		rooms:       make(map[domain.RoomID]*roomState),
		dir:         dir,
		maxRoomSize: maxRoomSize,
		log:         log,
	}
}

func (r *Registry) get(room domain.RoomID) (*roomState, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rs, ok := r.rooms[room]
	return rs, ok
}

func (r *Registry) getOrCreate(room domain.RoomID) *roomState {
	if rs, ok := r.get(room); ok {
		return rs
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if rs, ok := r.rooms[room]; ok {
		return rs
	}
	rs := &roomState{
		members:   make(map[string]struct{}),
		createdAt: time.Now().UTC(),
	}
	r.rooms[room] = rs
	r.log.Debug("Room created", "room", room)
	return rs
}

// reclaim deletes the room if it is still empty. Lock order is always
// registry then room, and the tombstone tells racing joiners to retry
// against a fresh entry.
func (r *Registry) reclaim(room domain.RoomID, rs *roomState) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.removed || len(rs.members) > 0 {
		return
	}
	rs.removed = true
	if r.rooms[room] == rs {
		delete(r.rooms, room)
	}
	r.log.Debug("Room reclaimed", "room", room)
}

// Join adds the session to the room, creating the room if absent. It is
// idempotent and a no-op for sessions that are not registered. onChange runs
// under the room lock with the post-change membership snapshot.
func (r *Registry) Join(sessionID string, room domain.RoomID, onChange func(members []string)) (bool, error) {
	for {
		rs := r.getOrCreate(room)

		rs.mu.Lock()
		if rs.removed {
			rs.mu.Unlock()
			continue
		}
		if _, member := rs.members[sessionID]; member {
			rs.mu.Unlock()
			return false, nil
		}
		if !r.dir.Registered(sessionID) {
			empty := len(rs.members) == 0
			rs.mu.Unlock()
			if empty {
				r.reclaim(room, rs)
			}
			return false, nil
		}
		if r.maxRoomSize > 0 && len(rs.members) >= r.maxRoomSize {
			rs.mu.Unlock()
			return false, errors.ErrRoomFull
		}

		rs.members[sessionID] = struct{}{}
		if onChange != nil {
			onChange(rs.snapshot())
		}
		rs.mu.Unlock()
		return true, nil
	}
}

// Leave removes the session from the room; a no-op when the session is not a
// member. The room is reclaimed once the last member leaves.
func (r *Registry) Leave(sessionID string, room domain.RoomID, onChange func(members []string)) bool {
	rs, ok := r.get(room)
	if !ok {
		return false
	}

	rs.mu.Lock()
	if rs.removed {
		rs.mu.Unlock()
		return false
	}
	if _, member := rs.members[sessionID]; !member {
		rs.mu.Unlock()
		return false
	}

	delete(rs.members, sessionID)
	if onChange != nil {
		onChange(rs.snapshot())
	}
	empty := len(rs.members) == 0
	rs.mu.Unlock()

	if empty {
		r.reclaim(room, rs)
	}
	return true
}

// Broadcast verifies the sender's membership, allocates the next sequence
// number and hands emit a fixed point-in-time membership snapshot, all under
// the room lock. A rejected send never consumes a sequence number.
func (r *Registry) Broadcast(senderID string, room domain.RoomID, emit func(seq uint64, members []string)) error {
	rs, ok := r.get(room)
	if !ok {
		return errors.ErrNotMember
	}

	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.removed {
		return errors.ErrNotMember
	}
	if _, member := rs.members[senderID]; !member {
		return errors.ErrNotMember
	}

	rs.seq++
	emit(rs.seq, rs.snapshot())
	return nil
}

// MembersOf returns a copy of the room's membership, never a live view.
func (r *Registry) MembersOf(room domain.RoomID) []string {
	rs, ok := r.get(room)
	if !ok {
		return nil
	}

	rs.mu.Lock()
	defer rs.mu.Unlock()
	if rs.removed || len(rs.members) == 0 {
		return nil
	}
	return rs.snapshot()
}

func (r *Registry) IsMember(sessionID string, room domain.RoomID) bool {
	rs, ok := r.get(room)
	if !ok {
		return false
	}

	rs.mu.Lock()
	defer rs.mu.Unlock()
	_, member := rs.members[sessionID]
	return member && !rs.removed
}

// Stats reports current gauge values for telemetry.
func (r *Registry) Stats() (rooms, members int) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rooms = len(r.rooms)
	for _, rs := range r.rooms {
		rs.mu.Lock()
		members += len(rs.members)
		rs.mu.Unlock()
	}
	return rooms, members
}
