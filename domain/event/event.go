package event

import (
	"chat-relay/domain"
)

// DomainEvent is anything the core pushes to connected clients or to the
// archive pipeline. Events are scoped to a single room.
type DomainEvent interface {
	RoomID() domain.RoomID
}

// MessageBroadcast carries one stamped message to every member of a room.
type MessageBroadcast struct {
	Message domain.Message
}

func (e MessageBroadcast) RoomID() domain.RoomID {
	return e.Message.Room
}

// PresenceUpdated is a full snapshot of the online display names of a room,
// emitted after every membership change. Full snapshots rather than diffs:
// a missed event cannot cause drift.
type PresenceUpdated struct {
	Room   domain.RoomID
	Online []string // sorted
}

func (e PresenceUpdated) RoomID() domain.RoomID {
	return e.Room
}

// HistoryReplay seeds a newly joined session with the most recent messages
// of the room. It is delivered to that session only.
type HistoryReplay struct {
	Room     domain.RoomID
	Messages []domain.Message
}

func (e HistoryReplay) RoomID() domain.RoomID {
	return e.Room
}
