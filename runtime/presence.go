package runtime

import (
	"context"
	"log/slog"
	"sort"

	"chat-relay/domain"
	"chat-relay/domain/event"
)

// deliverToMembers enqueues one event on every member's sink. It runs under
// the room lock, so sinks must refuse rather than block; a failed enqueue
// evicts that session only and never touches the other recipients.
func deliverToMembers(sessions *SessionManager, log *slog.Logger, evict func(sessionID string),
	members []string, evt event.DomainEvent) {
	for _, id := range members {
		sink, ok := sessions.Sink(id)
		if !ok {
			continue
		}
		if err := sink.Consume(context.Background(), evt); err != nil {
			log.Warn("Dropping recipient after failed delivery",
				"session_id", id, "room", evt.RoomID(), "error", err)
			if evict != nil {
				// Teardown takes room locks of its own, so it must not run inline.
				go evict(id)
			}
		}
	}
}

// PresenceTracker publishes the full online-member snapshot of a room to all
// of its current members after every membership change. Publish is invoked
// under the room lock, which keeps notifications in the same order as the
// changes that produced them.
type PresenceTracker struct {
	log      *slog.Logger
	sessions *SessionManager
	evict    func(sessionID string)
}

func NewPresenceTracker(log *slog.Logger, sessions *SessionManager) *PresenceTracker {
	return &PresenceTracker{log: log, sessions: sessions}
}

// OnEvict installs the teardown hook used when a member's sink refuses an
// event.
func (t *PresenceTracker) OnEvict(fn func(sessionID string)) {
	t.evict = fn
}

// Publish recomputes the display-name snapshot for the given membership and
// emits it to every member. Names are sorted so equal memberships always
// produce identical snapshots.
func (t *PresenceTracker) Publish(room domain.RoomID, members []string) {
	online := t.sessions.DisplayNames(members)
	sort.Strings(online)

	deliverToMembers(t.sessions, t.log, t.evict, members, event.PresenceUpdated{
		Room:   room,
		Online: online,
	})
}
