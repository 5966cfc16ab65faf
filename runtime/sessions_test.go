package runtime

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"chat-relay/domain"
	"chat-relay/domain/event"
	"chat-relay/errors"
)

// recorderSink collects every consumed event for assertions.
type recorderSink struct {
	mu     sync.Mutex
	events []event.DomainEvent
	fail   bool
	closed bool
}

func (r *recorderSink) Consume(_ context.Context, e event.DomainEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return errors.ErrSlowConsumer
	}
	r.events = append(r.events, e)
	return nil
}

func (r *recorderSink) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func (r *recorderSink) all() []event.DomainEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]event.DomainEvent(nil), r.events...)
}

func (r *recorderSink) messages() []domain.Message {
	var out []domain.Message
	for _, e := range r.all() {
		if mb, ok := e.(event.MessageBroadcast); ok {
			out = append(out, mb.Message)
		}
	}
	return out
}

func (r *recorderSink) presences() []event.PresenceUpdated {
	var out []event.PresenceUpdated
	for _, e := range r.all() {
		if p, ok := e.(event.PresenceUpdated); ok {
			out = append(out, p)
		}
	}
	return out
}

func TestSessionManager_RegisterAndDeregister(t *testing.T) {
	req := require.New(t)
	manager := NewSessionManager()
	sink := &recorderSink{}

	// When two sessions register with the same display name
	first := manager.Register("alice", sink)
	second := manager.Register("alice", sink)

	// Then they are independent sessions with distinct ids
	req.NotEqual(first.ID, second.ID)
	req.Equal(2, manager.Count())

	// When the first deregisters
	rooms, gotSink, ok := manager.Deregister(first.ID)
	req.True(ok)
	req.Empty(rooms)
	req.Same(sink, gotSink.(*recorderSink))
	req.False(manager.Registered(first.ID))

	// Then a second deregister reports nothing
	_, _, ok = manager.Deregister(first.ID)
	req.False(ok)
	req.Equal(1, manager.Count())
}

func TestSessionManager_FirstNameWins(t *testing.T) {
	req := require.New(t)
	manager := NewSessionManager()

	// Given a session with no verified identity
	sess := manager.Register("", &recorderSink{})

	// When names arrive over successive joins
	manager.SetName(sess.ID, "")
	manager.SetName(sess.ID, "bob")
	manager.SetName(sess.ID, "mallory")

	got, ok := manager.Lookup(sess.ID)
	req.True(ok)
	req.Equal("bob", got.DisplayName)

	// Given a session with a verified name set at registration
	verified := manager.Register("carol", &recorderSink{})
	manager.SetName(verified.ID, "impostor")

	got, ok = manager.Lookup(verified.ID)
	req.True(ok)
	req.Equal("carol", got.DisplayName)
}

func TestSessionManager_TrackedRoomsReportedOnDeregister(t *testing.T) {
	req := require.New(t)
	manager := NewSessionManager()
	sess := manager.Register("alice", &recorderSink{})

	req.True(manager.Track(sess.ID, domain.RoomID("lobby")))
	req.True(manager.Track(sess.ID, domain.RoomID("dev")))
	manager.Untrack(sess.ID, domain.RoomID("dev"))

	rooms, _, ok := manager.Deregister(sess.ID)
	req.True(ok)
	req.Equal([]domain.RoomID{"lobby"}, rooms)

	// Tracking a gone session fails instead of resurrecting it
	req.False(manager.Track(sess.ID, domain.RoomID("lobby")))
}

func TestSessionManager_DisplayNamesSkipGoneSessions(t *testing.T) {
	req := require.New(t)
	manager := NewSessionManager()

	alice := manager.Register("alice", &recorderSink{})
	bob := manager.Register("bob", &recorderSink{})
	manager.Deregister(bob.ID)

	names := manager.DisplayNames([]string{alice.ID, bob.ID, "unknown"})
	req.Equal([]string{"alice"}, names)
}
